package service

import (
	"context"
	"strings"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/transfer"
)

// Publisher implements one platform's publishing protocol. The account it
// receives carries a decrypted access token.
type Publisher interface {
	Platform() models.Platform
	Publish(ctx context.Context, account *models.SocialAccount, post *models.Post, assetURLs []string) (*transfer.PublishResult, error)
}

type PublisherRegistry struct {
	publishers map[models.Platform]Publisher
}

func NewPublisherRegistry(publishers ...Publisher) *PublisherRegistry {
	r := &PublisherRegistry{publishers: make(map[models.Platform]Publisher, len(publishers))}
	for _, p := range publishers {
		r.publishers[p.Platform()] = p
	}
	return r
}

// Lookup returns the publisher for platform, or an *UnsupportedPlatformError.
func (r *PublisherRegistry) Lookup(platform models.Platform) (Publisher, error) {
	p, ok := r.publishers[platform]
	if !ok {
		return nil, &UnsupportedPlatformError{Platform: platform}
	}
	return p, nil
}

// composeText joins the caption and hashtags with sep, skipping empty hashtags.
func composeText(caption, hashtags, sep string) string {
	hashtags = strings.TrimSpace(hashtags)
	if hashtags == "" {
		return caption
	}
	return caption + sep + hashtags
}
