package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/transfer"
)

const instagramFallbackURL = "https://www.instagram.com/"

type instagramPublisher struct {
	baseURL string
	version string
	client  *platformClient
}

func NewInstagramPublisher(httpClient *http.Client, baseURL, version string, requestsPerMinute int) Publisher {
	return &instagramPublisher{
		baseURL: strings.TrimRight(baseURL, "/"),
		version: version,
		client:  newPlatformClient(models.PlatformInstagram, httpClient, requestsPerMinute, graphErrorMessage),
	}
}

func (s *instagramPublisher) Platform() models.Platform {
	return models.PlatformInstagram
}

// Publish stages a media container, publishes it and then looks up the
// permalink. Once the publish call succeeds the post is live, so a failed
// permalink lookup only downgrades the URL to a fallback.
func (s *instagramPublisher) Publish(ctx context.Context, account *models.SocialAccount, post *models.Post, assetURLs []string) (*transfer.PublishResult, error) {
	if len(assetURLs) == 0 {
		return nil, fmt.Errorf("instagram requires an image: %w", ErrNoAssets)
	}
	if len(assetURLs) > 1 {
		slog.Warn("instagram publishes a single image, extra assets ignored",
			"post_id", post.ID, "assets", len(assetURLs))
	}

	caption := composeText(post.Caption, post.Hashtags, "\n\n")

	creationID, err := s.createContainer(ctx, account, assetURLs[0], caption)
	if err != nil {
		return nil, fmt.Errorf("failed to create instagram media container: %w", err)
	}

	mediaID, err := s.publishContainer(ctx, account, creationID)
	if err != nil {
		return nil, fmt.Errorf("failed to publish instagram media: %w", err)
	}

	permalink, err := s.permalink(ctx, account, mediaID)
	if err != nil || permalink == "" {
		slog.Warn("instagram permalink unavailable, using fallback",
			"post_id", post.ID, "media_id", mediaID, "error", err)
		permalink = instagramFallbackURL
	}

	return &transfer.PublishResult{
		PlatformPostID: mediaID,
		URL:            permalink,
	}, nil
}

func (s *instagramPublisher) createContainer(ctx context.Context, account *models.SocialAccount, imageURL, caption string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/media", s.baseURL, s.version, account.AccountID)
	payload := map[string]interface{}{
		"image_url":    imageURL,
		"caption":      caption,
		"access_token": account.AccessToken,
	}

	var result transfer.GraphObjectResponse
	if err := s.client.postJSON(ctx, nil, endpoint, payload, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", errors.New("no media ID returned from Instagram")
	}
	return result.ID, nil
}

func (s *instagramPublisher) publishContainer(ctx context.Context, account *models.SocialAccount, creationID string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/media_publish", s.baseURL, s.version, account.AccountID)
	payload := map[string]string{
		"creation_id":  creationID,
		"access_token": account.AccessToken,
	}

	var result transfer.GraphObjectResponse
	if err := s.client.postJSON(ctx, nil, endpoint, payload, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", errors.New("no published media ID returned from Instagram")
	}
	return result.ID, nil
}

func (s *instagramPublisher) permalink(ctx context.Context, account *models.SocialAccount, mediaID string) (string, error) {
	query := url.Values{}
	query.Set("fields", "permalink")
	query.Set("access_token", account.AccessToken)
	endpoint := fmt.Sprintf("%s/%s/%s?%s", s.baseURL, s.version, mediaID, query.Encode())

	var result transfer.InstagramPermalinkResponse
	if err := s.client.getJSON(ctx, nil, endpoint, &result); err != nil {
		return "", err
	}
	return result.Permalink, nil
}
