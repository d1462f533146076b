package service

import (
	"context"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/transfer"
)

// tiktokBusinessPublisher reserves the TikTok Business platform value. Its
// content posting flow is not implemented, so every publish is rejected.
type tiktokBusinessPublisher struct{}

func NewTikTokBusinessPublisher() Publisher {
	return tiktokBusinessPublisher{}
}

func (tiktokBusinessPublisher) Platform() models.Platform {
	return models.PlatformTikTokBusiness
}

func (tiktokBusinessPublisher) Publish(context.Context, *models.SocialAccount, *models.Post, []string) (*transfer.PublishResult, error) {
	return nil, &UnsupportedPlatformError{Platform: models.PlatformTikTokBusiness}
}
