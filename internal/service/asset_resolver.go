package service

import (
	"context"
	"fmt"

	"github.com/maheshrc27/postflow/internal/models"
)

type ObjectPresigner interface {
	PresignGetURL(ctx context.Context, key string) (string, error)
}

type AssetResolver interface {
	ResolveURLs(ctx context.Context, assets []*models.MediaAsset) ([]string, error)
}

type assetResolver struct {
	presigner ObjectPresigner
}

// NewAssetResolver builds a resolver. presigner may be nil when every asset
// carries a durable URL.
func NewAssetResolver(presigner ObjectPresigner) AssetResolver {
	return &assetResolver{presigner: presigner}
}

func (r *assetResolver) ResolveURLs(ctx context.Context, assets []*models.MediaAsset) ([]string, error) {
	urls := make([]string, 0, len(assets))
	for _, asset := range assets {
		switch {
		case asset.FileURL != "":
			urls = append(urls, asset.FileURL)
		case asset.StorageKey != "" && r.presigner != nil:
			u, err := r.presigner.PresignGetURL(ctx, asset.StorageKey)
			if err != nil {
				return nil, fmt.Errorf("error presigning asset %d: %w", asset.ID, err)
			}
			urls = append(urls, u)
		default:
			return nil, fmt.Errorf("media asset %d has no URL", asset.ID)
		}
	}
	return urls, nil
}
