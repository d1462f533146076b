package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/stretchr/testify/require"
)

type stubPresigner struct {
	err  error
	keys []string
}

func (s *stubPresigner) PresignGetURL(_ context.Context, key string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.keys = append(s.keys, key)
	return fmt.Sprintf("https://bucket.r2.example.com/%s?X-Amz-Signature=abc", key), nil
}

func TestResolveURLsPrefersStoredURL(t *testing.T) {
	presigner := &stubPresigner{}
	urls, err := NewAssetResolver(presigner).ResolveURLs(context.Background(), []*models.MediaAsset{
		{ID: 1, FileURL: "https://cdn.example.com/a.jpg", StorageKey: "uploads/a.jpg"},
		{ID: 2, StorageKey: "uploads/b.jpg"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://cdn.example.com/a.jpg",
		"https://bucket.r2.example.com/uploads/b.jpg?X-Amz-Signature=abc",
	}, urls)
	require.Equal(t, []string{"uploads/b.jpg"}, presigner.keys)
}

func TestResolveURLsSurfacesPresignError(t *testing.T) {
	presigner := &stubPresigner{err: errors.New("credentials expired")}
	_, err := NewAssetResolver(presigner).ResolveURLs(context.Background(), []*models.MediaAsset{
		{ID: 7, StorageKey: "uploads/c.jpg"},
	})
	require.ErrorContains(t, err, "credentials expired")
	require.ErrorContains(t, err, "asset 7")
}

func TestResolveURLsWithoutAssets(t *testing.T) {
	urls, err := NewAssetResolver(nil).ResolveURLs(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, urls)
}
