package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/transfer"
)

const facebookPermalinkBase = "https://www.facebook.com/"

type facebookPublisher struct {
	baseURL string
	version string
	client  *platformClient
}

func NewFacebookPublisher(httpClient *http.Client, baseURL, version string, requestsPerMinute int) Publisher {
	return &facebookPublisher{
		baseURL: strings.TrimRight(baseURL, "/"),
		version: version,
		client:  newPlatformClient(models.PlatformFacebook, httpClient, requestsPerMinute, graphErrorMessage),
	}
}

func (f *facebookPublisher) Platform() models.Platform {
	return models.PlatformFacebook
}

// Publish posts a photo when the post has an asset and a plain feed post otherwise.
func (f *facebookPublisher) Publish(ctx context.Context, account *models.SocialAccount, post *models.Post, assetURLs []string) (*transfer.PublishResult, error) {
	message := composeText(post.Caption, post.Hashtags, "\n\n")

	var (
		endpoint string
		payload  map[string]interface{}
	)
	if len(assetURLs) > 0 {
		if len(assetURLs) > 1 {
			slog.Warn("facebook publishes a single photo, extra assets ignored",
				"post_id", post.ID, "assets", len(assetURLs))
		}
		endpoint = fmt.Sprintf("%s/%s/%s/photos", f.baseURL, f.version, account.AccountID)
		payload = map[string]interface{}{
			"url":          assetURLs[0],
			"caption":      message,
			"access_token": account.AccessToken,
		}
	} else {
		endpoint = fmt.Sprintf("%s/%s/%s/feed", f.baseURL, f.version, account.AccountID)
		payload = map[string]interface{}{
			"message":      message,
			"access_token": account.AccessToken,
		}
	}

	var result transfer.GraphObjectResponse
	if err := f.client.postJSON(ctx, nil, endpoint, payload, &result); err != nil {
		return nil, err
	}

	id := result.PostID
	if id == "" {
		id = result.ID
	}
	if id == "" {
		return nil, errors.New("no post ID returned from Facebook")
	}

	return &transfer.PublishResult{
		PlatformPostID: id,
		URL:            facebookPermalinkBase + id,
	}, nil
}

func graphErrorMessage(body []byte) string {
	var errResp transfer.GraphErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return ""
	}
	return errResp.Error.Message
}
