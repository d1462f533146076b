package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/h2non/filetype"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/transfer"
	"golang.org/x/oauth2"
)

const (
	tweetMaxLength     = 280
	tweetEllipsis      = "..."
	twitterProfileBase = "https://x.com/"
)

type twitterPublisher struct {
	apiURL     string
	uploadURL  string
	httpClient *http.Client
	client     *platformClient
}

func NewTwitterPublisher(httpClient *http.Client, apiURL, uploadURL string, requestsPerMinute int) Publisher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &twitterPublisher{
		apiURL:     strings.TrimRight(apiURL, "/"),
		uploadURL:  strings.TrimRight(uploadURL, "/"),
		httpClient: httpClient,
		client:     newPlatformClient(models.PlatformTwitter, httpClient, requestsPerMinute, twitterErrorMessage),
	}
}

func (t *twitterPublisher) Platform() models.Platform {
	return models.PlatformTwitter
}

// Publish uploads every asset first and only then creates the tweet, so a
// failed upload never leaves a tweet with partial media behind.
func (t *twitterPublisher) Publish(ctx context.Context, account *models.SocialAccount, post *models.Post, assetURLs []string) (*transfer.PublishResult, error) {
	text := truncateTweet(composeText(post.Caption, post.Hashtags, " "))

	hc := t.authorizedClient(ctx, account.AccessToken)

	var mediaIDs []string
	for i, assetURL := range assetURLs {
		mediaID, err := t.uploadMedia(ctx, hc, assetURL)
		if err != nil {
			return nil, fmt.Errorf("failed to upload media %d/%d to twitter: %w", i+1, len(assetURLs), err)
		}
		mediaIDs = append(mediaIDs, mediaID)
	}

	req := transfer.TweetRequest{Text: text}
	if len(mediaIDs) > 0 {
		req.Media = &transfer.TweetMedia{MediaIDs: mediaIDs}
	}

	var result transfer.TweetResponse
	if err := t.client.postJSON(ctx, hc, t.apiURL+"/2/tweets", req, &result); err != nil {
		return nil, fmt.Errorf("failed to create tweet: %w", err)
	}
	if result.Data.ID == "" {
		return nil, errors.New("no tweet ID returned from Twitter")
	}

	handle := account.AccountUsername
	if handle == "" {
		handle = account.AccountName
	}

	return &transfer.PublishResult{
		PlatformPostID: result.Data.ID,
		URL:            fmt.Sprintf("%s%s/status/%s", twitterProfileBase, url.PathEscape(handle), result.Data.ID),
	}, nil
}

func (t *twitterPublisher) authorizedClient(ctx context.Context, accessToken string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, t.httpClient)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
}

func (t *twitterPublisher) uploadMedia(ctx context.Context, hc *http.Client, assetURL string) (string, error) {
	data, err := t.client.download(ctx, assetURL)
	if err != nil {
		return "", fmt.Errorf("failed to download asset %s: %w", assetURL, err)
	}

	category, err := mediaCategory(data)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("media_data", base64.StdEncoding.EncodeToString(data))
	form.Set("media_category", category)

	var result transfer.TwitterMediaUploadResponse
	if err := t.client.postForm(ctx, hc, t.uploadURL+"/1.1/media/upload.json", form, &result); err != nil {
		return "", err
	}

	if result.MediaIDString != "" {
		return result.MediaIDString, nil
	}
	if result.MediaID != 0 {
		return fmt.Sprintf("%d", result.MediaID), nil
	}
	return "", errors.New("no media ID returned from Twitter")
}

func mediaCategory(data []byte) (string, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return "", fmt.Errorf("failed to detect media type: %w", err)
	}

	switch {
	case kind.MIME.Value == "image/gif":
		return "tweet_gif", nil
	case filetype.IsImage(data):
		return "tweet_image", nil
	case filetype.IsVideo(data):
		return "tweet_video", nil
	}
	return "", fmt.Errorf("unsupported media type %q", kind.MIME.Value)
}

// truncateTweet cuts text to the tweet limit, marking the cut with an ellipsis.
func truncateTweet(text string) string {
	runes := []rune(text)
	if len(runes) <= tweetMaxLength {
		return text
	}
	keep := tweetMaxLength - len([]rune(tweetEllipsis))
	return string(runes[:keep]) + tweetEllipsis
}

func twitterErrorMessage(body []byte) string {
	var errResp transfer.TwitterErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return ""
	}
	switch {
	case errResp.Detail != "":
		return errResp.Detail
	case len(errResp.Errors) > 0:
		return errResp.Errors[0].Message
	}
	return errResp.Title
}
