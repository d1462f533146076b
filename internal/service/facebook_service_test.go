package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/stretchr/testify/require"
)

func TestFacebookPublishWithAssetUsesPhotoEndpoint(t *testing.T) {
	var log requestLog
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.record(r)
		w.Write([]byte(`{"id":"photo-1","post_id":"page_123"}`))
	}))
	defer server.Close()

	p := NewFacebookPublisher(server.Client(), server.URL, "v21.0", 0)
	account := &models.SocialAccount{AccountID: "page", AccessToken: "tok"}
	post := &models.Post{ID: 1, Caption: "New drop", Hashtags: "#sale #shop"}

	res, err := p.Publish(context.Background(), account, post,
		[]string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"})
	require.NoError(t, err)

	reqs := log.all()
	require.Len(t, reqs, 1)
	require.Equal(t, "/v21.0/page/photos", reqs[0].Path)

	body := reqs[0].jsonBody(t)
	require.Equal(t, "https://cdn.example.com/a.jpg", body["url"])
	require.Equal(t, "New drop\n\n#sale #shop", body["caption"])
	require.Equal(t, "tok", body["access_token"])
	require.Equal(t, "page_123", res.PlatformPostID)
	require.Equal(t, "https://www.facebook.com/page_123", res.URL)
}

func TestFacebookPublishWithoutAssetsUsesFeedEndpoint(t *testing.T) {
	var log requestLog
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.record(r)
		w.Write([]byte(`{"id":"page_456"}`))
	}))
	defer server.Close()

	p := NewFacebookPublisher(server.Client(), server.URL, "v21.0", 0)
	res, err := p.Publish(context.Background(),
		&models.SocialAccount{AccountID: "page", AccessToken: "tok"},
		&models.Post{ID: 2, Caption: "Just text"}, nil)
	require.NoError(t, err)

	reqs := log.all()
	require.Len(t, reqs, 1)
	require.Equal(t, "/v21.0/page/feed", reqs[0].Path)
	require.Equal(t, "Just text", reqs[0].jsonBody(t)["message"])
	require.Equal(t, "page_456", res.PlatformPostID)
	require.Equal(t, "https://www.facebook.com/page_456", res.URL)
}

func TestFacebookPublishSurfacesGraphError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`))
	}))
	defer server.Close()

	p := NewFacebookPublisher(server.Client(), server.URL, "v21.0", 0)
	_, err := p.Publish(context.Background(),
		&models.SocialAccount{AccountID: "page", AccessToken: "bad"},
		&models.Post{ID: 3, Caption: "x"}, nil)

	var perr *PlatformError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, http.StatusBadRequest, perr.StatusCode)
	require.Equal(t, "Invalid OAuth access token.", perr.Message)
	require.Contains(t, err.Error(), "Invalid OAuth access token.")
}

func TestFacebookPublishFallsBackToStatusText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p := NewFacebookPublisher(server.Client(), server.URL, "v21.0", 0)
	_, err := p.Publish(context.Background(),
		&models.SocialAccount{AccountID: "page", AccessToken: "tok"},
		&models.Post{ID: 4, Caption: "x"}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Bad Gateway")
}
