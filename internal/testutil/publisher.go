package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/transfer"
)

type PublishCall struct {
	PostID    int64
	Token     string
	AssetURLs []string
}

// FakePublisher records calls and answers with Result or Err. When Block is
// set every call waits on it, or on ctx, before answering.
type FakePublisher struct {
	PlatformName models.Platform
	Result       *transfer.PublishResult
	Err          error
	Block        chan struct{}
	Started      chan struct{}

	mu    sync.Mutex
	calls []PublishCall
}

func (f *FakePublisher) Platform() models.Platform {
	return f.PlatformName
}

func (f *FakePublisher) Publish(ctx context.Context, account *models.SocialAccount, post *models.Post, assetURLs []string) (*transfer.PublishResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, PublishCall{PostID: post.ID, Token: account.AccessToken, AssetURLs: assetURLs})
	f.mu.Unlock()

	if f.Started != nil {
		select {
		case f.Started <- struct{}{}:
		default:
		}
	}
	if f.Block != nil {
		select {
		case <-f.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f.Err != nil {
		return nil, f.Err
	}
	if f.Result != nil {
		return f.Result, nil
	}
	return &transfer.PublishResult{PlatformPostID: "ext-1", URL: "https://example.com/ext-1"}, nil
}

func (f *FakePublisher) Calls() []PublishCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PublishCall(nil), f.calls...)
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func PlainToken(token string) (string, error) {
	return token, nil
}
