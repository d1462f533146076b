package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/maheshrc27/postflow/internal/testutil"
	"github.com/stretchr/testify/require"
)

type jobFixture struct {
	clock     *testutil.Clock
	posts     *testutil.PostStore
	history   *testutil.HistoryStore
	facebook  *testutil.FakePublisher
	instagram *testutil.FakePublisher
	backoff   service.BackoffPolicy
	job       *PublishJob
}

func newJobFixture(t *testing.T, claimTimeout time.Duration, posts ...*models.Post) *jobFixture {
	t.Helper()

	clock := testutil.NewClock(time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC))
	store := testutil.NewPostStore(posts...)
	store.Now = clock.Now

	f := &jobFixture{
		clock:     clock,
		posts:     store,
		history:   &testutil.HistoryStore{},
		facebook:  &testutil.FakePublisher{PlatformName: models.PlatformFacebook},
		instagram: &testutil.FakePublisher{PlatformName: models.PlatformInstagram},
		backoff:   service.NewBackoffPolicy(5*time.Minute, 3),
	}

	accounts := testutil.AccountStore{
		10: {ID: 10, Platform: models.PlatformFacebook, AccountID: "page", AccessToken: "fb-token"},
		20: {ID: 20, Platform: models.PlatformInstagram, AccountID: "ig", AccessToken: "ig-token"},
	}
	assets := testutil.AssetStore{
		100: {ID: 100, FileURL: "https://cdn.example.com/a.jpg"},
	}
	registry := service.NewPublisherRegistry(f.facebook, f.instagram, service.NewTikTokBusinessPublisher())

	ps := service.NewPublishService(store, accounts, assets, f.history,
		service.NewAssetResolver(nil), registry, testutil.PlainToken,
		service.PublishOptions{Timeout: 5 * time.Second, Backoff: f.backoff, Now: clock.Now})

	f.job = NewPublishJob(store, ps, f.backoff, PublishJobOptions{
		Interval:     time.Minute,
		ClaimTimeout: claimTimeout,
		Now:          clock.Now,
	})
	return f
}

func scheduledPost(id int64, platform models.Platform, accountID int64, at time.Time) *models.Post {
	return &models.Post{
		ID:            id,
		UserID:        1,
		AccountID:     accountID,
		Platform:      platform,
		Caption:       "caption",
		AssetIDs:      []int64{100},
		ScheduledTime: at,
		Status:        models.PostStatusScheduled,
		UpdatedAt:     at,
	}
}

var base = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func TestTickPublishesDuePost(t *testing.T) {
	f := newJobFixture(t, 0, scheduledPost(1, models.PlatformFacebook, 10, base.Add(-5*time.Minute)))

	res, ran := f.job.RunOnce(context.Background())
	require.True(t, ran)
	require.Equal(t, 1, res.Due)
	require.Equal(t, 1, res.Succeeded)
	require.NotEmpty(t, res.RunID)

	stored := f.posts.Get(1)
	require.Equal(t, models.PostStatusPosted, stored.Status)
	require.NotNil(t, stored.PlatformPostID)
	require.NotNil(t, stored.PlatformURL)
	require.NotNil(t, stored.PublishedAt)

	stats := f.job.Stats()
	require.Equal(t, int64(1), stats.TotalProcessed)
	require.Equal(t, int64(1), stats.TotalSucceeded)
	require.Equal(t, res.RunID, stats.LastRunID)
	require.False(t, stats.IsRunning)
}

func TestTickIgnoresFuturePost(t *testing.T) {
	f := newJobFixture(t, 0, scheduledPost(1, models.PlatformFacebook, 10, base.Add(time.Minute)))

	res, ran := f.job.RunOnce(context.Background())
	require.True(t, ran)
	require.Zero(t, res.Processed)
	require.Equal(t, models.PostStatusScheduled, f.posts.Get(1).Status)
	require.Empty(t, f.facebook.Calls())
}

func TestTickWaitsForBackoffBeforeRetry(t *testing.T) {
	last := base.Add(-3 * time.Minute)
	msg := "graph api unavailable"
	post := scheduledPost(1, models.PlatformInstagram, 20, base.Add(-time.Hour))
	post.Status = models.PostStatusFailed
	post.AttemptCount = 1
	post.LastAttemptAt = &last
	post.ErrorMessage = &msg
	f := newJobFixture(t, 0, post)

	res, _ := f.job.RunOnce(context.Background())
	require.Zero(t, res.Retried)
	require.Empty(t, f.instagram.Calls())
	require.Equal(t, models.PostStatusFailed, f.posts.Get(1).Status)

	f.clock.Advance(3 * time.Minute)

	res, _ = f.job.RunOnce(context.Background())
	require.Equal(t, 1, res.Retried)
	require.Len(t, f.instagram.Calls(), 1)
	require.Equal(t, models.PostStatusPosted, f.posts.Get(1).Status)
}

func TestTickNeverRetriesExhaustedPost(t *testing.T) {
	last := base.Add(-24 * time.Hour)
	post := scheduledPost(1, models.PlatformFacebook, 10, base.Add(-48*time.Hour))
	post.Status = models.PostStatusFailed
	post.AttemptCount = 3
	post.LastAttemptAt = &last
	f := newJobFixture(t, 0, post)

	for i := 0; i < 3; i++ {
		f.job.RunOnce(context.Background())
		f.clock.Advance(time.Hour)
	}
	require.Empty(t, f.facebook.Calls())
	require.Equal(t, 3, f.posts.Get(1).AttemptCount)
	require.Equal(t, 0, f.posts.Claims)
}

func TestTickFailureCountsAttemptAndStopsAtCeiling(t *testing.T) {
	f := newJobFixture(t, 0, scheduledPost(1, models.PlatformFacebook, 10, base.Add(-time.Minute)))
	f.facebook.Err = errors.New("connection reset by peer")

	f.job.RunOnce(context.Background())
	require.Equal(t, 1, f.posts.Get(1).AttemptCount)

	f.clock.Advance(5 * time.Minute)
	f.job.RunOnce(context.Background())
	require.Equal(t, 2, f.posts.Get(1).AttemptCount)

	f.clock.Advance(10 * time.Minute)
	f.job.RunOnce(context.Background())
	require.Equal(t, 3, f.posts.Get(1).AttemptCount)

	f.clock.Advance(time.Hour)
	f.job.RunOnce(context.Background())
	require.Len(t, f.facebook.Calls(), 3)

	stored := f.posts.Get(1)
	require.Equal(t, models.PostStatusFailed, stored.Status)
	require.Equal(t, "connection reset by peer", *stored.ErrorMessage)

	stats := f.job.Stats()
	require.Equal(t, int64(3), stats.TotalFailed)
}

func TestTickNeverRepublishesPostedPost(t *testing.T) {
	f := newJobFixture(t, 0, scheduledPost(1, models.PlatformFacebook, 10, base.Add(-time.Minute)))

	for i := 0; i < 3; i++ {
		f.job.RunOnce(context.Background())
		f.clock.Advance(time.Hour)
	}
	require.Len(t, f.facebook.Calls(), 1)
	require.Equal(t, models.PostStatusPosted, f.posts.Get(1).Status)
}

func TestTickIsolatesFailures(t *testing.T) {
	f := newJobFixture(t, 0,
		scheduledPost(1, models.PlatformTikTokBusiness, 10, base.Add(-3*time.Minute)),
		scheduledPost(2, models.PlatformFacebook, 10, base.Add(-2*time.Minute)),
		scheduledPost(3, models.PlatformFacebook, 99, base.Add(-time.Minute)),
	)

	res, _ := f.job.RunOnce(context.Background())
	require.Equal(t, 3, res.Due)
	require.Equal(t, 3, res.Processed)
	require.Equal(t, 1, res.Succeeded)
	require.Equal(t, 2, res.Failed)

	require.Equal(t, models.PostStatusFailed, f.posts.Get(1).Status)
	require.Contains(t, *f.posts.Get(1).ErrorMessage, "unsupported platform")
	require.Equal(t, models.PostStatusPosted, f.posts.Get(2).Status)
	require.Equal(t, models.PostStatusFailed, f.posts.Get(3).Status)
}

func TestTickProcessesDuePostsOldestFirst(t *testing.T) {
	f := newJobFixture(t, 0,
		scheduledPost(2, models.PlatformFacebook, 10, base.Add(-time.Minute)),
		scheduledPost(1, models.PlatformFacebook, 10, base.Add(-10*time.Minute)),
	)

	f.job.RunOnce(context.Background())

	calls := f.facebook.Calls()
	require.Len(t, calls, 2)
	require.Equal(t, int64(1), calls[0].PostID)
	require.Equal(t, int64(2), calls[1].PostID)
}

func TestConcurrentTickIsSkipped(t *testing.T) {
	f := newJobFixture(t, 0,
		scheduledPost(1, models.PlatformFacebook, 10, base.Add(-time.Minute)),
		scheduledPost(2, models.PlatformInstagram, 20, base.Add(-time.Minute)),
	)
	f.facebook.Block = make(chan struct{})
	f.facebook.Started = make(chan struct{}, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.job.RunOnce(context.Background())
	}()

	select {
	case <-f.facebook.Started:
	case <-time.After(5 * time.Second):
		t.Fatal("first tick never reached the publisher")
	}
	claims := f.posts.Claims
	require.True(t, f.job.Stats().IsRunning)

	res, ran := f.job.RunOnce(context.Background())
	require.False(t, ran)
	require.Zero(t, res.Processed)
	require.Equal(t, claims, f.posts.Claims)
	require.Empty(t, f.instagram.Calls())
	require.Equal(t, int64(1), f.job.Stats().SkippedTicks)

	close(f.facebook.Block)
	<-done

	require.Equal(t, models.PostStatusPosted, f.posts.Get(1).Status)
	require.Equal(t, models.PostStatusPosted, f.posts.Get(2).Status)
	require.False(t, f.job.Stats().IsRunning)
}

func TestTickExpiresStaleClaims(t *testing.T) {
	stale := scheduledPost(1, models.PlatformFacebook, 10, base.Add(-time.Hour))
	stale.Status = models.PostStatusPosting
	stale.UpdatedAt = base.Add(-20 * time.Minute)

	fresh := scheduledPost(2, models.PlatformFacebook, 10, base.Add(-time.Hour))
	fresh.Status = models.PostStatusPosting
	fresh.UpdatedAt = base.Add(-time.Minute)

	f := newJobFixture(t, 15*time.Minute, stale, fresh)

	res, _ := f.job.RunOnce(context.Background())
	require.Equal(t, 1, res.Expired)

	expired := f.posts.Get(1)
	require.Equal(t, models.PostStatusFailed, expired.Status)
	require.Equal(t, 1, expired.AttemptCount)
	require.NotNil(t, expired.ErrorMessage)

	require.Equal(t, models.PostStatusPosting, f.posts.Get(2).Status)
	require.Empty(t, f.facebook.Calls())
}

func TestStaleClaimSweepDisabled(t *testing.T) {
	stale := scheduledPost(1, models.PlatformFacebook, 10, base.Add(-time.Hour))
	stale.Status = models.PostStatusPosting
	stale.UpdatedAt = base.Add(-24 * time.Hour)

	f := newJobFixture(t, 0, stale)

	res, _ := f.job.RunOnce(context.Background())
	require.Zero(t, res.Expired)
	require.Equal(t, models.PostStatusPosting, f.posts.Get(1).Status)
}

func TestStopWaitsForInFlightTick(t *testing.T) {
	f := newJobFixture(t, 0, scheduledPost(1, models.PlatformFacebook, 10, base.Add(-time.Minute)))
	f.facebook.Block = make(chan struct{})
	f.facebook.Started = make(chan struct{}, 1)

	go f.job.RunOnce(context.Background())
	<-f.facebook.Started

	stopped := make(chan struct{})
	go func() {
		f.job.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a tick was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(f.facebook.Block)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop never returned")
	}

	require.Equal(t, models.PostStatusPosted, f.posts.Get(1).Status)

	_, ran := f.job.RunOnce(context.Background())
	require.False(t, ran)
}

func TestStartAndStop(t *testing.T) {
	f := newJobFixture(t, 0)
	f.job.Start()
	f.job.Start()
	f.job.Stop()

	_, ran := f.job.RunOnce(context.Background())
	require.False(t, ran)
}
