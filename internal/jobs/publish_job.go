package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/maheshrc27/postflow/internal/transfer"
	"github.com/robfig/cron"
)

const DefaultTickInterval = time.Minute

type PublishJobOptions struct {
	Interval time.Duration
	// ClaimTimeout is how long a post may sit in posting before it is
	// treated as abandoned. Zero disables the sweep.
	ClaimTimeout time.Duration
	Now          func() time.Time
}

// PublishJob drives publishing: on every tick it picks up due and
// retry-eligible posts and hands them to the publish service one at a time.
// At most one tick runs at once; a tick that finds another in progress is
// dropped, not queued.
type PublishJob struct {
	pr      repository.PostRepository
	ps      service.PublishService
	backoff service.BackoffPolicy
	opts    PublishJobOptions

	running atomic.Bool

	mu      sync.Mutex
	stats   models.RunStats
	cron    *cron.Cron
	stopped bool
	wg      sync.WaitGroup
}

func NewPublishJob(
	pr repository.PostRepository,
	ps service.PublishService,
	backoff service.BackoffPolicy,
	opts PublishJobOptions) *PublishJob {
	if opts.Interval <= 0 {
		opts.Interval = DefaultTickInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &PublishJob{
		pr:      pr,
		ps:      ps,
		backoff: backoff,
		opts:    opts,
	}
}

// Start schedules ticks every Interval. Calling it twice is a no-op.
func (j *PublishJob) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cron != nil || j.stopped {
		return
	}

	j.cron = cron.New()
	j.cron.Schedule(cron.Every(j.opts.Interval), cron.FuncJob(func() {
		j.RunOnce(context.Background())
	}))
	j.cron.Start()

	slog.Info("publish job started", "interval", j.opts.Interval.String())
}

// Stop prevents new ticks and waits for an in-flight tick to finish.
func (j *PublishJob) Stop() {
	j.mu.Lock()
	j.stopped = true
	if j.cron != nil {
		j.cron.Stop()
	}
	j.mu.Unlock()

	j.wg.Wait()
	slog.Info("publish job stopped")
}

// RunOnce runs a single tick synchronously. It returns false, doing no work,
// when another tick is still running or the job has been stopped.
func (j *PublishJob) RunOnce(ctx context.Context) (transfer.TickResult, bool) {
	j.mu.Lock()
	if j.stopped {
		j.mu.Unlock()
		return transfer.TickResult{}, false
	}
	if !j.running.CompareAndSwap(false, true) {
		j.stats.SkippedTicks++
		j.mu.Unlock()
		slog.Info("previous publish tick still running, skipping")
		return transfer.TickResult{}, false
	}
	j.wg.Add(1)
	j.mu.Unlock()

	defer func() {
		j.running.Store(false)
		j.wg.Done()
	}()

	return j.tick(ctx), true
}

func (j *PublishJob) Stats() models.RunStats {
	j.mu.Lock()
	defer j.mu.Unlock()

	stats := j.stats
	stats.IsRunning = j.running.Load()
	return stats
}

func (j *PublishJob) tick(ctx context.Context) transfer.TickResult {
	now := j.opts.Now()
	runID, err := gonanoid.New(12)
	if err != nil {
		runID = fmt.Sprintf("run-%d", now.UnixNano())
	}
	result := transfer.TickResult{RunID: runID}
	log := slog.With("run_id", runID)

	j.mu.Lock()
	j.stats.LastRunAt = &now
	j.stats.LastRunID = runID
	j.mu.Unlock()

	j.expireStaleClaims(ctx, log, now, &result)

	due, err := j.pr.ListDue(ctx, now)
	if err != nil {
		log.Error("failed to list due posts", "error", err)
	}
	for _, post := range due {
		result.Due++
		j.process(ctx, log, post, &result)
	}

	retryable, err := j.pr.ListRetryable(ctx, j.backoff.MaxAttempts)
	if err != nil {
		log.Error("failed to list retryable posts", "error", err)
	}
	for _, post := range retryable {
		if !j.backoff.CanRetry(post.AttemptCount) ||
			!j.backoff.IsEligible(post.AttemptCount, post.LastAttemptAt, now) {
			continue
		}
		result.Retried++
		j.process(ctx, log, post, &result)
	}

	j.mu.Lock()
	j.stats.TotalProcessed += int64(result.Processed)
	j.stats.TotalSucceeded += int64(result.Succeeded)
	j.stats.TotalFailed += int64(result.Failed)
	j.mu.Unlock()

	if result.Processed > 0 || result.Expired > 0 {
		log.Info("publish tick finished", "due", result.Due, "retried", result.Retried,
			"expired", result.Expired, "succeeded", result.Succeeded, "failed", result.Failed)
	}
	return result
}

func (j *PublishJob) process(ctx context.Context, log *slog.Logger, post *models.Post, result *transfer.TickResult) {
	defer func() {
		if r := recover(); r != nil {
			result.Processed++
			result.Failed++
			log.Error("panic while publishing post", "post_id", post.ID, "panic", r)
		}
	}()

	err := j.ps.Process(ctx, post)
	if errors.Is(err, service.ErrPostNotClaimable) {
		return
	}

	result.Processed++
	if err != nil {
		result.Failed++
		return
	}
	result.Succeeded++
}

func (j *PublishJob) expireStaleClaims(ctx context.Context, log *slog.Logger, now time.Time, result *transfer.TickResult) {
	if j.opts.ClaimTimeout <= 0 {
		return
	}

	stale, err := j.pr.ListStaleClaims(ctx, now.Add(-j.opts.ClaimTimeout))
	if err != nil {
		log.Error("failed to list stale claims", "error", err)
		return
	}
	for _, post := range stale {
		if err := j.ps.Expire(ctx, post); err != nil {
			log.Error("failed to expire stale claim", "post_id", post.ID, "error", err)
			continue
		}
		result.Expired++
	}
}
