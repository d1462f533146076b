package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/transfer"
)

type PublishService interface {
	// Process claims post, publishes it and records the outcome. The returned
	// error is the publish failure, if any; it has already been stored on the post.
	Process(ctx context.Context, post *models.Post) error
	// Expire fails a post whose claim outlived its owner, counting it as an attempt.
	Expire(ctx context.Context, post *models.Post) error
}

const claimExpiredMessage = "publish claim expired before a result was recorded"

type PublishOptions struct {
	Timeout time.Duration
	Backoff BackoffPolicy
	// PermanentConfigErrors sends posts that can never succeed straight to the
	// attempt ceiling instead of spending one retry per tick on them.
	PermanentConfigErrors bool
	Now                   func() time.Time
}

type publishService struct {
	pr       repository.PostRepository
	ac       repository.SocialAccountRepository
	ma       repository.MediaAssetRepository
	ph       repository.PostingHistoryRepository
	resolver AssetResolver
	registry *PublisherRegistry
	decrypt  func(string) (string, error)
	opts     PublishOptions
}

func NewPublishService(
	pr repository.PostRepository,
	ac repository.SocialAccountRepository,
	ma repository.MediaAssetRepository,
	ph repository.PostingHistoryRepository,
	resolver AssetResolver,
	registry *PublisherRegistry,
	decrypt func(string) (string, error),
	opts PublishOptions) PublishService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Backoff.MaxAttempts == 0 {
		opts.Backoff = NewBackoffPolicy(0, 0)
	}
	return &publishService{
		pr:       pr,
		ac:       ac,
		ma:       ma,
		ph:       ph,
		resolver: resolver,
		registry: registry,
		decrypt:  decrypt,
		opts:     opts,
	}
}

func (s *publishService) Process(ctx context.Context, post *models.Post) error {
	if !models.CanTransition(post.Status, models.PostStatusPosting) ||
		(post.Status == models.PostStatusFailed && !s.opts.Backoff.CanRetry(post.AttemptCount)) {
		return ErrPostNotClaimable
	}

	claimed, err := s.pr.Claim(ctx, post.ID, models.ClaimableStatuses())
	if err != nil {
		return fmt.Errorf("failed to claim post %d: %w", post.ID, err)
	}
	if !claimed {
		slog.Info("post claimed elsewhere, skipping", "post_id", post.ID)
		return ErrPostNotClaimable
	}
	post.Status = models.PostStatusPosting

	result, pubErr := s.publish(ctx, post)
	attemptAt := s.opts.Now()

	if pubErr != nil {
		if err := s.markFailed(ctx, post, pubErr, attemptAt); err != nil {
			return errors.Join(pubErr, err)
		}
		return pubErr
	}
	return s.markPosted(ctx, post, result, attemptAt)
}

func (s *publishService) Expire(ctx context.Context, post *models.Post) error {
	if post.Status != models.PostStatusPosting {
		return ErrPostNotClaimable
	}
	return s.markFailed(ctx, post, errors.New(claimExpiredMessage), s.opts.Now())
}

func (s *publishService) publish(ctx context.Context, post *models.Post) (result *transfer.PublishResult, err error) {
	account, err := s.account(ctx, post.AccountID)
	if err != nil {
		return nil, err
	}

	assets, err := s.ma.ListByIDs(ctx, post.AssetIDs)
	if err != nil {
		return nil, fmt.Errorf("error loading media assets: %w", err)
	}
	if len(assets) != len(post.AssetIDs) {
		slog.Warn("some media assets are missing", "post_id", post.ID,
			"expected", len(post.AssetIDs), "found", len(assets))
	}
	assetURLs, err := s.resolver.ResolveURLs(ctx, assets)
	if err != nil {
		return nil, err
	}

	publisher, err := s.registry.Lookup(post.Platform)
	if err != nil {
		return nil, err
	}

	callCtx := ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("%s publisher panicked: %v", post.Platform, r)
		}
	}()

	result, err = publisher.Publish(callCtx, account, post, assetURLs)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%s publish timed out after %s: %w", post.Platform, s.opts.Timeout, err)
		}
		return nil, err
	}
	return result, nil
}

// account loads the post's account and returns a copy carrying the plaintext token.
func (s *publishService) account(ctx context.Context, accountID int64) (*models.SocialAccount, error) {
	account, err := s.ac.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("error loading social account %d: %w", accountID, err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %d: %w", accountID, ErrAccountNotFound)
	}
	if account.AccessToken == "" {
		return nil, fmt.Errorf("account %d: %w", accountID, ErrMissingToken)
	}

	token, err := s.decrypt(account.AccessToken)
	if err != nil || token == "" {
		return nil, fmt.Errorf("account %d: %w", accountID, ErrMissingToken)
	}

	authed := *account
	authed.AccessToken = token
	return &authed, nil
}

func (s *publishService) markPosted(ctx context.Context, post *models.Post, result *transfer.PublishResult, publishedAt time.Time) error {
	if err := s.pr.MarkPosted(ctx, post.ID, result.PlatformPostID, result.URL, publishedAt); err != nil {
		slog.Error("failed to record published post", "post_id", post.ID,
			"platform_post_id", result.PlatformPostID, "error", err)
		return fmt.Errorf("failed to update status: %w", err)
	}

	post.Status = models.PostStatusPosted
	post.PlatformPostID = &result.PlatformPostID
	post.PlatformURL = &result.URL
	post.PublishedAt = &publishedAt
	post.ErrorMessage = nil

	slog.Info("post published", "post_id", post.ID, "platform", post.Platform,
		"platform_post_id", result.PlatformPostID, "url", result.URL)
	s.recordHistory(ctx, post, post.AttemptCount+1, result.PlatformPostID, "")
	return nil
}

// markFailed stores pubErr on the post. It only returns an error when the store write fails.
func (s *publishService) markFailed(ctx context.Context, post *models.Post, pubErr error, attemptAt time.Time) error {
	attempts := post.AttemptCount + 1
	if s.opts.PermanentConfigErrors && IsConfigurationError(pubErr) && attempts < s.opts.Backoff.MaxAttempts {
		attempts = s.opts.Backoff.MaxAttempts
	}
	message := pubErr.Error()

	slog.Error("post publish failed", "post_id", post.ID, "platform", post.Platform,
		"attempt", attempts, "error", message)

	if err := s.pr.MarkFailed(ctx, post.ID, attempts, message, attemptAt); err != nil {
		slog.Error("failed to record publish failure", "post_id", post.ID, "error", err)
		return fmt.Errorf("failed to update status: %w", err)
	}

	history := post.AttemptCount + 1
	post.Status = models.PostStatusFailed
	post.AttemptCount = attempts
	post.LastAttemptAt = &attemptAt
	post.ErrorMessage = &message

	if !s.opts.Backoff.CanRetry(attempts) {
		slog.Warn("post exhausted its publish attempts", "post_id", post.ID, "attempts", attempts)
	}
	s.recordHistory(ctx, post, history, "", message)
	return nil
}

func (s *publishService) recordHistory(ctx context.Context, post *models.Post, attempt int, platformPostID, errorMessage string) {
	if s.ph == nil {
		return
	}
	_, err := s.ph.Create(ctx, &models.PostingHistory{
		UserID:         post.UserID,
		PostID:         post.ID,
		AccountID:      post.AccountID,
		Platform:       post.Platform,
		Attempt:        attempt,
		PlatformPostID: platformPostID,
		ErrorMessage:   errorMessage,
	})
	if err != nil {
		slog.Error("Error saving posting history", "post_id", post.ID, "error", err)
	}
}
