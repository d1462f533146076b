package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/postflow/internal/models"
)

type PostRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.Post, error)
	ListRetryable(ctx context.Context, maxAttempts int) ([]*models.Post, error)
	ListStaleClaims(ctx context.Context, claimedBefore time.Time) ([]*models.Post, error)
	Claim(ctx context.Context, postID int64, from []models.PostStatus) (bool, error)
	MarkPosted(ctx context.Context, postID int64, platformPostID, platformURL string, publishedAt time.Time) error
	MarkFailed(ctx context.Context, postID int64, attemptCount int, errorMessage string, attemptAt time.Time) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, account_id, platform, caption, hashtags, asset_ids, scheduled_time, status,
	attempt_count, last_attempt_at, error_message, platform_post_id, platform_url, published_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var (
		post           models.Post
		hashtags       sql.NullString
		lastAttemptAt  sql.NullTime
		errorMessage   sql.NullString
		platformPostID sql.NullString
		platformURL    sql.NullString
		publishedAt    sql.NullTime
	)

	err := row.Scan(&post.ID, &post.UserID, &post.AccountID, &post.Platform, &post.Caption, &hashtags,
		pq.Array(&post.AssetIDs), &post.ScheduledTime, &post.Status, &post.AttemptCount, &lastAttemptAt,
		&errorMessage, &platformPostID, &platformURL, &publishedAt, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	post.Hashtags = hashtags.String
	post.LastAttemptAt = nullTime(lastAttemptAt)
	post.ErrorMessage = nullString(errorMessage)
	post.PlatformPostID = nullString(platformPostID)
	post.PlatformURL = nullString(platformURL)
	post.PublishedAt = nullTime(publishedAt)
	return &post, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE status = $1 AND scheduled_time <= $2
		ORDER BY scheduled_time ASC, id ASC`
	return r.list(ctx, query, models.PostStatusScheduled, now)
}

func (r *postRepository) ListRetryable(ctx context.Context, maxAttempts int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE status = $1 AND attempt_count < $2
		ORDER BY scheduled_time ASC, id ASC`
	return r.list(ctx, query, models.PostStatusFailed, maxAttempts)
}

func (r *postRepository) ListStaleClaims(ctx context.Context, claimedBefore time.Time) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE status = $1 AND updated_at < $2
		ORDER BY scheduled_time ASC, id ASC`
	return r.list(ctx, query, models.PostStatusPosting, claimedBefore)
}

func (r *postRepository) list(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

// Claim moves the post to posting only if it is still in one of the from
// statuses, and reports whether this caller won the claim.
func (r *postRepository) Claim(ctx context.Context, postID int64, from []models.PostStatus) (bool, error) {
	query := `
		UPDATE posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3 AND status = ANY($4)
	`
	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}

	result, err := r.db.ExecContext(ctx, query, models.PostStatusPosting, time.Now(), postID, pq.Array(statuses))
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *postRepository) MarkPosted(ctx context.Context, postID int64, platformPostID, platformURL string, publishedAt time.Time) error {
	query := `
		UPDATE posts
		SET status = $1,
			platform_post_id = $2,
			platform_url = $3,
			published_at = $4,
			error_message = NULL,
			updated_at = $5
		WHERE id = $6 AND status = $7
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusPosted, platformPostID, platformURL,
		publishedAt, time.Now(), postID, models.PostStatusPosting)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// MarkFailed never lowers attempt_count, so a stale in-memory copy cannot
// roll the counter back.
func (r *postRepository) MarkFailed(ctx context.Context, postID int64, attemptCount int, errorMessage string, attemptAt time.Time) error {
	query := `
		UPDATE posts
		SET status = $1,
			attempt_count = GREATEST(attempt_count, $2),
			error_message = $3,
			last_attempt_at = $4,
			updated_at = $5
		WHERE id = $6 AND status = $7
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusFailed, attemptCount, errorMessage,
		attemptAt, time.Now(), postID, models.PostStatusPosting)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
