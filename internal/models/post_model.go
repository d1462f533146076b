package models

import "time"

type Platform string

const (
	PlatformFacebook       Platform = "facebook"
	PlatformInstagram      Platform = "instagram"
	PlatformTwitter        Platform = "twitter"
	PlatformTikTokBusiness Platform = "tiktok_business"
)

type PostStatus string

const (
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPosting   PostStatus = "posting"
	PostStatusPosted    PostStatus = "posted"
	PostStatusFailed    PostStatus = "failed"
)

// Post is a scheduled post targeting exactly one platform account.
type Post struct {
	ID             int64      `db:"id" json:"id"`
	UserID         int64      `db:"user_id" json:"user_id"`
	AccountID      int64      `db:"account_id" json:"account_id"`
	Platform       Platform   `db:"platform" json:"platform"`
	Caption        string     `db:"caption" json:"caption"`
	Hashtags       string     `db:"hashtags" json:"hashtags,omitempty"`
	AssetIDs       []int64    `db:"asset_ids" json:"asset_ids"`
	ScheduledTime  time.Time  `db:"scheduled_time" json:"scheduled_time"`
	Status         PostStatus `db:"status" json:"status"`
	AttemptCount   int        `db:"attempt_count" json:"attempt_count"`
	LastAttemptAt  *time.Time `db:"last_attempt_at" json:"last_attempt_at,omitempty"`
	ErrorMessage   *string    `db:"error_message" json:"error_message,omitempty"`
	PlatformPostID *string    `db:"platform_post_id" json:"platform_post_id,omitempty"`
	PlatformURL    *string    `db:"platform_url" json:"platform_url,omitempty"`
	PublishedAt    *time.Time `db:"published_at" json:"published_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

type MediaAsset struct {
	ID         int64     `db:"id"`
	UserID     int64     `db:"user_id"`
	FileName   string    `db:"file_name"`
	FileType   string    `db:"file_type"`
	FileURL    string    `db:"file_url"`
	StorageKey string    `db:"storage_key"`
	CreatedAt  time.Time `db:"created_at"`
}

// transitions lists the legal lifecycle edges. Posted has no outgoing edge.
var transitions = map[PostStatus][]PostStatus{
	PostStatusScheduled: {PostStatusPosting},
	PostStatusPosting:   {PostStatusPosted, PostStatusFailed},
	PostStatusFailed:    {PostStatusPosting},
}

func CanTransition(from, to PostStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ClaimableStatuses are the statuses a post may be claimed from.
func ClaimableStatuses() []PostStatus {
	var out []PostStatus
	for _, from := range []PostStatus{PostStatusScheduled, PostStatusPosting, PostStatusPosted, PostStatusFailed} {
		if CanTransition(from, PostStatusPosting) {
			out = append(out, from)
		}
	}
	return out
}
