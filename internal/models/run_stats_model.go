package models

import "time"

// RunStats is in-memory scheduler bookkeeping; it resets when the process restarts.
type RunStats struct {
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
	LastRunID      string     `json:"last_run_id,omitempty"`
	TotalProcessed int64      `json:"total_processed"`
	TotalSucceeded int64      `json:"total_succeeded"`
	TotalFailed    int64      `json:"total_failed"`
	SkippedTicks   int64      `json:"skipped_ticks"`
	IsRunning      bool       `json:"is_running"`
}
