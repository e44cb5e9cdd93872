package models

import "time"

// Run outcomes. A run is partial when it completed but some listings or
// writes failed; failed means the crawl produced nothing at all.
const (
	RunSuccess = "success"
	RunPartial = "partial"
	RunFailed  = "failed"
)

// SyncRun is one row per crawl attempt. Append-only.
type SyncRun struct {
	ID         int64         `json:"id"`
	VendorID   int64         `json:"vendor_id"`
	VendorName string        `json:"vendor_name"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Found      int           `json:"found"`
	New        int           `json:"new"`
	Updated    int           `json:"updated"`
	Unlisted   int           `json:"unlisted"`
	Removed    int           `json:"removed"`
	Status     string        `json:"status"`
	ErrorText  string        `json:"error_text,omitempty"`
}
