package database

import "time"

// Event statuses recorded in the event log.
const (
	StatusReplied = "replied"
	StatusDropped = "dropped"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// EventRecord is the audit row for one handled webhook event.
// Message content is never stored.
type EventRecord struct {
	ID        int64     `db:"id"         json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	WebhookEventID string `db:"webhook_event_id" json:"webhook_event_id"`
	Kind           string `db:"kind"             json:"kind"`
	SourceType     string `db:"source_type"      json:"source_type"`
	SourceID       string `db:"source_id"        json:"source_id"`
	Status         string `db:"status"           json:"status"`
	// Detail holds the error text for failed events.
	Detail     string `db:"detail"      json:"detail,omitempty"`
	ReplyChars int    `db:"reply_chars" json:"reply_chars"`
	DurationMs int64  `db:"duration_ms" json:"duration_ms"`
}
