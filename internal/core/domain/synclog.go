package domain

import "time"

// SyncLogStatus classifies a sync log entry.
type SyncLogStatus string

const (
	// SyncLogInProgress is written when a sync starts.
	SyncLogInProgress SyncLogStatus = "in_progress"
	// SyncLogSuccess is written when a sync completes.
	SyncLogSuccess SyncLogStatus = "success"
	// SyncLogFailure is written when a sync fails.
	SyncLogFailure SyncLogStatus = "failure"
)

// SyncLog is one entry in a source's append-only sync audit trail.
// Entries are never mutated after creation.
type SyncLog struct {
	// ID is the unique identifier for the log entry.
	ID string

	// TenantID is the owning tenant.
	TenantID string

	// SourceID links to the synced DataSource.
	SourceID string

	// Timestamp is when the entry was written.
	Timestamp time.Time

	// Status classifies the entry.
	Status SyncLogStatus

	// Message carries detail, e.g. the failure reason.
	Message string

	// ItemsProcessed is the resource count for success entries.
	ItemsProcessed int
}
