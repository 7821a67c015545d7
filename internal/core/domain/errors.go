package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTenantRequired indicates a call was made without a tenant id.
	// Every read and write path is partitioned by tenant.
	ErrTenantRequired = errors.New("tenant id required")

	// ErrUnsupportedType indicates an unknown source type. The connector
	// set is closed; unknown types fail fast instead of degrading to a
	// stub.
	ErrUnsupportedType = errors.New("unsupported source type")

	// ErrSyncInProgress indicates a sync is already running for the source.
	// Only one sync may be in flight per source at a time.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrQueueFull indicates the background sync queue cannot accept more
	// work right now.
	ErrQueueFull = errors.New("sync queue full")

	// Authentication errors. Surfaced as source status Error; never
	// retried automatically.

	// ErrAuthRequired indicates the connector requires credentials but
	// none are stored for the source.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthExpired indicates the stored credentials have expired.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrConnectorValidation indicates connector validation failed.
	// The source is misconfigured or credentials are invalid.
	ErrConnectorValidation = errors.New("connector validation failed")

	// Content errors. Recovered locally during a sync: the resource is
	// skipped and enumeration continues.

	// ErrFetchFailed indicates a network or HTTP failure for a resource.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrParseFailed indicates unsupported or malformed content.
	ErrParseFailed = errors.New("parse failed")
)
