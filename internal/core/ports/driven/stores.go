package driven

import (
	"context"

	"github.com/custodia-labs/kb-engine/internal/core/domain"
)

// SourceStore persists data source configurations, partitioned by tenant.
type SourceStore interface {
	// Save stores or updates a source.
	Save(ctx context.Context, source domain.DataSource) error

	// Get retrieves a source by id within a tenant.
	Get(ctx context.Context, tenantID, id string) (*domain.DataSource, error)

	// List returns all sources for a tenant.
	List(ctx context.Context, tenantID string) ([]domain.DataSource, error)

	// Delete removes a source. Cascading chunk/log deletion is the
	// caller's responsibility.
	Delete(ctx context.Context, tenantID, id string) error
}

// ChunkStore persists document chunks, partitioned by tenant.
type ChunkStore interface {
	// SaveChunks stores a batch of chunks.
	SaveChunks(ctx context.Context, chunks []domain.DocumentChunk) error

	// ListBySource returns all chunks owned by a source.
	ListBySource(ctx context.Context, tenantID, sourceID string) ([]domain.DocumentChunk, error)

	// ListEmbedded returns the tenant's chunks that carry a non-empty
	// embedding, optionally filtered by source type. An empty typeFilter
	// means all types. Order is stable insertion order.
	ListEmbedded(ctx context.Context, tenantID string, typeFilter domain.SourceType) ([]domain.DocumentChunk, error)

	// DeleteBySource removes all chunks owned by a source.
	DeleteBySource(ctx context.Context, tenantID, sourceID string) error

	// CountBySource returns the number of chunks owned by a source.
	CountBySource(ctx context.Context, tenantID, sourceID string) (int, error)
}

// SyncLogStore persists the append-only sync audit trail.
type SyncLogStore interface {
	// Append adds a log entry. Entries are never mutated.
	Append(ctx context.Context, entry domain.SyncLog) error

	// ListBySource returns log entries for a source, oldest first.
	ListBySource(ctx context.Context, tenantID, sourceID string) ([]domain.SyncLog, error)

	// DeleteBySource removes log entries for a source.
	DeleteBySource(ctx context.Context, tenantID, sourceID string) error
}

// CredentialStore holds opaque connector credentials addressed by
// (tenantID, sourceID). Values must never be written to logs.
type CredentialStore interface {
	// Save stores or replaces credentials for a source.
	Save(ctx context.Context, tenantID, sourceID string, creds domain.Credentials) error

	// Get retrieves credentials for a source.
	Get(ctx context.Context, tenantID, sourceID string) (*domain.Credentials, error)

	// Delete removes credentials for a source.
	Delete(ctx context.Context, tenantID, sourceID string) error
}
