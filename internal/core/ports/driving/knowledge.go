// Package driving provides interfaces for external actors (primary/inbound
// ports).
package driving

import (
	"context"

	"github.com/custodia-labs/kb-engine/internal/core/domain"
)

// SearchOptions configures a retrieval query.
type SearchOptions struct {
	// TopK is the maximum number of chunks to return (default 5).
	TopK int

	// SourceType restricts results to chunks from one source type.
	// Empty means no filter.
	SourceType domain.SourceType
}

// KnowledgeService is the engine's external interface: source lifecycle,
// sync triggering, and semantic retrieval. Every call is scoped to a
// tenant.
type KnowledgeService interface {
	// RegisterSource creates a data source and queues its first sync.
	RegisterSource(ctx context.Context, tenantID string, sourceType domain.SourceType, name string, config domain.ConnectorConfig) (*domain.DataSource, error)

	// StartSync triggers a sync for the source. Idempotent: a no-op when
	// a sync is already in flight.
	StartSync(ctx context.Context, tenantID, sourceID string) error

	// GetSource retrieves a source, used for polling sync status.
	GetSource(ctx context.Context, tenantID, sourceID string) (*domain.DataSource, error)

	// ListSources returns all sources for a tenant.
	ListSources(ctx context.Context, tenantID string) ([]domain.DataSource, error)

	// UpdateSource modifies a source's name and config. The type is
	// immutable after creation.
	UpdateSource(ctx context.Context, tenantID, sourceID, name string, config domain.ConnectorConfig) error

	// DeleteSource removes a source, cascading to its chunks, logs, and
	// credentials. Returns false when the source does not exist.
	DeleteSource(ctx context.Context, tenantID, sourceID string) (bool, error)

	// SetCredentials stores the credential bundle for a platform source.
	SetCredentials(ctx context.Context, tenantID, sourceID string, creds domain.Credentials) error

	// SyncLogs returns the source's sync audit trail, oldest first.
	SyncLogs(ctx context.Context, tenantID, sourceID string) ([]domain.SyncLog, error)

	// Search returns the tenant's chunks ranked by similarity to the
	// query, most relevant first.
	Search(ctx context.Context, tenantID, query string, opts SearchOptions) ([]domain.DocumentChunk, error)
}
