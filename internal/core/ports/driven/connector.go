package driven

import (
	"context"

	"github.com/custodia-labs/kb-engine/internal/core/domain"
)

// Connector refreshes a data source's chunk set from its origin.
// Each source type (document, website, drive, ...) implements this
// interface; the sync orchestrator is the only caller of Sync.
type Connector interface {
	// Type returns the source type this connector serves.
	Type() domain.SourceType

	// Validate performs a lightweight readiness check before a sync:
	// configuration sanity and, for platform connectors, a credential
	// check. Returns nil if the connector is ready to sync.
	Validate(ctx context.Context, source domain.DataSource) error

	// Sync replaces the source's chunk set from the origin. It must
	// delete the existing chunks first (full-replace semantics), skip
	// individual resources that fail to fetch or parse, and return the
	// number of resources processed. Any returned error is a sync-level
	// failure that moves the source to the error state.
	Sync(ctx context.Context, source domain.DataSource) (*domain.SyncResult, error)
}
