package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/kb-engine/internal/core/domain"
	"github.com/custodia-labs/kb-engine/internal/core/ports/driven"
	"github.com/custodia-labs/kb-engine/internal/core/ports/driving"
	"github.com/custodia-labs/kb-engine/internal/logger"
)

// Ensure KnowledgeService implements the interface.
var _ driving.KnowledgeService = (*KnowledgeService)(nil)

// KnowledgeService is the engine's facade: source lifecycle, sync
// triggering, and retrieval, all scoped per tenant.
type KnowledgeService struct {
	sources      driven.SourceStore
	chunks       driven.ChunkStore
	logs         driven.SyncLogStore
	creds        driven.CredentialStore
	registry     *ConnectorRegistry
	orchestrator *SyncOrchestrator
	search       *SearchService
}

// NewKnowledgeService creates the facade over the given stores and
// services.
func NewKnowledgeService(
	sources driven.SourceStore,
	chunks driven.ChunkStore,
	logs driven.SyncLogStore,
	creds driven.CredentialStore,
	registry *ConnectorRegistry,
	orchestrator *SyncOrchestrator,
	search *SearchService,
) *KnowledgeService {
	return &KnowledgeService{
		sources:      sources,
		chunks:       chunks,
		logs:         logs,
		creds:        creds,
		registry:     registry,
		orchestrator: orchestrator,
		search:       search,
	}
}

// RegisterSource creates a source in Pending state and queues its first
// sync. Registration fails fast for unknown source types.
func (s *KnowledgeService) RegisterSource(ctx context.Context, tenantID string, sourceType domain.SourceType, name string, config domain.ConnectorConfig) (*domain.DataSource, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	if !sourceType.Valid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, sourceType)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}

	now := time.Now()
	source := domain.DataSource{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Type:      sourceType,
		Name:      name,
		Status:    domain.StatusPending,
		Config:    config,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sources.Save(ctx, source); err != nil {
		return nil, fmt.Errorf("save source: %w", err)
	}

	// Platform connectors cannot sync until credentials arrive, so the
	// first sync is queued best-effort; the source stays Pending if the
	// queue rejects it.
	if err := s.orchestrator.Enqueue(ctx, tenantID, source.ID); err != nil {
		logger.Debug("initial sync not queued for source %s: %v", source.ID, err)
	}
	return &source, nil
}

// StartSync triggers a sync. Idempotent: an in-flight sync makes this a
// no-op rather than an error.
func (s *KnowledgeService) StartSync(ctx context.Context, tenantID, sourceID string) error {
	err := s.orchestrator.Enqueue(ctx, tenantID, sourceID)
	if errors.Is(err, domain.ErrSyncInProgress) {
		return nil
	}
	return err
}

// GetSource retrieves one source.
func (s *KnowledgeService) GetSource(ctx context.Context, tenantID, sourceID string) (*domain.DataSource, error) {
	return s.sources.Get(ctx, tenantID, sourceID)
}

// ListSources returns the tenant's sources.
func (s *KnowledgeService) ListSources(ctx context.Context, tenantID string) ([]domain.DataSource, error) {
	return s.sources.List(ctx, tenantID)
}

// UpdateSource modifies name and config. Type and status are untouched:
// type is immutable and status belongs to the orchestrator.
func (s *KnowledgeService) UpdateSource(ctx context.Context, tenantID, sourceID, name string, config domain.ConnectorConfig) error {
	source, err := s.sources.Get(ctx, tenantID, sourceID)
	if err != nil {
		return err
	}
	if name != "" {
		source.Name = name
	}
	source.Config = config
	source.UpdatedAt = time.Now()
	return s.sources.Save(ctx, *source)
}

// DeleteSource removes the source and cascades to its chunks, sync
// logs, and credentials. Returns false when the source does not exist.
func (s *KnowledgeService) DeleteSource(ctx context.Context, tenantID, sourceID string) (bool, error) {
	if err := s.sources.Delete(ctx, tenantID, sourceID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := s.chunks.DeleteBySource(ctx, tenantID, sourceID); err != nil {
		return false, fmt.Errorf("delete chunks: %w", err)
	}
	if err := s.logs.DeleteBySource(ctx, tenantID, sourceID); err != nil {
		return false, fmt.Errorf("delete sync logs: %w", err)
	}
	if err := s.creds.Delete(ctx, tenantID, sourceID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return false, fmt.Errorf("delete credentials: %w", err)
	}
	logger.Info("deleted source %s and its derived data", sourceID)
	return true, nil
}

// SetCredentials stores the credential bundle for a source.
func (s *KnowledgeService) SetCredentials(ctx context.Context, tenantID, sourceID string, creds domain.Credentials) error {
	if _, err := s.sources.Get(ctx, tenantID, sourceID); err != nil {
		return err
	}
	return s.creds.Save(ctx, tenantID, sourceID, creds)
}

// SyncLogs returns the source's audit trail, oldest first.
func (s *KnowledgeService) SyncLogs(ctx context.Context, tenantID, sourceID string) ([]domain.SyncLog, error) {
	if _, err := s.sources.Get(ctx, tenantID, sourceID); err != nil {
		return nil, err
	}
	return s.logs.ListBySource(ctx, tenantID, sourceID)
}

// Search ranks the tenant's chunks against the query.
func (s *KnowledgeService) Search(ctx context.Context, tenantID, query string, opts driving.SearchOptions) ([]domain.DocumentChunk, error) {
	return s.search.Search(ctx, tenantID, query, opts)
}
