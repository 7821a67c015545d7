// Package memory provides in-memory store implementations, partitioned by
// tenant id. Used for tests and single-process deployments.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/kb-engine/internal/core/domain"
	"github.com/custodia-labs/kb-engine/internal/core/ports/driven"
)

// Ensure SourceStore implements the interface.
var _ driven.SourceStore = (*SourceStore)(nil)

// SourceStore is an in-memory implementation of driven.SourceStore.
type SourceStore struct {
	mu      sync.RWMutex
	sources map[string]map[string]domain.DataSource // tenantID -> id -> source
	order   map[string][]string                     // tenantID -> insertion order
}

// NewSourceStore creates a new in-memory source store.
func NewSourceStore() *SourceStore {
	return &SourceStore{
		sources: make(map[string]map[string]domain.DataSource),
		order:   make(map[string][]string),
	}
}

// Save stores or updates a source.
func (s *SourceStore) Save(_ context.Context, source domain.DataSource) error {
	if source.TenantID == "" {
		return domain.ErrTenantRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tenant, ok := s.sources[source.TenantID]
	if !ok {
		tenant = make(map[string]domain.DataSource)
		s.sources[source.TenantID] = tenant
	}
	if _, exists := tenant[source.ID]; !exists {
		s.order[source.TenantID] = append(s.order[source.TenantID], source.ID)
	}
	tenant[source.ID] = source
	return nil
}

// Get retrieves a source by id within a tenant.
func (s *SourceStore) Get(_ context.Context, tenantID, id string) (*domain.DataSource, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	source, ok := s.sources[tenantID][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &source, nil
}

// List returns all sources for a tenant in insertion order.
func (s *SourceStore) List(_ context.Context, tenantID string) ([]domain.DataSource, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.order[tenantID]
	result := make([]domain.DataSource, 0, len(ids))
	for _, id := range ids {
		if source, ok := s.sources[tenantID][id]; ok {
			result = append(result, source)
		}
	}
	return result, nil
}

// Delete removes a source.
func (s *SourceStore) Delete(_ context.Context, tenantID, id string) error {
	if tenantID == "" {
		return domain.ErrTenantRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sources[tenantID][id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.sources[tenantID], id)

	ids := s.order[tenantID]
	for i, existing := range ids {
		if existing == id {
			s.order[tenantID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}
