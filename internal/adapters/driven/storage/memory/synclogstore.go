package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/kb-engine/internal/core/domain"
	"github.com/custodia-labs/kb-engine/internal/core/ports/driven"
)

// Ensure SyncLogStore implements the interface.
var _ driven.SyncLogStore = (*SyncLogStore)(nil)

// SyncLogStore is an in-memory implementation of driven.SyncLogStore.
type SyncLogStore struct {
	mu   sync.RWMutex
	logs map[string][]domain.SyncLog // tenantID -> entries, oldest first
}

// NewSyncLogStore creates a new in-memory sync log store.
func NewSyncLogStore() *SyncLogStore {
	return &SyncLogStore{
		logs: make(map[string][]domain.SyncLog),
	}
}

// Append adds a log entry.
func (s *SyncLogStore) Append(_ context.Context, entry domain.SyncLog) error {
	if entry.TenantID == "" {
		return domain.ErrTenantRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[entry.TenantID] = append(s.logs[entry.TenantID], entry)
	return nil
}

// ListBySource returns log entries for a source, oldest first.
func (s *SyncLogStore) ListBySource(_ context.Context, tenantID, sourceID string) ([]domain.SyncLog, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.SyncLog
	for _, entry := range s.logs[tenantID] {
		if entry.SourceID == sourceID {
			result = append(result, entry)
		}
	}
	return result, nil
}

// DeleteBySource removes log entries for a source.
func (s *SyncLogStore) DeleteBySource(_ context.Context, tenantID, sourceID string) error {
	if tenantID == "" {
		return domain.ErrTenantRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.logs[tenantID][:0]
	for _, entry := range s.logs[tenantID] {
		if entry.SourceID != sourceID {
			kept = append(kept, entry)
		}
	}
	s.logs[tenantID] = kept
	return nil
}
