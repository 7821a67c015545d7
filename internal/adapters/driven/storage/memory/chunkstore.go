package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/kb-engine/internal/core/domain"
	"github.com/custodia-labs/kb-engine/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
// Chunks are kept per tenant in insertion order, which gives search a
// stable tie-breaking order.
type ChunkStore struct {
	mu     sync.RWMutex
	chunks map[string][]domain.DocumentChunk // tenantID -> chunks
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		chunks: make(map[string][]domain.DocumentChunk),
	}
}

// SaveChunks stores a batch of chunks.
func (s *ChunkStore) SaveChunks(_ context.Context, chunks []domain.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for i := range chunks {
		if chunks[i].TenantID == "" {
			return domain.ErrTenantRequired
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range chunks {
		s.chunks[chunks[i].TenantID] = append(s.chunks[chunks[i].TenantID], chunks[i])
	}
	return nil
}

// ListBySource returns all chunks owned by a source.
func (s *ChunkStore) ListBySource(_ context.Context, tenantID, sourceID string) ([]domain.DocumentChunk, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.DocumentChunk
	for _, chunk := range s.chunks[tenantID] {
		if chunk.SourceID == sourceID {
			result = append(result, chunk)
		}
	}
	return result, nil
}

// ListEmbedded returns the tenant's searchable chunks in insertion order,
// optionally filtered by source type.
func (s *ChunkStore) ListEmbedded(_ context.Context, tenantID string, typeFilter domain.SourceType) ([]domain.DocumentChunk, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.DocumentChunk
	for i := range s.chunks[tenantID] {
		chunk := s.chunks[tenantID][i]
		if !chunk.Searchable() {
			continue
		}
		if typeFilter != "" && chunk.Metadata.SourceType != typeFilter {
			continue
		}
		result = append(result, chunk)
	}
	return result, nil
}

// DeleteBySource removes all chunks owned by a source.
func (s *ChunkStore) DeleteBySource(_ context.Context, tenantID, sourceID string) error {
	if tenantID == "" {
		return domain.ErrTenantRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.chunks[tenantID][:0]
	for _, chunk := range s.chunks[tenantID] {
		if chunk.SourceID != sourceID {
			kept = append(kept, chunk)
		}
	}
	s.chunks[tenantID] = kept
	return nil
}

// CountBySource returns the number of chunks owned by a source.
func (s *ChunkStore) CountBySource(_ context.Context, tenantID, sourceID string) (int, error) {
	if tenantID == "" {
		return 0, domain.ErrTenantRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, chunk := range s.chunks[tenantID] {
		if chunk.SourceID == sourceID {
			count++
		}
	}
	return count, nil
}
