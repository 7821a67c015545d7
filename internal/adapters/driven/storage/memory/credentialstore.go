package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/kb-engine/internal/core/domain"
	"github.com/custodia-labs/kb-engine/internal/core/ports/driven"
)

// Ensure CredentialStore implements the interface.
var _ driven.CredentialStore = (*CredentialStore)(nil)

type credentialKey struct {
	tenantID string
	sourceID string
}

// CredentialStore is an in-memory implementation of driven.CredentialStore.
type CredentialStore struct {
	mu    sync.RWMutex
	creds map[credentialKey]domain.Credentials
}

// NewCredentialStore creates a new in-memory credential store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		creds: make(map[credentialKey]domain.Credentials),
	}
}

// Save stores or replaces credentials for a source.
func (s *CredentialStore) Save(_ context.Context, tenantID, sourceID string, creds domain.Credentials) error {
	if tenantID == "" {
		return domain.ErrTenantRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[credentialKey{tenantID, sourceID}] = creds
	return nil
}

// Get retrieves credentials for a source.
func (s *CredentialStore) Get(_ context.Context, tenantID, sourceID string) (*domain.Credentials, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	creds, ok := s.creds[credentialKey{tenantID, sourceID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &creds, nil
}

// Delete removes credentials for a source.
func (s *CredentialStore) Delete(_ context.Context, tenantID, sourceID string) error {
	if tenantID == "" {
		return domain.ErrTenantRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds, credentialKey{tenantID, sourceID})
	return nil
}
