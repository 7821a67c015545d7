package cli

import (
	"context"
	"time"

	"github.com/custodia-labs/kb-engine/internal/core/domain"
	"github.com/custodia-labs/kb-engine/internal/core/ports/driving"
	"github.com/custodia-labs/kb-engine/internal/core/services"
)

// mockKnowledgeService is a configurable driving.KnowledgeService for
// command tests.
type mockKnowledgeService struct {
	sources    []domain.DataSource
	logEntries []domain.SyncLog
	chunks     []domain.DocumentChunk
	err        error

	registered    []domain.DataSource
	syncedIDs     []string
	removedIDs    []string
	credsBySrc    map[string]domain.Credentials
	searchQuery   string
	searchOpts    driving.SearchOptions
	listTenant    string
	updatedName   string
	updatedConfig domain.ConnectorConfig
}

var _ driving.KnowledgeService = (*mockKnowledgeService)(nil)

func (m *mockKnowledgeService) RegisterSource(_ context.Context, tenantID string, sourceType domain.SourceType, name string, config domain.ConnectorConfig) (*domain.DataSource, error) {
	if m.err != nil {
		return nil, m.err
	}
	source := domain.DataSource{
		ID:       "src-new",
		TenantID: tenantID,
		Type:     sourceType,
		Name:     name,
		Status:   domain.StatusPending,
		Config:   config,
	}
	m.registered = append(m.registered, source)
	return &source, nil
}

func (m *mockKnowledgeService) StartSync(_ context.Context, _, sourceID string) error {
	if m.err != nil {
		return m.err
	}
	m.syncedIDs = append(m.syncedIDs, sourceID)
	return nil
}

func (m *mockKnowledgeService) GetSource(_ context.Context, _, sourceID string) (*domain.DataSource, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.sources {
		if m.sources[i].ID == sourceID {
			return &m.sources[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockKnowledgeService) ListSources(_ context.Context, tenantID string) ([]domain.DataSource, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.listTenant = tenantID
	return m.sources, nil
}

func (m *mockKnowledgeService) UpdateSource(_ context.Context, _, _, name string, config domain.ConnectorConfig) error {
	if m.err != nil {
		return m.err
	}
	m.updatedName = name
	m.updatedConfig = config
	return nil
}

func (m *mockKnowledgeService) DeleteSource(_ context.Context, _, sourceID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	for i := range m.sources {
		if m.sources[i].ID == sourceID {
			m.removedIDs = append(m.removedIDs, sourceID)
			return true, nil
		}
	}
	return false, nil
}

func (m *mockKnowledgeService) SetCredentials(_ context.Context, _, sourceID string, creds domain.Credentials) error {
	if m.err != nil {
		return m.err
	}
	if m.credsBySrc == nil {
		m.credsBySrc = make(map[string]domain.Credentials)
	}
	m.credsBySrc[sourceID] = creds
	return nil
}

func (m *mockKnowledgeService) SyncLogs(_ context.Context, _, _ string) ([]domain.SyncLog, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.logEntries, nil
}

func (m *mockKnowledgeService) Search(_ context.Context, _, query string, opts driving.SearchOptions) ([]domain.DocumentChunk, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.searchQuery = query
	m.searchOpts = opts
	return m.chunks, nil
}

// setupTestServices installs a mock knowledge service and an empty
// registry, returning a cleanup that restores the previous wiring.
func setupTestServices() (*mockKnowledgeService, func()) {
	oldService := knowledgeService
	oldRegistry := connectorRegistry

	mock := &mockKnowledgeService{
		sources: []domain.DataSource{
			{
				ID:         "src-1",
				TenantID:   DefaultTenant,
				Type:       domain.SourceTypeWebsite,
				Name:       "https://docs.example.com",
				Status:     domain.StatusSynced,
				LastSynced: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC).Format("2006-01-02 15:04:05"),
				ItemCount:  12,
			},
		},
	}
	knowledgeService = mock
	connectorRegistry = services.NewConnectorRegistry()

	return mock, func() {
		knowledgeService = oldService
		connectorRegistry = oldRegistry
	}
}
