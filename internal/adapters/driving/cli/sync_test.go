package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kb-engine/internal/core/domain"
)

func TestSyncCmd_Use(t *testing.T) {
	assert.Equal(t, "sync [source-id]", syncCmd.Use)
}

func TestSyncCmd_QueuesSync(t *testing.T) {
	mock, cleanup := setupTestServices()
	defer cleanup()

	buf, err := execute("sync", "src-1")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Sync queued for source: src-1")
	assert.Equal(t, []string{"src-1"}, mock.syncedIDs)
}

func TestSyncCmd_WaitReportsCompletion(t *testing.T) {
	mock, cleanup := setupTestServices()
	defer cleanup()
	mock.sources[0].Status = domain.StatusSynced
	mock.sources[0].ItemCount = 12

	buf, err := execute("sync", "src-1", "--wait")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Synced 12 items.")
}

func TestSyncCmd_WaitReportsFailure(t *testing.T) {
	mock, cleanup := setupTestServices()
	defer cleanup()
	mock.sources[0].Status = domain.StatusError

	_, err := execute("sync", "src-1", "--wait")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync failed for source src-1")
}

func TestSyncCmd_ServiceError(t *testing.T) {
	mock, cleanup := setupTestServices()
	defer cleanup()
	mock.err = assert.AnError

	_, err := execute("sync", "src-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync failed")
}

func TestLogsCmd_PrintsHistory(t *testing.T) {
	mock, cleanup := setupTestServices()
	defer cleanup()
	mock.logEntries = []domain.SyncLog{
		{
			ID:        "l1",
			Status:    domain.SyncLogInProgress,
			Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:             "l2",
			Status:         domain.SyncLogSuccess,
			Timestamp:      time.Date(2026, 3, 1, 10, 1, 0, 0, time.UTC),
			ItemsProcessed: 12,
		},
	}

	buf, err := execute("logs", "src-1")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Sync history for src-1:")
	assert.Contains(t, buf.String(), string(domain.SyncLogInProgress))
	assert.Contains(t, buf.String(), "12 items")
}

func TestLogsCmd_Empty(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	buf, err := execute("logs", "src-1")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No sync history.")
}

func TestAuthSetCmd_StoresCredentials(t *testing.T) {
	mock, cleanup := setupTestServices()
	defer cleanup()

	buf, err := execute("auth", "set", "src-1", "--token", "secret", "--scope", "repo")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Credentials stored for source: src-1")
	require.Contains(t, mock.credsBySrc, "src-1")
	assert.Equal(t, "secret", mock.credsBySrc["src-1"].AccessToken)
	assert.Equal(t, "repo", mock.credsBySrc["src-1"].Scope)
}

func TestAuthSetCmd_RequiresToken(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("auth", "set", "src-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--token is required")
}
