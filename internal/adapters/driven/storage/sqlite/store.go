// Package sqlite provides persistent storage backed by SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation
// that requires no cgo. All tables carry a tenant_id column and every
// query is scoped by it.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/kb-engine/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/kb-engine/internal/core/domain"
	"github.com/custodia-labs/kb-engine/internal/core/ports/driven"
)

// Store is a unified SQLite-backed storage that exposes the individual
// store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a SQLite store in the given data directory. An empty
// dataDir defaults to ~/.kbengine/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".kbengine", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "knowledge.db")

	// WAL mode keeps readers unblocked while syncs write.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SourceStore returns a SourceStore backed by this store.
func (s *Store) SourceStore() driven.SourceStore {
	return &sourceStore{store: s}
}

// ChunkStore returns a ChunkStore backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// SyncLogStore returns a SyncLogStore backed by this store.
func (s *Store) SyncLogStore() driven.SyncLogStore {
	return &syncLogStore{store: s}
}

// CredentialStore returns a CredentialStore backed by this store.
func (s *Store) CredentialStore() driven.CredentialStore {
	return &credentialStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// ==================== Source Store ====================

type sourceStore struct {
	store *Store
}

var _ driven.SourceStore = (*sourceStore)(nil)

func (s *sourceStore) Save(ctx context.Context, source domain.DataSource) error {
	if source.TenantID == "" {
		return domain.ErrTenantRequired
	}

	configJSON, err := json.Marshal(source.Config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	now := time.Now().UTC()
	if source.CreatedAt.IsZero() {
		source.CreatedAt = now
	}
	if source.UpdatedAt.IsZero() {
		source.UpdatedAt = now
	}
	if source.Status == "" {
		source.Status = domain.StatusPending
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO sources (id, tenant_id, type, name, status, last_synced, item_count, config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			last_synced = excluded.last_synced,
			item_count = excluded.item_count,
			config = excluded.config,
			updated_at = excluded.updated_at
	`, source.ID, source.TenantID, source.Type, source.Name, source.Status,
		source.LastSynced, source.ItemCount, string(configJSON),
		source.CreatedAt, source.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving source: %w", err)
	}
	return nil
}

func (s *sourceStore) Get(ctx context.Context, tenantID, id string) (*domain.DataSource, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, type, name, status, last_synced, item_count, config, created_at, updated_at
		FROM sources WHERE tenant_id = ? AND id = ?
	`, tenantID, id)
	return scanSource(row)
}

func (s *sourceStore) List(ctx context.Context, tenantID string) ([]domain.DataSource, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, tenant_id, type, name, status, last_synced, item_count, config, created_at, updated_at
		FROM sources WHERE tenant_id = ? ORDER BY rowid
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.DataSource
	for rows.Next() {
		var source domain.DataSource
		var configJSON string
		if err := rows.Scan(&source.ID, &source.TenantID, &source.Type, &source.Name,
			&source.Status, &source.LastSynced, &source.ItemCount, &configJSON,
			&source.CreatedAt, &source.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		if err := json.Unmarshal([]byte(configJSON), &source.Config); err != nil {
			return nil, fmt.Errorf("unmarshalling config: %w", err)
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

func (s *sourceStore) Delete(ctx context.Context, tenantID, id string) error {
	if tenantID == "" {
		return domain.ErrTenantRequired
	}
	result, err := s.store.db.ExecContext(ctx,
		"DELETE FROM sources WHERE tenant_id = ? AND id = ?", tenantID, id)
	if err != nil {
		return fmt.Errorf("deleting source: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting source: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanSource(row *sql.Row) (*domain.DataSource, error) {
	var source domain.DataSource
	var configJSON string
	if err := row.Scan(&source.ID, &source.TenantID, &source.Type, &source.Name,
		&source.Status, &source.LastSynced, &source.ItemCount, &configJSON,
		&source.CreatedAt, &source.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning source: %w", err)
	}
	if err := json.Unmarshal([]byte(configJSON), &source.Config); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &source, nil
}

// ==================== Chunk Store ====================

type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

func (s *chunkStore) SaveChunks(ctx context.Context, chunks []domain.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for i := range chunks {
		if chunks[i].TenantID == "" {
			return domain.ErrTenantRequired
		}
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, tenant_id, source_id, title, content, embedding, tags, source_type, url, section, position, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i := range chunks {
		c := &chunks[i]
		tagsJSON, err := json.Marshal(c.Tags)
		if err != nil {
			return fmt.Errorf("marshalling tags: %w", err)
		}
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.TenantID, c.SourceID, c.Title, c.Content,
			float32SliceToBytes(c.Embedding), string(tagsJSON),
			c.Metadata.SourceType, c.Metadata.URL, c.Metadata.Section, c.Metadata.Position,
			createdAt); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

func (s *chunkStore) ListBySource(ctx context.Context, tenantID, sourceID string) ([]domain.DocumentChunk, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	return s.query(ctx, `
		SELECT id, tenant_id, source_id, title, content, embedding, tags, source_type, url, section, position, created_at
		FROM chunks WHERE tenant_id = ? AND source_id = ? ORDER BY rowid
	`, tenantID, sourceID)
}

func (s *chunkStore) ListEmbedded(ctx context.Context, tenantID string, typeFilter domain.SourceType) ([]domain.DocumentChunk, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	if typeFilter != "" {
		return s.query(ctx, `
			SELECT id, tenant_id, source_id, title, content, embedding, tags, source_type, url, section, position, created_at
			FROM chunks
			WHERE tenant_id = ? AND source_type = ? AND embedding IS NOT NULL AND length(embedding) > 0
			ORDER BY rowid
		`, tenantID, typeFilter)
	}
	return s.query(ctx, `
		SELECT id, tenant_id, source_id, title, content, embedding, tags, source_type, url, section, position, created_at
		FROM chunks
		WHERE tenant_id = ? AND embedding IS NOT NULL AND length(embedding) > 0
		ORDER BY rowid
	`, tenantID)
}

func (s *chunkStore) DeleteBySource(ctx context.Context, tenantID, sourceID string) error {
	if tenantID == "" {
		return domain.ErrTenantRequired
	}
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM chunks WHERE tenant_id = ? AND source_id = ?", tenantID, sourceID)
	if err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

func (s *chunkStore) CountBySource(ctx context.Context, tenantID, sourceID string) (int, error) {
	if tenantID == "" {
		return 0, domain.ErrTenantRequired
	}
	var count int
	row := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE tenant_id = ? AND source_id = ?", tenantID, sourceID)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

func (s *chunkStore) query(ctx context.Context, query string, args ...any) ([]domain.DocumentChunk, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.DocumentChunk
	for rows.Next() {
		var c domain.DocumentChunk
		var embedding []byte
		var tagsJSON string
		if err := rows.Scan(&c.ID, &c.TenantID, &c.SourceID, &c.Title, &c.Content,
			&embedding, &tagsJSON, &c.Metadata.SourceType, &c.Metadata.URL,
			&c.Metadata.Section, &c.Metadata.Position, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		c.Embedding = bytesToFloat32Slice(embedding)
		if err := json.Unmarshal([]byte(tagsJSON), &c.Tags); err != nil {
			return nil, fmt.Errorf("unmarshalling tags: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// ==================== Sync Log Store ====================

type syncLogStore struct {
	store *Store
}

var _ driven.SyncLogStore = (*syncLogStore)(nil)

func (s *syncLogStore) Append(ctx context.Context, entry domain.SyncLog) error {
	if entry.TenantID == "" {
		return domain.ErrTenantRequired
	}
	timestamp := entry.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_logs (id, tenant_id, source_id, timestamp, status, message, items_processed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.TenantID, entry.SourceID, timestamp, entry.Status, entry.Message, entry.ItemsProcessed)
	if err != nil {
		return fmt.Errorf("appending sync log: %w", err)
	}
	return nil
}

func (s *syncLogStore) ListBySource(ctx context.Context, tenantID, sourceID string) ([]domain.SyncLog, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, tenant_id, source_id, timestamp, status, message, items_processed
		FROM sync_logs WHERE tenant_id = ? AND source_id = ? ORDER BY rowid
	`, tenantID, sourceID)
	if err != nil {
		return nil, fmt.Errorf("listing sync logs: %w", err)
	}
	defer rows.Close()

	var entries []domain.SyncLog
	for rows.Next() {
		var entry domain.SyncLog
		if err := rows.Scan(&entry.ID, &entry.TenantID, &entry.SourceID, &entry.Timestamp,
			&entry.Status, &entry.Message, &entry.ItemsProcessed); err != nil {
			return nil, fmt.Errorf("scanning sync log: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *syncLogStore) DeleteBySource(ctx context.Context, tenantID, sourceID string) error {
	if tenantID == "" {
		return domain.ErrTenantRequired
	}
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM sync_logs WHERE tenant_id = ? AND source_id = ?", tenantID, sourceID)
	if err != nil {
		return fmt.Errorf("deleting sync logs: %w", err)
	}
	return nil
}

// ==================== Credential Store ====================

type credentialStore struct {
	store *Store
}

var _ driven.CredentialStore = (*credentialStore)(nil)

func (s *credentialStore) Save(ctx context.Context, tenantID, sourceID string, creds domain.Credentials) error {
	if tenantID == "" {
		return domain.ErrTenantRequired
	}
	var expiry any
	if !creds.Expiry.IsZero() {
		expiry = creds.Expiry
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO credentials (tenant_id, source_id, access_token, refresh_token, scope, expiry)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, source_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			scope = excluded.scope,
			expiry = excluded.expiry
	`, tenantID, sourceID, creds.AccessToken, creds.RefreshToken, creds.Scope, expiry)
	if err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	return nil
}

func (s *credentialStore) Get(ctx context.Context, tenantID, sourceID string) (*domain.Credentials, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	row := s.store.db.QueryRowContext(ctx, `
		SELECT access_token, refresh_token, scope, expiry
		FROM credentials WHERE tenant_id = ? AND source_id = ?
	`, tenantID, sourceID)

	var creds domain.Credentials
	var expiry sql.NullTime
	if err := row.Scan(&creds.AccessToken, &creds.RefreshToken, &creds.Scope, &expiry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning credentials: %w", err)
	}
	if expiry.Valid {
		creds.Expiry = expiry.Time
	}
	return &creds, nil
}

func (s *credentialStore) Delete(ctx context.Context, tenantID, sourceID string) error {
	if tenantID == "" {
		return domain.ErrTenantRequired
	}
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM credentials WHERE tenant_id = ? AND source_id = ?", tenantID, sourceID)
	if err != nil {
		return fmt.Errorf("deleting credentials: %w", err)
	}
	return nil
}

// ==================== Embedding encoding ====================

// float32SliceToBytes packs a vector as little-endian float32 bits.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
