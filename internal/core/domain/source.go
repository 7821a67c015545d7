package domain

import "time"

// SourceType identifies the connector backing a data source.
// The set is closed: registering a source with an unknown type fails fast
// rather than falling through to a stub connector.
type SourceType string

const (
	// SourceTypeDocument ingests uploaded files from the tenant's upload store.
	SourceTypeDocument SourceType = "document"
	// SourceTypeWebsite crawls a site breadth-first from a root URL.
	SourceTypeWebsite SourceType = "website"
	// SourceTypeDrive ingests files from a Google Drive folder.
	SourceTypeDrive SourceType = "drive"
	// SourceTypeDropbox ingests files from a Dropbox folder.
	SourceTypeDropbox SourceType = "dropbox"
	// SourceTypeNotion ingests pages from a Notion workspace.
	SourceTypeNotion SourceType = "notion"
	// SourceTypeGitHub ingests text files from a GitHub repository.
	SourceTypeGitHub SourceType = "github"
	// SourceTypeHighspot ingests items from a Highspot spot.
	SourceTypeHighspot SourceType = "highspot"
)

// Valid reports whether t is a known source type.
func (t SourceType) Valid() bool {
	switch t {
	case SourceTypeDocument, SourceTypeWebsite, SourceTypeDrive,
		SourceTypeDropbox, SourceTypeNotion, SourceTypeGitHub, SourceTypeHighspot:
		return true
	}
	return false
}

// SourceStatus is the lifecycle state of a data source.
type SourceStatus string

const (
	// StatusPending means the source is registered but has never synced.
	StatusPending SourceStatus = "pending"
	// StatusSyncing means a sync is currently in flight.
	StatusSyncing SourceStatus = "syncing"
	// StatusSynced means the last sync completed successfully.
	StatusSynced SourceStatus = "synced"
	// StatusError means the last sync failed.
	StatusError SourceStatus = "error"
)

// LastSyncedError is the label written to DataSource.LastSynced when a
// sync fails. It is the only user-facing error signal per source.
const LastSyncedError = "Failed to sync"

// DataSource is a tenant-owned connection to one content origin.
// Type is immutable after creation; Status is mutated only by the sync
// orchestrator.
type DataSource struct {
	// ID is the unique identifier within the tenant.
	ID string

	// TenantID is the owning tenant. Mandatory on every read and write.
	TenantID string

	// Type selects the connector. Immutable after creation.
	Type SourceType

	// Name is the human-readable name. For websites this is the root URL.
	Name string

	// Status is the sync lifecycle state.
	Status SourceStatus

	// LastSynced is a display label: a formatted timestamp after a
	// successful sync, or LastSyncedError after a failed one.
	LastSynced string

	// ItemCount is the number of resources processed by the last sync.
	ItemCount int

	// Config holds connector-specific settings.
	Config ConnectorConfig

	// CreatedAt is when the source was registered.
	CreatedAt time.Time

	// UpdatedAt is when the source was last modified.
	UpdatedAt time.Time
}

// ConnectorConfig carries per-connector settings. Only the fields relevant
// to the source's type are consulted; the rest are ignored.
type ConnectorConfig struct {
	// MaxDepth bounds link-following depth for website sources.
	MaxDepth int

	// MaxPages bounds total pages fetched for website sources.
	MaxPages int

	// ScopePath restricts crawling to URLs under this path prefix.
	ScopePath string

	// ExcludePaths skips URLs whose path starts with any of these prefixes.
	ExcludePaths []string

	// FilterKeywords prunes pages whose URL, title, and section contain
	// none of these keywords (case-insensitive substring match).
	FilterKeywords []string

	// UploadDir is the drop directory for document sources.
	UploadDir string

	// FolderID scopes Google Drive sources to one folder.
	FolderID string

	// Path scopes Dropbox sources to one folder path.
	Path string

	// RootPageID scopes Notion sources to one page subtree.
	RootPageID string

	// Owner and Repo identify the repository for GitHub sources.
	Owner string
	Repo  string

	// SpotID scopes Highspot sources to one spot.
	SpotID string

	// BaseURL overrides the platform API endpoint. Used by tests and
	// self-hosted deployments.
	BaseURL string
}

// SyncResult summarises a completed connector sync.
type SyncResult struct {
	// ItemsProcessed is the number of resources successfully ingested.
	ItemsProcessed int

	// Skipped is the number of resources skipped due to per-resource
	// fetch or parse failures.
	Skipped int
}
