package domain

import "time"

// DocumentChunk is the unit of embedding and retrieval: a bounded slice of
// extracted text owned by exactly one data source within one tenant.
type DocumentChunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// TenantID is the owning tenant.
	TenantID string

	// SourceID links to the DataSource that produced this chunk.
	SourceID string

	// Title is the source document or page title.
	Title string

	// Content is the chunk text. Length is bounded by the chunking policy.
	Content string

	// Embedding is the vector representation. Empty when embedding failed;
	// such chunks are excluded from search but kept for audit.
	Embedding []float32

	// Tags are topical labels. Empty when tagging failed.
	Tags []string

	// Metadata describes where the chunk came from.
	Metadata ChunkMetadata

	// CreatedAt is when the chunk was ingested.
	CreatedAt time.Time
}

// ChunkMetadata carries provenance for a chunk.
type ChunkMetadata struct {
	// SourceType is the type of the owning source.
	SourceType SourceType

	// URL is the origin page or file location, when known.
	URL string

	// Section is a breadcrumb-derived label for crawled pages.
	Section string

	// Position is the ordinal position within the source resource.
	Position int
}

// Searchable reports whether the chunk can participate in similarity
// search. Chunks without an embedding are stored but never returned.
func (c *DocumentChunk) Searchable() bool {
	return len(c.Embedding) > 0
}
