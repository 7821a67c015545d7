// Package connectors provides the shared ingestion plumbing composed by
// every platform connector: full-replace chunk deletion, chunking,
// embedding/tagging, persistence, and per-resource failure isolation.
package connectors

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/kb-engine/internal/chunker"
	"github.com/custodia-labs/kb-engine/internal/core/domain"
	"github.com/custodia-labs/kb-engine/internal/core/ports/driven"
	"github.com/custodia-labs/kb-engine/internal/logger"
	"github.com/custodia-labs/kb-engine/internal/pipeline"
)

// Resource identifies one fetchable unit enumerated by a connector:
// a file, a page, a repository blob.
type Resource struct {
	// Ref is the connector-specific reference (file id, path, blob SHA).
	Ref string

	// Title is the display title, when the listing already knows it.
	Title string

	// URL is the origin location, when known.
	URL string

	// MIMEType is the content type, when the listing already knows it.
	MIMEType string
}

// Content is the parsed output of one resource, ready for chunking.
// Either Text or Blocks is set; Blocks takes precedence and goes through
// the semantic chunking policy.
type Content struct {
	// Title is the resolved document title.
	Title string

	// URL is the origin location.
	URL string

	// Section is an optional breadcrumb-derived label.
	Section string

	// Text is unstructured extracted text.
	Text string

	// Blocks is structured content for semantic chunking.
	Blocks []chunker.Block
}

// LoadFunc fetches and parses one resource. Errors are treated as
// per-resource failures: the resource is skipped and the sync continues.
type LoadFunc func(ctx context.Context, res Resource) (*Content, error)

// Ingestor turns parsed content into annotated, persisted chunks.
type Ingestor struct {
	chunks    driven.ChunkStore
	chunker   *chunker.Chunker
	annotator *pipeline.Annotator
}

// NewIngestor creates an Ingestor.
func NewIngestor(chunks driven.ChunkStore, ck *chunker.Chunker, annotator *pipeline.Annotator) *Ingestor {
	return &Ingestor{
		chunks:    chunks,
		chunker:   ck,
		annotator: annotator,
	}
}

// Replace deletes all chunks owned by the source. Every sync starts here:
// the chunk set is fully regenerated so it never accumulates stale
// content from a previous configuration.
func (in *Ingestor) Replace(ctx context.Context, source domain.DataSource) error {
	if err := in.chunks.DeleteBySource(ctx, source.TenantID, source.ID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

// Ingest chunks, annotates, and persists one resource's content for the
// source. Returns the number of chunks stored.
func (in *Ingestor) Ingest(ctx context.Context, source domain.DataSource, content *Content) (int, error) {
	var pieces []string
	if len(content.Blocks) > 0 {
		pieces = in.chunker.SemanticChunk(content.Blocks, content.Title)
	} else {
		pieces = in.chunker.Chunk(content.Text)
	}
	if len(pieces) == 0 {
		return 0, nil
	}

	batch := make([]domain.DocumentChunk, len(pieces))
	now := time.Now()
	for i, piece := range pieces {
		batch[i] = domain.DocumentChunk{
			ID:       uuid.New().String(),
			TenantID: source.TenantID,
			SourceID: source.ID,
			Title:    content.Title,
			Content:  piece,
			Metadata: domain.ChunkMetadata{
				SourceType: source.Type,
				URL:        content.URL,
				Section:    content.Section,
				Position:   i,
			},
			CreatedAt: now,
		}
	}

	in.annotator.Annotate(ctx, batch)

	if err := in.chunks.SaveChunks(ctx, batch); err != nil {
		return 0, fmt.Errorf("save chunks: %w", err)
	}
	return len(batch), nil
}

// SyncResources runs the standard connector sync loop: full-replace
// delete, then fetch/parse/ingest each resource with per-resource
// failure isolation. One bad resource is logged and skipped; it never
// aborts the sync.
func (in *Ingestor) SyncResources(
	ctx context.Context,
	source domain.DataSource,
	resources []Resource,
	load LoadFunc,
) (*domain.SyncResult, error) {
	if err := in.Replace(ctx, source); err != nil {
		return nil, err
	}

	result := &domain.SyncResult{}
	for _, res := range resources {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		content, err := load(ctx, res)
		if err != nil {
			logger.Warn("skipping resource %s for source %s: %v", res.Ref, source.ID, err)
			result.Skipped++
			continue
		}
		if content == nil {
			result.Skipped++
			continue
		}
		if content.Title == "" {
			content.Title = res.Title
		}
		if content.URL == "" {
			content.URL = res.URL
		}

		if _, err := in.Ingest(ctx, source, content); err != nil {
			return nil, fmt.Errorf("ingest %s: %w", res.Ref, err)
		}
		result.ItemsProcessed++
	}
	return result, nil
}
