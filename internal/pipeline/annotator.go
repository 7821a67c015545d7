// Package pipeline annotates chunk batches with embeddings and tags.
package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/kb-engine/internal/core/domain"
	"github.com/custodia-labs/kb-engine/internal/core/ports/driven"
	"github.com/custodia-labs/kb-engine/internal/logger"
)

// DefaultConcurrency bounds how many chunks are annotated at once.
const DefaultConcurrency = 8

// Annotator runs the embedding and tagging services over a chunk batch.
// Chunks are processed concurrently so batch latency is bounded by the
// slowest chunk, not the sum. Per-chunk failures degrade to an empty
// embedding or tag set; a chunk without an embedding is excluded from
// search but still stored for audit.
type Annotator struct {
	embedder    driven.Embedder
	tagger      driven.Tagger
	concurrency int
}

// Option configures an Annotator.
type Option func(*Annotator)

// WithConcurrency sets the annotation concurrency bound.
func WithConcurrency(n int) Option {
	return func(a *Annotator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// New creates an Annotator. The tagger may be nil, in which case chunks
// get no tags.
func New(embedder driven.Embedder, tagger driven.Tagger, opts ...Option) *Annotator {
	a := &Annotator{
		embedder:    embedder,
		tagger:      tagger,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Annotate fills Embedding and Tags for every chunk in place and returns
// when the whole batch is done. It never fails the batch: embedding or
// tagging errors leave the corresponding field empty.
func (a *Annotator) Annotate(ctx context.Context, chunks []domain.DocumentChunk) {
	g := &errgroup.Group{}
	g.SetLimit(a.concurrency)

	for i := range chunks {
		g.Go(func() error {
			a.annotateOne(ctx, &chunks[i])
			return nil
		})
	}
	// Workers never return errors; failures degrade per chunk.
	_ = g.Wait()
}

func (a *Annotator) annotateOne(ctx context.Context, chunk *domain.DocumentChunk) {
	embedding, err := a.embedder.Embed(ctx, chunk.Content)
	if err != nil {
		logger.Warn("embedding failed for chunk %s: %v", chunk.ID, err)
		embedding = nil
	}
	chunk.Embedding = embedding

	if a.tagger == nil {
		return
	}
	tags, err := a.tagger.Tag(ctx, chunk.Content)
	if err != nil {
		logger.Debug("tagging failed for chunk %s: %v", chunk.ID, err)
		tags = nil
	}
	chunk.Tags = tags
}
