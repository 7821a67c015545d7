package services

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/kb-engine/internal/core/domain"
	"github.com/custodia-labs/kb-engine/internal/core/ports/driven"
	"github.com/custodia-labs/kb-engine/internal/core/ports/driving"
)

// DefaultTopK is the result count when the caller does not set one.
const DefaultTopK = 5

// SearchService ranks a tenant's chunks by cosine similarity to a query
// embedding. The scan is brute force over the tenant's embedded chunks;
// candidate order from the store is stable, so equal scores keep a
// deterministic order across calls.
type SearchService struct {
	chunks   driven.ChunkStore
	embedder driven.Embedder
}

// NewSearchService creates a SearchService.
func NewSearchService(chunks driven.ChunkStore, embedder driven.Embedder) *SearchService {
	return &SearchService{
		chunks:   chunks,
		embedder: embedder,
	}
}

// Search embeds the query and returns the tenant's topK most similar
// chunks, best first. Chunks without embeddings never appear.
func (s *SearchService) Search(ctx context.Context, tenantID, query string, opts driving.SearchOptions) ([]domain.DocumentChunk, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := s.chunks.ListEmbedded(ctx, tenantID, opts.SourceType)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	type scored struct {
		chunk domain.DocumentChunk
		score float64
	}
	results := make([]scored, 0, len(candidates))
	for _, chunk := range candidates {
		results = append(results, scored{
			chunk: chunk,
			score: cosineSimilarity(queryVec, chunk.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	out := make([]domain.DocumentChunk, len(results))
	for i, r := range results {
		out[i] = r.chunk
	}
	return out, nil
}

// cosineSimilarity returns the cosine of the angle between two vectors.
// Mismatched lengths compare over the shorter prefix; a zero-norm
// vector scores 0.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
