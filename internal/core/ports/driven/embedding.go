package driven

import "context"

// Embedder generates vector embeddings from text. Query and ingestion
// embeddings must come from the same model so the vector spaces match.
type Embedder interface {
	// Embed generates a fixed-length vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size (e.g. 768).
	Dimensions() int
}

// Tagger extracts topical tags from text.
type Tagger interface {
	// Tag returns a set of topical labels for the given text.
	Tag(ctx context.Context, text string) ([]string, error)
}
