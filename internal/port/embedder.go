package port

import (
	"context"

	"newsrag/internal/domain"
)

// Embedder generates vector embeddings for text using a remote model.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// EmbeddingProvider turns a single text into an embedding, degrading to a
// local approximation when the remote model is unavailable.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) (domain.Embedding, error)
}

// VectorIndex stores articles and searches them by cosine similarity.
type VectorIndex interface {
	Upsert(ctx context.Context, article domain.Article) error

	// Search returns up to k articles whose similarity to query is strictly
	// greater than threshold, best first.
	Search(ctx context.Context, query []float32, k int, threshold float64) ([]domain.ScoredArticle, error)

	Reload(ctx context.Context) error

	Stats(ctx context.Context) (domain.IndexStats, error)

	Clear(ctx context.Context) error

	Len() int
}
