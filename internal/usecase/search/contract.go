package search

import (
	"context"

	"github.com/kailas-cloud/lexivec/internal/domain"
	domdoc "github.com/kailas-cloud/lexivec/internal/domain/document"
	"github.com/kailas-cloud/lexivec/internal/domain/query"
	"github.com/kailas-cloud/lexivec/internal/index/text"
	"github.com/kailas-cloud/lexivec/internal/index/vector"
)

// TextSearcher scores documents against parsed query tokens.
type TextSearcher interface {
	Search(tokens []query.Token, fieldWeights map[string]float64, limit int) ([]text.Hit, error)
}

// VectorSearcher ranks documents by cosine similarity to a query vector.
type VectorSearcher interface {
	Search(queryEmbedding []float32, limit int, threshold float64) ([]vector.Hit, error)
}

// DocumentReader fetches stored documents for result assembly.
type DocumentReader interface {
	Get(ctx context.Context, id string) (domdoc.Document, error)
	GetMany(ctx context.Context, ids []string) ([]domdoc.Document, error)
}

// Embedder vectorizes query text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
