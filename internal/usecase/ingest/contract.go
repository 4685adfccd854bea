package ingest

import (
	"context"

	"github.com/kailas-cloud/lexivec/internal/domain"
	dombatch "github.com/kailas-cloud/lexivec/internal/domain/batch"
	domdoc "github.com/kailas-cloud/lexivec/internal/domain/document"
)

// TextIndexer commits and removes per-field postings.
type TextIndexer interface {
	Index(docID string, fieldTexts map[string]string) error
	Delete(docID string) error
}

// VectorIndexer commits and removes document embeddings.
type VectorIndexer interface {
	Upsert(docID string, embedding []float32) error
	Delete(docID string) error
}

// DocumentStore persists documents durably.
type DocumentStore interface {
	Upsert(ctx context.Context, doc *domdoc.Document) (created bool, err error)
	Get(ctx context.Context, id string) (domdoc.Document, error)
	Delete(ctx context.Context, id string) error
}

// JobStore persists batch job state.
type JobStore interface {
	Save(ctx context.Context, job dombatch.Job) error
	Get(ctx context.Context, id string) (dombatch.Job, error)
}

// Embedder vectorizes document content into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
