// Package vector implements the semantic half of the engine: an in-memory
// embedding store queried by brute-force cosine similarity. The contract
// fixes the scoring function and ordering, not the scan strategy, so an ANN
// structure could replace the scan without touching callers.
package vector

import (
	"math"
	"sort"
	"sync"

	"github.com/kailas-cloud/lexivec/internal/domain"
)

// Hit is one vector search candidate.
type Hit struct {
	DocID      string
	Similarity float64
}

// Index stores one embedding per document, all of a fixed dimension. A
// reader/writer lock gives readers a consistent snapshot while writers
// serialize; a failed upsert never disturbs other documents.
type Index struct {
	mu      sync.RWMutex
	dim     int
	vectors map[string][]float32
}

// NewIndex creates an empty vector index for embeddings of the given
// dimension.
func NewIndex(dim int) *Index {
	return &Index{
		dim:     dim,
		vectors: make(map[string][]float32),
	}
}

// Dim returns the configured embedding dimension.
func (ix *Index) Dim() int { return ix.dim }

// Upsert stores the document's embedding, replacing any previous one. A
// wrong-dimension embedding fails only this document; the index stays usable
// for all others.
func (ix *Index) Upsert(docID string, embedding []float32) error {
	if len(embedding) != ix.dim {
		return domain.NewDimensionMismatch(len(embedding), ix.dim)
	}

	stored := make([]float32, len(embedding))
	copy(stored, embedding)

	ix.mu.Lock()
	ix.vectors[docID] = stored
	ix.mu.Unlock()
	return nil
}

// Delete removes the document's embedding. Deleting an unknown id is a
// no-op, not an error.
func (ix *Index) Delete(docID string) error {
	ix.mu.Lock()
	delete(ix.vectors, docID)
	ix.mu.Unlock()
	return nil
}

// DocCount returns the number of stored embeddings.
func (ix *Index) DocCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.vectors)
}

// Search scans all embeddings and returns up to limit candidates with
// cosine similarity >= threshold, ordered by similarity descending (ties
// broken by doc id for determinism).
func (ix *Index) Search(queryEmbedding []float32, limit int, threshold float64) ([]Hit, error) {
	if len(queryEmbedding) != ix.dim {
		return nil, domain.NewDimensionMismatch(len(queryEmbedding), ix.dim)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	hits := make([]Hit, 0, len(ix.vectors))
	for docID, vec := range ix.vectors {
		sim := Cosine(queryEmbedding, vec)
		if sim < threshold {
			continue
		}
		hits = append(hits, Hit{DocID: docID, Similarity: sim})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].DocID < hits[j].DocID
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	return hits, nil
}

// Cosine computes cosine similarity dot(a,b)/(|a|*|b|), defined as 0 when
// either norm is zero, with negative similarities clamped to 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	return sim
}
