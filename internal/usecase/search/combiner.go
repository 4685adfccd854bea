package search

import (
	"sort"
	"time"

	"github.com/kailas-cloud/lexivec/internal/index/text"
	"github.com/kailas-cloud/lexivec/internal/index/vector"
)

// Weights configures the linear blend of the two normalized score dimensions.
type Weights struct {
	Vector float64
	Text   float64
}

// Scored is a fused candidate carrying both raw-normalized sub-scores and the
// final blended score. Produced per request, never persisted.
type Scored struct {
	DocID       string
	TextScore   float64
	VectorScore float64
	Final       float64
}

// combine merges lexical and vector candidate sets into one deterministic
// ranking. Each dimension is normalized to [0,1] by its own observed maximum
// before weighting: BM25 scores and cosine similarities live on incomparable
// scales, and merging them raw would let whichever index produces larger
// numbers dominate regardless of the configured weights.
//
// A document present in only one set receives 0 for the missing dimension.
// Ties on the final score break by created_at descending, then doc id
// ascending.
func combine(
	textHits []text.Hit, vectorHits []vector.Hit,
	w Weights, createdAt map[string]time.Time,
) []Scored {
	maxText := maxTextScore(textHits)
	maxVector := maxVectorScore(vectorHits)

	merged := make(map[string]*Scored, len(textHits)+len(vectorHits))

	for _, h := range textHits {
		merged[h.DocID] = &Scored{DocID: h.DocID, TextScore: h.Score / maxText}
	}
	for _, h := range vectorHits {
		s, ok := merged[h.DocID]
		if !ok {
			s = &Scored{DocID: h.DocID}
			merged[h.DocID] = s
		}
		s.VectorScore = h.Similarity / maxVector
	}

	out := make([]Scored, 0, len(merged))
	for _, s := range merged {
		s.Final = w.Vector*s.VectorScore + w.Text*s.TextScore
		out = append(out, *s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Final != out[j].Final {
			return out[i].Final > out[j].Final
		}
		ci, cj := createdAt[out[i].DocID], createdAt[out[j].DocID]
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return out[i].DocID < out[j].DocID
	})

	return out
}

// maxTextScore returns the maximum lexical score, or 1 for an empty set so
// normalization never divides by zero (an empty set yields no candidates
// anyway, and an all-zero set normalizes to all zeros).
func maxTextScore(hits []text.Hit) float64 {
	m := 0.0
	for _, h := range hits {
		if h.Score > m {
			m = h.Score
		}
	}
	if m == 0 {
		return 1
	}
	return m
}

func maxVectorScore(hits []vector.Hit) float64 {
	m := 0.0
	for _, h := range hits {
		if h.Similarity > m {
			m = h.Similarity
		}
	}
	if m == 0 {
		return 1
	}
	return m
}
