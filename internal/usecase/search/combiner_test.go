package search

import (
	"math"
	"testing"
	"time"

	"github.com/kailas-cloud/lexivec/internal/index/text"
	"github.com/kailas-cloud/lexivec/internal/index/vector"
)

var evenWeights = Weights{Vector: 0.5, Text: 0.5}

func TestCombine_NormalizesPerDimension(t *testing.T) {
	textHits := []text.Hit{
		{DocID: "a", Score: 8.0},
		{DocID: "b", Score: 4.0},
	}
	vectorHits := []vector.Hit{
		{DocID: "a", Similarity: 0.9},
		{DocID: "b", Similarity: 0.45},
	}

	out := combine(textHits, vectorHits, evenWeights, nil)
	if len(out) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(out))
	}

	// "a" holds the maximum in both dimensions: both normalize to 1.
	if out[0].DocID != "a" {
		t.Fatalf("expected a first, got %s", out[0].DocID)
	}
	if math.Abs(out[0].TextScore-1.0) > 1e-9 || math.Abs(out[0].VectorScore-1.0) > 1e-9 {
		t.Errorf("max scores should normalize to 1, got %+v", out[0])
	}
	if math.Abs(out[1].TextScore-0.5) > 1e-9 || math.Abs(out[1].VectorScore-0.5) > 1e-9 {
		t.Errorf("half of max should normalize to 0.5, got %+v", out[1])
	}
}

func TestCombine_MissingDimensionIsZero(t *testing.T) {
	textHits := []text.Hit{{DocID: "text-only", Score: 3.0}}
	vectorHits := []vector.Hit{{DocID: "vec-only", Similarity: 0.8}}

	out := combine(textHits, vectorHits, evenWeights, nil)
	if len(out) != 2 {
		t.Fatalf("expected union of 2, got %d", len(out))
	}
	for _, s := range out {
		switch s.DocID {
		case "text-only":
			if s.VectorScore != 0 {
				t.Errorf("text-only doc should have zero vector score, got %f", s.VectorScore)
			}
		case "vec-only":
			if s.TextScore != 0 {
				t.Errorf("vec-only doc should have zero text score, got %f", s.TextScore)
			}
		}
	}
}

func TestCombine_WeightedBlend(t *testing.T) {
	textHits := []text.Hit{{DocID: "a", Score: 2.0}}
	vectorHits := []vector.Hit{{DocID: "a", Similarity: 0.7}}

	out := combine(textHits, vectorHits, Weights{Vector: 0.6, Text: 0.4}, nil)
	// Both dimensions normalize to 1.0, so final = 0.6 + 0.4.
	if math.Abs(out[0].Final-1.0) > 1e-9 {
		t.Errorf("expected final 1.0, got %f", out[0].Final)
	}
}

func TestCombine_EmptyInputs(t *testing.T) {
	if out := combine(nil, nil, evenWeights, nil); len(out) != 0 {
		t.Fatalf("expected empty result, got %d", len(out))
	}

	out := combine([]text.Hit{{DocID: "a", Score: 1}}, nil, evenWeights, nil)
	if len(out) != 1 || out[0].VectorScore != 0 {
		t.Fatalf("unexpected result for text-only input: %+v", out)
	}
}

func TestCombine_VectorWeightLiftsVectorWinner(t *testing.T) {
	// "vec" strictly beats "lex" on vector similarity and ties on text.
	textHits := []text.Hit{
		{DocID: "vec", Score: 2.0},
		{DocID: "lex", Score: 2.0},
	}
	vectorHits := []vector.Hit{
		{DocID: "vec", Similarity: 0.9},
		{DocID: "lex", Similarity: 0.3},
	}

	rankOf := func(out []Scored, id string) int {
		for i, s := range out {
			if s.DocID == id {
				return i
			}
		}
		t.Fatalf("doc %s missing", id)
		return -1
	}

	low := combine(textHits, vectorHits, Weights{Vector: 0.2, Text: 0.8}, nil)
	high := combine(textHits, vectorHits, Weights{Vector: 0.8, Text: 0.2}, nil)

	if rankOf(high, "vec") > rankOf(low, "vec") {
		t.Error("raising vector weight must not lower the vector winner's rank")
	}
	if rankOf(high, "vec") != 0 {
		t.Error("vector winner should rank first under a high vector weight")
	}
}

func TestCombine_TieBreaks(t *testing.T) {
	// Identical scores: newer document first, then id ascending.
	textHits := []text.Hit{
		{DocID: "older", Score: 1.0},
		{DocID: "newer", Score: 1.0},
		{DocID: "sibling", Score: 1.0},
	}
	now := time.Now()
	createdAt := map[string]time.Time{
		"older":   now.Add(-time.Hour),
		"newer":   now,
		"sibling": now.Add(-time.Hour),
	}

	out := combine(textHits, nil, evenWeights, createdAt)
	if out[0].DocID != "newer" {
		t.Errorf("expected newest first, got %s", out[0].DocID)
	}
	if out[1].DocID != "older" || out[2].DocID != "sibling" {
		t.Errorf("expected id-ascending among equal timestamps, got %s then %s", out[1].DocID, out[2].DocID)
	}
}

func TestCombine_Deterministic(t *testing.T) {
	textHits := []text.Hit{
		{DocID: "a", Score: 1.0},
		{DocID: "b", Score: 1.0},
		{DocID: "c", Score: 0.5},
	}
	vectorHits := []vector.Hit{
		{DocID: "b", Similarity: 0.4},
		{DocID: "d", Similarity: 0.4},
	}

	first := combine(textHits, vectorHits, evenWeights, nil)
	for i := 0; i < 20; i++ {
		again := combine(textHits, vectorHits, evenWeights, nil)
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("combine not deterministic at run %d position %d", i, j)
			}
		}
	}
}
