package search

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/lexivec/internal/domain"
	domdoc "github.com/kailas-cloud/lexivec/internal/domain/document"
	"github.com/kailas-cloud/lexivec/internal/domain/query"
	"github.com/kailas-cloud/lexivec/internal/index/text"
	"github.com/kailas-cloud/lexivec/internal/index/vector"
)

// --- Mocks ---

type mockTexts struct {
	hits   []text.Hit
	err    error
	delay  time.Duration
	called bool
}

func (m *mockTexts) Search(_ []query.Token, _ map[string]float64, _ int) ([]text.Hit, error) {
	m.called = true
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return m.hits, m.err
}

type mockVectors struct {
	hits   []vector.Hit
	err    error
	delay  time.Duration
	called bool
}

func (m *mockVectors) Search(_ []float32, _ int, _ float64) ([]vector.Hit, error) {
	m.called = true
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return m.hits, m.err
}

type mockDocs struct {
	docs map[string]domdoc.Document
}

func (m *mockDocs) Get(_ context.Context, id string) (domdoc.Document, error) {
	d, ok := m.docs[id]
	if !ok {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return d, nil
}

func (m *mockDocs) GetMany(_ context.Context, ids []string) ([]domdoc.Document, error) {
	out := make([]domdoc.Document, 0, len(ids))
	for _, id := range ids {
		if d, ok := m.docs[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

type mockEmbedder struct {
	vec      []float32
	err      error
	called   bool
	lastText string
}

func (m *mockEmbedder) Embed(_ context.Context, txt string) (domain.EmbeddingResult, error) {
	m.called = true
	m.lastText = txt
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

func mustDoc(t *testing.T, id, title, content string) domdoc.Document {
	t.Helper()
	d, err := domdoc.New(id, title, content, "text/plain", domdoc.Metadata{})
	if err != nil {
		t.Fatalf("document.New: %v", err)
	}
	return d
}

func docStore(t *testing.T, ids ...string) *mockDocs {
	t.Helper()
	docs := make(map[string]domdoc.Document, len(ids))
	for _, id := range ids {
		docs[id] = mustDoc(t, id, "title "+id, "content for "+id+" about rust programming")
	}
	return &mockDocs{docs: docs}
}

// --- Tests ---

func TestSearch_HybridFusesBothIndices(t *testing.T) {
	texts := &mockTexts{hits: []text.Hit{{DocID: "a", Score: 2.0}, {DocID: "b", Score: 1.0}}}
	vectors := &mockVectors{hits: []vector.Hit{{DocID: "b", Similarity: 0.9}}}
	embed := &mockEmbedder{vec: []float32{0.1, 0.2}}
	svc := New(texts, vectors, docStore(t, "a", "b"), embed, query.NewParser())

	resp, err := svc.Search(context.Background(), "rust", Options{UseVector: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !texts.called || !vectors.called || !embed.called {
		t.Fatal("expected both indices and the embedder to run")
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	if resp.Analytics.SearchType != "hybrid" {
		t.Errorf("expected hybrid search type, got %s", resp.Analytics.SearchType)
	}
	if resp.Analytics.Degraded || resp.Analytics.Truncated {
		t.Errorf("unexpected degraded/truncated flags: %+v", resp.Analytics)
	}
	if resp.Analytics.MaxScore != resp.Results[0].Scores.Final {
		t.Error("max score should equal the top result's final score")
	}
}

func TestSearch_TextOnlyWhenVectorDisabled(t *testing.T) {
	texts := &mockTexts{hits: []text.Hit{{DocID: "a", Score: 1.0}}}
	vectors := &mockVectors{hits: []vector.Hit{{DocID: "a", Similarity: 0.9}}}
	embed := &mockEmbedder{vec: []float32{0.1}}
	svc := New(texts, vectors, docStore(t, "a"), embed, query.NewParser())

	resp, err := svc.Search(context.Background(), "rust", Options{UseVector: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embed.called || vectors.called {
		t.Error("vector path must not run when use_vector is off")
	}
	if resp.Analytics.SearchType != "text" {
		t.Errorf("expected text search type, got %s", resp.Analytics.SearchType)
	}
}

func TestSearch_DegradesOnEmbeddingFailure(t *testing.T) {
	texts := &mockTexts{hits: []text.Hit{{DocID: "a", Score: 1.0}}}
	vectors := &mockVectors{}
	embed := &mockEmbedder{err: domain.ErrEmbeddingUnavailable}
	svc := New(texts, vectors, docStore(t, "a"), embed, query.NewParser())

	resp, err := svc.Search(context.Background(), "rust", Options{UseVector: true})
	if err != nil {
		t.Fatalf("soft vector preference should degrade, got error: %v", err)
	}
	if !resp.Analytics.Degraded {
		t.Error("expected degraded flag on embedding failure")
	}
	if vectors.called {
		t.Error("vector search must not run without a query embedding")
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected text results to survive, got %d", len(resp.Results))
	}
}

func TestSearch_RequireVectorFailsHard(t *testing.T) {
	texts := &mockTexts{hits: []text.Hit{{DocID: "a", Score: 1.0}}}
	embed := &mockEmbedder{err: domain.ErrEmbeddingUnavailable}
	svc := New(texts, &mockVectors{}, docStore(t, "a"), embed, query.NewParser())

	_, err := svc.Search(context.Background(), "rust", Options{UseVector: true, RequireVector: true})
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected embedding error, got %v", err)
	}
}

func TestSearch_ParseErrorAborts(t *testing.T) {
	svc := New(&mockTexts{}, &mockVectors{}, docStore(t), &mockEmbedder{}, query.NewParser())

	_, err := svc.Search(context.Background(), "   ", Options{})
	if !errors.Is(err, domain.ErrEmptyQuery) {
		t.Fatalf("expected empty query error, got %v", err)
	}

	_, err = svc.Search(context.Background(), `"unclosed`, Options{})
	if !errors.Is(err, domain.ErrUnclosedPhrase) {
		t.Fatalf("expected unclosed phrase error, got %v", err)
	}
}

func TestSearch_TextIndexErrorIsTerminal(t *testing.T) {
	texts := &mockTexts{err: domain.ErrCorruptPosting}
	svc := New(texts, &mockVectors{}, docStore(t), nil, query.NewParser())

	_, err := svc.Search(context.Background(), "rust", Options{})
	if !errors.Is(err, domain.ErrCorruptPosting) {
		t.Fatalf("expected corrupt posting error, got %v", err)
	}
}

func TestSearch_TimeoutReturnsTruncated(t *testing.T) {
	texts := &mockTexts{
		hits:  []text.Hit{{DocID: "a", Score: 1.0}},
		delay: 200 * time.Millisecond,
	}
	svc := New(texts, &mockVectors{}, docStore(t, "a"), nil, query.NewParser())

	resp, err := svc.Search(context.Background(), "rust", Options{Timeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("timeout should truncate, not fail: %v", err)
	}
	if !resp.Analytics.Truncated {
		t.Error("expected truncated flag after deadline expiry")
	}
	if len(resp.Results) != 0 {
		t.Errorf("no sub-search finished, expected empty results, got %d", len(resp.Results))
	}
}

func TestSearch_SlowVectorSideStillTruncates(t *testing.T) {
	texts := &mockTexts{hits: []text.Hit{{DocID: "a", Score: 1.0}}}
	vectors := &mockVectors{
		hits:  []vector.Hit{{DocID: "a", Similarity: 0.9}},
		delay: 200 * time.Millisecond,
	}
	embed := &mockEmbedder{vec: []float32{0.1}}
	svc := New(texts, vectors, docStore(t, "a"), embed, query.NewParser())

	resp, err := svc.Search(context.Background(), "rust", Options{
		UseVector: true,
		Timeout:   50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Analytics.Truncated {
		t.Error("expected truncated flag when the vector side misses the deadline")
	}
	if len(resp.Results) != 1 {
		t.Fatalf("text results should survive truncation, got %d", len(resp.Results))
	}
	if resp.Results[0].Scores.Vector != 0 {
		t.Error("truncated vector side must contribute zero score")
	}
}

func TestSearch_MinScoreFiltersAndPaginates(t *testing.T) {
	hits := []text.Hit{
		{DocID: "a", Score: 10.0},
		{DocID: "b", Score: 8.0},
		{DocID: "c", Score: 6.0},
		{DocID: "d", Score: 0.1},
	}
	texts := &mockTexts{hits: hits}
	svc := New(texts, &mockVectors{}, docStore(t, "a", "b", "c", "d"), nil, query.NewParser())

	resp, err := svc.Search(context.Background(), "rust", Options{
		TextWeight: 1.0,
		MinScore:   0.5,
		Limit:      2,
		Offset:     1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// "d" normalizes to 0.01 and falls under min_score; offset skips "a".
	if resp.Analytics.TotalResults != 3 {
		t.Errorf("expected 3 above threshold, got %d", resp.Analytics.TotalResults)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected page of 2, got %d", len(resp.Results))
	}
	if resp.Results[0].ID != "b" || resp.Results[1].ID != "c" {
		t.Errorf("expected page [b c], got [%s %s]", resp.Results[0].ID, resp.Results[1].ID)
	}
}

func TestSearch_PhraseHighlightRoundTrip(t *testing.T) {
	store := &mockDocs{docs: map[string]domdoc.Document{
		"a": mustDoc(t, "a", "intro", "a long guide to rust programming for beginners"),
	}}
	texts := &mockTexts{hits: []text.Hit{{DocID: "a", Score: 2.0}}}
	svc := New(texts, &mockVectors{}, store, nil, query.NewParser())

	resp, err := svc.Search(context.Background(), `"rust programming"`, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	r := resp.Results[0]
	if r.Scores.Text <= 0 {
		t.Error("expected positive text score")
	}
	if len(r.Highlights) == 0 || !strings.Contains(strings.ToLower(r.Highlights[0]), "rust programming") {
		t.Errorf("expected a highlight containing the phrase, got %v", r.Highlights)
	}
}

func TestSearch_EmbedderReceivesFlattenedQuery(t *testing.T) {
	embed := &mockEmbedder{vec: []float32{0.1}}
	svc := New(&mockTexts{}, &mockVectors{}, docStore(t), embed, query.NewParser())

	_, err := svc.Search(context.Background(), `"rust async" +tokio -blocking run*`, Options{UseVector: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "rust async tokio run"
	if embed.lastText != want {
		t.Errorf("expected embed text %q, got %q", want, embed.lastText)
	}
}

func TestSearch_QueryInfoEchoesInterpretation(t *testing.T) {
	texts := &mockTexts{hits: []text.Hit{{DocID: "a", Score: 1.0}}}
	svc := New(texts, &mockVectors{}, docStore(t, "a"), nil, query.NewParser())

	resp, err := svc.Search(context.Background(), "title:rust guide", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	qi := resp.QueryInfo
	if qi.Raw != "title:rust guide" {
		t.Errorf("unexpected raw query echo: %q", qi.Raw)
	}
	if qi.TokenCount != 2 {
		t.Errorf("expected 2 tokens, got %d", qi.TokenCount)
	}
	if len(qi.Fields) != 1 || qi.Fields[0] != "title" {
		t.Errorf("expected fields [title], got %v", qi.Fields)
	}
	if qi.FieldWeights["title"] != 1.5 {
		t.Errorf("expected default title weight 1.5, got %f", qi.FieldWeights["title"])
	}
	if qi.VectorWeight != DefaultVectorWeight || qi.TextWeight != DefaultTextWeight {
		t.Errorf("expected default weights, got %f/%f", qi.VectorWeight, qi.TextWeight)
	}
}

func TestSearch_SkipsDocumentsDeletedMidFlight(t *testing.T) {
	texts := &mockTexts{hits: []text.Hit{{DocID: "gone", Score: 5.0}, {DocID: "a", Score: 4.0}}}
	svc := New(texts, &mockVectors{}, docStore(t, "a"), nil, query.NewParser())

	resp, err := svc.Search(context.Background(), "rust", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != "a" {
		t.Errorf("expected only the surviving document, got %+v", resp.Results)
	}
}
