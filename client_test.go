package lexivec

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/lexivec/internal/domain"
)

type stubEmbedder struct {
	vec []float32
}

func (s *stubEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: s.vec, TotalTokens: 2}, nil
}

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	c, err := New(opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_IngestAndSearch(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	doc, created, err := c.Ingest(ctx, Document{
		ID:       "doc-1",
		Title:    "Rust Guide",
		Content:  "rust systems programming",
		Metadata: Metadata{Language: "en", Tags: []string{"guide"}},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !created {
		t.Error("expected created=true on first ingest")
	}
	if doc.WordCount != 3 {
		t.Errorf("word count: got %d, want 3", doc.WordCount)
	}

	resp, err := c.Search(ctx, "rust", SearchOptions{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != "doc-1" {
		t.Fatalf("results: got %+v", resp.Results)
	}
	if resp.SearchType != "text" {
		t.Errorf("search type: got %q, want text", resp.SearchType)
	}
}

func TestClient_GeneratesID(t *testing.T) {
	c := newTestClient(t)

	doc, _, err := c.Ingest(context.Background(), Document{Content: "anonymous content"})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if doc.ID == "" {
		t.Error("expected a generated id")
	}
}

func TestClient_HybridSearch(t *testing.T) {
	c := newTestClient(t,
		WithEmbedder(&stubEmbedder{vec: []float32{1, 0, 0}}),
		WithDimensions(3),
	)
	ctx := context.Background()

	if _, _, err := c.Ingest(ctx, Document{ID: "doc-1", Content: "rust notes"}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	resp, err := c.Search(ctx, "rust", SearchOptions{UseVector: true})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.SearchType != "hybrid" {
		t.Errorf("search type: got %q, want hybrid", resp.SearchType)
	}
	if len(resp.Results) == 0 || resp.Results[0].VectorScore <= 0 {
		t.Errorf("expected a vector-scored result, got %+v", resp.Results)
	}
}

func TestClient_Delete(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	if _, _, err := c.Ingest(ctx, Document{ID: "doc-1", Content: "rust notes"}); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := c.Delete(ctx, "doc-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := c.Get(ctx, "doc-1"); err == nil {
		t.Error("expected an error after delete")
	}
	if c.DocCount() != 0 {
		t.Errorf("doc count: got %d, want 0", c.DocCount())
	}
}

func TestClient_BatchIngest(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	jobID, err := c.BatchIngest(ctx, []Document{
		{ID: "doc-1", Content: "first"},
		{ID: "doc-2", Content: "second"},
		{ID: "doc-3", Content: ""}, // invalid, must not block the rest
	})
	if err != nil {
		t.Fatalf("batch ingest: %v", err)
	}

	var job JobStatus
	deadline := time.Now().Add(2 * time.Second)
	for {
		job, err = c.Job(ctx, jobID)
		if err != nil {
			t.Fatalf("job: %v", err)
		}
		if job.Status == "completed" || job.Status == "failed" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job still %q after deadline", job.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if job.Status != "completed" {
		t.Fatalf("status: got %q, want completed", job.Status)
	}
	if job.Succeeded != 2 || job.Failed != 1 {
		t.Errorf("tally: got %d/%d, want 2/1", job.Succeeded, job.Failed)
	}
}

func TestClient_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	c, err := New(WithStoragePath(dir))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, _, err = c.Ingest(ctx, Document{ID: "doc-1", Content: "durable rust notes"}); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err = c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := newTestClient(t, WithStoragePath(dir))
	if reopened.DocCount() != 1 {
		t.Fatalf("doc count after reopen: got %d, want 1", reopened.DocCount())
	}

	resp, err := reopened.Search(ctx, "durable", SearchOptions{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results after reopen: got %d, want 1", len(resp.Results))
	}
}
