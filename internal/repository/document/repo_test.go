package document

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	dbbadger "github.com/kailas-cloud/lexivec/internal/db/badger"
	"github.com/kailas-cloud/lexivec/internal/domain"
	domdoc "github.com/kailas-cloud/lexivec/internal/domain/document"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	store, err := dbbadger.Open("", zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return New(store)
}

func testDocument(t *testing.T, id string) domdoc.Document {
	t.Helper()
	meta := domdoc.Metadata{
		SourceType: "upload",
		Author:     "alice",
		Language:   "en",
		Tags:       []string{"go", "search"},
		Custom:     map[string]string{"team": "infra"},
	}
	doc, err := domdoc.New(id, "hybrid search", "a guide to hybrid search engines", "text/markdown", meta)
	if err != nil {
		t.Fatalf("document.New: %v", err)
	}
	doc.SetEmbedding([]float32{0.1, 0.2, 0.3})
	return doc
}

func TestUpsertAndGetRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	doc := testDocument(t, "doc-1")

	created, err := repo.Upsert(ctx, &doc)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !created {
		t.Error("first upsert should report created")
	}

	got, err := repo.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title() != doc.Title() || got.Content() != doc.Content() {
		t.Errorf("round trip mismatch: %q / %q", got.Title(), got.Content())
	}
	if got.ContentType() != "text/markdown" {
		t.Errorf("content type = %q", got.ContentType())
	}
	if len(got.Embedding()) != 3 {
		t.Errorf("embedding dims = %d, want 3", len(got.Embedding()))
	}
	meta := got.Metadata()
	if meta.Author != "alice" || len(meta.Tags) != 2 || meta.Custom["team"] != "infra" {
		t.Errorf("metadata mismatch: %+v", meta)
	}
	if !got.CreatedAt().Equal(doc.CreatedAt()) {
		t.Errorf("created_at drifted: %v vs %v", got.CreatedAt(), doc.CreatedAt())
	}
}

func TestUpsertExistingReportsUpdated(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	doc := testDocument(t, "doc-1")

	if _, err := repo.Upsert(ctx, &doc); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	created, err := repo.Upsert(ctx, &doc)
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if created {
		t.Error("second upsert should report updated")
	}
}

func TestGetMissing(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Get(context.Background(), "nope")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestGetManySkipsMissing(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		doc := testDocument(t, id)
		if _, err := repo.Upsert(ctx, &doc); err != nil {
			t.Fatalf("Upsert %s: %v", id, err)
		}
	}

	docs, err := repo.GetMany(ctx, []string{"a", "missing", "b"})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
}

func TestDeleteAndCount(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	doc := testDocument(t, "doc-1")
	if _, err := repo.Upsert(ctx, &doc); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if n, _ := repo.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}

	if err := repo.Delete(ctx, "doc-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n, _ := repo.Count(ctx); n != 0 {
		t.Errorf("Count after delete = %d, want 0", n)
	}
	if err := repo.Delete(ctx, "doc-1"); err != nil {
		t.Errorf("repeated delete must be a no-op, got %v", err)
	}
}

func TestDeleteAbsentIDIsNoOp(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Delete(ctx, "never-ingested"); err != nil {
		t.Fatalf("delete of absent id returned error: %v", err)
	}
}

func TestWalkVisitsEveryDocument(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		doc := testDocument(t, id)
		if _, err := repo.Upsert(ctx, &doc); err != nil {
			t.Fatalf("Upsert %s: %v", id, err)
		}
	}

	seen := map[string]time.Time{}
	err := repo.Walk(ctx, func(doc domdoc.Document) error {
		seen[doc.ID()] = doc.CreatedAt()
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(seen) != 3 {
		t.Errorf("walked %d documents, want 3", len(seen))
	}
}
