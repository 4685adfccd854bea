package job

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	dbbadger "github.com/kailas-cloud/lexivec/internal/db/badger"
	"github.com/kailas-cloud/lexivec/internal/domain"
	dombatch "github.com/kailas-cloud/lexivec/internal/domain/batch"
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

func TestSaveAndGetRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	j := dombatch.NewJob("job-1", 2)
	if err := repo.Save(ctx, j); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status() != dombatch.JobPending || got.Total() != 2 {
		t.Errorf("round trip mismatch: status=%q total=%d", got.Status(), got.Total())
	}
}

func TestSaveFinishedJobKeepsResults(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	j := dombatch.NewJob("job-2", 2)
	j, _ = j.Start()
	j, _ = j.Finish([]dombatch.Result{
		dombatch.NewOK("a"),
		dombatch.NewError("b", errors.New("content is required")),
	})
	if err := repo.Save(ctx, j); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.Get(ctx, "job-2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status() != dombatch.JobCompleted {
		t.Errorf("status = %q, want completed", got.Status())
	}
	results := got.Results()
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Status() != dombatch.StatusOK || results[0].ID() != "a" {
		t.Errorf("first result = %+v", results[0])
	}
	if results[1].Err() == nil || results[1].Err().Error() != "content is required" {
		t.Errorf("second result error = %v", results[1].Err())
	}
}

func TestGetMissing(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Get(context.Background(), "nope")
	if !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("expected job not found, got %v", err)
	}
}
