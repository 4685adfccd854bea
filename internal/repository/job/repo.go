package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/lexivec/internal/db"
	"github.com/kailas-cloud/lexivec/internal/domain"
	dombatch "github.com/kailas-cloud/lexivec/internal/domain/batch"
)

const keyPrefix = "job:"

// Repo persists batch job state in the embedded key-value store.
type Repo struct {
	store db.KVStore
}

// New creates a job repository.
func New(store db.KVStore) *Repo {
	return &Repo{store: store}
}

type itemRecord struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type record struct {
	ID        string       `json:"id"`
	Status    string       `json:"status"`
	Total     int          `json:"total"`
	Items     []itemRecord `json:"items,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Save stores the job state, replacing any previous state.
func (r *Repo) Save(ctx context.Context, j dombatch.Job) error {
	items := make([]itemRecord, 0, len(j.Results()))
	for _, res := range j.Results() {
		item := itemRecord{ID: res.ID(), Status: string(res.Status())}
		if res.Err() != nil {
			item.Error = res.Err().Error()
		}
		items = append(items, item)
	}
	rec := record{
		ID:        j.ID(),
		Status:    string(j.Status()),
		Total:     j.Total(),
		Items:     items,
		CreatedAt: j.CreatedAt(),
		UpdatedAt: j.UpdatedAt(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal job %q: %w", j.ID(), err)
	}
	if err := r.store.Set(ctx, keyPrefix+j.ID(), data); err != nil {
		return fmt.Errorf("store job %q: %w", j.ID(), err)
	}
	return nil
}

// Get returns the job or domain.ErrJobNotFound.
func (r *Repo) Get(ctx context.Context, id string) (dombatch.Job, error) {
	data, err := r.store.Get(ctx, keyPrefix+id)
	if errors.Is(err, db.ErrKeyNotFound) {
		return dombatch.Job{}, fmt.Errorf("job %q: %w", id, domain.ErrJobNotFound)
	}
	if err != nil {
		return dombatch.Job{}, fmt.Errorf("get job %q: %w", id, err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return dombatch.Job{}, fmt.Errorf("unmarshal job %q: %w", id, err)
	}

	results := make([]dombatch.Result, 0, len(rec.Items))
	for _, item := range rec.Items {
		if item.Status == string(dombatch.StatusOK) {
			results = append(results, dombatch.NewOK(item.ID))
			continue
		}
		results = append(results, dombatch.NewError(item.ID, errors.New(item.Error)))
	}

	return dombatch.ReconstructJob(
		rec.ID, dombatch.JobStatus(rec.Status), rec.Total,
		results, rec.CreatedAt, rec.UpdatedAt,
	), nil
}
