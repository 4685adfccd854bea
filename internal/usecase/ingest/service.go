package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	dombatch "github.com/kailas-cloud/lexivec/internal/domain/batch"
	domdoc "github.com/kailas-cloud/lexivec/internal/domain/document"
)

// Batch processing defaults.
const (
	DefaultPoolSize     = 32
	DefaultMaxBatchSize = 100
)

// Input carries the caller-supplied fields of a document to ingest.
// An empty ID asks the service to generate one.
type Input struct {
	ID          string
	Title       string
	Content     string
	ContentType string
	Metadata    domdoc.Metadata
}

// Service handles document ingestion: persist, vectorize, and commit
// to both indices. Batch ingests run asynchronously on a worker pool.
type Service struct {
	docs         DocumentStore
	texts        TextIndexer
	vectors      VectorIndexer
	jobs         JobStore
	embed        Embedder
	pool         *ants.Pool
	log          *zap.Logger
	maxBatchSize int
}

// New creates an ingest service and its worker pool. embed may be nil,
// in which case documents are text-indexed only.
func New(
	docs DocumentStore, texts TextIndexer, vectors VectorIndexer,
	jobs JobStore, embed Embedder, log *zap.Logger,
) (*Service, error) {
	pool, err := ants.NewPool(DefaultPoolSize)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Service{
		docs: docs, texts: texts, vectors: vectors,
		jobs: jobs, embed: embed, pool: pool,
		log:          log,
		maxBatchSize: DefaultMaxBatchSize,
	}, nil
}

// WithPoolSize resizes the batch worker pool.
func (s *Service) WithPoolSize(size int) *Service {
	if size > 0 {
		s.pool.Tune(size)
	}
	return s
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// Release shuts down the worker pool. The service must not be used
// after calling Release.
func (s *Service) Release() {
	s.pool.Release()
}

// Ingest persists one document and commits it to both indices. Returns
// the stored document (with any generated id) and whether it was
// created rather than updated. A failure in either index is reported
// with the index named; the other index keeps its committed state.
func (s *Service) Ingest(ctx context.Context, in Input) (domdoc.Document, bool, error) {
	id := in.ID
	if id == "" {
		id = uuid.New().String()
	}

	doc, err := domdoc.New(id, in.Title, in.Content, in.ContentType, in.Metadata)
	if err != nil {
		return domdoc.Document{}, false, fmt.Errorf("build document: %w", err)
	}

	if s.embed != nil {
		embResult, embErr := s.embed.Embed(ctx, doc.Content())
		if embErr != nil {
			return domdoc.Document{}, false, fmt.Errorf("vectorize document: %w", embErr)
		}
		doc.SetEmbedding(embResult.Embedding)
	}

	if prev, getErr := s.docs.Get(ctx, id); getErr == nil {
		doc.Touch(prev.CreatedAt())
	}

	created, err := s.docs.Upsert(ctx, &doc)
	if err != nil {
		return domdoc.Document{}, false, fmt.Errorf("store document: %w", err)
	}

	// Each index takes its own write lock; the two commits are
	// independent and can run in parallel.
	var g errgroup.Group
	g.Go(func() error {
		if err := s.texts.Index(doc.ID(), doc.FieldTexts()); err != nil {
			return fmt.Errorf("text index: %w", err)
		}
		return nil
	})
	if len(doc.Embedding()) > 0 {
		g.Go(func() error {
			if err := s.vectors.Upsert(doc.ID(), doc.Embedding()); err != nil {
				return fmt.Errorf("vector index: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return doc, created, err
	}

	return doc, created, nil
}

// Get returns a stored document by id.
func (s *Service) Get(ctx context.Context, id string) (domdoc.Document, error) {
	return s.docs.Get(ctx, id)
}

// Delete removes a document from storage and both indices. Deleting an
// absent id is a no-op, so repeated deletes are safe.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.docs.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	var g errgroup.Group
	g.Go(func() error {
		if err := s.texts.Delete(id); err != nil {
			return fmt.Errorf("text index: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.vectors.Delete(id); err != nil {
			return fmt.Errorf("vector index: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// BatchIngest submits documents for asynchronous ingestion and returns
// the pending job. Per-item failures are isolated: one bad document
// never blocks the rest of the batch.
func (s *Service) BatchIngest(ctx context.Context, items []Input) (dombatch.Job, error) {
	if len(items) == 0 {
		return dombatch.Job{}, fmt.Errorf("batch is empty")
	}
	if len(items) > s.maxBatchSize {
		return dombatch.Job{}, fmt.Errorf("batch size %d exceeds %d", len(items), s.maxBatchSize)
	}

	job := dombatch.NewJob(uuid.New().String(), len(items))
	if err := s.jobs.Save(ctx, job); err != nil {
		return dombatch.Job{}, fmt.Errorf("save job: %w", err)
	}

	if err := s.pool.Submit(func() { s.runBatch(job, items) }); err != nil {
		return dombatch.Job{}, fmt.Errorf("submit batch: %w", err)
	}

	return job, nil
}

// Job returns the current state of a batch job.
func (s *Service) Job(ctx context.Context, id string) (dombatch.Job, error) {
	return s.jobs.Get(ctx, id)
}

// runBatch executes one batch on a pool worker. The request context is
// gone by the time the worker runs, so a background context is used.
func (s *Service) runBatch(job dombatch.Job, items []Input) {
	ctx := context.Background()

	job, err := job.Start()
	if err != nil {
		s.log.Error("start batch job", zap.String("job_id", job.ID()), zap.Error(err))
		return
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		s.log.Error("save batch job", zap.String("job_id", job.ID()), zap.Error(err))
	}

	results := make([]dombatch.Result, len(items))
	for i, item := range items {
		doc, _, err := s.Ingest(ctx, item)
		if err != nil {
			results[i] = dombatch.NewError(item.ID, err)
			continue
		}
		results[i] = dombatch.NewOK(doc.ID())
	}

	job, err = job.Finish(results)
	if err != nil {
		s.log.Error("finish batch job", zap.String("job_id", job.ID()), zap.Error(err))
		return
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		s.log.Error("save batch job", zap.String("job_id", job.ID()), zap.Error(err))
	}

	ok, failed := dombatch.Tally(results)
	s.log.Info("batch job finished",
		zap.String("job_id", job.ID()),
		zap.Int("ok", ok),
		zap.Int("failed", failed),
	)
}
