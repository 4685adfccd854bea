// Package lexivec embeds the hybrid search engine in a Go process:
// a persistent document store plus in-memory text and vector indices
// behind one client, no server required.
package lexivec

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbbadger "github.com/kailas-cloud/lexivec/internal/db/badger"
	dombatch "github.com/kailas-cloud/lexivec/internal/domain/batch"
	domdoc "github.com/kailas-cloud/lexivec/internal/domain/document"
	"github.com/kailas-cloud/lexivec/internal/domain/query"
	"github.com/kailas-cloud/lexivec/internal/index/text"
	"github.com/kailas-cloud/lexivec/internal/index/vector"
	documentrepo "github.com/kailas-cloud/lexivec/internal/repository/document"
	jobrepo "github.com/kailas-cloud/lexivec/internal/repository/job"
	ingestuc "github.com/kailas-cloud/lexivec/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/lexivec/internal/usecase/search"
)

const defaultDimensions = 1536

// Metadata holds descriptive document attributes.
type Metadata struct {
	SourceType string
	Author     string
	Language   string
	Tags       []string
	Custom     map[string]string
}

// Document is a document going into or coming out of the engine.
// Timestamps and WordCount are set by the engine and ignored on input.
type Document struct {
	ID          string
	Title       string
	Content     string
	ContentType string
	Metadata    Metadata
	WordCount   int
	HasVector   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SearchResult is one ranked document. Sub-scores are normalized to
// [0, 1] within the request.
type SearchResult struct {
	ID          string
	Title       string
	Content     string
	TextScore   float64
	VectorScore float64
	FinalScore  float64
	Metadata    Metadata
	Highlights  []string
}

// SearchResponse carries the ranked results of one Search call.
type SearchResponse struct {
	Results    []SearchResult
	Total      int
	MaxScore   float64
	SearchType string
	Degraded   bool
	Truncated  bool
	Took       time.Duration
}

// JobStatus reports a batch ingest job.
type JobStatus struct {
	ID        string
	Status    string
	Total     int
	Succeeded int
	Failed    int
}

// Client is the embedded lexivec engine.
type Client struct {
	store   *dbbadger.Store
	ingest  *ingestuc.Service
	search  *searchuc.Service
	texts   *text.Index
	vectors *vector.Index
}

// New opens the engine. With a storage path, previously ingested
// documents are replayed into the indices before New returns.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{dimensions: defaultDimensions}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	store, err := dbbadger.Open(cfg.path, cfg.logger)
	if err != nil {
		return nil, fmt.Errorf("lexivec: open store: %w", err)
	}

	textIdx := text.NewIndex()
	if cfg.bm25K1 > 0 || cfg.bm25B > 0 {
		textIdx.WithBM25(cfg.bm25K1, cfg.bm25B)
	}
	vecIdx := vector.NewIndex(cfg.dimensions)
	parser := query.NewParser()
	if cfg.fuzzyDistance > 0 {
		parser.WithFuzzyDistance(cfg.fuzzyDistance)
	}

	docs := documentrepo.New(store)
	jobs := jobrepo.New(store)

	err = docs.Walk(context.Background(), func(doc domdoc.Document) error {
		if werr := textIdx.Index(doc.ID(), doc.FieldTexts()); werr != nil {
			return fmt.Errorf("replay %s: %w", doc.ID(), werr)
		}
		if len(doc.Embedding()) > 0 {
			// Stale embeddings (dimension changed between runs) stay
			// text-searchable.
			_ = vecIdx.Upsert(doc.ID(), doc.Embedding())
		}
		return nil
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("lexivec: rebuild indices: %w", err)
	}

	ingestSvc, err := ingestuc.New(docs, textIdx, vecIdx, jobs, cfg.embedder, cfg.logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("lexivec: create ingest service: %w", err)
	}
	if cfg.poolSize > 0 {
		ingestSvc.WithPoolSize(cfg.poolSize)
	}
	if cfg.maxBatchSize > 0 {
		ingestSvc.WithMaxBatchSize(cfg.maxBatchSize)
	}

	searchSvc := searchuc.New(textIdx, vecIdx, docs, cfg.embedder, parser)

	return &Client{
		store:   store,
		ingest:  ingestSvc,
		search:  searchSvc,
		texts:   textIdx,
		vectors: vecIdx,
	}, nil
}

// Close releases the worker pool and the document store.
func (c *Client) Close() error {
	c.ingest.Release()
	return c.store.Close()
}

// Ingest stores and indexes one document. Returns the stored document
// (with any generated id) and whether it was created rather than
// updated.
func (c *Client) Ingest(ctx context.Context, doc Document) (Document, bool, error) {
	stored, created, err := c.ingest.Ingest(ctx, ingestuc.Input{
		ID:          doc.ID,
		Title:       doc.Title,
		Content:     doc.Content,
		ContentType: doc.ContentType,
		Metadata:    metadataIn(doc.Metadata),
	})
	if err != nil {
		return Document{}, false, err
	}
	return documentOut(stored), created, nil
}

// Get returns a stored document by id.
func (c *Client) Get(ctx context.Context, id string) (Document, error) {
	doc, err := c.ingest.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	return documentOut(doc), nil
}

// Delete removes a document from the store and both indices. Deleting an
// absent id is a no-op.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.ingest.Delete(ctx, id)
}

// BatchIngest queues documents for asynchronous ingestion and returns
// the job id to poll with Job.
func (c *Client) BatchIngest(ctx context.Context, docs []Document) (string, error) {
	items := make([]ingestuc.Input, len(docs))
	for i, d := range docs {
		items[i] = ingestuc.Input{
			ID:          d.ID,
			Title:       d.Title,
			Content:     d.Content,
			ContentType: d.ContentType,
			Metadata:    metadataIn(d.Metadata),
		}
	}
	job, err := c.ingest.BatchIngest(ctx, items)
	if err != nil {
		return "", err
	}
	return job.ID(), nil
}

// Job reports the state of a batch ingest job.
func (c *Client) Job(ctx context.Context, id string) (JobStatus, error) {
	job, err := c.ingest.Job(ctx, id)
	if err != nil {
		return JobStatus{}, err
	}
	ok, failed := dombatch.Tally(job.Results())
	return JobStatus{
		ID:        job.ID(),
		Status:    string(job.Status()),
		Total:     job.Total(),
		Succeeded: ok,
		Failed:    failed,
	}, nil
}

// Search runs one hybrid search over the engine.
func (c *Client) Search(ctx context.Context, q string, opts SearchOptions) (*SearchResponse, error) {
	resp, err := c.search.Search(ctx, q, searchuc.Options{
		UseVector:     opts.UseVector,
		RequireVector: opts.RequireVector,
		FieldWeights:  opts.FieldWeights,
		VectorWeight:  opts.VectorWeight,
		TextWeight:    opts.TextWeight,
		MinScore:      opts.MinScore,
		Limit:         opts.Limit,
		Offset:        opts.Offset,
		Timeout:       opts.Timeout,
	})
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = SearchResult{
			ID:          r.ID,
			Title:       r.Title,
			Content:     r.Content,
			TextScore:   r.Scores.Text,
			VectorScore: r.Scores.Vector,
			FinalScore:  r.Scores.Final,
			Metadata:    metadataOut(r.Metadata),
			Highlights:  r.Highlights,
		}
	}

	return &SearchResponse{
		Results:    results,
		Total:      resp.Analytics.TotalResults,
		MaxScore:   resp.Analytics.MaxScore,
		SearchType: resp.Analytics.SearchType,
		Degraded:   resp.Analytics.Degraded,
		Truncated:  resp.Analytics.Truncated,
		Took:       resp.Analytics.ExecutionTime,
	}, nil
}

// DocCount returns how many documents the text index holds.
func (c *Client) DocCount() int {
	return c.texts.DocCount()
}

func metadataIn(m Metadata) domdoc.Metadata {
	return domdoc.Metadata{
		SourceType: m.SourceType,
		Author:     m.Author,
		Language:   m.Language,
		Tags:       m.Tags,
		Custom:     m.Custom,
	}
}

func metadataOut(m domdoc.Metadata) Metadata {
	return Metadata{
		SourceType: m.SourceType,
		Author:     m.Author,
		Language:   m.Language,
		Tags:       m.Tags,
		Custom:     m.Custom,
	}
}

func documentOut(doc domdoc.Document) Document {
	return Document{
		ID:          doc.ID(),
		Title:       doc.Title(),
		Content:     doc.Content(),
		ContentType: doc.ContentType(),
		Metadata:    metadataOut(doc.Metadata()),
		WordCount:   doc.WordCount(),
		HasVector:   len(doc.Embedding()) > 0,
		CreatedAt:   doc.CreatedAt(),
		UpdatedAt:   doc.UpdatedAt(),
	}
}
