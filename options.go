package lexivec

import (
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lexivec/internal/domain"
)

type clientConfig struct {
	path          string
	embedder      domain.Embedder
	dimensions    int
	bm25K1        float64
	bm25B         float64
	fuzzyDistance int
	poolSize      int
	maxBatchSize  int
	logger        *zap.Logger
}

// Option configures a Client.
type Option func(*clientConfig)

// WithStoragePath sets the on-disk location of the document store.
// Without it the store lives in memory and vanishes on Close.
func WithStoragePath(path string) Option {
	return func(c *clientConfig) { c.path = path }
}

// WithEmbedder enables hybrid search with the given text vectorizer.
// Without one the engine indexes and searches text only.
func WithEmbedder(e domain.Embedder) Option {
	return func(c *clientConfig) { c.embedder = e }
}

// WithDimensions sets the vector index dimension. Must match the
// embedder's output.
func WithDimensions(dim int) Option {
	return func(c *clientConfig) { c.dimensions = dim }
}

// WithBM25 overrides the text ranking parameters.
func WithBM25(k1, b float64) Option {
	return func(c *clientConfig) { c.bm25K1, c.bm25B = k1, b }
}

// WithFuzzyDistance sets the edit distance used by ~fuzzy query terms.
func WithFuzzyDistance(d int) Option {
	return func(c *clientConfig) { c.fuzzyDistance = d }
}

// WithPoolSize sets the batch-ingest worker pool size.
func WithPoolSize(n int) Option {
	return func(c *clientConfig) { c.poolSize = n }
}

// WithMaxBatchSize caps how many documents one batch may carry.
func WithMaxBatchSize(n int) Option {
	return func(c *clientConfig) { c.maxBatchSize = n }
}

// WithLogger sets the client logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}

// SearchOptions tune one Search call. Zero values fall back to the
// engine defaults (limit 10, min score 0.1, vector/text 0.6/0.4).
type SearchOptions struct {
	UseVector     bool
	RequireVector bool
	FieldWeights  map[string]float64
	VectorWeight  float64
	TextWeight    float64
	MinScore      float64
	Limit         int
	Offset        int
	Timeout       time.Duration
}
