package search

import "time"

// Default tuning values applied when a request leaves them unset.
const (
	DefaultLimit        = 10
	DefaultMinScore     = 0.1
	DefaultVectorWeight = 0.6
	DefaultTextWeight   = 0.4
	DefaultTimeout      = 5 * time.Second
)

// DefaultFieldWeights boost title matches and discount tag matches
// relative to body content.
func DefaultFieldWeights() map[string]float64 {
	return map[string]float64{
		"title":   1.5,
		"content": 1.0,
		"tags":    0.5,
	}
}

// Options tune a single search request.
type Options struct {
	// UseVector enables the semantic side of the hybrid search. When
	// false the query runs against the text index alone.
	UseVector bool

	// RequireVector turns an embedding failure into a request error
	// instead of degrading to text-only results.
	RequireVector bool

	FieldWeights map[string]float64
	VectorWeight float64
	TextWeight   float64

	// MinScore drops fused results below the threshold.
	MinScore float64

	Limit  int
	Offset int

	// Timeout bounds the whole search call. On expiry the engine
	// returns whatever ranked results it already computed.
	Timeout time.Duration
}

// withDefaults fills unset fields without mutating the caller's value.
func (o Options) withDefaults() Options {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	if o.MinScore <= 0 {
		o.MinScore = DefaultMinScore
	}
	if o.VectorWeight <= 0 && o.TextWeight <= 0 {
		o.VectorWeight = DefaultVectorWeight
		o.TextWeight = DefaultTextWeight
	}
	if len(o.FieldWeights) == 0 {
		o.FieldWeights = DefaultFieldWeights()
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}
