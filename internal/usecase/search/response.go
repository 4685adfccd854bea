package search

import (
	"time"

	domdoc "github.com/kailas-cloud/lexivec/internal/domain/document"
)

// Scores breaks a result's final score into its fused components.
// Sub-scores are max-normalized to [0, 1] within the request.
type Scores struct {
	Text   float64 `json:"text_score"`
	Vector float64 `json:"vector_score"`
	Final  float64 `json:"final_score"`
}

// Result is one ranked document in a search response.
type Result struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Content    string          `json:"content"`
	Scores     Scores          `json:"scores"`
	Metadata   domdoc.Metadata `json:"metadata"`
	Highlights []string        `json:"highlights"`
}

// QueryInfo echoes how the engine interpreted the request.
type QueryInfo struct {
	Raw          string             `json:"raw"`
	TokenCount   int                `json:"token_count"`
	Fields       []string           `json:"fields,omitempty"`
	FieldWeights map[string]float64 `json:"field_weights"`
	VectorWeight float64            `json:"vector_weight"`
	TextWeight   float64            `json:"text_weight"`
}

// Analytics carries per-request execution facts.
type Analytics struct {
	ExecutionTime time.Duration `json:"execution_time"`
	TotalResults  int           `json:"total_results"`
	MaxScore      float64       `json:"max_score"`

	// SearchType is "hybrid" when both indices contributed,
	// "text" otherwise.
	SearchType string `json:"search_type"`

	// Degraded is set when the vector path failed and the engine
	// fell back to text-only results.
	Degraded bool `json:"degraded,omitempty"`

	// Truncated is set when the request deadline expired before
	// every sub-search reported back.
	Truncated bool `json:"truncated,omitempty"`
}

// Response is the ranked outcome of one search call.
type Response struct {
	QueryInfo QueryInfo `json:"query_info"`
	Results   []Result  `json:"results"`
	Analytics Analytics `json:"analytics"`
}
