package chi

import (
	"time"

	dombatch "github.com/kailas-cloud/lexivec/internal/domain/batch"
	domdoc "github.com/kailas-cloud/lexivec/internal/domain/document"
	ingestuc "github.com/kailas-cloud/lexivec/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/lexivec/internal/usecase/search"
)

// ErrorResponse is the JSON error envelope returned by every endpoint.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// metadataDTO is the wire form of document metadata.
type metadataDTO struct {
	SourceType string            `json:"source_type,omitempty"`
	Author     string            `json:"author,omitempty"`
	Language   string            `json:"language,omitempty"`
	Tags       []string          `json:"tags,omitempty"`
	Custom     map[string]string `json:"custom,omitempty"`
}

// ingestRequest is the body of POST /documents. An empty id asks the
// server to generate one.
type ingestRequest struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Content     string      `json:"content"`
	ContentType string      `json:"content_type"`
	Metadata    metadataDTO `json:"metadata"`
}

type batchIngestRequest struct {
	Documents []ingestRequest `json:"documents"`
}

type documentResponse struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Content     string      `json:"content"`
	ContentType string      `json:"content_type"`
	Metadata    metadataDTO `json:"metadata"`
	WordCount   int         `json:"word_count"`
	HasVector   bool        `json:"has_vector"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type jobItemResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type jobResponse struct {
	JobID     string            `json:"job_id"`
	Status    string            `json:"status"`
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Items     []jobItemResponse `json:"items,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type searchScoresDTO struct {
	TextScore   float64 `json:"text_score"`
	VectorScore float64 `json:"vector_score"`
	FinalScore  float64 `json:"final_score"`
}

type searchResultDTO struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Content    string          `json:"content"`
	Scores     searchScoresDTO `json:"scores"`
	Metadata   metadataDTO     `json:"metadata"`
	Highlights []string        `json:"highlights,omitempty"`
}

type queryInfoDTO struct {
	Raw          string             `json:"raw"`
	TokenCount   int                `json:"token_count"`
	Fields       []string           `json:"fields,omitempty"`
	FieldWeights map[string]float64 `json:"field_weights"`
	VectorWeight float64            `json:"vector_weight"`
	TextWeight   float64            `json:"text_weight"`
}

type analyticsDTO struct {
	ExecutionTimeMs int64   `json:"execution_time_ms"`
	TotalResults    int     `json:"total_results"`
	MaxScore        float64 `json:"max_score"`
	SearchType      string  `json:"search_type"`
	Degraded        bool    `json:"degraded,omitempty"`
	Truncated       bool    `json:"truncated,omitempty"`
}

type searchResponseDTO struct {
	QueryInfo queryInfoDTO      `json:"query_info"`
	Results   []searchResultDTO `json:"results"`
	Analytics analyticsDTO      `json:"analytics"`
}

type healthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Indexes map[string]int    `json:"indexes"`
}

func metadataFromDTO(m metadataDTO) domdoc.Metadata {
	return domdoc.Metadata{
		SourceType: m.SourceType,
		Author:     m.Author,
		Language:   m.Language,
		Tags:       m.Tags,
		Custom:     m.Custom,
	}
}

func metadataToDTO(m domdoc.Metadata) metadataDTO {
	return metadataDTO{
		SourceType: m.SourceType,
		Author:     m.Author,
		Language:   m.Language,
		Tags:       m.Tags,
		Custom:     m.Custom,
	}
}

func ingestInputFromRequest(req ingestRequest) ingestuc.Input {
	return ingestuc.Input{
		ID:          req.ID,
		Title:       req.Title,
		Content:     req.Content,
		ContentType: req.ContentType,
		Metadata:    metadataFromDTO(req.Metadata),
	}
}

func documentToResponse(doc *domdoc.Document) documentResponse {
	return documentResponse{
		ID:          doc.ID(),
		Title:       doc.Title(),
		Content:     doc.Content(),
		ContentType: doc.ContentType(),
		Metadata:    metadataToDTO(doc.Metadata()),
		WordCount:   doc.WordCount(),
		HasVector:   len(doc.Embedding()) > 0,
		CreatedAt:   doc.CreatedAt(),
		UpdatedAt:   doc.UpdatedAt(),
	}
}

func jobToResponse(job dombatch.Job) jobResponse {
	ok, failed := dombatch.Tally(job.Results())

	var items []jobItemResponse
	if len(job.Results()) > 0 {
		items = make([]jobItemResponse, len(job.Results()))
		for i, res := range job.Results() {
			item := jobItemResponse{ID: res.ID(), Status: string(res.Status())}
			if res.Err() != nil {
				item.Error = safeDomainMessage(res.Err())
			}
			items[i] = item
		}
	}

	return jobResponse{
		JobID:     job.ID(),
		Status:    string(job.Status()),
		Total:     job.Total(),
		Succeeded: ok,
		Failed:    failed,
		Items:     items,
		CreatedAt: job.CreatedAt(),
		UpdatedAt: job.UpdatedAt(),
	}
}

func searchToResponse(resp *searchuc.Response) searchResponseDTO {
	results := make([]searchResultDTO, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = searchResultDTO{
			ID:      r.ID,
			Title:   r.Title,
			Content: r.Content,
			Scores: searchScoresDTO{
				TextScore:   r.Scores.Text,
				VectorScore: r.Scores.Vector,
				FinalScore:  r.Scores.Final,
			},
			Metadata:   metadataToDTO(r.Metadata),
			Highlights: r.Highlights,
		}
	}

	return searchResponseDTO{
		QueryInfo: queryInfoDTO{
			Raw:          resp.QueryInfo.Raw,
			TokenCount:   resp.QueryInfo.TokenCount,
			Fields:       resp.QueryInfo.Fields,
			FieldWeights: resp.QueryInfo.FieldWeights,
			VectorWeight: resp.QueryInfo.VectorWeight,
			TextWeight:   resp.QueryInfo.TextWeight,
		},
		Results: results,
		Analytics: analyticsDTO{
			ExecutionTimeMs: resp.Analytics.ExecutionTime.Milliseconds(),
			TotalResults:    resp.Analytics.TotalResults,
			MaxScore:        resp.Analytics.MaxScore,
			SearchType:      resp.Analytics.SearchType,
			Degraded:        resp.Analytics.Degraded,
			Truncated:       resp.Analytics.Truncated,
		},
	}
}
