package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lexivec/internal/domain"
	"github.com/kailas-cloud/lexivec/internal/logger"
	"github.com/kailas-cloud/lexivec/internal/metrics"
	healthuc "github.com/kailas-cloud/lexivec/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/lexivec/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/lexivec/internal/usecase/search"
)

// Error codes returned in the JSON error envelope.
const (
	codeBadRequest           = "bad_request"
	codeInvalidQuery         = "invalid_query"
	codeValidationFailed     = "validation_failed"
	codeDocumentNotFound     = "document_not_found"
	codeJobNotFound          = "job_not_found"
	codeWriteConflict        = "write_conflict"
	codeDimensionMismatch    = "dimension_mismatch"
	codeEmbeddingUnavailable = "embedding_unavailable"
	codeEmbeddingTimeout     = "embedding_timeout"
	codeSearchTimeout        = "search_timeout"
	codeInternalError        = "internal_error"
)

// DocCounter reports how many documents an index holds.
type DocCounter interface {
	DocCount() int
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the search engine over HTTP.
type Server struct {
	search        *searchuc.Service
	ingest        *ingestuc.Service
	health        *healthuc.Service
	texts         DocCounter
	vectors       DocCounter
	logger        *zap.Logger
	baseOpts      searchuc.Options
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	ingest *ingestuc.Service,
	health *healthuc.Service,
	texts DocCounter,
	vectors DocCounter,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:  search,
		ingest:  ingest,
		health:  health,
		texts:   texts,
		vectors: vectors,
		logger:  logger,

		baseOpts: searchuc.Options{UseVector: true},
	}
	s.errorHandlers = []errorHandler{
		unclosedPhraseHandler,
		dimensionMismatchHandler,
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, codeInvalidQuery),
		sentinelHandler(domain.ErrInvalidFieldSyntax, http.StatusBadRequest, codeInvalidQuery),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrJobNotFound, http.StatusNotFound, codeJobNotFound),
		sentinelHandler(domain.ErrWriteConflict, http.StatusConflict, codeWriteConflict),
		sentinelHandler(domain.ErrEmbeddingTimeout, http.StatusBadGateway, codeEmbeddingTimeout),
		sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusBadGateway, codeEmbeddingUnavailable),
		sentinelHandler(domain.ErrSearchTimeout, http.StatusGatewayTimeout, codeSearchTimeout),
	}
	return s
}

// WithSearchDefaults replaces the baseline search options applied to
// requests that leave tuning parameters unset.
func (s *Server) WithSearchDefaults(opts searchuc.Options) *Server {
	s.baseOpts = opts
	return s
}

// Register mounts all routes on the given router. Middleware is the
// caller's concern.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.healthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents", s.ingestDocument)
		r.Post("/documents/batch", s.batchIngest)
		r.Get("/documents/{id}", s.getDocument)
		r.Delete("/documents/{id}", s.deleteDocument)
		r.Get("/search", s.searchDocuments)
		r.Get("/jobs/{id}", s.getJob)
	})
}

// ingestDocument handles POST /api/v1/documents.
func (s *Server) ingestDocument(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	doc, created, err := s.ingest.Ingest(r.Context(), ingestInputFromRequest(req))
	if err != nil {
		metrics.IngestTotal.WithLabelValues("ingest", "error").Inc()
		s.handleIngestError(w, r, err)
		return
	}
	metrics.IngestTotal.WithLabelValues("ingest", "ok").Inc()
	s.syncIndexGauges()

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		w.Header().Set("Location", "/api/v1/documents/"+doc.ID())
	}
	writeJSON(w, status, documentToResponse(&doc))
}

// batchIngest handles POST /api/v1/documents/batch.
func (s *Server) batchIngest(w http.ResponseWriter, r *http.Request) {
	var req batchIngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	items := make([]ingestuc.Input, len(req.Documents))
	for i, d := range req.Documents {
		items[i] = ingestInputFromRequest(d)
	}

	job, err := s.ingest.BatchIngest(r.Context(), items)
	if err != nil {
		metrics.IngestTotal.WithLabelValues("batch", "error").Inc()
		// Failures before the job is queued are batch size or
		// persistence problems.
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	metrics.IngestTotal.WithLabelValues("batch", "ok").Inc()

	writeJSON(w, http.StatusAccepted, jobToResponse(job))
}

// getDocument handles GET /api/v1/documents/{id}.
func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, err := s.ingest.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, documentToResponse(&doc))
}

// deleteDocument handles DELETE /api/v1/documents/{id}.
func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.ingest.Delete(r.Context(), id); err != nil {
		metrics.IngestTotal.WithLabelValues("delete", "error").Inc()
		s.handleDomainError(w, r, err)
		return
	}
	metrics.IngestTotal.WithLabelValues("delete", "ok").Inc()
	s.syncIndexGauges()

	w.WriteHeader(http.StatusNoContent)
}

// getJob handles GET /api/v1/jobs/{id}.
func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := s.ingest.Job(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jobToResponse(job))
}

// searchDocuments handles GET /api/v1/search.
func (s *Server) searchDocuments(w http.ResponseWriter, r *http.Request) {
	opts, err := searchOptionsFromQuery(r, s.baseOpts)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	resp, err := s.search.Search(r.Context(), r.URL.Query().Get("q"), opts)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("unknown", "error").Inc()
		s.handleDomainError(w, r, err)
		return
	}

	metrics.SearchRequestsTotal.WithLabelValues(
		resp.Analytics.SearchType, searchStatus(resp)).Inc()
	metrics.SearchDuration.WithLabelValues(resp.Analytics.SearchType).
		Observe(resp.Analytics.ExecutionTime.Seconds())

	writeJSON(w, http.StatusOK, searchToResponse(resp))
}

// healthCheck handles GET /health.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Indexes: report.Indexes,
	})
}

func searchStatus(resp *searchuc.Response) string {
	switch {
	case resp.Analytics.Truncated:
		return "truncated"
	case resp.Analytics.Degraded:
		return "degraded"
	default:
		return "ok"
	}
}

// searchOptionsFromQuery decodes tuning parameters from the URL query
// on top of the configured baseline.
func searchOptionsFromQuery(r *http.Request, base searchuc.Options) (searchuc.Options, error) {
	q := r.URL.Query()
	opts := base

	if v := q.Get("use_vector"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("use_vector must be a boolean")
		}
		opts.UseVector = b
	}
	if v := q.Get("require_vector"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("require_vector must be a boolean")
		}
		opts.RequireVector = b
	}

	intParams := map[string]*int{"limit": &opts.Limit, "offset": &opts.Offset}
	for name, dst := range intParams {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return opts, fmt.Errorf("%s must be a non-negative integer", name)
			}
			*dst = n
		}
	}

	floatParams := map[string]*float64{
		"min_score":     &opts.MinScore,
		"vector_weight": &opts.VectorWeight,
		"text_weight":   &opts.TextWeight,
	}
	for name, dst := range floatParams {
		if v := q.Get(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 {
				return opts, fmt.Errorf("%s must be a non-negative number", name)
			}
			*dst = f
		}
	}

	if v := q.Get("timeout_ms"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, fmt.Errorf("timeout_ms must be a positive integer")
		}
		opts.Timeout = time.Duration(n) * time.Millisecond
	}

	if v := q.Get("fields"); v != "" {
		weights, err := parseFieldWeights(v)
		if err != nil {
			return opts, err
		}
		opts.FieldWeights = weights
	}

	return opts, nil
}

// parseFieldWeights decodes "title:1.5,content:1.0" into a weight map.
// A bare field name gets weight 1.
func parseFieldWeights(raw string) (map[string]float64, error) {
	weights := make(map[string]float64)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, val, found := strings.Cut(part, ":")
		if name == "" {
			return nil, fmt.Errorf("fields: empty field name in %q", part)
		}
		if !found {
			weights[name] = 1.0
			continue
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("fields: weight for %q must be a positive number", name)
		}
		weights[name] = f
	}
	if len(weights) == 0 {
		return nil, fmt.Errorf("fields: no field weights given")
	}
	return weights, nil
}

// syncIndexGauges refreshes the per-index document count gauges.
func (s *Server) syncIndexGauges() {
	if s.texts != nil {
		metrics.IndexedDocuments.WithLabelValues("text").Set(float64(s.texts.DocCount()))
	}
	if s.vectors != nil {
		metrics.IndexedDocuments.WithLabelValues("vector").Set(float64(s.vectors.DocCount()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidDocument) {
		// Validation reasons carry no internals and help the caller.
		return err.Error()
	}
	sentinels := []error{
		domain.ErrEmptyQuery,
		domain.ErrUnclosedPhrase,
		domain.ErrInvalidFieldSyntax,
		domain.ErrDimensionMismatch,
		domain.ErrWriteConflict,
		domain.ErrCorruptPosting,
		domain.ErrDocumentNotFound,
		domain.ErrJobNotFound,
		domain.ErrEmbeddingUnavailable,
		domain.ErrEmbeddingTimeout,
		domain.ErrSearchTimeout,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// handleIngestError differs from handleDomainError only in that a
// document validation failure maps to 400 with the reason spelled out.
func (s *Server) handleIngestError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrInvalidDocument) {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	s.handleDomainError(w, r, err)
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// unclosedPhraseHandler reports the offset of the unbalanced quote when known.
func unclosedPhraseHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrUnclosedPhrase) {
		return false
	}
	var upe *domain.UnclosedPhraseError
	if errors.As(err, &upe) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"code":     codeInvalidQuery,
			"message":  msg,
			"position": upe.Position,
		})
		return true
	}
	writeError(w, http.StatusBadRequest, codeInvalidQuery, msg)
	return true
}

// dimensionMismatchHandler includes the observed and expected dimensions.
func dimensionMismatchHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		return false
	}
	var dme *domain.DimensionMismatchError
	if errors.As(err, &dme) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"code":    codeDimensionMismatch,
			"message": msg,
			"got":     dme.Got,
			"want":    dme.Want,
		})
		return true
	}
	writeError(w, http.StatusUnprocessableEntity, codeDimensionMismatch, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	// The request logger carries the request id when the canonical-log
	// middleware is installed.
	logger.FromContext(r.Context()).Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
