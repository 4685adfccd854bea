package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results plus per-index document
// counts.
type Report struct {
	Status  Status
	Checks  map[string]CheckResult
	Indexes map[string]int
}

// Service coordinates health checks.
type Service struct {
	store     DBPinger
	embedding EmbeddingChecker
	texts     IndexInspector
	vectors   IndexInspector
}

// New creates a Service. embedding can be nil.
func New(store DBPinger, embedding EmbeddingChecker, texts, vectors IndexInspector) *Service {
	return &Service{store: store, embedding: embedding, texts: texts, vectors: vectors}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.store.Ping(ctx); err != nil {
		checks["storage"] = CheckError
	} else {
		checks["storage"] = CheckOK
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	indexes := map[string]int{
		"text":   s.texts.DocCount(),
		"vector": s.vectors.DocCount(),
	}

	return Report{Status: status, Checks: checks, Indexes: indexes}
}
