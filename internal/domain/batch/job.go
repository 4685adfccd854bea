package batch

import (
	"time"

	"github.com/kailas-cloud/lexivec/internal/domain"
)

// JobStatus is the lifecycle state of a batch ingest job.
type JobStatus string

// Job status values. A job moves Pending -> Processing -> Completed or
// Failed; there are no other transitions.
const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Job tracks one asynchronous batch ingest.
type Job struct {
	id        string
	status    JobStatus
	total     int
	results   []Result
	createdAt time.Time
	updatedAt time.Time
}

// NewJob creates a pending job for total items.
func NewJob(id string, total int) Job {
	now := time.Now().UTC()
	return Job{id: id, status: JobPending, total: total, createdAt: now, updatedAt: now}
}

// ReconstructJob rebuilds a job from stored state.
func ReconstructJob(
	id string, status JobStatus, total int,
	results []Result, createdAt, updatedAt time.Time,
) Job {
	return Job{
		id: id, status: status, total: total,
		results: results, createdAt: createdAt, updatedAt: updatedAt,
	}
}

// ID returns the job identifier.
func (j Job) ID() string { return j.id }

// Status returns the lifecycle state.
func (j Job) Status() JobStatus { return j.status }

// Total returns the number of items submitted with the job.
func (j Job) Total() int { return j.total }

// Results returns per-item outcomes; empty until the job finishes.
func (j Job) Results() []Result { return j.results }

// CreatedAt returns when the job was submitted.
func (j Job) CreatedAt() time.Time { return j.createdAt }

// UpdatedAt returns the time of the last transition.
func (j Job) UpdatedAt() time.Time { return j.updatedAt }

// Start transitions the job to processing.
func (j Job) Start() (Job, error) {
	if j.status != JobPending {
		return j, domain.ErrWriteConflict
	}
	j.status = JobProcessing
	j.updatedAt = time.Now().UTC()
	return j, nil
}

// Finish records per-item outcomes and settles the terminal status:
// Failed when every item failed, Completed otherwise.
func (j Job) Finish(results []Result) (Job, error) {
	if j.status != JobProcessing {
		return j, domain.ErrWriteConflict
	}
	ok, _ := Tally(results)
	j.results = results
	j.status = JobCompleted
	if len(results) > 0 && ok == 0 {
		j.status = JobFailed
	}
	j.updatedAt = time.Now().UTC()
	return j, nil
}
