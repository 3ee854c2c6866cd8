// Package jobs defines background import jobs and the queue contracts that run them.
package jobs

import (
	"context"
	"fmt"
	"time"
)

// JobType names the kind of work a job carries.
type JobType string

// JobTypeImportStatement imports a bank export stored in GCS.
const JobTypeImportStatement JobType = "import_statement"

// JobStatus is the lifecycle position of a job.
//
//	pending -> running -> completed
//	                   -> retrying -> running ...
//	                   -> failed
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// Final reports whether no further transitions happen from s.
func (s JobStatus) Final() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ParseJobStatus accepts one of the known status names. The empty string
// parses to the empty status, meaning "any" in filters.
func ParseJobStatus(s string) (JobStatus, error) {
	switch st := JobStatus(s); st {
	case "", JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusRetrying:
		return st, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// ImportStatementJob asks a worker to import one CSV or PDF export from GCS.
type ImportStatementJob struct {
	JobID    string `json:"job_id"`
	ImportID string `json:"import_id,omitempty"` // imports row, once the pipeline has recorded it
	GCSURI   string `json:"gcs_uri"`
	Format   string `json:"format,omitempty"` // csv, pdf or empty to detect

	Status JobStatus `json:"status"`
	Error  string    `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Transactions is how many transactions the last successful run stored.
	Transactions int `json:"transactions"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Job is what a JobHandler receives.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *ImportStatementJob) GetID() string        { return j.JobID }
func (j *ImportStatementJob) GetType() JobType     { return JobTypeImportStatement }
func (j *ImportStatementJob) GetStatus() JobStatus { return j.Status }

// Publisher enqueues jobs.
type Publisher interface {
	PublishImportStatement(ctx context.Context, job *ImportStatementJob) error
	Close() error
}

// Consumer runs a handler over queued jobs until stopped.
type Consumer interface {
	Start(ctx context.Context, handler JobHandler) error
	// Stop waits for in-flight jobs to finish.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. A returned error makes the queue retry the
// job until its MaxRetries are used up.
type JobHandler func(ctx context.Context, job Job) error

// JobStore keeps job state for status queries.
type JobStore interface {
	SaveJob(ctx context.Context, job *ImportStatementJob) error
	GetJob(ctx context.Context, jobID string) (*ImportStatementJob, error)
	// ListJobs returns matching jobs, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ImportStatementJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter narrows ListJobs. Zero fields match everything.
type JobFilter struct {
	ImportID string
	Status   JobStatus
	Limit    int
	Offset   int
}
