// Package store contains the in-memory state of tmplq.
// Nothing here is persisted; all state is lost when the process exits.
package store

import "time"

// Template is a named body containing placeholders.
type Template struct {
	ID           string
	Description  string
	Body         string
	SampleParams map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Job is one request to render a template with a set of parameters.
type Job struct {
	ID         int64
	Status     JobStatus
	TemplateID string
	Params     map[string]any
	EnqueuedAt time.Time
	StartedAt  *time.Time
	DoneAt     *time.Time

	// Result is set iff Status is SUCCEEDED.
	Result *JobResult
	// Error is set iff Status is FAILED.
	Error *JobError
}

// JobResult is the output of a successful render.
type JobResult struct {
	Output      string
	UsedKeys    []string
	MissingKeys []string
	// Duration is the time spent in PROCESSING.
	Duration time.Duration
}

// JobError describes why a job failed.
type JobError struct {
	Kind    string
	Message string
}

// HistoryEntry is a snapshot of a job taken when it reached a terminal state.
type HistoryEntry struct {
	Job     Job
	Preview string
}
