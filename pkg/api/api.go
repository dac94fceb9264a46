// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and Controller.
package api

import "time"

// CreateTemplateRequest is the request body for registering a template.
type CreateTemplateRequest struct {
	ID           string         `json:"id" validate:"required,max=128,excludesall=/"`
	Description  string         `json:"description,omitempty" validate:"max=1024"`
	Body         string         `json:"body" validate:"required"`
	SampleParams map[string]any `json:"sample_params,omitempty"`
}

// UpdateTemplateRequest is the request body for PUT /templates/{id}.
// Omitted fields keep their current value.
type UpdateTemplateRequest struct {
	Description  *string        `json:"description,omitempty" validate:"omitempty,max=1024"`
	Body         *string        `json:"body,omitempty"`
	SampleParams map[string]any `json:"sample_params,omitempty"`
}

// TemplateIDResponse is returned by template writes.
type TemplateIDResponse struct {
	ID      string `json:"id"`
	Created bool   `json:"created,omitempty"`
}

// TemplateResponse represents a template in API responses.
type TemplateResponse struct {
	ID           string         `json:"id"`
	Description  string         `json:"description,omitempty"`
	Body         string         `json:"body"`
	SampleParams map[string]any `json:"sample_params,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// SubmitJobRequest is the request body for submitting a render job.
// Params must be a JSON object; an absent or null value means {}.
type SubmitJobRequest struct {
	TemplateID string `json:"template_id" validate:"required"`
	Params     any    `json:"params,omitempty"`
}

// SubmitJobResponse is the response body after submitting a job.
type SubmitJobResponse struct {
	JobID int64 `json:"job_id"`
}

// JobSummary is the concise job representation used in listings.
type JobSummary struct {
	ID         int64      `json:"id"`
	Status     string     `json:"status"`
	TemplateID string     `json:"template_id"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	DoneAt     *time.Time `json:"done_at,omitempty"`
}

// JobResponse is the full job snapshot. Result and Error appear only once the job is terminal.
type JobResponse struct {
	JobSummary
	Params map[string]any `json:"params"`
	Result *JobResult     `json:"result,omitempty"`
	Error  *JobError      `json:"error,omitempty"`
}

// JobResult is the output of a successful render.
type JobResult struct {
	Output      string   `json:"output"`
	UsedKeys    []string `json:"used_keys"`
	MissingKeys []string `json:"missing_keys"`
	DurationMs  int64    `json:"duration_ms"`
}

// JobError describes why a job failed.
type JobError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// HistoryEntry is a terminal job snapshot with a bounded output preview.
type HistoryEntry struct {
	JobSummary
	DurationMs int64     `json:"duration_ms,omitempty"`
	Preview    string    `json:"preview,omitempty"`
	Error      *JobError `json:"error,omitempty"`
}

// DelayRange is the processing delay range in milliseconds.
type DelayRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Settings is the runtime configuration.
type Settings struct {
	QueueCapacity     int        `json:"queue_capacity"`
	HistoryCapacity   int        `json:"history_capacity"`
	MaxTemplateBytes  int        `json:"max_template_bytes"`
	ProcessingDelayMs DelayRange `json:"processing_delay_ms"`
}

// UpdateConfigResponse is returned after a successful config update.
type UpdateConfigResponse struct {
	Message string   `json:"message"`
	Config  Settings `json:"config"`
}

// StatsResponse summarizes the pipeline.
type StatsResponse struct {
	QueueDepth  int `json:"queue_depth"`
	Queued      int `json:"queued"`
	Processing  int `json:"processing"`
	Succeeded   int `json:"succeeded"`
	Failed      int `json:"failed"`
	TotalJobs   int `json:"total_jobs"`
	HistorySize int `json:"history_size"`
	Templates   int `json:"templates"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the standard error response format.
// Code is the error kind, e.g. "queue_full".
type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Details []string `json:"details,omitempty"`
}
