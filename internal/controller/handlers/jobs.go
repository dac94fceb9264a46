package handlers

import (
	"net/http"
	"strconv"

	"tmplq/internal/apperr"
	"tmplq/internal/store"
	"tmplq/pkg/api"
)

// SubmitJob handles POST /jobs.
// It enqueues a render job and returns immediately with the job id.
func (h *Handlers) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitJobRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.check(req); err != nil {
		h.respondError(w, r, err)
		return
	}

	id, err := h.svc.SubmitJob(r.Context(), req.TemplateID, req.Params)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJson(w, http.StatusAccepted, api.SubmitJobResponse{JobID: id})
}

// GetJob handles GET /jobs/{id}.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.httpError(w, "Invalid job id", apperr.BadRequest)
		return
	}

	job, err := h.svc.GetJob(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJson(w, http.StatusOK, jobResponse(job))
}

// ListJobs handles GET /jobs.
// Jobs are listed without their result or error payloads.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.svc.ListJobs(r.Context())

	resp := make([]api.JobSummary, 0, len(jobs))
	for _, j := range jobs {
		resp = append(resp, jobSummary(j))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// GetHistory handles GET /history.
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	entries := h.svc.HistoryEntries(r.Context())

	resp := make([]api.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		entry := api.HistoryEntry{
			JobSummary: jobSummary(e.Job),
			Preview:    e.Preview,
			Error:      jobError(e.Job.Error),
		}
		if e.Job.Result != nil {
			entry.DurationMs = e.Job.Result.Duration.Milliseconds()
		}
		resp = append(resp, entry)
	}
	h.respondJson(w, http.StatusOK, resp)
}

func jobSummary(j store.Job) api.JobSummary {
	return api.JobSummary{
		ID:         j.ID,
		Status:     string(j.Status),
		TemplateID: j.TemplateID,
		EnqueuedAt: j.EnqueuedAt,
		StartedAt:  j.StartedAt,
		DoneAt:     j.DoneAt,
	}
}

func jobResponse(j store.Job) api.JobResponse {
	resp := api.JobResponse{
		JobSummary: jobSummary(j),
		Params:     j.Params,
		Error:      jobError(j.Error),
	}
	if j.Result != nil {
		resp.Result = &api.JobResult{
			Output:      j.Result.Output,
			UsedKeys:    nonNil(j.Result.UsedKeys),
			MissingKeys: nonNil(j.Result.MissingKeys),
			DurationMs:  j.Result.Duration.Milliseconds(),
		}
	}
	return resp
}

func jobError(e *store.JobError) *api.JobError {
	if e == nil {
		return nil
	}
	return &api.JobError{Kind: e.Kind, Message: e.Message}
}

// nonNil keeps empty key lists encoding as [] rather than null.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
