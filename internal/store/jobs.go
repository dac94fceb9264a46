package store

import (
	"sort"
	"sync"
	"time"

	"tmplq/internal/apperr"
)

// JobStore is the single source of truth for job state.
//
// Every method works on copies: callers never hold a pointer into the store, so a
// reader can not observe a job halfway through a transition. Result, Error and the
// timestamps are written once and never mutated afterwards, which makes sharing
// them between copies safe.
type JobStore struct {
	mu     sync.RWMutex
	jobs   map[int64]*Job
	lastID int64
}

// NewJobStore returns an empty store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[int64]*Job)}
}

// Create allocates the next id and stores a QUEUED job.
func (s *JobStore) Create(templateID string, params map[string]any, now time.Time) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	j := &Job{
		ID:         s.lastID,
		Status:     JobStatusQueued,
		TemplateID: templateID,
		Params:     params,
		EnqueuedAt: now,
	}
	s.jobs[j.ID] = j
	return *j
}

// Get returns a snapshot of the job.
func (s *JobStore) Get(id int64) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return Job{}, apperr.New(apperr.NotFound, "job %d not found", id)
	}
	return *j, nil
}

// List returns snapshots of all jobs ordered by ascending id.
func (s *JobStore) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out
}

// CountByStatus returns the number of jobs in each status.
func (s *JobStore) CountByStatus() map[JobStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[JobStatus]int, 4)
	for _, j := range s.jobs {
		counts[j.Status]++
	}
	return counts
}

// Start moves a QUEUED job to PROCESSING.
func (s *JobStore) Start(id int64, now time.Time) (Job, error) {
	return s.transition(id, JobStatusProcessing, func(j *Job) {
		j.StartedAt = &now
	})
}

// Succeed moves a PROCESSING job to SUCCEEDED with the given result.
// The result duration is computed from the job's start time.
func (s *JobStore) Succeed(id int64, result JobResult, now time.Time) (Job, error) {
	return s.transition(id, JobStatusSucceeded, func(j *Job) {
		result.Duration = now.Sub(*j.StartedAt)
		j.Result = &result
		j.DoneAt = &now
	})
}

// Fail moves a PROCESSING job to FAILED.
func (s *JobStore) Fail(id int64, jobErr JobError, now time.Time) (Job, error) {
	return s.transition(id, JobStatusFailed, func(j *Job) {
		j.Error = &jobErr
		j.DoneAt = &now
	})
}

func (s *JobStore) transition(id int64, to JobStatus, apply func(*Job)) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return Job{}, apperr.New(apperr.NotFound, "job %d not found", id)
	}
	if !canTransition(j.Status, to) {
		return *j, apperr.Wrap(apperr.Internal, &TransitionError{JobID: id, From: j.Status, To: to}, "")
	}

	next := *j
	next.Status = to
	apply(&next)
	s.jobs[id] = &next
	return next, nil
}
