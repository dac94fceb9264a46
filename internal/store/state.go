package store

import "fmt"

// JobStatus represents the state of a job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "QUEUED"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusSucceeded  JobStatus = "SUCCEEDED"
	JobStatusFailed     JobStatus = "FAILED"
)

// IsTerminal reports whether no further transition is possible from s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// TransitionError is returned when a job is asked to move to a state it cannot reach.
type TransitionError struct {
	JobID int64
	From  JobStatus
	To    JobStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("job %d: invalid transition %s -> %s", e.JobID, e.From, e.To)
}

// canTransition encodes QUEUED -> PROCESSING -> {SUCCEEDED | FAILED}.
func canTransition(from, to JobStatus) bool {
	switch from {
	case JobStatusQueued:
		return to == JobStatusProcessing
	case JobStatusProcessing:
		return to == JobStatusSucceeded || to == JobStatusFailed
	default:
		return false
	}
}
