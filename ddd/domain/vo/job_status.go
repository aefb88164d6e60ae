package vo

// JobStatus is the coarse lifecycle of a media job.
type JobStatus string

const (
	// JobStatusQueued means the job is waiting for a worker.
	JobStatusQueued JobStatus = "queued"
	// JobStatusRunning means a worker owns the job and the pipeline is executing.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted means every stage finished.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed means a terminal stage failure or a queued-state cancellation.
	JobStatusFailed JobStatus = "failed"
)

// IsValid checks whether the status is a known lifecycle value.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusQueued, JobStatusRunning, JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the status label.
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions may occur.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo enforces the forward-only lifecycle:
// queued -> running -> {completed|failed}, plus queued -> failed for
// cancellation before a worker claims the job.
func (s JobStatus) CanTransitionTo(target JobStatus) bool {
	switch s {
	case JobStatusQueued:
		return target == JobStatusRunning || target == JobStatusFailed
	case JobStatusRunning:
		return target == JobStatusCompleted || target == JobStatusFailed
	default:
		return false
	}
}
