package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/entity"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/vo"
)

var (
	// ErrNotFound is returned when no record exists (or it expired).
	ErrNotFound = errors.New("job record not found")
	// ErrAlreadyExists is returned when creating a record whose id is taken.
	ErrAlreadyExists = errors.New("job record already exists")
	// ErrUnavailable wraps infrastructure-level store failures; callers treat
	// the whole attempt as retryable.
	ErrUnavailable = errors.New("job store unavailable")
)

// JobUpdate is a partial field set applied by Merge. Nil pointers leave the
// corresponding field untouched.
type JobUpdate struct {
	Status    *vo.JobStatus
	Stage     *string
	Progress  *int
	Artifacts []entity.Artifact
	Error     *string
}

// JobRepository is the durable, TTL-bounded store of job records.
//
// Writes to one job come only from the worker owning it and are strictly
// sequential; Merge must still be atomic per call so that readers never
// observe a partial-field tear.
type JobRepository interface {
	// Create stores a new record, failing with ErrAlreadyExists on conflict.
	Create(ctx context.Context, job *entity.Job) error
	// Get returns a snapshot of the record or ErrNotFound.
	Get(ctx context.Context, id string) (*entity.Job, error)
	// Merge applies a shallow field merge plus an updated_at refresh and
	// returns the resulting record. Every write re-arms the record TTL.
	Merge(ctx context.Context, id string, update JobUpdate) (*entity.Job, error)
}

// ApplyUpdate merges the partial update into a copy of the record, enforcing
// the forward-only status lifecycle and monotonic progress. Shared by store
// implementations so the rules live in one place.
func ApplyUpdate(job *entity.Job, update JobUpdate) (*entity.Job, error) {
	next := *job

	if update.Status != nil {
		if *update.Status != next.Status {
			if !next.Status.CanTransitionTo(*update.Status) {
				return nil, fmt.Errorf("invalid status transition: %s -> %s", next.Status, *update.Status)
			}
			next.Status = *update.Status
		}
	}
	if update.Stage != nil {
		next.Stage = *update.Stage
	}
	if update.Progress != nil && *update.Progress > next.Progress {
		next.Progress = *update.Progress
	}
	if update.Artifacts != nil {
		next.Artifacts = update.Artifacts
	}
	if update.Error != nil {
		next.Error = *update.Error
	}
	next.UpdatedAt = time.Now().UTC()

	return &next, nil
}

// StatusPtr is a convenience for building JobUpdate literals.
func StatusPtr(s vo.JobStatus) *vo.JobStatus { return &s }

// StringPtr is a convenience for building JobUpdate literals.
func StringPtr(s string) *string { return &s }

// IntPtr is a convenience for building JobUpdate literals.
func IntPtr(i int) *int { return &i }
