package entity

import (
	"time"

	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/vo"
)

// ArtifactKind tags the role of a produced output file.
type ArtifactKind string

const (
	ArtifactClip       ArtifactKind = "clip"
	ArtifactThumbnail  ArtifactKind = "thumbnail"
	ArtifactSubtitle   ArtifactKind = "subtitle"
	ArtifactTranscript ArtifactKind = "transcript"
)

// Artifact references one produced output file by its job-scoped name.
type Artifact struct {
	Name      string       `json:"name"`
	Kind      ArtifactKind `json:"kind"`
	ObjectKey string       `json:"object_key,omitempty"`
}

// Job is the persisted record of one media-processing request.
//
// A job's fields are mutated by exactly one worker at a time; the status
// query path only ever reads snapshots.
type Job struct {
	ID        string       `json:"id"`
	Source    string       `json:"source"`
	Status    vo.JobStatus `json:"status"`
	Stage     string       `json:"stage"`
	Progress  int          `json:"progress"`
	Artifacts []Artifact   `json:"artifacts,omitempty"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewJob creates a queued job record for a freshly submitted source URL.
func NewJob(id, source string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        id,
		Source:    source,
		Status:    vo.JobStatusQueued,
		Stage:     vo.JobStatusQueued.String(),
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsTerminal reports whether the job reached a final state.
func (j *Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// ArtifactNames returns the names of artifacts of the given kind, in order.
func (j *Job) ArtifactNames(kind ArtifactKind) []string {
	var names []string
	for _, a := range j.Artifacts {
		if a.Kind == kind {
			names = append(names, a.Name)
		}
	}
	return names
}
