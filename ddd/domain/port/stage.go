package port

import (
	"context"
	"fmt"

	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/entity"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/vo"
)

// StageContext carries the inputs accumulated across earlier stages of one
// job's pipeline run. Each stage reads what it needs and records what it
// produced; the executor owns the instance for the whole run.
type StageContext struct {
	JobID   string
	Source  string
	WorkDir string

	// InputFile is the fetched source media, set by the fetch stage.
	InputFile string
	// Duration is the probed media duration in seconds.
	Duration float64
	// MasterFile is the transcoded mp4, set by the convert stage.
	MasterFile string
	// ClipPlan is the highlight plan computed by the clip stage.
	ClipPlan vo.ClipPlan
	// ClipFiles are local paths of produced clips, in plan order.
	ClipFiles []string
	// SubtitleFile is the .srt produced by the transcribe stage, if any.
	SubtitleFile string

	// Artifacts accumulates the downloadable outputs registered so far.
	Artifacts []entity.Artifact
}

// AddArtifact registers a produced output file.
func (sc *StageContext) AddArtifact(name string, kind entity.ArtifactKind) {
	sc.Artifacts = append(sc.Artifacts, entity.Artifact{Name: name, Kind: kind})
}

// Stage adapts one external operation into a uniform pipeline step.
type Stage interface {
	// Name is the stage label written to the job record while running.
	Name() vo.StageName
	// Optional marks stages whose failure must not abort the pipeline.
	Optional() bool
	// Execute runs the stage against the accumulated context. Failures are
	// reported as *StageError; any other error is treated as terminal.
	Execute(ctx context.Context, sc *StageContext) error
}

// StageError reports a stage failure with enough diagnostic detail to
// distinguish fetch, missing-file and conversion failures.
type StageError struct {
	Stage      vo.StageName
	Message    string
	Diagnostic string
	Skippable  bool
	Err        error
}

// Error formats the failure for the job record and logs.
func (e *StageError) Error() string {
	if e.Diagnostic == "" {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Stage, e.Message, e.Diagnostic)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError builds a terminal stage failure.
func NewStageError(stage vo.StageName, message, diagnostic string, err error) *StageError {
	return &StageError{Stage: stage, Message: message, Diagnostic: diagnostic, Err: err}
}

// NewSkippableError builds a failure the executor may step over.
func NewSkippableError(stage vo.StageName, message, diagnostic string, err error) *StageError {
	return &StageError{Stage: stage, Message: message, Diagnostic: diagnostic, Skippable: true, Err: err}
}
