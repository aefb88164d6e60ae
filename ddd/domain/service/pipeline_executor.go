package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/entity"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/gateway"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/port"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/repo"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/vo"
	"github.com/Patricklolilol/ffmpeg-service/pkg/logger"
)

// PipelineExecutor runs the ordered stage sequence for one job, persisting
// incremental state after every stage.
type PipelineExecutor interface {
	// Run executes the pipeline for the job id and returns the terminal
	// record. Stage failures are absorbed into the record; only store
	// failures are returned as errors, leaving the attempt retryable.
	Run(ctx context.Context, jobID string) (*entity.Job, error)
}

// ExecutorOptions configures a pipeline executor. Time limits on external
// tools are owned by the stage adapters, per invocation, so a degraded retry
// after a timed-out attempt still gets a full budget.
type ExecutorOptions struct {
	// OutputRoot is the directory under which per-job work dirs are created.
	OutputRoot string
}

type pipelineExecutor struct {
	jobs     repo.JobRepository
	stages   []port.Stage
	reporter gateway.JobEventReporter
	opts     ExecutorOptions
}

// NewPipelineExecutor assembles the executor over an ordered stage list.
// The reporter may be nil when no event stream is configured.
func NewPipelineExecutor(jobs repo.JobRepository, stages []port.Stage, reporter gateway.JobEventReporter, opts ExecutorOptions) PipelineExecutor {
	return &pipelineExecutor{
		jobs:     jobs,
		stages:   stages,
		reporter: reporter,
		opts:     opts,
	}
}

func (e *pipelineExecutor) Run(ctx context.Context, jobID string) (*entity.Job, error) {
	job, err := e.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.IsTerminal() {
		// Re-claimed descriptor for a job that already finished (or was
		// cancelled while queued). Nothing to do.
		return job, nil
	}

	sc := &port.StageContext{
		JobID:   job.ID,
		Source:  job.Source,
		WorkDir: filepath.Join(e.opts.OutputRoot, job.ID),
	}
	if err := os.MkdirAll(sc.WorkDir, 0o755); err != nil {
		return e.fail(ctx, job, vo.StageDownloading, fmt.Sprintf("create work dir: %v", err))
	}

	running := vo.JobStatusRunning
	job, err = e.jobs.Merge(ctx, job.ID, repo.JobUpdate{Status: &running})
	if err != nil {
		return nil, err
	}

	lastProgress := job.Progress
	for _, stage := range e.stages {
		target := stage.Name().Progress()
		if target < lastProgress {
			target = lastProgress
		}
		lastProgress = target

		job, err = e.jobs.Merge(ctx, job.ID, repo.JobUpdate{
			Stage:     repo.StringPtr(stage.Name().String()),
			Progress:  &target,
			Artifacts: sc.Artifacts,
		})
		if err != nil {
			return nil, err
		}

		stageErr := stage.Execute(ctx, sc)
		if stageErr == nil {
			continue
		}

		var se *port.StageError
		if errors.As(stageErr, &se) && se.Skippable && stage.Optional() {
			logger.Warnf("optional stage skipped job_id=%s stage=%s reason=%v", job.ID, stage.Name(), stageErr)
			continue
		}
		return e.fail(ctx, job, stage.Name(), stageErr.Error())
	}

	completed := vo.JobStatusCompleted
	job, err = e.jobs.Merge(ctx, job.ID, repo.JobUpdate{
		Status:    &completed,
		Stage:     repo.StringPtr(vo.StageCompleted.String()),
		Progress:  repo.IntPtr(vo.StageCompleted.Progress()),
		Artifacts: sc.Artifacts,
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("job completed job_id=%s artifacts=%d", job.ID, len(job.Artifacts))
	if e.reporter != nil {
		if rerr := e.reporter.ReportCompleted(ctx, job); rerr != nil {
			logger.Warnf("job event report failed job_id=%s error=%v", job.ID, rerr)
		}
	}
	return job, nil
}

// fail writes the terminal failed record for a stage and absorbs the error.
func (e *pipelineExecutor) fail(ctx context.Context, job *entity.Job, stage vo.StageName, cause string) (*entity.Job, error) {
	failed := vo.JobStatusFailed
	job, err := e.jobs.Merge(ctx, job.ID, repo.JobUpdate{
		Status: &failed,
		Stage:  repo.StringPtr(stage.FailedLabel()),
		Error:  &cause,
	})
	if err != nil {
		return nil, err
	}

	logger.Errorf("job failed job_id=%s stage=%s error=%s", job.ID, stage, cause)
	if e.reporter != nil {
		if rerr := e.reporter.ReportFailed(ctx, job); rerr != nil {
			logger.Warnf("job event report failed job_id=%s error=%v", job.ID, rerr)
		}
	}
	return job, nil
}
