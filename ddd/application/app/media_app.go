package app

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/Patricklolilol/ffmpeg-service/ddd/application/dto"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/entity"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/repo"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/vo"
	"github.com/Patricklolilol/ffmpeg-service/ddd/infrastructure/queue"
	"github.com/Patricklolilol/ffmpeg-service/pkg/config"
	"github.com/Patricklolilol/ffmpeg-service/pkg/errno"
	"github.com/Patricklolilol/ffmpeg-service/pkg/logger"
)

// MediaApp is the application service behind the HTTP boundary: submit a
// source URL, poll a job, cancel a queued job.
type MediaApp interface {
	Submit(ctx context.Context, mediaURL string) (*dto.ProcessResponse, error)
	Info(ctx context.Context, jobID string) (*dto.JobInfoResponse, error)
	Cancel(ctx context.Context, jobID string) (*dto.CancelResponse, error)
	// ArtifactPath resolves a download name to the local file path, verifying
	// the name against the owning job's record.
	ArtifactPath(ctx context.Context, name string) (string, error)
}

type mediaAppImpl struct {
	jobs       repo.JobRepository
	jobQueue   queue.JobQueue
	outputRoot string
	public     config.PublicConfig
}

// NewMediaApp wires the application service.
func NewMediaApp(jobs repo.JobRepository, jobQueue queue.JobQueue, outputRoot string, public config.PublicConfig) MediaApp {
	return &mediaAppImpl{
		jobs:       jobs,
		jobQueue:   jobQueue,
		outputRoot: outputRoot,
		public:     public,
	}
}

// Submit validates the source URL, persists a queued record and hands the job
// id to the queue. The record is created before enqueueing so a worker that
// claims the id immediately always finds it.
func (a *mediaAppImpl) Submit(ctx context.Context, mediaURL string) (*dto.ProcessResponse, error) {
	if strings.TrimSpace(mediaURL) == "" {
		return nil, errno.ErrMediaURLRequired
	}
	if !isHTTPURL(mediaURL) {
		return nil, errno.ErrMediaURLInvalid
	}

	job := entity.NewJob(uuid.NewString(), mediaURL)
	if err := a.jobs.Create(ctx, job); err != nil {
		return nil, a.mapRepoError(err)
	}

	if err := a.jobQueue.Enqueue(ctx, job.ID); err != nil {
		// The record exists but no worker will ever see it; mark it failed so
		// the client is not left polling a zombie.
		a.markEnqueueFailed(ctx, job.ID, err)
		if errors.Is(err, queue.ErrQueueFull) {
			return nil, errno.ErrQueueFull
		}
		return nil, errno.ErrInternalServer
	}

	logger.Infof("job submitted job_id=%s source=%s", job.ID, mediaURL)
	return &dto.ProcessResponse{
		JobID:  job.ID,
		Status: job.Status.String(),
	}, nil
}

func (a *mediaAppImpl) Info(ctx context.Context, jobID string) (*dto.JobInfoResponse, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, errno.ErrJobIDRequired
	}

	job, err := a.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, a.mapRepoError(err)
	}

	resp := &dto.JobInfoResponse{
		JobID:      job.ID,
		Status:     job.Status.String(),
		Stage:      job.Stage,
		Progress:   job.Progress,
		Error:      job.Error,
		Clips:      a.artifactURLs(job, entity.ArtifactClip),
		Thumbnails: a.artifactURLs(job, entity.ArtifactThumbnail),
		Subtitles:  a.artifactURLs(job, entity.ArtifactSubtitle),
		CreatedAt:  job.CreatedAt,
		UpdatedAt:  job.UpdatedAt,
	}
	// The first clip doubles as the converted-media URL for clients that
	// only want a single playable output.
	if len(resp.Clips) > 0 {
		resp.Conversion = resp.Clips[0]
	}
	return resp, nil
}

// Cancel withdraws a job that is still waiting in the queue. Once a worker
// has claimed the job the cancellation is refused.
func (a *mediaAppImpl) Cancel(ctx context.Context, jobID string) (*dto.CancelResponse, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, errno.ErrJobIDRequired
	}

	job, err := a.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, a.mapRepoError(err)
	}
	if job.Status != vo.JobStatusQueued {
		return nil, errno.ErrJobNotCancellable
	}

	removed, err := a.jobQueue.Remove(ctx, jobID)
	if err != nil {
		logger.Warnf("queue removal failed job_id=%s error=%v", jobID, err)
		return nil, errno.ErrInternalServer
	}
	if !removed {
		return nil, errno.ErrJobNotCancellable
	}

	job, err = a.jobs.Merge(ctx, jobID, repo.JobUpdate{
		Status: repo.StatusPtr(vo.JobStatusFailed),
		Stage:  repo.StringPtr("cancelled"),
		Error:  repo.StringPtr("cancelled by request"),
	})
	if err != nil {
		return nil, a.mapRepoError(err)
	}

	logger.Infof("job cancelled job_id=%s", jobID)
	return &dto.CancelResponse{
		JobID:  job.ID,
		Status: job.Status.String(),
		Stage:  job.Stage,
	}, nil
}

// ArtifactPath maps a download name like "<job_id>_clip1.mp4" back to the
// owning job and returns the local file path. Names not listed on the job's
// record are refused, which also rules out path traversal.
func (a *mediaAppImpl) ArtifactPath(ctx context.Context, name string) (string, error) {
	if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return "", errno.ErrArtifactIllegal
	}

	// Artifact names are "<job_id>_<suffix>" with a 36-char uuid id.
	if len(name) < 38 || name[36] != '_' {
		return "", errno.ErrArtifactIllegal
	}
	jobID := name[:36]

	job, err := a.jobs.Get(ctx, jobID)
	if err != nil {
		return "", a.mapRepoError(err)
	}

	for _, art := range job.Artifacts {
		if art.Name == name {
			return filepath.Join(a.outputRoot, jobID, name), nil
		}
	}
	return "", errno.ErrArtifactNotFound
}

// artifactURLs builds client-facing URLs for artifacts of one kind. Published
// artifacts point at object storage when a public storage base is configured;
// everything else is served from the local download endpoint.
func (a *mediaAppImpl) artifactURLs(job *entity.Job, kind entity.ArtifactKind) []string {
	downloadBase := a.public.DownloadBase
	if downloadBase == "" {
		downloadBase = "/download"
	}

	var urls []string
	for _, art := range job.Artifacts {
		if art.Kind != kind {
			continue
		}
		if art.ObjectKey != "" && a.public.StorageBase != "" {
			urls = append(urls, strings.TrimRight(a.public.StorageBase, "/")+"/"+art.ObjectKey)
			continue
		}
		urls = append(urls, strings.TrimRight(downloadBase, "/")+"/"+art.Name)
	}
	return urls
}

func (a *mediaAppImpl) markEnqueueFailed(ctx context.Context, jobID string, cause error) {
	_, err := a.jobs.Merge(ctx, jobID, repo.JobUpdate{
		Status: repo.StatusPtr(vo.JobStatusFailed),
		Stage:  repo.StringPtr("enqueue_failed"),
		Error:  repo.StringPtr(cause.Error()),
	})
	if err != nil {
		logger.Warnf("failed to mark enqueue failure job_id=%s error=%v", jobID, err)
	}
}

func (a *mediaAppImpl) mapRepoError(err error) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return errno.ErrJobNotFound
	case errors.Is(err, repo.ErrAlreadyExists):
		return errno.ErrJobExists
	case errors.Is(err, repo.ErrUnavailable):
		return errno.ErrStoreDown
	default:
		return errno.ErrInternalServer
	}
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
