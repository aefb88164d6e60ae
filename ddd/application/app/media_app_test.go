package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/entity"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/repo"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/vo"
	"github.com/Patricklolilol/ffmpeg-service/ddd/infrastructure/queue"
	"github.com/Patricklolilol/ffmpeg-service/pkg/config"
	"github.com/Patricklolilol/ffmpeg-service/pkg/errno"
)

// fakeJobRepo is an in-memory JobRepository for application tests.
type fakeJobRepo struct {
	jobs map[string]*entity.Job
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[string]*entity.Job)}
}

func (f *fakeJobRepo) Create(_ context.Context, job *entity.Job) error {
	if _, ok := f.jobs[job.ID]; ok {
		return repo.ErrAlreadyExists
	}
	copied := *job
	f.jobs[job.ID] = &copied
	return nil
}

func (f *fakeJobRepo) Get(_ context.Context, id string) (*entity.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (f *fakeJobRepo) Merge(_ context.Context, id string, update repo.JobUpdate) (*entity.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	next, err := repo.ApplyUpdate(job, update)
	if err != nil {
		return nil, err
	}
	f.jobs[id] = next
	copied := *next
	return &copied, nil
}

// fakeJobQueue records queue interactions.
type fakeJobQueue struct {
	enqueued   []string
	enqueueErr error
	removed    []string
	removeOK   bool
}

func (f *fakeJobQueue) Enqueue(_ context.Context, jobID string) error {
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	f.enqueued = append(f.enqueued, jobID)
	return nil
}

func (f *fakeJobQueue) Dequeue(_ context.Context) (*queue.Claim, error) { return nil, nil }
func (f *fakeJobQueue) Ack(_ context.Context, _ *queue.Claim) error     { return nil }
func (f *fakeJobQueue) Extend(_ context.Context, _ *queue.Claim) error  { return nil }
func (f *fakeJobQueue) Size(_ context.Context) (int, error)             { return len(f.enqueued), nil }
func (f *fakeJobQueue) Close() error                                    { return nil }

func (f *fakeJobQueue) Remove(_ context.Context, jobID string) (bool, error) {
	f.removed = append(f.removed, jobID)
	return f.removeOK, nil
}

func newTestApp(jobs repo.JobRepository, q queue.JobQueue) MediaApp {
	return NewMediaApp(jobs, q, "outputs", config.PublicConfig{DownloadBase: "/download"})
}

func TestSubmitAcceptsValidURL(t *testing.T) {
	jobs := newFakeJobRepo()
	q := &fakeJobQueue{}
	a := newTestApp(jobs, q)

	resp, err := a.Submit(context.Background(), "https://example.com/v.mp4")
	require.NoError(t, err)

	assert.NotEmpty(t, resp.JobID)
	assert.Equal(t, "queued", resp.Status)
	assert.Equal(t, []string{resp.JobID}, q.enqueued)

	stored, err := jobs.Get(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, vo.JobStatusQueued, stored.Status)
}

func TestSubmitRejectsMissingURL(t *testing.T) {
	a := newTestApp(newFakeJobRepo(), &fakeJobQueue{})

	_, err := a.Submit(context.Background(), "   ")
	assert.ErrorIs(t, err, errno.ErrMediaURLRequired)
}

func TestSubmitRejectsNonHTTPURL(t *testing.T) {
	a := newTestApp(newFakeJobRepo(), &fakeJobQueue{})

	for _, raw := range []string{"ftp://example.com/v", "not a url", "https://"} {
		_, err := a.Submit(context.Background(), raw)
		assert.ErrorIs(t, err, errno.ErrMediaURLInvalid, "url %q", raw)
	}
}

func TestSubmitQueueFullFailsRecord(t *testing.T) {
	jobs := newFakeJobRepo()
	q := &fakeJobQueue{enqueueErr: queue.ErrQueueFull}
	a := newTestApp(jobs, q)

	_, err := a.Submit(context.Background(), "https://example.com/v.mp4")
	assert.ErrorIs(t, err, errno.ErrQueueFull)

	// The orphaned record must be terminal so clients are not left polling.
	require.Len(t, jobs.jobs, 1)
	for _, job := range jobs.jobs {
		assert.Equal(t, vo.JobStatusFailed, job.Status)
		assert.Equal(t, "enqueue_failed", job.Stage)
	}
}

func TestInfoUnknownJob(t *testing.T) {
	a := newTestApp(newFakeJobRepo(), &fakeJobQueue{})

	_, err := a.Info(context.Background(), "missing")
	assert.ErrorIs(t, err, errno.ErrJobNotFound)
}

func TestInfoProjectsArtifactsAsURLs(t *testing.T) {
	jobs := newFakeJobRepo()
	job := entity.NewJob("11111111-2222-3333-4444-555555555555", "https://example.com/v.mp4")
	job.Status = vo.JobStatusCompleted
	job.Stage = "completed"
	job.Progress = 100
	job.Artifacts = []entity.Artifact{
		{Name: job.ID + "_clip1.mp4", Kind: entity.ArtifactClip},
		{Name: job.ID + "_thumb1.jpg", Kind: entity.ArtifactThumbnail},
	}
	require.NoError(t, jobs.Create(context.Background(), job))

	a := newTestApp(jobs, &fakeJobQueue{})
	resp, err := a.Info(context.Background(), job.ID)
	require.NoError(t, err)

	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, 100, resp.Progress)
	require.Len(t, resp.Clips, 1)
	assert.Equal(t, "/download/"+job.ID+"_clip1.mp4", resp.Clips[0])
	assert.Equal(t, resp.Clips[0], resp.Conversion)
	require.Len(t, resp.Thumbnails, 1)
	assert.Equal(t, "/download/"+job.ID+"_thumb1.jpg", resp.Thumbnails[0])
}

func TestInfoUsesStorageBaseForPublishedArtifacts(t *testing.T) {
	jobs := newFakeJobRepo()
	job := entity.NewJob("11111111-2222-3333-4444-555555555555", "https://example.com/v.mp4")
	job.Artifacts = []entity.Artifact{
		{Name: job.ID + "_clip1.mp4", Kind: entity.ArtifactClip, ObjectKey: job.ID + "/" + job.ID + "_clip1.mp4"},
	}
	require.NoError(t, jobs.Create(context.Background(), job))

	a := NewMediaApp(jobs, &fakeJobQueue{}, "outputs", config.PublicConfig{
		DownloadBase: "/download",
		StorageBase:  "https://cdn.example.com/media",
	})
	resp, err := a.Info(context.Background(), job.ID)
	require.NoError(t, err)

	require.Len(t, resp.Clips, 1)
	assert.Equal(t, "https://cdn.example.com/media/"+job.ID+"/"+job.ID+"_clip1.mp4", resp.Clips[0])
}

func TestCancelQueuedJob(t *testing.T) {
	jobs := newFakeJobRepo()
	job := entity.NewJob("11111111-2222-3333-4444-555555555555", "https://example.com/v.mp4")
	require.NoError(t, jobs.Create(context.Background(), job))

	q := &fakeJobQueue{removeOK: true}
	a := newTestApp(jobs, q)

	resp, err := a.Cancel(context.Background(), job.ID)
	require.NoError(t, err)

	assert.Equal(t, "failed", resp.Status)
	assert.Equal(t, "cancelled", resp.Stage)
	assert.Equal(t, []string{job.ID}, q.removed)
}

func TestCancelRunningJobRefused(t *testing.T) {
	jobs := newFakeJobRepo()
	job := entity.NewJob("11111111-2222-3333-4444-555555555555", "https://example.com/v.mp4")
	job.Status = vo.JobStatusRunning
	require.NoError(t, jobs.Create(context.Background(), job))

	a := newTestApp(jobs, &fakeJobQueue{removeOK: true})
	_, err := a.Cancel(context.Background(), job.ID)
	assert.ErrorIs(t, err, errno.ErrJobNotCancellable)
}

func TestCancelAlreadyClaimedJobRefused(t *testing.T) {
	// Queued in the record but no longer in the pending queue: a worker has
	// it in flight between claim and the running merge.
	jobs := newFakeJobRepo()
	job := entity.NewJob("11111111-2222-3333-4444-555555555555", "https://example.com/v.mp4")
	require.NoError(t, jobs.Create(context.Background(), job))

	a := newTestApp(jobs, &fakeJobQueue{removeOK: false})
	_, err := a.Cancel(context.Background(), job.ID)
	assert.ErrorIs(t, err, errno.ErrJobNotCancellable)
}

func TestCancelClaimedJobRefusedWithMemoryQueue(t *testing.T) {
	jobs := newFakeJobRepo()
	q := queue.NewMemoryJobQueue(4)
	defer q.Close()
	a := newTestApp(jobs, q)

	resp, err := a.Submit(context.Background(), "https://example.com/v.mp4")
	require.NoError(t, err)

	// A worker pulls the claim before the record advances past queued.
	claim, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, resp.JobID, claim.JobID)

	_, err = a.Cancel(context.Background(), resp.JobID)
	assert.ErrorIs(t, err, errno.ErrJobNotCancellable)

	job, err := jobs.Get(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, vo.JobStatusQueued, job.Status)
}

func TestArtifactPathResolvesListedArtifact(t *testing.T) {
	jobs := newFakeJobRepo()
	job := entity.NewJob("11111111-2222-3333-4444-555555555555", "https://example.com/v.mp4")
	name := job.ID + "_clip1.mp4"
	job.Artifacts = []entity.Artifact{{Name: name, Kind: entity.ArtifactClip}}
	require.NoError(t, jobs.Create(context.Background(), job))

	a := newTestApp(jobs, &fakeJobQueue{})
	path, err := a.ArtifactPath(context.Background(), name)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("outputs", job.ID, name), path)
}

func TestArtifactPathRejectsTraversalAndUnknownNames(t *testing.T) {
	jobs := newFakeJobRepo()
	job := entity.NewJob("11111111-2222-3333-4444-555555555555", "https://example.com/v.mp4")
	job.Artifacts = []entity.Artifact{{Name: job.ID + "_clip1.mp4", Kind: entity.ArtifactClip}}
	require.NoError(t, jobs.Create(context.Background(), job))

	a := newTestApp(jobs, &fakeJobQueue{})

	for _, name := range []string{"", "../etc/passwd", "a/b", "short"} {
		_, err := a.ArtifactPath(context.Background(), name)
		assert.ErrorIs(t, err, errno.ErrArtifactIllegal, "name %q", name)
	}

	// Well-formed name not listed on the record.
	_, err := a.ArtifactPath(context.Background(), job.ID+"_clip9.mp4")
	assert.ErrorIs(t, err, errno.ErrArtifactNotFound)
}
