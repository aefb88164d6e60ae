package repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/entity"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/vo"
)

func TestApplyUpdateMergesFields(t *testing.T) {
	job := entity.NewJob("j1", "https://example.com/v.mp4")

	next, err := ApplyUpdate(job, JobUpdate{
		Status:   StatusPtr(vo.JobStatusRunning),
		Stage:    StringPtr("downloading"),
		Progress: IntPtr(5),
	})
	require.NoError(t, err)

	assert.Equal(t, vo.JobStatusRunning, next.Status)
	assert.Equal(t, "downloading", next.Stage)
	assert.Equal(t, 5, next.Progress)
	assert.True(t, next.UpdatedAt.After(job.CreatedAt) || next.UpdatedAt.Equal(job.CreatedAt))

	// Input record is untouched.
	assert.Equal(t, vo.JobStatusQueued, job.Status)
}

func TestApplyUpdateRejectsInvalidTransition(t *testing.T) {
	job := entity.NewJob("j1", "https://example.com/v.mp4")
	job.Status = vo.JobStatusCompleted

	_, err := ApplyUpdate(job, JobUpdate{Status: StatusPtr(vo.JobStatusRunning)})
	assert.Error(t, err)
}

func TestApplyUpdateSameStatusIsNoop(t *testing.T) {
	job := entity.NewJob("j1", "https://example.com/v.mp4")
	job.Status = vo.JobStatusRunning

	next, err := ApplyUpdate(job, JobUpdate{Status: StatusPtr(vo.JobStatusRunning)})
	require.NoError(t, err)
	assert.Equal(t, vo.JobStatusRunning, next.Status)
}

func TestApplyUpdateProgressNeverDecreases(t *testing.T) {
	job := entity.NewJob("j1", "https://example.com/v.mp4")
	job.Status = vo.JobStatusRunning
	job.Progress = 70

	next, err := ApplyUpdate(job, JobUpdate{Progress: IntPtr(40)})
	require.NoError(t, err)
	assert.Equal(t, 70, next.Progress)

	next, err = ApplyUpdate(job, JobUpdate{Progress: IntPtr(80)})
	require.NoError(t, err)
	assert.Equal(t, 80, next.Progress)
}

func TestApplyUpdateNilFieldsLeaveRecordAlone(t *testing.T) {
	job := entity.NewJob("j1", "https://example.com/v.mp4")
	job.Status = vo.JobStatusRunning
	job.Stage = "converting"
	job.Progress = 40
	job.Artifacts = []entity.Artifact{{Name: "j1_clip1.mp4", Kind: entity.ArtifactClip}}

	next, err := ApplyUpdate(job, JobUpdate{})
	require.NoError(t, err)

	assert.Equal(t, vo.JobStatusRunning, next.Status)
	assert.Equal(t, "converting", next.Stage)
	assert.Equal(t, 40, next.Progress)
	assert.Len(t, next.Artifacts, 1)
}
