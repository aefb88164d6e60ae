package stage

import (
	"context"
	"path/filepath"

	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/gateway"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/port"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/vo"
)

// PublishStage copies the job's artifacts into object storage. When no
// storage gateway is configured the stage succeeds without doing anything
// and artifacts stay served from local disk.
type PublishStage struct {
	storage gateway.StorageGateway
}

// NewPublishStage builds the publish adapter. storage may be nil.
func NewPublishStage(storage gateway.StorageGateway) *PublishStage {
	return &PublishStage{storage: storage}
}

func (s *PublishStage) Name() vo.StageName { return vo.StagePublishing }

func (s *PublishStage) Optional() bool { return false }

func (s *PublishStage) Execute(ctx context.Context, sc *port.StageContext) error {
	if s.storage == nil {
		return nil
	}

	objects := make([]gateway.UploadObject, 0, len(sc.Artifacts))
	for i := range sc.Artifacts {
		art := &sc.Artifacts[i]
		art.ObjectKey = sc.JobID + "/" + art.Name
		objects = append(objects, gateway.UploadObject{
			LocalPath:   filepath.Join(sc.WorkDir, art.Name),
			ObjectKey:   art.ObjectKey,
			ContentType: contentTypeFor(art.Name),
		})
	}

	if err := s.storage.UploadArtifacts(ctx, objects); err != nil {
		return port.NewStageError(s.Name(), "artifact upload failed", "", err)
	}
	return nil
}

func contentTypeFor(name string) string {
	switch filepath.Ext(name) {
	case ".mp4":
		return "video/mp4"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".srt":
		return "application/x-subrip"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
