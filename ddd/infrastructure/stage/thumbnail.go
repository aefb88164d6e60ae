package stage

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/entity"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/port"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/vo"
	"github.com/Patricklolilol/ffmpeg-service/pkg/config"
)

// ThumbnailStage captures one still frame per planned clip window, slightly
// past the clip start to avoid black or transition frames.
type ThumbnailStage struct {
	cfg    config.PipelineConfig
	runner Runner
}

// NewThumbnailStage builds the thumbnail adapter.
func NewThumbnailStage(cfg config.PipelineConfig, runner Runner) *ThumbnailStage {
	return &ThumbnailStage{cfg: cfg, runner: runner}
}

func (s *ThumbnailStage) Name() vo.StageName { return vo.StageThumbnailing }

func (s *ThumbnailStage) Optional() bool { return false }

func (s *ThumbnailStage) Execute(ctx context.Context, sc *port.StageContext) error {
	for i, window := range sc.ClipPlan.Windows {
		name := fmt.Sprintf("%s_thumb%d.jpg", sc.JobID, i+1)
		out := filepath.Join(sc.WorkDir, name)

		args := []string{
			"-y",
			"-ss", strconv.FormatFloat(window.ThumbnailOffset(), 'f', 3, 64),
			"-i", sc.MasterFile,
			"-vframes", "1",
			"-q:v", "2",
			out,
		}

		log, err := runTimed(ctx, s.runner, s.cfg.ThumbnailTimeout, s.cfg.FFmpegPath, args...)
		if err != nil {
			return port.NewStageError(s.Name(), "thumbnail capture failed", log.Diagnostic(), err)
		}

		sc.AddArtifact(name, entity.ArtifactThumbnail)
	}

	return nil
}
