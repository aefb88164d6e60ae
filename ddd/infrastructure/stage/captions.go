package stage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/entity"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/port"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/vo"
	"github.com/Patricklolilol/ffmpeg-service/pkg/config"
)

// CaptionStage burns the transcribed subtitles onto each clip, producing
// captioned variants alongside the plain clips. Runs only when the
// transcribe stage yielded an .srt; otherwise it is skipped.
type CaptionStage struct {
	cfg    config.PipelineConfig
	runner Runner
}

// NewCaptionStage builds the caption-burn adapter.
func NewCaptionStage(cfg config.PipelineConfig, runner Runner) *CaptionStage {
	return &CaptionStage{cfg: cfg, runner: runner}
}

func (s *CaptionStage) Name() vo.StageName { return vo.StageCaptioning }

func (s *CaptionStage) Optional() bool { return true }

func (s *CaptionStage) Execute(ctx context.Context, sc *port.StageContext) error {
	if sc.SubtitleFile == "" {
		return port.NewSkippableError(s.Name(), "no subtitles available", "", nil)
	}

	for i, clip := range sc.ClipFiles {
		name := fmt.Sprintf("%s_clip%d_captioned.mp4", sc.JobID, i+1)
		out := filepath.Join(sc.WorkDir, name)

		args := []string{
			"-y",
			"-i", clip,
			"-vf", "subtitles=" + sc.SubtitleFile,
			"-c:a", "copy",
			out,
		}

		log, err := runTimed(ctx, s.runner, s.cfg.ConvertTimeout, s.cfg.FFmpegPath, args...)
		if err != nil {
			return port.NewSkippableError(s.Name(), "caption burn failed", log.Diagnostic(), err)
		}

		sc.AddArtifact(name, entity.ArtifactClip)
	}

	return nil
}
