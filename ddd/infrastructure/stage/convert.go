package stage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/port"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/vo"
	"github.com/Patricklolilol/ffmpeg-service/pkg/config"
	"github.com/Patricklolilol/ffmpeg-service/pkg/logger"
)

// ConvertStage transcodes the fetched media to a faststart mp4 master. If the
// full-quality encode fails it retries once at a degraded 720p profile before
// declaring the stage failed.
type ConvertStage struct {
	cfg    config.PipelineConfig
	runner Runner
}

// NewConvertStage builds the transcode adapter.
func NewConvertStage(cfg config.PipelineConfig, runner Runner) *ConvertStage {
	return &ConvertStage{cfg: cfg, runner: runner}
}

func (s *ConvertStage) Name() vo.StageName { return vo.StageConverting }

func (s *ConvertStage) Optional() bool { return false }

func (s *ConvertStage) Execute(ctx context.Context, sc *port.StageContext) error {
	out := filepath.Join(sc.WorkDir, fmt.Sprintf("%s_full.mp4", sc.JobID))

	primary := []string{
		"-y",
		"-i", sc.InputFile,
		"-c:v", "libx264", "-preset", "fast", "-crf", "23",
		"-c:a", "aac",
		"-movflags", "+faststart",
		out,
	}

	log, err := runTimed(ctx, s.runner, s.cfg.ConvertTimeout, s.cfg.FFmpegPath, primary...)
	if err == nil {
		if _, serr := os.Stat(out); serr == nil {
			sc.MasterFile = out
			return nil
		}
	}
	primaryDiag := log.Diagnostic()
	logger.Warnf("full-quality transcode failed, trying degraded profile job_id=%s", sc.JobID)

	fallback := []string{
		"-y",
		"-i", sc.InputFile,
		"-vf", "scale=-2:720",
		"-c:v", "libx264", "-preset", "veryfast", "-crf", "26",
		"-c:a", "aac",
		"-movflags", "+faststart",
		out,
	}

	flog, ferr := runTimed(ctx, s.runner, s.cfg.ConvertTimeout, s.cfg.FFmpegPath, fallback...)
	if ferr != nil {
		diag := fmt.Sprintf("primary: %s; fallback: %s", primaryDiag, flog.Diagnostic())
		return port.NewStageError(s.Name(), "media conversion failed", diag, ferr)
	}
	if _, serr := os.Stat(out); serr != nil {
		return port.NewStageError(s.Name(), "conversion produced no file", flog.Diagnostic(), serr)
	}

	sc.MasterFile = out
	return nil
}
