package stage

import (
	"context"
	"path/filepath"

	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/port"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/vo"
	"github.com/Patricklolilol/ffmpeg-service/pkg/config"
	"github.com/Patricklolilol/ffmpeg-service/pkg/logger"
)

// FetchStage downloads the source media into the job's work dir via yt-dlp.
type FetchStage struct {
	cfg    config.PipelineConfig
	runner Runner
}

// NewFetchStage builds the fetch adapter.
func NewFetchStage(cfg config.PipelineConfig, runner Runner) *FetchStage {
	return &FetchStage{cfg: cfg, runner: runner}
}

func (s *FetchStage) Name() vo.StageName { return vo.StageDownloading }

func (s *FetchStage) Optional() bool { return false }

// Execute fetches the URL. The output template lets the tool pick the
// container extension; the produced file is located by globbing afterwards.
func (s *FetchStage) Execute(ctx context.Context, sc *port.StageContext) error {
	template := filepath.Join(sc.WorkDir, "source.%(ext)s")
	args := []string{
		"-f", s.cfg.YtdlpFormat,
		"--no-playlist",
		"-o", template,
		sc.Source,
	}

	log, err := runTimed(ctx, s.runner, s.cfg.FetchTimeout, s.cfg.YtdlpPath, args...)
	if err != nil {
		return port.NewStageError(s.Name(), "media download failed", log.Diagnostic(), err)
	}

	matches, err := filepath.Glob(filepath.Join(sc.WorkDir, "source.*"))
	if err != nil || len(matches) == 0 {
		return port.NewStageError(s.Name(), "download produced no file", log.Diagnostic(), err)
	}

	sc.InputFile = matches[0]
	logger.Debugf("fetched media job_id=%s file=%s", sc.JobID, sc.InputFile)
	return nil
}
