package stage

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/entity"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/port"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/vo"
	"github.com/Patricklolilol/ffmpeg-service/pkg/config"
	"github.com/Patricklolilol/ffmpeg-service/pkg/logger"
)

// ClipStage cuts highlight clips from the transcoded master according to the
// clip-window policy. Each clip is first attempted as a fast stream copy and
// re-encoded once if that fails; only the final outcome is surfaced.
type ClipStage struct {
	cfg    config.PipelineConfig
	runner Runner
}

// NewClipStage builds the clip adapter.
func NewClipStage(cfg config.PipelineConfig, runner Runner) *ClipStage {
	return &ClipStage{cfg: cfg, runner: runner}
}

func (s *ClipStage) Name() vo.StageName { return vo.StageClipping }

func (s *ClipStage) Optional() bool { return false }

func (s *ClipStage) Execute(ctx context.Context, sc *port.StageContext) error {
	sc.ClipPlan = vo.PlanClips(sc.Duration)

	for i, window := range sc.ClipPlan.Windows {
		name := fmt.Sprintf("%s_clip%d.mp4", sc.JobID, i+1)
		out := filepath.Join(sc.WorkDir, name)

		if err := s.cutClip(ctx, sc.MasterFile, out, window); err != nil {
			return err
		}

		sc.ClipFiles = append(sc.ClipFiles, out)
		sc.AddArtifact(name, entity.ArtifactClip)
	}

	return nil
}

// cutClip produces one clip, falling back from stream copy to re-encode.
func (s *ClipStage) cutClip(ctx context.Context, input, out string, window vo.ClipWindow) error {
	start := strconv.FormatFloat(window.Start, 'f', 3, 64)
	length := strconv.Itoa(int(math.Ceil(window.Length)))

	copyArgs := []string{
		"-y",
		"-ss", start,
		"-i", input,
		"-t", length,
		"-c", "copy",
		out,
	}

	log, err := runTimed(ctx, s.runner, s.cfg.ClipTimeout, s.cfg.FFmpegPath, copyArgs...)
	if err == nil {
		if _, serr := os.Stat(out); serr == nil {
			return nil
		}
	}
	copyDiag := log.Diagnostic()
	logger.Warnf("stream-copy clip failed, re-encoding out=%s", out)

	encodeArgs := []string{
		"-y",
		"-ss", start,
		"-i", input,
		"-t", length,
		"-c:v", "libx264", "-preset", "fast", "-crf", "23",
		"-c:a", "aac",
		out,
	}

	flog, ferr := runTimed(ctx, s.runner, s.cfg.ClipTimeout, s.cfg.FFmpegPath, encodeArgs...)
	if ferr != nil {
		diag := fmt.Sprintf("stream copy: %s; re-encode: %s", copyDiag, flog.Diagnostic())
		return port.NewStageError(s.Name(), "clip creation failed", diag, ferr)
	}
	if _, serr := os.Stat(out); serr != nil {
		return port.NewStageError(s.Name(), "clip produced no file", flog.Diagnostic(), serr)
	}
	return nil
}
