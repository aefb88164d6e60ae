package stage

import (
	"context"
	"strconv"
	"strings"

	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/port"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/vo"
	"github.com/Patricklolilol/ffmpeg-service/pkg/config"
	"github.com/Patricklolilol/ffmpeg-service/pkg/logger"
)

// ProbeStage determines the media duration via ffprobe. Probe failures never
// abort the pipeline; a configured default duration is substituted instead.
type ProbeStage struct {
	cfg    config.PipelineConfig
	runner Runner
}

// NewProbeStage builds the probe adapter.
func NewProbeStage(cfg config.PipelineConfig, runner Runner) *ProbeStage {
	return &ProbeStage{cfg: cfg, runner: runner}
}

func (s *ProbeStage) Name() vo.StageName { return vo.StageProbing }

func (s *ProbeStage) Optional() bool { return false }

func (s *ProbeStage) Execute(ctx context.Context, sc *port.StageContext) error {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		sc.InputFile,
	}

	log, err := runTimed(ctx, s.runner, s.cfg.ProbeTimeout, s.cfg.FFprobePath, args...)
	if err == nil {
		if dur, perr := strconv.ParseFloat(strings.TrimSpace(log.Stdout), 64); perr == nil && dur > 0 {
			sc.Duration = dur
			return nil
		}
	}

	// Some containers carry no format-level duration; the streams usually
	// still do.
	if dur, ok := s.probeStreams(ctx, sc.InputFile); ok {
		sc.Duration = dur
		return nil
	}

	logger.Warnf("duration probe failed, using default job_id=%s default=%.0fs diagnostic=%s",
		sc.JobID, s.cfg.DefaultDuration, log.Diagnostic())
	sc.Duration = s.cfg.DefaultDuration
	return nil
}

// probeStreams reads per-stream durations and returns the longest one.
func (s *ProbeStage) probeStreams(ctx context.Context, input string) (float64, bool) {
	args := []string{
		"-v", "error",
		"-show_entries", "stream=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		input,
	}

	log, err := runTimed(ctx, s.runner, s.cfg.ProbeTimeout, s.cfg.FFprobePath, args...)
	if err != nil {
		return 0, false
	}

	longest := 0.0
	for _, line := range strings.Split(log.Stdout, "\n") {
		if dur, perr := strconv.ParseFloat(strings.TrimSpace(line), 64); perr == nil && dur > longest {
			longest = dur
		}
	}
	return longest, longest > 0
}
