package stage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/entity"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/port"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/vo"
	"github.com/Patricklolilol/ffmpeg-service/pkg/config"
)

// TranscribeStage extracts speech from the master file: ffmpeg downmixes to
// 16 kHz mono WAV, then whisper.cpp produces a transcript (.txt) and
// subtitles (.srt). The stage is optional; any failure is skippable.
type TranscribeStage struct {
	cfg    config.PipelineConfig
	runner Runner
}

// NewTranscribeStage builds the transcription adapter.
func NewTranscribeStage(cfg config.PipelineConfig, runner Runner) *TranscribeStage {
	return &TranscribeStage{cfg: cfg, runner: runner}
}

func (s *TranscribeStage) Name() vo.StageName { return vo.StageTranscribing }

func (s *TranscribeStage) Optional() bool { return true }

func (s *TranscribeStage) Execute(ctx context.Context, sc *port.StageContext) error {
	if s.cfg.WhisperModelPath == "" {
		return port.NewSkippableError(s.Name(), "transcription not configured", "", nil)
	}

	wav := filepath.Join(sc.WorkDir, "audio-16k-mono.wav")
	preArgs := []string{
		"-y",
		"-i", sc.MasterFile,
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		wav,
	}
	log, err := runTimed(ctx, s.runner, s.cfg.ConvertTimeout, s.cfg.FFmpegPath, preArgs...)
	if err != nil {
		return port.NewSkippableError(s.Name(), "audio preprocessing failed", log.Diagnostic(), err)
	}
	defer os.Remove(wav)

	base := filepath.Join(sc.WorkDir, fmt.Sprintf("%s_transcript", sc.JobID))
	whisperArgs := []string{
		"-m", s.cfg.WhisperModelPath,
		"-f", wav,
		"-of", base,
		"-otxt",
		"-osrt",
	}
	if s.cfg.TranscribeLang != "" {
		whisperArgs = append(whisperArgs, "-l", s.cfg.TranscribeLang)
	}

	wlog, err := runTimed(ctx, s.runner, s.cfg.TranscribeLimit, s.cfg.WhisperPath, whisperArgs...)
	if err != nil {
		return port.NewSkippableError(s.Name(), "transcription failed", wlog.Diagnostic(), err)
	}

	txt := base + ".txt"
	srt := base + ".srt"
	if _, serr := os.Stat(txt); serr != nil {
		return port.NewSkippableError(s.Name(), "transcription produced no transcript", wlog.Diagnostic(), serr)
	}
	sc.AddArtifact(filepath.Base(txt), entity.ArtifactTranscript)

	if _, serr := os.Stat(srt); serr == nil {
		sc.SubtitleFile = srt
		sc.AddArtifact(filepath.Base(srt), entity.ArtifactSubtitle)
	}

	return nil
}
