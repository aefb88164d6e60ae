package stage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/port"
)

func TestConvertStageProducesMaster(t *testing.T) {
	workDir := t.TempDir()
	sc := &port.StageContext{JobID: "j1", WorkDir: workDir, InputFile: filepath.Join(workDir, "source.webm")}

	runner := &fakeRunner{
		run: func(_ context.Context, name string, args ...string) (CommandLog, error) {
			mustWriteFile(t, args[len(args)-1], "mp4")
			return CommandLog{ExitCode: 0}, nil
		},
	}

	s := NewConvertStage(testPipelineConfig(), runner)
	if err := s.Execute(context.Background(), sc); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if sc.MasterFile != filepath.Join(workDir, "j1_full.mp4") {
		t.Fatalf("master file = %q", sc.MasterFile)
	}
}

func TestConvertStageDegradedFallback(t *testing.T) {
	workDir := t.TempDir()
	sc := &port.StageContext{JobID: "j1", WorkDir: workDir, InputFile: filepath.Join(workDir, "source.webm")}

	calls := 0
	runner := &fakeRunner{
		run: func(_ context.Context, name string, args ...string) (CommandLog, error) {
			calls++
			if calls == 1 {
				return CommandLog{Stderr: "out of memory", ExitCode: 137}, errors.New("exit status 137")
			}
			found := false
			for i, a := range args {
				if a == "-vf" && args[i+1] == "scale=-2:720" {
					found = true
				}
			}
			if !found {
				t.Fatalf("fallback must downscale, args=%v", args)
			}
			mustWriteFile(t, args[len(args)-1], "mp4")
			return CommandLog{ExitCode: 0}, nil
		},
	}

	s := NewConvertStage(testPipelineConfig(), runner)
	if err := s.Execute(context.Background(), sc); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("command calls = %d, want 2", calls)
	}
}

func TestConvertStageFallbackGetsFreshTimeout(t *testing.T) {
	workDir := t.TempDir()
	sc := &port.StageContext{JobID: "j1", WorkDir: workDir, InputFile: filepath.Join(workDir, "source.webm")}

	cfg := testPipelineConfig()
	cfg.ConvertTimeout = 30 * time.Millisecond

	calls := 0
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (CommandLog, error) {
			calls++
			if calls == 1 {
				// Primary hangs until its budget runs out.
				<-ctx.Done()
				return CommandLog{Stderr: "killed"}, ctx.Err()
			}
			// The fallback must not inherit the exhausted deadline.
			if err := ctx.Err(); err != nil {
				t.Fatalf("fallback started with expired context: %v", err)
			}
			if _, ok := ctx.Deadline(); !ok {
				t.Fatal("fallback invocation has no deadline")
			}
			mustWriteFile(t, args[len(args)-1], "mp4")
			return CommandLog{ExitCode: 0}, nil
		},
	}

	s := NewConvertStage(cfg, runner)
	if err := s.Execute(context.Background(), sc); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("command calls = %d, want 2", calls)
	}
}

func TestConvertStageBothProfilesFail(t *testing.T) {
	sc := &port.StageContext{JobID: "j1", WorkDir: t.TempDir(), InputFile: "source.webm"}

	runner := &fakeRunner{
		run: func(_ context.Context, name string, args ...string) (CommandLog, error) {
			return CommandLog{Stderr: "Invalid data found when processing input", ExitCode: 1}, errors.New("exit status 1")
		},
	}

	s := NewConvertStage(testPipelineConfig(), runner)
	err := s.Execute(context.Background(), sc)
	var se *port.StageError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *port.StageError", err)
	}
	if !strings.Contains(se.Diagnostic, "primary:") || !strings.Contains(se.Diagnostic, "fallback:") {
		t.Fatalf("diagnostic = %q", se.Diagnostic)
	}
}
