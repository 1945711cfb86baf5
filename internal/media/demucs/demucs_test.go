package demucs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"openmic/internal/media"
	"openmic/internal/media/demucs"
)

type fakeExecutor struct {
	lines    []string
	lastArgs []string
	onRun    func(args []string)
}

func (f *fakeExecutor) Run(_ context.Context, _ string, args []string, onLine func(string)) error {
	f.lastArgs = args
	if f.onRun != nil {
		f.onRun(args)
	}
	for _, line := range f.lines {
		if onLine != nil {
			onLine(line)
		}
	}
	return nil
}

func TestSeparateVocalsLocatesStems(t *testing.T) {
	destDir := t.TempDir()
	audioPath := filepath.Join(t.TempDir(), "track.wav")
	if err := os.WriteFile(audioPath, []byte("x"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	exec := &fakeExecutor{
		lines: []string{" 50%|#####     | separating"},
		onRun: func([]string) {
			stemDir := filepath.Join(destDir, "htdemucs", "track")
			if err := os.MkdirAll(stemDir, 0o755); err != nil {
				t.Fatalf("mkdir stems: %v", err)
			}
			for _, stem := range []string{"no_vocals.wav", "vocals.wav"} {
				if err := os.WriteFile(filepath.Join(stemDir, stem), []byte("x"), 0o644); err != nil {
					t.Fatalf("write stem: %v", err)
				}
			}
		},
	}

	sep, err := demucs.New("demucs", "htdemucs", demucs.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var progress []float64
	result, err := sep.SeparateVocals(context.Background(), audioPath, destDir, func(pct float64) {
		progress = append(progress, pct)
	})
	if err != nil {
		t.Fatalf("SeparateVocals: %v", err)
	}
	if filepath.Base(result.Instrumental) != "no_vocals.wav" {
		t.Fatalf("unexpected instrumental: %s", result.Instrumental)
	}
	if len(progress) == 0 || progress[0] != 50 {
		t.Fatalf("expected parsed progress, got %v", progress)
	}
	if progress[len(progress)-1] != 100 {
		t.Fatalf("expected final 100%%, got %v", progress)
	}

	want := []string{"--two-stems", "vocals", "-n", "htdemucs", "-o", destDir, audioPath}
	if len(exec.lastArgs) != len(want) {
		t.Fatalf("unexpected args: %v", exec.lastArgs)
	}
	for i, arg := range want {
		if exec.lastArgs[i] != arg {
			t.Fatalf("arg %d: got %q want %q", i, exec.lastArgs[i], arg)
		}
	}
}

func TestSeparateVocalsMissingStemFails(t *testing.T) {
	sep, err := demucs.New("demucs", "", demucs.WithExecutor(&fakeExecutor{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := sep.SeparateVocals(context.Background(), "/tmp/track.wav", t.TempDir(), nil); err == nil {
		t.Fatal("expected error when demucs produces no stems")
	}
	var _ media.Separator = sep
}
