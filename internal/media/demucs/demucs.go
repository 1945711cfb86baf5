// Package demucs performs vocal separation by shelling out to the demucs CLI.
package demucs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"openmic/internal/media"
)

// Option configures the separator.
type Option func(*Separator)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec media.Executor) Option {
	return func(s *Separator) {
		if exec != nil {
			s.exec = exec
		}
	}
}

// Separator wraps demucs two-stem separation.
type Separator struct {
	binary string
	model  string
	exec   media.Executor
}

// New constructs a demucs separator using the given model (e.g. htdemucs).
func New(binary, model string, opts ...Option) (*Separator, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("demucs binary required")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = "htdemucs"
	}
	sep := &Separator{binary: binary, model: model, exec: media.CommandExecutor{}}
	for _, opt := range opts {
		opt(sep)
	}
	return sep, nil
}

// demucs prints progress bars like " 45%|####      | ..." on stderr.
var separatePercentRe = regexp.MustCompile(`(\d{1,3})%\|`)

// SeparateVocals splits audioPath into instrumental and vocal stems under
// destDir.
func (s *Separator) SeparateVocals(ctx context.Context, audioPath, destDir string, onProgress media.ProgressFunc) (media.Separation, error) {
	var result media.Separation
	if strings.TrimSpace(audioPath) == "" {
		return result, errors.New("audio path required")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return result, fmt.Errorf("create separation dir: %w", err)
	}

	args := []string{
		"--two-stems", "vocals",
		"-n", s.model,
		"-o", destDir,
		audioPath,
	}
	err := s.exec.Run(ctx, s.binary, args, func(line string) {
		if onProgress == nil {
			return
		}
		if match := separatePercentRe.FindStringSubmatch(line); match != nil {
			if pct, parseErr := strconv.Atoi(match[1]); parseErr == nil {
				onProgress(float64(pct))
			}
		}
	})
	if err != nil {
		return result, fmt.Errorf("demucs separate: %w", err)
	}

	// demucs writes <out>/<model>/<track>/{no_vocals,vocals}.wav.
	track := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	stemDir := filepath.Join(destDir, s.model, track)
	result.Instrumental = filepath.Join(stemDir, "no_vocals.wav")
	result.Vocals = filepath.Join(stemDir, "vocals.wav")

	if _, err := os.Stat(result.Instrumental); err != nil {
		return media.Separation{}, fmt.Errorf("demucs produced no instrumental stem: %w", err)
	}
	if onProgress != nil {
		onProgress(100)
	}
	return result, nil
}
