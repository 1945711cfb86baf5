// Package ffmpeg renders karaoke videos with the ffmpeg CLI. Two strategies
// exist: replacing the audio track of an existing music video, and generating
// a lyric video from scratch when no base video is available.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"openmic/internal/media"
)

// Option configures the composer.
type Option func(*Composer)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec media.Executor) Option {
	return func(c *Composer) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Composer drives ffmpeg/ffprobe.
type Composer struct {
	ffmpegBinary  string
	ffprobeBinary string
	width         int
	height        int
	exec          media.Executor
}

// New constructs a composer rendering at the given output resolution.
func New(ffmpegBinary, ffprobeBinary string, width, height int, opts ...Option) (*Composer, error) {
	if strings.TrimSpace(ffmpegBinary) == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	if strings.TrimSpace(ffprobeBinary) == "" {
		return nil, errors.New("ffprobe binary required")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid output resolution %dx%d", width, height)
	}
	composer := &Composer{
		ffmpegBinary:  ffmpegBinary,
		ffprobeBinary: ffprobeBinary,
		width:         width,
		height:        height,
		exec:          media.CommandExecutor{},
	}
	for _, opt := range opts {
		opt(composer)
	}
	return composer, nil
}

// ComposeVideo renders the final karaoke video. A base video selects the
// audio-replacement strategy; otherwise a lyric video is generated over a
// plain background.
func (c *Composer) ComposeVideo(ctx context.Context, req media.ComposeRequest, onProgress media.ProgressFunc) (string, error) {
	if strings.TrimSpace(req.InstrumentalPath) == "" {
		return "", errors.New("instrumental path required")
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return "", errors.New("output path required")
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	duration, err := c.probeDuration(ctx, req.InstrumentalPath)
	if err != nil {
		return "", err
	}

	var args []string
	if strings.TrimSpace(req.BaseVideoPath) != "" {
		args = c.replaceAudioArgs(req)
	} else {
		args = c.lyricVideoArgs(req)
	}

	if err := c.exec.Run(ctx, c.ffmpegBinary, args, progressParser(duration, onProgress)); err != nil {
		return "", fmt.Errorf("ffmpeg compose: %w", err)
	}
	if _, err := os.Stat(req.OutputPath); err != nil {
		return "", fmt.Errorf("ffmpeg produced no output: %w", err)
	}
	if onProgress != nil {
		onProgress(100)
	}
	return req.OutputPath, nil
}

// replaceAudioArgs keeps the base video's picture and swaps in the
// instrumental track.
func (c *Composer) replaceAudioArgs(req media.ComposeRequest) []string {
	return []string{
		"-y",
		"-i", req.BaseVideoPath,
		"-i", req.InstrumentalPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		"-progress", "pipe:1",
		"-nostats",
		req.OutputPath,
	}
}

// lyricVideoArgs generates a video over a plain background, titling the work
// so singers know what is queued even without synced lyrics.
func (c *Composer) lyricVideoArgs(req media.ComposeRequest) []string {
	label := strings.TrimSpace(req.Title)
	if artist := strings.TrimSpace(req.Artist); artist != "" {
		label += " - " + artist
	}
	drawtext := fmt.Sprintf(
		"drawtext=text='%s':fontsize=64:fontcolor=white:x=(w-text_w)/2:y=h/6",
		escapeDrawtext(label),
	)
	filters := []string{drawtext}
	if strings.TrimSpace(req.LyricsPath) != "" {
		filters = append(filters, fmt.Sprintf("subtitles='%s'", escapeDrawtext(req.LyricsPath)))
	}

	return []string{
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=0x101018:s=%dx%d:r=30", c.width, c.height),
		"-i", req.InstrumentalPath,
		"-vf", strings.Join(filters, ","),
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-shortest",
		"-progress", "pipe:1",
		"-nostats",
		req.OutputPath,
	}
}

// probeDuration asks ffprobe for the track length; zero means unknown, which
// only degrades progress reporting.
func (c *Composer) probeDuration(ctx context.Context, audioPath string) (time.Duration, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioPath,
	}
	var raw string
	if err := c.exec.Run(ctx, c.ffprobeBinary, args, func(line string) {
		if raw == "" {
			raw = strings.TrimSpace(line)
		}
	}); err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w", err)
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil || seconds <= 0 {
		return 0, nil
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// progressParser converts ffmpeg -progress output into percent callbacks.
func progressParser(total time.Duration, onProgress media.ProgressFunc) func(string) {
	if onProgress == nil || total <= 0 {
		return nil
	}
	return func(line string) {
		value, found := strings.CutPrefix(strings.TrimSpace(line), "out_time_ms=")
		if !found {
			return
		}
		micros, err := strconv.ParseInt(value, 10, 64)
		if err != nil || micros < 0 {
			return
		}
		// out_time_ms is microseconds despite the name.
		elapsed := time.Duration(micros) * time.Microsecond
		pct := float64(elapsed) / float64(total) * 100
		if pct > 100 {
			pct = 100
		}
		onProgress(pct)
	}
}

func escapeDrawtext(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`, `%`, `\%`)
	return replacer.Replace(value)
}
