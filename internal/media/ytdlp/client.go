// Package ytdlp acquires original audio from the network via the yt-dlp CLI.
package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"openmic/internal/media"
	"openmic/internal/textutil"
)

const sourceName = "ytdlp"

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec media.Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client shells out to yt-dlp for search and download.
type Client struct {
	binary string
	exec   media.Executor
}

// New constructs a yt-dlp client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{binary: binary, exec: media.CommandExecutor{}}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Name identifies this source in the ranked acquisition chain.
func (c *Client) Name() string { return sourceName }

type searchResult struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Uploader string  `json:"uploader"`
	Channel  string  `json:"channel"`
	Duration float64 `json:"duration"`
	URL      string  `json:"webpage_url"`
}

// Find searches for the best audio match, returning nil when nothing usable
// comes back.
func (c *Client) Find(ctx context.Context, title, artist string, constraints media.Constraints) (*media.Candidate, error) {
	query := strings.TrimSpace(title + " " + artist)
	if query == "" {
		return nil, errors.New("empty search query")
	}
	limit := constraints.SearchLimit
	if limit <= 0 {
		limit = 5
	}

	args := []string{
		fmt.Sprintf("ytsearch%d:%s", limit, query),
		"--dump-json",
		"--no-download",
		"--no-playlist",
		"--flat-playlist",
	}

	var results []searchResult
	err := c.exec.Run(ctx, c.binary, args, func(line string) {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") {
			return
		}
		var res searchResult
		if json.Unmarshal([]byte(line), &res) == nil && res.ID != "" {
			results = append(results, res)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("yt-dlp search: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	best := pickBest(results, title, artist)
	uploader := best.Uploader
	if uploader == "" {
		uploader = best.Channel
	}
	return &media.Candidate{
		SourceName: sourceName,
		ID:         best.ID,
		Title:      best.Title,
		Artist:     uploader,
		Duration:   time.Duration(best.Duration * float64(time.Second)),
		Location:   best.URL,
	}, nil
}

// pickBest ranks results by token similarity against the requested title
// and artist, falling back to the first search hit.
func pickBest(results []searchResult, title, artist string) searchResult {
	want := textutil.NewFingerprint(title + " " + artist)
	best := results[0]
	bestScore := 0.0
	for _, res := range results {
		got := textutil.NewFingerprint(res.Title + " " + res.Uploader + " " + res.Channel)
		if score := textutil.CosineSimilarity(want, got); score > bestScore {
			best = res
			bestScore = score
		}
	}
	return best
}

var downloadPercentRe = regexp.MustCompile(`\[download\]\s+([0-9.]+)%`)

// Fetch downloads a candidate as wav audio into destDir.
func (c *Client) Fetch(ctx context.Context, candidate *media.Candidate, destDir string, onProgress media.ProgressFunc) (string, error) {
	if candidate == nil || strings.TrimSpace(candidate.ID) == "" {
		return "", errors.New("candidate required")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	target := filepath.Join(destDir, candidate.ID+".%(ext)s")
	args := []string{
		candidate.ID,
		"--extract-audio",
		"--audio-format", "wav",
		"--no-playlist",
		"--newline",
		"--output", target,
	}

	err := c.exec.Run(ctx, c.binary, args, func(line string) {
		if onProgress == nil {
			return
		}
		if match := downloadPercentRe.FindStringSubmatch(line); match != nil {
			if pct, parseErr := strconv.ParseFloat(match[1], 64); parseErr == nil {
				onProgress(pct)
			}
		}
	})
	if err != nil {
		return "", fmt.Errorf("yt-dlp download: %w", err)
	}

	audioPath := filepath.Join(destDir, candidate.ID+".wav")
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("yt-dlp produced no audio file: %w", err)
	}
	if onProgress != nil {
		onProgress(100)
	}
	return audioPath, nil
}

// FindBaseVideo downloads the matched music video into destDir when one
// exists, so the composer can overlay it. Missing video is not an error.
func (c *Client) FindBaseVideo(ctx context.Context, title, artist, destDir string) (string, error) {
	candidate, err := c.Find(ctx, title+" official video", artist, media.Constraints{SearchLimit: 3})
	if err != nil || candidate == nil {
		return "", err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create base video dir: %w", err)
	}

	target := filepath.Join(destDir, candidate.ID+".%(ext)s")
	args := []string{
		candidate.ID,
		"--format", "mp4",
		"--no-playlist",
		"--output", target,
	}
	if err := c.exec.Run(ctx, c.binary, args, nil); err != nil {
		return "", fmt.Errorf("yt-dlp base video: %w", err)
	}

	videoPath := filepath.Join(destDir, candidate.ID+".mp4")
	if _, err := os.Stat(videoPath); err != nil {
		return "", nil
	}
	return videoPath, nil
}
