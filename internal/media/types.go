package media

import (
	"context"
	"time"
)

// ProgressFunc receives coarse stage progress in the range [0, 100].
type ProgressFunc func(percent float64)

// Constraints narrows an acquisition search.
type Constraints struct {
	Quality     string
	SearchLimit int
}

// Candidate is a source-specific handle to downloadable audio.
type Candidate struct {
	SourceName string
	ID         string
	Title      string
	Artist     string
	Duration   time.Duration
	Location   string
}

// Source acquires original audio for a work. Find reports (nil, nil) when
// the source has no match; Fetch downloads a candidate into destDir and
// returns the local file path.
type Source interface {
	Name() string
	Find(ctx context.Context, title, artist string, constraints Constraints) (*Candidate, error)
	Fetch(ctx context.Context, candidate *Candidate, destDir string, onProgress ProgressFunc) (string, error)
}

// BaseVideoFinder locates an existing music video to use as the compose
// background, downloading it under destDir so run cleanup removes it. An
// empty path with nil error means no base video exists.
type BaseVideoFinder interface {
	FindBaseVideo(ctx context.Context, title, artist, destDir string) (string, error)
}

// Separation holds the stems produced by vocal separation.
type Separation struct {
	Instrumental string
	Vocals       string
}

// Separator splits a mixed track into instrumental and vocal stems.
type Separator interface {
	SeparateVocals(ctx context.Context, audioPath, destDir string, onProgress ProgressFunc) (Separation, error)
}

// TimedLine is one lyric line with its start offset into the track.
type TimedLine struct {
	At   time.Duration
	Text string
}

// LyricsProvider fetches and time-aligns lyrics for a work. A nil slice with
// nil error means no synced lyrics are available; the run proceeds without.
type LyricsProvider interface {
	FetchAndSync(ctx context.Context, title, artist, audioPath string) ([]TimedLine, error)
}

// ComposeRequest carries everything needed to render the final karaoke video.
// BaseVideoPath and Lyrics are optional; their presence selects the strategy.
type ComposeRequest struct {
	Title            string
	Artist           string
	InstrumentalPath string
	BaseVideoPath    string
	Lyrics           []TimedLine
	LyricsPath       string
	OutputPath       string
}

// Composer renders the karaoke video.
type Composer interface {
	ComposeVideo(ctx context.Context, req ComposeRequest, onProgress ProgressFunc) (string, error)
}
