package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"openmic/internal/media"
)

// StubSource is a configurable acquisition source for orchestrator tests.
type StubSource struct {
	SourceName string
	FindErr    error
	FetchErr   error
	NoMatch    bool
	Delay      time.Duration

	FindCalls  atomic.Int32
	FetchCalls atomic.Int32

	mu          sync.Mutex
	constraints []media.Constraints
}

func (s *StubSource) Name() string {
	if s.SourceName == "" {
		return "stub"
	}
	return s.SourceName
}

func (s *StubSource) Find(ctx context.Context, title, artist string, constraints media.Constraints) (*media.Candidate, error) {
	s.FindCalls.Add(1)
	s.mu.Lock()
	s.constraints = append(s.constraints, constraints)
	s.mu.Unlock()
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.FindErr != nil {
		return nil, s.FindErr
	}
	if s.NoMatch {
		return nil, nil
	}
	return &media.Candidate{SourceName: s.Name(), ID: "stub-id", Title: title, Artist: artist}, nil
}

func (s *StubSource) Fetch(ctx context.Context, _ *media.Candidate, destDir string, onProgress media.ProgressFunc) (string, error) {
	s.FetchCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.FetchErr != nil {
		return "", s.FetchErr
	}
	path := filepath.Join(destDir, "original.wav")
	writeStubFile(path)
	if onProgress != nil {
		onProgress(50)
		onProgress(100)
	}
	return path, nil
}

// LastConstraints returns the constraints passed to the most recent Find.
func (s *StubSource) LastConstraints() (media.Constraints, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.constraints) == 0 {
		return media.Constraints{}, false
	}
	return s.constraints[len(s.constraints)-1], true
}

// StubBaseVideoFinder yields a fixed base-video path (or an error).
type StubBaseVideoFinder struct {
	Path  string
	Err   error
	Calls atomic.Int32
}

func (f *StubBaseVideoFinder) FindBaseVideo(_ context.Context, _, _, _ string) (string, error) {
	f.Calls.Add(1)
	return f.Path, f.Err
}

// StubSeparator produces stem files under destDir unless configured to fail.
type StubSeparator struct {
	Err   error
	Block bool
	Delay time.Duration
	Calls atomic.Int32
}

func (s *StubSeparator) SeparateVocals(ctx context.Context, _, destDir string, onProgress media.ProgressFunc) (media.Separation, error) {
	s.Calls.Add(1)
	if s.Block {
		<-ctx.Done()
		return media.Separation{}, ctx.Err()
	}
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return media.Separation{}, ctx.Err()
		}
	}
	if s.Err != nil {
		return media.Separation{}, s.Err
	}
	sep := media.Separation{
		Instrumental: filepath.Join(destDir, "no_vocals.wav"),
		Vocals:       filepath.Join(destDir, "vocals.wav"),
	}
	writeStubFile(sep.Instrumental)
	writeStubFile(sep.Vocals)
	if onProgress != nil {
		onProgress(100)
	}
	return sep, nil
}

// StubLyricsProvider returns fixed lines, no lines, or an error.
type StubLyricsProvider struct {
	Lines []media.TimedLine
	Err   error
	Calls atomic.Int32
}

func (p *StubLyricsProvider) FetchAndSync(context.Context, string, string, string) ([]media.TimedLine, error) {
	p.Calls.Add(1)
	return p.Lines, p.Err
}

// StubComposer records compose requests and writes the output file.
type StubComposer struct {
	Err   error
	Calls atomic.Int32

	mu       sync.Mutex
	requests []media.ComposeRequest
}

func (c *StubComposer) ComposeVideo(ctx context.Context, req media.ComposeRequest, onProgress media.ProgressFunc) (string, error) {
	c.Calls.Add(1)
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.Err != nil {
		return "", c.Err
	}
	writeStubFile(req.OutputPath)
	if onProgress != nil {
		onProgress(100)
	}
	return req.OutputPath, nil
}

// Requests returns a copy of every compose request seen so far.
func (c *StubComposer) Requests() []media.ComposeRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]media.ComposeRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

// LastRequest returns the most recent compose request, if any.
func (c *StubComposer) LastRequest() (media.ComposeRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		return media.ComposeRequest{}, false
	}
	return c.requests[len(c.requests)-1], true
}

// WaitFor polls until the condition holds or the deadline passes.
func WaitFor(t testing.TB, timeout time.Duration, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func writeStubFile(path string) {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	_ = os.WriteFile(path, []byte("stub"), 0o644)
}
