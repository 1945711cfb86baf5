package daemon_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"openmic/internal/artifactcache"
	"openmic/internal/config"
	"openmic/internal/daemon"
	"openmic/internal/logging"
	"openmic/internal/media"
	"openmic/internal/pipeline"
	"openmic/internal/services"
	"openmic/internal/songs"
	"openmic/internal/testsupport"
)

func newDaemon(t *testing.T, opts ...testsupport.ConfigOption) (*daemon.Daemon, *songs.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)

	cache, err := artifactcache.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("artifactcache.Open: %v", err)
	}

	orch := pipeline.New(cfg, store, cache, pipeline.Gateways{
		Sources:   []media.Source{&testsupport.StubSource{SourceName: "ytdlp"}},
		Separator: &testsupport.StubSeparator{},
		Composer:  &testsupport.StubComposer{},
	}, nil, logging.NewNop())

	d, err := daemon.New(cfg, store, cache, orch, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d, store, cfg
}

func waitForStatus(t *testing.T, store *songs.Store, id string, want songs.Status) *songs.Song {
	t.Helper()
	var latest *songs.Song
	testsupport.WaitFor(t, 5*time.Second, func() bool {
		song, err := store.GetByID(context.Background(), id)
		if err != nil || song == nil {
			return false
		}
		latest = song
		return song.Status == want
	})
	return latest
}

func TestSubmitRunsSongToReady(t *testing.T) {
	d, store, _ := newDaemon(t)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	song, err := d.Submit(ctx, daemon.SubmitRequest{
		Title:    "Africa",
		Artist:   "Toto",
		UserID:   "u1",
		UserName: "Jamie",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForStatus(t, store, song.ID, songs.StatusReady)

	user, err := store.GetUser(ctx, "u1")
	if err != nil || user == nil {
		t.Fatalf("expected user registered, got %v / %v", user, err)
	}
}

func TestSubmitValidatesInput(t *testing.T) {
	d, _, _ := newDaemon(t)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	_, err := d.Submit(ctx, daemon.SubmitRequest{Title: " ", Artist: "Toto", UserID: "u1"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	_, err = d.Submit(ctx, daemon.SubmitRequest{Title: "Africa", Artist: "Toto"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing user, got %v", err)
	}
}

func TestSecondInstanceRejected(t *testing.T) {
	d, store, cfg := newDaemon(t)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	orch := pipeline.New(cfg, store, nil, pipeline.Gateways{
		Sources:   []media.Source{&testsupport.StubSource{SourceName: "ytdlp"}},
		Separator: &testsupport.StubSeparator{},
		Composer:  &testsupport.StubComposer{},
	}, nil, logging.NewNop())
	second, err := daemon.New(cfg, store, nil, orch, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be rejected")
	}
}

func TestStartupFailsInterruptedSongs(t *testing.T) {
	d, store, _ := newDaemon(t)
	ctx := context.Background()

	song := testsupport.NewSong(t, store, "Stranded", "Artist")
	testsupport.ForceStatus(t, store, song.ID, songs.StatusSeparating)

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	recovered, err := store.GetByID(ctx, song.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if recovered.Status != songs.StatusFailed {
		t.Fatalf("expected interrupted song failed, got %s", recovered.Status)
	}
	if recovered.ErrorMessage != songs.RestartReason {
		t.Fatalf("expected restart reason, got %q", recovered.ErrorMessage)
	}
}

func TestAdvancePromotesOldestReady(t *testing.T) {
	d, store, _ := newDaemon(t)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	first := testsupport.NewSong(t, store, "First", "A")
	testsupport.ForceStatus(t, store, first.ID, songs.StatusPlaying)
	second := testsupport.NewSong(t, store, "Second", "B")
	testsupport.ForceStatus(t, store, second.ID, songs.StatusReady)

	promoted, err := d.Advance(ctx)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if promoted == nil || promoted.ID != second.ID {
		t.Fatalf("expected second song promoted, got %+v", promoted)
	}

	done, err := store.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if done.Status != songs.StatusCompleted {
		t.Fatalf("expected first song completed, got %s", done.Status)
	}
}

func TestRequeuePollerAdmitsStrandedSongs(t *testing.T) {
	d, store, cfg := newDaemon(t)
	cfg.Workflow.ErrorRetryInterval = 1

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	// Created after startup recovery ran, so only the poller can pick it up.
	song := testsupport.NewSong(t, store, "Stranded", "Artist")
	waitForStatus(t, store, song.ID, songs.StatusReady)
}

func TestCacheEvictHonorsOverrides(t *testing.T) {
	d, _, cfg := newDaemon(t)
	ctx := context.Background()

	index, err := artifactcache.Open(cfg, logging.NewNop())
	if err != nil || index == nil {
		t.Fatalf("artifactcache.Open: %v", err)
	}
	t.Cleanup(func() { _ = index.Close() })
	for _, fp := range []string{"fp-a", "fp-b", "fp-c"} {
		dir := index.EntryDir(fp)
		artifacts := songs.Artifacts{
			Instrumental: filepath.Join(dir, "instrumental.wav"),
			Video:        filepath.Join(dir, "karaoke.mp4"),
		}
		testsupport.WriteFile(t, artifacts.Instrumental, 16)
		testsupport.WriteFile(t, artifacts.Video, 16)
		if err := index.Insert(ctx, fp, artifacts, 32); err != nil {
			t.Fatalf("Insert %s: %v", fp, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	// Zero limits fall back to the configured defaults, which keep all three.
	result, err := d.CacheEvict(ctx, 0, 0)
	if err != nil {
		t.Fatalf("CacheEvict: %v", err)
	}
	if result.AgeEvicted != 0 || result.CountEvicted != 0 {
		t.Fatalf("expected defaults to keep fresh entries, got %+v", result)
	}

	result, err = d.CacheEvict(ctx, 0, 2)
	if err != nil {
		t.Fatalf("CacheEvict: %v", err)
	}
	if result.CountEvicted != 1 {
		t.Fatalf("expected override to trim one entry, got %+v", result)
	}
}

func TestStatusReportsUpNext(t *testing.T) {
	d, store, _ := newDaemon(t)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	song := testsupport.NewSong(t, store, "Waiting", "A")
	testsupport.ForceStatus(t, store, song.ID, songs.StatusReady)

	status := d.Status(ctx)
	if status.UpNext == nil || status.UpNext.ID != song.ID {
		t.Fatalf("expected ready song as up next, got %+v", status.UpNext)
	}
}

func TestStatusReportsRuntimeInfo(t *testing.T) {
	d, store, cfg := newDaemon(t)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	testsupport.NewSong(t, store, "Queued", "A")

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected running status")
	}
	if status.SocketPath != cfg.SocketPath() {
		t.Fatalf("unexpected socket path %q", status.SocketPath)
	}
	if status.QueueStats[songs.StatusQueued] < 1 {
		t.Fatalf("expected queued count, got %v", status.QueueStats)
	}
}
