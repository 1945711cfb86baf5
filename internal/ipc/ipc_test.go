package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"openmic/internal/artifactcache"
	"openmic/internal/daemon"
	"openmic/internal/ipc"
	"openmic/internal/logging"
	"openmic/internal/media"
	"openmic/internal/pipeline"
	"openmic/internal/songs"
	"openmic/internal/testsupport"
)

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	cache, err := artifactcache.Open(cfg, logger)
	if err != nil {
		t.Fatalf("artifactcache.Open: %v", err)
	}

	orch := pipeline.New(cfg, store, cache, pipeline.Gateways{
		Sources:   []media.Source{&testsupport.StubSource{SourceName: "ytdlp"}},
		Separator: &testsupport.StubSeparator{},
		Composer:  &testsupport.StubComposer{},
	}, nil, logger)

	d, err := daemon.New(cfg, store, cache, orch, nil, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	socket := filepath.Join(cfg.Paths.LogDir, "openmic-test.sock")
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	submitResp, err := client.Submit(ipc.SubmitRequest{
		Title:    "Africa",
		Artist:   "Toto",
		UserID:   "u1",
		UserName: "Jamie",
	})
	if err != nil {
		t.Fatalf("Submit RPC failed: %v", err)
	}
	if submitResp.Song.ID == "" || submitResp.Song.Status != string(songs.StatusQueued) {
		t.Fatalf("unexpected submit response: %+v", submitResp.Song)
	}
	songID := submitResp.Song.ID

	testsupport.WaitFor(t, 5*time.Second, func() bool {
		resp, err := client.SongStatus(songID)
		return err == nil && resp.Song.Status == string(songs.StatusReady)
	})

	queueResp, err := client.QueueList(ipc.QueueListRequest{})
	if err != nil {
		t.Fatalf("QueueList RPC failed: %v", err)
	}
	if len(queueResp.Songs) != 1 {
		t.Fatalf("expected one active song, got %d", len(queueResp.Songs))
	}
	if queueResp.Counts["ready"] != 1 {
		t.Fatalf("unexpected counts: %v", queueResp.Counts)
	}

	upNextResp, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if upNextResp.UpNext == nil || upNextResp.UpNext.ID != songID {
		t.Fatalf("expected ready song as up next, got %+v", upNextResp.UpNext)
	}

	advResp, err := client.AdvanceQueue()
	if err != nil {
		t.Fatalf("AdvanceQueue RPC failed: %v", err)
	}
	if !advResp.Promoted || advResp.Song == nil || advResp.Song.ID != songID {
		t.Fatalf("expected song promoted to playing, got %+v", advResp)
	}

	playingResp, err := client.NowPlaying()
	if err != nil {
		t.Fatalf("NowPlaying RPC failed: %v", err)
	}
	if !playingResp.Playing || playingResp.Song.ID != songID {
		t.Fatalf("unexpected now playing: %+v", playingResp)
	}

	statsResp, err := client.CacheStats()
	if err != nil {
		t.Fatalf("CacheStats RPC failed: %v", err)
	}
	if statsResp.Stats.Entries != 1 {
		t.Fatalf("expected one cache entry, got %d", statsResp.Stats.Entries)
	}

	evictResp, err := client.CacheEvict(ipc.CacheEvictRequest{MaxAgeDays: 1})
	if err != nil {
		t.Fatalf("CacheEvict RPC failed: %v", err)
	}
	if evictResp.AgeEvicted != 0 || evictResp.CountEvicted != 0 {
		t.Fatalf("fresh entry must survive a one-day sweep: %+v", evictResp)
	}

	statusResp, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !statusResp.Running {
		t.Fatal("expected daemon running")
	}
	if statusResp.NowPlaying == nil || statusResp.NowPlaying.ID != songID {
		t.Fatalf("expected now playing in status, got %+v", statusResp.NowPlaying)
	}

	logPath := filepath.Join(cfg.Paths.LogDir, "openmic.log")
	if err := os.WriteFile(logPath, []byte("first line\nsecond line\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}
	logResp, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: 1})
	if err != nil {
		t.Fatalf("LogTail RPC failed: %v", err)
	}
	if len(logResp.Lines) != 1 || logResp.Lines[0] != "second line" {
		t.Fatalf("unexpected log lines: %#v", logResp.Lines)
	}
	if logResp.Offset == 0 {
		t.Fatal("expected non-zero log offset")
	}

	notifyResp, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification RPC failed: %v", err)
	}
	if notifyResp.Sent {
		t.Fatal("expected no notification without a configured topic")
	}

	// Finishing the playing song drops it from the active view; --all style
	// listing still includes it.
	if _, err := client.AdvanceQueue(); err != nil {
		t.Fatalf("AdvanceQueue RPC failed: %v", err)
	}
	activeResp, err := client.QueueList(ipc.QueueListRequest{})
	if err != nil {
		t.Fatalf("QueueList RPC failed: %v", err)
	}
	if len(activeResp.Songs) != 0 {
		t.Fatalf("expected empty active queue, got %d songs", len(activeResp.Songs))
	}
	allResp, err := client.QueueList(ipc.QueueListRequest{All: true})
	if err != nil {
		t.Fatalf("QueueList RPC failed: %v", err)
	}
	if len(allResp.Songs) != 1 {
		t.Fatalf("expected completed song in full listing, got %d", len(allResp.Songs))
	}

	stopResp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop RPC failed: %v", err)
	}
	if !stopResp.Stopped {
		t.Fatal("expected Stopped=true")
	}
}

func TestIPCErrorsPropagate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	orch := pipeline.New(cfg, store, nil, pipeline.Gateways{
		Sources:   []media.Source{&testsupport.StubSource{SourceName: "ytdlp"}},
		Separator: &testsupport.StubSeparator{},
		Composer:  &testsupport.StubComposer{},
	}, nil, logger)
	d, err := daemon.New(cfg, store, nil, orch, nil, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	socket := filepath.Join(cfg.Paths.LogDir, "openmic-test.sock")
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if _, err := client.SongStatus("missing"); err == nil {
		t.Fatal("expected error for unknown song")
	}
	if _, err := client.Cancel("missing"); err == nil {
		t.Fatal("expected error cancelling unknown song")
	}
	if _, err := client.Submit(ipc.SubmitRequest{Title: "", Artist: "x", UserID: "u"}); err == nil {
		t.Fatal("expected validation error")
	}
}
