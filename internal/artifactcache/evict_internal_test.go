package artifactcache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"openmic/internal/logging"
	"openmic/internal/songs"
	"openmic/internal/testsupport"
)

// The sweep must never remove an entry whose last access landed after the
// sweep snapshot was taken; evictIfStale rechecks the access time under the
// per-key lock.
func TestEvictIfStaleSkipsEntryAccessedAfterSweepStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	index, err := Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if index == nil {
		t.Fatal("expected cache index to be enabled")
	}
	t.Cleanup(func() { _ = index.Close() })

	ctx := context.Background()
	dir := index.EntryDir("fp-live")
	artifacts := songs.Artifacts{
		Instrumental: filepath.Join(dir, "instrumental.wav"),
		Video:        filepath.Join(dir, "karaoke.mp4"),
	}
	testsupport.WriteFile(t, artifacts.Instrumental, 128)
	testsupport.WriteFile(t, artifacts.Video, 256)
	if err := index.Insert(ctx, "fp-live", artifacts, 384); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// Sweep snapshot taken before the entry's last access: no eviction even
	// when the predicate says stale.
	alwaysStale := func(*Entry) bool { return true }
	evicted, err := index.evictIfStale(ctx, "fp-live", time.Now().UTC().Add(-time.Hour), alwaysStale)
	if err != nil {
		t.Fatalf("evictIfStale: %v", err)
	}
	if evicted {
		t.Fatal("entry accessed after sweep start must survive")
	}
	if entry, err := index.getEntry(ctx, "fp-live"); err != nil || entry == nil {
		t.Fatalf("expected entry retained, entry=%#v err=%v", entry, err)
	}

	// With the snapshot after the last access the same predicate evicts.
	evicted, err = index.evictIfStale(ctx, "fp-live", time.Now().UTC().Add(time.Hour), alwaysStale)
	if err != nil {
		t.Fatalf("evictIfStale: %v", err)
	}
	if !evicted {
		t.Fatal("expected eviction once the access predates the sweep")
	}
	if entry, err := index.getEntry(ctx, "fp-live"); err != nil || entry != nil {
		t.Fatalf("expected entry removed, entry=%#v err=%v", entry, err)
	}
}
