package artifactcache_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"openmic/internal/artifactcache"
	"openmic/internal/config"
	"openmic/internal/logging"
	"openmic/internal/songs"
	"openmic/internal/testsupport"
)

func mustOpenIndex(t *testing.T, cfg *config.Config) *artifactcache.Index {
	t.Helper()
	index, err := artifactcache.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("artifactcache.Open: %v", err)
	}
	if index == nil {
		t.Fatal("expected cache index to be enabled")
	}
	t.Cleanup(func() { _ = index.Close() })
	return index
}

func seedEntry(t *testing.T, index *artifactcache.Index, fingerprint string) songs.Artifacts {
	t.Helper()
	dir := index.EntryDir(fingerprint)
	artifacts := songs.Artifacts{
		Instrumental: filepath.Join(dir, "instrumental.wav"),
		Video:        filepath.Join(dir, "karaoke.mp4"),
	}
	testsupport.WriteFile(t, artifacts.Instrumental, 128)
	testsupport.WriteFile(t, artifacts.Video, 256)
	if err := index.Insert(context.Background(), fingerprint, artifacts, 384); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return artifacts
}

func TestLookupMissReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	index := mustOpenIndex(t, cfg)

	entry, err := index.Lookup(context.Background(), "deadbeef")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected miss, got %#v", entry)
	}
}

func TestInsertThenLookupHit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	index := mustOpenIndex(t, cfg)
	artifacts := seedEntry(t, index, "fp-hit")

	entry, err := index.Lookup(context.Background(), "fp-hit")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if entry == nil {
		t.Fatal("expected hit")
	}
	if entry.Artifacts.Video != artifacts.Video || entry.SizeBytes != 384 {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	if entry.LastAccessed.IsZero() {
		t.Fatal("expected last accessed to be set")
	}
}

func TestLookupPurgesEntryWithMissingFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	index := mustOpenIndex(t, cfg)
	artifacts := seedEntry(t, index, "fp-gap")

	if err := os.Remove(artifacts.Instrumental); err != nil {
		t.Fatalf("remove backing file: %v", err)
	}

	ctx := context.Background()
	entry, err := index.Lookup(ctx, "fp-gap")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected self-healing miss, got %#v", entry)
	}

	// The purge must remove the remaining backing files as well.
	if _, err := os.Stat(artifacts.Video); !os.IsNotExist(err) {
		t.Fatalf("expected remaining files removed, stat err: %v", err)
	}

	// A fresh insert for the same fingerprint works afterwards.
	seedEntry(t, index, "fp-gap")
	entry, err = index.Lookup(ctx, "fp-gap")
	if err != nil {
		t.Fatalf("Lookup after reseed: %v", err)
	}
	if entry == nil {
		t.Fatal("expected hit after reseed")
	}
}

func TestInsertRequiresMandatoryArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	index := mustOpenIndex(t, cfg)

	err := index.Insert(context.Background(), "fp-bad", songs.Artifacts{Instrumental: "/only/instrumental.wav"}, 10)
	if err == nil {
		t.Fatal("expected error when video artifact missing")
	}
}

func TestPublishMovesArtifactsIntoEntryDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	index := mustOpenIndex(t, cfg)

	runDir := t.TempDir()
	staged := songs.Artifacts{
		Original:     filepath.Join(runDir, "original.wav"),
		Instrumental: filepath.Join(runDir, "no_vocals.wav"),
		Lyrics:       filepath.Join(runDir, "lyrics.lrc"),
		Video:        filepath.Join(runDir, "karaoke.mp4"),
	}
	testsupport.WriteFile(t, staged.Original, 64)
	testsupport.WriteFile(t, staged.Instrumental, 128)
	testsupport.WriteFile(t, staged.Lyrics, 32)
	testsupport.WriteFile(t, staged.Video, 256)

	ctx := context.Background()
	published, err := index.Publish(ctx, "fp-pub", staged)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	entryDir := index.EntryDir("fp-pub")
	for _, path := range []string{published.Original, published.Instrumental, published.Lyrics, published.Video} {
		if filepath.Dir(path) != entryDir {
			t.Fatalf("expected %q under entry dir %q", path, entryDir)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected published file to exist: %v", err)
		}
	}
	if _, err := os.Stat(staged.Video); !os.IsNotExist(err) {
		t.Fatalf("expected staged file moved away, stat err: %v", err)
	}

	entry, err := index.Lookup(ctx, "fp-pub")
	if err != nil || entry == nil {
		t.Fatalf("expected hit after publish, entry=%#v err=%v", entry, err)
	}
	if entry.SizeBytes != 480 {
		t.Fatalf("expected size summed from published files, got %d", entry.SizeBytes)
	}
}

func TestPublishAdoptsExistingEntry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	index := mustOpenIndex(t, cfg)
	existing := seedEntry(t, index, "fp-race")

	runDir := t.TempDir()
	loser := songs.Artifacts{
		Instrumental: filepath.Join(runDir, "no_vocals.wav"),
		Video:        filepath.Join(runDir, "karaoke.mp4"),
	}
	testsupport.WriteFile(t, loser.Instrumental, 128)
	testsupport.WriteFile(t, loser.Video, 256)

	published, err := index.Publish(context.Background(), "fp-race", loser)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if published.Video != existing.Video || published.Instrumental != existing.Instrumental {
		t.Fatalf("expected existing artifacts adopted, got %#v", published)
	}

	// The losing producer's files are discarded, the winner's stay put.
	if _, err := os.Stat(loser.Video); !os.IsNotExist(err) {
		t.Fatalf("expected losing video removed, stat err: %v", err)
	}
	if _, err := os.Stat(existing.Video); err != nil {
		t.Fatalf("expected winning video untouched: %v", err)
	}
}

func TestEvictByCountKeepsRecentlyAccessed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	index := mustOpenIndex(t, cfg)

	ctx := context.Background()
	for _, fp := range []string{"fp-a", "fp-b", "fp-c"} {
		seedEntry(t, index, fp)
		time.Sleep(2 * time.Millisecond)
	}

	// Touch the oldest entry so LRU order becomes b, c, a.
	if _, err := index.Lookup(ctx, "fp-a"); err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	result, err := index.Evict(ctx, 0, 2)
	if err != nil {
		t.Fatalf("Evict: %v", err)
	}
	if result.CountEvicted != 1 {
		t.Fatalf("expected 1 count eviction, got %+v", result)
	}

	if entry, err := index.Lookup(ctx, "fp-b"); err != nil || entry != nil {
		t.Fatalf("expected fp-b evicted, entry=%#v err=%v", entry, err)
	}
	for _, fp := range []string{"fp-a", "fp-c"} {
		entry, err := index.Lookup(ctx, fp)
		if err != nil {
			t.Fatalf("Lookup %s: %v", fp, err)
		}
		if entry == nil {
			t.Fatalf("expected %s to survive eviction", fp)
		}
	}
}

func TestEvictByAge(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	index := mustOpenIndex(t, cfg)

	ctx := context.Background()
	seedEntry(t, index, "fp-old")
	seedEntry(t, index, "fp-new")

	// Entries were just created, so a one-day cutoff removes nothing.
	result, err := index.Evict(ctx, 1, 0)
	if err != nil {
		t.Fatalf("Evict: %v", err)
	}
	if result.AgeEvicted != 0 {
		t.Fatalf("expected no age evictions, got %+v", result)
	}

	stats, err := index.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entries != 2 {
		t.Fatalf("expected 2 entries, got %d", stats.Entries)
	}
	if stats.TotalBytes != 768 {
		t.Fatalf("expected 768 total bytes, got %d", stats.TotalBytes)
	}
	if stats.TotalFSBytes == 0 || stats.FreeBytes == 0 {
		t.Fatalf("expected filesystem stats, got %+v", stats)
	}
}

func TestDisabledCacheIsAlwaysMiss(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCacheDisabled())
	index, err := artifactcache.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if index != nil {
		t.Fatal("expected nil index when cache disabled")
	}

	// Nil-receiver calls are safe no-ops.
	entry, err := index.Lookup(context.Background(), "fp")
	if err != nil || entry != nil {
		t.Fatalf("expected nil-index miss, entry=%#v err=%v", entry, err)
	}
	if err := index.Insert(context.Background(), "fp", songs.Artifacts{}, 0); err != nil {
		t.Fatalf("nil insert: %v", err)
	}
}
