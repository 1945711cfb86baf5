package localstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"openmic/internal/media"
	"openmic/internal/media/localstore"
)

func seedLibrary(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := []string{
		filepath.Join(root, "Queen", "Bohemian Rhapsody.flac"),
		filepath.Join(root, "Toto", "Africa.mp3"),
		filepath.Join(root, "notes.txt"),
	}
	for _, path := range files {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return root
}

func TestFindMatchesByDirectoryAndName(t *testing.T) {
	store, err := localstore.New(seedLibrary(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	candidate, err := store.Find(context.Background(), "bohemian rhapsody", "queen", media.Constraints{})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if candidate == nil {
		t.Fatal("expected library match")
	}
	if filepath.Base(candidate.Location) != "Bohemian Rhapsody.flac" {
		t.Fatalf("unexpected match: %s", candidate.Location)
	}
	if candidate.SourceName != "localstore" {
		t.Fatalf("unexpected source name %q", candidate.SourceName)
	}
}

func TestFindMissReturnsNil(t *testing.T) {
	store, err := localstore.New(seedLibrary(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	candidate, err := store.Find(context.Background(), "Nonexistent Song", "Nobody", media.Constraints{})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if candidate != nil {
		t.Fatalf("expected miss, got %#v", candidate)
	}
}

func TestFindMissingLibraryIsMissNotError(t *testing.T) {
	store, err := localstore.New(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	candidate, err := store.Find(context.Background(), "Anything", "Anyone", media.Constraints{})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if candidate != nil {
		t.Fatalf("expected miss, got %#v", candidate)
	}
}

func TestFetchCopiesIntoStaging(t *testing.T) {
	store, err := localstore.New(seedLibrary(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	candidate, err := store.Find(ctx, "Africa", "Toto", media.Constraints{})
	if err != nil || candidate == nil {
		t.Fatalf("Find: candidate=%#v err=%v", candidate, err)
	}

	destDir := t.TempDir()
	var done bool
	path, err := store.Fetch(ctx, candidate, destDir, func(pct float64) { done = pct == 100 })
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if filepath.Dir(path) != destDir {
		t.Fatalf("expected staged copy in %s, got %s", destDir, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("staged copy missing: %v", err)
	}
	if !done {
		t.Fatal("expected completion progress callback")
	}
}
