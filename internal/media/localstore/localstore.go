// Package localstore serves acquisition requests from a local music library,
// the fallback when networked sources cannot deliver.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"openmic/internal/fileutil"
	"openmic/internal/media"
)

const sourceName = "localstore"

var audioExtensions = map[string]struct{}{
	".wav":  {},
	".flac": {},
	".mp3":  {},
	".m4a":  {},
	".ogg":  {},
	".opus": {},
}

// Store scans a library directory for matching audio files.
type Store struct {
	root string
}

// New builds a local library source rooted at dir.
func New(dir string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("library directory required")
	}
	return &Store{root: dir}, nil
}

// Name identifies this source in the ranked acquisition chain.
func (s *Store) Name() string { return sourceName }

// Find walks the library looking for a file whose name mentions both the
// title and artist. Returns nil when nothing matches.
func (s *Store) Find(ctx context.Context, title, artist string, _ media.Constraints) (*media.Candidate, error) {
	wantTitle := normalize(title)
	wantArtist := normalize(artist)
	if wantTitle == "" {
		return nil, errors.New("title required")
	}

	var found string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrNotExist) {
				return filepath.SkipAll
			}
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := audioExtensions[strings.ToLower(filepath.Ext(d.Name()))]; !ok {
			return nil
		}
		haystack := normalize(strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))) + " " + normalize(filepath.Dir(path))
		if strings.Contains(haystack, wantTitle) && (wantArtist == "" || strings.Contains(haystack, wantArtist)) {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan library: %w", err)
	}
	if found == "" {
		return nil, nil
	}
	return &media.Candidate{
		SourceName: sourceName,
		ID:         found,
		Title:      title,
		Artist:     artist,
		Location:   found,
	}, nil
}

// Fetch copies the matched library file into destDir so later stages can
// work on staging-owned paths.
func (s *Store) Fetch(ctx context.Context, candidate *media.Candidate, destDir string, onProgress media.ProgressFunc) (string, error) {
	if candidate == nil || strings.TrimSpace(candidate.Location) == "" {
		return "", errors.New("candidate required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}

	destPath := filepath.Join(destDir, filepath.Base(candidate.Location))
	if err := fileutil.CopyFile(candidate.Location, destPath); err != nil {
		return "", fmt.Errorf("copy library file: %w", err)
	}
	if onProgress != nil {
		onProgress(100)
	}
	return destPath, nil
}

func normalize(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}
