package artifactcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"openmic/internal/config"
	"openmic/internal/fileutil"
	"openmic/internal/logging"
	"openmic/internal/songs"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
    fingerprint       TEXT PRIMARY KEY,
    original_path     TEXT,
    instrumental_path TEXT NOT NULL,
    lyrics_path       TEXT,
    video_path        TEXT NOT NULL,
    size_bytes        INTEGER NOT NULL DEFAULT 0,
    created_at        TEXT NOT NULL,
    last_accessed     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_entries_last_accessed ON cache_entries(last_accessed);
`

// statfsFunc allows tests to stub filesystem stats.
type statfsFunc func(path string) (total uint64, free uint64, err error)

// Entry describes one cached work.
type Entry struct {
	Fingerprint  string
	Artifacts    songs.Artifacts
	SizeBytes    int64
	CreatedAt    time.Time
	LastAccessed time.Time
}

// Index manages the fingerprint-keyed artifact cache. A nil Index is valid
// and behaves as an always-miss cache, which is how a disabled cache is
// represented.
type Index struct {
	db     *sql.DB
	dir    string
	logger *slog.Logger
	locks  keyedMutex
	statfs statfsFunc
}

// Open builds the cache index when caching is enabled; returns nil when the
// cache is disabled or has no directory configured.
func Open(cfg *config.Config, logger *slog.Logger) (*Index, error) {
	if cfg == nil || !cfg.Cache.Enabled {
		return nil, nil
	}
	dir := strings.TrimSpace(cfg.Cache.Dir)
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "cache.db"))
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout = 5000"} {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	return &Index{
		db:     db,
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "artifactcache"),
		statfs: realStatfs,
	}, nil
}

// Close releases the index database.
func (ix *Index) Close() error {
	if ix == nil || ix.db == nil {
		return nil
	}
	return ix.db.Close()
}

// Dir returns the cache root directory.
func (ix *Index) Dir() string {
	if ix == nil {
		return ""
	}
	return ix.dir
}

// EntryDir returns the directory that holds a fingerprint's backing files.
func (ix *Index) EntryDir(fingerprint string) string {
	if ix == nil {
		return ""
	}
	return filepath.Join(ix.dir, fingerprint)
}

// Lookup returns the cached entry for a fingerprint, or nil on a miss. An
// entry whose mandatory files no longer exist on disk is deleted and counted
// as a miss; the hit's last-access time is bumped under the same per-key
// lock so a concurrent sweep never evicts it mid-read.
func (ix *Index) Lookup(ctx context.Context, fingerprint string) (*Entry, error) {
	if ix == nil || strings.TrimSpace(fingerprint) == "" {
		return nil, nil
	}
	unlock := ix.locks.lock(fingerprint)
	defer unlock()

	entry, err := ix.getEntry(ctx, fingerprint)
	if err != nil || entry == nil {
		return nil, err
	}

	if missing := missingMandatory(entry.Artifacts); missing != "" {
		ix.logger.WarnContext(ctx, "cache entry lost backing file; purging",
			logging.String("fingerprint", fingerprint),
			logging.String("missing_file", missing),
			logging.String(logging.FieldEventType, "cache_integrity_purge"),
		)
		if err := ix.deleteEntryLocked(ctx, fingerprint); err != nil {
			return nil, err
		}
		return nil, nil
	}

	entry.LastAccessed = time.Now().UTC()
	if _, err := ix.db.ExecContext(ctx,
		`UPDATE cache_entries SET last_accessed = ? WHERE fingerprint = ?`,
		entry.LastAccessed.Format(time.RFC3339Nano), fingerprint,
	); err != nil {
		return nil, fmt.Errorf("bump last accessed: %w", err)
	}
	return entry, nil
}

// Insert records a finished work in the cache, replacing any previous entry
// for the same fingerprint.
func (ix *Index) Insert(ctx context.Context, fingerprint string, artifacts songs.Artifacts, sizeBytes int64) error {
	if ix == nil {
		return nil
	}
	if strings.TrimSpace(fingerprint) == "" {
		return errors.New("fingerprint is required")
	}
	if !artifacts.Complete() {
		return errors.New("instrumental and video artifacts are required")
	}
	unlock := ix.locks.lock(fingerprint)
	defer unlock()
	return ix.upsertLocked(ctx, fingerprint, artifacts, sizeBytes)
}

// Publish moves a finished run's artifacts into the fingerprint's cache
// directory and records the entry, all under the per-key lock so concurrent
// producers of the same work converge on one backing set. When a valid entry
// already exists, the incoming files are discarded and the existing
// artifacts are returned instead.
func (ix *Index) Publish(ctx context.Context, fingerprint string, artifacts songs.Artifacts) (songs.Artifacts, error) {
	if ix == nil {
		return artifacts, nil
	}
	if strings.TrimSpace(fingerprint) == "" {
		return artifacts, errors.New("fingerprint is required")
	}
	if !artifacts.Complete() {
		return artifacts, errors.New("instrumental and video artifacts are required")
	}
	unlock := ix.locks.lock(fingerprint)
	defer unlock()

	existing, err := ix.getEntry(ctx, fingerprint)
	if err != nil {
		return artifacts, err
	}
	if existing != nil && missingMandatory(existing.Artifacts) == "" {
		if _, err := ix.db.ExecContext(ctx,
			`UPDATE cache_entries SET last_accessed = ? WHERE fingerprint = ?`,
			time.Now().UTC().Format(time.RFC3339Nano), fingerprint,
		); err != nil {
			return artifacts, fmt.Errorf("bump last accessed: %w", err)
		}
		discardFiles(artifacts, existing.Artifacts)
		return existing.Artifacts, nil
	}

	entryDir := ix.EntryDir(fingerprint)
	moved := artifacts
	for _, pair := range []struct {
		src string
		dst *string
	}{
		{artifacts.Original, &moved.Original},
		{artifacts.Instrumental, &moved.Instrumental},
		{artifacts.Lyrics, &moved.Lyrics},
		{artifacts.Video, &moved.Video},
	} {
		if pair.src == "" {
			continue
		}
		dest, err := fileutil.MoveFile(pair.src, entryDir)
		if err != nil {
			return artifacts, fmt.Errorf("publish artifact: %w", err)
		}
		*pair.dst = dest
	}

	if err := ix.upsertLocked(ctx, fingerprint, moved, artifactsSize(moved)); err != nil {
		return artifacts, err
	}
	return moved, nil
}

func (ix *Index) upsertLocked(ctx context.Context, fingerprint string, artifacts songs.Artifacts, sizeBytes int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := ix.db.ExecContext(ctx,
		`INSERT INTO cache_entries (
            fingerprint, original_path, instrumental_path, lyrics_path,
            video_path, size_bytes, created_at, last_accessed
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(fingerprint) DO UPDATE SET
            original_path = excluded.original_path,
            instrumental_path = excluded.instrumental_path,
            lyrics_path = excluded.lyrics_path,
            video_path = excluded.video_path,
            size_bytes = excluded.size_bytes,
            created_at = excluded.created_at,
            last_accessed = excluded.last_accessed`,
		fingerprint,
		nullIfEmpty(artifacts.Original),
		artifacts.Instrumental,
		nullIfEmpty(artifacts.Lyrics),
		artifacts.Video,
		sizeBytes,
		now,
		now,
	); err != nil {
		return fmt.Errorf("insert cache entry: %w", err)
	}
	return nil
}

// discardFiles removes a losing producer's files, skipping any path that is
// part of the winning artifact set.
func discardFiles(loser, winner songs.Artifacts) {
	kept := map[string]struct{}{
		winner.Original:     {},
		winner.Instrumental: {},
		winner.Lyrics:       {},
		winner.Video:        {},
	}
	for _, path := range []string{loser.Original, loser.Instrumental, loser.Lyrics, loser.Video} {
		if path == "" {
			continue
		}
		if _, ok := kept[path]; ok {
			continue
		}
		_ = os.Remove(path)
	}
}

func artifactsSize(artifacts songs.Artifacts) int64 {
	var total int64
	for _, path := range []string{artifacts.Original, artifacts.Instrumental, artifacts.Lyrics, artifacts.Video} {
		if path == "" {
			continue
		}
		if info, err := os.Stat(path); err == nil {
			total += info.Size()
		}
	}
	return total
}

// Delete removes an entry and its backing files.
func (ix *Index) Delete(ctx context.Context, fingerprint string) error {
	if ix == nil {
		return nil
	}
	unlock := ix.locks.lock(fingerprint)
	defer unlock()
	return ix.deleteEntryLocked(ctx, fingerprint)
}

func (ix *Index) deleteEntryLocked(ctx context.Context, fingerprint string) error {
	if _, err := ix.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE fingerprint = ?`, fingerprint); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	if err := os.RemoveAll(ix.EntryDir(fingerprint)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cache files: %w", err)
	}
	return nil
}

func (ix *Index) getEntry(ctx context.Context, fingerprint string) (*Entry, error) {
	row := ix.db.QueryRowContext(ctx,
		`SELECT fingerprint, original_path, instrumental_path, lyrics_path,
                video_path, size_bytes, created_at, last_accessed
         FROM cache_entries WHERE fingerprint = ?`, fingerprint)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	return entry, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		entry        Entry
		original     sql.NullString
		lyrics       sql.NullString
		createdAt    string
		lastAccessed string
	)
	if err := row.Scan(
		&entry.Fingerprint,
		&original,
		&entry.Artifacts.Instrumental,
		&lyrics,
		&entry.Artifacts.Video,
		&entry.SizeBytes,
		&createdAt,
		&lastAccessed,
	); err != nil {
		return nil, err
	}
	entry.Artifacts.Original = original.String
	entry.Artifacts.Lyrics = lyrics.String
	entry.CreatedAt = parseTime(createdAt)
	entry.LastAccessed = parseTime(lastAccessed)
	return &entry, nil
}

func missingMandatory(artifacts songs.Artifacts) string {
	for _, path := range []string{artifacts.Instrumental, artifacts.Video} {
		if _, err := os.Stat(path); err != nil {
			return path
		}
	}
	return ""
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func parseTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

// keyedMutex serializes work per fingerprint. Mutexes are retained for the
// life of the index; the key space is bounded by distinct works.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
