package artifactcache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"openmic/internal/logging"
)

// Stats describes current cache usage.
type Stats struct {
	Entries      int       `json:"entries"`
	TotalBytes   int64     `json:"total_bytes"`
	OldestEntry  time.Time `json:"oldest_entry,omitempty"`
	NewestEntry  time.Time `json:"newest_entry,omitempty"`
	FreeBytes    uint64    `json:"free_bytes"`
	TotalFSBytes uint64    `json:"total_fs_bytes"`
}

// EvictResult reports what a sweep removed.
type EvictResult struct {
	AgeEvicted   int
	CountEvicted int
}

// Evict removes entries older than maxAgeDays, then trims the least recently
// used entries until at most maxEntries remain. An entry accessed at or after
// the sweep started is never evicted: the access time is rechecked under the
// per-key lock before deletion. Non-positive limits disable the matching pass.
func (ix *Index) Evict(ctx context.Context, maxAgeDays, maxEntries int) (EvictResult, error) {
	var result EvictResult
	if ix == nil {
		return result, nil
	}
	sweepStart := time.Now().UTC()

	candidates, err := ix.listByLastAccessed(ctx)
	if err != nil {
		return result, err
	}

	if maxAgeDays > 0 {
		cutoff := sweepStart.AddDate(0, 0, -maxAgeDays)
		for _, fp := range candidates {
			evicted, err := ix.evictIfStale(ctx, fp, sweepStart, func(e *Entry) bool {
				return e.LastAccessed.Before(cutoff)
			})
			if err != nil {
				return result, err
			}
			if evicted {
				result.AgeEvicted++
			}
		}
	}

	if maxEntries > 0 {
		remaining, err := ix.listByLastAccessed(ctx)
		if err != nil {
			return result, err
		}
		for _, fp := range remaining {
			if len(remaining)-result.CountEvicted <= maxEntries {
				break
			}
			evicted, err := ix.evictIfStale(ctx, fp, sweepStart, func(*Entry) bool { return true })
			if err != nil {
				return result, err
			}
			if evicted {
				result.CountEvicted++
			}
		}
	}

	if result.AgeEvicted+result.CountEvicted > 0 {
		ix.logger.InfoContext(ctx, "cache sweep finished",
			logging.Int("age_evicted", result.AgeEvicted),
			logging.Int("count_evicted", result.CountEvicted),
		)
	}
	return result, nil
}

// evictIfStale deletes a candidate under its key lock unless the entry was
// accessed during the sweep or its state no longer matches the predicate.
func (ix *Index) evictIfStale(ctx context.Context, fingerprint string, sweepStart time.Time, stale func(*Entry) bool) (bool, error) {
	unlock := ix.locks.lock(fingerprint)
	defer unlock()

	entry, err := ix.getEntry(ctx, fingerprint)
	if err != nil || entry == nil {
		return false, err
	}
	if !entry.LastAccessed.Before(sweepStart) {
		return false, nil
	}
	if !stale(entry) {
		return false, nil
	}
	if err := ix.deleteEntryLocked(ctx, fingerprint); err != nil {
		return false, err
	}
	return true, nil
}

// Stats returns cache usage plus filesystem free space.
func (ix *Index) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	if ix == nil {
		return stats, nil
	}

	row := ix.db.QueryRowContext(ctx,
		`SELECT COUNT(1), COALESCE(SUM(size_bytes), 0),
                COALESCE(MIN(created_at), ''), COALESCE(MAX(created_at), '')
         FROM cache_entries`)
	var oldest, newest string
	if err := row.Scan(&stats.Entries, &stats.TotalBytes, &oldest, &newest); err != nil {
		return stats, fmt.Errorf("cache stats: %w", err)
	}
	stats.OldestEntry = parseTime(oldest)
	stats.NewestEntry = parseTime(newest)

	total, free, err := ix.statfs(ix.dir)
	if err != nil {
		return stats, fmt.Errorf("cache statfs: %w", err)
	}
	stats.TotalFSBytes = total
	stats.FreeBytes = free
	return stats, nil
}

func (ix *Index) listByLastAccessed(ctx context.Context) ([]string, error) {
	rows, err := ix.db.QueryContext(ctx,
		`SELECT fingerprint FROM cache_entries ORDER BY last_accessed ASC, fingerprint ASC`)
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fingerprints []string
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("scan cache fingerprint: %w", err)
		}
		fingerprints = append(fingerprints, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cache entry rows: %w", err)
	}
	return fingerprints, nil
}

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	blockSize := uint64(stat.Bsize)
	return stat.Blocks * blockSize, stat.Bavail * blockSize, nil
}
