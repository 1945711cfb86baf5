package songs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// List returns all songs ordered by request time, oldest first.
func (s *Store) List(ctx context.Context) ([]*Song, error) {
	return s.querySongs(ctx, `SELECT `+songColumns+` FROM songs ORDER BY requested_at ASC, id ASC`)
}

// ListByStatus returns songs in any of the given statuses, oldest first.
func (s *Store) ListByStatus(ctx context.Context, statuses ...Status) ([]*Song, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		placeholders[i] = "?"
		args[i] = status
	}
	query := `SELECT ` + songColumns + ` FROM songs WHERE status IN (` +
		strings.Join(placeholders, ", ") + `) ORDER BY requested_at ASC, id ASC`
	return s.querySongs(ctx, query, args...)
}

// ActiveQueue returns every song that has not finished its run yet, ordered
// by request time. Completed songs drop off the queue view; failed songs stay
// visible so users can resubmit.
func (s *Store) ActiveQueue(ctx context.Context) ([]*Song, error) {
	return s.querySongs(ctx,
		`SELECT `+songColumns+` FROM songs WHERE status != ? ORDER BY requested_at ASC, id ASC`,
		StatusCompleted,
	)
}

// CurrentPlaying returns the song currently marked playing, or nil.
func (s *Store) CurrentPlaying(ctx context.Context) (*Song, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+songColumns+` FROM songs WHERE status = ? LIMIT 1`, StatusPlaying)
	song, err := scanSong(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("current playing: %w", err)
	}
	return song, nil
}

// NextReady returns the oldest song in ready status, or nil when none waits.
func (s *Store) NextReady(ctx context.Context) (*Song, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+songColumns+` FROM songs WHERE status = ?
         ORDER BY requested_at ASC, id ASC LIMIT 1`, StatusReady)
	song, err := scanSong(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next ready: %w", err)
	}
	return song, nil
}

// Stats reports how many songs sit in each status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM songs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("song stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := make(map[Status]int, len(allStatuses))
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		parsed, ok := ParseStatus(status)
		if !ok {
			continue
		}
		stats[parsed] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stats rows: %w", err)
	}
	return stats, nil
}

func (s *Store) querySongs(ctx context.Context, query string, args ...any) ([]*Song, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query songs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var songs []*Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("scan song row: %w", err)
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("song rows: %w", err)
	}
	return songs, nil
}
