package songs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"openmic/internal/services"
)

// Transition moves a song to a new status, validating the move against the
// lifecycle table inside a transaction so concurrent writers cannot race the
// read-check-write.
func (s *Store) Transition(ctx context.Context, id string, to Status) (*Song, error) {
	return s.transitionTx(ctx, id, to, nil)
}

// TransitionWith behaves like Transition and applies mutate to the song
// before it is written back, letting callers attach artifacts or error text
// under the same transaction.
func (s *Store) TransitionWith(ctx context.Context, id string, to Status, mutate func(*Song)) (*Song, error) {
	return s.transitionTx(ctx, id, to, mutate)
}

func (s *Store) transitionTx(ctx context.Context, id string, to Status, mutate func(*Song)) (*Song, error) {
	ctx = ensureContext(ctx)
	var result *Song
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transition tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		row := tx.QueryRowContext(ctx, `SELECT `+songColumns+` FROM songs WHERE id = ?`, id)
		song, err := scanSong(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("song %s: %w", id, services.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load song for transition: %w", err)
		}

		if !CanTransition(song.Status, to) {
			return fmt.Errorf("song %s: %s -> %s: %w", id, song.Status, to, services.ErrValidation)
		}

		song.Status = to
		if to == StatusQueued {
			// Resubmission resets the run-scoped fields for a fresh attempt.
			song.Progress = 0
			song.ErrorMessage = ""
		}
		if mutate != nil {
			mutate(song)
		}
		song.UpdatedAt = time.Now().UTC()

		if err := updateSongTx(ctx, tx, song); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transition: %w", err)
		}
		result = song
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateProgress records stage progress for a song. Progress only moves
// forward within a run; a stale or out-of-order update is silently dropped
// by the conditional write.
func (s *Store) UpdateProgress(ctx context.Context, id string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE songs
         SET progress = CASE WHEN progress > ? THEN progress ELSE ? END,
             updated_at = ?
         WHERE id = ?`,
		progress,
		progress,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// AdvanceQueue completes the currently playing song (if any) and promotes
// the oldest ready song to playing, both inside one transaction. It returns
// the promoted song, or nil when nothing was ready.
func (s *Store) AdvanceQueue(ctx context.Context) (*Song, error) {
	ctx = ensureContext(ctx)
	var promoted *Song
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin advance tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		now := time.Now().UTC().Format(time.RFC3339Nano)
		if _, err := tx.ExecContext(ctx,
			`UPDATE songs SET status = ?, updated_at = ? WHERE status = ?`,
			StatusCompleted, now, StatusPlaying,
		); err != nil {
			return fmt.Errorf("complete playing song: %w", err)
		}

		row := tx.QueryRowContext(ctx,
			`SELECT `+songColumns+` FROM songs WHERE status = ?
             ORDER BY requested_at ASC, id ASC LIMIT 1`, StatusReady)
		next, err := scanSong(row)
		if errors.Is(err, sql.ErrNoRows) {
			promoted = nil
			return tx.Commit()
		}
		if err != nil {
			return fmt.Errorf("pick next ready song: %w", err)
		}

		next.Status = StatusPlaying
		next.UpdatedAt = time.Now().UTC()
		if err := updateSongTx(ctx, tx, next); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit advance: %w", err)
		}
		promoted = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return promoted, nil
}

// FailStuckProcessing fails any song left in a mid-run status by a previous
// daemon process. Called once at startup, before workers launch.
func (s *Store) FailStuckProcessing(ctx context.Context) (int, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE songs
         SET status = ?, progress = 0, error_message = ?, updated_at = ?
         WHERE status IN (?, ?, ?, ?)`,
		StatusFailed,
		RestartReason,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusAcquiring,
		StatusSeparating,
		StatusSyncing,
		StatusComposing,
	)
	if err != nil {
		return 0, fmt.Errorf("fail stuck songs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("fail stuck rows: %w", err)
	}
	return int(affected), nil
}

func updateSongTx(ctx context.Context, tx *sql.Tx, song *Song) error {
	if _, err := tx.ExecContext(
		ctx,
		`UPDATE songs
         SET user_id = ?, user_name = ?, user_color = ?, title = ?, artist = ?,
             status = ?, progress = ?, original_path = ?, instrumental_path = ?,
             lyrics_path = ?, video_path = ?, fingerprint = ?, error_message = ?,
             updated_at = ?
         WHERE id = ?`,
		nullableString(song.UserID),
		nullableString(song.UserName),
		nullableString(song.UserColor),
		song.Title,
		song.Artist,
		song.Status,
		song.Progress,
		nullableString(song.Artifacts.Original),
		nullableString(song.Artifacts.Instrumental),
		nullableString(song.Artifacts.Lyrics),
		nullableString(song.Artifacts.Video),
		nullableString(song.Fingerprint),
		nullableString(song.ErrorMessage),
		song.UpdatedAt.Format(time.RFC3339Nano),
		song.ID,
	); err != nil {
		return fmt.Errorf("write song %s: %w", song.ID, err)
	}
	return nil
}
