package songs

import (
	"database/sql"
	"fmt"
	"time"
)

const songColumns = `id, user_id, user_name, user_color, title, artist,
    status, progress, original_path, instrumental_path, lyrics_path,
    video_path, fingerprint, error_message, requested_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSong(row rowScanner) (*Song, error) {
	var (
		song         Song
		userID       sql.NullString
		userName     sql.NullString
		userColor    sql.NullString
		status       string
		original     sql.NullString
		instrumental sql.NullString
		lyrics       sql.NullString
		video        sql.NullString
		fingerprint  sql.NullString
		errorMsg     sql.NullString
		requestedAt  string
		updatedAt    string
	)

	if err := row.Scan(
		&song.ID,
		&userID,
		&userName,
		&userColor,
		&song.Title,
		&song.Artist,
		&status,
		&song.Progress,
		&original,
		&instrumental,
		&lyrics,
		&video,
		&fingerprint,
		&errorMsg,
		&requestedAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	parsed, ok := ParseStatus(status)
	if !ok {
		return nil, fmt.Errorf("scan song %s: unknown status %q", song.ID, status)
	}
	song.Status = parsed
	song.UserID = userID.String
	song.UserName = userName.String
	song.UserColor = userColor.String
	song.Artifacts = Artifacts{
		Original:     original.String,
		Instrumental: instrumental.String,
		Lyrics:       lyrics.String,
		Video:        video.String,
	}
	song.Fingerprint = fingerprint.String
	song.ErrorMessage = errorMsg.String
	song.RequestedAt = parseTimeString(requestedAt)
	song.UpdatedAt = parseTimeString(updatedAt)
	return &song, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
