package api

import (
	"time"

	"openmic/internal/artifactcache"
	"openmic/internal/songs"
)

// FromSong converts a store record to its API representation.
func FromSong(song *songs.Song) SongView {
	if song == nil {
		return SongView{}
	}

	view := SongView{
		ID:             song.ID,
		Title:          song.Title,
		Artist:         song.Artist,
		Requester:      song.UserName,
		RequesterColor: song.UserColor,
		Status:         string(song.Status),
		Progress:       song.Progress,
		ErrorMessage:   song.ErrorMessage,
		Fingerprint:    song.Fingerprint,
		Artifacts: ArtifactsView{
			Original:     song.Artifacts.Original,
			Instrumental: song.Artifacts.Instrumental,
			Lyrics:       song.Artifacts.Lyrics,
			Video:        song.Artifacts.Video,
		},
	}
	view.RequestedAt = FormatTime(song.RequestedAt)
	view.UpdatedAt = FormatTime(song.UpdatedAt)
	return view
}

// FromSongs converts a slice of store records into API views.
func FromSongs(items []*songs.Song) []SongView {
	if len(items) == 0 {
		return nil
	}
	out := make([]SongView, 0, len(items))
	for _, song := range items {
		out = append(out, FromSong(song))
	}
	return out
}

// MergeQueueStats produces a string-keyed representation of queue stats.
func MergeQueueStats(stats map[songs.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// FromCacheStats converts cache occupancy figures to an API view.
func FromCacheStats(stats artifactcache.Stats) CacheStatsView {
	return CacheStatsView{
		Entries:      stats.Entries,
		TotalBytes:   stats.TotalBytes,
		OldestEntry:  FormatTime(stats.OldestEntry),
		NewestEntry:  FormatTime(stats.NewestEntry),
		FreeBytes:    stats.FreeBytes,
		TotalFSBytes: stats.TotalFSBytes,
	}
}

// FormatTime converts a time to RFC3339 or returns the empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
