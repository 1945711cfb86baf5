package api_test

import (
	"testing"
	"time"

	"openmic/internal/api"
	"openmic/internal/songs"
)

func TestFromSongFlattensRecord(t *testing.T) {
	requested := time.Date(2026, time.March, 14, 21, 30, 0, 0, time.UTC)
	song := &songs.Song{
		ID:           "abc",
		UserID:       "u1",
		UserName:     "Jamie",
		UserColor:    "#ff8800",
		Title:        "Africa",
		Artist:       "Toto",
		Status:       songs.StatusReady,
		Progress:     100,
		Fingerprint:  "deadbeef",
		ErrorMessage: "",
		Artifacts: songs.Artifacts{
			Instrumental: "/cache/deadbeef/no_vocals.wav",
			Video:        "/cache/deadbeef/karaoke.mp4",
		},
		RequestedAt: requested,
		UpdatedAt:   requested.Add(time.Minute),
	}

	view := api.FromSong(song)
	if view.Status != "ready" || view.Progress != 100 {
		t.Fatalf("unexpected status view: %+v", view)
	}
	if view.Requester != "Jamie" {
		t.Fatalf("expected requester name, got %q", view.Requester)
	}
	if view.Artifacts.Video != song.Artifacts.Video {
		t.Fatalf("expected video path forwarded, got %q", view.Artifacts.Video)
	}
	if view.RequestedAt != "2026-03-14T21:30:00.000Z" {
		t.Fatalf("unexpected timestamp format: %q", view.RequestedAt)
	}
}

func TestFromSongNil(t *testing.T) {
	view := api.FromSong(nil)
	if view.ID != "" || view.Status != "" {
		t.Fatalf("expected zero view, got %+v", view)
	}
}

func TestMergeQueueStats(t *testing.T) {
	merged := api.MergeQueueStats(map[songs.Status]int{
		songs.StatusQueued: 2,
		songs.StatusReady:  1,
	})
	if merged["queued"] != 2 || merged["ready"] != 1 {
		t.Fatalf("unexpected merge: %v", merged)
	}
}

func TestFormatTimeZero(t *testing.T) {
	if got := api.FormatTime(time.Time{}); got != "" {
		t.Fatalf("expected empty string for zero time, got %q", got)
	}
}
