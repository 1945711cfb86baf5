package lyricsync_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"openmic/internal/media"
	"openmic/internal/media/lyricsync"
)

func TestParseLRC(t *testing.T) {
	text := strings.Join([]string{
		"[ar:Queen]",
		"[00:05.20]Is this the real life",
		"[00:09.80]Is this just fantasy",
		"",
		"[01:02]Caught in a landslide",
		"not a lyric line",
	}, "\n")

	lines := lyricsync.ParseLRC(text)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %#v", len(lines), lines)
	}
	if lines[0].At != 5*time.Second+200*time.Millisecond {
		t.Fatalf("unexpected first offset: %v", lines[0].At)
	}
	if lines[0].Text != "Is this the real life" {
		t.Fatalf("unexpected first text: %q", lines[0].Text)
	}
	if lines[2].At != time.Minute+2*time.Second {
		t.Fatalf("unexpected third offset: %v", lines[2].At)
	}
}

func TestParseLRCRepeatedTimestamps(t *testing.T) {
	lines := lyricsync.ParseLRC("[00:10.00][01:10.00]Chorus line")
	if len(lines) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(lines))
	}
	if lines[0].Text != "Chorus line" || lines[1].Text != "Chorus line" {
		t.Fatalf("unexpected texts: %#v", lines)
	}
	if !(lines[0].At < lines[1].At) {
		t.Fatal("expected sorted offsets")
	}
}

func TestFetchAndSyncReturnsTimedLines(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("track_name"); got != "Landslide" {
			t.Errorf("unexpected track_name %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"syncedLyrics":"[00:01.00]I took my love\n[00:04.50]I took it down"}`))
	}))
	defer server.Close()

	client, err := lyricsync.New(server.URL, time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	lines, err := client.FetchAndSync(context.Background(), "Landslide", "Fleetwood Mac", "")
	if err != nil {
		t.Fatalf("FetchAndSync: %v", err)
	}
	if len(lines) != 2 || lines[1].Text != "I took it down" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
}

func TestFetchAndSyncMissingLyricsIsNotError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client, err := lyricsync.New(server.URL, time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	lines, err := client.FetchAndSync(context.Background(), "Obscure", "Nobody", "")
	if err != nil {
		t.Fatalf("expected soft miss, got %v", err)
	}
	if lines != nil {
		t.Fatalf("expected nil lines, got %#v", lines)
	}
}

func TestFetchAndSyncInstrumentalTrack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"instrumental":true,"syncedLyrics":""}`))
	}))
	defer server.Close()

	client, err := lyricsync.New(server.URL, time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	lines, err := client.FetchAndSync(context.Background(), "Jessica", "The Allman Brothers Band", "")
	if err != nil || lines != nil {
		t.Fatalf("expected miss for instrumental track, lines=%#v err=%v", lines, err)
	}
}

func TestWriteLRCRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "song.lrc")
	in := []media.TimedLine{
		{At: 1200 * time.Millisecond, Text: "First"},
		{At: 65 * time.Second, Text: "Second"},
	}

	written, err := lyricsync.WriteLRC(path, in)
	if err != nil {
		t.Fatalf("WriteLRC: %v", err)
	}
	raw, err := os.ReadFile(written)
	if err != nil {
		t.Fatalf("read lrc: %v", err)
	}

	out := lyricsync.ParseLRC(string(raw))
	if len(out) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(out))
	}
	if out[0].At != in[0].At || out[1].Text != "Second" {
		t.Fatalf("round trip mismatch: %#v", out)
	}
}
