package testsupport

import (
	"context"
	"testing"

	"openmic/internal/config"
	"openmic/internal/songs"
)

// MustOpenStore opens a songs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *songs.Store {
	t.Helper()

	store, err := songs.Open(cfg)
	if err != nil {
		t.Fatalf("songs.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// NewSong creates a new song request for tests using the provided store.
func NewSong(t testing.TB, store *songs.Store, title, artist string) *songs.Song {
	t.Helper()

	song, err := store.NewSong(context.Background(), songs.User{ID: "tester", DisplayName: "Tester"}, title, artist)
	if err != nil {
		t.Fatalf("store.NewSong: %v", err)
	}
	return song
}

// ForceStatus drives a song through legal transitions until it reaches the
// target status, failing the test when no path exists.
func ForceStatus(t testing.TB, store *songs.Store, id string, target songs.Status) *songs.Song {
	t.Helper()

	paths := map[songs.Status][]songs.Status{
		songs.StatusAcquiring:  {songs.StatusAcquiring},
		songs.StatusSeparating: {songs.StatusAcquiring, songs.StatusSeparating},
		songs.StatusSyncing:    {songs.StatusAcquiring, songs.StatusSeparating, songs.StatusSyncing},
		songs.StatusComposing:  {songs.StatusAcquiring, songs.StatusSeparating, songs.StatusSyncing, songs.StatusComposing},
		songs.StatusReady:      {songs.StatusAcquiring, songs.StatusSeparating, songs.StatusSyncing, songs.StatusComposing, songs.StatusReady},
		songs.StatusPlaying:    {songs.StatusAcquiring, songs.StatusSeparating, songs.StatusSyncing, songs.StatusComposing, songs.StatusReady, songs.StatusPlaying},
		songs.StatusCompleted:  {songs.StatusAcquiring, songs.StatusSeparating, songs.StatusSyncing, songs.StatusComposing, songs.StatusReady, songs.StatusPlaying, songs.StatusCompleted},
		songs.StatusFailed:     {songs.StatusFailed},
	}
	steps, ok := paths[target]
	if !ok {
		t.Fatalf("no transition path to %s", target)
	}

	ctx := context.Background()
	var song *songs.Song
	for _, step := range steps {
		var err error
		song, err = store.Transition(ctx, id, step)
		if err != nil {
			t.Fatalf("transition to %s: %v", step, err)
		}
	}
	return song
}
