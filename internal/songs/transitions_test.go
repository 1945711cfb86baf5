package songs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"openmic/internal/services"
	"openmic/internal/songs"
	"openmic/internal/testsupport"
)

func TestTransitionFollowsLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	song := testsupport.NewSong(t, store, "Landslide", "Fleetwood Mac")

	steps := []songs.Status{
		songs.StatusAcquiring,
		songs.StatusSeparating,
		songs.StatusSyncing,
		songs.StatusComposing,
		songs.StatusReady,
		songs.StatusPlaying,
		songs.StatusCompleted,
	}
	for _, step := range steps {
		updated, err := store.Transition(ctx, song.ID, step)
		if err != nil {
			t.Fatalf("transition to %s: %v", step, err)
		}
		if updated.Status != step {
			t.Fatalf("expected %s, got %s", step, updated.Status)
		}
	}
}

func TestTransitionRejectsIllegalMove(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	song := testsupport.NewSong(t, store, "Hello", "Adele")

	if _, err := store.Transition(ctx, song.ID, songs.StatusPlaying); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := store.Transition(ctx, "missing", songs.StatusAcquiring); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestQueuedCanShortCircuitToReady(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	song := testsupport.NewSong(t, store, "Cached Hit", "Artist")

	updated, err := store.TransitionWith(ctx, song.ID, songs.StatusReady, func(s *songs.Song) {
		s.Progress = 100
		s.Artifacts.Instrumental = "/cache/x/instrumental.wav"
		s.Artifacts.Video = "/cache/x/karaoke.mp4"
	})
	if err != nil {
		t.Fatalf("transition queued->ready: %v", err)
	}
	if updated.Progress != 100 || !updated.Artifacts.Complete() {
		t.Fatalf("expected cache-hit mutation to apply, got %#v", updated)
	}
}

func TestResubmitResetsRunFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	song := testsupport.NewSong(t, store, "Retry Me", "Artist")
	testsupport.ForceStatus(t, store, song.ID, songs.StatusFailed)

	failed, err := store.GetByID(ctx, song.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	failed.ErrorMessage = "acquire: no source succeeded"
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	requeued, err := store.Transition(ctx, song.ID, songs.StatusQueued)
	if err != nil {
		t.Fatalf("transition failed->queued: %v", err)
	}
	if requeued.Progress != 0 || requeued.ErrorMessage != "" {
		t.Fatalf("expected run fields to reset, got %#v", requeued)
	}
}

func TestUpdateProgressIsMonotonic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	song := testsupport.NewSong(t, store, "Progress", "Artist")

	if err := store.UpdateProgress(ctx, song.ID, 42); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	if err := store.UpdateProgress(ctx, song.ID, 17); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, song.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Progress != 42 {
		t.Fatalf("expected progress to stay at 42, got %d", fetched.Progress)
	}

	if err := store.UpdateProgress(ctx, song.ID, 250); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	fetched, err = store.GetByID(ctx, song.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Progress != 100 {
		t.Fatalf("expected progress clamped to 100, got %d", fetched.Progress)
	}
}

func TestAdvanceQueuePromotesOldestReady(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	playing := testsupport.NewSong(t, store, "Now Playing", "A")
	time.Sleep(2 * time.Millisecond)
	first := testsupport.NewSong(t, store, "Up Next", "B")
	time.Sleep(2 * time.Millisecond)
	second := testsupport.NewSong(t, store, "Later", "C")

	testsupport.ForceStatus(t, store, playing.ID, songs.StatusPlaying)
	testsupport.ForceStatus(t, store, first.ID, songs.StatusReady)
	testsupport.ForceStatus(t, store, second.ID, songs.StatusReady)

	promoted, err := store.AdvanceQueue(ctx)
	if err != nil {
		t.Fatalf("AdvanceQueue failed: %v", err)
	}
	if promoted == nil || promoted.ID != first.ID {
		t.Fatalf("expected oldest ready song promoted, got %#v", promoted)
	}

	done, err := store.GetByID(ctx, playing.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if done.Status != songs.StatusCompleted {
		t.Fatalf("expected playing song completed, got %s", done.Status)
	}

	current, err := store.CurrentPlaying(ctx)
	if err != nil {
		t.Fatalf("CurrentPlaying failed: %v", err)
	}
	if current == nil || current.ID != first.ID {
		t.Fatalf("expected exactly one playing song, got %#v", current)
	}
}

func TestAdvanceQueueWithNothingReady(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	playing := testsupport.NewSong(t, store, "Solo", "A")
	testsupport.ForceStatus(t, store, playing.ID, songs.StatusPlaying)

	promoted, err := store.AdvanceQueue(ctx)
	if err != nil {
		t.Fatalf("AdvanceQueue failed: %v", err)
	}
	if promoted != nil {
		t.Fatalf("expected no promotion, got %#v", promoted)
	}

	done, err := store.GetByID(ctx, playing.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if done.Status != songs.StatusCompleted {
		t.Fatalf("expected playing song completed, got %s", done.Status)
	}
}

func TestFailStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	stuck := testsupport.NewSong(t, store, "Stuck", "A")
	testsupport.ForceStatus(t, store, stuck.ID, songs.StatusSeparating)
	queued := testsupport.NewSong(t, store, "Fine", "B")

	count, err := store.FailStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("FailStuckProcessing failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 stuck song, got %d", count)
	}

	failed, err := store.GetByID(ctx, stuck.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if failed.Status != songs.StatusFailed || failed.ErrorMessage != songs.RestartReason {
		t.Fatalf("unexpected stuck song state: %#v", failed)
	}

	untouched, err := store.GetByID(ctx, queued.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if untouched.Status != songs.StatusQueued {
		t.Fatalf("queued song should be untouched, got %s", untouched.Status)
	}
}

func TestCanTransitionTable(t *testing.T) {
	legal := []struct{ from, to songs.Status }{
		{songs.StatusQueued, songs.StatusAcquiring},
		{songs.StatusQueued, songs.StatusReady},
		{songs.StatusSyncing, songs.StatusComposing},
		{songs.StatusReady, songs.StatusPlaying},
		{songs.StatusFailed, songs.StatusQueued},
		{songs.StatusCompleted, songs.StatusQueued},
	}
	for _, tc := range legal {
		if !songs.CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be legal", tc.from, tc.to)
		}
	}

	illegal := []struct{ from, to songs.Status }{
		{songs.StatusQueued, songs.StatusPlaying},
		{songs.StatusReady, songs.StatusFailed},
		{songs.StatusPlaying, songs.StatusReady},
		{songs.StatusCompleted, songs.StatusPlaying},
		{songs.StatusAcquiring, songs.StatusComposing},
	}
	for _, tc := range illegal {
		if songs.CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}
