package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"openmic/internal/artifactcache"
	"openmic/internal/config"
	"openmic/internal/logging"
	"openmic/internal/media"
	"openmic/internal/notifications"
	"openmic/internal/services"
	"openmic/internal/songs"
)

// Gateways bundles the collaborators a production run needs. Sources are
// ordered by configured rank; BaseVideo and Lyrics may be nil.
type Gateways struct {
	Sources   []media.Source
	BaseVideo media.BaseVideoFinder
	Separator media.Separator
	Lyrics    media.LyricsProvider
	Composer  media.Composer
}

// SubmitOptions carries per-run overrides. Zero values defer to the
// configured defaults.
type SubmitOptions struct {
	// Quality overrides the acquisition quality preset for this run. It also
	// keys the cache fingerprint, so runs at different qualities never share
	// an entry.
	Quality string
	// StageTimeouts overrides stage deadlines in seconds, keyed by stage name
	// (acquire, separate, sync_lyrics, compose).
	StageTimeouts map[string]int
}

// jobHandle tracks one admitted run. The generation is unique per run and
// guards against callbacks from abandoned runs touching fresh state.
type jobHandle struct {
	songID      string
	runID       string
	generation  uint64
	requestedAt time.Time
	opts        SubmitOptions
	dispatched  bool
	cancelled   bool
	cancel      context.CancelFunc
}

// Orchestrator owns the worker pool and the song registry.
type Orchestrator struct {
	cfg      *config.Config
	store    *songs.Store
	cache    *artifactcache.Index
	gateways Gateways
	notifier notifications.Service
	logger   *slog.Logger

	mu      sync.Mutex
	jobs    map[string]*jobHandle
	pending []*jobHandle
	nextGen uint64

	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	slots   chan struct{}
	wake    chan struct{}
}

// New constructs an orchestrator. cache may be nil (caching disabled).
func New(cfg *config.Config, store *songs.Store, cache *artifactcache.Index, gateways Gateways, notifier notifications.Service, logger *slog.Logger) *Orchestrator {
	workers := cfg.Workflow.MaxConcurrentJobs
	if workers <= 0 {
		workers = 1
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		cache:    cache,
		gateways: gateways,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		jobs:     make(map[string]*jobHandle),
		slots:    make(chan struct{}, workers),
		wake:     make(chan struct{}, 1),
	}
}

// Start launches the dispatcher. It returns an error when already running.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return errors.New("pipeline already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.running = true
	o.wg.Add(1)
	go o.dispatchLoop(runCtx)
	return nil
}

// Stop cancels all runs and waits for workers to exit.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	cancel := o.cancel
	o.running = false
	o.cancel = nil
	o.mu.Unlock()

	cancel()
	o.wg.Wait()
}

// Submit admits a song for production with default options.
func (o *Orchestrator) Submit(ctx context.Context, songID string) error {
	return o.SubmitWith(ctx, songID, SubmitOptions{})
}

// SubmitWith admits a song for production. A song already registered returns
// ErrAlreadyProcessing; an unknown id returns ErrNotFound. Terminal songs are
// requeued first, so resubmission after failure is a single call.
func (o *Orchestrator) SubmitWith(ctx context.Context, songID string, opts SubmitOptions) error {
	song, err := o.store.GetByID(ctx, songID)
	if err != nil {
		return err
	}
	if song == nil {
		return fmt.Errorf("song %s: %w", songID, services.ErrNotFound)
	}

	if songs.IsTerminal(song.Status) {
		if song, err = o.store.Transition(ctx, songID, songs.StatusQueued); err != nil {
			return err
		}
	}
	if song.Status != songs.StatusQueued {
		return fmt.Errorf("song %s is %s: %w", songID, song.Status, services.ErrAlreadyProcessing)
	}

	o.mu.Lock()
	if _, exists := o.jobs[songID]; exists {
		o.mu.Unlock()
		return fmt.Errorf("song %s: %w", songID, services.ErrAlreadyProcessing)
	}
	o.nextGen++
	handle := &jobHandle{
		songID:      songID,
		runID:       uuid.NewString(),
		generation:  o.nextGen,
		requestedAt: song.RequestedAt,
		opts:        opts,
	}
	o.jobs[songID] = handle
	o.pending = append(o.pending, handle)
	o.mu.Unlock()

	o.logger.Info("song admitted",
		logging.String(logging.FieldSongID, songID),
		logging.String(logging.FieldRunID, handle.runID),
		logging.String("title", song.Title),
		logging.String("artist", song.Artist),
	)
	o.signalWake()
	return nil
}

// ResumeQueued admits every song already in queued status, oldest first.
// Used at daemon startup so requests survive restarts.
func (o *Orchestrator) ResumeQueued(ctx context.Context) error {
	queued, err := o.store.ListByStatus(ctx, songs.StatusQueued)
	if err != nil {
		return err
	}
	for _, song := range queued {
		if err := o.Submit(ctx, song.ID); err != nil && !errors.Is(err, services.ErrAlreadyProcessing) {
			return err
		}
	}
	return nil
}

// Cancel stops a run. A pending job fails immediately; a running job has its
// context cancelled and fails once the active collaborator call returns.
// Unknown song ids return ErrNotFound.
func (o *Orchestrator) Cancel(ctx context.Context, songID string) error {
	o.mu.Lock()
	handle, ok := o.jobs[songID]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("song %s: %w", songID, services.ErrNotFound)
	}
	handle.cancelled = true
	cancel := handle.cancel
	pending := !handle.dispatched
	if pending {
		o.removePendingLocked(handle)
		delete(o.jobs, songID)
	}
	o.mu.Unlock()

	if pending {
		return o.failSong(ctx, songID, songs.CancelledReason)
	}
	if cancel != nil {
		cancel()
	}
	return nil
}

// Active reports whether a song currently has a registered run.
func (o *Orchestrator) Active(songID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.jobs[songID]
	return ok
}

func (o *Orchestrator) dispatchLoop(ctx context.Context) {
	defer o.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.wake:
		}

		for {
			handle := o.takeOldestPending()
			if handle == nil {
				break
			}
			select {
			case o.slots <- struct{}{}:
			case <-ctx.Done():
				return
			}
			o.wg.Add(1)
			go func(h *jobHandle) {
				defer o.wg.Done()
				defer func() {
					<-o.slots
					o.signalWake()
				}()
				o.runJob(ctx, h)
			}(handle)
		}
	}
}

// takeOldestPending dequeues the pending job with the earliest request time,
// which keeps admission strictly FIFO even when slots free out of order.
func (o *Orchestrator) takeOldestPending() *jobHandle {
	o.mu.Lock()
	defer o.mu.Unlock()
	oldest := -1
	for i, handle := range o.pending {
		if handle.cancelled {
			continue
		}
		if oldest == -1 || handle.requestedAt.Before(o.pending[oldest].requestedAt) {
			oldest = i
		}
	}
	if oldest == -1 {
		o.pending = o.pending[:0]
		return nil
	}
	handle := o.pending[oldest]
	o.pending = append(o.pending[:oldest], o.pending[oldest+1:]...)
	handle.dispatched = true
	return handle
}

func (o *Orchestrator) removePendingLocked(handle *jobHandle) {
	for i, h := range o.pending {
		if h == handle {
			o.pending = append(o.pending[:i], o.pending[i+1:]...)
			return
		}
	}
}

func (o *Orchestrator) signalWake() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// release drops the handle from the registry if it is still the current run.
func (o *Orchestrator) release(handle *jobHandle) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if current, ok := o.jobs[handle.songID]; ok && current.generation == handle.generation {
		delete(o.jobs, handle.songID)
	}
}

// currentGeneration reports whether gen is still the live run for a song.
// Progress callbacks from abandoned runs fail this check and are dropped.
func (o *Orchestrator) currentGeneration(songID string, gen uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	handle, ok := o.jobs[songID]
	return ok && handle.generation == gen
}
