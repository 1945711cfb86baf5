package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"openmic/internal/artifactcache"
	"openmic/internal/config"
	"openmic/internal/logging"
	"openmic/internal/notifications"
	"openmic/internal/pipeline"
	"openmic/internal/services"
	"openmic/internal/songs"
)

// Daemon owns the song store, artifact cache, and orchestrator, and
// enforces single-instance execution via a lock file.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *songs.Store
	cache    *artifactcache.Index
	orch     *pipeline.Orchestrator
	notifier notifications.Service
	logPath  string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
	SocketPath   string
	QueueStats   map[songs.Status]int
	NowPlaying   *songs.Song
	UpNext       *songs.Song
}

// SubmitRequest carries everything needed to queue a new song. Quality and
// StageTimeouts override the configured defaults for this run only.
type SubmitRequest struct {
	Title         string
	Artist        string
	UserID        string
	UserName      string
	UserColor     string
	Quality       string
	StageTimeouts map[string]int
}

// New constructs a daemon with initialized dependencies. The cache may
// be nil when caching is disabled.
func New(cfg *config.Config, store *songs.Store, cache *artifactcache.Index, orch *pipeline.Orchestrator, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || orch == nil {
		return nil, errors.New("daemon requires config, store, and orchestrator")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "openmicd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		cache:    cache,
		orch:     orch,
		notifier: notifier,
		logPath:  filepath.Join(cfg.Paths.LogDir, "openmic.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, recovers interrupted songs, launches
// the orchestrator, and begins the cache sweep loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another openmic daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)

	failed, err := d.store.FailStuckProcessing(runCtx)
	if err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("recover interrupted songs: %w", err)
	}
	if failed > 0 {
		d.logger.Info("failed interrupted songs from previous run",
			logging.Int("count", failed),
			logging.String(logging.FieldEventType, "startup_recovery"))
	}

	if err := d.orch.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start orchestrator: %w", err)
	}
	if err := d.orch.ResumeQueued(runCtx); err != nil {
		d.logger.Warn("failed to resume queued songs", logging.Error(err))
	}

	d.cancel = cancel
	d.running.Store(true)
	d.startSweeper(runCtx)
	d.startRequeuePoller(runCtx)
	d.logger.Info("openmic daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.orch.Stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("openmic daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.cache != nil {
		_ = d.cache.Close()
	}
	return d.store.Close()
}

func (d *Daemon) startSweeper(ctx context.Context) {
	if d.cache == nil {
		return
	}
	interval := time.Duration(d.cfg.Workflow.SweepInterval) * time.Second
	if interval <= 0 {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				result, err := d.cache.Evict(ctx, d.cfg.Cache.MaxAgeDays, d.cfg.Cache.MaxEntries)
				if err != nil {
					d.logger.Warn("cache sweep failed", logging.Error(err))
					continue
				}
				if result.AgeEvicted > 0 || result.CountEvicted > 0 {
					d.logger.Info("cache sweep evicted entries",
						logging.Int("age_evicted", result.AgeEvicted),
						logging.Int("count_evicted", result.CountEvicted),
						logging.String(logging.FieldEventType, "cache_sweep"))
				}
			}
		}
	}()
}

// startRequeuePoller periodically re-admits songs sitting in queued status.
// A song lands there without a registered run when its admission raced a
// shutdown or a transient store error; the poller picks it up on the next
// tick instead of leaving it stranded until a restart.
func (d *Daemon) startRequeuePoller(ctx context.Context) {
	interval := time.Duration(d.cfg.Workflow.ErrorRetryInterval) * time.Second
	if interval <= 0 {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := d.orch.ResumeQueued(ctx); err != nil && ctx.Err() == nil {
					d.logger.Warn("requeue poll failed", logging.Error(err))
				}
			}
		}
	}()
}

// Submit registers the requesting user, creates the song record, and
// admits it to the pipeline.
func (d *Daemon) Submit(ctx context.Context, req SubmitRequest) (*songs.Song, error) {
	title := strings.TrimSpace(req.Title)
	artist := strings.TrimSpace(req.Artist)
	if title == "" || artist == "" {
		return nil, fmt.Errorf("%w: title and artist are required", services.ErrValidation)
	}
	user := songs.User{
		ID:          strings.TrimSpace(req.UserID),
		DisplayName: strings.TrimSpace(req.UserName),
		Color:       strings.TrimSpace(req.UserColor),
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: user id is required", services.ErrValidation)
	}
	if user.DisplayName == "" {
		user.DisplayName = user.ID
	}
	if err := d.store.UpsertUser(ctx, user); err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}

	song, err := d.store.NewSong(ctx, user, title, artist)
	if err != nil {
		return nil, fmt.Errorf("create song: %w", err)
	}
	opts := pipeline.SubmitOptions{
		Quality:       strings.TrimSpace(req.Quality),
		StageTimeouts: req.StageTimeouts,
	}
	if err := d.orch.SubmitWith(ctx, song.ID, opts); err != nil {
		return nil, err
	}
	if err := d.notifier.NotifySongQueued(ctx, title, artist, user.DisplayName); err != nil {
		d.logger.Warn("queue notification failed", logging.Error(err))
	}
	return song, nil
}

// Resubmit re-admits an existing song. Terminal songs are requeued.
func (d *Daemon) Resubmit(ctx context.Context, songID string) error {
	return d.orch.Submit(ctx, songID)
}

// Cancel aborts a pending or running job.
func (d *Daemon) Cancel(ctx context.Context, songID string) error {
	return d.orch.Cancel(ctx, songID)
}

// Song returns a single song record.
func (d *Daemon) Song(ctx context.Context, songID string) (*songs.Song, error) {
	song, err := d.store.GetByID(ctx, songID)
	if err != nil {
		return nil, err
	}
	if song == nil {
		return nil, fmt.Errorf("song %s: %w", songID, services.ErrNotFound)
	}
	return song, nil
}

// Queue returns songs filtered by optional statuses; without filters it
// returns the active queue ordered by request time.
func (d *Daemon) Queue(ctx context.Context, statuses []songs.Status) ([]*songs.Song, error) {
	if len(statuses) == 0 {
		return d.store.ActiveQueue(ctx)
	}
	return d.store.ListByStatus(ctx, statuses...)
}

// QueueStats returns aggregate song counts per status.
func (d *Daemon) QueueStats(ctx context.Context) (map[songs.Status]int, error) {
	return d.store.Stats(ctx)
}

// NowPlaying returns the song currently on stage, if any.
func (d *Daemon) NowPlaying(ctx context.Context) (*songs.Song, error) {
	return d.store.CurrentPlaying(ctx)
}

// AllSongs returns every song record, oldest request first.
func (d *Daemon) AllSongs(ctx context.Context) ([]*songs.Song, error) {
	return d.store.List(ctx)
}

// Advance completes the playing song and promotes the oldest ready one.
func (d *Daemon) Advance(ctx context.Context) (*songs.Song, error) {
	promoted, err := d.store.AdvanceQueue(ctx)
	if err != nil {
		return nil, err
	}
	if promoted != nil {
		if err := d.notifier.NotifyNowPlaying(ctx, promoted.Title, promoted.Artist, promoted.UserName); err != nil {
			d.logger.Warn("now-playing notification failed", logging.Error(err))
		}
	}
	return promoted, nil
}

// CacheStats returns artifact cache occupancy figures.
func (d *Daemon) CacheStats(ctx context.Context) (artifactcache.Stats, error) {
	if d.cache == nil {
		return artifactcache.Stats{}, nil
	}
	return d.cache.Stats(ctx)
}

// CacheEvict runs a manual eviction sweep. Non-positive limits fall back
// to the configured defaults.
func (d *Daemon) CacheEvict(ctx context.Context, maxAgeDays, maxEntries int) (artifactcache.EvictResult, error) {
	if d.cache == nil {
		return artifactcache.EvictResult{}, nil
	}
	if maxAgeDays <= 0 {
		maxAgeDays = d.cfg.Cache.MaxAgeDays
	}
	if maxEntries <= 0 {
		maxEntries = d.cfg.Cache.MaxEntries
	}
	return d.cache.Evict(ctx, maxAgeDays, maxEntries)
}

// TestNotification sends a test message using the configured topic.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		d.logger.Warn("queue stats unavailable", logging.Error(err))
		stats = nil
	}
	playing, err := d.store.CurrentPlaying(ctx)
	if err != nil {
		d.logger.Warn("now playing lookup failed", logging.Error(err))
		playing = nil
	}
	upNext, err := d.store.NextReady(ctx)
	if err != nil {
		d.logger.Warn("up next lookup failed", logging.Error(err))
		upNext = nil
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		SocketPath:   d.cfg.SocketPath(),
		QueueStats:   stats,
		NowPlaying:   playing,
		UpNext:       upNext,
	}
}
