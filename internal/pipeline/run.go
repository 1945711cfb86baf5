package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"openmic/internal/config"
	"openmic/internal/fileutil"
	"openmic/internal/fingerprint"
	"openmic/internal/logging"
	"openmic/internal/media"
	"openmic/internal/services"
	"openmic/internal/songs"
)

// runState accumulates artifacts as a run advances through its stages.
type runState struct {
	song         *songs.Song
	quality      string
	fingerprint  string
	stagingDir   string
	finalDir     string
	originalPath string
	baseVideo    string
	separation   media.Separation
	lyrics       []media.TimedLine
	lyricsPath   string
	videoPath    string
}

// stageSpec binds a stage name to its status, configured span, and body.
type stageSpec struct {
	name     string
	status   songs.Status
	span     config.StageSpan
	run      func(ctx context.Context, state *runState, progress media.ProgressFunc) error
	softFail bool
}

func (o *Orchestrator) runJob(ctx context.Context, handle *jobHandle) {
	defer o.release(handle)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.mu.Lock()
	if handle.cancelled {
		o.mu.Unlock()
		_ = o.failSong(ctx, handle.songID, songs.CancelledReason)
		return
	}
	handle.cancel = cancel
	o.mu.Unlock()

	runCtx = services.WithSongID(runCtx, handle.songID)
	runCtx = services.WithRunID(runCtx, handle.runID)
	logger := logging.WithContext(runCtx, o.logger)

	song, err := o.store.GetByID(runCtx, handle.songID)
	if err != nil || song == nil {
		logger.Error("run aborted; song unavailable", logging.Error(err))
		return
	}

	quality := handle.opts.Quality
	if quality == "" {
		quality = o.cfg.Acquisition.Quality
	}
	state := &runState{
		song:        song,
		quality:     quality,
		fingerprint: fingerprint.Key(song.Title, song.Artist, quality),
		stagingDir:  filepath.Join(o.cfg.Paths.StagingDir, song.ID),
		finalDir:    filepath.Join(o.cfg.Paths.ArtifactDir, song.ID),
	}

	if o.tryServeFromCache(runCtx, logger, handle, state) {
		return
	}

	// Intermediate files (full original, vocal stem, base video) live under
	// the run's staging dir and are gone once the run ends, however it ends.
	defer func() {
		if err := os.RemoveAll(state.stagingDir); err != nil {
			logger.Warn("staging cleanup failed", logging.Error(err))
		}
	}()

	stages := o.stageSequence()
	start := time.Now()
	for _, spec := range stages {
		if err := o.executeStage(runCtx, logger, handle, state, spec); err != nil {
			o.handleRunFailure(ctx, logger, handle, state, spec, err)
			return
		}
	}

	if err := o.finishRun(runCtx, logger, handle, state); err != nil {
		o.handleRunFailure(ctx, logger, handle, state, stageSpec{name: "finalize"}, err)
		return
	}
	logger.Info("run completed",
		logging.String("title", state.song.Title),
		logging.Duration("run_duration", time.Since(start)),
	)
}

// tryServeFromCache short-circuits the run when a valid cache entry exists.
func (o *Orchestrator) tryServeFromCache(ctx context.Context, logger *slog.Logger, handle *jobHandle, state *runState) bool {
	entry, err := o.cache.Lookup(ctx, state.fingerprint)
	if err != nil {
		logger.Warn("cache lookup failed; producing from scratch", logging.Error(err))
		return false
	}
	if entry == nil {
		return false
	}

	_, err = o.store.TransitionWith(ctx, handle.songID, songs.StatusReady, func(s *songs.Song) {
		s.Artifacts = entry.Artifacts
		s.Fingerprint = state.fingerprint
		s.Progress = 100
		s.ErrorMessage = ""
	})
	if err != nil {
		logger.Error("cache hit could not be recorded", logging.Error(err))
		return false
	}

	logger.Info("served from cache",
		logging.String("fingerprint", state.fingerprint),
		logging.String("title", state.song.Title),
	)
	if err := o.notifier.NotifySongReady(ctx, state.song.Title, state.song.Artist); err != nil {
		logger.Warn("ready notification failed", logging.Error(err))
	}
	return true
}

func (o *Orchestrator) stageSequence() []stageSpec {
	return []stageSpec{
		{name: "acquire", status: songs.StatusAcquiring, span: o.cfg.Stages.Acquire, run: o.stageAcquire},
		{name: "separate", status: songs.StatusSeparating, span: o.cfg.Stages.Separate, run: o.stageSeparate},
		{name: "sync_lyrics", status: songs.StatusSyncing, span: o.cfg.Stages.SyncLyrics, run: o.stageSyncLyrics, softFail: true},
		{name: "compose", status: songs.StatusComposing, span: o.cfg.Stages.Compose, run: o.stageCompose},
	}
}

func (o *Orchestrator) executeStage(ctx context.Context, logger *slog.Logger, handle *jobHandle, state *runState, spec stageSpec) error {
	if _, err := o.store.Transition(ctx, handle.songID, spec.status); err != nil {
		return err
	}
	o.reportProgress(ctx, handle, spec.span, 0)

	timeout := spec.span.TimeoutSeconds
	if override, ok := handle.opts.StageTimeouts[spec.name]; ok && override > 0 {
		timeout = override
	}
	stageCtx := services.WithStage(ctx, spec.name)
	var cancel context.CancelFunc
	if timeout > 0 {
		stageCtx, cancel = context.WithTimeout(stageCtx, time.Duration(timeout)*time.Second)
		defer cancel()
	}

	stageLogger := logging.WithContext(stageCtx, logger)
	stageLogger.Info("stage started", logging.String(logging.FieldStage, spec.name))
	stageStart := time.Now()

	err := spec.run(stageCtx, state, func(pct float64) {
		o.reportProgress(ctx, handle, spec.span, pct)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = services.Wrap(services.ErrTimeout, spec.name, "", "stage deadline exceeded", err)
		}
		if spec.softFail && !errors.Is(err, context.Canceled) {
			stageLogger.Warn("stage failed; continuing without its output",
				logging.String(logging.FieldStage, spec.name),
				logging.Error(err),
			)
			o.reportProgress(ctx, handle, spec.span, 100)
			return nil
		}
		return err
	}

	o.reportProgress(ctx, handle, spec.span, 100)
	stageLogger.Info("stage completed",
		logging.String(logging.FieldStage, spec.name),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	return nil
}

// finishRun publishes the finished artifacts into the cache and moves the
// song to ready. Publication goes through the cache's per-fingerprint lock,
// so a concurrent run for the same work adopts whichever artifact set landed
// first instead of overwriting it.
func (o *Orchestrator) finishRun(ctx context.Context, logger *slog.Logger, handle *jobHandle, state *runState) error {
	original, err := moveArtifact(state.originalPath, state.finalDir)
	if err != nil {
		return services.Wrap(services.ErrComposeFailed, "finalize", "publish original", "", err)
	}
	artifacts := songs.Artifacts{
		Original:     original,
		Instrumental: state.separation.Instrumental,
		Lyrics:       state.lyricsPath,
		Video:        state.videoPath,
	}
	if !artifacts.Complete() {
		return services.Wrap(services.ErrComposeFailed, "finalize", "", "run produced incomplete artifacts", nil)
	}

	published, err := o.cache.Publish(ctx, state.fingerprint, artifacts)
	if err != nil {
		logger.Warn("cache publish failed; serving from run directory", logging.Error(err))
		published = artifacts
	} else {
		// With the cache enabled everything moved out; drop the run directory
		// if nothing is left in it.
		_ = os.Remove(state.finalDir)
	}

	if _, err := o.store.TransitionWith(ctx, handle.songID, songs.StatusReady, func(s *songs.Song) {
		s.Artifacts = published
		s.Fingerprint = state.fingerprint
		s.Progress = 100
		s.ErrorMessage = ""
	}); err != nil {
		return err
	}

	if err := o.notifier.NotifySongReady(ctx, state.song.Title, state.song.Artist); err != nil {
		logger.Warn("ready notification failed", logging.Error(err))
	}
	return nil
}

// handleRunFailure records the terminal failure state. Cancellation (by user
// or daemon shutdown) is recorded with the cancel reason instead of the raw
// context error.
func (o *Orchestrator) handleRunFailure(ctx context.Context, logger *slog.Logger, handle *jobHandle, state *runState, spec stageSpec, runErr error) {
	reason := services.FailureReason(spec.name, runErr)

	o.mu.Lock()
	cancelled := handle.cancelled
	o.mu.Unlock()
	if cancelled || errors.Is(runErr, context.Canceled) {
		reason = songs.CancelledReason
	}

	logger.Error("run failed",
		logging.String(logging.FieldStage, spec.name),
		logging.String("reason", reason),
		logging.Error(runErr),
	)

	// Persist with a fresh context: the run context is usually already dead.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := o.failSong(persistCtx, handle.songID, reason); err != nil {
		logger.Error("failed to persist run failure", logging.Error(err))
	}
	if reason != songs.CancelledReason {
		if err := o.notifier.NotifySongFailed(persistCtx, state.song.Title, state.song.Artist, reason); err != nil {
			logger.Warn("failure notification failed", logging.Error(err))
		}
	}
}

func (o *Orchestrator) failSong(ctx context.Context, songID, reason string) error {
	_, err := o.store.TransitionWith(ctx, songID, songs.StatusFailed, func(s *songs.Song) {
		s.SetFailed(reason)
	})
	return err
}

// reportProgress maps a stage-local percentage into the stage's overall span
// and persists it. The write is dropped when the run is no longer current,
// and the store keeps progress monotonic per run.
func (o *Orchestrator) reportProgress(ctx context.Context, handle *jobHandle, span config.StageSpan, stagePct float64) {
	if !o.currentGeneration(handle.songID, handle.generation) {
		return
	}
	if stagePct < 0 {
		stagePct = 0
	}
	if stagePct > 100 {
		stagePct = 100
	}
	overall := float64(span.ProgressStart) + stagePct/100*float64(span.ProgressEnd-span.ProgressStart)
	if err := o.store.UpdateProgress(ctx, handle.songID, int(overall)); err != nil && ctx.Err() == nil {
		o.logger.Warn("progress update failed",
			logging.String(logging.FieldSongID, handle.songID),
			logging.Error(err),
		)
	}
}

// moveArtifact relocates a produced file into the final directory.
func moveArtifact(src, destDir string) (string, error) {
	dest, err := fileutil.MoveFile(src, destDir)
	if err != nil {
		return "", fmt.Errorf("move artifact: %w", err)
	}
	return dest, nil
}
