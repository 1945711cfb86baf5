package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"openmic/internal/logging"
	"openmic/internal/media"
	"openmic/internal/media/lyricsync"
	"openmic/internal/services"
)

// stageAcquire walks the ranked source chain until one delivers audio. A
// companion base-video lookup runs in parallel; its failure only means the
// composer falls back to a generated background.
func (o *Orchestrator) stageAcquire(ctx context.Context, state *runState, progress media.ProgressFunc) error {
	logger := logging.WithContext(ctx, o.logger)

	baseVideoCh := o.startBaseVideoLookup(ctx, state)

	sources := o.gateways.Sources
	if len(sources) == 0 {
		return services.Wrap(services.ErrConfiguration, "acquire", "", "no acquisition sources configured", nil)
	}

	constraints := media.Constraints{
		Quality:     state.quality,
		SearchLimit: o.cfg.Acquisition.SearchLimit,
	}
	perSource := perSourceTimeout(ctx, len(sources))

	var lastErr error
	for _, source := range sources {
		path, err := o.acquireFromSource(ctx, state, source, constraints, perSource, progress)
		if err == nil && path != "" {
			state.originalPath = path
			logger.Info("audio acquired",
				logging.String("source", source.Name()),
				logging.String("audio_path", path),
			)
			break
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return err
		}
		if err != nil {
			lastErr = err
			logger.Warn("source failed; trying next",
				logging.String("source", source.Name()),
				logging.Error(err),
			)
		} else {
			logger.Info("source had no match", logging.String("source", source.Name()))
		}
	}
	if state.originalPath == "" {
		return services.Wrap(services.ErrAcquisitionFailed, "acquire", "", "all sources exhausted", lastErr)
	}

	if baseVideoCh != nil {
		select {
		case state.baseVideo = <-baseVideoCh:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (o *Orchestrator) acquireFromSource(ctx context.Context, state *runState, source media.Source, constraints media.Constraints, perSource time.Duration, progress media.ProgressFunc) (string, error) {
	sourceCtx := ctx
	if perSource > 0 {
		var cancel context.CancelFunc
		sourceCtx, cancel = context.WithTimeout(ctx, perSource)
		defer cancel()
	}

	candidate, err := source.Find(sourceCtx, state.song.Title, state.song.Artist, constraints)
	if err != nil {
		return "", fmt.Errorf("find: %w", err)
	}
	if candidate == nil {
		return "", nil
	}
	path, err := source.Fetch(sourceCtx, candidate, state.stagingDir, progress)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	return path, nil
}

// startBaseVideoLookup kicks off the optional parallel base-video search.
// The channel always yields exactly one value; empty means none found.
func (o *Orchestrator) startBaseVideoLookup(ctx context.Context, state *runState) <-chan string {
	if !o.cfg.Acquisition.BaseVideoEnabled || o.gateways.BaseVideo == nil {
		return nil
	}
	result := make(chan string, 1)
	go func() {
		destDir := filepath.Join(state.stagingDir, "basevideo")
		path, err := o.gateways.BaseVideo.FindBaseVideo(ctx, state.song.Title, state.song.Artist, destDir)
		if err != nil {
			logging.WithContext(ctx, o.logger).Debug("base video lookup failed", logging.Error(err))
			path = ""
		}
		result <- path
	}()
	return result
}

func (o *Orchestrator) stageSeparate(ctx context.Context, state *runState, progress media.ProgressFunc) error {
	separation, err := o.gateways.Separator.SeparateVocals(ctx, state.originalPath, state.stagingDir, progress)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return services.Wrap(services.ErrSeparationFailed, "separate", "", "", err)
	}

	instrumental, err := moveArtifact(separation.Instrumental, state.finalDir)
	if err != nil {
		return services.Wrap(services.ErrSeparationFailed, "separate", "publish instrumental", "", err)
	}
	state.separation = media.Separation{Instrumental: instrumental, Vocals: separation.Vocals}
	return nil
}

// stageSyncLyrics fetches synced lyrics and writes the .lrc artifact. The
// orchestrator treats any error here as soft; a karaoke run without lyrics is
// still singable.
func (o *Orchestrator) stageSyncLyrics(ctx context.Context, state *runState, progress media.ProgressFunc) error {
	if o.gateways.Lyrics == nil || !o.cfg.Lyrics.Enabled {
		return nil
	}
	lines, err := o.gateways.Lyrics.FetchAndSync(ctx, state.song.Title, state.song.Artist, state.separation.Instrumental)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "sync_lyrics", "", "", err)
	}
	if len(lines) == 0 {
		logging.WithContext(ctx, o.logger).Info("no synced lyrics available",
			logging.String("title", state.song.Title),
		)
		return nil
	}

	path, err := lyricsync.WriteLRC(filepath.Join(state.finalDir, "lyrics.lrc"), lines)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "sync_lyrics", "write lrc", "", err)
	}
	state.lyrics = lines
	state.lyricsPath = path
	if progress != nil {
		progress(100)
	}
	return nil
}

func (o *Orchestrator) stageCompose(ctx context.Context, state *runState, progress media.ProgressFunc) error {
	request := media.ComposeRequest{
		Title:            state.song.Title,
		Artist:           state.song.Artist,
		InstrumentalPath: state.separation.Instrumental,
		BaseVideoPath:    state.baseVideo,
		Lyrics:           state.lyrics,
		LyricsPath:       state.lyricsPath,
		OutputPath:       filepath.Join(state.finalDir, "karaoke.mp4"),
	}
	path, err := o.gateways.Composer.ComposeVideo(ctx, request, progress)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return services.Wrap(services.ErrComposeFailed, "compose", "", "", err)
	}
	state.videoPath = path
	return nil
}

// perSourceTimeout splits the remaining stage deadline evenly across the
// sources so a hung first source cannot starve the fallbacks.
func perSourceTimeout(ctx context.Context, sources int) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok || sources <= 0 {
		return 0
	}
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return time.Millisecond
	}
	return remaining / time.Duration(sources)
}
