package pipeline

import (
	"fmt"
	"time"

	"openmic/internal/config"
	"openmic/internal/media/demucs"
	"openmic/internal/media/ffmpeg"
	"openmic/internal/media/localstore"
	"openmic/internal/media/lyricsync"
	"openmic/internal/media/ytdlp"
	"openmic/internal/services"
)

// DefaultGateways wires the real collaborator adapters from configuration.
// The source chain follows the configured rank order.
func DefaultGateways(cfg *config.Config) (Gateways, error) {
	var gateways Gateways

	for _, name := range cfg.Acquisition.Sources {
		switch name {
		case "ytdlp":
			client, err := ytdlp.New(cfg.YtdlpBinary())
			if err != nil {
				return Gateways{}, fmt.Errorf("%w: ytdlp source: %w", services.ErrConfiguration, err)
			}
			gateways.Sources = append(gateways.Sources, client)
			if cfg.Acquisition.BaseVideoEnabled && gateways.BaseVideo == nil {
				gateways.BaseVideo = client
			}
		case "localstore":
			store, err := localstore.New(cfg.Paths.LibraryDir)
			if err != nil {
				return Gateways{}, fmt.Errorf("%w: localstore source: %w", services.ErrConfiguration, err)
			}
			gateways.Sources = append(gateways.Sources, store)
		default:
			return Gateways{}, fmt.Errorf("%w: unknown acquisition source %q", services.ErrConfiguration, name)
		}
	}

	separator, err := demucs.New(cfg.DemucsBinary(), cfg.Separation.Model)
	if err != nil {
		return Gateways{}, fmt.Errorf("%w: separator: %w", services.ErrConfiguration, err)
	}
	gateways.Separator = separator

	if cfg.Lyrics.Enabled {
		lyrics, err := lyricsync.New(cfg.Lyrics.BaseURL, time.Duration(cfg.Lyrics.RequestTimeout)*time.Second)
		if err != nil {
			return Gateways{}, fmt.Errorf("%w: lyrics provider: %w", services.ErrConfiguration, err)
		}
		gateways.Lyrics = lyrics
	}

	composer, err := ffmpeg.New(cfg.FFmpegBinary(), cfg.FFprobeBinary(), cfg.Compose.Width, cfg.Compose.Height)
	if err != nil {
		return Gateways{}, fmt.Errorf("%w: composer: %w", services.ErrConfiguration, err)
	}
	gateways.Composer = composer

	return gateways, nil
}
