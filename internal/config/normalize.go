package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAcquisition()
	c.normalizeLyrics()
	c.normalizeCache()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.ArtifactDir, err = expandPath(c.Paths.ArtifactDir); err != nil {
		return fmt.Errorf("paths.artifact_dir: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) != "" {
		if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
			return fmt.Errorf("paths.socket_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeAcquisition() {
	sources := make([]string, 0, len(c.Acquisition.Sources))
	for _, source := range c.Acquisition.Sources {
		trimmed := strings.ToLower(strings.TrimSpace(source))
		if trimmed != "" {
			sources = append(sources, trimmed)
		}
	}
	if len(sources) == 0 {
		sources = []string{"ytdlp", "localstore"}
	}
	c.Acquisition.Sources = sources
	c.Acquisition.Quality = strings.ToLower(strings.TrimSpace(c.Acquisition.Quality))
	if c.Acquisition.Quality == "" {
		c.Acquisition.Quality = defaultQuality
	}
	if c.Acquisition.SearchLimit <= 0 {
		c.Acquisition.SearchLimit = defaultSearchLimit
	}
}

func (c *Config) normalizeLyrics() {
	c.Lyrics.BaseURL = strings.TrimRight(strings.TrimSpace(c.Lyrics.BaseURL), "/")
	if c.Lyrics.BaseURL == "" {
		c.Lyrics.BaseURL = defaultLyricsBaseURL
	}
	if c.Lyrics.RequestTimeout <= 0 {
		c.Lyrics.RequestTimeout = defaultLyricsTimeout
	}
}

func (c *Config) normalizeCache() {
	c.Cache.Dir = strings.TrimSpace(c.Cache.Dir)
	if c.Cache.Dir == "" {
		c.Cache.Dir = defaultCacheDir()
	}
	if expanded, err := expandPath(c.Cache.Dir); err == nil {
		c.Cache.Dir = expanded
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
