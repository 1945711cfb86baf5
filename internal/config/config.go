package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir  string `toml:"staging_dir"`
	ArtifactDir string `toml:"artifact_dir"`
	LibraryDir  string `toml:"library_dir"`
	LogDir      string `toml:"log_dir"`
	SocketPath  string `toml:"socket_path"`
}

// StageSpan describes one pipeline stage's progress window and deadline.
type StageSpan struct {
	ProgressStart  int `toml:"progress_start"`
	ProgressEnd    int `toml:"progress_end"`
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Stages maps each pipeline stage to its progress span and deadline.
type Stages struct {
	Acquire    StageSpan `toml:"acquire"`
	Separate   StageSpan `toml:"separate"`
	SyncLyrics StageSpan `toml:"sync_lyrics"`
	Compose    StageSpan `toml:"compose"`
}

// Acquisition contains source ranking and download settings.
type Acquisition struct {
	// Sources is the ordered fallback chain; the first source that yields a
	// candidate and fetches it wins.
	Sources          []string `toml:"sources"`
	Quality          string   `toml:"quality"`
	BaseVideoEnabled bool     `toml:"base_video_enabled"`
	SearchLimit      int      `toml:"search_limit"`
}

// Separation contains vocal separation settings.
type Separation struct {
	Model string `toml:"model"`
}

// Lyrics contains lyrics fetch and synchronization settings.
type Lyrics struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Compose contains video composition settings.
type Compose struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// Cache contains artifact cache settings.
type Cache struct {
	Enabled    bool   `toml:"enabled"`
	Dir        string `toml:"dir"`
	MaxAgeDays int    `toml:"max_age_days"`
	MaxEntries int    `toml:"max_entries"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Ready          bool   `toml:"ready"`
	Errors         bool   `toml:"errors"`
	Queue          bool   `toml:"queue"`
}

// Workflow contains daemon timing and concurrency settings.
type Workflow struct {
	MaxConcurrentJobs  int `toml:"max_concurrent_jobs"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	SweepInterval      int `toml:"sweep_interval"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Openmic.
//
// Configuration sections by subsystem:
//   - Paths: staging, artifact, library, log, and socket paths
//   - Workflow: job concurrency and daemon intervals
//   - Stages: per-stage progress spans and deadlines
//   - Acquisition: ranked source chain and quality
//   - Separation: vocal separation model
//   - Lyrics: LRCLIB fetch settings
//   - Compose: output video geometry
//   - Cache: artifact cache location and eviction bounds
//   - Notifications: ntfy push settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Workflow      Workflow      `toml:"workflow"`
	Stages        Stages        `toml:"stages"`
	Acquisition   Acquisition   `toml:"acquisition"`
	Separation    Separation    `toml:"separation"`
	Lyrics        Lyrics        `toml:"lyrics"`
	Compose       Compose       `toml:"compose"`
	Cache         Cache         `toml:"cache"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/openmic/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("openmic.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.ArtifactDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		// Best-effort so the daemon can run when external storage is offline.
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Dir) != "" {
		if err := os.MkdirAll(c.Cache.Dir, 0o755); err != nil {
			return fmt.Errorf("create cache directory %q: %w", c.Cache.Dir, err)
		}
	}
	return nil
}

// SocketPath returns the daemon control socket path.
func (c *Config) SocketPath() string {
	if strings.TrimSpace(c.Paths.SocketPath) != "" {
		return c.Paths.SocketPath
	}
	return filepath.Join(c.Paths.LogDir, "openmicd.sock")
}

// YtdlpBinary returns the yt-dlp executable name.
func (c *Config) YtdlpBinary() string {
	return "yt-dlp"
}

// DemucsBinary returns the demucs executable name used for vocal separation.
func (c *Config) DemucsBinary() string {
	return "demucs"
}

// FFmpegBinary returns the ffmpeg executable name used for video composition.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media validation.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "openmic", "artifacts")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/openmic/artifacts"
	}
	return filepath.Join(home, ".cache", "openmic", "artifacts")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
