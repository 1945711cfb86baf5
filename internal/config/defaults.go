package config

const (
	defaultStagingDir         = "~/.local/share/openmic/staging"
	defaultArtifactDir        = "~/.local/share/openmic/artifacts"
	defaultLibraryDir         = "~/music"
	defaultLogDir             = "~/.local/share/openmic/logs"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultMaxConcurrentJobs  = 3
	defaultErrorRetryInterval = 10
	defaultSweepInterval      = 3600
	defaultQuality            = "high"
	defaultSearchLimit        = 5
	defaultSeparationModel    = "htdemucs"
	defaultLyricsBaseURL      = "https://lrclib.net/api"
	defaultLyricsTimeout      = 30
	defaultComposeWidth       = 1920
	defaultComposeHeight      = 1080
	defaultCacheMaxAgeDays    = 30
	defaultCacheMaxEntries    = 200
	defaultNotifyTimeout      = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir:  defaultStagingDir,
			ArtifactDir: defaultArtifactDir,
			LibraryDir:  defaultLibraryDir,
			LogDir:      defaultLogDir,
		},
		Workflow: Workflow{
			MaxConcurrentJobs:  defaultMaxConcurrentJobs,
			ErrorRetryInterval: defaultErrorRetryInterval,
			SweepInterval:      defaultSweepInterval,
		},
		Stages: Stages{
			Acquire:    StageSpan{ProgressStart: 5, ProgressEnd: 30, TimeoutSeconds: 600},
			Separate:   StageSpan{ProgressStart: 30, ProgressEnd: 70, TimeoutSeconds: 1800},
			SyncLyrics: StageSpan{ProgressStart: 70, ProgressEnd: 85, TimeoutSeconds: 120},
			Compose:    StageSpan{ProgressStart: 85, ProgressEnd: 100, TimeoutSeconds: 1800},
		},
		Acquisition: Acquisition{
			Sources:          []string{"ytdlp", "localstore"},
			Quality:          defaultQuality,
			BaseVideoEnabled: true,
			SearchLimit:      defaultSearchLimit,
		},
		Separation: Separation{
			Model: defaultSeparationModel,
		},
		Lyrics: Lyrics{
			Enabled:        true,
			BaseURL:        defaultLyricsBaseURL,
			RequestTimeout: defaultLyricsTimeout,
		},
		Compose: Compose{
			Width:  defaultComposeWidth,
			Height: defaultComposeHeight,
		},
		Cache: Cache{
			Enabled:    true,
			Dir:        defaultCacheDir(),
			MaxAgeDays: defaultCacheMaxAgeDays,
			MaxEntries: defaultCacheMaxEntries,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Ready:          true,
			Errors:         true,
			Queue:          true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
