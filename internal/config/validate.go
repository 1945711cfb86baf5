package config

import (
	"errors"
	"fmt"
)

var knownSources = map[string]struct{}{
	"ytdlp":      {},
	"localstore": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateStages(); err != nil {
		return err
	}
	if err := c.validateAcquisition(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateCompose(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.MaxConcurrentJobs <= 0 {
		return errors.New("workflow.max_concurrent_jobs must be positive")
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		return errors.New("workflow.error_retry_interval must be positive (seconds)")
	}
	if c.Workflow.SweepInterval <= 0 {
		return errors.New("workflow.sweep_interval must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateStages() error {
	spans := []struct {
		name string
		span StageSpan
	}{
		{"stages.acquire", c.Stages.Acquire},
		{"stages.separate", c.Stages.Separate},
		{"stages.sync_lyrics", c.Stages.SyncLyrics},
		{"stages.compose", c.Stages.Compose},
	}
	previousEnd := 0
	for _, entry := range spans {
		if entry.span.ProgressStart < 0 || entry.span.ProgressEnd > 100 {
			return fmt.Errorf("%s progress span must stay within 0-100", entry.name)
		}
		if entry.span.ProgressStart >= entry.span.ProgressEnd {
			return fmt.Errorf("%s progress_start must be below progress_end", entry.name)
		}
		if entry.span.ProgressStart < previousEnd {
			return fmt.Errorf("%s progress span overlaps the previous stage", entry.name)
		}
		if entry.span.TimeoutSeconds <= 0 {
			return fmt.Errorf("%s timeout_seconds must be positive", entry.name)
		}
		previousEnd = entry.span.ProgressEnd
	}
	return nil
}

func (c *Config) validateAcquisition() error {
	for _, source := range c.Acquisition.Sources {
		if _, ok := knownSources[source]; !ok {
			return fmt.Errorf("acquisition.sources contains unknown source %q", source)
		}
	}
	return nil
}

func (c *Config) validateCache() error {
	if !c.Cache.Enabled {
		return nil
	}
	if c.Cache.Dir == "" {
		return errors.New("cache.dir must be set when cache.enabled is true")
	}
	if c.Cache.MaxAgeDays <= 0 {
		return errors.New("cache.max_age_days must be positive")
	}
	if c.Cache.MaxEntries <= 0 {
		return errors.New("cache.max_entries must be positive")
	}
	return nil
}

func (c *Config) validateCompose() error {
	if c.Compose.Width <= 0 || c.Compose.Height <= 0 {
		return errors.New("compose.width and compose.height must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	return nil
}
