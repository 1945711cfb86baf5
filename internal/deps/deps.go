// Package deps inspects the external tools the pipeline shells out to and
// reports which of them are actually installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"openmic/internal/config"
)

// Requirement defines an external tool the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// ForConfig builds the requirement list for the configured toolchain. Sources
// that are not enabled do not contribute requirements.
func ForConfig(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{Name: "demucs", Command: cfg.DemucsBinary(), Description: "vocal separation"},
		{Name: "ffmpeg", Command: cfg.FFmpegBinary(), Description: "video composition"},
		{Name: "ffprobe", Command: cfg.FFprobeBinary(), Description: "media validation", Optional: true},
	}
	for _, source := range cfg.Acquisition.Sources {
		if source == "ytdlp" {
			reqs = append(reqs, Requirement{Name: "yt-dlp", Command: cfg.YtdlpBinary(), Description: "audio acquisition"})
		}
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
