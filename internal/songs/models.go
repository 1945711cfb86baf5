package songs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a song request.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusAcquiring  Status = "acquiring"
	StatusSeparating Status = "separating"
	StatusSyncing    Status = "syncing"
	StatusComposing  Status = "composing"
	StatusReady      Status = "ready"
	StatusPlaying    Status = "playing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// CancelledReason is the error message recorded when a user cancels a run.
const CancelledReason = "Cancelled"

// RestartReason is the error message set when in-flight songs are failed
// because the daemon restarted mid-run.
const RestartReason = "Interrupted by daemon restart"

var allStatuses = []Status{
	StatusQueued,
	StatusAcquiring,
	StatusSeparating,
	StatusSyncing,
	StatusComposing,
	StatusReady,
	StatusPlaying,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// activeStatuses are the non-terminal pipeline states a job run moves through.
var activeStatuses = map[Status]struct{}{
	StatusQueued:     {},
	StatusAcquiring:  {},
	StatusSeparating: {},
	StatusSyncing:    {},
	StatusComposing:  {},
}

// transitions is the closed set of legal status moves. The terminal→queued
// edges cover explicit resubmission, which starts a fresh run on the same
// record.
var transitions = map[Status][]Status{
	StatusQueued:     {StatusAcquiring, StatusReady, StatusFailed},
	StatusAcquiring:  {StatusSeparating, StatusFailed},
	StatusSeparating: {StatusSyncing, StatusFailed},
	StatusSyncing:    {StatusComposing, StatusFailed},
	StatusComposing:  {StatusReady, StatusFailed},
	StatusReady:      {StatusPlaying},
	StatusPlaying:    {StatusCompleted},
	StatusCompleted:  {StatusQueued},
	StatusFailed:     {StatusQueued},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsActiveStatus reports whether a status reflects an in-flight pipeline run.
func IsActiveStatus(status Status) bool {
	_, ok := activeStatuses[status]
	return ok
}

// IsTerminal reports whether a status ends a job run.
func IsTerminal(status Status) bool {
	return status == StatusCompleted || status == StatusFailed
}

// Artifacts groups the produced file paths for a song or cache entry.
type Artifacts struct {
	Original     string
	Instrumental string
	Lyrics       string
	Video        string
}

// Complete reports whether the mandatory artifacts are present.
func (a Artifacts) Complete() bool {
	return strings.TrimSpace(a.Instrumental) != "" && strings.TrimSpace(a.Video) != ""
}

// User identifies a requester. The core treats it as opaque display data.
type User struct {
	ID          string
	DisplayName string
	Color       string
	CreatedAt   time.Time
}

// Song represents one song request persisted in SQLite.
type Song struct {
	ID           string
	UserID       string
	UserName     string
	UserColor    string
	Title        string
	Artist       string
	Status       Status
	Progress     int
	Artifacts    Artifacts
	Fingerprint  string
	ErrorMessage string
	RequestedAt  time.Time
	UpdatedAt    time.Time
}

// IsActive reports whether the song has an in-flight pipeline run.
func (s Song) IsActive() bool {
	return IsActiveStatus(s.Status)
}

// SetFailed marks the song as failed with the given reason. Progress resets
// to zero, which downstream readers must treat as a terminal signal rather
// than a regression.
func (s *Song) SetFailed(reason string) {
	s.Status = StatusFailed
	s.ErrorMessage = reason
	s.Progress = 0
}
