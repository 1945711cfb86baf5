package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// SongView describes a song record in a transport-friendly format.
type SongView struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Artist         string        `json:"artist"`
	Requester      string        `json:"requester"`
	RequesterColor string        `json:"requesterColor,omitempty"`
	Status         string        `json:"status"`
	Progress       int           `json:"progress"`
	ErrorMessage   string        `json:"errorMessage,omitempty"`
	Fingerprint    string        `json:"fingerprint,omitempty"`
	Artifacts      ArtifactsView `json:"artifacts"`
	RequestedAt    string        `json:"requestedAt,omitempty"`
	UpdatedAt      string        `json:"updatedAt,omitempty"`
}

// ArtifactsView lists the file paths produced for a song.
type ArtifactsView struct {
	Original     string `json:"original,omitempty"`
	Instrumental string `json:"instrumental,omitempty"`
	Lyrics       string `json:"lyrics,omitempty"`
	Video        string `json:"video,omitempty"`
}

// QueueView wraps the active queue plus aggregate counts.
type QueueView struct {
	Songs  []SongView     `json:"songs"`
	Counts map[string]int `json:"counts"`
}

// CacheStatsView reports artifact cache occupancy and disk headroom.
type CacheStatsView struct {
	Entries      int    `json:"entries"`
	TotalBytes   int64  `json:"totalBytes"`
	OldestEntry  string `json:"oldestEntry,omitempty"`
	NewestEntry  string `json:"newestEntry,omitempty"`
	FreeBytes    uint64 `json:"freeBytes"`
	TotalFSBytes uint64 `json:"totalFsBytes"`
}

// DaemonStatus aggregates daemon runtime information for clients.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	DatabasePath string         `json:"databasePath"`
	LockFilePath string         `json:"lockFilePath"`
	SocketPath   string         `json:"socketPath"`
	QueueStats   map[string]int `json:"queueStats"`
	NowPlaying   *SongView      `json:"nowPlaying,omitempty"`
}
