package ipc

import "openmic/internal/api"

// SongView mirrors the API song DTO for IPC callers.
type SongView = api.SongView

// CacheStatsView mirrors the API cache stats DTO.
type CacheStatsView = api.CacheStatsView

// SubmitRequest queues a new song for production. Quality and StageTimeouts
// override the configured defaults for this run only.
type SubmitRequest struct {
	Title         string         `json:"title"`
	Artist        string         `json:"artist"`
	UserID        string         `json:"user_id"`
	UserName      string         `json:"user_name"`
	UserColor     string         `json:"user_color"`
	Quality       string         `json:"quality,omitempty"`
	StageTimeouts map[string]int `json:"stage_timeouts,omitempty"`
}

// SubmitResponse returns the created song record.
type SubmitResponse struct {
	Song SongView `json:"song"`
}

// ResubmitRequest re-admits an existing song by id.
type ResubmitRequest struct {
	ID string `json:"id"`
}

// ResubmitResponse acknowledges resubmission.
type ResubmitResponse struct {
	Accepted bool `json:"accepted"`
}

// CancelRequest aborts a pending or running song.
type CancelRequest struct {
	ID string `json:"id"`
}

// CancelResponse acknowledges cancellation.
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// SongStatusRequest fetches a single song by id.
type SongStatusRequest struct {
	ID string `json:"id"`
}

// SongStatusResponse contains the song record.
type SongStatusResponse struct {
	Song SongView `json:"song"`
}

// QueueListRequest filters the queue by status. All bypasses the active-queue
// view and returns every song ever recorded.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
	All      bool     `json:"all"`
}

// QueueListResponse contains queue entries and aggregate counts.
type QueueListResponse struct {
	Songs  []SongView     `json:"songs"`
	Counts map[string]int `json:"counts"`
}

// NowPlayingRequest fetches the song currently on stage.
type NowPlayingRequest struct{}

// NowPlayingResponse contains the playing song, if any.
type NowPlayingResponse struct {
	Playing bool      `json:"playing"`
	Song    *SongView `json:"song,omitempty"`
}

// AdvanceQueueRequest completes the playing song and promotes the next.
type AdvanceQueueRequest struct{}

// AdvanceQueueResponse contains the promoted song, if any.
type AdvanceQueueResponse struct {
	Promoted bool      `json:"promoted"`
	Song     *SongView `json:"song,omitempty"`
}

// CacheStatsRequest fetches artifact cache occupancy.
type CacheStatsRequest struct{}

// CacheStatsResponse reports cache occupancy and disk headroom.
type CacheStatsResponse struct {
	Stats CacheStatsView `json:"stats"`
}

// CacheEvictRequest runs a manual eviction sweep. Non-positive limits fall
// back to the configured defaults.
type CacheEvictRequest struct {
	MaxAgeDays int `json:"max_age_days"`
	MaxEntries int `json:"max_entries"`
}

// CacheEvictResponse reports eviction counts.
type CacheEvictResponse struct {
	AgeEvicted   int `json:"age_evicted"`
	CountEvicted int `json:"count_evicted"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	DatabasePath string         `json:"database_path"`
	LockPath     string         `json:"lock_path"`
	SocketPath   string         `json:"socket_path"`
	QueueStats   map[string]int `json:"queue_stats"`
	NowPlaying   *SongView      `json:"now_playing,omitempty"`
	UpNext       *SongView      `json:"up_next,omitempty"`
}

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}
