package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"openmic/internal/config"
)

const userAgent = "Openmic-Go/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifySongQueued(ctx context.Context, title, artist, requester string) error
	NotifySongReady(ctx context.Context, title, artist string) error
	NotifySongFailed(ctx context.Context, title, artist, reason string) error
	NotifyNowPlaying(ctx context.Context, title, artist, requester string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		readyEvents: cfg.Notifications.Ready,
		errorEvents: cfg.Notifications.Errors,
		queueEvents: cfg.Notifications.Queue,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	readyEvents bool
	errorEvents bool
	queueEvents bool
}

func (n *ntfyService) NotifySongQueued(ctx context.Context, title, artist, requester string) error {
	if !n.queueEvents {
		return nil
	}
	message := fmt.Sprintf("Queued: %s - %s", strings.TrimSpace(title), strings.TrimSpace(artist))
	if requester = strings.TrimSpace(requester); requester != "" {
		message += fmt.Sprintf(" (for %s)", requester)
	}
	return n.send(ctx, payload{
		title:   "Openmic - Song Queued",
		message: message,
		tags:    []string{"openmic", "queue", "added"},
	})
}

func (n *ntfyService) NotifySongReady(ctx context.Context, title, artist string) error {
	if !n.readyEvents {
		return nil
	}
	return n.send(ctx, payload{
		title:    "Openmic - Ready to Sing",
		message:  fmt.Sprintf("🎤 Ready: %s - %s", strings.TrimSpace(title), strings.TrimSpace(artist)),
		tags:     []string{"openmic", "song", "ready"},
		priority: "high",
	})
}

func (n *ntfyService) NotifySongFailed(ctx context.Context, title, artist, reason string) error {
	if !n.errorEvents {
		return nil
	}
	message := fmt.Sprintf("Failed: %s - %s", strings.TrimSpace(title), strings.TrimSpace(artist))
	if reason = strings.TrimSpace(reason); reason != "" {
		message += "\n" + reason
	}
	return n.send(ctx, payload{
		title:    "Openmic - Song Failed",
		message:  message,
		tags:     []string{"openmic", "song", "failed"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyNowPlaying(ctx context.Context, title, artist, requester string) error {
	if !n.queueEvents {
		return nil
	}
	message := fmt.Sprintf("Now playing: %s - %s", strings.TrimSpace(title), strings.TrimSpace(artist))
	if requester = strings.TrimSpace(requester); requester != "" {
		message += fmt.Sprintf("\nSinger: %s", requester)
	}
	return n.send(ctx, payload{
		title:   "Openmic - Now Playing",
		message: message,
		tags:    []string{"openmic", "queue", "playing"},
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errorEvents {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "Openmic - Error",
		message:  builder.String(),
		tags:     []string{"openmic", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Openmic - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"openmic", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifySongQueued(context.Context, string, string, string) error { return nil }
func (noopService) NotifySongReady(context.Context, string, string) error          { return nil }
func (noopService) NotifySongFailed(context.Context, string, string, string) error { return nil }
func (noopService) NotifyNowPlaying(context.Context, string, string, string) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error               { return nil }
func (noopService) TestNotification(context.Context) error                         { return nil }
