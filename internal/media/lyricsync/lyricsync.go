// Package lyricsync fetches time-synced lyrics from LRCLIB and converts them
// to timed lines and .lrc artifacts.
package lyricsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"openmic/internal/media"
)

// Client talks to an LRCLIB-compatible lyrics API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New constructs a lyrics client against baseURL (e.g. https://lrclib.net/api).
func New(baseURL string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("lyrics base url required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type lrclibResponse struct {
	PlainLyrics  string `json:"plainLyrics"`
	SyncedLyrics string `json:"syncedLyrics"`
	Instrumental bool   `json:"instrumental"`
}

// FetchAndSync retrieves synced lyrics for a work. It returns (nil, nil) when
// the catalog has no synced lyrics; callers treat that as "sing from memory".
func (c *Client) FetchAndSync(ctx context.Context, title, artist, _ string) ([]media.TimedLine, error) {
	query := url.Values{}
	query.Set("track_name", strings.TrimSpace(title))
	query.Set("artist_name", strings.TrimSpace(artist))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/get?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build lyrics request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch lyrics: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lyrics api returned status %d", resp.StatusCode)
	}

	var payload lrclibResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode lyrics response: %w", err)
	}
	if payload.Instrumental || strings.TrimSpace(payload.SyncedLyrics) == "" {
		return nil, nil
	}

	lines := ParseLRC(payload.SyncedLyrics)
	if len(lines) == 0 {
		return nil, nil
	}
	return lines, nil
}
