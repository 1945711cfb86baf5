package lyricsync

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"openmic/internal/media"
)

// timestampRe matches LRC timestamps like [01:23.45] or [01:23.456].
var timestampRe = regexp.MustCompile(`\[(\d{1,3}):(\d{2})(?:\.(\d{1,3}))?\]`)

// ParseLRC converts LRC text into timed lines sorted by offset. A line may
// carry several timestamps (repeated chorus); each becomes its own entry.
// Metadata tags like [ar:...] and malformed lines are skipped.
func ParseLRC(text string) []media.TimedLine {
	var lines []media.TimedLine
	for _, raw := range strings.Split(text, "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		matches := timestampRe.FindAllStringSubmatchIndex(raw, -1)
		if len(matches) == 0 {
			continue
		}
		lyric := strings.TrimSpace(raw[matches[len(matches)-1][1]:])
		for _, match := range matches {
			at, ok := parseTimestamp(raw[match[0]:match[1]])
			if !ok {
				continue
			}
			lines = append(lines, media.TimedLine{At: at, Text: lyric})
		}
	}
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].At < lines[j].At
	})
	return lines
}

func parseTimestamp(stamp string) (time.Duration, bool) {
	match := timestampRe.FindStringSubmatch(stamp)
	if match == nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.Atoi(match[2])
	if err != nil || seconds >= 60 {
		return 0, false
	}
	at := time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second
	if match[3] != "" {
		// Fractions may be centiseconds or milliseconds depending on source.
		fraction, err := strconv.Atoi(match[3])
		if err != nil {
			return 0, false
		}
		switch len(match[3]) {
		case 1:
			at += time.Duration(fraction) * 100 * time.Millisecond
		case 2:
			at += time.Duration(fraction) * 10 * time.Millisecond
		default:
			at += time.Duration(fraction) * time.Millisecond
		}
	}
	return at, true
}

// WriteLRC persists timed lines as an .lrc file and returns the path.
func WriteLRC(path string, lines []media.TimedLine) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create lyrics dir: %w", err)
	}
	var builder strings.Builder
	for _, line := range lines {
		total := line.At.Round(10 * time.Millisecond)
		minutes := int(total / time.Minute)
		seconds := int(total/time.Second) % 60
		centis := int(total/(10*time.Millisecond)) % 100
		fmt.Fprintf(&builder, "[%02d:%02d.%02d]%s\n", minutes, seconds, centis, line.Text)
	}
	if err := os.WriteFile(path, []byte(builder.String()), 0o644); err != nil {
		return "", fmt.Errorf("write lrc file: %w", err)
	}
	return path, nil
}
