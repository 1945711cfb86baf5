package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"openmic/internal/api"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func songTableRow(song api.SongView) []string {
	return []string{
		shortID(song.ID),
		song.Title,
		song.Artist,
		song.Requester,
		song.Status,
		fmt.Sprintf("%d%%", song.Progress),
		relativeTime(song.RequestedAt),
	}
}

var songTableHeaders = []string{"ID", "Title", "Artist", "Requester", "Status", "Progress", "Requested"}

var songTableAligns = []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func relativeTime(stamp string) string {
	if strings.TrimSpace(stamp) == "" {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return stamp
	}
	return humanize.Time(parsed)
}

func printSong(out io.Writer, song api.SongView) {
	fmt.Fprintf(out, "ID:        %s\n", song.ID)
	fmt.Fprintf(out, "Title:     %s\n", song.Title)
	fmt.Fprintf(out, "Artist:    %s\n", song.Artist)
	fmt.Fprintf(out, "Requester: %s\n", song.Requester)
	fmt.Fprintf(out, "Status:    %s (%d%%)\n", song.Status, song.Progress)
	if song.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:     %s\n", song.ErrorMessage)
	}
	if song.Artifacts.Video != "" {
		fmt.Fprintf(out, "Video:     %s\n", song.Artifacts.Video)
	}
	if song.Artifacts.Instrumental != "" {
		fmt.Fprintf(out, "Backing:   %s\n", song.Artifacts.Instrumental)
	}
	if song.Artifacts.Lyrics != "" {
		fmt.Fprintf(out, "Lyrics:    %s\n", song.Artifacts.Lyrics)
	}
	if song.RequestedAt != "" {
		fmt.Fprintf(out, "Requested: %s\n", relativeTime(song.RequestedAt))
	}
}
