package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"openmic/internal/ipc"
	"openmic/internal/songs"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string
	var all bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show the karaoke queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, raw := range statusFilters {
				if _, ok := songs.ParseStatus(strings.TrimSpace(raw)); !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueList(ipc.QueueListRequest{Statuses: statusFilters, All: all})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}

				stdout := cmd.OutOrStdout()
				if len(resp.Songs) == 0 {
					fmt.Fprintln(stdout, "Queue is empty")
					return nil
				}

				rows := make([][]string, 0, len(resp.Songs))
				for _, song := range resp.Songs {
					rows = append(rows, songTableRow(song))
				}
				fmt.Fprintln(stdout, renderTable(songTableHeaders, rows, songTableAligns))
				fmt.Fprintln(stdout, formatCounts(resp.Counts))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&statusFilters, "status", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "Include completed songs")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the queue as JSON")
	return cmd
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "No songs recorded"
	}
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	total := 0
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", key, counts[key]))
		total += counts[key]
	}
	return fmt.Sprintf("%d songs: %s", total, strings.Join(parts, ", "))
}
