package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"openmic/internal/ipc"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Artifact cache utilities",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheEvictCommand(ctx))
	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show artifact cache occupancy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CacheStats()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Stats)
				}

				stdout := cmd.OutOrStdout()
				stats := resp.Stats
				fmt.Fprintf(stdout, "Entries:    %d\n", stats.Entries)
				fmt.Fprintf(stdout, "Size:       %s\n", humanize.Bytes(uint64(stats.TotalBytes)))
				if stats.OldestEntry != "" {
					fmt.Fprintf(stdout, "Oldest:     %s\n", relativeTime(stats.OldestEntry))
				}
				if stats.NewestEntry != "" {
					fmt.Fprintf(stdout, "Newest:     %s\n", relativeTime(stats.NewestEntry))
				}
				if stats.TotalFSBytes > 0 {
					fmt.Fprintf(stdout, "Disk free:  %s of %s\n",
						humanize.Bytes(stats.FreeBytes), humanize.Bytes(stats.TotalFSBytes))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output cache stats as JSON")
	return cmd
}

func newCacheEvictCommand(ctx *commandContext) *cobra.Command {
	var maxAgeDays int
	var maxEntries int

	cmd := &cobra.Command{
		Use:   "evict",
		Short: "Run a cache eviction sweep now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CacheEvict(ipc.CacheEvictRequest{
					MaxAgeDays: maxAgeDays,
					MaxEntries: maxEntries,
				})
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if resp.AgeEvicted == 0 && resp.CountEvicted == 0 {
					fmt.Fprintln(stdout, "Nothing to evict")
					return nil
				}
				fmt.Fprintf(stdout, "Evicted %d expired and %d over-limit entries\n",
					resp.AgeEvicted, resp.CountEvicted)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&maxAgeDays, "max-age-days", 0, "Evict entries older than this many days (0 uses config)")
	cmd.Flags().IntVar(&maxEntries, "max-entries", 0, "Keep at most this many entries (0 uses config)")
	return cmd
}
