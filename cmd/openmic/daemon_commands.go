package main

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"openmic/internal/daemonctl"
	"openmic/internal/daemonrun"
	"openmic/internal/ipc"
)

const ansiBlue = "\033[34m"
const ansiReset = "\033[0m"

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Daemon lifecycle commands",
	}
	daemonCmd.AddCommand(newDaemonStartCommand(ctx))
	daemonCmd.AddCommand(newDaemonStopCommand(ctx))
	daemonCmd.AddCommand(newDaemonStatusCommand(ctx))
	daemonCmd.AddCommand(newDaemonRunCommand(ctx))
	return daemonCmd
}

func newDaemonStartCommand(ctx *commandContext) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the openmic daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonctl.DaemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonctl.LaunchOptions{ConfigPath: ctx.configPath(), LogLevel: logLevel},
				10*time.Second,
			)
			if err != nil {
				return err
			}
			if result.AlreadyRunning {
				fmt.Fprintln(stdout, "Daemon already running")
				return nil
			}
			fmt.Fprintln(stdout, "Daemon started")
			return nil
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	return cmd
}

func newDaemonStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the openmic daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				printDaemonStatus(cmd, resp)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output daemon status as JSON")
	return cmd
}

func printDaemonStatus(cmd *cobra.Command, status *ipc.StatusResponse) {
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)

	header := "Daemon Status"
	if colorize {
		header = ansiBlue + header + ansiReset
	}
	fmt.Fprintln(stdout, header)

	running := "stopped"
	if status.Running {
		running = fmt.Sprintf("running (pid %d)", status.PID)
	}
	fmt.Fprintf(stdout, "State:    %s\n", running)
	fmt.Fprintf(stdout, "Socket:   %s\n", status.SocketPath)
	fmt.Fprintf(stdout, "Database: %s\n", status.DatabasePath)

	if status.NowPlaying != nil {
		fmt.Fprintf(stdout, "Playing:  %q by %s (requested by %s)\n",
			status.NowPlaying.Title, status.NowPlaying.Artist, status.NowPlaying.Requester)
	}
	if status.UpNext != nil {
		fmt.Fprintf(stdout, "Up next:  %q by %s (requested by %s)\n",
			status.UpNext.Title, status.UpNext.Artist, status.UpNext.Requester)
	}

	if len(status.QueueStats) > 0 {
		keys := make([]string, 0, len(status.QueueStats))
		for key := range status.QueueStats {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		fmt.Fprintln(stdout, "Queue:")
		for _, key := range keys {
			fmt.Fprintf(stdout, "  %-11s %d\n", key, status.QueueStats[key])
		}
	}
}

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{LogLevel: logLevel})
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	return cmd
}
