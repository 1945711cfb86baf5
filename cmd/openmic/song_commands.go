package main

import (
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/spf13/cobra"

	"openmic/internal/ipc"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var userID string
	var userName string
	var userColor string
	var quality string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "submit <title> <artist>",
		Short: "Request a karaoke version of a song",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ipc.SubmitRequest{
				Title:     strings.TrimSpace(args[0]),
				Artist:    strings.TrimSpace(args[1]),
				UserID:    strings.TrimSpace(userID),
				UserName:  strings.TrimSpace(userName),
				UserColor: strings.TrimSpace(userColor),
				Quality:   strings.TrimSpace(quality),
			}
			if req.UserID == "" {
				req.UserID = localUserID()
			}
			if req.UserName == "" {
				req.UserName = req.UserID
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Submit(req)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Song)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %q by %s (id %s)\n",
					resp.Song.Title, resp.Song.Artist, shortID(resp.Song.ID))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Requesting user id (defaults to the local username)")
	cmd.Flags().StringVar(&userName, "name", "", "Display name shown in the queue")
	cmd.Flags().StringVar(&userColor, "color", "", "Display color for the requester")
	cmd.Flags().StringVar(&quality, "quality", "", "Acquisition quality for this run (defaults to config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the created song as JSON")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <song-id>",
		Short: "Show production status for a song",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SongStatus(strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Song)
				}
				printSong(cmd.OutOrStdout(), resp.Song)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the song as JSON")
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <song-id>",
		Short: "Cancel a pending or running song",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Cancel(id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cancelled %s\n", shortID(id))
				return nil
			})
		},
	}
}

func newResubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resubmit <song-id>",
		Short: "Requeue a failed or completed song",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Resubmit(id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %s\n", shortID(id))
				return nil
			})
		},
	}
}

func newAdvanceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "advance",
		Short: "Finish the playing song and promote the next ready one",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.AdvanceQueue()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if !resp.Promoted {
					fmt.Fprintln(stdout, "No song ready to play")
					return nil
				}
				fmt.Fprintf(stdout, "Now playing: %q by %s (requested by %s)\n",
					resp.Song.Title, resp.Song.Artist, resp.Song.Requester)
				return nil
			})
		},
	}
}

func localUserID() string {
	if current, err := user.Current(); err == nil && current.Username != "" {
		return current.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "local"
}
