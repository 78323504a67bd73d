package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/moatasem1234/madrasati/internal/notify"
)

func newWatchCmd() *cobra.Command {
	var (
		configPath string
		once       bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch for new messages",
		Long:  "Polls the conversation list on the configured cron schedule and reports newly arrived unread messages.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromConfig(configPath)
			if err != nil {
				return err
			}
			if _, err := a.requireAuth(); err != nil {
				return err
			}

			watcher := notify.New(a.db, a.chat, a.cfg.Watch.Schedule, a.log)

			if once {
				alerts, err := watcher.Poll(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(alerts) == 0 {
					fmt.Fprintln(out, "No new messages")
					return nil
				}
				for _, alert := range alerts {
					fmt.Fprintf(out, "%s: %d new (unread: %d)\n",
						alert.ParticipantName, alert.NewMessages, alert.UnreadCount)
				}
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := watcher.Run(ctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "madrasati.yaml", "path to config file")
	cmd.Flags().BoolVar(&once, "once", false, "poll once and exit")
	return cmd
}
