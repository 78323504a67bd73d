package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/moatasem1234/madrasati/internal/webui"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local web view",
		Long:  "Runs a local web server with the conversation list and message threads.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromConfig(configPath)
			if err != nil {
				return err
			}
			if _, err := a.requireAuth(); err != nil {
				return err
			}

			if port == 0 {
				port = a.cfg.WebUI.Port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return webui.Start(ctx, webui.StartOpts{
				Chat:     a.chat,
				Sessions: a.sessions,
				Port:     port,
				Out:      cmd.OutOrStdout(),
				Log:      a.log,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "madrasati.yaml", "path to config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config)")
	return cmd
}
