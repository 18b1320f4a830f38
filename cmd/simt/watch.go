package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wasumayan/SorryIMissedThis-sub001/internal/logutil"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the live message stream and update the garden incrementally",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			svc, bridge, err := serviceFromViper(logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info("watching message stream", "bridge_url", bridge.BaseURL)
			if err := svc.Watch(ctx, bridge); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
