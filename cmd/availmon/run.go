package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/availmon/internal/app"
)

func newRunCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll the listing until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.Build(ctx, c.cfg, c.logger)
			if err != nil {
				return fmt.Errorf("build application: %w", err)
			}
			defer func() {
				if cerr := a.Close(); cerr != nil {
					c.logger.Warn("application close failed", zap.Error(cerr))
				}
			}()

			if err := a.Run(ctx); err != nil {
				return fmt.Errorf("run: %w", err)
			}
			c.logger.Info("shutdown complete")
			return nil
		},
	}
}
