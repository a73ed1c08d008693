package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/availmon/internal/config"
	"github.com/JakeFAU/availmon/internal/logging"
)

// cli carries state shared by the subcommands once PersistentPreRunE has run.
type cli struct {
	cfgFile  string
	envFile  string
	cfg      config.Config
	logger   *zap.Logger
	closeLog func()
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	cmd := &cobra.Command{
		Use:   "availmon",
		Short: "Watch a rental listing for changes in bookable residences",
		Long: `availmon renders a listing page on a fixed interval, reads the
"Available to book (N)" filter label, records every change in a history log
and notifies subscribers by email, webhook or Pub/Sub.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(c.cfgFile, c.envFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, closeLog, err := logging.New(logging.Options{
				Development: cfg.Logging.Development,
				File:        cfg.Logging.File,
				Level:       cfg.Logging.Level,
			})
			if err != nil {
				return fmt.Errorf("logger init failed: %w", err)
			}
			c.cfg, c.logger, c.closeLog = cfg, logger, closeLog
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if c.closeLog != nil {
				c.closeLog()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (yaml, toml or json)")
	cmd.PersistentFlags().StringVar(&c.envFile, "env-file", "", "dotenv file to load (default .env when present)")

	cmd.AddCommand(newRunCmd(c), newCheckCmd(c), newHistoryCmd(c))
	return cmd
}
