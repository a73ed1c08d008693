package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/availmon/internal/app"
)

func newCheckCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Fetch the listing once and print the count without recording or notifying",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fetcher, err := app.NewFetcher(c.cfg, c.logger.Named("fetcher"))
			if err != nil {
				return err
			}
			page, err := fetcher.Fetch(cmd.Context(), c.cfg.Target.URL)
			if err != nil {
				return err
			}
			c.logger.Debug("page fetched",
				zap.String("engine", page.Engine),
				zap.Int("bytes", len(page.HTML)),
				zap.Duration("render", page.Duration),
			)

			reading := app.NewExtractor(c.cfg).Extract(page.HTML)
			out := cmd.OutOrStdout()
			if !reading.Found {
				_, _ = fmt.Fprintf(out, "marker %q not found on %s\n", c.cfg.Target.MarkerPhrase, page.FinalURL)
				return nil
			}
			_, _ = fmt.Fprintf(out, "%s: %d\n", reading.Label, reading.Count)
			return nil
		},
	}
}
