package main

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/JakeFAU/availmon/internal/app"
	"github.com/JakeFAU/availmon/internal/monitor"
)

func newHistoryCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the recorded availability changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := app.OpenHistory(cmd.Context(), c.cfg, c.logger.Named("history"))
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			entries, err := store.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}
			renderHistory(cmd, entries, limit)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show only the newest n entries (0 shows all)")
	return cmd
}

func renderHistory(cmd *cobra.Command, entries []monitor.Observation, limit int) {
	start := 0
	if limit > 0 && len(entries) > limit {
		start = len(entries) - limit
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"#", "Timestamp", "Count", "Change", "URL"})
	for i := start; i < len(entries); i++ {
		e := entries[i]
		change := "-"
		if i > 0 {
			change = fmt.Sprintf("%+d", e.Count-entries[i-1].Count)
		}
		t.AppendRow(table.Row{strconv.Itoa(i + 1), e.Timestamp, e.Count, change, e.URL})
	}
	t.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("%d of %d entries", len(entries)-start, len(entries))})
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	t.Render()
}
