package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xmhha/hump-yard/pkg/aggregator"
	"github.com/0xmhha/hump-yard/pkg/monitor"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var format string
	var follow bool
	var refresh time.Duration

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent dispatches, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must be >= 0")
			}

			if follow && format == "table" {
				format = "simple"
			}

			out := cmd.OutOrStdout()
			formatter, err := newFormatter(out, format)
			if err != nil {
				return err
			}

			log := ctx.logger("warn")
			j, err := ctx.journal(log)
			if err != nil {
				return err
			}

			if follow {
				f := monitor.New(monitor.Config{RefreshInterval: refresh, Backlog: limit}, j, log)
				return f.Run(cmd.Context(), func(u monitor.Update) error {
					if len(u.Entries) == 0 {
						return nil
					}
					return formatter.FormatHistory(out, u.Entries)
				})
			}

			entries, err := j.Recent(limit)
			if err != nil {
				return err
			}
			return formatter.FormatHistory(out, entries)
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show (0 for all)")
	historyCmd.Flags().StringVar(&format, "format", "table", "Output format (table, json, simple)")
	historyCmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new dispatches as they are recorded")
	historyCmd.Flags().DurationVar(&refresh, "refresh", time.Second, "Poll interval for --follow (e.g. 500ms, 2s)")

	historyCmd.AddCommand(newHistoryStatsCommand(ctx))
	return historyCmd
}

func newHistoryStatsCommand(ctx *commandContext) *cobra.Command {
	var groupBy string
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the dispatch history",
		Example: `  hump-yard history stats
  hump-yard history stats --group-by plugin
  hump-yard history stats --group-by plugin,status --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dims, err := aggregator.ParseDimensions(groupBy)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			formatter, err := newFormatter(out, format)
			if err != nil {
				return err
			}

			j, err := ctx.journal(ctx.logger("warn"))
			if err != nil {
				return err
			}
			entries, err := j.Recent(0)
			if err != nil {
				return err
			}

			agg := aggregator.New(aggregator.Config{GroupBy: dims, TrackPercentiles: true})
			for _, e := range entries {
				agg.Add(e)
			}

			if len(dims) == 0 {
				return formatter.FormatStats(out, agg.Stats())
			}
			names := make([]string, len(dims))
			for i, d := range dims {
				names[i] = string(d)
			}
			return formatter.FormatGroupedStats(out, agg.GroupedStats(), names)
		},
	}
	cmd.Flags().StringVar(&groupBy, "group-by", "", "Group by dimensions (comma-separated: plugin,rule,status,date,hour)")
	cmd.Flags().StringVar(&format, "format", "table", "Output format (table, json, simple)")
	return cmd
}
