package main

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"stemswap/internal/runlog"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the run ledger",
	}
	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(ledger *runlog.Store) error {
				runs, err := ledger.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				colorize := shouldColorize(out)
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						shortID(run.ID),
						string(run.Kind),
						statusText(run.Status, colorize),
						run.StartedAt.Local().Format(time.DateTime),
						strconv.Itoa(run.TracksSeen),
						strconv.Itoa(run.TracksSkipped),
						strconv.Itoa(run.Proposals),
					})
				}
				headers := []string{"ID", "Kind", "Status", "Started", "Seen", "Skipped", "Proposals"}
				aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight}
				fmt.Fprintln(out, renderTable(headers, rows, aligns))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show, 0 for all")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and its skip reasons",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(ledger *runlog.Store) error {
				run, err := ledger.FindRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				reasons, err := ledger.SkipReasons(cmd.Context(), run.ID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				finished := "-"
				duration := "-"
				if run.FinishedAt != nil {
					finished = run.FinishedAt.Local().Format(time.DateTime)
					duration = run.Duration().Round(time.Millisecond).String()
				}
				rows := [][]string{
					{"ID", run.ID},
					{"Kind", string(run.Kind)},
					{"Status", statusText(run.Status, shouldColorize(out))},
					{"Collection", run.Collection},
					{"Output", run.OutputPath},
					{"Started", run.StartedAt.Local().Format(time.DateTime)},
					{"Finished", finished},
					{"Duration", duration},
					{"Tracks seen", strconv.Itoa(run.TracksSeen)},
					{"Processed", strconv.Itoa(run.TracksProcessed)},
					{"Skipped", strconv.Itoa(run.TracksSkipped)},
					{"Failed", strconv.Itoa(run.TracksFailed)},
					{"Proposals", strconv.Itoa(run.Proposals)},
				}
				if run.ErrorMessage != "" {
					rows = append(rows, []string{"Error", run.ErrorMessage})
				}
				fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))

				if len(reasons) > 0 {
					keys := make([]string, 0, len(reasons))
					for reason := range reasons {
						keys = append(keys, reason)
					}
					sort.Strings(keys)
					reasonRows := make([][]string, 0, len(keys))
					for _, reason := range keys {
						reasonRows = append(reasonRows, []string{humanize(reason), strconv.Itoa(reasons[reason])})
					}
					fmt.Fprintln(out, renderTable([]string{"Skip reason", "Tracks"}, reasonRows, []columnAlignment{alignLeft, alignRight}))
				}
				return nil
			})
		},
	}
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
