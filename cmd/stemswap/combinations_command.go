package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"stemswap/internal/pipeline"
	"stemswap/internal/runlog"
)

func newCombinationsCommand(ctx *commandContext) *cobra.Command {
	var threshold float64
	var maxTracks int

	cmd := &cobra.Command{
		Use:   "combinations",
		Short: "Search every catalog track for replacement stems and write the combinations CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("threshold") {
				if threshold < 0 || threshold > 1 {
					return fmt.Errorf("--threshold must be between 0 and 1, got %v", threshold)
				}
				cfg.Matching.SimilarityThreshold = threshold
			}
			if cmd.Flags().Changed("max-tracks") {
				if maxTracks < 0 {
					return fmt.Errorf("--max-tracks must be >= 0, got %d", maxTracks)
				}
				cfg.Matching.MaxTracks = maxTracks
			}

			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cat, err := ctx.catalog(logger)
			if err != nil {
				return err
			}
			defer closeCatalog(cat, logger)

			return ctx.withLedger(func(ledger *runlog.Store) error {
				runner, err := pipeline.NewRunner(cfg, cat, ledger, logger)
				if err != nil {
					return err
				}
				res, err := runner.Run(cmd.Context())
				if res != nil {
					printCombinationsResult(cmd, res)
				}
				return err
			})
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum similarity score (overrides matching.similarity_threshold)")
	cmd.Flags().IntVar(&maxTracks, "max-tracks", 0, "Stop after this many tracks, 0 for all (overrides matching.max_tracks)")
	return cmd
}

func printCombinationsResult(cmd *cobra.Command, res *pipeline.Result) {
	out := cmd.OutOrStdout()
	rows := [][]string{
		{"Run", res.RunID},
		{"Status", statusText(res.Status, shouldColorize(out))},
		{"Tracks seen", strconv.Itoa(res.TracksSeen)},
		{"Processed", strconv.Itoa(res.TracksProcessed)},
		{"Skipped", strconv.Itoa(res.TracksSkipped)},
		{"Failed", strconv.Itoa(res.TracksFailed)},
		{"Proposals", strconv.Itoa(res.Proposals)},
		{"Output", res.OutputPath},
	}
	if res.Err != nil {
		rows = append(rows, []string{"Reason", res.Err.Error()})
	}
	if len(res.Available) > 0 {
		rows = append(rows, []string{"Available collections", strings.Join(res.Available, ", ")})
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
}
