package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"stemswap/internal/config"
	"stemswap/internal/pipeline"
	"stemswap/internal/runlog"
)

func newMetadataCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Export genre, mood, energy, key, and tempo for every catalog track",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target := strings.TrimSpace(outputPath)
			if target != "" {
				if target, err = config.ExpandPath(target); err != nil {
					return fmt.Errorf("resolve output path: %w", err)
				}
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
				summary, err := pipeline.NewExtractor(cfg, cat, ledger, logger).Extract(cmd.Context(), target)
				if summary != nil {
					printMetadataSummary(cmd, summary)
				}
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination CSV (defaults to output.dir/output.metadata_file)")
	return cmd
}

func printMetadataSummary(cmd *cobra.Command, s *pipeline.MetadataSummary) {
	out := cmd.OutOrStdout()
	tempo := "-"
	if s.HasTempo {
		tempo = fmt.Sprintf("%s - %s BPM",
			strconv.FormatFloat(s.TempoMin, 'f', -1, 64),
			strconv.FormatFloat(s.TempoMax, 'f', -1, 64))
	}
	rows := [][]string{
		{"Status", statusText(s.Status, shouldColorize(out))},
		{"Total tracks", strconv.Itoa(s.Total)},
		{"Unique genres", strconv.Itoa(s.Genres)},
		{"Unique moods", strconv.Itoa(s.Moods)},
		{"Unique keys", strconv.Itoa(s.Keys)},
		{"Tempo range", tempo},
		{"Skipped (no path)", strconv.Itoa(s.Skipped)},
		{"Duplicates", strconv.Itoa(s.Duplicates)},
		{"Output", s.OutputPath},
	}
	if s.Err != nil {
		rows = append(rows, []string{"Reason", s.Err.Error()})
	}
	if len(s.Available) > 0 {
		rows = append(rows, []string{"Available collections", strings.Join(s.Available, ", ")})
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
}
