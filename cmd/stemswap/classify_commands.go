package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stemswap/internal/pipeline"
	"stemswap/internal/stems"
)

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <label>...",
		Short: "Show the normalized form and instrument family of stem labels",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			families, err := pipeline.LoadFamilies(cfg)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(args))
			for _, label := range args {
				rows = append(rows, []string{label, stems.Normalize(label), familyText(families.Classify(label))})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Label", "Normalized", "Family"}, rows, nil))
			return nil
		},
	}
}

func newCompatCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "compat <original> <candidate>",
		Short: "Show whether a candidate stem may replace an original stem",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			resolver, err := pipeline.LoadResolver(cfg)
			if err != nil {
				return err
			}
			original, candidate := args[0], args[1]
			ok, matchType := resolver.Compatible(original, candidate)
			families := resolver.Families()
			rows := [][]string{
				{"Original", original, stems.Normalize(original), familyText(families.Classify(original))},
				{"Candidate", candidate, stems.Normalize(candidate), familyText(families.Classify(candidate))},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Role", "Label", "Normalized", "Family"}, rows, nil))
			fmt.Fprintf(out, "Compatible: %s (%s)\n", yesNo(ok), humanize(string(matchType)))
			return nil
		},
	}
}

func familyText(f stems.Family) string {
	if !f.Known() {
		return "-"
	}
	return string(f)
}
