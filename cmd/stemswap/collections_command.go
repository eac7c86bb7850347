package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newCollectionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "List catalog collections and check the configured one",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
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
			names, err := cat.ListCollections(cmd.Context())
			if err != nil {
				return fmt.Errorf("list collections: %w", err)
			}
			exists, err := cat.CollectionExists(cmd.Context(), cfg.Catalog.Collection)
			if err != nil {
				return fmt.Errorf("check collection: %w", err)
			}

			sort.Strings(names)
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				rows = append(rows, []string{name, yesNo(name == cfg.Catalog.Collection)})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Collection", "Configured"}, rows, nil))
			fmt.Fprintf(out, "Collection %s exists: %s\n", cfg.Catalog.Collection, yesNo(exists))
			return nil
		},
	}
}
