package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/casegraph/internal/application/handlers"
	"github.com/ersonp/casegraph/internal/domain/services"
)

type importFlags struct {
	format     string
	dryRun     bool
	onConflict string
}

func newImportCmd() *cobra.Command {
	var flags importFlags

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import entities and links from JSON, CSV or a graph dump",
		Long: `Imports records from a structured file into the project graph.

JSON and CSV records are validated against the entity types and then
added according to --on-conflict. Graph dumps (.lsdb) are always merged
by last-write-wins on the edit date.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "auto", "File format (json, csv, lsdb, auto)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Validate without saving")
	cmd.Flags().StringVar(&flags.onConflict, "on-conflict", string(services.ConflictUpsert),
		"Conflict handling (upsert, overwrite, skip, merge)")

	return cmd
}

func runImport(cmd *cobra.Command, filePath string, flags importFlags) error {
	strategy, err := services.ParseConflictStrategy(flags.onConflict)
	if err != nil {
		return fmt.Errorf("invalid --on-conflict value: %w", err)
	}

	ctx := cmd.Context()

	return withImportHandler(ctx, func(handler *handlers.ImportHandler) error {
		opts := handlers.ImportOptions{
			Format:     flags.format,
			DryRun:     flags.dryRun,
			OnConflict: strategy,
		}

		fmt.Printf("Importing %s...\n", filePath)

		result, err := handler.Handle(ctx, filePath, opts)
		if err != nil {
			return fmt.Errorf("importing file: %w", err)
		}

		if len(result.Errors) > 0 {
			fmt.Printf("\nValidation errors (%d):\n", len(result.Errors))
			for _, e := range result.Errors {
				fmt.Printf("  %s\n", e.Error())
			}
		}

		fmt.Println()
		if flags.dryRun {
			fmt.Printf("Dry run: %d records would be imported", result.Imported)
		} else {
			fmt.Printf("Imported: %d records", result.Imported)
		}

		if result.Skipped > 0 {
			fmt.Printf(", %d skipped", result.Skipped)
		}

		if len(result.Errors) > 0 {
			fmt.Printf(", %d errors", len(result.Errors))
		}

		fmt.Println()

		return nil
	})
}
