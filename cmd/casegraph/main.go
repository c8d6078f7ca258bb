// Package main provides the entry point for the casegraph CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version       = "0.1.0-dev"
	globalProject string
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:           "casegraph",
		Short:         "An investigation graph of entities and links with a query language",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&globalProject, "project", "p", "", "Project to operate on (required for graph commands)")

	rootCmd.AddCommand(
		newInitCmd(),
		newProjectsCmd(),
		newEntitiesCmd(),
		newLinkCmd(),
		newUnlinkCmd(),
		newLinksCmd(),
		newCanvasCmd(),
		newQueryCmd(),
		newImportCmd(),
		newExportCmd(),
		newTypesCmd(),
		newIndexCmd(),
		newSimilarCmd(),
		newSyncCmd(),
		newAuditCmd(),
	)

	return rootCmd.ExecuteContext(ctx)
}
