package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ersonp/casegraph/internal/application/handlers"
)

func newCanvasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "canvas",
		Short: "Manage canvases",
		Long: `Canvases are named subsets of the graph. A canvas exists while it has
members; queries can select entities by canvas.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCanvasList(cmd)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List canvases and their members",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCanvasList(cmd)
			},
		},
		&cobra.Command{
			Use:   "add CANVAS UID...",
			Short: "Add entities to a canvas, creating it if needed",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCanvasAdd(cmd, args[0], args[1:])
			},
		},
		&cobra.Command{
			Use:   "remove CANVAS UID...",
			Short: "Remove entities from a canvas",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCanvasRemove(cmd, args[0], args[1:])
			},
		},
		&cobra.Command{
			Use:   "delete CANVAS",
			Short: "Delete a canvas",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCanvasDelete(cmd, args[0])
			},
		},
	)

	return cmd
}

func runCanvasList(cmd *cobra.Command) error {
	ctx := cmd.Context()

	return withCanvasHandler(ctx, func(handler *handlers.CanvasHandler) error {
		canvases, err := handler.HandleList(ctx)
		if err != nil {
			return fmt.Errorf("listing canvases: %w", err)
		}

		if len(canvases) == 0 {
			fmt.Println("No canvases found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tMEMBERS\tUIDS")
		for _, c := range canvases {
			fmt.Fprintf(w, "%s\t%d\t%s\n", c.Name, len(c.Members), truncate(strings.Join(c.Members, ", "), 60))
		}
		return w.Flush()
	})
}

func runCanvasAdd(cmd *cobra.Command, canvas string, uids []string) error {
	ctx := cmd.Context()

	return withCanvasHandler(ctx, func(handler *handlers.CanvasHandler) error {
		if err := handler.HandleAdd(ctx, canvas, uids); err != nil {
			return fmt.Errorf("adding to canvas: %w", err)
		}

		fmt.Printf("Added %d entities to canvas %q\n", len(uids), canvas)
		return nil
	})
}

func runCanvasRemove(cmd *cobra.Command, canvas string, uids []string) error {
	ctx := cmd.Context()

	return withCanvasHandler(ctx, func(handler *handlers.CanvasHandler) error {
		if err := handler.HandleRemove(ctx, canvas, uids); err != nil {
			return fmt.Errorf("removing from canvas: %w", err)
		}

		fmt.Printf("Removed %d entities from canvas %q\n", len(uids), canvas)
		return nil
	})
}

func runCanvasDelete(cmd *cobra.Command, canvas string) error {
	ctx := cmd.Context()

	return withCanvasHandler(ctx, func(handler *handlers.CanvasHandler) error {
		if err := handler.HandleDelete(ctx, canvas); err != nil {
			return fmt.Errorf("deleting canvas: %w", err)
		}

		fmt.Printf("Deleted canvas %q\n", canvas)
		return nil
	})
}
