package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ersonp/casegraph/internal/application/handlers"
)

func newIndexCmd() *cobra.Command {
	var rebuild bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Embed every entity into the project's vector collection",
		Long: `Embeds the type and primary value of every entity with the configured
embedder and stores the vectors in Qdrant. Re-indexing overwrites vectors
by UID; use --rebuild to also drop entities deleted since the last run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, rebuild)
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Drop and recreate the collection first")

	cmd.AddCommand(&cobra.Command{
		Use:   "forget UID...",
		Short: "Remove entities from the vector collection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndexForget(cmd, args)
		},
	})

	return cmd
}

func runIndex(cmd *cobra.Command, rebuild bool) error {
	ctx := cmd.Context()

	return withSimilarityHandler(ctx, func(handler *handlers.SimilarityHandler) error {
		n, err := handler.HandleIndex(ctx, rebuild)
		if err != nil {
			return fmt.Errorf("indexing entities: %w", err)
		}

		fmt.Printf("Indexed %d entities\n", n)
		return nil
	})
}

func runIndexForget(cmd *cobra.Command, uids []string) error {
	ctx := cmd.Context()

	return withSimilarityHandler(ctx, func(handler *handlers.SimilarityHandler) error {
		for _, uid := range uids {
			if err := handler.HandleForget(ctx, uid); err != nil {
				return err
			}
		}

		fmt.Printf("Removed %d entities from the index\n", len(uids))
		return nil
	})
}

type similarFlags struct {
	entityType string
	limit      int
}

func newSimilarCmd() *cobra.Command {
	var flags similarFlags

	cmd := &cobra.Command{
		Use:   "similar <text>",
		Short: "Find entities semantically close to text",
		Long: `Searches the project's vector collection. Run 'casegraph index' first.

Examples:
  casegraph -p acme similar "alice smith"
  casegraph -p acme similar "acme holdings" --type Company --limit 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimilar(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.entityType, "type", "t", "", "Only return entities of this type")
	cmd.Flags().IntVarP(&flags.limit, "limit", "l", DefaultSearchLimit, "Maximum number of results")

	return cmd
}

func runSimilar(cmd *cobra.Command, text string, flags similarFlags) error {
	ctx := cmd.Context()

	return withSimilarityHandler(ctx, func(handler *handlers.SimilarityHandler) error {
		hits, err := handler.HandleSearch(ctx, text, flags.entityType, flags.limit)
		if err != nil {
			return fmt.Errorf("searching: %w", err)
		}

		if len(hits) == 0 {
			fmt.Println("No similar entities found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SCORE\tUID\tTYPE\tPRIMARY")
		for _, h := range hits {
			fmt.Fprintf(w, "%.3f\t%s\t%s\t%s\n", h.Score, h.UID, h.Type, truncate(h.Primary, 50))
		}
		return w.Flush()
	})
}
