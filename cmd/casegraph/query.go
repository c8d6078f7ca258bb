package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ersonp/casegraph/internal/application/handlers"
	"github.com/ersonp/casegraph/internal/domain/entities"
)

type queryFlags struct {
	apply  bool
	format string
}

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run LQL queries against a project",
		Long: `Evaluates queries written in LQL, a YAML document with select,
source, conditions and modify sections. Every valid query is recorded in the
project's history and can be replayed by UID.

Example query file:
  select:
    fields: ["Full Name", "Email"]
  source:
    clauses:
      - kind: CANVAS
        value: suspects
  conditions:
    - kind: value
      value:
        field: Email
        op: ENDSWITH
        value: "@example.com"`,
	}

	cmd.AddCommand(
		newQueryRunCmd(),
		newQueryReplayCmd(),
		newQueryHistoryCmd(),
	)

	return cmd
}

func addQueryFlags(cmd *cobra.Command, flags *queryFlags) {
	cmd.Flags().BoolVar(&flags.apply, "apply", false, "Write entities changed by MODIFY back to the graph")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "table", "Output format: table, csv, json")
}

func newQueryRunCmd() *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run a query file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, flags, func(h *handlers.QueryHandler) (*handlers.QueryResult, error) {
				return h.HandleRunFile(cmd.Context(), args[0], flags.apply)
			})
		},
	}

	addQueryFlags(cmd, &flags)

	return cmd
}

func newQueryReplayCmd() *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "replay UID",
		Short: "Re-run a query from the history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, flags, func(h *handlers.QueryHandler) (*handlers.QueryResult, error) {
				return h.HandleReplay(cmd.Context(), args[0], flags.apply)
			})
		},
	}

	addQueryFlags(cmd, &flags)

	return cmd
}

func runQuery(cmd *cobra.Command, flags queryFlags, eval func(*handlers.QueryHandler) (*handlers.QueryResult, error)) error {
	switch flags.format {
	case "table", "csv", "json":
	default:
		return fmt.Errorf("invalid format: %s (valid: table, csv, json)", flags.format)
	}

	return withQueryHandler(cmd.Context(), func(handler *handlers.QueryHandler) error {
		result, err := eval(handler)
		if err != nil {
			return fmt.Errorf("running query: %w", err)
		}

		if err := printQueryResult(os.Stdout, result, flags.format); err != nil {
			return err
		}

		if flags.format == "table" {
			fmt.Printf("\n%d row(s), query %s\n", len(result.Rows), result.UID)
			if len(result.Changed) > 0 && !flags.apply {
				fmt.Printf("%d entities modified in the result; use --apply to save them\n", len(result.Changed))
			}
			if flags.apply {
				fmt.Printf("Applied changes to %d entities\n", result.Applied)
			}
		}
		return nil
	})
}

func printQueryResult(w io.Writer, result *handlers.QueryResult, format string) error {
	switch format {
	case "json":
		return printJSON(w, result)
	case "csv":
		writer := csv.NewWriter(w)
		if err := writer.Write(result.Fields); err != nil {
			return err
		}
		if err := writer.WriteAll(result.Rows); err != nil {
			return err
		}
		return writer.Error()
	}

	if len(result.Rows) == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(result.Fields, "\t")))
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = truncate(strings.ReplaceAll(cell, "\n", " "), 40)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func newQueryHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded queries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryHistory(cmd, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", DefaultHistoryLimit, "Maximum number of queries to list")

	return cmd
}

func runQueryHistory(cmd *cobra.Command, limit int) error {
	ctx := cmd.Context()

	return withQueryHandler(ctx, func(handler *handlers.QueryHandler) error {
		records, err := handler.HandleHistory(ctx, limit)
		if err != nil {
			return fmt.Errorf("listing query history: %w", err)
		}

		if len(records) == 0 {
			fmt.Println("No queries recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "UID\tRUN AT\tRESULTS\tQUERY")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.UID, entities.FormatTime(r.CreatedAt), len(r.ResultUIDs),
				truncate(strings.Join(strings.Fields(r.Query), " "), 60))
		}
		return w.Flush()
	})
}
