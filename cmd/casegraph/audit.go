package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/ports"
)

var auditActions = []string{
	entities.ActionImport,
	entities.ActionMerge,
	entities.ActionQueryApply,
	entities.ActionSyncApplied,
}

type auditFlags struct {
	action  string
	subject string
	limit   int
}

func newAuditCmd() *cobra.Command {
	var flags auditFlags

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the project's audit log",
		Long: `Lists imports, merges, applied queries and sync merges, newest first.

Examples:
  casegraph -p acme audit
  casegraph -p acme audit --action merge
  casegraph -p acme audit --subject people.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.action, "action", "", "Only show this action (import, merge, query.apply, sync.apply)")
	cmd.Flags().StringVar(&flags.subject, "subject", "", "Only show entries about this subject")
	cmd.Flags().IntVar(&flags.limit, "limit", DefaultListLimit, "Maximum number of entries")

	return cmd
}

func runAudit(cmd *cobra.Command, flags auditFlags) error {
	ctx := cmd.Context()

	return withInternalDeps(ctx, func(d *internalDeps) error {
		log, err := collectAudit(ctx, d.relationalDB, flags)
		if err != nil {
			return fmt.Errorf("reading audit log: %w", err)
		}

		if len(log) == 0 {
			fmt.Println("No audit entries found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tAT\tACTION\tSUBJECT\tDETAILS")
		for _, e := range log {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.CreatedAt.Format("2006-01-02 15:04:05"),
				e.Action, truncate(e.Subject, 40), formatDetails(e.Details))
		}
		return w.Flush()
	})
}

// collectAudit reads entries for a subject or for one or all actions, newest
// first and at most flags.limit of them.
func collectAudit(ctx context.Context, log ports.AuditLog, flags auditFlags) ([]entities.AuditEntry, error) {
	var out []entities.AuditEntry

	if flags.subject != "" {
		found, err := log.FindAuditLog(ctx, flags.subject)
		if err != nil {
			return nil, err
		}
		for _, e := range found {
			if flags.action == "" || e.Action == flags.action {
				out = append(out, e)
			}
		}
	} else {
		actions := auditActions
		if flags.action != "" {
			actions = []string{flags.action}
		}
		for _, action := range actions {
			found, err := log.FindAuditLogByAction(ctx, action, flags.limit)
			if err != nil {
				return nil, err
			}
			out = append(out, found...)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if flags.limit > 0 && len(out) > flags.limit {
		out = out[:flags.limit]
	}
	return out, nil
}

func formatDetails(details map[string]any) string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s := ""
	for i, k := range keys {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%v", k, details[k])
	}
	return s
}
