package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ersonp/casegraph/internal/application/handlers"
	"github.com/ersonp/casegraph/internal/domain/entities"
)

type entitiesListFlags struct {
	entityType string
	search     string
	limit      int
	offset     int
	format     string
}

func newEntitiesCmd() *cobra.Command {
	var flags entitiesListFlags

	cmd := &cobra.Command{
		Use:   "entities",
		Short: "List and edit entities in a project",
		Long: `List all entities in a project, or add, show, update and delete them.

Examples:
  casegraph -p acme entities
  casegraph -p acme entities --type Person
  casegraph -p acme entities --search "smith"
  casegraph -p acme entities add Person "Full Name=Alice Smith"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntitiesList(cmd, flags)
		},
	}

	addListFlags(cmd, &flags)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntitiesList(cmd, flags)
		},
	}
	addListFlags(listCmd, &flags)

	cmd.AddCommand(
		listCmd,
		newEntitiesAddCmd(),
		newEntitiesShowCmd(),
		newEntitiesSetCmd(),
		newEntitiesDeleteCmd(),
	)

	return cmd
}

func addListFlags(cmd *cobra.Command, flags *entitiesListFlags) {
	cmd.Flags().StringVarP(&flags.entityType, "type", "t", "", "Only list entities of this type")
	cmd.Flags().StringVar(&flags.search, "search", "", "Search entities by field value")
	cmd.Flags().IntVar(&flags.limit, "limit", DefaultListLimit, "Maximum number of entities to return")
	cmd.Flags().IntVar(&flags.offset, "offset", 0, "Number of entities to skip")
	cmd.Flags().StringVar(&flags.format, "format", "table", "Output format: table, json")
}

func runEntitiesList(cmd *cobra.Command, flags entitiesListFlags) error {
	if flags.format != "table" && flags.format != "json" {
		return fmt.Errorf("invalid format: %s (valid: table, json)", flags.format)
	}

	return withEntityHandler(cmd.Context(), func(handler *handlers.EntityHandler, primary primaryFunc) error {
		var result *handlers.EntityListResult
		if flags.search != "" {
			result = handler.HandleSearch(flags.search, flags.limit)
		} else {
			result = handler.HandleList(flags.entityType, flags.limit, flags.offset)
		}

		if flags.format == "json" {
			return printJSON(os.Stdout, result)
		}

		if len(result.Entities) == 0 {
			fmt.Println("No entities found.")
			return nil
		}

		fmt.Printf("Entities (%d of %d):\n\n", len(result.Entities), result.Total)
		return printEntityTable(result.Entities, primary)
	})
}

func printEntityTable(es []*entities.Entity, primary primaryFunc) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "UID\tTYPE\tPRIMARY\tEDITED")
	for _, e := range es {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.UID, e.Type, truncate(primary(e), 50), entities.FormatTime(e.DateLastEdited))
	}
	return w.Flush()
}

func newEntitiesAddCmd() *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "add TYPE KEY=VALUE...",
		Short: "Add an entity",
		Long: `Adds an entity of the given type. The type's primary field is required.
Adding an entity whose primary value already exists updates that entity.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntitiesAdd(cmd, args[0], args[1:], notes)
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")

	return cmd
}

func runEntitiesAdd(cmd *cobra.Command, entityType string, args []string, notes string) error {
	fields, err := parseFields(args)
	if err != nil {
		return err
	}

	return withEntityHandler(cmd.Context(), func(handler *handlers.EntityHandler, primary primaryFunc) error {
		e, err := handler.HandleCreate(entityType, fields, notes)
		if err != nil {
			return fmt.Errorf("adding entity: %w", err)
		}

		fmt.Printf("Saved %s %q (%s)\n", e.Type, primary(e), e.UID)
		return nil
	})
}

func newEntitiesShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show UID",
		Short: "Show an entity with its links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntitiesShow(cmd, args[0], format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json")

	return cmd
}

func runEntitiesShow(cmd *cobra.Command, uid, format string) error {
	return withEntityHandler(cmd.Context(), func(handler *handlers.EntityHandler, primary primaryFunc) error {
		detail, err := handler.HandleShow(uid)
		if err != nil {
			return err
		}

		if format == "json" {
			return printJSON(os.Stdout, detail)
		}

		printEntityDetail(detail)
		return nil
	})
}

func printEntityDetail(detail *handlers.EntityDetail) {
	e := detail.Entity
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, field := range e.FieldNames() {
		value, _ := e.Value(field)
		if value == "" {
			continue
		}
		fmt.Fprintf(w, "%s:\t%s\n", field, value)
	}
	_ = w.Flush()

	if len(detail.Outgoing) > 0 {
		fmt.Println("\nOutgoing:")
		for _, l := range detail.Outgoing {
			fmt.Printf("  --[%s]--> %s\n", l.Resolution, l.Key.Target)
		}
	}
	if len(detail.Incoming) > 0 {
		fmt.Println("\nIncoming:")
		for _, l := range detail.Incoming {
			fmt.Printf("  %s --[%s]-->\n", l.Key.Source, l.Resolution)
		}
	}
}

func newEntitiesSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set UID KEY=VALUE...",
		Short: "Set fields on an entity",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntitiesSet(cmd, args[0], args[1:])
		},
	}
}

func runEntitiesSet(cmd *cobra.Command, uid string, args []string) error {
	fields, err := parseFields(args)
	if err != nil {
		return err
	}

	return withEntityHandler(cmd.Context(), func(handler *handlers.EntityHandler, primary primaryFunc) error {
		e, err := handler.HandleUpdate(uid, fields)
		if err != nil {
			return fmt.Errorf("updating entity: %w", err)
		}

		fmt.Printf("Updated %s %q\n", e.Type, primary(e))
		return nil
	})
}

func newEntitiesDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete UID",
		Short: "Delete an entity and its links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntitiesDelete(cmd, args[0], force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation")

	return cmd
}

func runEntitiesDelete(cmd *cobra.Command, uid string, force bool) error {
	return withEntityHandler(cmd.Context(), func(handler *handlers.EntityHandler, primary primaryFunc) error {
		detail, err := handler.HandleShow(uid)
		if err != nil {
			return err
		}

		if !force {
			links := len(detail.Incoming) + len(detail.Outgoing)
			fmt.Printf("This will delete %s %q and %d link(s).\n", detail.Entity.Type, primary(detail.Entity), links)
			if !confirm("Continue?") {
				fmt.Println("Aborted.")
				return nil
			}
		}

		if err := handler.HandleDelete(uid); err != nil {
			return fmt.Errorf("deleting entity: %w", err)
		}

		fmt.Printf("Deleted %s\n", uid)
		return nil
	})
}
