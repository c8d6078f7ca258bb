package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ersonp/casegraph/internal/application/handlers"
	"github.com/ersonp/casegraph/internal/domain/entities"
)

func newTypesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types",
		Short: "Manage entity types",
		Long:  "List, add, or remove custom entity types for this project.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTypesList(cmd)
		},
	}

	cmd.AddCommand(newTypesListCmd())
	cmd.AddCommand(newTypesAddCmd())
	cmd.AddCommand(newTypesRemoveCmd())
	cmd.AddCommand(newTypesDescribeCmd())

	return cmd
}

// withEntityTypeHandler provides access to the EntityTypeHandler.
func withEntityTypeHandler(cmd *cobra.Command, fn func(*handlers.EntityTypeHandler) error) error {
	return withInternalDeps(cmd.Context(), func(d *internalDeps) error {
		return fn(handlers.NewEntityTypeHandler(d.entityTypeService))
	})
}

func newTypesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all entity types",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTypesList(cmd)
		},
	}
}

func runTypesList(cmd *cobra.Command) error {
	ctx := cmd.Context()

	return withEntityTypeHandler(cmd, func(handler *handlers.EntityTypeHandler) error {
		types, err := handler.HandleList(ctx)
		if err != nil {
			return fmt.Errorf("listing types: %w", err)
		}

		if len(types) == 0 {
			fmt.Println("No entity types found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tPRIMARY FIELD\tDESCRIPTION\tDEFAULT")
		for i := range types {
			isDefault := ""
			if entities.IsDefaultType(types[i].Name) {
				isDefault = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", types[i].Name, types[i].PrimaryField, truncate(types[i].Description, 50), isDefault)
		}
		return w.Flush()
	})
}

type typesAddFlags struct {
	primary     string
	fields      []string
	description string
}

func newTypesAddCmd() *cobra.Command {
	var flags typesAddFlags

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a custom entity type",
		Long: `Add a new custom entity type. The primary field names and identifies
entities of the type.

Example:
  casegraph -p acme types add Vehicle --primary Plate --field Make --field Color`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTypesAdd(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.primary, "primary", "", "Primary field (required)")
	cmd.Flags().StringSliceVar(&flags.fields, "field", nil, "Additional schema field (repeatable)")
	cmd.Flags().StringVarP(&flags.description, "description", "d", "", "Type description")
	_ = cmd.MarkFlagRequired("primary")

	return cmd
}

func runTypesAdd(cmd *cobra.Command, name string, flags typesAddFlags) error {
	ctx := cmd.Context()

	return withEntityTypeHandler(cmd, func(handler *handlers.EntityTypeHandler) error {
		if err := handler.HandleAdd(ctx, name, flags.primary, flags.fields, flags.description); err != nil {
			return fmt.Errorf("adding type: %w", err)
		}

		fmt.Printf("Added entity type: %s\n", name)
		return nil
	})
}

func newTypesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a custom entity type",
		Long:  "Remove a custom entity type. Default types cannot be removed. Existing entities of the type are kept.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTypesRemove(cmd, args[0])
		},
	}
}

func runTypesRemove(cmd *cobra.Command, name string) error {
	ctx := cmd.Context()

	return withEntityTypeHandler(cmd, func(handler *handlers.EntityTypeHandler) error {
		if err := handler.HandleRemove(ctx, name); err != nil {
			return fmt.Errorf("removing type: %w", err)
		}

		fmt.Printf("Removed entity type: %s\n", name)
		return nil
	})
}

func newTypesDescribeCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "describe <name>",
		Short: "Show details about an entity type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTypesDescribe(cmd, args[0], format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, yaml")

	return cmd
}

func runTypesDescribe(cmd *cobra.Command, name, format string) error {
	ctx := cmd.Context()

	return withEntityTypeHandler(cmd, func(handler *handlers.EntityTypeHandler) error {
		et, err := handler.HandleDescribe(ctx, name)
		if err != nil {
			return fmt.Errorf("describing type: %w", err)
		}
		if et == nil {
			return fmt.Errorf("entity type %q not found", name)
		}

		if format == "yaml" {
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(et); err != nil {
				return fmt.Errorf("encoding type: %w", err)
			}
			return enc.Close()
		}

		fmt.Printf("Name:        %s\n", et.Name)
		fmt.Printf("Primary:     %s\n", et.PrimaryField)
		fmt.Printf("Fields:      %s\n", strings.Join(et.AllFields(), ", "))
		fmt.Printf("Description: %s\n", et.Description)
		fmt.Printf("Default:     %v\n", entities.IsDefaultType(et.Name))
		if !et.CreatedAt.IsZero() {
			fmt.Printf("Created:     %s\n", et.CreatedAt.Format("2006-01-02 15:04:05"))
		}

		return nil
	})
}
