package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ersonp/casegraph/internal/application/handlers"
	"github.com/ersonp/casegraph/internal/domain/ports"
	"github.com/ersonp/casegraph/internal/infrastructure/config"
	embedder "github.com/ersonp/casegraph/internal/infrastructure/embedder/openai"
)

func newProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage projects",
		RunE:  runProjectsList,
	}

	cmd.AddCommand(
		newProjectsListCmd(),
		newProjectsCreateCmd(),
		newProjectsDeleteCmd(),
	)

	return cmd
}

func newProjectsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all projects",
		Args:  cobra.NoArgs,
		RunE:  runProjectsList,
	}
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	projects, err := handlers.NewProjectHandler(cwd).HandleList()
	if err != nil {
		return fmt.Errorf("listing projects: %w", err)
	}

	if len(projects) == 0 {
		fmt.Println("No projects configured.")
		fmt.Println("Use 'casegraph projects create NAME' to create a project.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCOLLECTION\tDESCRIPTION")
	for _, p := range projects {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.Collection, truncate(p.Description, 50))
	}
	return w.Flush()
}

func newProjectsCreateCmd() *cobra.Command {
	var (
		description string
		index       bool
	)

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectsCreate(cmd, args[0], description, index)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Project description")
	cmd.Flags().BoolVar(&index, "index", false, "Also create the project's vector collection in Qdrant")

	return cmd
}

func runProjectsCreate(cmd *cobra.Command, name, description string, index bool) error {
	ctx := cmd.Context()

	return withDeps(func(d *Deps) error {
		handler := handlers.NewProjectHandler(d.BasePath)

		var indexer ports.CollectionManager
		if index {
			repo, err := newCollectionRepository(d.Config, config.GenerateCollectionName(name))
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()
			indexer = repo
		}

		info, err := handler.HandleCreate(ctx, name, description, indexer, embedder.VectorSizeFor(d.Config.Embedder.Model))
		if err != nil {
			return fmt.Errorf("creating project: %w", err)
		}

		fmt.Printf("Created project %q in %s\n", info.Name, info.Dir)
		if index {
			fmt.Printf("Created collection %s\n", info.Collection)
		}
		return nil
	})
}

func newProjectsDeleteCmd() *cobra.Command {
	var (
		force bool
		index bool
	)

	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a project and its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectsDelete(cmd, args[0], force, index)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation")
	cmd.Flags().BoolVar(&index, "index", false, "Also drop the project's vector collection")

	return cmd
}

func runProjectsDelete(cmd *cobra.Command, name string, force, index bool) error {
	ctx := cmd.Context()

	if !force {
		fmt.Printf("This will delete project %q with its graph, canvases and query history.\n", name)
		if !confirm("Continue?") {
			fmt.Println("Aborted.")
			return nil
		}
	}

	return withDeps(func(d *Deps) error {
		handler := handlers.NewProjectHandler(d.BasePath)

		var indexer ports.CollectionManager
		if index {
			entry, err := d.Projects.Get(name)
			if err != nil {
				return err
			}
			repo, err := newCollectionRepository(d.Config, entry.Collection)
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()
			indexer = repo
		}

		if err := handler.HandleDelete(ctx, name, indexer); err != nil {
			return fmt.Errorf("deleting project: %w", err)
		}

		fmt.Printf("Deleted project %q\n", name)
		return nil
	})
}
