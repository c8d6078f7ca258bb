package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/services"
)

type syncFlags struct {
	announce     bool
	saveInterval time.Duration
}

func newSyncCmd() *cobra.Command {
	var flags syncFlags

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Keep a project in sync with peers over Redis",
		Long: `Joins the project's Redis channel, applies changes published by other
peers and publishes local ones. The graph is saved periodically and on exit.

Other casegraph commands publish their changes too when sync.enabled is set
in the config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.announce, "announce", true, "Publish the whole local graph on join so peers merge it")
	cmd.Flags().DurationVar(&flags.saveInterval, "save-interval", 30*time.Second, "How often to save received changes")

	return cmd
}

func runSync(cmd *cobra.Command, flags syncFlags) error {
	if flags.saveInterval <= 0 {
		return fmt.Errorf("save interval must be positive")
	}

	return withProject(cmd.Context(), projectOptions{live: true}, func(d *internalDeps) error {
		p := d.propagator
		applier := services.NewSyncService(d.store, d.relationalDB, d.Logger)

		if flags.announce {
			dump := d.store.Dump()
			p.PropagateDifferenceGraph(d.project, &entities.DifferenceGraph{
				Entities: dump.Entities,
				Links:    dump.Links,
			})
		}

		fmt.Printf("Syncing project %q on %s as peer %s (Ctrl+C to stop)\n", d.project, p.Channel(), p.PeerID())

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error { return p.Run(ctx) })
		g.Go(func() error { return p.Subscribe(ctx, applier) })
		g.Go(func() error { return saveLoop(ctx, d, flags.saveInterval) })

		err := g.Wait()
		if dropped := p.Dropped(); dropped > 0 {
			d.Logger.Warn("changes dropped while syncing", "dropped", dropped)
		}
		if pending := p.Pending(); pending > 0 {
			d.Logger.Warn("changes not published before exit", "pending", pending)
		}
		fmt.Println("Sync stopped.")
		return err
	})
}

// saveLoop writes the graph whenever it changed since the last tick.
func saveLoop(ctx context.Context, d *internalDeps, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	saved := d.changes.Changes()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n := d.changes.Changes()
			if n == saved {
				continue
			}
			if err := d.projectService.Save(ctx); err != nil {
				d.Logger.Error("saving project", "error", err)
				continue
			}
			saved = n
		}
	}
}
