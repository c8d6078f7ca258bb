package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ersonp/casegraph/internal/application/handlers"
	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/services"
	"github.com/ersonp/casegraph/internal/infrastructure/config"
	embedder "github.com/ersonp/casegraph/internal/infrastructure/embedder/openai"
	"github.com/ersonp/casegraph/internal/infrastructure/observer"
	"github.com/ersonp/casegraph/internal/infrastructure/projectfile"
	"github.com/ersonp/casegraph/internal/infrastructure/relationaldb/sqlite"
	syncredis "github.com/ersonp/casegraph/internal/infrastructure/sync/redis"
	"github.com/ersonp/casegraph/internal/infrastructure/vectordb/qdrant"
)

// Deps holds the workspace-level dependencies every command needs.
type Deps struct {
	BasePath string
	Config   *config.Config
	Projects *config.ProjectsConfig
	Logger   *slog.Logger
}

// internalDeps holds the dependencies of one opened project.
// Used internally by helper functions.
type internalDeps struct {
	Deps
	project           string
	entry             *config.ProjectEntry
	relationalDB      *sqlite.Repository
	factory           *services.Factory
	store             *services.GraphStore
	entityTypeService *services.EntityTypeService
	projectService    *services.ProjectService
	changes           *observer.Counter
	propagator        *syncredis.Propagator // nil when not connected
}

// projectOptions tunes how withProject builds the store.
type projectOptions struct {
	// live requires a sync connection and leaves publishing to the caller.
	// Otherwise a connection is made only when sync is enabled in the config,
	// and queued changes are flushed once fn returns.
	live bool
}

const flushTimeout = 10 * time.Second

// withDeps loads the workspace config and calls the provided function.
func withDeps(fn func(*Deps) error) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	projects, err := config.LoadProjects(cwd)
	if err != nil {
		return fmt.Errorf("loading projects: %w", err)
	}

	return fn(&Deps{
		BasePath: cwd,
		Config:   cfg,
		Projects: projects,
		Logger:   newLogger(cfg.Log, os.Stderr),
	})
}

// withInternalDeps opens the project named by --project, runs fn and saves
// the graph when fn changed it.
func withInternalDeps(ctx context.Context, fn func(*internalDeps) error) error {
	return withProject(ctx, projectOptions{}, fn)
}

func withProject(ctx context.Context, opts projectOptions, fn func(*internalDeps) error) error {
	return withDeps(func(d *Deps) error {
		if globalProject == "" {
			return errors.New("project is required (use --project flag)")
		}

		entry, err := d.Projects.Get(globalProject)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(config.ProjectDir(d.BasePath, globalProject), 0750); err != nil {
			return fmt.Errorf("creating project directory: %w", err)
		}

		sqlitePath := d.Config.SQLite.Path
		if sqlitePath == "" {
			sqlitePath = config.SQLitePathForProject(d.BasePath, globalProject)
		}
		relationalDB, err := sqlite.NewRepository(config.SQLiteConfig{Path: sqlitePath})
		if err != nil {
			return fmt.Errorf("creating sqlite repository: %w", err)
		}
		defer func() { _ = relationalDB.Close() }()

		if err := relationalDB.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensuring sqlite schema: %w", err)
		}

		factory := services.NewFactory()
		entityTypeService := services.NewEntityTypeService(relationalDB, factory)
		if err := entityTypeService.LoadDefaults(ctx); err != nil {
			return fmt.Errorf("loading entity types: %w", err)
		}

		changes := &observer.Counter{}
		storeOpts := []services.StoreOption{
			services.WithLogger(d.Logger),
			services.WithProjectName(globalProject),
			services.WithObserver(observer.Multi{observer.NewLogObserver(d.Logger), changes}),
		}
		var propagator *syncredis.Propagator
		if opts.live || d.Config.Sync.Enabled {
			p, err := syncredis.New(d.Config.Sync, globalProject, d.Logger)
			switch {
			case err != nil && opts.live:
				return fmt.Errorf("starting sync: %w", err)
			case err != nil:
				d.Logger.Warn("sync unavailable, changes stay local", "error", err)
			default:
				propagator = p
				defer func() { _ = p.Close() }()
				storeOpts = append(storeOpts, services.WithSyncPropagator(p))
			}
		}
		store := services.NewGraphStore(factory, storeOpts...)

		file := projectfile.New(config.GraphPathForProject(d.BasePath, globalProject))
		projectService := services.NewProjectService(store, file, d.Logger)
		if err := projectService.Open(ctx); err != nil {
			return err
		}
		// Loading the saved graph is not a change.
		opened := changes.Changes()

		deps := &internalDeps{
			Deps:              *d,
			project:           globalProject,
			entry:             entry,
			relationalDB:      relationalDB,
			factory:           factory,
			store:             store,
			entityTypeService: entityTypeService,
			projectService:    projectService,
			changes:           changes,
			propagator:        propagator,
		}

		fnErr := fn(deps)
		if propagator != nil && !opts.live {
			flushPending(ctx, propagator, d.Logger)
		}
		if changes.Changes() == opened {
			return fnErr
		}
		// Save even after a failure: what fn did change is already in the store.
		// A cancelled command context must not prevent the write.
		if err := projectService.Save(context.WithoutCancel(ctx)); err != nil {
			return errors.Join(fnErr, err)
		}
		return fnErr
	})
}

// flushPending publishes the changes a one-shot command made.
func flushPending(ctx context.Context, p *syncredis.Propagator, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()

	n, err := p.Flush(ctx)
	if err != nil {
		logger.Warn("publishing changes to peers", "sent", n, "unsent", p.Pending(), "error", err)
		return
	}
	logger.Debug("published changes to peers", "sent", n, "channel", p.Channel())
}

// primaryFunc names an entity by the value of its type's primary field.
type primaryFunc func(*entities.Entity) string

// withEntityHandler provides access to the EntityHandler for entity commands.
func withEntityHandler(ctx context.Context, fn func(*handlers.EntityHandler, primaryFunc) error) error {
	return withInternalDeps(ctx, func(d *internalDeps) error {
		handler := handlers.NewEntityHandler(
			services.NewEntityService(d.store),
			services.NewLinkService(d.store),
		)
		return fn(handler, d.store.PrimaryValue)
	})
}

// withLinkHandler provides access to the LinkHandler for link commands.
func withLinkHandler(ctx context.Context, fn func(*handlers.LinkHandler) error) error {
	return withInternalDeps(ctx, func(d *internalDeps) error {
		return fn(handlers.NewLinkHandler(services.NewLinkService(d.store)))
	})
}

// withCanvasHandler provides access to the CanvasHandler for canvas commands.
func withCanvasHandler(ctx context.Context, fn func(*handlers.CanvasHandler) error) error {
	return withInternalDeps(ctx, func(d *internalDeps) error {
		return fn(handlers.NewCanvasHandler(services.NewCanvasService(d.store, d.relationalDB)))
	})
}

// withQueryHandler provides access to the QueryHandler for query commands.
func withQueryHandler(ctx context.Context, fn func(*handlers.QueryHandler) error) error {
	return withInternalDeps(ctx, func(d *internalDeps) error {
		queryService := services.NewQueryService(d.store, d.factory, d.relationalDB, d.Logger)
		return fn(handlers.NewQueryHandler(queryService))
	})
}

// withImportHandler creates an ImportHandler and calls the provided function.
func withImportHandler(ctx context.Context, fn func(*handlers.ImportHandler) error) error {
	return withInternalDeps(ctx, func(d *internalDeps) error {
		importService := services.NewImportService(d.store, d.factory, d.relationalDB, d.Logger)
		return fn(handlers.NewImportHandler(importService))
	})
}

// withSimilarityHandler connects the embedder and the project's vector
// collection.
func withSimilarityHandler(ctx context.Context, fn func(*handlers.SimilarityHandler) error) error {
	return withInternalDeps(ctx, func(d *internalDeps) error {
		emb, err := embedder.NewEmbedder(d.Config.Embedder)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}

		repo, err := newCollectionRepository(d.Config, d.entry.Collection)
		if err != nil {
			return err
		}
		defer func() { _ = repo.Close() }()

		service := services.NewSimilarityService(d.store, emb, repo)
		return fn(handlers.NewSimilarityHandler(service, repo, emb.VectorSize()))
	})
}

// newCollectionRepository opens qdrant on the given collection.
func newCollectionRepository(cfg *config.Config, collection string) (*qdrant.Repository, error) {
	qdrantCfg := cfg.Qdrant
	qdrantCfg.Collection = collection

	repo, err := qdrant.NewRepository(qdrantCfg)
	if err != nil {
		return nil, fmt.Errorf("creating qdrant repository: %w", err)
	}
	return repo, nil
}
