package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/ersonp/casegraph/internal/domain/ports"
	"github.com/ersonp/casegraph/internal/infrastructure/config"
)

// ProjectHandler manages the project registry and per-project storage.
type ProjectHandler struct {
	basePath string
}

// NewProjectHandler creates a handler for the workspace at basePath.
func NewProjectHandler(basePath string) *ProjectHandler {
	return &ProjectHandler{basePath: basePath}
}

// ProjectInfo describes a registered project.
type ProjectInfo struct {
	Name        string `json:"name"`
	Collection  string `json:"collection"`
	Description string `json:"description,omitempty"`
	Dir         string `json:"dir"`
}

// HandleList returns the registered projects sorted by name.
func (h *ProjectHandler) HandleList() ([]ProjectInfo, error) {
	projects, err := config.LoadProjects(h.basePath)
	if err != nil {
		return nil, err
	}

	infos := make([]ProjectInfo, 0, len(projects.Projects))
	for _, name := range projects.Names() {
		entry := projects.Projects[name]
		infos = append(infos, ProjectInfo{
			Name:        name,
			Collection:  entry.Collection,
			Description: entry.Description,
			Dir:         config.ProjectDir(h.basePath, name),
		})
	}
	return infos, nil
}

// HandleCreate registers a project and creates its directory. When indexer
// is non-nil the project's vector collection is created too.
func (h *ProjectHandler) HandleCreate(ctx context.Context, name, description string, indexer ports.CollectionManager, vectorSize uint64) (*ProjectInfo, error) {
	if !config.Exists(h.basePath) {
		return nil, fmt.Errorf("casegraph not initialized in %s (run 'casegraph init')", h.basePath)
	}

	projects, err := config.LoadProjects(h.basePath)
	if err != nil {
		return nil, err
	}
	if projects.Exists(name) {
		return nil, fmt.Errorf("project %q already exists", name)
	}

	info := &ProjectInfo{
		Name:        name,
		Collection:  config.GenerateCollectionName(name),
		Description: description,
		Dir:         config.ProjectDir(h.basePath, name),
	}

	if err := os.MkdirAll(info.Dir, 0750); err != nil {
		return nil, fmt.Errorf("creating project directory: %w", err)
	}

	if indexer != nil {
		if err := indexer.EnsureCollection(ctx, vectorSize); err != nil {
			return nil, fmt.Errorf("creating collection: %w", err)
		}
	}

	projects.Add(name, config.ProjectEntry{Collection: info.Collection, Description: description})
	if err := projects.Save(h.basePath); err != nil {
		return nil, err
	}

	return info, nil
}

// HandleDelete unregisters a project and removes its files. When indexer is
// non-nil the project's vector collection is dropped too.
func (h *ProjectHandler) HandleDelete(ctx context.Context, name string, indexer ports.CollectionManager) error {
	projects, err := config.LoadProjects(h.basePath)
	if err != nil {
		return err
	}
	if _, err := projects.Get(name); err != nil {
		return err
	}

	if indexer != nil {
		if err := indexer.DeleteCollection(ctx); err != nil {
			return fmt.Errorf("deleting collection: %w", err)
		}
	}

	if err := os.RemoveAll(config.ProjectDir(h.basePath, name)); err != nil {
		return fmt.Errorf("removing project directory: %w", err)
	}

	projects.Remove(name)
	return projects.Save(h.basePath)
}
