// Package handlers contains application use case handlers.
package handlers

import (
	"fmt"

	"github.com/ersonp/casegraph/internal/infrastructure/config"
)

// InitHandler handles workspace initialization.
type InitHandler struct{}

// NewInitHandler creates a new init handler.
func NewInitHandler() *InitHandler {
	return &InitHandler{}
}

// InitResult contains the result of initialization.
type InitResult struct {
	ConfigPath   string
	ProjectsPath string
}

// Handle writes the default configuration and an empty project registry.
func (h *InitHandler) Handle(basePath string) (*InitResult, error) {
	if config.Exists(basePath) {
		return nil, fmt.Errorf("casegraph already initialized in %s", basePath)
	}

	if err := config.WriteDefault(basePath); err != nil {
		return nil, fmt.Errorf("writing default config: %w", err)
	}

	projects, err := config.LoadProjects(basePath)
	if err != nil {
		return nil, fmt.Errorf("loading projects: %w", err)
	}
	if err := projects.Save(basePath); err != nil {
		return nil, fmt.Errorf("writing projects: %w", err)
	}

	return &InitResult{
		ConfigPath:   config.ConfigFilePath(basePath),
		ProjectsPath: config.ProjectsFilePath(basePath),
	}, nil
}
