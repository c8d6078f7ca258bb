package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectsConfig holds the project registry (read/write).
type ProjectsConfig struct {
	Projects map[string]ProjectEntry `yaml:"projects,omitempty"`
}

// ProjectEntry holds configuration for a specific project.
type ProjectEntry struct {
	Collection  string `yaml:"collection"`
	Description string `yaml:"description,omitempty"`
}

// LoadProjects loads the project registry from the .casegraph directory.
func LoadProjects(basePath string) (*ProjectsConfig, error) {
	data, err := os.ReadFile(ProjectsFilePath(basePath))
	if os.IsNotExist(err) {
		return &ProjectsConfig{
			Projects: make(map[string]ProjectEntry),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading projects file: %w", err)
	}

	var cfg ProjectsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing projects file: %w", err)
	}

	if cfg.Projects == nil {
		cfg.Projects = make(map[string]ProjectEntry)
	}

	return &cfg, nil
}

// Save writes the registry to the projects file.
func (p *ProjectsConfig) Save(basePath string) error {
	configDir := filepath.Join(basePath, DefaultConfigDir)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling projects config: %w", err)
	}

	if err := os.WriteFile(ProjectsFilePath(basePath), data, 0600); err != nil {
		return fmt.Errorf("writing projects file: %w", err)
	}

	return nil
}

// Add adds a project to the registry.
func (p *ProjectsConfig) Add(name string, entry ProjectEntry) {
	if p.Projects == nil {
		p.Projects = make(map[string]ProjectEntry)
	}
	p.Projects[name] = entry
}

// Remove removes a project from the registry.
func (p *ProjectsConfig) Remove(name string) {
	delete(p.Projects, name)
}

// Names returns the registered project names in order.
func (p *ProjectsConfig) Names() []string {
	names := make([]string, 0, len(p.Projects))
	for name := range p.Projects {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Get returns the configuration for a specific project.
func (p *ProjectsConfig) Get(name string) (*ProjectEntry, error) {
	if len(p.Projects) == 0 {
		return nil, errors.New("no projects configured")
	}

	entry, ok := p.Projects[name]
	if !ok {
		names := p.Names()
		if len(names) > 5 {
			names = append(names[:5], "...")
		}
		return nil, fmt.Errorf("project %q not found (available: %s)", name, strings.Join(names, ", "))
	}

	return &entry, nil
}

// Exists checks if a project is registered.
func (p *ProjectsConfig) Exists(name string) bool {
	_, ok := p.Projects[name]
	return ok
}
