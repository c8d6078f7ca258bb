package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ersonp/casegraph/internal/domain/ports"
)

// ProjectService loads and saves the project graph as a whole.
type ProjectService struct {
	store  *GraphStore
	file   ports.ProjectFile
	logger *slog.Logger
}

// NewProjectService creates a new project service.
func NewProjectService(store *GraphStore, file ports.ProjectFile, logger *slog.Logger) *ProjectService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectService{store: store, file: file, logger: logger}
}

// Open replaces the store's graph with the saved dump. Links whose endpoints
// are missing from the dump are dropped with a warning.
func (s *ProjectService) Open(ctx context.Context) error {
	dump, err := s.file.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading project: %w", err)
	}
	if err := s.store.Load(dump); err != nil {
		s.logger.Warn("project loaded with dropped links", "project", s.store.ProjectName(), "error", err)
	}
	s.logger.Debug("project opened", "project", s.store.ProjectName(),
		"entities", len(dump.Entities), "links", len(dump.Links))
	return nil
}

// Save writes the whole graph. The store is locked only while the dump is
// taken.
func (s *ProjectService) Save(ctx context.Context) error {
	dump := s.store.Dump()
	if err := s.file.Write(ctx, dump); err != nil {
		return fmt.Errorf("writing project: %w", err)
	}
	s.logger.Debug("project saved", "project", s.store.ProjectName(),
		"entities", len(dump.Entities), "links", len(dump.Links))
	return nil
}
