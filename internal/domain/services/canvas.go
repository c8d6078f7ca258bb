package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/lql"
	"github.com/ersonp/casegraph/internal/domain/ports"
)

// CanvasService manages canvas membership.
type CanvasService struct {
	store *GraphStore
	repo  ports.CanvasRepository
}

// NewCanvasService creates a new CanvasService.
func NewCanvasService(store *GraphStore, repo ports.CanvasRepository) *CanvasService {
	return &CanvasService{store: store, repo: repo}
}

// Add puts entities on a canvas, creating it if needed. Every UID must name an
// entity in the store.
func (s *CanvasService) Add(ctx context.Context, canvas string, uids []string) error {
	canvas, err := canvasName(canvas)
	if err != nil {
		return err
	}

	var missing []string
	for _, uid := range uids {
		if !s.store.IsNode(uid) {
			missing = append(missing, uid)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", entities.ErrEntityNotFound, strings.Join(missing, ", "))
	}

	if err := s.repo.AddCanvasMembers(ctx, canvas, uids); err != nil {
		return fmt.Errorf("adding to canvas %s: %w", canvas, err)
	}
	return nil
}

// Remove takes entities off a canvas. The entities stay in the store.
func (s *CanvasService) Remove(ctx context.Context, canvas string, uids []string) error {
	canvas, err := canvasName(canvas)
	if err != nil {
		return err
	}
	if err := s.repo.RemoveCanvasMembers(ctx, canvas, uids); err != nil {
		return fmt.Errorf("removing from canvas %s: %w", canvas, err)
	}
	return nil
}

// Delete drops a canvas.
func (s *CanvasService) Delete(ctx context.Context, canvas string) error {
	if err := s.repo.DeleteCanvas(ctx, canvas); err != nil {
		return fmt.Errorf("deleting canvas %s: %w", canvas, err)
	}
	return nil
}

// List returns every canvas with its members.
func (s *CanvasService) List(ctx context.Context) ([]entities.Canvas, error) {
	return s.repo.ListCanvases(ctx)
}

// Prune removes members that no longer exist in the store and returns how
// many were dropped.
func (s *CanvasService) Prune(ctx context.Context) (int, error) {
	list, err := s.repo.ListCanvases(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing canvases: %w", err)
	}

	pruned := 0
	for _, c := range list {
		var stale []string
		for _, uid := range c.Members {
			if !s.store.IsNode(uid) {
				stale = append(stale, uid)
			}
		}
		if len(stale) == 0 {
			continue
		}
		if err := s.repo.RemoveCanvasMembers(ctx, c.Name, stale); err != nil {
			return pruned, fmt.Errorf("pruning canvas %s: %w", c.Name, err)
		}
		pruned += len(stale)
	}
	return pruned, nil
}

func canvasName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch name {
	case "":
		return "", errors.New("canvas name is required")
	case lql.WholeDatabase:
		return "", fmt.Errorf("canvas name %q is reserved", name)
	}
	return name, nil
}
