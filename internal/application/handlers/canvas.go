package handlers

import (
	"context"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/services"
)

// CanvasHandler handles canvas membership.
type CanvasHandler struct {
	service *services.CanvasService
}

// NewCanvasHandler creates a new CanvasHandler.
func NewCanvasHandler(service *services.CanvasService) *CanvasHandler {
	return &CanvasHandler{service: service}
}

// HandleAdd adds entities to a canvas, creating it if needed.
func (h *CanvasHandler) HandleAdd(ctx context.Context, canvas string, uids []string) error {
	return h.service.Add(ctx, canvas, uids)
}

// HandleRemove removes entities from a canvas.
func (h *CanvasHandler) HandleRemove(ctx context.Context, canvas string, uids []string) error {
	return h.service.Remove(ctx, canvas, uids)
}

// HandleDelete removes a canvas.
func (h *CanvasHandler) HandleDelete(ctx context.Context, canvas string) error {
	return h.service.Delete(ctx, canvas)
}

// HandleList returns every canvas after dropping members that no longer
// exist in the graph.
func (h *CanvasHandler) HandleList(ctx context.Context) ([]entities.Canvas, error) {
	if _, err := h.service.Prune(ctx); err != nil {
		return nil, err
	}
	return h.service.List(ctx)
}
