package handlers

import (
	"context"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/services"
)

// EntityTypeHandler handles entity type operations.
type EntityTypeHandler struct {
	service *services.EntityTypeService
}

// NewEntityTypeHandler creates a new EntityTypeHandler.
func NewEntityTypeHandler(service *services.EntityTypeService) *EntityTypeHandler {
	return &EntityTypeHandler{
		service: service,
	}
}

// HandleList returns all entity types.
func (h *EntityTypeHandler) HandleList(ctx context.Context) ([]entities.EntityType, error) {
	return h.service.List(ctx)
}

// HandleAdd creates a new custom entity type.
func (h *EntityTypeHandler) HandleAdd(ctx context.Context, name, primaryField string, fields []string, description string) error {
	return h.service.Add(ctx, name, primaryField, fields, description)
}

// HandleRemove deletes a custom entity type.
func (h *EntityTypeHandler) HandleRemove(ctx context.Context, name string) error {
	return h.service.Remove(ctx, name)
}

// HandleDescribe returns details about a specific entity type.
func (h *EntityTypeHandler) HandleDescribe(ctx context.Context, name string) (*entities.EntityType, error) {
	return h.service.Get(ctx, name)
}
