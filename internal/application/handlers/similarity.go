package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/ports"
	"github.com/ersonp/casegraph/internal/domain/services"
)

// SimilarityHandler handles the semantic index.
type SimilarityHandler struct {
	service    *services.SimilarityService
	collection ports.CollectionManager
	vectorSize uint64
}

// NewSimilarityHandler creates a new SimilarityHandler. The collection is
// created on first index with vectors of vectorSize.
func NewSimilarityHandler(service *services.SimilarityService, collection ports.CollectionManager, vectorSize uint64) *SimilarityHandler {
	return &SimilarityHandler{
		service:    service,
		collection: collection,
		vectorSize: vectorSize,
	}
}

// HandleIndex embeds every entity of the project. With rebuild set the
// collection is dropped first so entities deleted since the last index
// disappear from results.
func (h *SimilarityHandler) HandleIndex(ctx context.Context, rebuild bool) (int, error) {
	if rebuild {
		if err := h.collection.DeleteCollection(ctx); err != nil {
			return 0, fmt.Errorf("dropping collection: %w", err)
		}
	}
	if err := h.collection.EnsureCollection(ctx, h.vectorSize); err != nil {
		return 0, fmt.Errorf("creating collection: %w", err)
	}
	return h.service.Index(ctx)
}

// HandleSearch returns the entities closest to text, optionally of one type.
func (h *SimilarityHandler) HandleSearch(ctx context.Context, text, entityType string, limit int) ([]entities.SimilarEntity, error) {
	if limit <= 0 {
		limit = services.DefaultSearchLimit
	}
	if entityType != "" {
		return h.service.SearchByType(ctx, text, entityType, limit)
	}
	return h.service.Search(ctx, text, limit)
}

// HandleForget removes an entity's vector from the index.
func (h *SimilarityHandler) HandleForget(ctx context.Context, uid string) error {
	return h.service.Forget(ctx, uid)
}
