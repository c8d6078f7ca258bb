package ports

import (
	"context"

	"github.com/ersonp/casegraph/internal/domain/entities"
)

// VectorDB stores entity embeddings for similarity search.
type VectorDB interface {
	// SaveBatch upserts entity vectors keyed by entity UID.
	SaveBatch(ctx context.Context, vectors []entities.EntityVector) error

	// Search returns the entities closest to embedding.
	Search(ctx context.Context, embedding []float32, limit int) ([]entities.SimilarEntity, error)

	// SearchByType is Search restricted to one entity type.
	SearchByType(ctx context.Context, embedding []float32, entityType string, limit int) ([]entities.SimilarEntity, error)

	// Delete removes the vector of an entity.
	Delete(ctx context.Context, uid string) error
}
