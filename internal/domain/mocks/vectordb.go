package mocks

import (
	"context"

	"github.com/ersonp/casegraph/internal/domain/entities"
)

// VectorDB is a mock implementation of ports.VectorDB.
type VectorDB struct {
	Vectors map[string]entities.EntityVector
	Hits    []entities.SimilarEntity
	Err     error

	EnsureCollectionErr error

	// Call tracking
	EnsureCollectionCallCount int
	DeleteCollectionCallCount int
	SaveBatchCallCount        int
	SaveBatchLast             []entities.EntityVector
	SearchCallCount           int
	LastSearchType            string
	DeletedUIDs               []string
}

// SaveBatch stores vectors by UID.
func (m *VectorDB) SaveBatch(ctx context.Context, vectors []entities.EntityVector) error {
	m.SaveBatchCallCount++
	m.SaveBatchLast = vectors
	if m.Err != nil {
		return m.Err
	}
	if m.Vectors == nil {
		m.Vectors = make(map[string]entities.EntityVector)
	}
	for _, v := range vectors {
		m.Vectors[v.UID] = v
	}
	return nil
}

// Search returns the configured hits.
func (m *VectorDB) Search(ctx context.Context, embedding []float32, limit int) ([]entities.SimilarEntity, error) {
	return m.SearchByType(ctx, embedding, "", limit)
}

// SearchByType returns the configured hits of the given type.
func (m *VectorDB) SearchByType(ctx context.Context, embedding []float32, entityType string, limit int) ([]entities.SimilarEntity, error) {
	m.SearchCallCount++
	m.LastSearchType = entityType
	if m.Err != nil {
		return nil, m.Err
	}
	var result []entities.SimilarEntity
	for _, hit := range m.Hits {
		if entityType != "" && hit.Type != entityType {
			continue
		}
		if limit > 0 && len(result) >= limit {
			break
		}
		result = append(result, hit)
	}
	return result, nil
}

// Delete removes a vector.
func (m *VectorDB) Delete(ctx context.Context, uid string) error {
	m.DeletedUIDs = append(m.DeletedUIDs, uid)
	if m.Err != nil {
		return m.Err
	}
	delete(m.Vectors, uid)
	return nil
}

// EnsureCollection implements ports.CollectionManager.
func (m *VectorDB) EnsureCollection(ctx context.Context, vectorSize uint64) error {
	m.EnsureCollectionCallCount++
	return m.EnsureCollectionErr
}

// DeleteCollection implements ports.CollectionManager.
func (m *VectorDB) DeleteCollection(ctx context.Context) error {
	m.DeleteCollectionCallCount++
	return m.Err
}
