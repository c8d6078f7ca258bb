package services

import (
	"context"
	"fmt"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/ports"
)

// DefaultSearchLimit is the default number of results to return.
const DefaultSearchLimit = 10

// indexBatchSize bounds the texts sent per embedding request.
const indexBatchSize = 64

// SimilarityService maintains a semantic index of entity primary values.
type SimilarityService struct {
	store    *GraphStore
	embedder ports.Embedder
	vectorDB ports.VectorDB
}

// NewSimilarityService creates a new similarity service.
func NewSimilarityService(store *GraphStore, embedder ports.Embedder, vectorDB ports.VectorDB) *SimilarityService {
	return &SimilarityService{
		store:    store,
		embedder: embedder,
		vectorDB: vectorDB,
	}
}

// EmbeddingText is the text embedded for an entity.
func EmbeddingText(entityType, primary string) string {
	return fmt.Sprintf("%s: %s", entityType, primary)
}

// Index embeds every entity with a primary value and returns how many were
// indexed.
func (s *SimilarityService) Index(ctx context.Context) (int, error) {
	var batch []*entities.Entity
	for _, e := range s.store.GetAllEntities() {
		if s.store.PrimaryValue(e) != "" {
			batch = append(batch, e)
		}
	}

	for start := 0; start < len(batch); start += indexBatchSize {
		end := min(start+indexBatchSize, len(batch))
		if err := s.IndexEntities(ctx, batch[start:end]); err != nil {
			return start, err
		}
	}
	return len(batch), nil
}

// IndexEntities embeds and stores the given entities.
func (s *SimilarityService) IndexEntities(ctx context.Context, es []*entities.Entity) error {
	if len(es) == 0 {
		return nil
	}

	texts := make([]string, len(es))
	for i, e := range es {
		texts[i] = EmbeddingText(e.Type, s.store.PrimaryValue(e))
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("generating embeddings: %w", err)
	}
	if len(embeddings) != len(es) {
		return fmt.Errorf("embedder returned %d embeddings for %d entities", len(embeddings), len(es))
	}

	vectors := make([]entities.EntityVector, len(es))
	for i, e := range es {
		vectors[i] = entities.EntityVector{
			UID:       e.UID,
			Type:      e.Type,
			Primary:   s.store.PrimaryValue(e),
			Embedding: embeddings[i],
		}
	}
	if err := s.vectorDB.SaveBatch(ctx, vectors); err != nil {
		return fmt.Errorf("saving vectors: %w", err)
	}
	return nil
}

// Search finds entities semantically similar to text.
func (s *SimilarityService) Search(ctx context.Context, text string, limit int) ([]entities.SimilarEntity, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("generating query embedding: %w", err)
	}

	hits, err := s.vectorDB.Search(ctx, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("searching entities: %w", err)
	}

	return hits, nil
}

// SearchByType finds similar entities of one type.
func (s *SimilarityService) SearchByType(ctx context.Context, text, entityType string, limit int) ([]entities.SimilarEntity, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("generating query embedding: %w", err)
	}

	hits, err := s.vectorDB.SearchByType(ctx, embedding, entityType, limit)
	if err != nil {
		return nil, fmt.Errorf("searching entities by type: %w", err)
	}

	return hits, nil
}

// Forget drops an entity from the index.
func (s *SimilarityService) Forget(ctx context.Context, uid string) error {
	if err := s.vectorDB.Delete(ctx, uid); err != nil {
		return fmt.Errorf("deleting vector for %s: %w", uid, err)
	}
	return nil
}
