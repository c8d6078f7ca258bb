package qdrant

import (
	"context"
	"os"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/infrastructure/config"
)

func TestPointID(t *testing.T) {
	a := PointID("entity-1").GetUuid()
	assert.Equal(t, a, PointID("entity-1").GetUuid(), "same uid, same point")
	assert.NotEqual(t, a, PointID("entity-2").GetUuid())
	assert.Len(t, a, 36)
}

func TestToPoint(t *testing.T) {
	p := toPoint(entities.EntityVector{
		UID:       "a",
		Type:      "Person",
		Primary:   "Alice",
		Embedding: []float32{0.5, 0.25},
	})

	assert.Equal(t, PointID("a").GetUuid(), p.Id.GetUuid())
	assert.Equal(t, []float32{0.5, 0.25}, p.Vectors.GetVector().Data)
	assert.Equal(t, "a", p.Payload[payloadUID].GetStringValue())
	assert.Equal(t, "Person", p.Payload[payloadType].GetStringValue())
	assert.Equal(t, "Alice", p.Payload[payloadPrimary].GetStringValue())
}

func TestScoredPointsToEntities(t *testing.T) {
	str := func(s string) *pb.Value { return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}} }
	points := []*pb.ScoredPoint{
		{Payload: map[string]*pb.Value{payloadUID: str("a"), payloadType: str("Person"), payloadPrimary: str("Alice")}, Score: 0.9},
		{Payload: map[string]*pb.Value{payloadType: str("Person")}, Score: 0.8},
	}

	hits := scoredPointsToEntities(points)
	require.Len(t, hits, 1)
	assert.Equal(t, entities.SimilarEntity{UID: "a", Type: "Person", Primary: "Alice", Score: 0.9}, hits[0])
}

func TestTypeFilter(t *testing.T) {
	f := typeFilter("Domain")
	require.Len(t, f.Must, 1)
	field := f.Must[0].GetField()
	assert.Equal(t, payloadType, field.Key)
	assert.Equal(t, "Domain", field.Match.GetKeyword())
}

// TestRepository_Live runs against a real Qdrant when INTEGRATION_TEST=1.
func TestRepository_Live(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "1" {
		t.Skip("set INTEGRATION_TEST=1 to run against a live Qdrant")
	}
	ctx := context.Background()

	repo, err := NewRepository(config.QdrantConfig{
		Host:       "localhost",
		Port:       6334,
		Collection: config.GenerateCollectionName("test_live"),
		APIKey:     os.Getenv("QDRANT_API_KEY"),
	})
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.EnsureCollection(ctx, 2))
	t.Cleanup(func() { _ = repo.DeleteCollection(context.Background()) })

	require.NoError(t, repo.SaveBatch(ctx, []entities.EntityVector{
		{UID: "a", Type: "Person", Primary: "Alice", Embedding: []float32{1, 0}},
		{UID: "b", Type: "Domain", Primary: "example.com", Embedding: []float32{0, 1}},
	}))

	hits, err := repo.Search(ctx, []float32{1, 0.1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].UID)

	hits, err = repo.SearchByType(ctx, []float32{1, 0.1}, "Domain", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].UID)

	require.NoError(t, repo.Delete(ctx, "a"))
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}
