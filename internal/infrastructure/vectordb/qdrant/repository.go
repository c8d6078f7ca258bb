// Package qdrant provides a VectorDB implementation using Qdrant.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/infrastructure/config"
)

// pointNamespace derives point IDs from entity UIDs, which are not
// guaranteed to be UUIDs themselves.
var pointNamespace = uuid.MustParse("6f1c3c9e-4a55-4c8e-9a4e-5b0f2b7d1c11")

// Payload keys.
const (
	payloadUID     = "uid"
	payloadType    = "type"
	payloadPrimary = "primary"
)

// Repository implements the VectorDB interface using Qdrant.
type Repository struct {
	client     pb.CollectionsClient
	points     pb.PointsClient
	collection string
	conn       *grpc.ClientConn
}

// NewRepository creates a new Qdrant repository.
func NewRepository(cfg config.QdrantConfig) (*Repository, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	opts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if cfg.APIKey != "" {
		opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	return &Repository{
		client:     pb.NewCollectionsClient(conn),
		points:     pb.NewPointsClient(conn),
		collection: cfg.Collection,
		conn:       conn,
	}, nil
}

func apiKeyInterceptor(key string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// Close closes the gRPC connection.
func (r *Repository) Close() error {
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// EnsureCollection creates the collection if it doesn't exist.
func (r *Repository) EnsureCollection(ctx context.Context, vectorSize uint64) error {
	_, err := r.client.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collection,
	})
	if err == nil {
		return nil
	}

	_, err = r.client.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     vectorSize,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	return nil
}

// DeleteCollection removes the collection and all its points.
func (r *Repository) DeleteCollection(ctx context.Context) error {
	_, err := r.client.Delete(ctx, &pb.DeleteCollection{
		CollectionName: r.collection,
	})
	if err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	return nil
}

// SaveBatch upserts entity vectors. Re-indexing an entity replaces its point.
func (r *Repository) SaveBatch(ctx context.Context, vectors []entities.EntityVector) error {
	if len(vectors) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, 0, len(vectors))
	for _, v := range vectors {
		points = append(points, toPoint(v))
	}

	_, err := r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	return nil
}

// Search performs a semantic search and returns similar entities.
func (r *Repository) Search(ctx context.Context, embedding []float32, limit int) ([]entities.SimilarEntity, error) {
	return r.search(ctx, embedding, nil, limit)
}

// SearchByType performs a semantic search filtered by entity type.
func (r *Repository) SearchByType(ctx context.Context, embedding []float32, entityType string, limit int) ([]entities.SimilarEntity, error) {
	return r.search(ctx, embedding, typeFilter(entityType), limit)
}

func (r *Repository) search(ctx context.Context, embedding []float32, filter *pb.Filter, limit int) ([]entities.SimilarEntity, error) {
	resp, err := r.points.Search(ctx, &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         embedding,
		Limit:          uint64(limit),
		Filter:         filter,
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("searching points: %w", err)
	}

	return scoredPointsToEntities(resp.Result), nil
}

// Delete removes the vector of an entity.
func (r *Repository) Delete(ctx context.Context, uid string) error {
	_, err := r.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: r.collection,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{
					Ids: []*pb.PointId{PointID(uid)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("deleting point: %w", err)
	}

	return nil
}

// Count returns the number of indexed entities.
func (r *Repository) Count(ctx context.Context) (uint64, error) {
	resp, err := r.client.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collection,
	})
	if err != nil {
		return 0, fmt.Errorf("getting collection info: %w", err)
	}

	if resp.Result.PointsCount == nil {
		return 0, nil
	}

	return *resp.Result.PointsCount, nil
}

// PointID returns the deterministic point ID of an entity UID.
func PointID(uid string) *pb.PointId {
	return &pb.PointId{
		PointIdOptions: &pb.PointId_Uuid{
			Uuid: uuid.NewSHA1(pointNamespace, []byte(uid)).String(),
		},
	}
}

func toPoint(v entities.EntityVector) *pb.PointStruct {
	return &pb.PointStruct{
		Id: PointID(v.UID),
		Vectors: &pb.Vectors{
			VectorsOptions: &pb.Vectors_Vector{
				Vector: &pb.Vector{
					Data: v.Embedding,
				},
			},
		},
		Payload: map[string]*pb.Value{
			payloadUID:     {Kind: &pb.Value_StringValue{StringValue: v.UID}},
			payloadType:    {Kind: &pb.Value_StringValue{StringValue: v.Type}},
			payloadPrimary: {Kind: &pb.Value_StringValue{StringValue: v.Primary}},
		},
	}
}

func typeFilter(entityType string) *pb.Filter {
	return &pb.Filter{
		Must: []*pb.Condition{
			{
				ConditionOneOf: &pb.Condition_Field{
					Field: &pb.FieldCondition{
						Key: payloadType,
						Match: &pb.Match{
							MatchValue: &pb.Match_Keyword{
								Keyword: entityType,
							},
						},
					},
				},
			},
		},
	}
}

// scoredPointsToEntities converts search hits, skipping points that carry no
// entity UID.
func scoredPointsToEntities(points []*pb.ScoredPoint) []entities.SimilarEntity {
	hits := make([]entities.SimilarEntity, 0, len(points))
	for _, point := range points {
		uid := getStringValue(point.Payload, payloadUID)
		if uid == "" {
			continue
		}
		hits = append(hits, entities.SimilarEntity{
			UID:     uid,
			Type:    getStringValue(point.Payload, payloadType),
			Primary: getStringValue(point.Payload, payloadPrimary),
			Score:   point.Score,
		})
	}
	return hits
}

func getStringValue(payload map[string]*pb.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}
