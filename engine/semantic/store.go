package semantic

import (
	"context"
	"fmt"
	"sync"

	"github.com/pagelore/pagelore/engine/domain"
	"github.com/pagelore/pagelore/pkg/fn"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// DefaultUpsertBatch is how many points go into a single upsert request.
const DefaultUpsertBatch = 10

// Store owns the Qdrant collection for document chunks.
type Store struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	upsertBatch int

	mu   sync.Mutex
	dims int // learned from EnsureCollection or Stats, 0 means unknown
}

// New creates a Store connected to Qdrant at the given gRPC address.
func New(addr string, collection string) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		upsertBatch: DefaultUpsertBatch,
	}, nil
}

// Close closes the underlying gRPC connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// EnsureCollection creates the collection if missing. If it already exists
// its dimension and distance must match the requested configuration.
func (s *Store) EnsureCollection(ctx context.Context, dims int, distance Distance) error {
	if dims <= 0 {
		return domain.NewConfigError("dims", fmt.Sprintf("%d", dims), domain.ErrInvalidDimension)
	}

	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() != s.collection {
			continue
		}
		stats, err := s.Stats(ctx)
		if err != nil {
			return err
		}
		if stats.Dimension != dims {
			return domain.NewConfigError("dims",
				fmt.Sprintf("collection has %d, requested %d", stats.Dimension, dims),
				domain.ErrInvalidDimension)
		}
		if stats.Distance != distance {
			return fmt.Errorf("semantic: collection %s uses distance %s, requested %s",
				s.collection, stats.Distance, distance)
		}
		return nil
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: distance.proto(),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", s.collection, err)
	}

	s.mu.Lock()
	s.dims = dims
	s.mu.Unlock()
	return nil
}

// DeleteCollection deletes the collection.
func (s *Store) DeleteCollection(ctx context.Context) error {
	_, err := s.collections.Delete(ctx, &pb.DeleteCollection{
		CollectionName: s.collection,
	})
	if err != nil {
		return fmt.Errorf("semantic: delete collection %s: %w", s.collection, err)
	}
	return nil
}

// Upsert writes records in batches, waiting for each write to be applied.
// Records sharing an ID with an existing point overwrite it.
func (s *Store) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	wait := true
	for _, batch := range fn.Chunk(records, s.upsertBatch) {
		points := make([]*pb.PointStruct, len(batch))
		for i, r := range batch {
			points[i] = &pb.PointStruct{
				Id: &pb.PointId{
					PointIdOptions: &pb.PointId_Uuid{Uuid: r.ID},
				},
				Vectors: &pb.Vectors{
					VectorsOptions: &pb.Vectors_Vector{
						Vector: &pb.Vector{Data: r.Vector},
					},
				},
				Payload: payloadToProto(r.Payload),
			}
		}
		_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
			CollectionName: s.collection,
			Wait:           &wait,
			Points:         points,
		})
		if err != nil {
			return fmt.Errorf("semantic: upsert %d points: %w", len(batch), err)
		}
	}
	return nil
}

// DeleteByURL removes all points for a page. Used before re-ingesting a page
// whose content changed, since changed chunks get new point IDs.
func (s *Store) DeleteByURL(ctx context.Context, url string) error {
	wait := true
	_, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{
						fieldMatch(KeyURL, url),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: delete by url %s: %w", url, err)
	}
	return nil
}

// Search performs k-NN similarity search, dropping hits below threshold.
// The query vector dimension must match the collection.
func (s *Store) Search(ctx context.Context, vector []float32, limit int, threshold float32) ([]Hit, error) {
	if limit <= 0 {
		return nil, domain.NewConfigError("limit", fmt.Sprintf("%d", limit), domain.ErrInvalidTopK)
	}
	if err := s.checkDims(ctx, len(vector)); err != nil {
		return nil, err
	}

	req := &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if threshold > 0 {
		req.ScoreThreshold = &threshold
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	hits := make([]Hit, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		hits[i] = hitFromPayload(r.GetId().GetUuid(), r.GetScore(), r.GetPayload())
	}
	return hits, nil
}

// Retrieve fetches points by ID. Hits carry score 1.0 since no similarity
// comparison happened. Missing IDs are silently absent from the result.
func (s *Store) Retrieve(ctx context.Context, ids []string) ([]Hit, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pointIDs := fn.Map(ids, func(id string) *pb.PointId {
		return &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}}
	})
	resp, err := s.points.Get(ctx, &pb.GetPoints{
		CollectionName: s.collection,
		Ids:            pointIDs,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: retrieve %d points: %w", len(ids), err)
	}

	hits := make([]Hit, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		hits[i] = hitFromPayload(r.GetId().GetUuid(), 1.0, r.GetPayload())
	}
	return hits, nil
}

// ExistsByHash reports whether any stored point carries the given content hash.
func (s *Store) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	exact := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{
		CollectionName: s.collection,
		Exact:          &exact,
		Filter: &pb.Filter{
			Must: []*pb.Condition{
				fieldMatch(KeyContentHash, hash),
			},
		},
	})
	if err != nil {
		return false, fmt.Errorf("semantic: count by hash: %w", err)
	}
	return resp.GetResult().GetCount() > 0, nil
}

// Stats returns point count, dimension, distance, and status of the collection.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	resp, err := s.collections.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: s.collection,
	})
	if err != nil {
		return Stats{}, fmt.Errorf("semantic: collection info: %w", err)
	}

	info := resp.GetResult()
	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	stats := Stats{
		PointsCount: info.GetPointsCount(),
		Dimension:   int(params.GetSize()),
		Distance:    distanceFromProto(params.GetDistance()),
		Status:      info.GetStatus().String(),
	}

	s.mu.Lock()
	s.dims = stats.Dimension
	s.mu.Unlock()
	return stats, nil
}

// checkDims fails fast when a vector does not match the collection dimension.
func (s *Store) checkDims(ctx context.Context, got int) error {
	s.mu.Lock()
	dims := s.dims
	s.mu.Unlock()

	if dims == 0 {
		stats, err := s.Stats(ctx)
		if err != nil {
			return err
		}
		dims = stats.Dimension
	}
	if got != dims {
		return domain.NewConfigError("vector",
			fmt.Sprintf("got %d dims, collection has %d", got, dims),
			domain.ErrInvalidDimension)
	}
	return nil
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}
