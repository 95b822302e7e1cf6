// Package semantic is the sole owner of all Qdrant operations: collection
// management, point upserts, similarity search, and payload filters.
package semantic

import (
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
)

// Payload keys stored with every point.
const (
	KeyURL         = "url"
	KeyTitle       = "title"
	KeyContent     = "content"
	KeyPreview     = "content_preview"
	KeyCreatedAt   = "created_at"
	KeyChunkIndex  = "chunk_index"
	KeyContentHash = "content_hash"
)

// Distance is the similarity metric for a collection.
type Distance string

const (
	DistanceCosine Distance = "cosine"
	DistanceEuclid Distance = "euclid"
	DistanceDot    Distance = "dot"
)

// ParseDistance maps a config string to a Distance.
func ParseDistance(s string) (Distance, error) {
	switch Distance(s) {
	case DistanceCosine, DistanceEuclid, DistanceDot:
		return Distance(s), nil
	}
	return "", fmt.Errorf("semantic: unknown distance metric %q", s)
}

func (d Distance) proto() pb.Distance {
	switch d {
	case DistanceEuclid:
		return pb.Distance_Euclid
	case DistanceDot:
		return pb.Distance_Dot
	default:
		return pb.Distance_Cosine
	}
}

func distanceFromProto(d pb.Distance) Distance {
	switch d {
	case pb.Distance_Euclid:
		return DistanceEuclid
	case pb.Distance_Dot:
		return DistanceDot
	default:
		return DistanceCosine
	}
}

// Record is a point to upsert: a deterministic UUID, its vector, and payload.
type Record struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Hit is a point returned from search or retrieval with its payload flattened.
type Hit struct {
	ID          string
	Score       float32
	URL         string
	Title       string
	Content     string
	Preview     string
	CreatedAt   string
	ChunkIndex  int
	ContentHash string
}

// Stats describes the live collection.
type Stats struct {
	PointsCount uint64   `json:"points_count"`
	Dimension   int      `json:"dimension"`
	Distance    Distance `json:"distance"`
	Status      string   `json:"status"`
}

func hitFromPayload(id string, score float32, payload map[string]*pb.Value) Hit {
	h := Hit{ID: id, Score: score}
	for k, val := range payload {
		switch k {
		case KeyURL:
			h.URL = val.GetStringValue()
		case KeyTitle:
			h.Title = val.GetStringValue()
		case KeyContent:
			h.Content = val.GetStringValue()
		case KeyPreview:
			h.Preview = val.GetStringValue()
		case KeyCreatedAt:
			h.CreatedAt = val.GetStringValue()
		case KeyChunkIndex:
			h.ChunkIndex = int(val.GetIntegerValue())
		case KeyContentHash:
			h.ContentHash = val.GetStringValue()
		}
	}
	return h
}

func payloadToProto(payload map[string]any) map[string]*pb.Value {
	out := make(map[string]*pb.Value, len(payload))
	for k, val := range payload {
		switch tv := val.(type) {
		case string:
			out[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: tv}}
		case int:
			out[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
		case int64:
			out[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: tv}}
		case float64:
			out[k] = &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: tv}}
		case bool:
			out[k] = &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}
		default:
			out[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(tv)}}
		}
	}
	return out
}
