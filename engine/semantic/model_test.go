package semantic

import (
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
)

func TestPayloadToProtoTypes(t *testing.T) {
	p := payloadToProto(map[string]any{
		"url":         "https://docs.example.com/install",
		"chunk_index": 3,
		"score":       0.5,
		"archived":    true,
	})

	if p["url"].GetStringValue() != "https://docs.example.com/install" {
		t.Error("string payload")
	}
	if p["chunk_index"].GetIntegerValue() != 3 {
		t.Error("int payload")
	}
	if p["score"].GetDoubleValue() != 0.5 {
		t.Error("float payload")
	}
	if !p["archived"].GetBoolValue() {
		t.Error("bool payload")
	}
}

func TestHitFromPayloadFlattens(t *testing.T) {
	payload := map[string]*pb.Value{
		KeyURL:         {Kind: &pb.Value_StringValue{StringValue: "https://docs.example.com"}},
		KeyTitle:       {Kind: &pb.Value_StringValue{StringValue: "Install Guide"}},
		KeyContent:     {Kind: &pb.Value_StringValue{StringValue: "Run the installer."}},
		KeyPreview:     {Kind: &pb.Value_StringValue{StringValue: "Run the"}},
		KeyChunkIndex:  {Kind: &pb.Value_IntegerValue{IntegerValue: 2}},
		KeyContentHash: {Kind: &pb.Value_StringValue{StringValue: "abc123"}},
	}

	h := hitFromPayload("id-1", 0.87, payload)
	if h.ID != "id-1" || h.Score != 0.87 {
		t.Errorf("id/score: %+v", h)
	}
	if h.URL == "" || h.Title != "Install Guide" || h.ChunkIndex != 2 || h.ContentHash != "abc123" {
		t.Errorf("payload not flattened: %+v", h)
	}
}

func TestParseDistance(t *testing.T) {
	for _, s := range []string{"cosine", "euclid", "dot"} {
		if _, err := ParseDistance(s); err != nil {
			t.Errorf("ParseDistance(%q): %v", s, err)
		}
	}
	if _, err := ParseDistance("manhattan"); err == nil {
		t.Error("unknown metric should error")
	}
}

func TestDistanceProtoRoundTrip(t *testing.T) {
	for _, d := range []Distance{DistanceCosine, DistanceEuclid, DistanceDot} {
		if got := distanceFromProto(d.proto()); got != d {
			t.Errorf("round trip %s -> %s", d, got)
		}
	}
}
