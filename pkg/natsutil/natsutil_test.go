package natsutil

import (
	"encoding/json"
	"testing"

	"github.com/nats-io/nats.go"
)

type runEvent struct {
	Status string `json:"status"`
	Chunks int    `json:"chunks_created"`
}

func TestHeaderCarrierRoundTrip(t *testing.T) {
	msg := &nats.Msg{}
	carrier := (*headerCarrier)(msg)

	carrier.Set("traceparent", "00-abc-def-01")
	if got := carrier.Get("traceparent"); got != "00-abc-def-01" {
		t.Fatalf("expected traceparent, got %q", got)
	}
	if keys := carrier.Keys(); len(keys) != 1 {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestHeaderCarrierNilHeader(t *testing.T) {
	msg := &nats.Msg{}
	carrier := (*headerCarrier)(msg)

	if got := carrier.Get("missing"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if keys := carrier.Keys(); keys != nil {
		t.Fatalf("expected nil keys, got %v", keys)
	}
}

func TestEventEncoding(t *testing.T) {
	data, err := json.Marshal(runEvent{Status: "completed", Chunks: 42})
	if err != nil {
		t.Fatal(err)
	}

	var decoded runEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Status != "completed" || decoded.Chunks != 42 {
		t.Fatalf("unexpected: %+v", decoded)
	}
}
