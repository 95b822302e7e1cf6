package embed

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pagelore/pagelore/pkg/cohere"
	"github.com/pagelore/pagelore/pkg/fn"
)

// fakeClient records batches and replays scripted errors before succeeding.
type fakeClient struct {
	batches   [][]string
	inputType cohere.InputType
	failures  []error
	dim       int
}

func (f *fakeClient) Embed(_ context.Context, texts []string, inputType cohere.InputType) ([][]float32, error) {
	f.inputType = inputType
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return nil, err
	}
	f.batches = append(f.batches, texts)
	dim := f.dim
	if dim == 0 {
		dim = 4
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, dim)
		out[i][0] = float32(i)
	}
	return out, nil
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.RequestsPerMinute = 1000
	opts.Retry.InitialWait = time.Millisecond
	opts.Retry.Jitter = false
	return opts
}

func TestEmbedBatches(t *testing.T) {
	client := &fakeClient{}
	opts := testOptions()
	opts.MaxBatch = 2
	g := New(client, opts, nil)

	vecs, err := g.Embed(context.Background(), []string{"a", "b", "c", "d", "e"}, cohere.InputDocument)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 5 {
		t.Fatalf("got %d vectors, want 5", len(vecs))
	}
	if len(client.batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(client.batches))
	}
	if len(client.batches[0]) != 2 || len(client.batches[2]) != 1 {
		t.Errorf("batch sizes: %v", fn.Map(client.batches, func(b []string) int { return len(b) }))
	}
}

func TestEmbedDropsBlankTexts(t *testing.T) {
	client := &fakeClient{}
	g := New(client, testOptions(), nil)

	vecs, err := g.Embed(context.Background(), []string{"keep", "  ", "", "\n", "also"}, cohere.InputDocument)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vecs))
	}
	if len(client.batches[0]) != 2 {
		t.Errorf("blank texts reached the API: %v", client.batches[0])
	}
}

func TestEmbedAllBlank(t *testing.T) {
	client := &fakeClient{}
	g := New(client, testOptions(), nil)

	vecs, err := g.Embed(context.Background(), []string{" ", ""}, cohere.InputDocument)
	if err != nil || vecs != nil {
		t.Fatalf("all-blank input should produce nothing, got %v %v", vecs, err)
	}
	if len(client.batches) != 0 {
		t.Error("no API call expected")
	}
}

func TestEmbedRetriesTransientErrors(t *testing.T) {
	client := &fakeClient{failures: []error{
		&cohere.APIError{StatusCode: 429, Body: "slow down"},
		&cohere.APIError{StatusCode: 503, Body: "unavailable"},
	}}
	g := New(client, testOptions(), nil)

	vecs, err := g.Embed(context.Background(), []string{"text"}, cohere.InputDocument)
	if err != nil {
		t.Fatalf("Embed should succeed after retries: %v", err)
	}
	if len(vecs) != 1 {
		t.Fatalf("got %d vectors", len(vecs))
	}
}

func TestEmbedRetriesConsumeRateSlots(t *testing.T) {
	client := &fakeClient{failures: []error{
		&cohere.APIError{StatusCode: 429, Body: "slow down"},
	}}
	g := New(client, testOptions(), nil)

	if _, err := g.Embed(context.Background(), []string{"text"}, cohere.InputDocument); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	// The failed attempt and the successful retry each count against the
	// per-minute cap.
	if got := g.window.InFlight(); got != 2 {
		t.Fatalf("window recorded %d calls, want 2", got)
	}
}

func TestEmbedDoesNotRetryPermanentErrors(t *testing.T) {
	client := &fakeClient{failures: []error{
		&cohere.APIError{StatusCode: 400, Body: "bad request"},
		&cohere.APIError{StatusCode: 400, Body: "bad request"},
	}}
	g := New(client, testOptions(), nil)

	_, err := g.Embed(context.Background(), []string{"text"}, cohere.InputDocument)
	if err == nil {
		t.Fatal("expected error")
	}
	// Only the first failure should have been consumed.
	if len(client.failures) != 1 {
		t.Fatalf("client called %d times beyond the first", 1-len(client.failures))
	}
}

func TestEmbedRejectsOversizeItem(t *testing.T) {
	client := &fakeClient{}
	opts := testOptions()
	opts.MaxItemChars = 10
	g := New(client, opts, nil)

	if _, err := g.Embed(context.Background(), []string{"this is far too long"}, cohere.InputDocument); err == nil {
		t.Fatal("oversize item should be rejected")
	}
}

func TestEmbedQueryUsesQueryMode(t *testing.T) {
	client := &fakeClient{}
	g := New(client, testOptions(), nil)

	vec, err := g.EmbedQuery(context.Background(), "how do I configure auth?")
	if err != nil {
		t.Fatalf("EmbedQuery: %v", err)
	}
	if len(vec) == 0 {
		t.Fatal("empty vector")
	}
	if client.inputType != cohere.InputQuery {
		t.Errorf("input type = %s, want search_query", client.inputType)
	}
}

func TestEmbedPiecesWindowsDocument(t *testing.T) {
	client := &fakeClient{}
	opts := testOptions()
	opts.ChunkSize = 100
	opts.ChunkOverlap = 10
	g := New(client, opts, nil)

	text := strings.Repeat("r", 250)
	pieces, err := g.EmbedPieces(context.Background(), text)
	if err != nil {
		t.Fatalf("EmbedPieces: %v", err)
	}
	if len(pieces) != 3 {
		t.Fatalf("got %d pieces, want 3", len(pieces))
	}
	for i, p := range pieces {
		if p.ChunkIndex != i {
			t.Errorf("piece %d has index %d", i, p.ChunkIndex)
		}
		if p.Text == "" || p.Vector == nil {
			t.Errorf("piece %d incomplete", i)
		}
	}
	if client.inputType != cohere.InputDocument {
		t.Errorf("input type = %s, want search_document", client.inputType)
	}
}

func TestEmbedPiecesShortDocument(t *testing.T) {
	client := &fakeClient{}
	g := New(client, testOptions(), nil)

	pieces, err := g.EmbedPieces(context.Background(), "short doc")
	if err != nil {
		t.Fatalf("EmbedPieces: %v", err)
	}
	if len(pieces) != 1 || pieces[0].Text != "short doc" {
		t.Fatalf("pieces = %+v", pieces)
	}
}

func TestEmbedPiecesBlankDocument(t *testing.T) {
	client := &fakeClient{}
	g := New(client, testOptions(), nil)

	pieces, err := g.EmbedPieces(context.Background(), "   ")
	if err != nil || pieces != nil {
		t.Fatalf("blank document: %v %v", pieces, err)
	}
}

func TestEmbedHonoursContext(t *testing.T) {
	client := &fakeClient{failures: []error{errors.New("x")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := New(client, testOptions(), nil)
	if _, err := g.Embed(ctx, []string{"a"}, cohere.InputDocument); err == nil {
		t.Fatal("cancelled context should surface an error")
	}
}
