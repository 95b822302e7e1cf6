// Package embed wraps the embedding API behind batching, rate limiting, and
// retry. Both pipelines go through the Gateway: documents at ingestion time
// and queries at question time.
package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pagelore/pagelore/engine/chunk"
	"github.com/pagelore/pagelore/pkg/cohere"
	"github.com/pagelore/pagelore/pkg/fn"
	"github.com/pagelore/pagelore/pkg/resilience"
)

// Client is the embedding backend.
type Client interface {
	Embed(ctx context.Context, texts []string, inputType cohere.InputType) ([][]float32, error)
}

// Options configures the Gateway.
type Options struct {
	// MaxBatch is the API's per-request text limit.
	MaxBatch int
	// MaxItemChars is the API's per-text character limit.
	MaxItemChars int
	// ChunkSize and ChunkOverlap control document windowing in EmbedPieces.
	ChunkSize    int
	ChunkOverlap int
	// RequestsPerMinute caps API calls over a sliding minute.
	RequestsPerMinute int
	Retry             fn.RetryOpts
}

// DefaultOptions returns the production limits for the Cohere embed API.
func DefaultOptions() Options {
	return Options{
		MaxBatch:          96,
		MaxItemChars:      40000,
		ChunkSize:         chunk.DefaultSize,
		ChunkOverlap:      chunk.DefaultOverlap,
		RequestsPerMinute: 60,
		Retry: fn.RetryOpts{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     30 * time.Second,
			Jitter:      true,
			RetryIf:     cohere.IsTransient,
		},
	}
}

// Piece is one embedded window of a document.
type Piece struct {
	ChunkIndex int
	Text       string
	Vector     []float32
}

// Gateway batches and rate-limits embedding calls.
type Gateway struct {
	client Client
	window *resilience.Window
	opts   Options
	log    *slog.Logger
}

// New creates a Gateway around the given embedding client.
func New(client Client, opts Options, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{
		client: client,
		window: resilience.NewWindow(opts.RequestsPerMinute, time.Minute),
		opts:   opts,
		log:    log,
	}
}

// Embed returns one vector per non-blank input text, in input order. Blank
// texts are dropped, so the result may be shorter than the input. Texts over
// the per-item limit are rejected; chunk documents with EmbedPieces instead.
func (g *Gateway) Embed(ctx context.Context, texts []string, inputType cohere.InputType) ([][]float32, error) {
	kept := fn.Filter(texts, func(t string) bool {
		return strings.TrimSpace(t) != ""
	})
	if len(kept) == 0 {
		return nil, nil
	}
	for i, t := range kept {
		if utf8.RuneCountInString(t) > g.opts.MaxItemChars {
			return nil, fmt.Errorf("embed: text %d has %d chars, limit %d", i, utf8.RuneCountInString(t), g.opts.MaxItemChars)
		}
	}

	var vectors [][]float32
	for _, batch := range fn.Chunk(kept, g.opts.MaxBatch) {
		batch := batch
		// Each attempt consumes a rate-window slot, so retries after a 429
		// still respect the per-minute cap.
		result := fn.Retry(ctx, g.opts.Retry, func(ctx context.Context) fn.Result[[][]float32] {
			if err := g.window.Wait(ctx); err != nil {
				return fn.Err[[][]float32](fmt.Errorf("rate limit wait: %w", err))
			}
			return fn.FromPair(g.client.Embed(ctx, batch, inputType))
		})
		vecs, err := result.Unwrap()
		if err != nil {
			return nil, fmt.Errorf("embed: batch of %d: %w", len(batch), err)
		}
		vectors = append(vectors, vecs...)
	}

	g.log.Debug("embedded texts", "count", len(vectors), "input_type", string(inputType))
	return vectors, nil
}

// EmbedQuery embeds a single query string in search_query mode.
func (g *Gateway) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.Embed(ctx, []string{text}, cohere.InputQuery)
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed: query produced %d vectors", len(vecs))
	}
	return vecs[0], nil
}

// EmbedPieces windows a document and embeds every window in search_document
// mode. Oversized documents simply produce more windows; each piece carries
// its window index.
func (g *Gateway) EmbedPieces(ctx context.Context, text string) ([]Piece, error) {
	chunks, err := chunk.Split(text, g.opts.ChunkSize, g.opts.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("embed: chunk document: %w", err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	vectors, err := g.Embed(ctx, chunks, cohere.InputDocument)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embed: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	pieces := make([]Piece, len(chunks))
	for i, c := range chunks {
		pieces[i] = Piece{ChunkIndex: i, Text: c, Vector: vectors[i]}
	}
	return pieces, nil
}
