// Package rag orchestrates the query pipeline. It classifies the query's
// intent, embeds it, searches the vector index for grounding chunks, asks the
// generation service for a cited answer, and maps the outcome onto the
// response status state machine.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pagelore/pagelore/engine/domain"
	"github.com/pagelore/pagelore/engine/semantic"
)

// QueryEmbedder embeds a query in search mode.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the vector index surface retrieval needs.
type Searcher interface {
	Search(ctx context.Context, vector []float32, limit int, threshold float32) ([]semantic.Hit, error)
}

// Retriever embeds queries and fetches grounding chunks from the index.
type Retriever struct {
	embedder QueryEmbedder
	search   Searcher
	minWords int
	log      *slog.Logger
}

// NewRetriever creates a Retriever. Hits whose content has fewer than
// minWords words are dropped as noise.
func NewRetriever(embedder QueryEmbedder, search Searcher, minWords int, log *slog.Logger) *Retriever {
	if log == nil {
		log = slog.Default()
	}
	return &Retriever{embedder: embedder, search: search, minWords: minWords, log: log}
}

// Retrieve returns the chunks grounding a query, in score-descending order as
// ranked by the index. Short hits are filtered out after the search, so the
// result may hold fewer than topK chunks.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, threshold float32) ([]domain.TextChunk, error) {
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("rag: embed query: %w", err)
	}

	hits, err := r.search.Search(ctx, vector, topK, threshold)
	if err != nil {
		return nil, fmt.Errorf("rag: search: %w", err)
	}

	chunks := make([]domain.TextChunk, 0, len(hits))
	for _, h := range hits {
		if len(strings.Fields(h.Content)) < r.minWords {
			continue
		}
		chunks = append(chunks, domain.TextChunk{
			ChunkID:         h.ID,
			Text:            h.Content,
			SimilarityScore: float64(h.Score),
			Metadata: domain.ChunkMetadata{
				URL:          h.URL,
				SectionTitle: h.Title,
				ChunkIndex:   h.ChunkIndex,
			},
		})
	}
	r.log.Debug("retrieval done", "hits", len(hits), "kept", len(chunks))
	return chunks, nil
}

// Confidence scores a filtered retrieval result. Retrieval quality is the
// best similarity among the chunks; coverage and entailment are heuristic
// constants applied whenever any chunk survived; lexical overlap is the
// fraction of query terms found in the retrieved text. With no chunks every
// signal is zero.
func Confidence(query string, chunks []domain.TextChunk, coverage, entailment float64) domain.ConfidenceScore {
	if len(chunks) == 0 {
		return domain.ScoreConfidence(0, 0, 0, 0)
	}

	var best float64
	var corpus strings.Builder
	for _, c := range chunks {
		if c.SimilarityScore > best {
			best = c.SimilarityScore
		}
		corpus.WriteString(c.Text)
		corpus.WriteByte(' ')
	}

	return domain.ScoreConfidence(best, coverage, entailment, lexicalOverlap(query, corpus.String()))
}

// lexicalOverlap returns the fraction of distinct query terms that appear in
// the text, both sides lowercased.
func lexicalOverlap(query, text string) float64 {
	queryTerms := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(query)) {
		queryTerms[strings.Trim(w, "?.,!;:'\"")] = struct{}{}
	}
	delete(queryTerms, "")
	if len(queryTerms) == 0 {
		return 0
	}

	textTerms := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		textTerms[strings.Trim(w, "?.,!;:'\"")] = struct{}{}
	}

	found := 0
	for term := range queryTerms {
		if _, ok := textTerms[term]; ok {
			found++
		}
	}
	return float64(found) / float64(len(queryTerms))
}
