package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pagelore/pagelore/engine/domain"
	"github.com/pagelore/pagelore/pkg/cohere"
)

// ChunkRetriever abstracts retrieval for the service.
type ChunkRetriever interface {
	Retrieve(ctx context.Context, query string, topK int, threshold float32) ([]domain.TextChunk, error)
}

// Generator produces a grounded answer from a query and its evidence.
type Generator interface {
	Chat(ctx context.Context, message string, docs []cohere.Document, preamble string) (string, error)
}

// Options configures the query pipeline behaviour.
type Options struct {
	TopK           int
	ScoreThreshold float32
	// MinChunkWords drops retrieved chunks shorter than this many words.
	MinChunkWords int
	// CoverageScore and EntailmentScore are the heuristic confidence
	// constants applied when retrieval finds anything.
	CoverageScore   float64
	EntailmentScore float64
	Preamble        string
	// Model and Temperature are recorded in response metadata.
	Model             string
	Temperature       float64
	RetrievalTimeout  time.Duration
	GenerationTimeout time.Duration
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		TopK:              7,
		ScoreThreshold:    0.3,
		MinChunkWords:     20,
		CoverageScore:     0.8,
		EntailmentScore:   0.8,
		Preamble:          defaultPreamble,
		RetrievalTimeout:  10 * time.Second,
		GenerationTimeout: 30 * time.Second,
	}
}

const defaultPreamble = `You are a documentation assistant. Answer the user's question using ONLY
the provided documents, and cite them. If the documents do not contain the
answer, reply exactly: "I cannot find sufficient information to answer this
question."`

const conversationalAnswer = "Hello! Ask me anything about the indexed documentation and I will " +
	"answer with citations."

const insufficientMessage = "I could not find relevant information in the indexed documentation " +
	"to answer this question."

// insufficientMarker is the canonical phrase the generator emits when the
// retrieved documents do not support an answer.
const insufficientMarker = "cannot find sufficient information"

const excerptRunes = 120

// IsInsufficient reports whether generated text is the generator's own
// judgement that the evidence was not enough.
func IsInsufficient(answer string) bool {
	return strings.Contains(strings.ToLower(answer), insufficientMarker)
}

// Service runs queries end to end.
type Service struct {
	retriever ChunkRetriever
	generator Generator
	opts      Options
	log       *slog.Logger

	now   func() time.Time
	newID func() string
}

// New creates a query Service.
func New(retriever ChunkRetriever, generator Generator, opts Options, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		retriever: retriever,
		generator: generator,
		opts:      opts,
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Query answers a user question. It never returns an error: every failure
// mode maps onto a response status, with panics converted to an error
// response at the top.
func (s *Service) Query(ctx context.Context, text string) (resp domain.AgentResponse) {
	queryID := s.newID()
	start := s.now()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("query pipeline panicked", "query_id", queryID, "panic", r)
			resp, _ = domain.NewErrorResponse(queryID, fmt.Sprintf("internal failure: %v", r))
		}
	}()

	if IsLowIntent(text) {
		s.log.Info("conversational query", "query_id", queryID)
		resp, _ = domain.NewConversational(queryID, conversationalAnswer)
		return resp
	}

	retrievalCtx, cancel := context.WithTimeout(ctx, s.opts.RetrievalTimeout)
	defer cancel()
	chunks, err := s.retriever.Retrieve(retrievalCtx, text, s.opts.TopK, s.opts.ScoreThreshold)
	if err != nil {
		s.log.Error("retrieval failed", "query_id", queryID, "error", err)
		resp, _ = domain.NewErrorResponse(queryID, err.Error())
		return resp
	}
	retrieved := s.now()

	conf := Confidence(text, chunks, s.opts.CoverageScore, s.opts.EntailmentScore)

	if len(chunks) == 0 {
		s.log.Info("no grounding chunks", "query_id", queryID)
		resp, _ = domain.NewInsufficientContext(queryID, insufficientMessage, &conf,
			s.metadata(start, retrieved, s.now()))
		return resp
	}

	genCtx, cancel := context.WithTimeout(ctx, s.opts.GenerationTimeout)
	defer cancel()
	answer, err := s.generator.Chat(genCtx, text, groundingDocs(chunks), s.opts.Preamble)
	if err != nil {
		s.log.Error("generation failed", "query_id", queryID, "error", err)
		resp, _ = domain.NewErrorResponse(queryID, err.Error())
		return resp
	}
	done := s.now()
	meta := s.metadata(start, retrieved, done)

	if IsInsufficient(answer) {
		s.log.Info("generator judged context insufficient", "query_id", queryID)
		resp, _ = domain.NewInsufficientContext(queryID, answer, &conf, meta)
		return resp
	}

	resp, err = domain.NewSuccess(queryID, answer, conf, sourcesFrom(chunks), meta)
	if err != nil {
		resp, _ = domain.NewErrorResponse(queryID, err.Error())
		return resp
	}
	s.log.Info("query answered", "query_id", queryID,
		"sources", len(resp.Sources), "confidence", conf.Level)
	return resp
}

func (s *Service) metadata(start, retrieved, done time.Time) *domain.ResponseMetadata {
	return &domain.ResponseMetadata{
		Model:            s.opts.Model,
		Temperature:      s.opts.Temperature,
		RetrievalTimeMS:  float64(retrieved.Sub(start)) / float64(time.Millisecond),
		GenerationTimeMS: float64(done.Sub(retrieved)) / float64(time.Millisecond),
		TotalTimeMS:      float64(done.Sub(start)) / float64(time.Millisecond),
		Timestamp:        done.UTC(),
	}
}

// groundingDocs converts chunks into generation documents, titled by their
// section or URL.
func groundingDocs(chunks []domain.TextChunk) []cohere.Document {
	docs := make([]cohere.Document, len(chunks))
	for i, c := range chunks {
		title := c.Metadata.SectionTitle
		if title == "" {
			title = c.Metadata.URL
		}
		docs[i] = cohere.Document{Title: title, Text: c.Text}
	}
	return docs
}

// sourcesFrom assigns 1-based citations in retrieval order.
func sourcesFrom(chunks []domain.TextChunk) []domain.SourceReference {
	sources := make([]domain.SourceReference, len(chunks))
	for i, c := range chunks {
		sources[i] = domain.SourceReference{
			ChunkID:        c.ChunkID,
			CitationIndex:  i + 1,
			RelevanceScore: c.SimilarityScore,
			Excerpt:        excerpt(c.Text),
			Metadata:       c.Metadata,
		}
	}
	return sources
}

func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptRunes {
		return text
	}
	return string(runes[:excerptRunes]) + "..."
}
