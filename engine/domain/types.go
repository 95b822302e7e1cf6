// Package domain defines the core types exchanged between the ingestion and
// query pipelines: retrieved chunks, citations, confidence scores, and the
// agent response with its status state machine.
package domain

import "time"

// ResponseStatus is the terminal state of a query.
type ResponseStatus string

const (
	StatusSuccess             ResponseStatus = "success"
	StatusConversational      ResponseStatus = "conversational"
	StatusInsufficientContext ResponseStatus = "insufficient_context"
	StatusError               ResponseStatus = "error"
)

// Query is a user question entering the query pipeline.
type Query struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ChunkMetadata carries provenance for a stored chunk.
type ChunkMetadata struct {
	URL          string `json:"url,omitempty"`
	SectionTitle string `json:"section_title,omitempty"`
	ChunkIndex   int    `json:"chunk_index"`
}

// TextChunk is a retrieved passage with its similarity score.
type TextChunk struct {
	ChunkID         string        `json:"chunk_id"`
	Text            string        `json:"text"`
	SimilarityScore float64       `json:"similarity_score"`
	Metadata        ChunkMetadata `json:"metadata"`
}

// SourceReference is a citation backing an answer. CitationIndex is 1-based
// and assigned in retrieval order.
type SourceReference struct {
	ChunkID        string        `json:"chunk_id"`
	CitationIndex  int           `json:"citation_index"`
	RelevanceScore float64       `json:"relevance_score"`
	Excerpt        string        `json:"excerpt"`
	Metadata       ChunkMetadata `json:"metadata"`
}

// ResponseMetadata records how an answer was produced.
type ResponseMetadata struct {
	Model            string    `json:"model,omitempty"`
	Temperature      float64   `json:"temperature,omitempty"`
	RetrievalTimeMS  float64   `json:"retrieval_time_ms"`
	GenerationTimeMS float64   `json:"generation_time_ms"`
	TotalTimeMS      float64   `json:"total_time_ms"`
	Timestamp        time.Time `json:"timestamp"`
}

// AgentResponse is the terminal result of a query. Exactly one status applies;
// use the New* constructors, which enforce the per-status field invariants.
type AgentResponse struct {
	QueryID      string            `json:"query_id"`
	Status       ResponseStatus    `json:"status"`
	Answer       string            `json:"answer,omitempty"`
	Confidence   *ConfidenceScore  `json:"confidence,omitempty"`
	Sources      []SourceReference `json:"sources,omitempty"`
	Metadata     *ResponseMetadata `json:"metadata,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
}
