package ingest

import "time"

// SummarySubject is the NATS subject run summaries are published to.
const SummarySubject = "pagelore.ingest.summary"

// RunStatus tracks the lifecycle of an ingestion run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is the record of one ingestion pass over a site. A run fails when
// nothing could be stored; per-document failures are collected in Errors
// without stopping the run.
type Run struct {
	SourceURL          string    `json:"source_url"`
	Status             RunStatus `json:"status"`
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at,omitzero"`
	TotalDocuments     int       `json:"total_documents"`
	ProcessedDocuments int       `json:"processed_documents"`
	SkippedDocuments   int       `json:"skipped_documents"`
	ChunksCreated      int       `json:"chunks_created"`
	EmbeddingsStored   int       `json:"embeddings_stored"`
	Errors             []string  `json:"errors,omitempty"`
}
