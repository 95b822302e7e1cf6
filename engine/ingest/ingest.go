// Package ingest orchestrates the ingestion pipeline: discover pages on a
// site, extract and deduplicate their text, window and embed it, and store
// the vectors. Per-document failures are recorded and skipped; a run only
// fails when nothing could be stored, unless every page was a duplicate of
// already-stored content.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pagelore/pagelore/engine/crawler"
	"github.com/pagelore/pagelore/engine/embed"
	"github.com/pagelore/pagelore/engine/semantic"
	"github.com/pagelore/pagelore/pkg/fn"
)

// Skip reasons that are not run errors.
var (
	ErrDuplicate = errors.New("ingest: duplicate document")
	ErrOversize  = errors.New("ingest: document too large")
)

// PageSource discovers and extracts site pages.
type PageSource interface {
	Validate(ctx context.Context, root string) error
	Discover(ctx context.Context, root string) ([]string, error)
	Extract(ctx context.Context, url string) (crawler.Page, error)
}

// Embedder windows and embeds a document.
type Embedder interface {
	EmbedPieces(ctx context.Context, text string) ([]embed.Piece, error)
}

// Storage persists embedded chunks.
type Storage interface {
	Upsert(ctx context.Context, records []semantic.Record) error
	DeleteByURL(ctx context.Context, url string) error
}

// DupChecker is the advisory duplicate gate.
type DupChecker interface {
	IsDuplicate(ctx context.Context, content string) bool
}

// Deps holds the external dependencies for the ingestion pipeline.
type Deps struct {
	Source   PageSource
	Embedder Embedder
	Store    Storage
	Dedup    DupChecker // optional
	Logger   *slog.Logger
}

// Options configures a run.
type Options struct {
	// MaxDocChars skips pathologically large pages.
	MaxDocChars int
	// PreviewChars bounds the content_preview payload field.
	PreviewChars int
	// RefreshExisting deletes a page's old points before storing new ones,
	// so chunks whose text changed do not linger under stale IDs.
	RefreshExisting bool
}

// DefaultOptions returns production ingestion limits.
func DefaultOptions() Options {
	return Options{
		MaxDocChars:  500000,
		PreviewChars: 500,
	}
}

// EmbeddedPage is a page with its embedded windows.
type EmbeddedPage struct {
	Page   crawler.Page
	Pieces []embed.Piece
}

// PointID derives a deterministic UUID for a chunk from its page URL, window
// index, and a text prefix. Re-ingesting unchanged content produces the same
// IDs, so upserts overwrite instead of duplicating.
func PointID(url string, index int, text string) string {
	prefix := text
	if runes := []rune(prefix); len(runes) > 100 {
		prefix = string(runes[:100])
	}
	seed := fmt.Sprintf("%s#%d#%s", url, index, prefix)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String()
}

// --- Pipeline stages ---

// NewExtract creates a stage that fetches a page and rejects oversized bodies.
func NewExtract(src PageSource, maxChars int) fn.Stage[string, crawler.Page] {
	return func(ctx context.Context, url string) fn.Result[crawler.Page] {
		page, err := src.Extract(ctx, url)
		if err != nil {
			return fn.Err[crawler.Page](err)
		}
		if n := utf8.RuneCountInString(page.Content); maxChars > 0 && n > maxChars {
			return fn.Err[crawler.Page](fmt.Errorf("%w: %s has %d chars", ErrOversize, url, n))
		}
		return fn.Ok(page)
	}
}

// NewDedupGate creates a stage that stops duplicate documents.
func NewDedupGate(dedup DupChecker) fn.Stage[crawler.Page, crawler.Page] {
	return func(ctx context.Context, page crawler.Page) fn.Result[crawler.Page] {
		if dedup != nil && dedup.IsDuplicate(ctx, page.Content) {
			return fn.Err[crawler.Page](fmt.Errorf("%w: %s", ErrDuplicate, page.URL))
		}
		return fn.Ok(page)
	}
}

// NewEmbedStage creates a stage that windows and embeds the page content.
func NewEmbedStage(embedder Embedder) fn.Stage[crawler.Page, EmbeddedPage] {
	return func(ctx context.Context, page crawler.Page) fn.Result[EmbeddedPage] {
		pieces, err := embedder.EmbedPieces(ctx, page.Content)
		if err != nil {
			return fn.Err[EmbeddedPage](fmt.Errorf("embed %s: %w", page.URL, err))
		}
		if len(pieces) == 0 {
			return fn.Err[EmbeddedPage](fmt.Errorf("embed %s: no chunks produced", page.URL))
		}
		return fn.Ok(EmbeddedPage{Page: page, Pieces: pieces})
	}
}

// NewStoreStage creates a stage that upserts the embedded windows and returns
// how many points were stored.
func NewStoreStage(store Storage, opts Options, now func() time.Time) fn.Stage[EmbeddedPage, int] {
	return func(ctx context.Context, doc EmbeddedPage) fn.Result[int] {
		if opts.RefreshExisting {
			if err := store.DeleteByURL(ctx, doc.Page.URL); err != nil {
				return fn.Err[int](fmt.Errorf("refresh %s: %w", doc.Page.URL, err))
			}
		}

		createdAt := now().UTC().Format(time.RFC3339)
		hash := ContentHash(doc.Page.Content)
		records := make([]semantic.Record, len(doc.Pieces))
		for i, p := range doc.Pieces {
			preview := p.Text
			if runes := []rune(preview); len(runes) > opts.PreviewChars {
				preview = string(runes[:opts.PreviewChars])
			}
			records[i] = semantic.Record{
				ID:     PointID(doc.Page.URL, p.ChunkIndex, p.Text),
				Vector: p.Vector,
				Payload: map[string]any{
					semantic.KeyURL:         doc.Page.URL,
					semantic.KeyTitle:       doc.Page.Title,
					semantic.KeyContent:     p.Text,
					semantic.KeyPreview:     preview,
					semantic.KeyCreatedAt:   createdAt,
					semantic.KeyChunkIndex:  p.ChunkIndex,
					semantic.KeyContentHash: hash,
				},
			}
		}
		if err := store.Upsert(ctx, records); err != nil {
			return fn.Err[int](fmt.Errorf("store %s: %w", doc.Page.URL, err))
		}
		return fn.Ok(len(records))
	}
}

// LoggedTap returns a stage that logs entry/exit with duration.
func LoggedTap[T any](name string, log *slog.Logger) fn.Stage[T, T] {
	return func(ctx context.Context, t T) fn.Result[T] {
		log.Debug("stage.enter", "stage", name)
		start := time.Now()
		defer func() {
			log.Debug("stage.exit", "stage", name, "duration", time.Since(start))
		}()
		return fn.Ok(t)
	}
}

// Orchestrator runs the full ingestion pipeline over a site.
type Orchestrator struct {
	deps     Deps
	opts     Options
	pipeline fn.Stage[string, int]
	log      *slog.Logger
	now      func() time.Time
}

// NewOrchestrator wires the per-document pipeline:
// extract -> dedup -> embed -> store.
func NewOrchestrator(deps Deps, opts Options) *Orchestrator {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	now := time.Now

	extracted := fn.Then(LoggedTap[string]("extract", log), NewExtract(deps.Source, opts.MaxDocChars))
	deduped := fn.Then(extracted, fn.Then(LoggedTap[crawler.Page]("dedup", log), NewDedupGate(deps.Dedup)))
	embedded := fn.Then(deduped, fn.Then(LoggedTap[crawler.Page]("embed", log), NewEmbedStage(deps.Embedder)))
	stored := fn.Then(embedded, fn.Then(LoggedTap[EmbeddedPage]("store", log), NewStoreStage(deps.Store, opts, now)))

	return &Orchestrator{
		deps:     deps,
		opts:     opts,
		pipeline: fn.TracedStage("ingest.document", stored),
		log:      log,
		now:      now,
	}
}

// Run ingests every content page reachable from root. Cancellation is
// honoured between documents; the in-flight document finishes first.
func (o *Orchestrator) Run(ctx context.Context, root string) *Run {
	run := &Run{
		SourceURL: root,
		Status:    RunPending,
		StartedAt: o.now(),
	}

	if err := o.deps.Source.Validate(ctx, root); err != nil {
		return o.fail(run, fmt.Errorf("validate site: %w", err))
	}

	urls, err := o.deps.Source.Discover(ctx, root)
	if err != nil {
		return o.fail(run, fmt.Errorf("discover: %w", err))
	}
	if len(urls) == 0 {
		return o.fail(run, errors.New("discover: no content pages found"))
	}

	run.Status = RunRunning
	run.TotalDocuments = len(urls)
	o.log.Info("ingestion started", "root", root, "documents", len(urls))

	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			return o.fail(run, fmt.Errorf("run aborted: %w", err))
		}

		result := o.pipeline(ctx, url)
		stored, err := result.Unwrap()
		switch {
		case err == nil:
			run.ProcessedDocuments++
			run.ChunksCreated += stored
			run.EmbeddingsStored += stored
		case errors.Is(err, ErrDuplicate), errors.Is(err, ErrOversize):
			run.SkippedDocuments++
			o.log.Info("document skipped", "url", url, "reason", err)
		default:
			run.Errors = append(run.Errors, fmt.Sprintf("%s: %v", url, err))
			o.log.Warn("document failed", "url", url, "error", err)
		}
	}

	run.FinishedAt = o.now()
	if run.EmbeddingsStored == 0 {
		// Re-ingesting an unchanged site deduplicates every page; that is a
		// clean no-op, not a failure.
		allSkipped := run.SkippedDocuments > 0 && len(run.Errors) == 0
		if !allSkipped {
			run.Status = RunFailed
			run.Errors = append(run.Errors, "no embeddings stored")
			o.log.Error("ingestion failed", "root", root, "errors", len(run.Errors))
			return run
		}
	}

	run.Status = RunCompleted
	o.log.Info("ingestion completed",
		"root", root,
		"processed", run.ProcessedDocuments,
		"skipped", run.SkippedDocuments,
		"chunks", run.ChunksCreated,
		"errors", len(run.Errors),
	)
	return run
}

func (o *Orchestrator) fail(run *Run, err error) *Run {
	run.Status = RunFailed
	run.FinishedAt = o.now()
	run.Errors = append(run.Errors, err.Error())
	o.log.Error("ingestion failed", "root", run.SourceURL, "error", err)
	return run
}
