// Command ingest crawls a documentation site and indexes its content into
// Qdrant: discover pages, extract text, deduplicate, chunk, embed, upsert.
// The run summary is printed as JSON and optionally published to NATS.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/pagelore/pagelore/engine/crawler"
	"github.com/pagelore/pagelore/engine/embed"
	"github.com/pagelore/pagelore/engine/ingest"
	"github.com/pagelore/pagelore/engine/semantic"
	"github.com/pagelore/pagelore/pkg/cohere"
	"github.com/pagelore/pagelore/pkg/metrics"
	"github.com/pagelore/pagelore/pkg/natsutil"
)

var met = metrics.New()

// Ingest metrics
var (
	mRunsTotal    = func(status string) *metrics.Counter { return met.Counter(metrics.WithLabels("pagelore_ingest_runs_total", "status", status), "Ingestion runs by final status") }
	mDocsTotal    = met.Counter("pagelore_ingest_docs_total", "Documents processed")
	mDocsSkipped  = met.Counter("pagelore_ingest_docs_skipped_total", "Documents skipped (duplicate, thin, oversize)")
	mDocErrors    = met.Counter("pagelore_ingest_doc_errors_total", "Documents that failed mid-pipeline")
	mChunksTotal  = met.Counter("pagelore_ingest_chunks_total", "Chunks created")
	mPointsStored = met.Counter("pagelore_ingest_points_stored_total", "Vectors upserted into Qdrant")
	mRunDur       = met.Histogram("pagelore_ingest_run_duration_seconds", "Whole-run duration", []float64{1, 5, 15, 60, 300, 900, 3600})
	mLastRun      = met.Gauge("pagelore_ingest_last_run_timestamp", "Epoch of last completed run")
)

const vectorDims = 1024 // embed-english-v3.0

func main() {
	godotenv.Load()

	var (
		siteURL     = flag.String("url", "", "root URL of the site to ingest (required)")
		qdrantAddr  = flag.String("qdrant", envOr("QDRANT_URL", "localhost:6334"), "Qdrant gRPC address")
		collection  = flag.String("collection", envOr("QDRANT_COLLECTION", "pagelore"), "Qdrant collection name")
		natsURL     = flag.String("nats", os.Getenv("NATS_URL"), "NATS server URL for run summaries (optional)")
		depth       = flag.Int("depth", 2, "crawl depth from the root URL")
		refresh     = flag.Bool("refresh", false, "delete a page's old points before storing new ones")
		metricsPort = flag.Int("metrics-port", 9091, "Prometheus metrics port")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if *siteURL == "" {
		fmt.Fprintln(os.Stderr, "usage: ingest -url https://docs.example.com [flags]")
		os.Exit(2)
	}
	apiKey := os.Getenv("COHERE_API_KEY")
	if apiKey == "" {
		logger.Error("COHERE_API_KEY is not set")
		os.Exit(1)
	}

	met.CollectRuntime("pagelore_ingest", 15*time.Second)
	met.ServeAsync(*metricsPort)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := semantic.New(*qdrantAddr, *collection)
	if err != nil {
		logger.Error("qdrant connect failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	if err := store.EnsureCollection(ctx, vectorDims, semantic.DistanceCosine); err != nil {
		logger.Error("qdrant ensure collection failed", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to Qdrant", "collection", *collection, "dims", vectorDims)

	client := cohere.New(apiKey)
	gateway := embed.New(client, embed.DefaultOptions(), logger)

	crawlOpts := crawler.DefaultOptions()
	crawlOpts.MaxDepth = *depth
	site := crawler.New(crawlOpts, logger)

	dedup := ingest.NewDeduplicator(store, client, ingest.DefaultDupThreshold, logger)

	opts := ingest.DefaultOptions()
	opts.RefreshExisting = *refresh

	orch := ingest.NewOrchestrator(ingest.Deps{
		Source:   site,
		Embedder: gateway,
		Store:    store,
		Dedup:    dedup,
		Logger:   logger,
	}, opts)

	start := time.Now()
	run := orch.Run(ctx, *siteURL)
	mRunDur.Since(start)
	mRunsTotal(string(run.Status)).Inc()
	mDocsTotal.Add(int64(run.ProcessedDocuments))
	mDocsSkipped.Add(int64(run.SkippedDocuments))
	mDocErrors.Add(int64(len(run.Errors)))
	mChunksTotal.Add(int64(run.ChunksCreated))
	mPointsStored.Add(int64(run.EmbeddingsStored))
	mLastRun.Set(time.Now().Unix())

	if *natsURL != "" {
		publishSummary(ctx, *natsURL, run, logger)
	}

	out, _ := json.MarshalIndent(run, "", "  ")
	fmt.Println(string(out))

	if run.Status != ingest.RunCompleted {
		os.Exit(1)
	}
}

// publishSummary emits the run record for downstream consumers. Failures are
// logged but never change the run's outcome.
func publishSummary(ctx context.Context, url string, run *ingest.Run, logger *slog.Logger) {
	nc, err := nats.Connect(url, nats.Name("pagelore-ingest"))
	if err != nil {
		logger.Warn("nats connect failed, skipping summary publish", "error", err)
		return
	}
	defer nc.Drain()
	if err := natsutil.Publish(ctx, nc, ingest.SummarySubject, run); err != nil {
		logger.Warn("summary publish failed", "error", err)
		return
	}
	logger.Info("run summary published", "subject", ingest.SummarySubject)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
