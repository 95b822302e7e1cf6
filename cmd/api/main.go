// Package main implements the pagelore query API server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pagelore/pagelore/engine/domain"
	"github.com/pagelore/pagelore/engine/embed"
	"github.com/pagelore/pagelore/engine/rag"
	"github.com/pagelore/pagelore/engine/semantic"
	"github.com/pagelore/pagelore/pkg/cohere"
	"github.com/pagelore/pagelore/pkg/metrics"
	"github.com/pagelore/pagelore/pkg/mid"
)

var met = metrics.New()

var (
	mQueries = func(status string) *metrics.Counter {
		return met.Counter(metrics.WithLabels("pagelore_api_queries_total", "status", status), "Queries by response status")
	}
	mQueryDur = met.Histogram("pagelore_api_query_duration_seconds", "End-to-end query latency", nil)
)

// Config holds all environment-based configuration.
type Config struct {
	Port         string
	QdrantURL    string
	Collection   string
	CohereAPIKey string
	CORSOrigin   string
}

func loadConfig() Config {
	return Config{
		Port:         envOr("PORT", "8080"),
		QdrantURL:    envOr("QDRANT_URL", "localhost:6334"),
		Collection:   envOr("QDRANT_COLLECTION", "pagelore"),
		CohereAPIKey: os.Getenv("COHERE_API_KEY"),
		CORSOrigin:   envOr("CORS_ORIGIN", "*"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.CohereAPIKey == "" {
		return fmt.Errorf("COHERE_API_KEY is not set")
	}

	store, err := semantic.New(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer store.Close()

	client := cohere.New(cfg.CohereAPIKey)
	gateway := embed.New(client, embed.DefaultOptions(), logger)

	ragOpts := rag.DefaultOptions()
	ragOpts.Model = client.ChatModel()
	ragOpts.Temperature = client.Temperature()

	retriever := rag.NewRetriever(gateway, store, ragOpts.MinChunkWords, logger)
	ragSvc := rag.New(retriever, client, ragOpts, logger)

	met.CollectRuntime("pagelore_api", 15*time.Second)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth(store))
	mux.HandleFunc("POST /api/query", handleQuery(ragSvc, logger))
	mux.Handle("GET /metrics", met.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("pagelore-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// --- Handlers ---

// CollectionStats is the store surface the health handler needs.
type CollectionStats interface {
	Stats(ctx context.Context) (semantic.Stats, error)
}

func handleHealth(store CollectionStats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		out := map[string]any{"status": "ok"}
		if stats, err := store.Stats(r.Context()); err == nil {
			out["points"] = stats.PointsCount
			out["dimension"] = stats.Dimension
		} else {
			out["status"] = "degraded"
			out["detail"] = "vector store unreachable"
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(out)
	}
}

// QueryService answers user questions.
type QueryService interface {
	Query(ctx context.Context, text string) domain.AgentResponse
}

// QueryRequest is the JSON body for POST /api/query.
type QueryRequest struct {
	Query string `json:"query"`
}

func handleQuery(svc QueryService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.Query == "" {
			http.Error(w, `{"error":"query is required"}`, http.StatusBadRequest)
			return
		}

		start := time.Now()
		resp := svc.Query(r.Context(), req.Query)
		mQueryDur.Since(start)
		mQueries(string(resp.Status)).Inc()

		w.Header().Set("Content-Type", "application/json")
		if resp.Status == domain.StatusError {
			logger.Error("query failed", "query_id", resp.QueryID, "message", resp.ErrorMessage)
			w.WriteHeader(http.StatusInternalServerError)
		}
		json.NewEncoder(w).Encode(resp)
	}
}
