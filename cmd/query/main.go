// Command query runs a single question through the query pipeline and prints
// the response as JSON. Useful for smoke-testing an index without the API
// server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/pagelore/pagelore/engine/domain"
	"github.com/pagelore/pagelore/engine/embed"
	"github.com/pagelore/pagelore/engine/rag"
	"github.com/pagelore/pagelore/engine/semantic"
	"github.com/pagelore/pagelore/pkg/cohere"
)

func main() {
	godotenv.Load()

	var (
		qdrantAddr = flag.String("qdrant", envOr("QDRANT_URL", "localhost:6334"), "Qdrant gRPC address")
		collection = flag.String("collection", envOr("QDRANT_COLLECTION", "pagelore"), "Qdrant collection name")
		topK       = flag.Int("top-k", 0, "override retrieval result count")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	question := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if question == "" {
		fmt.Fprintln(os.Stderr, `usage: query [flags] "your question"`)
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	apiKey := os.Getenv("COHERE_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "COHERE_API_KEY is not set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := semantic.New(*qdrantAddr, *collection)
	if err != nil {
		fmt.Fprintln(os.Stderr, "qdrant connect:", err)
		os.Exit(1)
	}
	defer store.Close()

	client := cohere.New(apiKey)
	gateway := embed.New(client, embed.DefaultOptions(), logger)

	opts := rag.DefaultOptions()
	opts.Model = client.ChatModel()
	opts.Temperature = client.Temperature()
	if *topK > 0 {
		opts.TopK = *topK
	}

	retriever := rag.NewRetriever(gateway, store, opts.MinChunkWords, logger)
	svc := rag.New(retriever, client, opts, logger)

	resp := svc.Query(ctx, question)

	out, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(out))

	if resp.Status == domain.StatusError {
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
