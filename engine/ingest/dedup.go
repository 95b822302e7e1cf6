package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"

	"github.com/pagelore/pagelore/engine/semantic"
	"github.com/pagelore/pagelore/pkg/cohere"
)

// Dedup defaults.
const (
	// DefaultDupThreshold is the similarity above which a document counts
	// as a near-duplicate.
	DefaultDupThreshold = 0.95
	// dupProbeLimit is how many neighbours the near-dup search inspects.
	dupProbeLimit = 5
	// dupProbeChars bounds the text embedded for the near-dup probe.
	dupProbeChars = 1000
)

// DedupStore is the vector store surface the deduplicator needs.
type DedupStore interface {
	ExistsByHash(ctx context.Context, hash string) (bool, error)
	Search(ctx context.Context, vector []float32, limit int, threshold float32) ([]semantic.Hit, error)
}

// ProbeEmbedder embeds the dedup probe text.
type ProbeEmbedder interface {
	Embed(ctx context.Context, texts []string, inputType cohere.InputType) ([][]float32, error)
}

// ContentHash returns the hex SHA-256 of text with whitespace normalized, so
// formatting-only changes hash identically.
func ContentHash(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Deduplicator checks whether a document is already stored, first by exact
// content hash, then by embedding similarity. Both checks are advisory: any
// backend error is logged and treated as "not a duplicate" so ingestion
// never blocks on the dedup path.
type Deduplicator struct {
	store     DedupStore
	embedder  ProbeEmbedder
	threshold float32
	log       *slog.Logger
}

// NewDeduplicator creates a Deduplicator with the given similarity threshold.
func NewDeduplicator(store DedupStore, embedder ProbeEmbedder, threshold float32, log *slog.Logger) *Deduplicator {
	if threshold <= 0 {
		threshold = DefaultDupThreshold
	}
	if log == nil {
		log = slog.Default()
	}
	return &Deduplicator{store: store, embedder: embedder, threshold: threshold, log: log}
}

// IsDuplicate reports whether content is already present in the store.
func (d *Deduplicator) IsDuplicate(ctx context.Context, content string) bool {
	hash := ContentHash(content)
	exists, err := d.store.ExistsByHash(ctx, hash)
	if err != nil {
		d.log.Warn("hash dedup check failed, continuing", "error", err)
	} else if exists {
		d.log.Info("exact duplicate by content hash", "hash", hash[:12])
		return true
	}

	probe := content
	if runes := []rune(probe); len(runes) > dupProbeChars {
		probe = string(runes[:dupProbeChars])
	}
	vecs, err := d.embedder.Embed(ctx, []string{probe}, cohere.InputDocument)
	if err != nil || len(vecs) != 1 {
		d.log.Warn("dedup probe embedding failed, continuing", "error", err)
		return false
	}

	hits, err := d.store.Search(ctx, vecs[0], dupProbeLimit, d.threshold)
	if err != nil {
		d.log.Warn("near-dup search failed, continuing", "error", err)
		return false
	}
	if len(hits) > 0 {
		d.log.Info("near-duplicate found", "best_score", hits[0].Score, "url", hits[0].URL)
		return true
	}
	return false
}
