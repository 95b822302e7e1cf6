package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pagelore/pagelore/engine/semantic"
	"github.com/pagelore/pagelore/pkg/cohere"
)

type fakeDedupStore struct {
	hashes    map[string]bool
	hashErr   error
	hits      []semantic.Hit
	searchErr error

	lastLimit     int
	lastThreshold float32
}

func (f *fakeDedupStore) ExistsByHash(_ context.Context, hash string) (bool, error) {
	if f.hashErr != nil {
		return false, f.hashErr
	}
	return f.hashes[hash], nil
}

func (f *fakeDedupStore) Search(_ context.Context, _ []float32, limit int, threshold float32) ([]semantic.Hit, error) {
	f.lastLimit = limit
	f.lastThreshold = threshold
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.hits, nil
}

type fakeProbeEmbedder struct {
	err      error
	lastText string
	lastType cohere.InputType
}

func (f *fakeProbeEmbedder) Embed(_ context.Context, texts []string, inputType cohere.InputType) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastText = texts[0]
	f.lastType = inputType
	return [][]float32{{0.1, 0.2}}, nil
}

func TestIsDuplicateByHash(t *testing.T) {
	content := "the install guide"
	store := &fakeDedupStore{hashes: map[string]bool{ContentHash(content): true}}
	d := NewDeduplicator(store, &fakeProbeEmbedder{}, 0, nil)

	if !d.IsDuplicate(context.Background(), content) {
		t.Fatal("exact hash match must be a duplicate")
	}
}

func TestIsDuplicateBySimilarity(t *testing.T) {
	store := &fakeDedupStore{hits: []semantic.Hit{{Score: 0.97, URL: "u1"}}}
	emb := &fakeProbeEmbedder{}
	d := NewDeduplicator(store, emb, 0, nil)

	if !d.IsDuplicate(context.Background(), "reworded install guide") {
		t.Fatal("hit above threshold must be a duplicate")
	}
	if store.lastLimit != dupProbeLimit || store.lastThreshold != DefaultDupThreshold {
		t.Errorf("search params: limit=%d threshold=%v", store.lastLimit, store.lastThreshold)
	}
	if emb.lastType != cohere.InputDocument {
		t.Errorf("probe input type = %s", emb.lastType)
	}
}

func TestIsDuplicateNoMatch(t *testing.T) {
	d := NewDeduplicator(&fakeDedupStore{}, &fakeProbeEmbedder{}, 0, nil)
	if d.IsDuplicate(context.Background(), "fresh content") {
		t.Fatal("no hash hit and no neighbours means not a duplicate")
	}
}

func TestIsDuplicateTruncatesProbe(t *testing.T) {
	emb := &fakeProbeEmbedder{}
	d := NewDeduplicator(&fakeDedupStore{}, emb, 0, nil)

	d.IsDuplicate(context.Background(), strings.Repeat("x", 5000))
	if len(emb.lastText) != dupProbeChars {
		t.Fatalf("probe length = %d, want %d", len(emb.lastText), dupProbeChars)
	}
}

func TestIsDuplicateErrorsAreAdvisory(t *testing.T) {
	cases := map[string]*Deduplicator{
		"hash error": NewDeduplicator(
			&fakeDedupStore{hashErr: errors.New("count failed")},
			&fakeProbeEmbedder{}, 0, nil),
		"embed error": NewDeduplicator(
			&fakeDedupStore{},
			&fakeProbeEmbedder{err: errors.New("api down")}, 0, nil),
		"search error": NewDeduplicator(
			&fakeDedupStore{searchErr: errors.New("qdrant down")},
			&fakeProbeEmbedder{}, 0, nil),
	}
	for name, d := range cases {
		if d.IsDuplicate(context.Background(), "some content") {
			t.Errorf("%s: backend errors must not report a duplicate", name)
		}
	}
}
