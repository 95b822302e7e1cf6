package chunk

import (
	"errors"
	"strings"
	"testing"

	"github.com/pagelore/pagelore/engine/domain"
)

func TestSplitShortTextSingleChunk(t *testing.T) {
	chunks, err := Split("short text", 1000, 100)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "short text" {
		t.Fatalf("expected single whole chunk, got %v", chunks)
	}
}

func TestSplitExactFit(t *testing.T) {
	text := strings.Repeat("a", 1000)
	chunks, err := Split(text, 1000, 100)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for exact fit, got %d", len(chunks))
	}
}

func TestSplitOverlap(t *testing.T) {
	text := strings.Repeat("x", 2500)
	chunks, err := Split(text, 1000, 100)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 1000 || len(chunks[1]) != 1000 {
		t.Errorf("full windows should be 1000 chars, got %d and %d", len(chunks[0]), len(chunks[1]))
	}
	// Second window starts 900 chars in, so its first 100 chars repeat
	// the tail of the first.
	if chunks[0][900:] != chunks[1][:100] {
		t.Error("adjacent chunks should share the overlap region")
	}
}

func TestSplitReconstruction(t *testing.T) {
	var b strings.Builder
	for i := 0; b.Len() < 3200; i++ {
		b.WriteString("abcdefghij")
	}
	text := b.String()

	size, overlap := 500, 50
	chunks, err := Split(text, size, overlap)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	// Concatenating chunks with each successor's leading overlap dropped
	// must reproduce the original text exactly.
	rebuilt := chunks[0]
	for _, c := range chunks[1:] {
		rebuilt += c[overlap:]
	}
	if rebuilt != text {
		t.Fatal("chunks do not reconstruct the original text")
	}
}

func TestSplitChunkCount(t *testing.T) {
	cases := []struct {
		length, size, overlap, want int
	}{
		{2500, 1000, 100, 3},
		{1000, 1000, 100, 1},
		{1001, 1000, 100, 2},
		{5000, 500, 0, 10},
	}
	for _, c := range cases {
		chunks, err := Split(strings.Repeat("z", c.length), c.size, c.overlap)
		if err != nil {
			t.Fatalf("Split(%d,%d,%d): %v", c.length, c.size, c.overlap, err)
		}
		if len(chunks) != c.want {
			t.Errorf("Split(%d,%d,%d): got %d chunks, want %d", c.length, c.size, c.overlap, len(chunks), c.want)
		}
	}
}

func TestSplitBlankText(t *testing.T) {
	chunks, err := Split("   \n\t ", 1000, 100)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("blank text should yield no chunks, got %d", len(chunks))
	}
}

func TestSplitInvalidConfig(t *testing.T) {
	if _, err := Split("text", 0, 0); !errors.Is(err, domain.ErrInvalidChunkSize) {
		t.Errorf("zero size: err = %v, want ErrInvalidChunkSize", err)
	}
	if _, err := Split("text", 100, 100); !errors.Is(err, domain.ErrInvalidOverlap) {
		t.Errorf("overlap equal to size: err = %v, want ErrInvalidOverlap", err)
	}
	if _, err := Split("text", 100, -1); !errors.Is(err, domain.ErrInvalidOverlap) {
		t.Errorf("negative overlap: err = %v, want ErrInvalidOverlap", err)
	}

	var cfgErr *domain.ConfigError
	if _, err := Split("text", -5, 0); !errors.As(err, &cfgErr) || cfgErr.Param != "chunk_size" {
		t.Errorf("err = %v, want ConfigError on chunk_size", err)
	}
}

func TestSplitUnicode(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 30)
	chunks, err := Split(text, 50, 10)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	rebuilt := []rune(chunks[0])
	for _, c := range chunks[1:] {
		rebuilt = append(rebuilt, []rune(c)[10:]...)
	}
	if string(rebuilt) != text {
		t.Fatal("multibyte text does not reconstruct")
	}
}
