// Package chunk splits document text into overlapping character windows
// for embedding and retrieval.
package chunk

import (
	"fmt"
	"strings"

	"github.com/pagelore/pagelore/engine/domain"
)

const (
	// DefaultSize is the window width in characters.
	DefaultSize = 1000
	// DefaultOverlap is how many characters consecutive windows share.
	DefaultOverlap = 100
)

// Split cuts text into windows of size characters. Each window after the
// first starts size-overlap characters past the previous start, so adjacent
// windows share overlap characters. The final window runs to the end of the
// text and may be shorter than size. Text that fits in a single window is
// returned whole; blank text yields no chunks.
func Split(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, domain.NewConfigError("chunk_size", fmt.Sprintf("%d", size), domain.ErrInvalidChunkSize)
	}
	if overlap < 0 || overlap >= size {
		return nil, domain.NewConfigError("chunk_overlap", fmt.Sprintf("%d", overlap), domain.ErrInvalidOverlap)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}, nil
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks, nil
}
