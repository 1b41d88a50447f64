// Package chunker splits sanitized text into overlapping segments
// sized for embedding. Split points prefer sentence boundaries, then
// whitespace, then a hard cut, so most chunks stay semantically whole.
package chunker

import (
	"strings"
	"unicode"
)

// Defaults applied when a Chunker is created with non-positive values.
const (
	DefaultMaxChunkSize = 500
	DefaultOverlap      = 50
)

// Chunker splits text into chunks of at most maxChunkSize runes with
// overlap runes carried between consecutive chunks.
type Chunker struct {
	maxChunkSize int
	overlap      int
}

// New creates a Chunker. Non-positive sizes fall back to the defaults,
// and overlap is clamped below maxChunkSize so every chunk makes
// forward progress.
func New(maxChunkSize, overlap int) *Chunker {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= maxChunkSize {
		overlap = maxChunkSize / 10
	}
	return &Chunker{maxChunkSize: maxChunkSize, overlap: overlap}
}

// Split divides text into overlapping chunks. Whitespace-only input
// yields no chunks; input at or under the chunk size yields one chunk.
// All boundaries are computed over runes, never bytes.
func (c *Chunker) Split(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	runes := []rune(trimmed)
	if len(runes) <= c.maxChunkSize {
		return []string{trimmed}
	}

	var chunks []string
	start := 0

	for start < len(runes) {
		end := start + c.maxChunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		cut, next := c.cutPoint(runes, start, end)
		chunks = append(chunks, string(runes[start:cut]))

		// Guard against stalling when overlap rewinds past the cut
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}

// cutPoint picks where the chunk [start, end) actually ends and where
// the next chunk starts. It scans backward from end for a sentence
// terminator, then for whitespace, and falls back to a hard cut at end.
// The scan never rewinds into the overlap carried from the previous
// chunk, so chunks cannot collapse into each other.
func (c *Chunker) cutPoint(runes []rune, start, end int) (cut, next int) {
	limit := start + c.overlap

	for i := end - 1; i > limit; i-- {
		if isSentenceEnd(runes[i]) {
			cut = i + 1
			return cut, cut - c.overlap
		}
	}

	for i := end - 1; i > limit; i-- {
		if unicode.IsSpace(runes[i]) {
			// Keep the space in the current chunk so concatenating
			// chunks (minus overlaps) reproduces the input exactly.
			cut = i + 1
			return cut, cut - c.overlap
		}
	}

	return end, end - c.overlap
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}
