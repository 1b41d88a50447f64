package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitShortInput(t *testing.T) {
	c := New(500, 50)

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "whitespace only", input: "  \n\t ", want: nil},
		{name: "short text", input: "a single short message", want: []string{"a single short message"}},
		{name: "trims surrounding space", input: "  padded  ", want: []string{"padded"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Split(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("Split() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSplitRespectsMaxSize(t *testing.T) {
	c := New(100, 10)

	text := strings.Repeat("word and more text. ", 50)
	chunks := c.Split(text)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if n := utf8.RuneCountInString(chunk); n > 100 {
			t.Errorf("chunk %d has %d runes, exceeds max 100", i, n)
		}
	}
}

func TestSplitPrefersSentenceBoundary(t *testing.T) {
	c := New(50, 5)

	text := "First sentence here. Second sentence follows right after and keeps going for a while."
	chunks := c.Split(text)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %v", chunks)
	}
	if !strings.HasSuffix(chunks[0], ".") {
		t.Errorf("first chunk should end at a sentence boundary, got %q", chunks[0])
	}
}

func TestSplitFallsBackToWhitespace(t *testing.T) {
	c := New(40, 5)

	// No sentence terminators anywhere
	text := strings.Repeat("alpha beta gamma delta epsilon zeta ", 5)
	chunks := c.Split(text)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks[:len(chunks)-1] {
		if !strings.HasSuffix(chunk, " ") {
			t.Errorf("chunk %d should end on whitespace, got %q", i, chunk)
		}
	}
}

func TestSplitHardCutOnUnbrokenText(t *testing.T) {
	c := New(30, 5)

	text := strings.Repeat("x", 100)
	chunks := c.Split(text)

	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if n := utf8.RuneCountInString(chunk); n > 30 {
			t.Errorf("chunk %d has %d runes, exceeds max 30", i, n)
		}
	}
}

func TestSplitOverlapAndCoverage(t *testing.T) {
	tests := []struct {
		name    string
		max     int
		overlap int
		text    string
	}{
		{
			name:    "sentences",
			max:     80,
			overlap: 10,
			text:    strings.Repeat("The amber ring is in stock. We ship on Mondays! Sizes vary a lot. ", 10),
		},
		{
			name:    "no sentence marks",
			max:     60,
			overlap: 8,
			text:    strings.Repeat("one two three four five six seven eight nine ten ", 8),
		},
		{
			name:    "unbroken",
			max:     40,
			overlap: 6,
			text:    strings.Repeat("y", 200),
		},
		{
			name:    "multibyte runes",
			max:     50,
			overlap: 7,
			text:    strings.Repeat("янтарное кольцо в наличии. доставка завтра! ", 8),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.max, tt.overlap)
			trimmed := strings.TrimSpace(tt.text)
			chunks := c.Split(tt.text)

			if len(chunks) < 2 {
				t.Fatalf("expected multiple chunks, got %d", len(chunks))
			}

			// Consecutive chunks share exactly overlap runes
			for i := 1; i < len(chunks); i++ {
				prev := []rune(chunks[i-1])
				cur := []rune(chunks[i])
				if len(cur) < tt.overlap {
					t.Fatalf("chunk %d shorter than overlap: %q", i, chunks[i])
				}
				tail := string(prev[len(prev)-tt.overlap:])
				head := string(cur[:tt.overlap])
				if tail != head {
					t.Errorf("chunk %d overlap mismatch: tail %q vs head %q", i, tail, head)
				}
			}

			// Dropping each chunk's leading overlap reconstructs the input
			var b strings.Builder
			b.WriteString(chunks[0])
			for i := 1; i < len(chunks); i++ {
				cur := []rune(chunks[i])
				b.WriteString(string(cur[tt.overlap:]))
			}
			if b.String() != trimmed {
				t.Errorf("reconstruction mismatch:\n got %q\nwant %q", b.String(), trimmed)
			}
		})
	}
}

func TestNewNormalizesArguments(t *testing.T) {
	c := New(0, -1)
	if c.maxChunkSize != DefaultMaxChunkSize || c.overlap != DefaultOverlap {
		t.Errorf("New(0, -1) = {%d, %d}, want defaults {%d, %d}",
			c.maxChunkSize, c.overlap, DefaultMaxChunkSize, DefaultOverlap)
	}

	c = New(100, 200)
	if c.overlap >= c.maxChunkSize {
		t.Errorf("overlap %d not clamped below max %d", c.overlap, c.maxChunkSize)
	}
}
