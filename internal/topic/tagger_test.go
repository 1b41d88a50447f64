package topic

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTagDefaultVocabulary(t *testing.T) {
	tagger := Default()

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "ring match", text: "Looking for a silver ring with amber", want: "amber"},
		{name: "delivery match", text: "when does the courier arrive", want: "delivery"},
		{name: "case insensitive", text: "DO YOU TAKE CARD?", want: "payment"},
		{name: "no match", text: "hello there", want: ""},
		{name: "empty text", text: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tagger.Tag(tt.text); got != tt.want {
				t.Errorf("Tag(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestTagDeterministicOnOverlap(t *testing.T) {
	tagger := New(map[string][]string{
		"zeta":  {"gift"},
		"alpha": {"gift"},
	})

	// Both labels match; sorted order picks alpha every time
	for i := 0; i < 10; i++ {
		if got := tagger.Tag("a gift for my mother"); got != "alpha" {
			t.Fatalf("Tag() = %q, want alpha", got)
		}
	}
}

func TestNewSkipsEmptyKeywords(t *testing.T) {
	tagger := New(map[string][]string{
		"blank": {"", "   "},
		"real":  {"stone"},
	})

	if got := tagger.Labels(); len(got) != 1 || got[0] != "real" {
		t.Errorf("Labels() = %v, want [real]", got)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "topics.yaml")
	content := `topics:
  delivery: [shipping, courier]
  sizing:
    - resize
    - diameter
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	tagger, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if got := tagger.Tag("can you resize it"); got != "sizing" {
		t.Errorf("Tag() = %q, want sizing", got)
	}
	if got := tagger.Tag("courier to the door"); got != "delivery" {
		t.Errorf("Tag() = %q, want delivery", got)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile() on missing file should fail")
	}

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, []byte("topics: {}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(empty); err == nil {
		t.Error("LoadFile() on empty vocabulary should fail")
	}
}
