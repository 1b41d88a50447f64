// Package topic assigns a coarse category tag to text by matching a
// keyword vocabulary. Tags scope the broad retrieval tier so a query
// about delivery does not surface pricing chatter.
package topic

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// vocabularyFile is the on-disk YAML format: a label mapped to the
// keywords that select it.
//
//	topics:
//	  delivery: [delivery, shipping, courier]
//	  rings: [ring, rings, band]
type vocabularyFile struct {
	Topics map[string][]string `yaml:"topics"`
}

// Tagger matches text against a keyword vocabulary
type Tagger struct {
	labels   []string
	keywords map[string][]string
}

// New creates a Tagger from a label-to-keywords vocabulary. Keywords
// are matched case-insensitively as substrings. Labels are checked in
// sorted order so tagging is deterministic.
func New(vocab map[string][]string) *Tagger {
	labels := make([]string, 0, len(vocab))
	keywords := make(map[string][]string, len(vocab))

	for label, words := range vocab {
		normalized := make([]string, 0, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				normalized = append(normalized, w)
			}
		}
		if len(normalized) == 0 {
			continue
		}
		labels = append(labels, label)
		keywords[label] = normalized
	}
	sort.Strings(labels)

	return &Tagger{labels: labels, keywords: keywords}
}

// LoadFile reads a vocabulary from a YAML file
func LoadFile(path string) (*Tagger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary file: %w", err)
	}

	var file vocabularyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary file: %w", err)
	}
	if len(file.Topics) == 0 {
		return nil, fmt.Errorf("vocabulary file %s defines no topics", path)
	}

	return New(file.Topics), nil
}

// Default returns a Tagger with the built-in retail vocabulary
func Default() *Tagger {
	return New(map[string][]string{
		"rings":        {"ring", "rings", "band"},
		"earrings":     {"earring", "earrings", "studs"},
		"bracelets":    {"bracelet", "bracelets", "bangle"},
		"pendants":     {"pendant", "pendants", "charm"},
		"necklaces":    {"necklace", "necklaces", "chain", "beads"},
		"brooches":     {"brooch", "brooches", "pin"},
		"amber":        {"amber", "inclusion", "baltic"},
		"delivery":     {"delivery", "shipping", "courier", "pickup", "track"},
		"payment":      {"payment", "pay", "invoice", "card", "installment"},
		"sizing":       {"size", "sizes", "resize", "fit", "diameter"},
		"returns":      {"return", "refund", "exchange", "warranty"},
		"pricing":      {"price", "cost", "discount", "sale", "promo"},
		"availability": {"stock", "available", "availability", "in store", "sold out"},
	})
}

// Tag returns the first label whose keywords appear in text, or "" if
// nothing matches.
func (t *Tagger) Tag(text string) string {
	if text == "" {
		return ""
	}
	lower := strings.ToLower(text)

	for _, label := range t.labels {
		for _, kw := range t.keywords[label] {
			if strings.Contains(lower, kw) {
				return label
			}
		}
	}
	return ""
}

// Labels returns the known labels in match order
func (t *Tagger) Labels() []string {
	out := make([]string, len(t.labels))
	copy(out, t.labels)
	return out
}
