// Package sanitize masks personally identifiable information in free
// text before it is chunked, embedded, or persisted. Masking is
// deterministic and idempotent so repeated passes over already
// sanitized text are safe.
package sanitize

import (
	"fmt"
	"log"
	"regexp"
	"strings"
)

// Placeholder tokens substituted for detected PII. They contain no
// digits and start with '[' so they can never re-match a pattern.
const (
	PhonePlaceholder = "[PHONE]"
	EmailPlaceholder = "[EMAIL]"
	NamePlaceholder  = "[NAME]"
)

// DefaultPhonePattern matches international and local phone numbers:
// an optional + or opening parenthesis, then 8 or more digits allowing
// spaces, dots, dashes and parentheses between them.
const DefaultPhonePattern = `\+?\(?\d[\d\s().-]{6,}\d`

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	// Personal names are only masked when introduced by a self-reference,
	// to avoid destroying product names and other capitalized nouns.
	namePattern = regexp.MustCompile(`\b((?i:my name is|i am|i['’]m|this is)\s+)([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)?)`)
)

// Sanitizer masks phone numbers, email addresses, and introduced
// personal names in text.
type Sanitizer struct {
	phone     *regexp.Regexp
	keepNames map[string]bool
}

// Option configures a Sanitizer
type Option func(*Sanitizer)

// WithKeepNames excludes the given names from name masking. Matching is
// case-insensitive. Used for product and brand vocabulary that would
// otherwise look like a personal name.
func WithKeepNames(names []string) Option {
	return func(s *Sanitizer) {
		for _, name := range names {
			name = strings.ToLower(strings.TrimSpace(name))
			if name != "" {
				s.keepNames[name] = true
			}
		}
	}
}

// New creates a Sanitizer. An empty phonePattern selects
// DefaultPhonePattern; an invalid pattern is an error.
func New(phonePattern string, opts ...Option) (*Sanitizer, error) {
	if phonePattern == "" {
		phonePattern = DefaultPhonePattern
	}

	phone, err := regexp.Compile(phonePattern)
	if err != nil {
		return nil, fmt.Errorf("invalid phone pattern: %w", err)
	}

	s := &Sanitizer{
		phone:     phone,
		keepNames: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sanitize masks PII in text. It never fails: if masking panics on
// pathological input the original text is returned unchanged, which
// callers must treat as best-effort.
func (s *Sanitizer) Sanitize(text string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Warning: sanitizer failed, keeping text unmasked: %v", r)
			result = text
		}
	}()

	// Emails first so digit runs inside an address are not mistaken
	// for phone numbers.
	result = emailPattern.ReplaceAllString(text, EmailPlaceholder)
	result = s.phone.ReplaceAllString(result, PhonePlaceholder)
	result = namePattern.ReplaceAllStringFunc(result, s.maskName)
	return result
}

// maskName replaces the captured name unless it is on the keep list
func (s *Sanitizer) maskName(match string) string {
	groups := namePattern.FindStringSubmatch(match)
	if len(groups) != 3 {
		return match
	}
	intro, name := groups[1], groups[2]
	if s.keepNames[strings.ToLower(name)] {
		return match
	}
	return intro + NamePlaceholder
}
