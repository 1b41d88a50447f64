// Package retrieval runs the read path: a cascade of similarity scans
// from the narrowest scope to the broadest, stopping as soon as enough
// relevant chunks are found, then assembling them into a bounded
// context block.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lumastudio/memdex/internal/config"
	"github.com/lumastudio/memdex/internal/embedding"
	"github.com/lumastudio/memdex/internal/store"
	"github.com/lumastudio/memdex/internal/topic"
)

// Options tunes the cascade. Thresholds drop and windows widen from the
// narrow tier to the broad one, trading precision for recall.
type Options struct {
	SubScopeThreshold float32
	OwnerThreshold    float32
	TopicThreshold    float32

	SubScopeWindow time.Duration
	OwnerWindow    time.Duration
	TopicWindow    time.Duration

	PerTierLimit  int
	MinResults    int
	MaxResults    int
	MaxContextLen int
	FallbackLimit int
}

// DefaultOptions returns the standard cascade tuning
func DefaultOptions() Options {
	return Options{
		SubScopeThreshold: 0.75,
		OwnerThreshold:    0.6,
		TopicThreshold:    0.4,
		SubScopeWindow:    30 * 24 * time.Hour,
		OwnerWindow:       60 * 24 * time.Hour,
		TopicWindow:       90 * 24 * time.Hour,
		PerTierLimit:      15,
		MinResults:        5,
		MaxResults:        10,
		MaxContextLen:     2000,
		FallbackLimit:     5,
	}
}

// OptionsFromConfig maps configuration to cascade options
func OptionsFromConfig(cfg *config.RetrievalConfig) Options {
	opts := DefaultOptions()
	if cfg.SubScopeThreshold > 0 {
		opts.SubScopeThreshold = cfg.SubScopeThreshold
	}
	if cfg.OwnerThreshold > 0 {
		opts.OwnerThreshold = cfg.OwnerThreshold
	}
	if cfg.TopicThreshold > 0 {
		opts.TopicThreshold = cfg.TopicThreshold
	}
	if cfg.SubScopeWindowDays > 0 {
		opts.SubScopeWindow = time.Duration(cfg.SubScopeWindowDays) * 24 * time.Hour
	}
	if cfg.OwnerWindowDays > 0 {
		opts.OwnerWindow = time.Duration(cfg.OwnerWindowDays) * 24 * time.Hour
	}
	if cfg.TopicWindowDays > 0 {
		opts.TopicWindow = time.Duration(cfg.TopicWindowDays) * 24 * time.Hour
	}
	if cfg.PerTierLimit > 0 {
		opts.PerTierLimit = cfg.PerTierLimit
	}
	if cfg.MinResults > 0 {
		opts.MinResults = cfg.MinResults
	}
	if cfg.MaxContextLen > 0 {
		opts.MaxContextLen = cfg.MaxContextLen
	}
	if cfg.FallbackLimit > 0 {
		opts.FallbackLimit = cfg.FallbackLimit
	}
	return opts
}

// Scope identifies whose history a query searches
type Scope struct {
	OwnerScope string
	SubScope   string
}

// TierStats records what one cascade tier contributed
type TierStats struct {
	Name      string
	Threshold float32
	Window    time.Duration
	Found     int
	Kept      int
}

// Diagnostics explains how a context was assembled
type Diagnostics struct {
	Tiers      []TierStats
	TopicTag   string
	TotalFound int
	Truncated  bool
}

// Context is the assembled retrieval output: ranked chunks plus a
// summary block sized for prompt injection.
type Context struct {
	Summary     string
	Results     []store.SearchResult
	Diagnostics Diagnostics
}

// Retriever runs cascade queries against a record store
type Retriever struct {
	records      *store.RecordStore
	embedService *embedding.Service
	tagger       *topic.Tagger
	opts         Options
}

// New creates a Retriever. A nil tagger disables the topic tier and a
// zero Options selects DefaultOptions.
func New(records *store.RecordStore, embedService *embedding.Service, tagger *topic.Tagger, opts Options) (*Retriever, error) {
	if records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if embedService == nil {
		return nil, fmt.Errorf("embedding service is required")
	}
	if opts == (Options{}) {
		opts = DefaultOptions()
	}
	return &Retriever{
		records:      records,
		embedService: embedService,
		tagger:       tagger,
		opts:         opts,
	}, nil
}

// Query embeds the query text once and cascades through the tiers:
// sub-scope, owner-wide, then topic-tagged or unscoped fallback. The
// cascade stops early once MinResults distinct chunks are found.
// Embedding failure surfaces as an error; a degraded answer is worse
// than a visible one here.
func (r *Retriever) Query(ctx context.Context, text string, scope Scope) (*Context, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("query text is empty")
	}

	queryVector, err := r.embedService.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var diag Diagnostics
	seen := make(map[string]bool)
	var merged []store.SearchResult

	collect := func(name string, filter store.ScopeFilter, threshold float32, window time.Duration, limit int) error {
		filter.MaxAge = window
		results, err := r.records.Scan(filter, queryVector, threshold, limit)
		if err != nil {
			return err
		}
		kept := 0
		for _, res := range results {
			key := fmt.Sprintf("%s#%d", res.RecordID, res.ChunkIndex)
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, res)
			kept++
		}
		diag.Tiers = append(diag.Tiers, TierStats{
			Name:      name,
			Threshold: threshold,
			Window:    window,
			Found:     len(results),
			Kept:      kept,
		})
		return nil
	}

	if scope.SubScope != "" {
		err := collect("sub_scope",
			store.ScopeFilter{OwnerScope: scope.OwnerScope, SubScope: scope.SubScope},
			r.opts.SubScopeThreshold, r.opts.SubScopeWindow, r.opts.PerTierLimit)
		if err != nil {
			return nil, err
		}
	}

	if len(merged) < r.opts.MinResults && scope.OwnerScope != "" {
		err := collect("owner",
			store.ScopeFilter{OwnerScope: scope.OwnerScope},
			r.opts.OwnerThreshold, r.opts.OwnerWindow, r.opts.PerTierLimit)
		if err != nil {
			return nil, err
		}
	}

	if len(merged) < r.opts.MinResults {
		tag := ""
		if r.tagger != nil {
			tag = r.tagger.Tag(text)
		}
		diag.TopicTag = tag

		if tag != "" {
			// Topic tier deliberately drops the owner filter so shared
			// knowledge such as catalog entries can answer.
			err := collect("topic",
				store.ScopeFilter{TopicTag: tag},
				r.opts.TopicThreshold, r.opts.TopicWindow, r.opts.PerTierLimit)
			if err != nil {
				return nil, err
			}
		} else {
			err := collect("fallback",
				store.ScopeFilter{},
				r.opts.TopicThreshold, r.opts.TopicWindow, r.opts.FallbackLimit)
			if err != nil {
				return nil, err
			}
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Similarity > merged[j].Similarity
	})

	diag.TotalFound = len(merged)
	if r.opts.MaxResults > 0 && len(merged) > r.opts.MaxResults {
		merged = merged[:r.opts.MaxResults]
	}

	summary, truncated := r.buildSummary(merged)
	diag.Truncated = truncated

	return &Context{
		Summary:     summary,
		Results:     merged,
		Diagnostics: diag,
	}, nil
}

// OwnerReport describes everything stored for one owner scope
type OwnerReport struct {
	OwnerScope  string
	Window      time.Duration
	RecordCount int
	TopicCounts map[string]int
	Results     []store.SearchResult
}

// OwnerSummary enumerates every chunk an owner wrote inside the window,
// newest first, without similarity ranking, together with record and
// topic-tag counts. Used by operators to inspect what the store knows
// about one owner.
func (r *Retriever) OwnerSummary(ownerScope string, window time.Duration) (*OwnerReport, error) {
	if ownerScope == "" {
		return nil, fmt.Errorf("owner scope is required")
	}

	results, err := r.records.Scan(store.ScopeFilter{OwnerScope: ownerScope, MaxAge: window}, nil, 0, 0)
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	report := &OwnerReport{
		OwnerScope:  ownerScope,
		Window:      window,
		TopicCounts: make(map[string]int),
		Results:     results,
	}
	seenRecords := make(map[string]bool)
	for _, res := range results {
		if seenRecords[res.RecordID] {
			continue
		}
		seenRecords[res.RecordID] = true
		report.RecordCount++
		if res.TopicTag != "" {
			report.TopicCounts[res.TopicTag]++
		}
	}
	return report, nil
}

// summary assembly limits
const (
	maxPerOrigin    = 3
	maxSnippetLen   = 200
	summaryEllipsis = "..."
)

// buildSummary groups results by origin, keeps the top entries of each
// group trimmed to a fixed snippet length, and caps the whole block at
// MaxContextLen runes.
func (r *Retriever) buildSummary(results []store.SearchResult) (string, bool) {
	if len(results) == 0 {
		return "", false
	}

	order := []string{store.OriginCatalog, store.OriginUser, store.OriginAgent, store.OriginSystem}
	grouped := make(map[string][]store.SearchResult)
	for _, res := range results {
		grouped[res.Origin] = append(grouped[res.Origin], res)
	}

	var b strings.Builder
	for _, origin := range order {
		group := grouped[origin]
		if len(group) == 0 {
			continue
		}
		if len(group) > maxPerOrigin {
			group = group[:maxPerOrigin]
		}
		b.WriteString(fmt.Sprintf("[%s]\n", origin))
		for _, res := range group {
			b.WriteString("- ")
			b.WriteString(trimSnippet(res.Text, maxSnippetLen))
			b.WriteString("\n")
		}
	}

	summary := strings.TrimRight(b.String(), "\n")
	runes := []rune(summary)
	if len(runes) <= r.opts.MaxContextLen {
		return summary, false
	}
	return trimSnippet(summary, r.opts.MaxContextLen), true
}

// trimSnippet shortens text to at most limit runes, cutting at the last
// word boundary and appending an ellipsis.
func trimSnippet(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	cut := limit - len(summaryEllipsis)
	if cut < 1 {
		cut = 1
	}
	trimmed := runes[:cut]

	for i := len(trimmed) - 1; i > cut/2; i-- {
		if trimmed[i] == ' ' {
			trimmed = trimmed[:i]
			break
		}
	}
	return strings.TrimRight(string(trimmed), " ") + summaryEllipsis
}
