// Package importer bulk-loads catalog items from YAML files into the
// store through the synchronous ingestion path, so import failures are
// visible immediately instead of landing as placeholders.
package importer

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/lumastudio/memdex/internal/indexer"
	"github.com/lumastudio/memdex/internal/store"
)

// Item is one catalog entry as it appears in a YAML file
type Item struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Category    string  `yaml:"category,omitempty"`
	Description string  `yaml:"description,omitempty"`
	Price       float64 `yaml:"price,omitempty"`
}

// itemFile is the on-disk format: either a single item or a list
// under an items key.
type itemFile struct {
	Items []Item `yaml:"items"`

	// single-item form
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Category    string  `yaml:"category"`
	Description string  `yaml:"description"`
	Price       float64 `yaml:"price"`
}

// Summary reports what an import run did
type Summary struct {
	Files   int
	Items   int
	Skipped int
	Failed  int
}

// Importer walks a directory of catalog YAML files and ingests them
type Importer struct {
	indexer  *indexer.Indexer
	exclude  []string
	progress ProgressReporter
}

// New creates an Importer. Exclude patterns use doublestar globs and
// are matched against both the relative path and the basename.
func New(idx *indexer.Indexer, exclude []string, progress ProgressReporter) (*Importer, error) {
	if idx == nil {
		return nil, fmt.Errorf("indexer is required")
	}
	return &Importer{
		indexer:  idx,
		exclude:  exclude,
		progress: progress,
	}, nil
}

// ImportDir ingests every catalog item found under dir. Item ids are
// stable across runs, so re-importing an updated catalog replaces
// records instead of duplicating them.
func (im *Importer) ImportDir(ctx context.Context, dir string) (*Summary, error) {
	paths, err := im.collectFiles(dir)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}

	var items []Item
	for _, path := range paths {
		fileItems, err := loadItems(path)
		if err != nil {
			log.Printf("skipping %s: %v", path, err)
			summary.Failed++
			continue
		}
		summary.Files++
		items = append(items, fileItems...)
	}

	if im.progress != nil {
		im.progress.Start(len(items))
		defer im.progress.Finish()
	}

	for _, item := range items {
		if im.progress != nil {
			im.progress.Increment()
		}
		if item.ID == "" || item.Name == "" {
			summary.Skipped++
			continue
		}

		rec := &store.Record{
			RecordID:   "catalog/" + item.ID,
			OwnerScope: "catalog",
			Origin:     store.OriginCatalog,
			RawText:    formatItem(item),
		}
		if _, err := im.indexer.IngestSync(ctx, rec); err != nil {
			log.Printf("failed to import item %s: %v", item.ID, err)
			summary.Failed++
			continue
		}
		summary.Items++
	}

	return summary, nil
}

// collectFiles walks dir and returns the YAML files that survive the
// exclude patterns, in walk order.
func (im *Importer) collectFiles(dir string) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		if im.excluded(filepath.ToSlash(rel)) {
			return nil
		}

		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	return paths, nil
}

func (im *Importer) excluded(relPath string) bool {
	for _, pattern := range im.exclude {
		if matched, _ := doublestar.Match(pattern, relPath); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, filepath.Base(relPath)); matched {
			return true
		}
	}
	return false
}

// loadItems parses one YAML file in either the list or single-item form
func loadItems(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var file itemFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if len(file.Items) > 0 {
		return file.Items, nil
	}
	if file.ID != "" || file.Name != "" {
		return []Item{{
			ID:          file.ID,
			Name:        file.Name,
			Category:    file.Category,
			Description: file.Description,
			Price:       file.Price,
		}}, nil
	}
	return nil, nil
}

// formatItem renders an item as the text that gets chunked and embedded
func formatItem(item Item) string {
	var b strings.Builder
	b.WriteString(item.Name)
	if item.Category != "" {
		b.WriteString(". Category: ")
		b.WriteString(item.Category)
	}
	if item.Price > 0 {
		b.WriteString(fmt.Sprintf(". Price: %.2f", item.Price))
	}
	if item.Description != "" {
		b.WriteString(". ")
		b.WriteString(item.Description)
	}
	return b.String()
}
