package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/lumastudio/memdex/cmd/memdex/internal"
	"github.com/lumastudio/memdex/internal/config"
	"github.com/lumastudio/memdex/internal/importer"
	"github.com/lumastudio/memdex/internal/indexer"
)

// handleImport implements the import subcommand
func handleImport(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)

	var exclude internal.StringList
	var noProgress bool

	fs.Var(&exclude, "exclude", "Glob pattern to skip (repeatable, adds to config)")
	fs.BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    memdex import [options] <directory>

DESCRIPTION:
    Walk a directory of catalog YAML files and ingest every item.
    Item ids are stable, so re-importing an updated catalog replaces
    records instead of duplicating them.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Import the whole catalog
    memdex import ./catalog

    # Skip drafts
    memdex import -exclude "draft-*.yaml" ./catalog
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: catalog directory is required\n\n")
		fs.Usage()
		os.Exit(1)
	}
	dir := fs.Arg(0)

	idx, err := indexer.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to create indexer: %v", err)
	}
	defer idx.Close()

	patterns := append([]string{}, cfg.Import.Exclude...)
	patterns = append(patterns, exclude...)

	progress := importer.NewProgress(!noProgress && importer.DefaultProgressEnabled())
	im, err := importer.New(idx, patterns, progress)
	if err != nil {
		log.Fatalf("Failed to create importer: %v", err)
	}

	summary, err := im.ImportDir(context.Background(), dir)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	fmt.Printf("Imported %d item(s) from %d file(s)", summary.Items, summary.Files)
	if summary.Skipped > 0 {
		fmt.Printf(", skipped %d", summary.Skipped)
	}
	if summary.Failed > 0 {
		fmt.Printf(", failed %d", summary.Failed)
	}
	fmt.Println()

	if summary.Failed > 0 {
		os.Exit(1)
	}
}
