package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/lumastudio/memdex/internal/config"
	"github.com/lumastudio/memdex/internal/indexer"
	"github.com/lumastudio/memdex/internal/lifecycle"
)

// handleCleanup implements the cleanup subcommand
func handleCleanup(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("cleanup", flag.ExitOnError)

	var days int
	fs.IntVar(&days, "days", 0, "Retention override in days (default from config)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    memdex cleanup [options]

DESCRIPTION:
    Delete records and their chunks older than the retention period.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Retention from config (default 90 days)
    memdex cleanup

    # Explicit retention
    memdex cleanup -days 30
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	manager, idx := newManager(cfg, days)
	defer idx.Close()

	deleted, err := manager.Cleanup()
	if err != nil {
		log.Fatalf("Cleanup failed: %v", err)
	}
	fmt.Printf("Deleted %d expired record(s)\n", deleted)
}

// handleReembed implements the reembed subcommand
func handleReembed(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("reembed", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    memdex reembed

DESCRIPTION:
    Find records stored with zero-vector placeholders during embedding
    outages and re-run the embedding pipeline for them.
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	manager, idx := newManager(cfg, 0)
	defer idx.Close()

	reembedded, failed, err := manager.Reembed(context.Background())
	if err != nil {
		log.Fatalf("Re-embedding failed: %v", err)
	}
	fmt.Printf("Re-embedded %d record(s)", reembedded)
	if failed > 0 {
		fmt.Printf(", %d failed", failed)
	}
	fmt.Println()

	if failed > 0 {
		os.Exit(1)
	}
}

func newManager(cfg *config.Config, retentionDays int) (*lifecycle.Manager, *indexer.Indexer) {
	idx, err := indexer.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	if retentionDays <= 0 {
		retentionDays = cfg.Lifecycle.RetentionDays
	}

	manager, err := lifecycle.New(idx.Store(), idx, lifecycle.Options{
		Retention:    time.Duration(retentionDays) * 24 * time.Hour,
		Interval:     time.Duration(cfg.Lifecycle.IntervalHours) * time.Hour,
		ReembedBatch: cfg.Lifecycle.ReembedBatch,
	})
	if err != nil {
		log.Fatalf("Failed to create lifecycle manager: %v", err)
	}
	return manager, idx
}
