package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/lumastudio/memdex/internal/config"
	"github.com/lumastudio/memdex/internal/indexer"
	"github.com/lumastudio/memdex/internal/store"
)

// handleStats implements the stats subcommand
func handleStats(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	var jsonOutput bool
	fs.BoolVar(&jsonOutput, "json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    memdex stats [options]

DESCRIPTION:
    Show statistics about the store and maintenance timestamps.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Show human-readable statistics
    memdex stats

    # JSON output
    memdex stats -json
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	idx, err := indexer.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer idx.Close()

	records := idx.Store()
	stats, err := records.Stats()
	if err != nil {
		log.Fatalf("Failed to read statistics: %v", err)
	}

	lastCleanup, _ := records.Meta().GetTime(store.MetaKeyLastCleanup)
	lastReembed, _ := records.Meta().GetTime(store.MetaKeyLastReembed)
	queue := idx.Queue()

	if jsonOutput {
		out := map[string]interface{}{
			"records":      stats.RecordCount,
			"chunks":       stats.ChunkCount,
			"owner_scopes": stats.OwnerScopeCount,
			"last_write":   formatTime(stats.LastWrite),
			"last_cleanup": formatTime(lastCleanup),
			"last_reembed": formatTime(lastReembed),
			"queue_depth":  queue.Depth,
		}
		jsonData, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Println("Store Statistics")
	fmt.Println()
	fmt.Printf("Records:      %6d\n", stats.RecordCount)
	fmt.Printf("Chunks:       %6d\n", stats.ChunkCount)
	fmt.Printf("Owner scopes: %6d\n", stats.OwnerScopeCount)
	fmt.Printf("Last write:   %s\n", formatTime(stats.LastWrite))
	fmt.Printf("Last cleanup: %s\n", formatTime(lastCleanup))
	fmt.Printf("Last reembed: %s\n", formatTime(lastReembed))
	fmt.Printf("Queue depth:  %6d\n", queue.Depth)
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "never"
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}
