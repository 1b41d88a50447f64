package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/lumastudio/memdex/internal/config"
	"github.com/lumastudio/memdex/internal/indexer"
	"github.com/lumastudio/memdex/internal/retrieval"
)

// handleQuery implements the query subcommand
func handleQuery(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)

	var owner, sub string
	var jsonOutput, verbose bool

	fs.StringVar(&owner, "owner", "", "Owner scope to search")
	fs.StringVar(&sub, "sub", "", "Sub scope for the narrowest tier")
	fs.BoolVar(&jsonOutput, "json", false, "Output as JSON")
	fs.BoolVar(&verbose, "v", false, "Show per-tier diagnostics")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    memdex query [options] "<query>"

DESCRIPTION:
    Retrieve relevant stored context for a query. The search cascades
    from the sub scope to the owner's whole history to topic-tagged
    shared knowledge, stopping once enough relevant chunks are found.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Context for a reply within a deal
    memdex query -owner cust-17 -sub deal-3 "which stone did we discuss?"

    # Owner-wide search with diagnostics
    memdex query -owner cust-17 -v "delivery problems"

    # JSON output for scripting
    memdex query -owner cust-17 -json "ring size"
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: query text is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	idx, err := indexer.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer idx.Close()

	retriever, err := retrieval.New(idx.Store(), idx.EmbedService(), idx.Tagger(),
		retrieval.OptionsFromConfig(&cfg.Retrieval))
	if err != nil {
		log.Fatalf("Failed to create retriever: %v", err)
	}

	result, err := retriever.Query(context.Background(), fs.Arg(0),
		retrieval.Scope{OwnerScope: owner, SubScope: sub})
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}

	if jsonOutput {
		jsonData, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal result: %v", err)
		}
		fmt.Println(string(jsonData))
		return
	}

	if len(result.Results) == 0 {
		fmt.Println("No results found")
		return
	}

	fmt.Println(result.Summary)

	if verbose {
		fmt.Println()
		fmt.Printf("Topic tag:  %s\n", orDash(result.Diagnostics.TopicTag))
		fmt.Printf("Found:      %d chunk(s)\n", result.Diagnostics.TotalFound)
		for _, tier := range result.Diagnostics.Tiers {
			fmt.Printf("Tier %-10s threshold=%.2f window=%s found=%d kept=%d\n",
				tier.Name, tier.Threshold, tier.Window, tier.Found, tier.Kept)
		}
		for i, res := range result.Results {
			fmt.Printf("%2d. %.3f  %s  %s#%d\n", i+1, res.Similarity, res.Origin, res.RecordID, res.ChunkIndex)
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
