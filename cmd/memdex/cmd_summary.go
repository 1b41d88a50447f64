package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/lumastudio/memdex/internal/config"
	"github.com/lumastudio/memdex/internal/indexer"
	"github.com/lumastudio/memdex/internal/retrieval"
)

// handleSummary implements the summary subcommand
func handleSummary(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)

	var owner string
	var days int
	var jsonOutput bool

	fs.StringVar(&owner, "owner", "", "Owner scope to summarize (required)")
	fs.IntVar(&days, "days", 90, "How far back to look")
	fs.BoolVar(&jsonOutput, "json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    memdex summary [options]

DESCRIPTION:
    List everything stored for one owner scope inside the window,
    newest first. Useful for checking what the store knows about a
    customer before or after a conversation.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Everything on record for a customer
    memdex summary -owner cust-17

    # Only the last week
    memdex summary -owner cust-17 -days 7
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}
	if owner == "" {
		fmt.Fprintf(os.Stderr, "Error: -owner is required\n\n")
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

	report, err := retriever.OwnerSummary(owner, time.Duration(days)*24*time.Hour)
	if err != nil {
		log.Fatalf("Summary failed: %v", err)
	}

	if jsonOutput {
		jsonData, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal report: %v", err)
		}
		fmt.Println(string(jsonData))
		return
	}

	if len(report.Results) == 0 {
		fmt.Printf("Nothing stored for %s in the last %d day(s)\n", owner, days)
		return
	}

	fmt.Printf("%d record(s), %d chunk(s) for %s:\n", report.RecordCount, len(report.Results), owner)
	if len(report.TopicCounts) > 0 {
		fmt.Print("Topics:")
		for _, label := range sortedTopicLabels(report.TopicCounts) {
			fmt.Printf(" %s=%d", label, report.TopicCounts[label])
		}
		fmt.Println()
	}
	fmt.Println()
	for _, res := range report.Results {
		fmt.Printf("%s  [%s]  %s#%d\n", res.CreatedAt.Local().Format("2006-01-02 15:04"),
			res.Origin, res.RecordID, res.ChunkIndex)
		fmt.Printf("    %s\n", res.Text)
	}
}

func sortedTopicLabels(counts map[string]int) []string {
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
