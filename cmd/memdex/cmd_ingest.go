package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/lumastudio/memdex/internal/config"
	"github.com/lumastudio/memdex/internal/indexer"
	"github.com/lumastudio/memdex/internal/store"
)

// handleIngest implements the ingest subcommand
func handleIngest(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)

	var owner, sub, origin, id string
	var async bool

	fs.StringVar(&owner, "owner", "", "Owner scope the record belongs to (required)")
	fs.StringVar(&sub, "sub", "", "Sub scope, e.g. a deal or conversation id")
	fs.StringVar(&origin, "origin", store.OriginUser, "Record origin: user, agent or system")
	fs.StringVar(&id, "id", "", "Explicit record id (re-ingesting the same id replaces the record)")
	fs.BoolVar(&async, "async", false, "Queue the record instead of waiting for the embedding")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    memdex ingest [options] "<text>"

DESCRIPTION:
    Sanitize, chunk, embed and store a piece of text. PII such as phone
    numbers, emails and introduced names is masked before anything is
    persisted.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Store a customer message
    memdex ingest -owner cust-17 -sub deal-3 "I want a ring with an inclusion"

    # Store an agent reply without blocking on the embedding API
    memdex ingest -owner cust-17 -origin agent -async "We have three in stock"
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: text to ingest is required\n\n")
		fs.Usage()
		os.Exit(1)
	}
	if owner == "" {
		fmt.Fprintf(os.Stderr, "Error: -owner is required\n\n")
		fs.Usage()
		os.Exit(1)
	}
	switch origin {
	case store.OriginUser, store.OriginAgent, store.OriginSystem:
	default:
		log.Fatalf("Invalid origin %q: must be user, agent or system", origin)
	}

	idx, err := indexer.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to create indexer: %v", err)
	}
	defer idx.Close()

	rec := &store.Record{
		RecordID:   id,
		OwnerScope: owner,
		SubScope:   sub,
		Origin:     origin,
		RawText:    fs.Arg(0),
	}

	if async {
		recordID := idx.IngestAsync(rec)
		fmt.Printf("Queued record %s\n", recordID)
		return
	}

	recordID, err := idx.IngestSync(context.Background(), rec)
	if err != nil {
		log.Fatalf("Ingest failed: %v", err)
	}
	fmt.Printf("Stored record %s\n", recordID)
}
