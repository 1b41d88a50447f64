package internal

import (
	"fmt"
	"os"
	"strings"
)

const Version = "0.3.1"

// PrintUsage writes the top-level help text to stderr
func PrintUsage() {
	fmt.Fprintf(os.Stderr, `memdex - Embedded Semantic Memory Store

Version: %s

USAGE:
    memdex [global options] <command> [command options]

GLOBAL OPTIONS:
    -config <path>
        Path to config file (default: ~/.memdex/config/memdex.yaml)

    -v, -version
        Show version information

    -h, -help
        Show this help message

COMMANDS:
    ingest
        Sanitize, chunk, embed and store a piece of text

    query
        Retrieve relevant context for a query

    summary
        List everything stored for one owner scope

    import
        Bulk-import catalog items from YAML files

    stats
        Show store statistics and queue state

    cleanup
        Delete records older than the retention period

    reembed
        Re-embed records left with placeholder vectors

EXAMPLES:
    # Store a customer message
    memdex ingest -owner cust-17 -sub deal-3 "I want a ring with an inclusion"

    # Retrieve context for a reply
    memdex query -owner cust-17 -sub deal-3 "which stone did we discuss?"

    # Load the product catalog
    memdex import ./catalog

    # Run retention cleanup
    memdex cleanup

For detailed help on each command, use:
    memdex <command> -help
`, Version)
}

// StringList is a flag.Value that collects multiple strings
type StringList []string

func (s *StringList) String() string {
	return strings.Join(*s, ",")
}

func (s *StringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}
