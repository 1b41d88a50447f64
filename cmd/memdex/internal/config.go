package internal

import (
	"fmt"
	"os"

	"github.com/lumastudio/memdex/internal/config"
)

// LoadConfig loads the configuration from an explicit path or the
// default location.
func LoadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// PrintConfigExample writes a starter configuration to stderr
func PrintConfigExample() {
	homeDir, _ := os.UserHomeDir()
	configPath := fmt.Sprintf("%s/.memdex/config/memdex.yaml", homeDir)

	fmt.Fprintf(os.Stderr, `Create a configuration file at %s:

# Embedding service configuration (required)
embedding:
  # Provider: "openai" | "volcengine"
  provider: openai
  api_key: your-api-key
  model: text-embedding-3-small
  dimensions: 1536
  batch_size: 10

# Database configuration
database:
  path: ~/.memdex/data/memdex.db

# For VolcEngine provider, use:
# embedding:
#   provider: volcengine
#   api_key: your-volcengine-api-key
#   endpoint: https://ark.cn-beijing.volces.com/api/v3/embeddings/multimodal
#   model: doubao-embedding-vision-250615
#   dimensions: 2048

Usage:
  1. Create the config file
  2. Store text: memdex ingest -owner cust-1 "message text"
  3. Query:      memdex query -owner cust-1 "what did we discuss?"
`, configPath)
}
