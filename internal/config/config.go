package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Database  DatabaseConfig  `yaml:"database"`
	Sanitize  SanitizeConfig  `yaml:"sanitize,omitempty"`
	Chunking  ChunkingConfig  `yaml:"chunking,omitempty"`
	Indexer   IndexerConfig   `yaml:"indexer,omitempty"`
	Retrieval RetrievalConfig `yaml:"retrieval,omitempty"`
	Lifecycle LifecycleConfig `yaml:"lifecycle,omitempty"`
	Topics    TopicsConfig    `yaml:"topics,omitempty"`
	Import    ImportConfig    `yaml:"import,omitempty"`
}

// EmbeddingConfig holds embedding service configuration
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // "volcengine" | "openai"

	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Model    string `yaml:"model,omitempty"`

	Dimensions int `yaml:"dimensions"` // vector dimension of the model
	BatchSize  int `yaml:"batch_size"` // texts per embedding request
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	// Path to SQLite database file
	// If empty, uses ~/.memdex/data/memdex.db
	Path string `yaml:"path,omitempty"`
}

// SanitizeConfig holds PII masking configuration
type SanitizeConfig struct {
	PhonePattern string   `yaml:"phone_pattern,omitempty"` // regex override for phone detection
	KeepNames    []string `yaml:"keep_names,omitempty"`    // names never masked (products, brands)
}

// ChunkingConfig holds text chunking configuration
type ChunkingConfig struct {
	MaxChunkSize int `yaml:"max_chunk_size,omitempty"` // runes per chunk
	Overlap      int `yaml:"overlap,omitempty"`        // runes shared between chunks
}

// IndexerConfig holds asynchronous ingestion configuration
type IndexerConfig struct {
	QueueSize      int `yaml:"queue_size,omitempty"`       // pending records before enqueue blocks
	RetryBackoffMS int `yaml:"retry_backoff_ms,omitempty"` // wait before the single embed retry
}

// RetrievalConfig holds cascade search configuration
type RetrievalConfig struct {
	SubScopeThreshold float32 `yaml:"sub_scope_threshold,omitempty"` // narrowest tier
	OwnerThreshold    float32 `yaml:"owner_threshold,omitempty"`     // owner-wide tier
	TopicThreshold    float32 `yaml:"topic_threshold,omitempty"`     // broadest tier

	SubScopeWindowDays int `yaml:"sub_scope_window_days,omitempty"`
	OwnerWindowDays    int `yaml:"owner_window_days,omitempty"`
	TopicWindowDays    int `yaml:"topic_window_days,omitempty"`

	PerTierLimit  int `yaml:"per_tier_limit,omitempty"`  // rows fetched per tier
	MinResults    int `yaml:"min_results,omitempty"`     // stop cascading once reached
	MaxContextLen int `yaml:"max_context_len,omitempty"` // rune cap on the assembled summary
	FallbackLimit int `yaml:"fallback_limit,omitempty"`  // unscoped fallback cap
}

// LifecycleConfig holds retention and repair configuration
type LifecycleConfig struct {
	RetentionDays int `yaml:"retention_days,omitempty"` // records older than this are deleted
	IntervalHours int `yaml:"interval_hours,omitempty"` // background sweep period
	ReembedBatch  int `yaml:"reembed_batch,omitempty"`  // records repaired per sweep
}

// TopicsConfig holds topic tagging configuration
type TopicsConfig struct {
	// VocabularyFile points at a YAML topic vocabulary.
	// If empty, the built-in retail vocabulary is used.
	VocabularyFile string `yaml:"vocabulary_file,omitempty"`
}

// ImportConfig holds catalog import configuration
type ImportConfig struct {
	Exclude []string `yaml:"exclude,omitempty"` // glob patterns skipped during import
}

// Load loads configuration from the default config file
// Default location: ~/.memdex/config/memdex.yaml
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".memdex", "config", "memdex.yaml")
	return LoadFromFile(configPath)
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			homeDir, _ := os.UserHomeDir()
			defaultPath := filepath.Join(homeDir, ".memdex", "config", "memdex.yaml")
			return nil, &ConfigNotFoundError{
				RequestedPath: path,
				DefaultPath:   defaultPath,
			}
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ConfigNotFoundError is returned when config file is not found
type ConfigNotFoundError struct {
	RequestedPath string
	DefaultPath   string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("config file not found at: %s\n\nDefault location: %s\n\nYou can:\n"+
		"  1. Create the config file at the default location\n"+
		"  2. Specify a custom path with -config flag\n"+
		"  3. See 'memdex init' for help creating a config file",
		e.RequestedPath, e.DefaultPath)
}

// IsConfigNotFound checks if error is config not found
func IsConfigNotFound(err error) bool {
	_, ok := err.(*ConfigNotFoundError)
	return ok
}

// expandPath expands ~ and $HOME to the user's home directory
// Supports both:
//
//	~/.memdex/data/memdex.db
//	$HOME/.memdex/data/memdex.db
func expandPath(path string) string {
	if strings.HasPrefix(path, "$HOME/") || path == "$HOME" {
		homeDir := os.Getenv("HOME")
		if homeDir == "" {
			var err error
			homeDir, err = os.UserHomeDir()
			if err != nil {
				return path
			}
		}
		if path == "$HOME" {
			return homeDir
		}
		return filepath.Join(homeDir, path[6:])
	}

	if strings.HasPrefix(path, "~/") || path == "~" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return homeDir
		}
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() error {
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Dimensions == 0 {
		switch c.Embedding.Provider {
		case "volcengine":
			c.Embedding.Dimensions = 2048
		default:
			c.Embedding.Dimensions = 1536
		}
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = 10
	}

	if c.Database.Path != "" {
		c.Database.Path = expandPath(c.Database.Path)
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		c.Database.Path = filepath.Join(homeDir, ".memdex", "data", "memdex.db")
	}

	if c.Chunking.MaxChunkSize == 0 {
		c.Chunking.MaxChunkSize = 500
	}
	if c.Chunking.Overlap == 0 {
		c.Chunking.Overlap = 50
	}

	if c.Indexer.QueueSize == 0 {
		c.Indexer.QueueSize = 256
	}
	if c.Indexer.RetryBackoffMS == 0 {
		c.Indexer.RetryBackoffMS = 500
	}

	if c.Retrieval.SubScopeThreshold == 0 {
		c.Retrieval.SubScopeThreshold = 0.75
	}
	if c.Retrieval.OwnerThreshold == 0 {
		c.Retrieval.OwnerThreshold = 0.6
	}
	if c.Retrieval.TopicThreshold == 0 {
		c.Retrieval.TopicThreshold = 0.4
	}
	if c.Retrieval.SubScopeWindowDays == 0 {
		c.Retrieval.SubScopeWindowDays = 30
	}
	if c.Retrieval.OwnerWindowDays == 0 {
		c.Retrieval.OwnerWindowDays = 60
	}
	if c.Retrieval.TopicWindowDays == 0 {
		c.Retrieval.TopicWindowDays = 90
	}
	if c.Retrieval.PerTierLimit == 0 {
		c.Retrieval.PerTierLimit = 15
	}
	if c.Retrieval.MinResults == 0 {
		c.Retrieval.MinResults = 5
	}
	if c.Retrieval.MaxContextLen == 0 {
		c.Retrieval.MaxContextLen = 2000
	}
	if c.Retrieval.FallbackLimit == 0 {
		c.Retrieval.FallbackLimit = 5
	}

	if c.Lifecycle.RetentionDays == 0 {
		c.Lifecycle.RetentionDays = 90
	}
	if c.Lifecycle.IntervalHours == 0 {
		c.Lifecycle.IntervalHours = 24
	}
	if c.Lifecycle.ReembedBatch == 0 {
		c.Lifecycle.ReembedBatch = 100
	}

	if c.Topics.VocabularyFile != "" {
		c.Topics.VocabularyFile = expandPath(c.Topics.VocabularyFile)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "volcengine", "openai":
		if c.Embedding.APIKey == "" {
			return fmt.Errorf("%s provider requires api_key", c.Embedding.Provider)
		}
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}

	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive, got: %d", c.Embedding.Dimensions)
	}
	if c.Embedding.BatchSize <= 0 || c.Embedding.BatchSize > 100 {
		return fmt.Errorf("batch_size must be between 1 and 100, got: %d", c.Embedding.BatchSize)
	}

	if c.Chunking.Overlap >= c.Chunking.MaxChunkSize {
		return fmt.Errorf("chunking overlap %d must be smaller than max_chunk_size %d",
			c.Chunking.Overlap, c.Chunking.MaxChunkSize)
	}

	if c.Retrieval.SubScopeThreshold < c.Retrieval.OwnerThreshold ||
		c.Retrieval.OwnerThreshold < c.Retrieval.TopicThreshold {
		return fmt.Errorf("retrieval thresholds must narrow-to-broad: sub_scope >= owner >= topic")
	}

	if c.Lifecycle.RetentionDays < c.Retrieval.TopicWindowDays {
		return fmt.Errorf("retention_days %d must cover the widest retrieval window %d",
			c.Lifecycle.RetentionDays, c.Retrieval.TopicWindowDays)
	}

	return nil
}

// Save saves the configuration to the default location
func (c *Config) Save() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".memdex", "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, "memdex.yaml")
	return c.SaveToFile(configPath)
}

// SaveToFile saves the configuration to a specific file
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

const defaultConfigTemplate = `# Memdex Configuration
#
# Copy and edit this file for your environment.
# Default location: $HOME/.memdex/config/memdex.yaml

embedding:
  # Provider: "openai" or "volcengine"
  provider: openai
  api_key: your-api-key
  model: text-embedding-3-small
  dimensions: 1536
  batch_size: 10

  # VolcEngine configuration (alternative)
  # provider: volcengine
  # api_key: your-volcengine-api-key
  # endpoint: https://ark.cn-beijing.volces.com/api/v3/embeddings/multimodal
  # model: doubao-embedding-vision-250615
  # dimensions: 2048

database:
  path: ~/.memdex/data/memdex.db

# sanitize:
#   keep_names: [Aurora, Baltica]

# chunking:
#   max_chunk_size: 500
#   overlap: 50

# retrieval:
#   sub_scope_threshold: 0.75
#   owner_threshold: 0.6
#   topic_threshold: 0.4

# lifecycle:
#   retention_days: 90
#   interval_hours: 24

# topics:
#   vocabulary_file: ~/.memdex/config/topics.yaml

# import:
#   exclude: ["**/draft-*.yaml"]
`

// WriteDefaultTemplate creates a default configuration file if it does not exist.
// It returns true if a file was created, false if it already existed.
func WriteDefaultTemplate(path string) (bool, error) {
	if path == "" {
		return false, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0644); err != nil {
		return false, fmt.Errorf("failed to write config template: %w", err)
	}

	return true, nil
}
