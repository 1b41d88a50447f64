package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/lumastudio/memdex/internal/config"
)

// ErrUnavailable marks provider failures (network, auth, malformed
// responses). Synchronous ingestion surfaces it to the caller; the
// asynchronous path absorbs it into a zero-vector placeholder that the
// lifecycle sweep repairs later.
var ErrUnavailable = errors.New("embedding service unavailable")

// Service provides embedding generation functionality
type Service struct {
	client    Client
	batchSize int
}

// Client is the interface for embedding API clients
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// NewService creates a new embedding service from configuration
func NewService(cfg *config.EmbeddingConfig) (*Service, error) {
	var client Client
	var err error

	switch cfg.Provider {
	case "volcengine":
		client, err = NewVolcEngineClient(cfg)
	case "openai":
		client, err = NewOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	return NewServiceWithClient(client, cfg.BatchSize), nil
}

// NewServiceWithClient wraps an existing client. Used by tests and by
// callers that bring their own provider.
func NewServiceWithClient(client Client, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Service{client: client, batchSize: batchSize}
}

// Embed generates an embedding for a single text
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}
	return s.client.Embed(ctx, text)
}

// EmbedBatch generates embeddings for multiple texts, windowed by the
// configured batch size. Empty inputs map to nil vectors in the result.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	// Filter out empty texts
	validTexts := make([]string, 0, len(texts))
	validIndices := make([]int, 0, len(texts))
	for i, text := range texts {
		if text != "" {
			validTexts = append(validTexts, text)
			validIndices = append(validIndices, i)
		}
	}

	results := make([][]float32, len(texts))

	for i := 0; i < len(validTexts); i += s.batchSize {
		end := i + s.batchSize
		if end > len(validTexts) {
			end = len(validTexts)
		}

		embeddings, err := s.client.EmbedBatch(ctx, validTexts[i:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch %d-%d: %w", i, end, err)
		}

		// Map results back to original indices
		for j, emb := range embeddings {
			results[validIndices[i+j]] = emb
		}
	}

	return results, nil
}

// Dimensions returns the dimension of the embeddings
func (s *Service) Dimensions() int {
	return s.client.Dimensions()
}

// ZeroVector returns the placeholder stored when embedding fails during
// asynchronous ingestion.
func ZeroVector(dim int) []float32 {
	return make([]float32, dim)
}

// IsZero reports whether vec is empty or carries only zero components
func IsZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

// Similarity computes cosine similarity between two vectors. A zero-norm
// vector or a dimension mismatch yields 0; zero-vector placeholders must
// never match anything.
func Similarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct float32
	var normA float32
	var normB float32

	for i := 0; i < len(a); i++ {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
