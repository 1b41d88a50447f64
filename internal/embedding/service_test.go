package embedding

import (
	"context"
	"fmt"
	"testing"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float32
	}{
		{
			name:     "identical vectors",
			a:        []float32{1, 2, 3},
			b:        []float32{1, 2, 3},
			expected: 1.0,
		},
		{
			name:     "orthogonal vectors",
			a:        []float32{1, 0, 0},
			b:        []float32{0, 1, 0},
			expected: 0.0,
		},
		{
			name:     "opposite vectors",
			a:        []float32{1, 1, 1},
			b:        []float32{-1, -1, -1},
			expected: -1.0,
		},
		{
			name:     "similar vectors",
			a:        []float32{1, 2, 3},
			b:        []float32{1.1, 2.1, 3.1},
			expected: 0.999, // Approximately
		},
		{
			name:     "zero vector never matches",
			a:        []float32{0, 0, 0},
			b:        []float32{1, 2, 3},
			expected: 0.0,
		},
		{
			name:     "dimension mismatch",
			a:        []float32{1, 2},
			b:        []float32{1, 2, 3},
			expected: 0.0,
		},
		{
			name:     "empty vectors",
			a:        nil,
			b:        nil,
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Similarity(tt.a, tt.b)
			diff := result - tt.expected
			if diff < 0 {
				diff = -diff
			}
			if diff > 0.001 {
				t.Errorf("Similarity() = %v, want %v (diff: %v)", result, tt.expected, diff)
			}
		})
	}
}

func TestZeroVector(t *testing.T) {
	vec := ZeroVector(8)
	if len(vec) != 8 {
		t.Fatalf("ZeroVector(8) length = %d, want 8", len(vec))
	}
	if !IsZero(vec) {
		t.Error("ZeroVector(8) should satisfy IsZero")
	}
}

func TestIsZero(t *testing.T) {
	tests := []struct {
		name string
		vec  []float32
		want bool
	}{
		{name: "nil vector", vec: nil, want: true},
		{name: "all zeros", vec: []float32{0, 0, 0}, want: true},
		{name: "one nonzero", vec: []float32{0, 0.1, 0}, want: false},
		{name: "negative component", vec: []float32{0, -0.5}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsZero(tt.vec); got != tt.want {
				t.Errorf("IsZero(%v) = %v, want %v", tt.vec, got, tt.want)
			}
		})
	}
}

type countingClient struct {
	dim   int
	calls []int
}

func (c *countingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *countingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls = append(c.calls, len(texts))
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, c.dim)
		vec[0] = 1
		out[i] = vec
	}
	return out, nil
}

func (c *countingClient) Dimensions() int { return c.dim }

func TestEmbedBatchWindowsRequests(t *testing.T) {
	client := &countingClient{dim: 4}
	svc := NewServiceWithClient(client, 2)

	texts := []string{"a", "b", "c", "d", "e"}
	results, err := svc.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(results) != len(texts) {
		t.Fatalf("got %d results, want %d", len(results), len(texts))
	}
	for i, vec := range results {
		if len(vec) != 4 {
			t.Errorf("result %d has dimension %d, want 4", i, len(vec))
		}
	}

	// 5 texts at batch size 2 means windows of 2, 2, 1
	want := []int{2, 2, 1}
	if len(client.calls) != len(want) {
		t.Fatalf("got %d batch calls %v, want %v", len(client.calls), client.calls, want)
	}
	for i, n := range want {
		if client.calls[i] != n {
			t.Errorf("batch call %d size = %d, want %d", i, client.calls[i], n)
		}
	}
}

func TestEmbedBatchSkipsEmptyTexts(t *testing.T) {
	client := &countingClient{dim: 4}
	svc := NewServiceWithClient(client, 10)

	results, err := svc.EmbedBatch(context.Background(), []string{"a", "", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[1] != nil {
		t.Errorf("empty text should map to nil vector, got %v", results[1])
	}
	if results[0] == nil || results[2] == nil {
		t.Error("non-empty texts should have vectors")
	}
}

func TestEmbedRejectsEmptyText(t *testing.T) {
	svc := NewServiceWithClient(&countingClient{dim: 4}, 10)
	if _, err := svc.Embed(context.Background(), ""); err == nil {
		t.Error("Embed(\"\") should return an error")
	}
}

type failingClient struct{ dim int }

func (c *failingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("provider down: %w", ErrUnavailable)
}

func (c *failingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, fmt.Errorf("provider down: %w", ErrUnavailable)
}

func (c *failingClient) Dimensions() int { return c.dim }

func TestEmbedBatchPropagatesUnavailable(t *testing.T) {
	svc := NewServiceWithClient(&failingClient{dim: 4}, 10)
	_, err := svc.EmbedBatch(context.Background(), []string{"a"})
	if err == nil {
		t.Fatal("expected error from failing client")
	}
}
