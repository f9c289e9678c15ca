package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	searchtesting "github.com/jinford/ppx-backend/internal/module/search/testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{name: "同じ向き", a: []float32{1, 2}, b: []float32{2, 4}, expected: 1},
		{name: "直交", a: []float32{1, 0}, b: []float32{0, 1}, expected: 0},
		{name: "逆向き", a: []float32{1, 0}, b: []float32{-1, 0}, expected: -1},
		{name: "長さが異なる", a: []float32{1}, b: []float32{1, 0}, expected: 0},
		{name: "ゼロベクトル", a: []float32{0, 0}, b: []float32{1, 0}, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilarityService_DocsSimilarity(t *testing.T) {
	vectors := map[string][]float32{
		"query": {1, 0},
		"same":  {2, 0},
		"close": {1, 1},
		"far":   {0, 1},
	}
	embedder := &searchtesting.MockEmbedder{
		EmbedFunc: func(ctx context.Context, text string) ([]float32, error) {
			return vectors[text], nil
		},
		EmbedAllFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
			out := make([][]float32, len(texts))
			for i, t := range texts {
				out[i] = vectors[t]
			}
			return out, nil
		},
	}
	s := NewSimilarityService(embedder)

	results, err := s.DocsSimilarity(context.Background(), "query", []string{"same", "far", "close"}, DefaultSimilarityThreshold)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "same", results[0].Doc)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)
	assert.Equal(t, "close", results[1].Doc)
	assert.InDelta(t, 0.7071, results[1].Similarity, 1e-3)

	results, err = s.DocsSimilarity(context.Background(), "query", nil, 0.5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
