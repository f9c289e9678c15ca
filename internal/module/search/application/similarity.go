package application

import (
	"context"
	"fmt"
	"math"

	searchdomain "github.com/jinford/ppx-backend/internal/module/search/domain"
	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

// DefaultSimilarityThreshold はドキュメント類似度の既定のしきい値
const DefaultSimilarityThreshold = 0.5

// BatchEmbedder は複数テキストをまとめて埋め込むポート
type BatchEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedAll(ctx context.Context, texts []string) ([][]float32, error)
}

// DocSimilarity はドキュメントとクエリのコサイン類似度
type DocSimilarity struct {
	Doc        string  `json:"doc"`
	Similarity float64 `json:"similarity"`
}

// SimilarityService はクエリと各ドキュメントの類似度を計算します
type SimilarityService struct {
	embedder BatchEmbedder
}

// NewSimilarityService は新しいSimilarityServiceを作成します
func NewSimilarityService(embedder BatchEmbedder) *SimilarityService {
	return &SimilarityService{embedder: embedder}
}

// DocsSimilarity は類似度が threshold 以上のドキュメントを入力順に返します
func (s *SimilarityService) DocsSimilarity(ctx context.Context, query string, docs []string, threshold float64) ([]DocSimilarity, error) {
	if query == "" {
		return nil, searchdomain.ErrEmptyQuery
	}
	results := make([]DocSimilarity, 0, len(docs))
	if len(docs) == 0 {
		return results, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, apperr.Upstream("embed query", err)
	}
	docVecs, err := s.embedder.EmbedAll(ctx, docs)
	if err != nil {
		return nil, apperr.Upstream("embed documents", err)
	}
	if len(docVecs) != len(docs) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(docVecs), len(docs))
	}

	for i, doc := range docs {
		sim := CosineSimilarity(queryVec, docVecs[i])
		if sim >= threshold {
			results = append(results, DocSimilarity{Doc: doc, Similarity: sim})
		}
	}
	return results, nil
}

// CosineSimilarity は2つのベクトルのコサイン類似度を返します
// 長さが異なる場合やゼロベクトルの場合は0を返します
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
