package domain

import (
	"context"
)

// Embedder はテキストをベクトルに変換するインターフェース
type Embedder interface {
	// EmbedAll は複数テキストのEmbeddingを入力順に生成します
	EmbedAll(ctx context.Context, texts []string) ([][]float32, error)
}
