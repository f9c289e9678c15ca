package domain

import (
	"context"
)

// === Vector Store Port ===

// VectorStore はチャンクを保存・検索するベクトルストアのポートです
type VectorStore interface {
	VectorSearcher
	ChunkWriter
	CollectionReader
	DataSourceRepository
}

// VectorSearcher はベクトル検索の読み取り操作を定義します
type VectorSearcher interface {
	// Search は queryVector に近い順に最大 k 件のチャンクを返します
	Search(ctx context.Context, collection string, queryVector []float32, filter Filter, k int) ([]RetrievedContext, error)

	// Scan は条件に一致するチャンクを順位付けせずに最大 limit 件返します
	Scan(ctx context.Context, collection string, filter Filter, limit int) ([]RetrievedContext, error)
}

// ChunkWriter はチャンクを保存するポートです
type ChunkWriter interface {
	// Upsert は未保存のチャンクのみを保存し、新規に保存した件数を返します
	Upsert(ctx context.Context, collection string, chunks []Chunk) (int, error)
}

// CollectionReader は管理画面向けのコレクション参照ポートです
type CollectionReader interface {
	ListCollections(ctx context.Context) ([]Collection, error)
	ListDocuments(ctx context.Context, collection string) ([]Document, error)
	ListEmbeddings(ctx context.Context, collection, appID string) ([]EmbeddedDocument, error)
}

// DataSourceRepository はデータソース単位の操作ポートです
type DataSourceRepository interface {
	ListDataSources(ctx context.Context, collection, appID string) ([]DataSource, error)
	GetByHash(ctx context.Context, collection, hash string) (*Document, error)
	DeleteByResource(ctx context.Context, collection, resourceID string) (int, error)
}

// Embedder はテキストをベクトルに変換するポートです
type Embedder interface {
	// Embed は単一テキストのEmbeddingを生成します
	Embed(ctx context.Context, text string) ([]float32, error)
}
