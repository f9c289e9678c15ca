package domain

import (
	"context"

	searchdomain "github.com/jinford/ppx-backend/internal/module/search/domain"
)

// ChunkWriter はチャンクをベクトルストアへ保存するポート
type ChunkWriter interface {
	// Upsert は同じIDのチャンクを上書きせずに保存し、新規に保存した件数を返します
	Upsert(ctx context.Context, collection string, chunks []searchdomain.Chunk) (int, error)
}

// DataSourceStore は管理画面向けのデータソース操作ポート
type DataSourceStore interface {
	ListDataSources(ctx context.Context, collection, appID string) ([]searchdomain.DataSource, error)
	GetByHash(ctx context.Context, collection, hash string) (*searchdomain.Document, error)
	DeleteByResource(ctx context.Context, collection, resourceID string) (int, error)
}
