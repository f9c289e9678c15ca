package testing

import (
	"context"

	"github.com/jinford/ppx-backend/internal/module/indexing/application"
)

// MockIndexer はテスト用のモックIndexerです
type MockIndexer struct {
	IndexFunc func(ctx context.Context, params application.IndexParams) (*application.IndexResult, error)
}

func (m *MockIndexer) Index(ctx context.Context, params application.IndexParams) (*application.IndexResult, error) {
	if m.IndexFunc != nil {
		return m.IndexFunc(ctx, params)
	}
	return &application.IndexResult{DocID: "doc", Chunks: 1, Inserted: 1}, nil
}

var _ application.Indexer = (*MockIndexer)(nil)
