package testing

import (
	"context"

	"github.com/jinford/ppx-backend/internal/module/indexing/domain"
	searchdomain "github.com/jinford/ppx-backend/internal/module/search/domain"
)

// MockChunkWriter はテスト用のモックChunkWriterです
type MockChunkWriter struct {
	UpsertFunc func(ctx context.Context, collection string, chunks []searchdomain.Chunk) (int, error)
}

func (m *MockChunkWriter) Upsert(ctx context.Context, collection string, chunks []searchdomain.Chunk) (int, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, collection, chunks)
	}
	return len(chunks), nil
}

// MockDataSourceStore はテスト用のモックDataSourceStoreです
type MockDataSourceStore struct {
	ListDataSourcesFunc  func(ctx context.Context, collection, appID string) ([]searchdomain.DataSource, error)
	GetByHashFunc        func(ctx context.Context, collection, hash string) (*searchdomain.Document, error)
	DeleteByResourceFunc func(ctx context.Context, collection, resourceID string) (int, error)
}

func (m *MockDataSourceStore) ListDataSources(ctx context.Context, collection, appID string) ([]searchdomain.DataSource, error) {
	if m.ListDataSourcesFunc != nil {
		return m.ListDataSourcesFunc(ctx, collection, appID)
	}
	return nil, nil
}

func (m *MockDataSourceStore) GetByHash(ctx context.Context, collection, hash string) (*searchdomain.Document, error) {
	if m.GetByHashFunc != nil {
		return m.GetByHashFunc(ctx, collection, hash)
	}
	return nil, nil
}

func (m *MockDataSourceStore) DeleteByResource(ctx context.Context, collection, resourceID string) (int, error) {
	if m.DeleteByResourceFunc != nil {
		return m.DeleteByResourceFunc(ctx, collection, resourceID)
	}
	return 0, nil
}

// MockEmbedder はテスト用のモックEmbedderです
type MockEmbedder struct {
	EmbedAllFunc func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *MockEmbedder) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if m.EmbedAllFunc != nil {
		return m.EmbedAllFunc(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1, 0}
	}
	return out, nil
}

// MockLoader はテスト用のモックLoaderです
type MockLoader struct {
	LoadFunc func(ctx context.Context, src string) (*domain.LoadResult, error)
}

func (m *MockLoader) Load(ctx context.Context, src string) (*domain.LoadResult, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, src)
	}
	return TestLoadResult(src), nil
}

var (
	_ domain.ChunkWriter     = (*MockChunkWriter)(nil)
	_ domain.DataSourceStore = (*MockDataSourceStore)(nil)
	_ domain.Embedder        = (*MockEmbedder)(nil)
	_ domain.Loader          = (*MockLoader)(nil)
)
