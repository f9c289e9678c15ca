package testing

import (
	"context"

	"github.com/jinford/ppx-backend/internal/module/search/domain"
)

// MockVectorStore はテスト用のモックVectorStoreです
type MockVectorStore struct {
	SearchFunc           func(ctx context.Context, collection string, queryVector []float32, filter domain.Filter, k int) ([]domain.RetrievedContext, error)
	ScanFunc             func(ctx context.Context, collection string, filter domain.Filter, limit int) ([]domain.RetrievedContext, error)
	UpsertFunc           func(ctx context.Context, collection string, chunks []domain.Chunk) (int, error)
	ListCollectionsFunc  func(ctx context.Context) ([]domain.Collection, error)
	ListDocumentsFunc    func(ctx context.Context, collection string) ([]domain.Document, error)
	ListEmbeddingsFunc   func(ctx context.Context, collection, appID string) ([]domain.EmbeddedDocument, error)
	ListDataSourcesFunc  func(ctx context.Context, collection, appID string) ([]domain.DataSource, error)
	GetByHashFunc        func(ctx context.Context, collection, hash string) (*domain.Document, error)
	DeleteByResourceFunc func(ctx context.Context, collection, resourceID string) (int, error)
}

var _ domain.VectorStore = (*MockVectorStore)(nil)

func (m *MockVectorStore) Search(ctx context.Context, collection string, queryVector []float32, filter domain.Filter, k int) ([]domain.RetrievedContext, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, collection, queryVector, filter, k)
	}
	return nil, nil
}

func (m *MockVectorStore) Scan(ctx context.Context, collection string, filter domain.Filter, limit int) ([]domain.RetrievedContext, error) {
	if m.ScanFunc != nil {
		return m.ScanFunc(ctx, collection, filter, limit)
	}
	return nil, nil
}

func (m *MockVectorStore) Upsert(ctx context.Context, collection string, chunks []domain.Chunk) (int, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, collection, chunks)
	}
	return len(chunks), nil
}

func (m *MockVectorStore) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	if m.ListCollectionsFunc != nil {
		return m.ListCollectionsFunc(ctx)
	}
	return nil, nil
}

func (m *MockVectorStore) ListDocuments(ctx context.Context, collection string) ([]domain.Document, error) {
	if m.ListDocumentsFunc != nil {
		return m.ListDocumentsFunc(ctx, collection)
	}
	return nil, nil
}

func (m *MockVectorStore) ListEmbeddings(ctx context.Context, collection, appID string) ([]domain.EmbeddedDocument, error) {
	if m.ListEmbeddingsFunc != nil {
		return m.ListEmbeddingsFunc(ctx, collection, appID)
	}
	return nil, nil
}

func (m *MockVectorStore) ListDataSources(ctx context.Context, collection, appID string) ([]domain.DataSource, error) {
	if m.ListDataSourcesFunc != nil {
		return m.ListDataSourcesFunc(ctx, collection, appID)
	}
	return nil, nil
}

func (m *MockVectorStore) GetByHash(ctx context.Context, collection, hash string) (*domain.Document, error) {
	if m.GetByHashFunc != nil {
		return m.GetByHashFunc(ctx, collection, hash)
	}
	return nil, nil
}

func (m *MockVectorStore) DeleteByResource(ctx context.Context, collection, resourceID string) (int, error) {
	if m.DeleteByResourceFunc != nil {
		return m.DeleteByResourceFunc(ctx, collection, resourceID)
	}
	return 0, nil
}

// MockEmbedder はテスト用のモックEmbedderです
type MockEmbedder struct {
	EmbedFunc    func(ctx context.Context, text string) ([]float32, error)
	EmbedAllFunc func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return []float32{1, 0, 0}, nil
}

func (m *MockEmbedder) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if m.EmbedAllFunc != nil {
		return m.EmbedAllFunc(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}
