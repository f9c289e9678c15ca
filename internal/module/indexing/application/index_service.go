package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/ppx-backend/internal/module/indexing/domain"
	searchdomain "github.com/jinford/ppx-backend/internal/module/search/domain"
)

// LoaderResolver はデータ種別に対応するローダーを返すポート
type LoaderResolver interface {
	Get(dataType domain.DataType) (domain.Loader, error)
}

// IndexService はデータソースを読み込み、チャンク化・埋め込みしてベクトルストアに保存します
type IndexService struct {
	loaders      LoaderResolver
	chunker      domain.Chunker
	embedder     domain.Embedder
	writer       domain.ChunkWriter
	appID        string
	collection   string
	minChunkSize int
	log          *slog.Logger
}

// IndexServiceConfig はIndexServiceの設定
type IndexServiceConfig struct {
	AppID        string
	Collection   string
	MinChunkSize int
}

// NewIndexService は新しいIndexServiceを作成します
func NewIndexService(
	loaders LoaderResolver,
	chunker domain.Chunker,
	embedder domain.Embedder,
	writer domain.ChunkWriter,
	cfg IndexServiceConfig,
	log *slog.Logger,
) *IndexService {
	if cfg.MinChunkSize < 1 {
		cfg.MinChunkSize = 1
	}
	return &IndexService{
		loaders:      loaders,
		chunker:      chunker,
		embedder:     embedder,
		writer:       writer,
		appID:        cfg.AppID,
		collection:   cfg.Collection,
		minChunkSize: cfg.MinChunkSize,
		log:          log,
	}
}

// IndexParams はインデックス対象のデータソース
type IndexParams struct {
	DataType domain.DataType
	Source   string
	Metadata map[string]any
}

// IndexResult はインデックス処理の結果
type IndexResult struct {
	DocID    string
	Chunks   int
	Inserted int
}

// Index はデータソースを読み込んでベクトルストアに保存します
// 各チャンクのメタデータには利用者指定のメタデータ、app_id、hash（ドキュメントID）が付与されます
func (s *IndexService) Index(ctx context.Context, params IndexParams) (*IndexResult, error) {
	loader, err := s.loaders.Get(params.DataType)
	if err != nil {
		return nil, err
	}

	s.log.Info("Loading data source",
		"dataType", params.DataType,
		"source", truncate(params.Source, 120),
	)

	loaded, err := loader.Load(ctx, params.Source)
	if err != nil {
		s.log.Error("Failed to load data source",
			"dataType", params.DataType,
			"error", err,
		)
		return nil, fmt.Errorf("failed to load data source: %w", err)
	}

	chunks := s.chunker.Chunk(loaded, s.appID, s.minChunkSize)
	if chunks.Len() == 0 {
		s.log.Warn("No chunks produced", "docID", chunks.DocID)
		return &IndexResult{DocID: chunks.DocID}, nil
	}

	for _, m := range chunks.Metadatas {
		for k, v := range params.Metadata {
			m[k] = v
		}
		m[domain.MetaAppID] = s.appID
		m[domain.MetaHash] = chunks.DocID
	}

	embeddings, err := s.embedder.EmbedAll(ctx, chunks.Texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(embeddings) != chunks.Len() {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(embeddings), chunks.Len())
	}

	records := make([]searchdomain.Chunk, chunks.Len())
	for i := range records {
		records[i] = searchdomain.Chunk{
			ID:        chunks.IDs[i],
			Document:  chunks.Texts[i],
			Metadata:  chunks.Metadatas[i],
			Embedding: embeddings[i],
		}
	}

	inserted, err := s.writer.Upsert(ctx, s.collection, records)
	if err != nil {
		return nil, fmt.Errorf("failed to store chunks: %w", err)
	}

	s.log.Info("Data source indexed",
		"docID", chunks.DocID,
		"chunks", chunks.Len(),
		"inserted", inserted,
	)

	return &IndexResult{
		DocID:    chunks.DocID,
		Chunks:   chunks.Len(),
		Inserted: inserted,
	}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
