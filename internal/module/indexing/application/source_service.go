package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jinford/ppx-backend/internal/module/indexing/domain"
	searchdomain "github.com/jinford/ppx-backend/internal/module/search/domain"
	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

// Indexer はデータソースをインデックスするポート
type Indexer interface {
	Index(ctx context.Context, params IndexParams) (*IndexResult, error)
}

// SourceService はデータソース管理のユースケースを提供します
type SourceService struct {
	store      domain.DataSourceStore
	indexer    Indexer
	appID      string
	collection string
	log        *slog.Logger
}

// NewSourceService は新しいSourceServiceを作成します
func NewSourceService(store domain.DataSourceStore, indexer Indexer, appID, collection string, log *slog.Logger) *SourceService {
	return &SourceService{
		store:      store,
		indexer:    indexer,
		appID:      appID,
		collection: collection,
		log:        log,
	}
}

// ListSources はデータソース一覧を取得します
func (s *SourceService) ListSources(ctx context.Context) ([]searchdomain.DataSource, error) {
	sources, err := s.store.ListDataSources(ctx, s.collection, s.appID)
	if err != nil {
		s.log.Error("Failed to list data sources",
			"collection", s.collection,
			"error", err,
		)
		return nil, fmt.Errorf("failed to list data sources: %w", err)
	}

	for i := range sources {
		sources[i].AppID = s.appID
	}
	return sources, nil
}

// SourceContent はデータソースの本文とメタデータ
type SourceContent struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// GetSource はハッシュでデータソースを取得します
func (s *SourceService) GetSource(ctx context.Context, hash string) (*SourceContent, error) {
	if hash == "" {
		return nil, apperr.Validation("source hash is required")
	}

	doc, err := s.store.GetByHash(ctx, s.collection, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get data source: %w", err)
	}
	if doc == nil {
		return nil, apperr.NotFound("data source not found: %s", hash)
	}

	return &SourceContent{Content: doc.Document, Metadata: doc.Metadata}, nil
}

// AddSourceParams はデータソース追加のパラメータ
// Metadata と EnvVariables はJSONオブジェクトの文字列です
type AddSourceParams struct {
	DataType     string
	DataValue    string
	Metadata     string
	EnvVariables string
}

// AddSource はデータソースを検証してインデックスします
// text の場合、メタデータの url は "local" になります
func (s *SourceService) AddSource(ctx context.Context, params AddSourceParams) (*IndexResult, error) {
	if strings.TrimSpace(params.DataValue) == "" {
		return nil, apperr.Validation("dataValue is required")
	}

	metadata := map[string]any{}
	if params.Metadata != "" {
		m, ok := parseJSONObject(params.Metadata)
		if !ok {
			return nil, apperr.Validation("invalid metadata. Enter a valid JSON object")
		}
		metadata = m
	}

	if params.EnvVariables != "" {
		if _, ok := parseJSONObject(params.EnvVariables); !ok {
			return nil, apperr.Validation("invalid environment variables. Enter a valid JSON object")
		}
	}

	dataType := domain.DataType(params.DataType)
	if dataType == domain.DataTypeText {
		metadata[domain.MetaURL] = domain.LocalURL
	}

	result, err := s.indexer.Index(ctx, IndexParams{
		DataType: dataType,
		Source:   params.DataValue,
		Metadata: metadata,
	})
	if err != nil {
		s.log.Error("Failed to add data source",
			"dataType", dataType,
			"error", err,
		)
		return nil, err
	}

	return result, nil
}

// DeleteSource は resource_id に紐づくデータソースを削除します
// collection が空の場合は既定のコレクションを使います
func (s *SourceService) DeleteSource(ctx context.Context, resourceID, collection string) (int, error) {
	if resourceID == "" {
		return 0, apperr.Validation("resource_id is required")
	}
	if collection == "" {
		collection = s.collection
	}

	deleted, err := s.store.DeleteByResource(ctx, collection, resourceID)
	if err != nil {
		s.log.Error("Failed to delete resource",
			"resourceID", resourceID,
			"collection", collection,
			"error", err,
		)
		return 0, fmt.Errorf("failed to delete resource: %w", err)
	}

	s.log.Info("Resource deleted",
		"resourceID", resourceID,
		"collection", collection,
		"chunks", deleted,
	)
	return deleted, nil
}

// parseJSONObject は文字列がJSONオブジェクトであればマップを返します
func parseJSONObject(s string) (map[string]any, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	return m, true
}
