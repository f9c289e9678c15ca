package testing

import (
	"github.com/jinford/ppx-backend/internal/module/indexing/domain"
)

// TestLoadResult はテスト用のテキストデータソースの読み込み結果を作成します
func TestLoadResult(content string) *domain.LoadResult {
	return &domain.LoadResult{
		DocID:    "doc-" + content,
		DataType: domain.DataTypeText,
		Source:   domain.LocalURL,
		Data: []domain.Record{
			{
				Content:  content,
				Metadata: map[string]any{domain.MetaURL: domain.LocalURL},
			},
		},
	}
}

// TestMetadata はテスト用のデータソースのメタデータを作成します
func TestMetadata(hash, dataType, url string) map[string]any {
	return map[string]any{
		domain.MetaHash:     hash,
		domain.MetaDataType: dataType,
		domain.MetaURL:      url,
	}
}
