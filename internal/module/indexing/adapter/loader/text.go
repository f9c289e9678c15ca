package loader

import (
	"context"

	"github.com/jinford/ppx-backend/internal/module/indexing/domain"
	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

// TextLoader は入力文字列そのものを本文とするローダー
type TextLoader struct{}

// NewTextLoader は新しいTextLoaderを作成します
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load は src を本文として読み込みます。URLは "local" になります
func (l *TextLoader) Load(_ context.Context, src string) (*domain.LoadResult, error) {
	if src == "" {
		return nil, apperr.Validation("text data source is empty")
	}

	return &domain.LoadResult{
		DocID:    docID(src, domain.LocalURL),
		DataType: domain.DataTypeText,
		Source:   domain.LocalURL,
		Data: []domain.Record{
			{
				Content:  src,
				Metadata: map[string]any{domain.MetaURL: domain.LocalURL},
			},
		},
	}, nil
}

var _ domain.Loader = (*TextLoader)(nil)
