package loader

import (
	"github.com/jinford/ppx-backend/internal/module/indexing/domain"
	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

// Registry はデータ種別ごとのローダーを保持します
type Registry struct {
	loaders map[domain.DataType]domain.Loader
}

// NewRegistry は新しいRegistryを作成します
func NewRegistry() *Registry {
	return &Registry{loaders: make(map[domain.DataType]domain.Loader)}
}

// Register はローダーを登録します
func (r *Registry) Register(dataType domain.DataType, l domain.Loader) *Registry {
	r.loaders[dataType] = l
	return r
}

// Get はデータ種別に対応するローダーを返します
func (r *Registry) Get(dataType domain.DataType) (domain.Loader, error) {
	l, ok := r.loaders[dataType]
	if !ok {
		return nil, apperr.Validation("unsupported data type: %s", dataType)
	}
	return l, nil
}
