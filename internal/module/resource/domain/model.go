package domain

import "context"

// Resource はユーザーがアップロードしたリソース
type Resource struct {
	ID        string            `json:"id"`
	Path      string            `json:"path"`
	Type      string            `json:"type"`
	CreatedAt string            `json:"createdAt"`
	UpdatedAt string            `json:"updatedAt"`
	Deleted   bool              `json:"deleted"`
	Metadata  *ResourceMetadata `json:"metadata"`
}

// ResourceMetadata はリソースに1対1で紐づくメタデータ
type ResourceMetadata struct {
	ID          string `json:"id"`
	ResourceID  string `json:"resourceId"`
	Name        string `json:"name"`
	SourceURI   string `json:"sourceURI"`
	Alt         string `json:"alt"`
	UserContext string `json:"userContext"`
}

// Repository はリソースの読み取りポート
type Repository interface {
	// FindByID はリソースを返します。存在しない場合は nil, nil を返します
	FindByID(ctx context.Context, id string) (*Resource, error)
}
