package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jinford/ppx-backend/internal/module/resource/domain"
)

const (
	selectResource = `
SELECT id, path, type, created_at, updated_at, deleted
FROM resources
WHERE id = ?`

	selectResourceMetadata = `
SELECT id, resource_id, name, source_uri, alt, user_context
FROM resource_metadata
WHERE resource_id = ?
LIMIT 1`
)

// Repository は SQLite の resources テーブルを読む domain.Repository 実装です
type Repository struct {
	db *sql.DB
}

var _ domain.Repository = (*Repository)(nil)

// NewRepository は新しいRepositoryを作成します
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FindByID はリソースとメタデータを取得します
func (r *Repository) FindByID(ctx context.Context, id string) (*domain.Resource, error) {
	var (
		res                  domain.Resource
		path, typ            sql.NullString
		createdAt, updatedAt sql.NullString
		deleted              sql.NullInt64
	)

	err := r.db.QueryRowContext(ctx, selectResource, id).Scan(
		&res.ID, &path, &typ, &createdAt, &updatedAt, &deleted,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query resource: %w", err)
	}

	res.Path = path.String
	res.Type = typ.String
	res.CreatedAt = createdAt.String
	res.UpdatedAt = updatedAt.String
	res.Deleted = deleted.Valid && deleted.Int64 == 1

	metadata, err := r.findMetadata(ctx, res.ID)
	if err != nil {
		return nil, err
	}
	res.Metadata = metadata

	return &res, nil
}

func (r *Repository) findMetadata(ctx context.Context, resourceID string) (*domain.ResourceMetadata, error) {
	var (
		m                                 domain.ResourceMetadata
		name, sourceURI, alt, userContext sql.NullString
	)

	err := r.db.QueryRowContext(ctx, selectResourceMetadata, resourceID).Scan(
		&m.ID, &m.ResourceID, &name, &sourceURI, &alt, &userContext,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query resource metadata: %w", err)
	}

	m.Name = name.String
	m.SourceURI = sourceURI.String
	m.Alt = alt.String
	m.UserContext = userContext.String

	return &m, nil
}
