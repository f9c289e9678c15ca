package database

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema は pgvector 拡張とチャンクテーブルを作成します
// dimension は埋め込みベクトルの次元数で、テーブル作成時にのみ使われます
func (db *Database) EnsureSchema(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid embedding dimension: %d", dimension)
	}

	ddl := strings.ReplaceAll(schemaSQL, "{{DIMENSION}}", fmt.Sprintf("%d", dimension))
	if _, err := db.Pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
