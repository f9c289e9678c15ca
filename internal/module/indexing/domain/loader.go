package domain

import "context"

// Loader はデータソースから本文とメタデータを読み込むインターフェース
type Loader interface {
	// Load は src（URL、ファイルパスまたは本文）を読み込みます
	Load(ctx context.Context, src string) (*LoadResult, error)
}
