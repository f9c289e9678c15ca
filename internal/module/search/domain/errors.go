package domain

import (
	"errors"
	"fmt"

	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

var (
	// ErrEmptyQuery は検索クエリが空の場合のエラー
	ErrEmptyQuery = fmt.Errorf("%w: query is required", apperr.ErrValidation)

	// ErrCollectionNotFound はコレクションが存在しない場合のエラー
	ErrCollectionNotFound = fmt.Errorf("collection %w", apperr.ErrNotFound)

	// ErrNoEmbedding は埋め込みベクトルが得られなかった場合のエラー
	ErrNoEmbedding = errors.New("no embedding returned")
)
