package domain

import "errors"

var (
	// ErrEmptySessionID はセッションIDが空の場合のエラー
	ErrEmptySessionID = errors.New("session id is required")

	// ErrMalformedSources は sources ブロックを解析できない場合のエラー
	ErrMalformedSources = errors.New("malformed sources block")
)
