package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation は入力値が不正な場合のエラー (HTTP 400)
	ErrValidation = errors.New("validation error")

	// ErrNotFound は対象が存在しない場合のエラー (HTTP 404)
	ErrNotFound = errors.New("not found")

	// ErrUpstream はベクトルストアやLLMなど外部サービスの失敗を表す
	ErrUpstream = errors.New("upstream error")

	// ErrClassificationConflict は質問文が必要なのに質問と判定されなかった場合のエラー (HTTP 400)
	ErrClassificationConflict = errors.New("classification conflict")
)

// Validation は ErrValidation をラップしたエラーを返します
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound は ErrNotFound をラップしたエラーを返します
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Upstream は外部サービスのエラーを ErrUpstream でラップします
func Upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstream, op, err)
}

// ClassificationConflict は ErrClassificationConflict をラップしたエラーを返します
func ClassificationConflict(query string) error {
	return fmt.Errorf("%w: query is not a question: %q", ErrClassificationConflict, query)
}

// IsClientError はHTTP 4xx として扱うべきエラーかどうかを判定します
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrClassificationConflict)
}
