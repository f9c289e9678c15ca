package domain

import "errors"

var (
	// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
	ErrAPIKeyNotSet = errors.New("API key not set")

	// ErrRateLimitExceeded はレート制限を超えた場合のエラー
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrCircuitOpen はサーキットブレーカーが開いている場合のエラー
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrEmptyResponse はモデルが何も返さなかった場合のエラー
	ErrEmptyResponse = errors.New("empty response")

	// ErrMaxRetriesExceeded は最大リトライ回数を超えた場合のエラー
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)
