package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

// messageResponse はメッセージのみのレスポンス
type messageResponse struct {
	Message string `json:"message"`
}

// respondJSON はステータスコードとJSONを書き込みます
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// respondMessage は {"message": ...} を書き込みます
func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, messageResponse{Message: message})
}

// respondError はエラーの種類に応じたステータスコードでエラーを書き込みます
// サーバ側のエラーはログに記録し、エラー内容をメッセージに含めて返します
func respondError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		respondMessage(w, status, "An error occurred: "+err.Error()+".")
		return
	}
	respondMessage(w, status, err.Error())
}

// statusFor はエラーをHTTPステータスコードに変換します
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrClassificationConflict):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON はリクエストボディをJSONとして読み込みます
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	return nil
}
