package testing

import (
	"encoding/json"
	"strconv"

	searchdomain "github.com/jinford/ppx-backend/internal/module/search/domain"
)

// TestContext はテスト用の検索結果を作成します
func TestContext(text, resourceID, url string, timestamp float64) searchdomain.RetrievedContext {
	return searchdomain.RetrievedContext{
		ID:   "chunk-" + resourceID,
		Text: text,
		Metadata: map[string]any{
			"resource_id": resourceID,
			"url":         url,
			"timestamp":   json.Number(strconv.FormatFloat(timestamp, 'f', -1, 64)),
		},
	}
}
