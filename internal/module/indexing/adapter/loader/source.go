package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

const (
	// DefaultTimeout はリモートのデータソース取得のタイムアウト
	DefaultTimeout = 60 * time.Second

	// MaxSourceSize は読み込むデータソースの最大バイト数
	MaxSourceSize = 100 << 20
)

func isRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// readSource はURLまたはローカルファイルからデータを読み込みます
func readSource(ctx context.Context, client *http.Client, src string) ([]byte, error) {
	if !isRemote(src) {
		data, err := os.ReadFile(src)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, apperr.NotFound("file not found: %s", src)
			}
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, apperr.Validation("invalid url: %s", src)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, apperr.Upstream("fetch "+src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Upstream("fetch "+src, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxSourceSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}

// docID は本文とURLからドキュメントIDを計算します
func docID(content, url string) string {
	sum := sha256.Sum256([]byte(content + url))
	return hex.EncodeToString(sum[:])
}
