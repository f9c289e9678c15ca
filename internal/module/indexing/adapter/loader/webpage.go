package loader

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jinford/ppx-backend/internal/module/indexing/domain"
	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

// 本文として扱わない要素
var webPageNoiseSelectors = "script, style, noscript, nav, header, footer, aside, form, iframe, svg"

// WebPageLoader はWebページの本文を読み込むローダー
type WebPageLoader struct {
	httpClient *http.Client
}

// NewWebPageLoader は新しいWebPageLoaderを作成します
func NewWebPageLoader(httpClient *http.Client) *WebPageLoader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &WebPageLoader{httpClient: httpClient}
}

// Load はURLのHTMLを取得し、本文テキストとタイトル等のメタデータを抽出します
func (l *WebPageLoader) Load(ctx context.Context, url string) (*domain.LoadResult, error) {
	if !isRemote(url) {
		return nil, apperr.Validation("web page url must be http or https: %s", url)
	}

	body, err := readSource(ctx, l.httpClient, url)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	metadata := map[string]any{domain.MetaURL: url}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		metadata["title"] = title
	}
	if desc, ok := doc.Find("meta[name='description']").Attr("content"); ok && desc != "" {
		metadata["description"] = strings.TrimSpace(desc)
	}

	doc.Find(webPageNoiseSelectors).Remove()
	content := domain.CleanString(doc.Find("body").Text())
	if content == "" {
		return nil, apperr.NotFound("no data found for url: %s", url)
	}

	return &domain.LoadResult{
		DocID:    docID(content, url),
		DataType: domain.DataTypeWebPage,
		Source:   url,
		Data: []domain.Record{
			{Content: content, Metadata: metadata},
		},
	}, nil
}

var _ domain.Loader = (*WebPageLoader)(nil)
