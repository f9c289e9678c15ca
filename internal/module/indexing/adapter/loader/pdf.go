package loader

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/jinford/ppx-backend/internal/module/indexing/domain"
	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

// PDFLoader はPDFファイルをページ単位で読み込むローダー
type PDFLoader struct {
	httpClient *http.Client
}

// NewPDFLoader は新しいPDFLoaderを作成します
func NewPDFLoader(httpClient *http.Client) *PDFLoader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &PDFLoader{httpClient: httpClient}
}

// Load はPDF（URLまたはファイルパス）を読み込み、ページごとに1レコードを返します
func (l *PDFLoader) Load(ctx context.Context, src string) (*domain.LoadResult, error) {
	data, err := readSource(ctx, l.httpClient, src)
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, apperr.Validation("invalid pdf file %s: %v", src, err)
	}

	var records []domain.Record
	var all strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}
		content := domain.CleanString(text)
		if content == "" {
			continue
		}
		all.WriteString(content)
		records = append(records, domain.Record{
			Content: content,
			Metadata: map[string]any{
				domain.MetaURL: src,
				"page":         i,
			},
		})
	}

	if len(records) == 0 {
		return nil, apperr.NotFound("no data found for pdf: %s", src)
	}

	return &domain.LoadResult{
		DocID:    docID(all.String(), src),
		DataType: domain.DataTypePDFFile,
		Source:   src,
		Data:     records,
	}, nil
}

var _ domain.Loader = (*PDFLoader)(nil)
