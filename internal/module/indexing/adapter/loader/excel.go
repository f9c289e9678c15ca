package loader

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jinford/ppx-backend/internal/module/indexing/domain"
	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

// ExcelLoader はExcelファイルをシート単位で読み込むローダー
type ExcelLoader struct {
	httpClient *http.Client
}

// NewExcelLoader は新しいExcelLoaderを作成します
func NewExcelLoader(httpClient *http.Client) *ExcelLoader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &ExcelLoader{httpClient: httpClient}
}

// Load はExcelファイル（URLまたはファイルパス）を読み込み、シートごとに1レコードを返します
// 各行はセルをタブ区切り、行を改行区切りにしたテキストになります
func (l *ExcelLoader) Load(ctx context.Context, src string) (*domain.LoadResult, error) {
	data, err := readSource(ctx, l.httpClient, src)
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Validation("invalid excel file %s: %v", src, err)
	}
	defer f.Close()

	var records []domain.Record
	var all strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}

		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			continue
		}

		content := strings.Join(lines, "\n")
		all.WriteString(content)
		records = append(records, domain.Record{
			Content: content,
			Metadata: map[string]any{
				domain.MetaURL: src,
				"sheet":        sheet,
			},
		})
	}

	if len(records) == 0 {
		return nil, apperr.NotFound("no data found for excel file: %s", src)
	}

	return &domain.LoadResult{
		DocID:    docID(all.String(), src),
		DataType: domain.DataTypeExcelFile,
		Source:   src,
		Data:     records,
	}, nil
}

var _ domain.Loader = (*ExcelLoader)(nil)
