package application

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/jinford/ppx-backend/internal/module/chat/domain"
	searchdomain "github.com/jinford/ppx-backend/internal/module/search/domain"
)

const (
	sourcesOpen  = "<sources>\n"
	sourcesClose = "</sources>\n\n"

	// sourcesEndTag は保存済み回答から sources ブロックを切り出す区切り
	sourcesEndTag = "</sources>"

	localURL = "local"
)

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// EmptySources はコンテキストがない場合の sources ブロック
const EmptySources = sourcesOpen + sourcesClose

// AssembleSources はコンテキストを検索順に sources ブロックへ整形します
// id は1始まりの連番で、url が空または "local" の場合は空文字列になります
func AssembleSources(contexts []searchdomain.RetrievedContext, includeContent bool) string {
	var sb strings.Builder
	sb.WriteString(sourcesOpen)

	for i, c := range contexts {
		url := c.URL()
		if url == localURL {
			url = ""
		}

		sb.WriteString("<source>\n")
		sb.WriteString("<id>" + strconv.Itoa(i+1) + "</id>\n")
		sb.WriteString("<resource_id>" + xmlEscaper.Replace(c.ResourceID()) + "</resource_id>\n")
		if includeContent {
			sb.WriteString("<content>" + xmlEscaper.Replace(c.Text) + "</content>\n")
		}
		sb.WriteString("<metadata>\n")
		sb.WriteString("<timestamp>" + xmlEscaper.Replace(c.Timestamp()) + "</timestamp>\n")
		sb.WriteString("<url>" + xmlEscaper.Replace(url) + "</url>\n")
		if hash := c.Hash(); hash != "" {
			sb.WriteString("<hash>" + xmlEscaper.Replace(hash) + "</hash>\n")
		}
		sb.WriteString("</metadata>\n")
		sb.WriteString("</source>\n")
	}

	sb.WriteString(sourcesClose)
	return sb.String()
}

// RenderContexts は生成を行わない場合の回答としてコンテキストを列挙します
func RenderContexts(contexts []searchdomain.RetrievedContext) string {
	var sb strings.Builder
	for i, c := range contexts {
		sb.WriteString(fmt.Sprintf("\n%d. %s\n", i+1, c.Text))
	}
	return sb.String()
}

type sourcesDocument struct {
	XMLName xml.Name        `xml:"sources"`
	Sources []domain.Source `xml:"source"`
}

// ParseSources は sources ブロックを解析します
func ParseSources(block string) ([]domain.Source, error) {
	var doc sourcesDocument
	if err := xml.Unmarshal([]byte(strings.TrimSpace(block)), &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedSources, err)
	}
	for i := range doc.Sources {
		s := &doc.Sources[i]
		s.ID = strings.TrimSpace(s.ID)
		s.ResourceID = strings.TrimSpace(s.ResourceID)
		s.Content = strings.TrimSpace(s.Content)
		s.Metadata.Timestamp = strings.TrimSpace(s.Metadata.Timestamp)
		s.Metadata.URL = strings.TrimSpace(s.Metadata.URL)
		s.Metadata.Hash = strings.TrimSpace(s.Metadata.Hash)
	}
	return doc.Sources, nil
}

// SplitSources は保存済みの回答を sources ブロックと本文に分けます
// sources ブロックがない場合は回答全体と nil を返します
func SplitSources(answer string) (string, []domain.Source, error) {
	parts := strings.Split(answer, sourcesEndTag)
	if len(parts) <= 1 {
		return answer, nil, nil
	}

	sources, err := ParseSources(parts[0] + sourcesEndTag)
	if err != nil {
		return parts[1], nil, err
	}
	return parts[1], sources, nil
}
