package chunker

import (
	"strings"
	"unicode/utf8"
)

// DefaultSeparators は再帰分割で順に試す区切り文字
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveSplitter は区切り文字を段階的に細かくしながらテキストを分割します
// 長さはルーン数で数え、区切り文字は後続の断片の先頭に残します
type RecursiveSplitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewRecursiveSplitter は新しいRecursiveSplitterを作成します
func NewRecursiveSplitter(chunkSize, chunkOverlap int) *RecursiveSplitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	return &RecursiveSplitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   DefaultSeparators,
	}
}

// Split はテキストをチャンクに分割します
func (s *RecursiveSplitter) Split(text string) []string {
	return s.split(text, s.separators)
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	var final []string

	separator := separators[len(separators)-1]
	var next []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			next = separators[i+1:]
			break
		}
	}

	var good []string
	for _, piece := range splitKeepSeparator(text, separator) {
		if runeLen(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good, "")...)
			good = nil
		}
		if len(next) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.split(piece, next)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good, "")...)
	}

	return final
}

// merge は小さな断片を chunkSize を超えない範囲で結合します
func (s *RecursiveSplitter) merge(splits []string, separator string) []string {
	sepLen := runeLen(separator)

	var docs []string
	var current []string
	total := 0

	sepIfAny := func() int {
		if len(current) > 0 {
			return sepLen
		}
		return 0
	}

	for _, d := range splits {
		l := runeLen(d)
		if total+l+sepIfAny() > s.chunkSize {
			if len(current) > 0 {
				if doc := joinDocs(current, separator); doc != "" {
					docs = append(docs, doc)
				}
				// オーバーラップ分だけ残して先頭から捨てる
				for total > s.chunkOverlap || (total+l+sepIfAny() > s.chunkSize && total > 0) {
					drop := runeLen(current[0])
					if len(current) > 1 {
						drop += sepLen
					}
					total -= drop
					current = current[1:]
				}
			}
		}
		current = append(current, d)
		total += l
		if len(current) > 1 {
			total += sepLen
		}
	}

	if doc := joinDocs(current, separator); doc != "" {
		docs = append(docs, doc)
	}

	return docs
}

// splitKeepSeparator は区切り文字で分割し、区切り文字を後続の断片の先頭に付けます
func splitKeepSeparator(text, separator string) []string {
	var splits []string
	if separator == "" {
		for _, r := range text {
			splits = append(splits, string(r))
		}
		return splits
	}

	parts := strings.Split(text, separator)
	for i, p := range parts {
		if i > 0 {
			p = separator + p
		}
		if p != "" {
			splits = append(splits, p)
		}
	}
	return splits
}

func joinDocs(docs []string, separator string) string {
	return strings.TrimSpace(strings.Join(docs, separator))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
