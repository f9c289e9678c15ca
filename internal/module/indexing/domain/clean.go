package domain

import (
	"strings"
	"unicode"
)

// CleanString はローダーが取得した本文を正規化します
//   - 前後の空白を除去し、連続する空白を1つのスペースにまとめる
//   - バックスラッシュを除去し、# をスペースに置き換える
//   - 英数字・空白以外の同じ文字の連続を1文字にまとめる ("!!!" -> "!")
func CleanString(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	text = strings.ReplaceAll(text, "\\", "")
	text = strings.ReplaceAll(text, "#", " ")

	var b strings.Builder
	b.Grow(len(text))
	var prev rune
	hasPrev := false
	for _, r := range text {
		if hasPrev && r == prev && !isWordOrSpace(r) {
			continue
		}
		b.WriteRune(r)
		prev = r
		hasPrev = true
	}
	return b.String()
}

func isWordOrSpace(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_' || unicode.IsSpace(r)
}
