package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NFD 拆出重音符號 (Mn) 再移除，"São João" → "Sao Joao"
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify 做 tag / 查詢用的標準化：去重音、小寫、非英數字轉 '-'
// 同一個名字不管大小寫或重音都要落在同一個 slug（去重的關鍵）
func Slugify(s string) string {
	folded, _, err := transform.String(deaccent, s)
	if err != nil {
		folded = s // 轉換失敗就用原字串，slug 還是可用
	}

	var b strings.Builder
	lastDash := true // 開頭不要 dash
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
