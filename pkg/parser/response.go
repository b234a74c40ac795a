// Package parser はAI応答のテキストから構造化データを取り出します。
// スキーマ制約は努力目標でしかないため、コードブロックや前置きの混入を
// 許容する段階的なフォールバックで解析します。
package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// jsonBlockRegex は ```json ... ``` 形式のコードブロックをキャプチャするのだ。
var jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*\\S)\\s*```")

// UnmarshalResponse はAI応答のテキストを v へデコードするのだ。
// まずコードブロックを探し、次に最外の波括弧の範囲、最後に全文を
// JSONとして試すのだ。
func UnmarshalResponse(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	var rawJSON string

	if matches := jsonBlockRegex.FindStringSubmatch(raw); len(matches) > 1 {
		rawJSON = matches[1]
	} else if first, last := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); first != -1 && last > first {
		rawJSON = raw[first : last+1]
	} else {
		rawJSON = raw
	}

	if err := json.Unmarshal([]byte(rawJSON), v); err != nil {
		return fmt.Errorf("AI応答に含まれるJSONの解析に失敗したのだ (応答抜粋: %q): %w", Truncate(raw, 200), err)
	}
	return nil
}

// Truncate は文字列を maxLen バイトで切り詰め、省略記号を付けるのだ。
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
