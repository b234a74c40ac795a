package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/parser"
)

// errorMarkerPrefix は失敗セグメントの代替プロンプトに付ける目印なのだ。
const errorMarkerPrefix = "//-- GENERATION ERROR --//"

var (
	bulletRegex  = regexp.MustCompile(`\n\s*-\s*`)
	newlineRegex = regexp.MustCompile(`[\n\r]`)
)

// normalizePrompt はプロンプトを1行の連続テキストへ整形するのだ。
// 埋め込まれた改行と箇条書きの記号をカンマ区切りへ畳み込むのだ。
func normalizePrompt(prompt string) string {
	prompt = bulletRegex.ReplaceAllString(prompt, ", ")
	prompt = newlineRegex.ReplaceAllString(prompt, " ")
	return strings.TrimSpace(prompt)
}

// errorResults は失敗したバッチの各セグメントに対して、原因を添えた
// エラーマーカー結果を合成するのだ。状態更新は伴わないのだ。
func errorResults(segments []string, cause error) []domain.GenerationResult {
	results := make([]domain.GenerationResult, 0, len(segments))
	for _, seg := range segments {
		results = append(results, domain.GenerationResult{
			Prompt: fmt.Sprintf("%s Could not process the script segment starting with: %q. Error: %v",
				errorMarkerPrefix, parser.Truncate(seg, 70), cause),
			Updates: []domain.StateUpdate{},
		})
	}
	return results
}
