// Package prompts は、AIサービスへ渡すシステム指示と入力ペイロードの
// 組み立てを担います。安全方針の3バリアントは設定で選ばれる純粋なデータで、
// 合成処理は副作用のない文字列構築に限定されます。
package prompts

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// RedFlagPrompt は、安全に視覚化できないセグメントに対してAIが返す
// 規定のセンチネル文字列なのだ。パイプラインはこれを特別扱いせず素通しするのだ。
const RedFlagPrompt = "//-- VIOLATION DETECTED --// The script segment contains content that cannot be safely visualized and has been skipped."

// NoContextSentinel はエンティティが空のときに使う固定の文脈文字列です。
const NoContextSentinel = "No global context provided."

var (
	//go:embed safety_maximum.md
	safetyMaximum string
	//go:embed safety_cinematic_action.md
	safetyCinematicAction string
	//go:embed safety_indirect_suggestion.md
	safetyIndirectSuggestion string
	//go:embed creative.md
	creativeTemplate string
	//go:embed analysis.md
	analysisSystem string
	//go:embed condense.md
	condenseSystem string
)

// safetyTable は安全レベルと指示文テンプレートを紐づけるマップなのだ。
var safetyTable = map[domain.SafetyLevel]string{
	domain.SafetyMaximum:            safetyMaximum,
	domain.SafetyCinematicAction:    safetyCinematicAction,
	domain.SafetyIndirectSuggestion: safetyIndirectSuggestion,
}

// Builder はシステム指示の合成を管理します。
type Builder struct {
	creative *template.Template
}

// NewBuilder は埋め込みテンプレートを解析して Builder を初期化します。
func NewBuilder() (*Builder, error) {
	if creativeTemplate == "" {
		return nil, fmt.Errorf("creative プロンプトテンプレートが空なのだ。embed設定を確認してほしいのだ")
	}
	tmpl, err := template.New("creative").Parse(creativeTemplate)
	if err != nil {
		return nil, fmt.Errorf("creative テンプレートの解析に失敗したのだ: %w", err)
	}
	return &Builder{creative: tmpl}, nil
}

// SafetyInstructions は安全レベルに対応する指示文を返すのだ。
// 未知のレベルは最も厳しい maximum にフォールバックするのだ。
func SafetyInstructions(level domain.SafetyLevel) string {
	if text, ok := safetyTable[level]; ok {
		return text
	}
	return safetyMaximum
}

type creativeData struct {
	StyleName string
	StyleTags string
}

// GenerateSystem は生成実行用のシステム指示を合成します。
// 安全方針 + 構成・創作指示 + 画風タグを1つのペイロードにまとめ、
// 1回の実行の全バッチで変更なしに再利用されます。
func (b *Builder) GenerateSystem(level domain.SafetyLevel, style domain.ArtStyle) (string, error) {
	var sb strings.Builder
	sb.WriteString(SafetyInstructions(level))
	sb.WriteString("\n\n")
	if err := b.creative.Execute(&sb, creativeData{StyleName: style.Name, StyleTags: style.Tags}); err != nil {
		return "", fmt.Errorf("creative テンプレートの実行に失敗したのだ: %w", err)
	}
	return sb.String(), nil
}

// AnalysisSystem は台本解析用のシステム指示を返します。
func AnalysisSystem() string {
	return analysisSystem
}

// CondenseSystem は文脈圧縮用のシステム指示を返します。
func CondenseSystem() string {
	return condenseSystem
}

// ReferenceBlock は全エンティティを参照ID付きで列挙した文脈ブロックを組み立てるのだ。
// 参照IDはコレクション内の位置（1始まり）に固定で対応するのだ。
func ReferenceBlock(set domain.EntitySet) string {
	var sb strings.Builder
	sb.WriteString("**Available Characters:**\n")
	if len(set.Characters) == 0 {
		sb.WriteString("None\n")
	}
	for i, c := range set.Characters {
		fmt.Fprintf(&sb, "- CHARACTER_%d (Name: %s): %s\n", i+1, c.Name, c.Description)
	}
	sb.WriteString("\n**Available Environments:**\n")
	if len(set.Environments) == 0 {
		sb.WriteString("None\n")
	}
	for i, e := range set.Environments {
		fmt.Fprintf(&sb, "- ENVIRONMENT_%d (Name: %s): %s\n", i+1, e.Name, e.Description)
	}
	return sb.String()
}

// CondenseInput は圧縮リクエストの入力ペイロードを組み立てます。
func CondenseInput(referenceBlock string) string {
	return fmt.Sprintf("**Full Descriptions to Condense:**\n\"\"\"\n%s\n\"\"\"\n\n**Condensed Summary:**\n", referenceBlock)
}

// AnalysisInput は解析リクエストの入力ペイロードを組み立てます。
func AnalysisInput(script string) string {
	return fmt.Sprintf("**Script to Analyze:**\n\"\"\"\n%s\n\"\"\"\n\nNow, generate the JSON object based on the script provided.\n", script)
}

// BatchInput は1バッチ分の入力ペイロードを組み立てるのだ。
// offset は実行全体におけるバッチ先頭セグメントの位置（0始まり）で、
// セグメント見出しの通し番号に使うのだ。
func BatchInput(contextBlock string, segments []string, offset int) string {
	var sb strings.Builder
	sb.WriteString("---\n**GLOBAL CONTEXT (Available for all segments):**\n")
	sb.WriteString(contextBlock)
	sb.WriteString("\n---\n**SCRIPT SEGMENTS TO PROCESS:**\n")
	for i, seg := range segments {
		fmt.Fprintf(&sb, "\n//--- SEGMENT %d ---//\n**Script Text:**\n\"\"\"\n%s\n\"\"\"\n", offset+i+1, seg)
	}
	fmt.Fprintf(&sb, "---\n\nNow, generate exactly %d result objects based on these instructions.\n", len(segments))
	return sb.String()
}
