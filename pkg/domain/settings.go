package domain

import "fmt"

// SafetyLevel はプロンプト作成時に適用する安全方針の種別です。
// サービス側のモデレーション閾値は変えず、指示文の書き方だけを切り替えます。
type SafetyLevel string

const (
	SafetyMaximum            SafetyLevel = "maximum"
	SafetyCinematicAction    SafetyLevel = "cinematic_action"
	SafetyIndirectSuggestion SafetyLevel = "indirect_suggestion"
)

// DefaultBatchSize は1リクエストにまとめるセグメント数の既定値なのだ。
const DefaultBatchSize = 5

// Settings は生成実行時のパラメータ一式です。
type Settings struct {
	WordsPerSecond       float64     `json:"words_per_second"`       // ナレーションの語速（セグメント幅の算出に使用）
	ImageIntervalSeconds int         `json:"image_interval_seconds"` // 画像1枚あたりの秒数
	BatchSize            int         `json:"batch_size"`             // 1回のAPI呼び出しで処理するセグメント数
	SafetyLevel          SafetyLevel `json:"safety_level"`
}

// Normalize は設定値を検証し、省略可能な項目に既定値を補うのだ。
// BatchSize が 0 以下なら既定値に置き換え、セグメント幅を決める2項目が
// 正でない場合はエラーを返すのだ。
func (s Settings) Normalize() (Settings, error) {
	if s.WordsPerSecond <= 0 {
		return s, fmt.Errorf("words_per_second は正の値が必要なのだ: %v", s.WordsPerSecond)
	}
	if s.ImageIntervalSeconds <= 0 {
		return s, fmt.Errorf("image_interval_seconds は正の値が必要なのだ: %d", s.ImageIntervalSeconds)
	}
	if s.BatchSize <= 0 {
		s.BatchSize = DefaultBatchSize
	}
	switch s.SafetyLevel {
	case SafetyMaximum, SafetyCinematicAction, SafetyIndirectSuggestion:
	case "":
		s.SafetyLevel = SafetyMaximum
	default:
		return s, fmt.Errorf("未知の safety_level なのだ: %q", s.SafetyLevel)
	}
	return s, nil
}

// SegmentWords は1セグメントあたりの目標単語数を返します。
func (s Settings) SegmentWords() int {
	return int(s.WordsPerSecond * float64(s.ImageIntervalSeconds))
}
