package config

import (
	"strings"
	"time"

	"github.com/shouni/go-utils/envutil"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// デフォルト値の定義なのだ
const (
	DefaultModel          = "gemini-2.5-flash"
	DefaultHTTPTimeout    = 30 * time.Second
	DefaultWordsPerSecond = 3.0
	DefaultImageInterval  = 20
	DefaultStyleID        = "default"
	DefaultEntitiesFile   = "output/entities.json"
	DefaultPromptsFile    = "output/prompts.txt"
	DefaultSafetyLevel    = string(domain.SafetyMaximum)
)

// Config はアプリケーション全体の環境設定（APIキーやモデル設定）を保持する構造体なのだ。
type Config struct {
	APIKeys     []string
	GeminiModel string

	Options GenerateOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
// APIキーは GEMINI_API_KEYS（カンマ区切りで複数）を優先し、
// 無ければ単一キーの GEMINI_API_KEY にフォールバックするのだ。
func LoadConfig() *Config {
	keys := splitKeys(envutil.GetEnv("GEMINI_API_KEYS", ""))
	if len(keys) == 0 {
		if single := envutil.GetEnv("GEMINI_API_KEY", ""); single != "" {
			keys = []string{single}
		}
	}

	return &Config{
		APIKeys:     keys,
		GeminiModel: envutil.GetEnv("GEMINI_MODEL", DefaultModel),
	}
}

// splitKeys はカンマ区切りのキー一覧を空白を除去しつつ分解するのだ。
func splitKeys(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := strings.TrimSpace(p); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	// ソース入力関連
	ScriptURL    string // --script-url
	ScriptFile   string // --script-file
	EntitiesFile string // --entities-file: 解析結果（エンティティ定義）のJSONパス
	OutputFile   string // --output-file

	// 生成設定
	WordsPerSecond       float64 // --words-per-second
	ImageIntervalSeconds int     // --image-interval
	BatchSize            int     // --batch-size
	SafetyLevel          string  // --safety-level
	StyleID              string  // --style
	StyleTags            string  // --style-tags: 組み込み画風の代わりに使う任意のタグ列

	// AI挙動設定
	AIModel string // --model

	// 実行制御
	HTTPTimeout time.Duration // --http-timeout
}

// Settings はオプションから生成パラメータを組み立てるのだ。
func (o GenerateOptions) Settings() domain.Settings {
	return domain.Settings{
		WordsPerSecond:       o.WordsPerSecond,
		ImageIntervalSeconds: o.ImageIntervalSeconds,
		BatchSize:            o.BatchSize,
		SafetyLevel:          domain.SafetyLevel(o.SafetyLevel),
	}
}

// Style はオプションから画風を解決するのだ。
// StyleTags が指定されていれば組み込みテーブルよりも優先するのだ。
func (o GenerateOptions) Style() domain.ArtStyle {
	if o.StyleTags != "" {
		return domain.ArtStyle{ID: "custom", Name: "Custom", Tags: o.StyleTags}
	}
	return domain.StyleByID(o.StyleID)
}
