package cmd

import (
	"fmt"
	"os"

	"github.com/shouni/go-storyboard-kit/internal/config"

	"github.com/spf13/cobra"
)

// opts は、各コマンドが共有する実行時オプションなのだ。
var opts config.GenerateOptions

// rootCmd は、アプリケーションのトップレベルコマンドなのだ。
var rootCmd = &cobra.Command{
	Use:   "storyboard-kit",
	Short: "台本から画像生成プロンプト列を作るツールなのだ。",
	Long: `ナレーション台本を解析してキャラクター・環境の定義を抽出し、
時間軸に沿った画像生成プロンプト列を生成するツールなのだ。
複数のAPIキーを束ねたローテーションとリトライで、レート制限にも粘り強く動くのだよ。`,
	SilenceUsage:      true,
	PersistentPreRunE: preRunAppE,
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- ソース入力関連 ---
	rootCmd.PersistentFlags().StringVarP(&opts.ScriptURL, "script-url", "u", "", "台本を取得するURLなのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.ScriptFile, "script-file", "f", "", "台本ファイルのパス（'-'で標準入力なのだ）。")
	rootCmd.PersistentFlags().StringVarP(&opts.EntitiesFile, "entities-file", "e", config.DefaultEntitiesFile, "エンティティ定義JSONのパス（ローカル or gs://...）なのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.OutputFile, "output-file", "o", config.DefaultPromptsFile, "プロンプト一覧の保存パス（ローカル or gs://...）なのだ。")

	// --- 生成設定 ---
	rootCmd.PersistentFlags().Float64Var(&opts.WordsPerSecond, "words-per-second", config.DefaultWordsPerSecond, "ナレーションの読み上げ速度（語/秒）なのだ。")
	rootCmd.PersistentFlags().IntVar(&opts.ImageIntervalSeconds, "image-interval", config.DefaultImageInterval, "画像1枚あたりの秒数なのだ。")
	rootCmd.PersistentFlags().IntVar(&opts.BatchSize, "batch-size", 0, "1リクエストにまとめるセグメント数なのだ（0なら既定値）。")
	rootCmd.PersistentFlags().StringVar(&opts.SafetyLevel, "safety-level", config.DefaultSafetyLevel, "安全プロトコル（maximum / cinematic_action / indirect_suggestion）なのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.StyleID, "style", "s", config.DefaultStyleID, "組み込み画風のIDなのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.StyleTags, "style-tags", "", "組み込み画風の代わりに使う任意のタグ列なのだ。")

	// --- AIモデル・挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.AIModel, "model", "", "使用する Gemini モデル名（未指定なら環境変数か既定値）なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "Webリクエストのタイムアウトなのだ。")
}

// preRunAppE は、コマンド実行前に環境変数などの必須チェックを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	// Gemini APIを利用するため、APIキーの存在チェックは欠かせないのだ！
	if os.Getenv("GEMINI_API_KEYS") == "" && os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEYS（カンマ区切り）か GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}

	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	addAppFlags(rootCmd)
	rootCmd.AddCommand(analyzeCmd, generateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
