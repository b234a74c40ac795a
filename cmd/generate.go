package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// generateCmd は、台本から画像生成プロンプト列の生成を実行するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "AIに画像生成プロンプト列を生成させますなのだ。",
	Long: `台本を時間軸に沿ったセグメントへ分割し、各セグメントに対応する
画像生成プロンプトをバッチでAIに生成させるのだ。
生成の過程で報告されたエンティティの状態変化は定義JSONへ反映されるのだよ。`,
	RunE: generateCommand,
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if opts.ScriptURL == "" && opts.ScriptFile == "" {
		return fmt.Errorf("ソース（--script-url または --script-file）を指定してほしいのだ")
	}

	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("プロンプト生成パイプラインを起動するのだ！",
		"model", cfg.GeminiModel,
		"keys", len(cfg.APIKeys),
		"style", opts.StyleID,
		"safety_level", opts.SafetyLevel,
		"output", opts.OutputFile)

	if err := pipeline.ExecuteGenerate(ctx, cfg); err != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", err)
	}

	slog.Info("すべての生成工程が完了したのだ！")
	return nil
}
