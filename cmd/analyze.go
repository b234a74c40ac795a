package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// analyzeCmd は、台本からキャラクターと環境の初期定義を抽出するのだ。
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "台本を解析してエンティティ定義を抽出しますなのだ。",
	Long: `台本に登場するキャラクターと環境をAIに抽出させ、
エンティティ定義JSONとして保存するのだ。生成フェーズの前処理に使うのだよ。`,
	RunE: analyzeCommand,
}

func analyzeCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if opts.ScriptURL == "" && opts.ScriptFile == "" {
		return fmt.Errorf("ソース（--script-url または --script-file）を指定してほしいのだ")
	}

	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("台本の解析を起動するのだ！",
		"model", cfg.GeminiModel, "keys", len(cfg.APIKeys), "output", opts.EntitiesFile)

	if err := pipeline.ExecuteAnalyze(ctx, cfg); err != nil {
		return fmt.Errorf("解析中にエラーが発生したのだ: %w", err)
	}
	return nil
}
