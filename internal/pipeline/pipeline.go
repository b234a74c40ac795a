// Package pipeline は、CLIコマンドから呼ばれるアプリケーション層の
// エントリポイントなのだ。共有コンポーネントの初期化と各 Runner の
// 起動だけを担当し、ドメインロジックは pkg 側に置いてあるのだ。
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/internal/builder"
	"github.com/shouni/go-storyboard-kit/internal/config"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"
)

// ExecuteAnalyze は、台本からエンティティ定義を抽出する解析フェーズを実行するのだ。
func ExecuteAnalyze(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	analyzeRunner := builder.BuildAnalyzeRunner(appCtx)
	if err := analyzeRunner.Run(ctx); err != nil {
		return err
	}

	slog.Info("解析フェーズが完了したのだ！")
	return nil
}

// ExecuteGenerate は、台本から画像生成プロンプト列を作る生成フェーズを実行するのだ。
func ExecuteGenerate(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	generateRunner := builder.BuildGenerateRunner(appCtx)
	if err := generateRunner.Run(ctx); err != nil {
		return err
	}

	slog.Info("生成フェーズが完了したのだ！")
	return nil
}

// setupAppContext は、提供された設定と共有コンポーネントを使用して、アプリケーションコンテキストを初期化して返すのだ。
// 初期化中にエラーが発生した場合は、AppContext のポインタとエラーを返すのだ。
func setupAppContext(ctx context.Context, cfg *config.Config) (*builder.AppContext, error) {
	timeout := cfg.Options.HTTPTimeout
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeout
	}
	httpClient := httpkit.New(timeout)

	gcsFactory, err := gcsfactory.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client factory: %w", err)
	}

	reader, err := gcsFactory.InputReader()
	if err != nil {
		return nil, err
	}
	writer, err := gcsFactory.OutputWriter()
	if err != nil {
		return nil, err
	}

	promptBuilder, err := builder.InitializePromptBuilder()
	if err != nil {
		return nil, err
	}

	dispatcher := builder.InitializeDispatcher()

	appCtx := builder.NewAppContext(cfg, httpClient, dispatcher, promptBuilder, reader, writer)
	return &appCtx, nil
}
