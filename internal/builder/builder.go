package builder

import (
	"fmt"

	"github.com/shouni/go-storyboard-kit/internal/runner"
	"github.com/shouni/go-storyboard-kit/pkg/analyze"
	"github.com/shouni/go-storyboard-kit/pkg/condense"
	"github.com/shouni/go-storyboard-kit/pkg/dispatch"
	"github.com/shouni/go-storyboard-kit/pkg/gemini"
	"github.com/shouni/go-storyboard-kit/pkg/pipeline"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
)

// InitializeDispatcher は Gemini 実装を注入したディスパッチャーを初期化します。
func InitializeDispatcher() *dispatch.Dispatcher {
	return dispatch.NewDispatcher(gemini.NewClient())
}

// InitializePromptBuilder はプロンプト合成器を初期化します。
func InitializePromptBuilder() (*prompts.Builder, error) {
	pb, err := prompts.NewBuilder()
	if err != nil {
		return nil, fmt.Errorf("プロンプトビルダーの初期化に失敗したのだ: %w", err)
	}
	return pb, nil
}

// BuildAnalyzeRunner は台本解析を担当する Runner を構築します。
func BuildAnalyzeRunner(appCtx *AppContext) *runner.AnalyzeRunner {
	analyzer := analyze.NewAnalyzer(appCtx.dispatcher, resolveModel(appCtx))
	source := runner.NewScriptSource(appCtx.Reader, appCtx.httpClient)
	return runner.NewAnalyzeRunner(analyzer, source, appCtx.Writer, appCtx.Sessions, appCtx.Options, appCtx.Config.APIKeys)
}

// BuildGenerateRunner はプロンプト生成パイプラインを担当する Runner を構築します。
func BuildGenerateRunner(appCtx *AppContext) *runner.GenerateRunner {
	model := resolveModel(appCtx)
	condenser := condense.NewCondenser(appCtx.dispatcher, model)
	pipe := pipeline.NewPipeline(appCtx.dispatcher, condenser, appCtx.promptBuilder, model)
	source := runner.NewScriptSource(appCtx.Reader, appCtx.httpClient)
	return runner.NewGenerateRunner(pipe, source, appCtx.Reader, appCtx.Writer, appCtx.Sessions, appCtx.Options, appCtx.Config.APIKeys)
}

// resolveModel は --model フラグによる上書きを反映したモデル名を返すのだ。
func resolveModel(appCtx *AppContext) string {
	if appCtx.Options.AIModel != "" {
		return appCtx.Options.AIModel
	}
	return appCtx.Config.GeminiModel
}
