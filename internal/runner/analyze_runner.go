package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/pkg/analyze"
	"github.com/shouni/go-storyboard-kit/pkg/session"

	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// AnalyzeRunner は、台本からキャラクターと環境の初期定義を抽出して保存するのだ。
type AnalyzeRunner struct {
	analyzer *analyze.Analyzer
	source   *ScriptSource
	writer   remoteio.OutputWriter
	sessions *session.Manager
	opts     config.GenerateOptions
	keys     []string
}

// NewAnalyzeRunner は AnalyzeRunner の新しいインスタンスを生成して返すのだ。
func NewAnalyzeRunner(
	analyzer *analyze.Analyzer,
	source *ScriptSource,
	writer remoteio.OutputWriter,
	sessions *session.Manager,
	opts config.GenerateOptions,
	keys []string,
) *AnalyzeRunner {
	return &AnalyzeRunner{
		analyzer: analyzer,
		source:   source,
		writer:   writer,
		sessions: sessions,
		opts:     opts,
		keys:     keys,
	}
}

// Run は、台本の読み込み、エンティティ解析、結果のJSON保存を一気に行うのだ。
// 実行スロットを取得するため、先行して動いていた実行があればキャンセルされるのだ。
func (ar *AnalyzeRunner) Run(ctx context.Context) error {
	ctx, release := ar.sessions.Begin(ctx)
	defer release()

	script, err := ar.source.Read(ctx, ar.opts)
	if err != nil {
		return err
	}

	set, err := ar.analyzer.Run(ctx, script, ar.keys)
	if err != nil {
		return fmt.Errorf("台本の解析に失敗したのだ: %w", err)
	}

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("エンティティ定義のJSON化に失敗したのだ: %w", err)
	}

	outputPath := ar.opts.EntitiesFile
	if err := ar.writer.Write(ctx, outputPath, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("エンティティ定義の保存に失敗したのだ: %w", err)
	}

	slog.Info("台本の解析が完了したのだ",
		"characters", len(set.Characters), "environments", len(set.Environments), "path", outputPath)
	return nil
}
