package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/pipeline"
	"github.com/shouni/go-storyboard-kit/pkg/reconcile"
	"github.com/shouni/go-storyboard-kit/pkg/session"

	"github.com/shouni/go-remote-io/pkg/remoteio"
	"golang.org/x/sync/errgroup"
)

// GenerateRunner は、台本から画像生成プロンプト列を生成し、
// 結果の受信に合わせてエンティティ状態を更新しながら永続化するのだ。
type GenerateRunner struct {
	pipeline *pipeline.Pipeline
	source   *ScriptSource
	reader   remoteio.InputReader
	writer   remoteio.OutputWriter
	sessions *session.Manager
	opts     config.GenerateOptions
	keys     []string
}

// NewGenerateRunner は GenerateRunner の新しいインスタンスを生成して返すのだ。
func NewGenerateRunner(
	p *pipeline.Pipeline,
	source *ScriptSource,
	reader remoteio.InputReader,
	writer remoteio.OutputWriter,
	sessions *session.Manager,
	opts config.GenerateOptions,
	keys []string,
) *GenerateRunner {
	return &GenerateRunner{
		pipeline: p,
		source:   source,
		reader:   reader,
		writer:   writer,
		sessions: sessions,
		opts:     opts,
		keys:     keys,
	}
}

// Run は、生成パイプラインと状態照合を並行に走らせて最終成果物を保存するのだ。
//
// パイプライン側（生産者）はバッチ結果をチャネルへ流し、照合側（消費者）は
// 受信順にエンティティ状態へ反映するのだ。順序が入れ替わると照合結果が
// 変わってしまうため、消費者は1本だけなのだ。
func (gr *GenerateRunner) Run(ctx context.Context) error {
	ctx, release := gr.sessions.Begin(ctx)
	defer release()

	script, err := gr.source.Read(ctx, gr.opts)
	if err != nil {
		return err
	}

	entities, err := gr.loadEntities(ctx)
	if err != nil {
		return err
	}

	prompts, updated, err := gr.runPipeline(ctx, script, entities)
	if err != nil {
		return err
	}

	if err := gr.saveResults(ctx, prompts, updated); err != nil {
		return err
	}

	slog.Info("プロンプト生成が完了して成果物を保存したのだ",
		"prompts", len(prompts), "output", gr.opts.OutputFile, "entities", gr.opts.EntitiesFile)
	return nil
}

// loadEntities は、エンティティ定義ファイルを読み込むのだ。
// パスが未指定なら空の定義から開始するのだ。
func (gr *GenerateRunner) loadEntities(ctx context.Context) (domain.EntitySet, error) {
	if gr.opts.EntitiesFile == "" {
		return domain.EntitySet{}, nil
	}

	rc, err := gr.reader.Open(ctx, gr.opts.EntitiesFile)
	if err != nil {
		// 定義ファイルはまだ無くてもよいのだ（初回実行は空定義で進む）
		slog.Warn("エンティティ定義が読み込めなかったので空の定義で開始するのだ",
			"path", gr.opts.EntitiesFile, "error", err)
		return domain.EntitySet{}, nil
	}
	defer rc.Close()

	set, err := domain.DecodeEntitySet(rc)
	if err != nil {
		return domain.EntitySet{}, fmt.Errorf("エンティティ定義 '%s' のデコードに失敗したのだ: %w", gr.opts.EntitiesFile, err)
	}
	return set, nil
}

// runPipeline は生産者（パイプライン）と消費者（状態照合）を errgroup で束ねるのだ。
func (gr *GenerateRunner) runPipeline(ctx context.Context, script string, entities domain.EntitySet) ([]string, domain.EntitySet, error) {
	buf := gr.opts.BatchSize
	if buf <= 0 {
		buf = domain.DefaultBatchSize
	}
	results := make(chan domain.GenerationResult, buf)

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer close(results)
		return gr.pipeline.Generate(egCtx, pipeline.GenerateRequest{
			Script:   script,
			Entities: entities,
			Style:    gr.opts.Style(),
			Settings: gr.opts.Settings(),
			Keys:     gr.keys,
			OnTotal: func(total int) {
				slog.Info("生成対象のセグメント数が確定したのだ", "total", total)
			},
			OnProgress: func(result domain.GenerationResult) {
				select {
				case results <- result:
				case <-egCtx.Done():
				}
			},
		})
	})

	var prompts []string
	current := entities
	eg.Go(func() error {
		for result := range results {
			prompts = append(prompts, result.Prompt)
			if len(result.Updates) == 0 {
				continue
			}
			var changed []string
			current, changed = reconcile.Apply(current, result.Updates)
			if len(changed) > 0 {
				slog.Debug("エンティティ状態を更新したのだ", "changed_ids", changed)
			}
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, domain.EntitySet{}, err
	}
	return prompts, current, nil
}

// saveResults はプロンプト一覧と更新済みエンティティ定義を書き出すのだ。
func (gr *GenerateRunner) saveResults(ctx context.Context, prompts []string, updated domain.EntitySet) error {
	body := strings.Join(prompts, "\n\n")
	if err := gr.writer.Write(ctx, gr.opts.OutputFile, strings.NewReader(body), "text/plain"); err != nil {
		return fmt.Errorf("プロンプト一覧の保存に失敗したのだ: %w", err)
	}

	if gr.opts.EntitiesFile == "" {
		return nil
	}
	data, err := json.MarshalIndent(updated, "", "  ")
	if err != nil {
		return fmt.Errorf("更新後エンティティのJSON化に失敗したのだ: %w", err)
	}
	if err := gr.writer.Write(ctx, gr.opts.EntitiesFile, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("更新後エンティティの保存に失敗したのだ: %w", err)
	}
	return nil
}
