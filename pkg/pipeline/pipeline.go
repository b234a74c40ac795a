// Package pipeline は台本のセグメント化・バッチ化と、バッチごとの
// ディスパッチ・結果ストリーミングをオーケストレートする司令塔です。
// セグメントは台本順に厳密に処理され、結果も同じ順序で発行されます。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/dispatch"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/parser"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
	"github.com/shouni/go-storyboard-kit/pkg/segment"
	"golang.org/x/time/rate"
)

// ErrEmptyScript は台本が空のまま生成を要求された場合の入力エラーです。
var ErrEmptyScript = errors.New("生成対象の台本が空なのだ")

// ErrMalformedResponse は応答が期待したスキーマの形をしていない場合のエラーです。
var ErrMalformedResponse = errors.New("AI応答が期待した形式ではないのだ")

// DefaultBatchPause はバッチ間に挟む固定の休止時間なのだ。
// ディスパッチャー自身のバックオフとは独立に、成功時でも負荷を時間方向へ
// 分散させるためのものなのだ。
const DefaultBatchPause = 1500 * time.Millisecond

// ProgressFunc はセグメント1件分の結果を受け取るコールバックです。
type ProgressFunc func(result domain.GenerationResult)

// TotalFunc は結果の発行前に総セグメント数を1回だけ受け取るコールバックです。
type TotalFunc func(total int)

// requestDispatcher は Pipeline が必要とするディスパッチャーの契約です。
type requestDispatcher interface {
	Dispatch(ctx context.Context, keys []string, req dispatch.Request) (string, error)
}

// contextCondenser は文脈圧縮コンポーネントの契約です。
type contextCondenser interface {
	Condense(ctx context.Context, set domain.EntitySet, keys []string) (string, error)
}

// GenerateRequest は1回の生成実行を記述します。
type GenerateRequest struct {
	Script     string
	Entities   domain.EntitySet
	Style      domain.ArtStyle
	Settings   domain.Settings
	Keys       []string
	OnProgress ProgressFunc
	OnTotal    TotalFunc
}

// Pipeline は生成パイプラインの実体なのだ。
type Pipeline struct {
	dispatcher requestDispatcher
	condenser  contextCondenser
	builder    *prompts.Builder
	model      string
	batchPause time.Duration
}

// NewPipeline は各コンポーネントを注入して Pipeline を初期化します。
func NewPipeline(d requestDispatcher, c contextCondenser, b *prompts.Builder, model string) *Pipeline {
	return &Pipeline{
		dispatcher: d,
		condenser:  c,
		builder:    b,
		model:      model,
		batchPause: DefaultBatchPause,
	}
}

// Generate は台本からプロンプト列を生成し、結果を順番にストリーム配信するのだ。
//
// バッチ単体の失敗は実行全体を止めず、そのバッチの各セグメントに
// エラーマーカー結果を合成して続行するのだ。キャンセルだけは例外で、
// 実行全体を即座に中断するのだ。
func (p *Pipeline) Generate(ctx context.Context, req GenerateRequest) error {
	if len(req.Keys) == 0 {
		return dispatch.ErrNoCredentials
	}
	if req.Script == "" {
		return ErrEmptyScript
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	settings, err := req.Settings.Normalize()
	if err != nil {
		return err
	}

	// 参照ID（CHARACTER_n / ENVIRONMENT_n）を実行中ずっと安定させるため、
	// 開始時点のエンティティのスナップショットを取るのだ。
	snapshot := domain.EntitySet{
		Characters:   append([]domain.Entity(nil), req.Entities.Characters...),
		Environments: append([]domain.Entity(nil), req.Entities.Environments...),
	}

	contextBlock, err := p.condenser.Condense(ctx, snapshot, req.Keys)
	if err != nil {
		return err
	}

	system, err := p.builder.GenerateSystem(settings.SafetyLevel, req.Style)
	if err != nil {
		return err
	}

	segments, err := segment.Split(req.Script, settings.SegmentWords())
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		// 空白だけの台本は出力ゼロで正常終了なのだ
		return nil
	}

	if req.OnTotal != nil {
		req.OnTotal(len(segments))
	}

	batches := segment.Batches(segments, settings.BatchSize)
	slog.Info("プロンプト生成を開始するのだ",
		"segments", len(segments), "batches", len(batches),
		"segment_words", settings.SegmentWords(), "safety_level", settings.SafetyLevel)

	// バッチ間の固定休止なのだ。バースト1なので最初のバッチは待たず、
	// 2バッチ目以降が batchPause 間隔に律速されるのだ。
	limiter := rate.NewLimiter(rate.Every(p.batchPause), 1)

	offset := 0
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		slog.Info("バッチを処理中なのだ", "batch", i+1, "total_batches", len(batches), "segments", len(batch))

		results, err := p.dispatchBatch(ctx, req.Keys, system, contextBlock, batch, offset)
		if err != nil {
			if dispatch.IsCancellation(err) {
				return err
			}
			// バッチ単体の失敗で、すでに生成済みのプロンプトを無駄にしないのだ
			slog.Error("バッチの処理に失敗したので次のバッチへ進むのだ", "batch", i+1, "error", err)
			results = errorResults(batch, err)
		}

		if req.OnProgress != nil {
			for _, result := range results {
				req.OnProgress(result)
			}
		}
		offset += len(batch)
	}

	slog.Info("プロンプト生成が完了したのだ", "segments", len(segments))
	return nil
}

// batchResponse は1バッチ分のAI応答の形なのだ。
type batchResponse struct {
	Results []struct {
		Prompt       string               `json:"prompt"`
		StateUpdates []domain.StateUpdate `json:"state_updates"`
	} `json:"results"`
}

// dispatchBatch は1バッチを送信し、正規化済みの結果列を返すのだ。
func (p *Pipeline) dispatchBatch(ctx context.Context, keys []string, system, contextBlock string, batch []string, offset int) ([]domain.GenerationResult, error) {
	raw, err := p.dispatcher.Dispatch(ctx, keys, dispatch.Request{
		Model:             p.model,
		SystemInstruction: system,
		Input:             prompts.BatchInput(contextBlock, batch, offset),
		ResponseSchema:    batchSchema(len(batch)),
		JSONResponse:      true,
	})
	if err != nil {
		return nil, err
	}

	var parsed batchResponse
	if err := parser.UnmarshalResponse(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if parsed.Results == nil {
		return nil, fmt.Errorf("%w: 'results' 配列が含まれていないのだ", ErrMalformedResponse)
	}

	if len(parsed.Results) != len(batch) {
		// スキーマ強制は助言的なので、返ってきた分だけで続行するのだ
		slog.Warn("AIが返した結果数がセグメント数と一致しないのだ",
			"received", len(parsed.Results), "expected", len(batch))
	}

	results := make([]domain.GenerationResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		updates := r.StateUpdates
		if updates == nil {
			updates = []domain.StateUpdate{}
		}
		results = append(results, domain.GenerationResult{
			Prompt:  normalizePrompt(r.Prompt),
			Updates: updates,
		})
	}
	return results, nil
}
