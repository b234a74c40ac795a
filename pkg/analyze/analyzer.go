// Package analyze は台本を1回の構造化出力呼び出しで解析し、
// キャラクターと環境のコレクションを生成します。
package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/dispatch"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/parser"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
	"google.golang.org/genai"
)

// responseSchema は解析結果に要求するJSONスキーマなのだ。
var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"characters": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":        {Type: genai.TypeString, Description: "The entity's original name from the script."},
					"description": {Type: genai.TypeString, Description: "A detailed, vivid visual description in ENGLISH, optimized for AI image generation models."},
				},
				Required: []string{"name", "description"},
			},
		},
		"environments": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":        {Type: genai.TypeString, Description: "The entity's original name from the script."},
					"description": {Type: genai.TypeString, Description: "A detailed, vivid visual description in ENGLISH, optimized for AI image generation models."},
				},
				Required: []string{"name", "description"},
			},
		},
	},
	Required: []string{"characters", "environments"},
}

type analyzedEntity struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type analyzedScript struct {
	Characters   []analyzedEntity `json:"characters"`
	Environments []analyzedEntity `json:"environments"`
}

// requestDispatcher は Analyzer が必要とするディスパッチャーの契約です。
type requestDispatcher interface {
	Dispatch(ctx context.Context, keys []string, req dispatch.Request) (string, error)
}

// Analyzer は台本解析の実体なのだ。
type Analyzer struct {
	dispatcher requestDispatcher
	model      string
	now        func() time.Time
}

// NewAnalyzer は依存関係を注入して Analyzer を初期化します。
func NewAnalyzer(d requestDispatcher, model string) *Analyzer {
	return &Analyzer{dispatcher: d, model: model, now: time.Now}
}

// Run は台本を解析してエンティティ集合を返すのだ。
// 空の台本はネットワーク呼び出しなしで空の集合を返すのだ。
func (a *Analyzer) Run(ctx context.Context, script string, keys []string) (domain.EntitySet, error) {
	if script == "" {
		return domain.EntitySet{}, nil
	}
	if err := ctx.Err(); err != nil {
		return domain.EntitySet{}, err
	}

	slog.Info("台本の解析を開始するのだ", "model", a.model, "script_bytes", len(script))

	raw, err := a.dispatcher.Dispatch(ctx, keys, dispatch.Request{
		Model:             a.model,
		SystemInstruction: prompts.AnalysisSystem(),
		Input:             prompts.AnalysisInput(script),
		ResponseSchema:    responseSchema,
		JSONResponse:      true,
	})
	if err != nil {
		return domain.EntitySet{}, fmt.Errorf("台本の解析に失敗したのだ: %w", err)
	}

	var analyzed analyzedScript
	if err := parser.UnmarshalResponse(raw, &analyzed); err != nil {
		return domain.EntitySet{}, fmt.Errorf("AIが不正な形式を返したのだ。台本が複雑すぎる可能性があるため、短い台本で試してほしいのだ: %w", err)
	}

	stamp := a.now().UnixMilli()
	set := domain.EntitySet{
		Characters:   materialize("Char", analyzed.Characters, stamp),
		Environments: materialize("Env", analyzed.Environments, stamp),
	}

	slog.Info("台本の解析が完了したのだ",
		"characters", len(set.Characters), "environments", len(set.Environments))
	return set, nil
}

// materialize は解析結果を編集可能なエンティティへ変換するのだ。
// IDは表示用ラベルと異なり実行を跨いで安定であればよいのだ。
func materialize(prefix string, entities []analyzedEntity, stamp int64) []domain.Entity {
	if len(entities) == 0 {
		return nil
	}
	out := make([]domain.Entity, 0, len(entities))
	for i, e := range entities {
		out = append(out, domain.Entity{
			ID:          fmt.Sprintf("%s-%d-%d", prefix, i, stamp),
			Name:        e.Name,
			Description: e.Description,
			Aliases:     []string{},
			IsLocked:    false,
		})
	}
	return out
}
