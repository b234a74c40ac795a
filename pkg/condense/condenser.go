// Package condense は、既知のエンティティ描写を大きなバッチ呼び出しの前に
// コンパクトな文脈ブロックへ圧縮します。圧縮はトークン使用量を減らすだけの
// 最適化であり、失敗しても非圧縮の文脈にフォールバックして処理を止めません。
package condense

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-storyboard-kit/pkg/dispatch"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
	"google.golang.org/genai"
)

const condenseTemperature = float32(0.1) // 決定的な要約にするため低温にするのだ

// requestDispatcher は Condenser が必要とするディスパッチャーの契約です。
type requestDispatcher interface {
	Dispatch(ctx context.Context, keys []string, req dispatch.Request) (string, error)
}

// Condenser は文脈圧縮の実体なのだ。
// 同一のエンティティ集合に対する圧縮結果はプロセス内でキャッシュされるのだ。
type Condenser struct {
	dispatcher requestDispatcher
	model      string
	cache      *cache.Cache
	ttl        time.Duration
}

// NewCondenser は依存関係を注入して Condenser を初期化します。
func NewCondenser(d requestDispatcher, model string) *Condenser {
	return &Condenser{
		dispatcher: d,
		model:      model,
		cache:      cache.New(30*time.Minute, 1*time.Hour),
		ttl:        30 * time.Minute,
	}
}

// Condense はエンティティ描写を圧縮した文脈ブロックを返します。
//
// 両コレクションが空の場合はネットワーク呼び出しなしで固定の文言を返します。
// ディスパッチが失敗した場合は非圧縮の参照ブロックをそのまま返しますが、
// キャンセル起因の失敗だけは握りつぶさずに伝播します。
func (c *Condenser) Condense(ctx context.Context, set domain.EntitySet, keys []string) (string, error) {
	if len(set.Characters) == 0 && len(set.Environments) == 0 {
		return prompts.NoContextSentinel, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fullBlock := prompts.ReferenceBlock(set)

	cacheKey := blockDigest(fullBlock)
	if cached, ok := c.cache.Get(cacheKey); ok {
		if text, ok := cached.(string); ok {
			slog.Debug("圧縮済み文脈をキャッシュから再利用するのだ")
			return text, nil
		}
	}

	slog.Info("トークン使用量を抑えるため文脈を圧縮するのだ",
		"characters", len(set.Characters), "environments", len(set.Environments))

	condensed, err := c.dispatcher.Dispatch(ctx, keys, dispatch.Request{
		Model:             c.model,
		SystemInstruction: prompts.CondenseSystem(),
		Input:             prompts.CondenseInput(fullBlock),
		Temperature:       genai.Ptr(condenseTemperature),
	})
	if err != nil {
		if dispatch.IsCancellation(err) {
			return "", err
		}
		// 圧縮は必須ではないので、完全な文脈で続行するのだ
		slog.Warn("文脈の圧縮に失敗したため非圧縮の文脈を使うのだ",
			"error", err, "fallback_bytes", len(fullBlock))
		return fullBlock, nil
	}

	condensed = strings.TrimSpace(condensed)
	c.cache.Set(cacheKey, condensed, c.ttl)
	return condensed, nil
}

func blockDigest(block string) string {
	sum := sha256.Sum256([]byte(block))
	return hex.EncodeToString(sum[:])
}
