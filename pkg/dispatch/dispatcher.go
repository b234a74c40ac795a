// Package dispatch は、1つの論理リクエストをAPIキーのプールに対して
// 粘り強く実行するディスパッチャーを提供します。キーをシャッフルした
// 全件走査をラウンドとし、ラウンド全体がレート制限に当たった場合のみ
// 指数バックオフで待機して次のラウンドへ進みます。
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/credential"
	"google.golang.org/genai"
)

// MaxAttempts は全キー走査ラウンドの最大回数なのだ。
const MaxAttempts = 5

// Request は外部AIサービスへの1回の論理呼び出しを完全に記述します。
type Request struct {
	Model             string
	SystemInstruction string
	Input             string
	ResponseSchema    *genai.Schema // 構造化出力を要求する場合のJSONスキーマ（任意）
	Temperature       *float32
	JSONResponse      bool // true なら application/json のレスポンスを要求する
}

// Caller は1つのAPIキーで1回の呼び出しを実行する契約です。
type Caller interface {
	Call(ctx context.Context, apiKey string, req Request) (string, error)
}

// Dispatcher はキーのローテーションとバックオフを担う実体なのだ。
type Dispatcher struct {
	caller  Caller
	backoff func(attempt int) time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewDispatcher は Caller を注入して Dispatcher を初期化します。
func NewDispatcher(caller Caller) *Dispatcher {
	return &Dispatcher{
		caller:  caller,
		backoff: defaultBackoff,
		sleep:   sleepContext,
	}
}

// defaultBackoff は 2^(attempt+1) 秒に最大1秒のジッターを加えた待機時間を返すのだ。
func defaultBackoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt+1)) * time.Second
	jitter := time.Duration(rand.Int64N(int64(time.Second)))
	return base + jitter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Dispatch は keys のプールに対して req を実行し、最初に成功した応答を返します。
//
// 失敗は3種類に分類されます: キー自体が無効（以降の試行から除外、レート制限
// 扱いにはしない）、レート制限（次のキーへ継続）、それ以外（再試行の価値が
// ないため即座に中断）。ラウンド内の有効キーがすべてレート制限に当たった
// 場合のみバックオフ待機し、MaxAttempts ラウンドを使い切ると終端エラーを
// 返します。キャンセルは各試行の前とバックオフ中に観測されます。
func (d *Dispatcher) Dispatch(ctx context.Context, keys []string, req Request) (string, error) {
	if len(keys) == 0 {
		return "", ErrNoCredentials
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	pool := credential.NewPool(keys)
	var lastErr error

	for attempt := 0; attempt < MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		shuffled := pool.Shuffled()
		if len(shuffled) == 0 {
			// 残っているのは無効キーだけなのだ
			break
		}

		rateLimitedRound := false
		for _, key := range shuffled {
			if err := ctx.Err(); err != nil {
				return "", err
			}

			slog.Debug("リクエストを試行するのだ",
				"attempt", attempt+1, "max_attempts", MaxAttempts, "key", credential.Redact(key))

			text, err := d.caller.Call(ctx, key, req)
			if err == nil {
				return text, nil
			}
			if IsCancellation(err) {
				return "", err
			}
			lastErr = err

			switch classify(err) {
			case kindInvalidKey:
				slog.Warn("無効なAPIキーを検出したので以降は除外するのだ", "key", credential.Redact(key))
				pool.MarkInvalid(key)
			case kindRateLimited:
				slog.Warn("キーがレート制限に達したのだ", "key", credential.Redact(key))
				rateLimitedRound = true
			default:
				// 不正なリクエスト等は他キーで再試行しても無意味なので即座に上げるのだ
				return "", fmt.Errorf("再試行不能なエラーが発生したのだ (key %s): %w", credential.Redact(key), err)
			}
		}

		if rateLimitedRound && attempt < MaxAttempts-1 {
			delay := d.backoff(attempt)
			slog.Warn("全キーが制限中のため待機するのだ", "wait", delay.Round(time.Second), "attempt", attempt+1)
			if err := d.sleep(ctx, delay); err != nil {
				return "", err
			}
			continue
		}
		if !rateLimitedRound {
			// このラウンドで有効キーが1つも試せなかった（全て無効）場合なのだ
			break
		}
	}

	if lastErr != nil && isRateLimitMessage(lastErr.Error()) {
		return "", fmt.Errorf("%w。最後のエラー: %v\n\n%s", ErrQuotaExhausted, lastErr, QuotaGuidance)
	}
	if lastErr == nil {
		lastErr = ErrNoCredentials
	}
	return "", fmt.Errorf("%w (%d ラウンド試行)。最後のエラー: %v", ErrAllCredentialsFailed, MaxAttempts, lastErr)
}
