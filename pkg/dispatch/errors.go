package dispatch

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNoCredentials はAPIキーが1つも与えられていない場合の入力エラーです。
	ErrNoCredentials = errors.New("APIキーが1つも提供されていないのだ")

	// ErrQuotaExhausted は全ラウンドがレート制限で使い果たされた終端エラーです。
	ErrQuotaExhausted = errors.New("すべてのAPIキーがレート制限または割り当て超過に達したのだ")

	// ErrAllCredentialsFailed はレート制限以外の理由で全キーが失敗した終端エラーです。
	ErrAllCredentialsFailed = errors.New("すべてのAPIキーでリクエストに失敗したのだ")
)

// QuotaGuidance は ErrQuotaExhausted に添える利用者向けの対処手順なのだ。
const QuotaGuidance = `推奨される対処:
1. 少し待つ: RPM（毎分リクエスト数）の割り当ては通常1分で回復します。
2. APIキーを追加する: 複数キーに負荷を分散すると制限に達しにくくなります。
3. 利用ダッシュボードを確認する: 1日あたりの上限に達していないか確認してください。`

// errorKind はアップストリームのエラーメッセージから判定した失敗の分類なのだ。
type errorKind int

const (
	kindOther errorKind = iota
	kindInvalidKey
	kindRateLimited
)

// classify はエラー文字列を検査して失敗を分類するのだ。
// サービスは構造化されたエラー型を保証しないため、メッセージの形で見分けるのだ。
func classify(err error) errorKind {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "api key not valid") ||
		strings.Contains(msg, "api_key_invalid") ||
		strings.Contains(msg, "invalid api key") {
		return kindInvalidKey
	}
	if isRateLimitMessage(msg) {
		return kindRateLimited
	}
	return kindOther
}

func isRateLimitMessage(msg string) bool {
	return strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "resource has been exhausted")
}

// IsCancellation はエラーがキャンセル起因かを判定します。
// キャンセルは利用者への失敗表示を伴わない正常な中断として扱う契約なので、
// 他の終端エラーとは必ず区別されます。
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
