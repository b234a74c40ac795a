// Package credential は、1回のディスパッチで利用するAPIキーのプールを管理します。
// プール内の順序に意味はなく、試行ごとに一様にシャッフルして返すことで
// 特定のキーだけが集中して叩かれるのを防ぎます。
package credential

import "math/rand/v2"

// Pool は利用可能な認証情報の集合なのだ。
// 無効と判明したキーは MarkInvalid で除外され、以降の Shuffled には現れないのだ。
type Pool struct {
	keys    []string
	invalid map[string]struct{}
}

// NewPool はキーのスナップショットからプールを生成します。
func NewPool(keys []string) *Pool {
	snapshot := make([]string, len(keys))
	copy(snapshot, keys)
	return &Pool{
		keys:    snapshot,
		invalid: make(map[string]struct{}),
	}
}

// Len はプールに登録された全キー数（無効キーを含む）を返します。
func (p *Pool) Len() int {
	return len(p.keys)
}

// MarkInvalid は指定キーを以降の試行から除外するのだ。
func (p *Pool) MarkInvalid(key string) {
	p.invalid[key] = struct{}{}
}

// Shuffled は無効化されていないキーを一様ランダムな順序で返すのだ。
// 返り値は呼び出しごとに独立したスライスなので、呼び出し元が自由に走査できるのだ。
func (p *Pool) Shuffled() []string {
	active := make([]string, 0, len(p.keys))
	for _, k := range p.keys {
		if _, ng := p.invalid[k]; !ng {
			active = append(active, k)
		}
	}
	rand.Shuffle(len(active), func(i, j int) {
		active[i], active[j] = active[j], active[i]
	})
	return active
}

// Redact はログ出力用にキー末尾4文字だけを残した表記を返します。
func Redact(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "..." + key[len(key)-4:]
}
