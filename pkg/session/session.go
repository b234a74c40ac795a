// Package session は「同時に1つの実行だけ」という不変条件を、
// 実行スロットとキャンセルトークンの置き換えで表現します。
// グローバルな実行中フラグは持たず、新しい実行の開始そのものが
// 直前の実行へのキャンセル通知になります。
package session

import (
	"context"
	"sync"
)

// Manager は現在アクティブな実行のキャンセル権を保持する実行スロットなのだ。
type Manager struct {
	mu         sync.Mutex
	cancel     context.CancelFunc
	generation uint64
}

// NewManager は空の実行スロットを返します。
func NewManager() *Manager {
	return &Manager{}
}

// Begin は新しい実行のコンテキストを払い出すのだ。
// 直前の実行が残っていればまずキャンセルし、スロットを新しいトークンで
// 置き換えるのだ。返されたキャンセル関数は実行終了時に必ず呼ぶこと。
func (m *Manager) Begin(parent context.Context) (context.Context, context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
	}

	ctx, cancel := context.WithCancel(parent)
	m.cancel = cancel
	m.generation++
	gen := m.generation

	// 自分が最新の実行である場合に限りスロットを空にするのだ。
	// 後続の実行に置き換えられた後のキャンセルはスロットに触れないのだ。
	release := func() {
		cancel()
		m.mu.Lock()
		if m.generation == gen {
			m.cancel = nil
		}
		m.mu.Unlock()
	}
	return ctx, release
}

// CancelActive は進行中の実行があればキャンセルするのだ。
func (m *Manager) CancelActive() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// Generation は現在の実行世代を返します（テストや診断用）。
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}
