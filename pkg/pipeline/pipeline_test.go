package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/dispatch"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBatchDispatcher は呼び出し順に用意した応答を返すのだ。
type mockBatchDispatcher struct {
	responses []func() (string, error)
	calls     int
	requests  []dispatch.Request
}

func (m *mockBatchDispatcher) Dispatch(ctx context.Context, keys []string, req dispatch.Request) (string, error) {
	m.requests = append(m.requests, req)
	idx := m.calls
	m.calls++
	if idx >= len(m.responses) {
		return "", fmt.Errorf("unexpected call %d", idx+1)
	}
	return m.responses[idx]()
}

type mockCondenser struct {
	block string
	err   error
	calls int
}

func (m *mockCondenser) Condense(ctx context.Context, set domain.EntitySet, keys []string) (string, error) {
	m.calls++
	return m.block, m.err
}

// batchJSON は n 件分の結果を持つ応答JSONを組み立てるのだ。
func batchJSON(t *testing.T, promptsList []string) func() (string, error) {
	t.Helper()
	type result struct {
		Prompt       string               `json:"prompt"`
		StateUpdates []domain.StateUpdate `json:"state_updates"`
	}
	payload := struct {
		Results []result `json:"results"`
	}{}
	for _, p := range promptsList {
		payload.Results = append(payload.Results, result{Prompt: p, StateUpdates: []domain.StateUpdate{}})
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return func() (string, error) { return string(data), nil }
}

func newTestPipeline(t *testing.T, d requestDispatcher, c contextCondenser) *Pipeline {
	t.Helper()
	builder, err := prompts.NewBuilder()
	require.NoError(t, err)
	p := NewPipeline(d, c, builder, "gemini-2.5-flash")
	p.batchPause = time.Millisecond
	return p
}

// testSettings は1セグメント=2語になる設定なのだ。
func testSettings(batchSize int) domain.Settings {
	return domain.Settings{
		WordsPerSecond:       1,
		ImageIntervalSeconds: 2,
		BatchSize:            batchSize,
		SafetyLevel:          domain.SafetyMaximum,
	}
}

// 14語 → 2語ずつの7セグメントになる台本なのだ。
const sevenSegmentScript = "w01 w02 w03 w04 w05 w06 w07 w08 w09 w10 w11 w12 w13 w14"

func TestPipeline_Generate(t *testing.T) {
	ctx := context.Background()
	keys := []string{"key-a"}

	t.Run("セグメントはバッチ分割され結果が順番に届く", func(t *testing.T) {
		md := &mockBatchDispatcher{responses: []func() (string, error){
			batchJSON(t, []string{"p1", "p2", "p3", "p4", "p5"}),
			batchJSON(t, []string{"p6", "p7"}),
		}}
		p := newTestPipeline(t, md, &mockCondenser{block: "ctx"})

		var total int
		var totalCalls int
		var got []string
		err := p.Generate(ctx, GenerateRequest{
			Script:   sevenSegmentScript,
			Style:    domain.StyleByID("default"),
			Settings: testSettings(5),
			Keys:     keys,
			OnTotal: func(n int) {
				totalCalls++
				total = n
				// 総数の通知は最初の結果より先でなければならない
				assert.Empty(t, got)
			},
			OnProgress: func(r domain.GenerationResult) {
				got = append(got, r.Prompt)
			},
		})

		require.NoError(t, err)
		assert.Equal(t, 1, totalCalls)
		assert.Equal(t, 7, total)
		assert.Equal(t, []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7"}, got)
		assert.Equal(t, 2, md.calls)

		// 2バッチ目の通し番号は6から始まる
		assert.Contains(t, md.requests[1].Input, "//--- SEGMENT 6 ---//")
		assert.Contains(t, md.requests[1].Input, "generate exactly 2 result objects")
	})

	t.Run("バッチ単体の失敗はエラーマーカー結果になって続行する", func(t *testing.T) {
		upstream := errors.New("500 internal error")
		md := &mockBatchDispatcher{responses: []func() (string, error){
			func() (string, error) { return "", upstream },
			batchJSON(t, []string{"p6", "p7"}),
		}}
		p := newTestPipeline(t, md, &mockCondenser{block: "ctx"})

		var got []domain.GenerationResult
		err := p.Generate(ctx, GenerateRequest{
			Script:   sevenSegmentScript,
			Style:    domain.StyleByID("default"),
			Settings: testSettings(5),
			Keys:     keys,
			OnProgress: func(r domain.GenerationResult) {
				got = append(got, r)
			},
		})

		require.NoError(t, err)
		require.Len(t, got, 7)
		for _, r := range got[:5] {
			assert.True(t, strings.HasPrefix(r.Prompt, errorMarkerPrefix), r.Prompt)
			assert.Contains(t, r.Prompt, "500 internal error")
			assert.NotNil(t, r.Updates)
			assert.Empty(t, r.Updates)
		}
		assert.Equal(t, "p6", got[5].Prompt)
		assert.Equal(t, "p7", got[6].Prompt)
	})

	t.Run("キャンセルは即座に実行全体を止める", func(t *testing.T) {
		md := &mockBatchDispatcher{
			responses: []func() (string, error){
				batchJSON(t, []string{"p1", "p2", "p3", "p4", "p5"}),
				func() (string, error) { return "", context.Canceled },
			},
		}
		p := newTestPipeline(t, md, &mockCondenser{block: "ctx"})

		var got []string
		err := p.Generate(ctx, GenerateRequest{
			Script:   sevenSegmentScript,
			Style:    domain.StyleByID("default"),
			Settings: testSettings(5),
			Keys:     keys,
			OnProgress: func(r domain.GenerationResult) {
				got = append(got, r.Prompt)
			},
		})

		require.ErrorIs(t, err, context.Canceled)
		// 失敗バッチ以降の結果は届かない
		assert.Len(t, got, 5)
	})

	t.Run("応答のプロンプトは1行へ正規化される", func(t *testing.T) {
		md := &mockBatchDispatcher{responses: []func() (string, error){
			batchJSON(t, []string{"wide shot\n- stormy sky\n- broken mast"}),
		}}
		p := newTestPipeline(t, md, &mockCondenser{block: "ctx"})

		var got []string
		err := p.Generate(ctx, GenerateRequest{
			Script:   "one two",
			Style:    domain.StyleByID("default"),
			Settings: testSettings(5),
			Keys:     keys,
			OnProgress: func(r domain.GenerationResult) {
				got = append(got, r.Prompt)
			},
		})

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "wide shot, stormy sky, broken mast", got[0])
	})

	t.Run("壊れた応答はバッチ失敗としてマーカー結果になる", func(t *testing.T) {
		md := &mockBatchDispatcher{responses: []func() (string, error){
			func() (string, error) { return "sorry, here is prose instead of json", nil },
		}}
		p := newTestPipeline(t, md, &mockCondenser{block: "ctx"})

		var got []string
		err := p.Generate(ctx, GenerateRequest{
			Script:   "one two three four",
			Style:    domain.StyleByID("default"),
			Settings: testSettings(5),
			Keys:     keys,
			OnProgress: func(r domain.GenerationResult) {
				got = append(got, r.Prompt)
			},
		})

		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, prompt := range got {
			assert.True(t, strings.HasPrefix(prompt, errorMarkerPrefix))
		}
	})

	t.Run("キーが空ならErrNoCredentials", func(t *testing.T) {
		p := newTestPipeline(t, &mockBatchDispatcher{}, &mockCondenser{})
		err := p.Generate(ctx, GenerateRequest{Script: "hello", Settings: testSettings(5)})
		assert.ErrorIs(t, err, dispatch.ErrNoCredentials)
	})

	t.Run("台本が空ならErrEmptyScript", func(t *testing.T) {
		p := newTestPipeline(t, &mockBatchDispatcher{}, &mockCondenser{})
		err := p.Generate(ctx, GenerateRequest{Settings: testSettings(5), Keys: keys})
		assert.ErrorIs(t, err, ErrEmptyScript)
	})

	t.Run("空白だけの台本は出力ゼロで正常終了する", func(t *testing.T) {
		md := &mockBatchDispatcher{}
		var totalCalled bool
		p := newTestPipeline(t, md, &mockCondenser{block: "ctx"})

		err := p.Generate(ctx, GenerateRequest{
			Script:   "   \n\t ",
			Style:    domain.StyleByID("default"),
			Settings: testSettings(5),
			Keys:     keys,
			OnTotal:  func(int) { totalCalled = true },
		})

		require.NoError(t, err)
		assert.Zero(t, md.calls)
		assert.False(t, totalCalled)
	})

	t.Run("文脈圧縮のキャンセルは実行全体を止める", func(t *testing.T) {
		p := newTestPipeline(t, &mockBatchDispatcher{}, &mockCondenser{err: context.Canceled})
		err := p.Generate(ctx, GenerateRequest{
			Script:   "one two",
			Settings: testSettings(5),
			Keys:     keys,
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNormalizePrompt(t *testing.T) {
	t.Run("箇条書きはカンマ区切りへ畳まれる", func(t *testing.T) {
		got := normalizePrompt("establishing shot\n- misty harbor\n  -  lone figure")
		assert.Equal(t, "establishing shot, misty harbor, lone figure", got)
	})

	t.Run("残った改行は空白になる", func(t *testing.T) {
		got := normalizePrompt("first line\nsecond line\r\nthird")
		assert.Equal(t, "first line second line  third", got)
	})

	t.Run("前後の空白は取り除かれる", func(t *testing.T) {
		assert.Equal(t, "clean", normalizePrompt("  clean \n"))
	})
}

func TestErrorResults(t *testing.T) {
	t.Run("各セグメントに原因付きのマーカー結果が作られる", func(t *testing.T) {
		cause := errors.New("boom")
		segments := []string{"short segment", strings.Repeat("long ", 40)}

		got := errorResults(segments, cause)
		require.Len(t, got, 2)

		for _, r := range got {
			assert.True(t, strings.HasPrefix(r.Prompt, errorMarkerPrefix))
			assert.Contains(t, r.Prompt, "boom")
			assert.NotNil(t, r.Updates)
			assert.Empty(t, r.Updates)
		}
		// 長いセグメントは切り詰められる
		assert.Contains(t, got[1].Prompt, "...")
	})
}
