package reconcile

import (
	"testing"

	"github.com/shouni/go-storyboard-kit/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseSet() domain.EntitySet {
	return domain.EntitySet{
		Characters: []domain.Entity{
			{ID: "char-1", Name: "Aki", Description: "a tall swordswoman", IsLocked: true},
			{ID: "char-2", Name: "Ren", Description: "a young scout", IsLocked: false},
		},
		Environments: []domain.Entity{
			{ID: "env-1", Name: "Forest", Description: "a dense pine forest", IsLocked: false},
		},
	}
}

func TestApply(t *testing.T) {
	t.Run("ロック解除済みのエンティティへ詳細が追記される", func(t *testing.T) {
		set := baseSet()

		got, changed := Apply(set, []domain.StateUpdate{
			{EntityName: "CHARACTER_2", EntityType: domain.EntityCharacter, NewDescriptionDetail: "now carrying a torn map"},
		})

		assert.Equal(t, "a young scout, now carrying a torn map", got.Characters[1].Description)
		assert.Equal(t, []string{"char-2"}, changed)

		// 入力側は変更されない
		assert.Equal(t, "a young scout", set.Characters[1].Description)
	})

	t.Run("ロック中のエンティティは更新されない", func(t *testing.T) {
		set := baseSet()

		got, changed := Apply(set, []domain.StateUpdate{
			{EntityName: "CHARACTER_1", EntityType: domain.EntityCharacter, NewDescriptionDetail: "covered in mud"},
		})

		assert.Equal(t, "a tall swordswoman", got.Characters[0].Description)
		assert.Empty(t, changed)
	})

	t.Run("環境への更新も同じ規則で反映される", func(t *testing.T) {
		set := baseSet()

		got, changed := Apply(set, []domain.StateUpdate{
			{EntityName: "ENVIRONMENT_1", EntityType: domain.EntityEnvironment, NewDescriptionDetail: "burning in the distance"},
		})

		assert.Equal(t, "a dense pine forest, burning in the distance", got.Environments[0].Description)
		assert.Equal(t, []string{"env-1"}, changed)
	})

	t.Run("不正な参照と範囲外の参照は無視される", func(t *testing.T) {
		set := baseSet()

		got, changed := Apply(set, []domain.StateUpdate{
			{EntityName: "CHARACTER_99", EntityType: domain.EntityCharacter, NewDescriptionDetail: "x"},
			{EntityName: "CHARACTER_0", EntityType: domain.EntityCharacter, NewDescriptionDetail: "x"},
			{EntityName: "Ren", EntityType: domain.EntityCharacter, NewDescriptionDetail: "x"},
			{EntityName: "ENVIRONMENT_abc", EntityType: domain.EntityEnvironment, NewDescriptionDetail: "x"},
		})

		assert.Empty(t, changed)
		assert.Equal(t, set, got)
	})

	t.Run("変化がないコレクションは同一スライスのまま返る", func(t *testing.T) {
		set := baseSet()

		got, _ := Apply(set, []domain.StateUpdate{
			{EntityName: "CHARACTER_2", EntityType: domain.EntityCharacter, NewDescriptionDetail: "detail"},
		})

		// キャラクター側だけコピーされ、環境側は同一スライスのまま
		assert.NotSame(t, &set.Characters[0], &got.Characters[0])
		assert.Same(t, &set.Environments[0], &got.Environments[0])
	})

	t.Run("同じエンティティへの複数更新は順に追記される", func(t *testing.T) {
		set := baseSet()

		got, changed := Apply(set, []domain.StateUpdate{
			{EntityName: "CHARACTER_2", EntityType: domain.EntityCharacter, NewDescriptionDetail: "wounded arm"},
			{EntityName: "CHARACTER_2", EntityType: domain.EntityCharacter, NewDescriptionDetail: "bandaged"},
		})

		assert.Equal(t, "a young scout, wounded arm, bandaged", got.Characters[1].Description)
		assert.Equal(t, []string{"char-2", "char-2"}, changed)
	})

	t.Run("更新が空なら入力がそのまま返る", func(t *testing.T) {
		set := baseSet()
		got, changed := Apply(set, nil)
		require.Empty(t, changed)
		assert.Equal(t, set, got)
	})
}

func TestParseRef(t *testing.T) {
	t.Run("1始まりの参照が0始まりのインデックスになる", func(t *testing.T) {
		idx, ok := parseRef(characterRef, "CHARACTER_1")
		require.True(t, ok)
		assert.Equal(t, 0, idx)

		idx, ok = parseRef(characterRef, "CHARACTER_12")
		require.True(t, ok)
		assert.Equal(t, 11, idx)
	})

	t.Run("形式が違えば失敗する", func(t *testing.T) {
		_, ok := parseRef(characterRef, "character_1")
		assert.False(t, ok)

		_, ok = parseRef(characterRef, "CHARACTER_")
		assert.False(t, ok)

		_, ok = parseRef(characterRef, "CHARACTER_1x")
		assert.False(t, ok)

		_, ok = parseRef(characterRef, "CHARACTER_0")
		assert.False(t, ok)
	})
}
