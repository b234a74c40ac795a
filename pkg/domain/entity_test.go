package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEntitySet(t *testing.T) {
	t.Run("JSONからエンティティ集合を読み込める", func(t *testing.T) {
		raw := `{
			"characters": [
				{"id": "char-1", "name": "Aki", "description": "a tall swordswoman", "aliases": ["the swordswoman"], "is_locked": true}
			],
			"environments": [
				{"id": "env-1", "name": "Forest", "description": "a dense pine forest", "aliases": [], "is_locked": false}
			]
		}`

		set, err := DecodeEntitySet(strings.NewReader(raw))
		require.NoError(t, err)

		require.Len(t, set.Characters, 1)
		assert.Equal(t, "Aki", set.Characters[0].Name)
		assert.True(t, set.Characters[0].IsLocked)
		assert.Equal(t, []string{"the swordswoman"}, set.Characters[0].Aliases)

		require.Len(t, set.Environments, 1)
		assert.False(t, set.Environments[0].IsLocked)
	})

	t.Run("壊れたJSONはエラーになる", func(t *testing.T) {
		_, err := DecodeEntitySet(strings.NewReader("{not json"))
		assert.Error(t, err)
	})
}
