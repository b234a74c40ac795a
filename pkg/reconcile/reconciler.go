// Package reconcile は、AIが報告した恒久的な視覚変化をエンティティの
// コレクションへマージします。参照IDの解決はリコンサイル時点の
// コレクションに対して行い、古くなった参照は静かに無視します。
package reconcile

import (
	"log/slog"
	"regexp"
	"strconv"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

var (
	characterRef   = regexp.MustCompile(`^CHARACTER_(\d+)$`)
	environmentRef = regexp.MustCompile(`^ENVIRONMENT_(\d+)$`)
)

// Apply は状態更新の一括をエンティティ集合へ反映するのだ。
//
// ロックされたエンティティの更新は破棄され、それ以外は既存の描写へ
// ", <詳細>" を追記するのだ（上書きは決してしない）。不正・範囲外の参照は
// エラーではなく単に無視するのだ（実行中にリストが編集された場合の
// 軟らかい不整合として扱うのだ）。
//
// 返り値のコレクションは、そのコレクションに変化が1件もなければ入力と
// 同一のスライスを返すのだ。呼び出し元は同一性比較だけで変化を検出できるのだ。
func Apply(set domain.EntitySet, updates []domain.StateUpdate) (domain.EntitySet, []string) {
	if len(updates) == 0 {
		return set, nil
	}

	chars := set.Characters
	envs := set.Environments
	charsChanged := false
	envsChanged := false
	var changedIDs []string

	for _, update := range updates {
		switch update.EntityType {
		case domain.EntityCharacter:
			idx, ok := parseRef(characterRef, update.EntityName)
			if !ok || idx >= len(chars) {
				slog.Debug("解決できない参照を無視するのだ", "ref", update.EntityName)
				continue
			}
			if chars[idx].IsLocked {
				slog.Debug("ロック中のため更新を破棄するのだ", "ref", update.EntityName, "id", chars[idx].ID)
				continue
			}
			if !charsChanged {
				chars = append([]domain.Entity(nil), chars...)
				charsChanged = true
			}
			chars[idx].Description += ", " + update.NewDescriptionDetail
			changedIDs = append(changedIDs, chars[idx].ID)

		case domain.EntityEnvironment:
			idx, ok := parseRef(environmentRef, update.EntityName)
			if !ok || idx >= len(envs) {
				slog.Debug("解決できない参照を無視するのだ", "ref", update.EntityName)
				continue
			}
			if envs[idx].IsLocked {
				slog.Debug("ロック中のため更新を破棄するのだ", "ref", update.EntityName, "id", envs[idx].ID)
				continue
			}
			if !envsChanged {
				envs = append([]domain.Entity(nil), envs...)
				envsChanged = true
			}
			envs[idx].Description += ", " + update.NewDescriptionDetail
			changedIDs = append(changedIDs, envs[idx].ID)
		}
	}

	return domain.EntitySet{Characters: chars, Environments: envs}, changedIDs
}

// parseRef は参照IDを0始まりのインデックスへ変換するのだ。
func parseRef(re *regexp.Regexp, name string) (int, bool) {
	m := re.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}
