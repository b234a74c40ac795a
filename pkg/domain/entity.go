package domain

import (
	"encoding/json"
	"fmt"
	"io"
)

// EntityType は状態更新の対象がキャラクターか環境かを示す種別です。
type EntityType string

const (
	EntityCharacter   EntityType = "character"
	EntityEnvironment EntityType = "environment"
)

// Entity は台本に登場するキャラクターまたは環境の視覚情報を保持します。
type Entity struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"` // 画像生成プロンプトに注入する視覚的な描写
	Aliases     []string `json:"aliases"`     // 別名や代名詞などの代替参照
	IsLocked    bool     `json:"is_locked"`   // true の場合、Reconciler による描写の追記を禁止する
}

// EntitySet はキャラクターと環境の2つのコレクションをまとめた集合なのだ。
// 各コレクション内の位置（1始まり）が、AIとの通信で使う参照ID
// （CHARACTER_n / ENVIRONMENT_n）に対応するため、実行中の並び替えは禁止なのだ。
type EntitySet struct {
	Characters   []Entity `json:"characters"`
	Environments []Entity `json:"environments"`
}

// StateUpdate はAIが報告した、エンティティの恒久的な視覚変化の1件です。
type StateUpdate struct {
	EntityName           string     `json:"entityName"` // 参照ID（例: "CHARACTER_1"）
	EntityType           EntityType `json:"entityType"`
	NewDescriptionDetail string     `json:"newDescriptionDetail"`
}

// GenerationResult は1つの台本セグメントに対する生成結果です。
type GenerationResult struct {
	Prompt  string        `json:"prompt"`
	Updates []StateUpdate `json:"state_updates"`
}

// DecodeEntitySet はJSONストリームからエンティティ集合を読み込むのだ。
func DecodeEntitySet(r io.Reader) (EntitySet, error) {
	var set EntitySet
	if err := json.NewDecoder(r).Decode(&set); err != nil {
		return EntitySet{}, fmt.Errorf("エンティティ定義のデコードに失敗したのだ: %w", err)
	}
	return set, nil
}
