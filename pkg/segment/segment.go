// Package segment は台本を固定幅の単語ウィンドウへ分割し、
// リクエスト単位のバッチへまとめる純粋関数を提供します。
package segment

import (
	"fmt"
	"strings"
)

// Split は台本を空白区切りの単語列とみなし、windowWords 語ずつの
// 連続したセグメントへ分割するのだ。末尾のセグメントだけは短くてよいのだ。
// 単語が1つもない台本は空のスライスを返すのだ（エラーではない）。
func Split(script string, windowWords int) ([]string, error) {
	if windowWords <= 0 {
		return nil, fmt.Errorf("セグメント幅は正の値が必要なのだ: %d", windowWords)
	}

	words := strings.Fields(script)
	if len(words) == 0 {
		return nil, nil
	}

	segments := make([]string, 0, (len(words)+windowWords-1)/windowWords)
	for i := 0; i < len(words); i += windowWords {
		end := min(i+windowWords, len(words))
		segments = append(segments, strings.Join(words[i:end], " "))
	}
	return segments, nil
}

// Batches はセグメント列を最大 size 件ずつの連続したバッチへまとめます。
func Batches(segments []string, size int) [][]string {
	if size <= 0 || len(segments) == 0 {
		return nil
	}
	batches := make([][]string, 0, (len(segments)+size-1)/size)
	for i := 0; i < len(segments); i += size {
		end := min(i+size, len(segments))
		batches = append(batches, segments[i:end])
	}
	return batches
}
