package domain

import "strings"

// ArtStyle は生成プロンプト全体に適用する画風の指定です。
type ArtStyle struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Tags string `json:"tags"` // プロンプト末尾に合成するスタイルタグ列
}

// builtinStyles はアプリケーション組み込みの画風テーブルなのだ。
var builtinStyles = []ArtStyle{
	{ID: "default", Name: "Default", Tags: "highly detailed, sharp focus, professional digital art"},
	{ID: "cinematic", Name: "Cinematic", Tags: "cinematic lighting, dramatic atmosphere, film grain, anamorphic lens flare, epic composition, 8k"},
	{ID: "anime", Name: "Anime", Tags: "anime style, vibrant colors, clean line art, cel-shaded, official art, high-quality key visual"},
	{ID: "cyberpunk-ghibli", Name: "Cyberpunk Ghibli", Tags: "Studio Ghibli style meets cyberpunk, neon-lit painterly world, lush detail, warm nostalgic palette with electric accents"},
	{ID: "watercolor", Name: "Watercolor", Tags: "delicate watercolor painting, soft washes of color, visible paper texture, gentle light"},
	{ID: "dong-ho", Name: "Dong Ho Painting", Tags: "Vietnamese Dong Ho folk painting style, woodblock print, flat earthy colors, bold outlines, traditional motifs"},
	{ID: "silk-painting", Name: "Vietnamese Silk Painting", Tags: "Vietnamese silk painting, translucent layers, muted elegant palette, flowing brushwork"},
}

// Styles は組み込み画風テーブルの防御的コピーを返すのだ。
func Styles() []ArtStyle {
	out := make([]ArtStyle, len(builtinStyles))
	copy(out, builtinStyles)
	return out
}

// StyleByID はIDに一致する画風を返します。見つからない場合は Default を返します。
func StyleByID(id string) ArtStyle {
	for _, s := range builtinStyles {
		if strings.EqualFold(s.ID, id) {
			return s
		}
	}
	return builtinStyles[0]
}
