package pipeline

import "google.golang.org/genai"

// batchSchema は1バッチ分の生成結果に要求するJSONスキーマを組み立てるのだ。
// results 配列の要素数はバッチのセグメント数と厳密に一致するよう制約するのだ
// （サービス側のスキーマ強制は助言的なので、検証は受信側でも行うのだ）。
func batchSchema(segmentCount int) *genai.Schema {
	count := genai.Ptr(int64(segmentCount))
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"results": {
				Type:     genai.TypeArray,
				MinItems: count,
				MaxItems: count,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"prompt": {Type: genai.TypeString},
						"state_updates": {
							Type: genai.TypeArray,
							Items: &genai.Schema{
								Type: genai.TypeObject,
								Properties: map[string]*genai.Schema{
									"entityName": {
										Type:        genai.TypeString,
										Description: "The unique reference ID of the entity that changed (e.g., 'CHARACTER_1').",
									},
									"entityType": {
										Type: genai.TypeString,
										Enum: []string{"character", "environment"},
									},
									"newDescriptionDetail": {
										Type:        genai.TypeString,
										Description: "A concise English phrase describing the visual change.",
									},
								},
								Required: []string{"entityName", "entityType", "newDescriptionDetail"},
							},
						},
					},
					Required: []string{"prompt", "state_updates"},
				},
			},
		},
		Required: []string{"results"},
	}
}
