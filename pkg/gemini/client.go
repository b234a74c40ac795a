// Package gemini は dispatch.Caller の Gemini API 実装を提供します。
// ディスパッチャーが試行ごとに別のAPIキーを使うため、呼び出しの都度
// そのキーでクライアントを組み立てます。
package gemini

import (
	"context"
	"fmt"

	"github.com/shouni/go-storyboard-kit/pkg/dispatch"
	"google.golang.org/genai"
)

// defaultSafetySettings は全リクエストに一律で適用するモデレーション閾値なのだ。
// 安全レベル設定はプロンプト側の方針を切り替えるだけで、この閾値は変えないのだ。
var defaultSafetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
}

// Client は Gemini API を呼び出す dispatch.Caller の実体です。
type Client struct{}

// NewClient は Client を初期化します。
func NewClient() *Client {
	return &Client{}
}

// Call は指定キーで1回の generateContent を実行し、応答テキストを返すのだ。
func (c *Client) Call(ctx context.Context, apiKey string, req dispatch.Request) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("Geminiクライアントの初期化に失敗したのだ: %w", err)
	}

	cfg := &genai.GenerateContentConfig{
		SafetySettings: defaultSafetySettings,
		Temperature:    req.Temperature,
	}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemInstruction}},
		}
	}
	if req.JSONResponse {
		cfg.ResponseMIMEType = "application/json"
	}
	if req.ResponseSchema != nil {
		cfg.ResponseSchema = req.ResponseSchema
	}

	resp, err := client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Input), cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
