package generation

import (
	"context"
	"fmt"

	"github.com/shouni/go-comic-wizard/pkg/domain"

	"google.golang.org/genai"
)

// geminiImageModel は ImageModel の genai SDK 実装です。
// 添付画像と指示文を順序付きパーツとしてマルチモーダルAPIに渡し、インライン画像を受け取ります。
type geminiImageModel struct {
	client *genai.Client
	model  string
}

// newGeminiImageModel は genai クライアントを初期化して画像生成モデルを返します。
func newGeminiImageModel(ctx context.Context, apiKey, model string) (*geminiImageModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	return &geminiImageModel{
		client: client,
		model:  model,
	}, nil
}

// GenerateImage は1回の画像生成呼び出しを実行し、最初のインライン画像を返します。
func (g *geminiImageModel) GenerateImage(ctx context.Context, req ImageRequest) (domain.EncodedImage, error) {
	// パーツの順序は「添付画像 → 指示文」で固定。リモートモデルは先行する画像を条件として扱うのだ。
	parts := make([]*genai.Part, 0, len(req.Images)+2)
	for _, img := range req.Images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MimeType))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))
	if req.NegativePrompt != "" {
		parts = append(parts, genai.NewPartFromText("### NEVER INCLUDE ###\n"+req.NegativePrompt))
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return domain.EncodedImage{}, fmt.Errorf("画像生成APIの呼び出しに失敗しました: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return domain.EncodedImage{}, fmt.Errorf("画像生成レスポンスに候補が含まれていません")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return domain.EncodedImage{
				Data:     part.InlineData.Data,
				MimeType: part.InlineData.MIMEType,
			}, nil
		}
	}

	return domain.EncodedImage{}, fmt.Errorf("画像生成レスポンスにインライン画像がありません")
}
