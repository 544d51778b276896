// Package generation は、マルチモーダル生成AIへの3種類の呼び出し
// （キャラクターカード合成・ストーリーボードプランニング・パネル作画）をラップします。
package generation

import (
	"context"

	"github.com/shouni/go-comic-wizard/pkg/domain"
)

// PoseCount はキャラクターリファレンスセットを構成する画像の固定枚数です。
const PoseCount = 3

// Client は生成AIクライアントの契約です。オーケストレーターはこれにのみ依存します。
type Client interface {
	// SynthesizeCharacter は、子供の絵から3ポーズのリファレンス画像を並列合成します。
	// 3枚すべての成功が条件で、部分的な成功は存在しません（オール・オア・ナッシング）。
	SynthesizeCharacter(ctx context.Context, drawing domain.EncodedImage, styleID string) ([]domain.EncodedImage, error)

	// PlanStoryboard は、ストーリーの種からパネル数に応じた構成案を1回の構造化出力呼び出しで生成します。
	// スキーマ通りにパースできないレスポンスは StagePlanning のエラーとなり、自動リトライはしません。
	PlanStoryboard(ctx context.Context, storySeed string, panelCount int) (*domain.Storyboard, error)

	// IllustratePanel は、全リファレンス画像を条件として1パネルを作画します。
	// panelIndex はエラー報告と進捗ログのためのパネル位置です。
	IllustratePanel(ctx context.Context, prompt string, refs []domain.EncodedImage, styleID string, panelIndex int) (domain.EncodedImage, error)
}

// ImageRequest は画像を返す生成呼び出し1回分の要求です。
// パーツ（添付画像＋指示文）の順序がそのままリモートAPIへの入力順序になります。
type ImageRequest struct {
	Prompt         string
	NegativePrompt string
	Images         []domain.EncodedImage
}

// ImageModel は画像生成エンジン（アダプター）へのインターフェースです。
type ImageModel interface {
	GenerateImage(ctx context.Context, req ImageRequest) (domain.EncodedImage, error)
}

// TextModel はテキスト生成エンジン（アダプター）へのインターフェースです。
type TextModel interface {
	GenerateText(ctx context.Context, prompt, model string) (string, error)
}
