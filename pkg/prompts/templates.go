// Package prompts は、生成AIに渡す指示文のテンプレート群を管理します。
// ポーズやスタイルの定義はロジックではなく設定データとして扱い、
// 識別子をキーにした対応表から Generation Client がパラメータ化するのだ。
package prompts

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed storyboard.md
var storyboardTemplate string

// Pose はキャラクターリファレンス1枚分のポーズ定義です。
type Pose struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// Style は全生成呼び出しに共通して適用する画風の定義です。
type Style struct {
	ID     string `json:"id"`
	Suffix string `json:"suffix"`
}

// スタイル識別子の定義なのだ
const (
	StyleStorybook = "storybook"
	StyleCrayon    = "crayon"
)

// DefaultStyleID は明示的な指定がない場合に使用するスタイルです。
const DefaultStyleID = StyleStorybook

// defaultPoses はキャラクターリファレンスセットを構成する3ポーズの固定表です。
// 順序がそのまま characterReferences の順序になるため、並び替えてはいけないのだ。
var defaultPoses = []Pose{
	{ID: "front", Description: "standing facing the viewer, neutral friendly expression, full body"},
	{ID: "three-quarter", Description: "three-quarter view, smiling happily, full body"},
	{ID: "action", Description: "dynamic action pose, mid-movement, full of energy, full body"},
}

// defaultStyles はスタイル識別子と画風サフィックスの対応表です。
var defaultStyles = map[string]Style{
	StyleStorybook: {
		ID:     StyleStorybook,
		Suffix: "colorful children's storybook comic style, bold clean outlines, flat bright colors, friendly rounded shapes, soft lighting, high resolution",
	},
	StyleCrayon: {
		ID:     StyleCrayon,
		Suffix: "hand-drawn crayon illustration style, textured strokes, warm pastel colors, playful and childlike, high resolution",
	},
}

// NegativeImagePrompt は全画像生成に共通のネガティブ指示です。
// 吹き出しと文字はレイアウト工程で別途合成するため、画像内には一切含めないのだ。
const NegativeImagePrompt = "speech bubble, dialogue balloon, text, letters, words, captions, watermark, signature, photorealistic, photograph, 3D render, low quality, distorted, bad anatomy"

// Poses は3ポーズの固定表の防御的コピーを返します。
func Poses() []Pose {
	copied := make([]Pose, len(defaultPoses))
	copy(copied, defaultPoses)
	return copied
}

// FindStyle は識別子からスタイル定義を取得します。未知のIDはデフォルトにフォールバックします。
func FindStyle(id string) Style {
	if s, ok := defaultStyles[id]; ok {
		return s
	}
	return defaultStyles[DefaultStyleID]
}

// LoadStyles は外部JSONファイルからスタイル表を読み込み、組み込みの表を上書きします。
// デプロイ先ごとに画風を差し替えられるようにするための仕組みなのだ。
func LoadStyles(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("スタイル設定ファイルの読み込みに失敗しました: %w", err)
	}

	var styles map[string]Style
	if err := json.Unmarshal(data, &styles); err != nil {
		return fmt.Errorf("スタイル設定のデコードに失敗しました: %w", err)
	}
	if _, ok := styles[DefaultStyleID]; !ok {
		return fmt.Errorf("スタイル設定にはデフォルトスタイル '%s' が必須です", DefaultStyleID)
	}

	defaultStyles = styles
	return nil
}
