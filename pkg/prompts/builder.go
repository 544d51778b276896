package prompts

import (
	"fmt"
	"strings"
	"text/template"
)

// StoryboardData はストーリーボード生成テンプレートに渡すデータ構造です。
type StoryboardData struct {
	Story      string
	PanelCount int
}

// Builder は、ポーズ表・スタイル表・テンプレートを束ねてAIへの指示文を構築します。
type Builder struct {
	storyboard *template.Template
}

// NewBuilder は埋め込みテンプレートを解析して Builder を初期化します。
func NewBuilder() (*Builder, error) {
	if storyboardTemplate == "" {
		return nil, fmt.Errorf("ストーリーボードテンプレート (go:embed) の読み込みに失敗しました: 内容が空です")
	}

	tmpl, err := template.New("storyboard").Parse(storyboardTemplate)
	if err != nil {
		return nil, fmt.Errorf("ストーリーボードテンプレートの解析に失敗: %w", err)
	}

	return &Builder{storyboard: tmpl}, nil
}

// BuildStoryboardPrompt はパネル数を織り込んだプランニング用プロンプトを生成します。
func (b *Builder) BuildStoryboardPrompt(data StoryboardData) (string, error) {
	var sb strings.Builder
	if err := b.storyboard.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("ストーリーボードテンプレートの実行に失敗しました: %w", err)
	}
	return sb.String(), nil
}

// BuildCharacterPrompt は、子供の絵からリファレンス画像1枚を生成するための指示文を構築します。
// 元の絵のアイデンティティ（衣装の色、顔の形）を保持しつつ、写実表現を避けるよう強制するのだ。
func (b *Builder) BuildCharacterPrompt(pose Pose, styleID string) string {
	style := FindStyle(styleID)

	var sb strings.Builder
	sb.WriteString("### CHARACTER REFERENCE SHEET ###\n")
	sb.WriteString("Redraw the character from the attached child's drawing as a polished comic character.\n")
	sb.WriteString("- IDENTITY: Keep the SAME costume colors, face shape and distinctive features as the drawing.\n")
	sb.WriteString(fmt.Sprintf("- POSE [%s]: %s\n", pose.ID, pose.Description))
	sb.WriteString(fmt.Sprintf("- STYLE: %s\n", style.Suffix))
	sb.WriteString("- BACKGROUND: plain white, nothing else in frame.\n")
	sb.WriteString("- NEVER photorealistic. NEVER any text in the image.\n")
	return sb.String()
}

// BuildPanelPrompt は、リファレンス画像群を前提とした1コマ分の描画指示を構築します。
func (b *Builder) BuildPanelPrompt(scenePrompt, styleID string) string {
	style := FindStyle(styleID)

	var sb strings.Builder
	sb.WriteString("### COMIC PANEL ###\n")
	sb.WriteString("Draw one comic panel featuring EXACTLY the character shown in the attached reference images.\n")
	sb.WriteString("- IDENTITY: same costume colors, same face shape, same proportions as the references.\n")
	sb.WriteString(fmt.Sprintf("- SCENE: %s\n", scenePrompt))
	sb.WriteString(fmt.Sprintf("- STYLE: %s\n", style.Suffix))
	sb.WriteString("- NO speech bubbles, NO text, NO captions. Those are composited later.\n")
	sb.WriteString("- NEVER photorealistic.\n")
	return sb.String()
}
