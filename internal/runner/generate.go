// Package runner は、CLIコマンドと各パッケージの間の配線を担うのだ。
// 生成パイプラインの組み立て・進捗表示・成果物の保存までをここで面倒みます。
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shouni/go-comic-wizard/internal/config"
	"github.com/shouni/go-comic-wizard/pkg/domain"
	"github.com/shouni/go-comic-wizard/pkg/generation"
	"github.com/shouni/go-comic-wizard/pkg/layout"
	"github.com/shouni/go-comic-wizard/pkg/media"
	"github.com/shouni/go-comic-wizard/pkg/narration"
	"github.com/shouni/go-comic-wizard/pkg/pipeline"
	"github.com/shouni/go-comic-wizard/pkg/prompts"

	"github.com/shouni/go-http-kit/httpkit"
)

// ManifestFile は完成したコミックの目次ファイル名です。play コマンドがこれを読みます。
const ManifestFile = "comic.json"

// Manifest は保存されたコミック一式の目次です。
type Manifest struct {
	Title     string          `json:"title"`
	LayoutURL string          `json:"layout_url,omitempty"`
	Panels    []ManifestPanel `json:"panels"`
}

// ManifestPanel は1パネル分の成果物への参照です。パスは目次からの相対パスなのだ。
type ManifestPanel struct {
	Image     string `json:"image"`
	Caption   string `json:"caption,omitempty"`
	AudioKind string `json:"audio_kind,omitempty"`
	AudioFile string `json:"audio_file,omitempty"`
	AudioMime string `json:"audio_mime,omitempty"`
	Text      string `json:"text,omitempty"`
}

// ExecuteGenerate は生成パイプラインを最初から最後まで実行し、成果物を保存するのだ。
func ExecuteGenerate(ctx context.Context, cfg *config.Config) error {
	opts := cfg.Options

	if opts.StylesFile != "" {
		if err := prompts.LoadStyles(opts.StylesFile); err != nil {
			return fmt.Errorf("スタイル定義の読み込みに失敗したのだ: %w", err)
		}
	}

	drawing, err := media.EncodeFile(opts.DrawingFile)
	if err != nil {
		return fmt.Errorf("元になる絵の読み込みに失敗したのだ: %w", err)
	}

	story, err := resolveStory(opts)
	if err != nil {
		return err
	}

	orch, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}

	// 進捗は購読者として受け取り、工程の切り替わりとパネル完了数を流すのだ
	orch.Subscribe(progressObserver())

	snap, err := orch.Generate(ctx, pipeline.Input{
		Drawing:    drawing,
		Story:      story,
		PanelCount: opts.PanelCount,
		StyleID:    opts.StyleID,
	})
	if err != nil {
		return fmt.Errorf("コミック生成に失敗したのだ: %w", err)
	}

	if err := persist(opts.OutputDir, snap); err != nil {
		return fmt.Errorf("成果物の保存に失敗したのだ: %w", err)
	}

	slog.Info("コミック一式を保存したのだ！", "dir", opts.OutputDir, "panels", len(snap.PanelImages))
	return nil
}

// buildOrchestrator は設定から全依存を組み立てるのだ。
func buildOrchestrator(ctx context.Context, cfg *config.Config) (*pipeline.Orchestrator, error) {
	httpClient := httpkit.New(cfg.Options.HTTPTimeout)

	gen, err := generation.New(ctx, generation.Args{
		Config: generation.Config{
			APIKey:       cfg.GeminiAPIKey,
			TextModel:    cfg.GeminiModel,
			ImageModel:   cfg.GeminiImageModel,
			RateInterval: cfg.Options.RateInterval,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("生成クライアントの構築に失敗したのだ: %w", err)
	}

	narrator := narration.New(httpClient, cfg.TTSEndpoint, narration.NewLocalSpeech())
	composer := layout.New(httpClient, cfg.GridEndpoint)

	return pipeline.New(gen, narrator, composer), nil
}

// resolveStory は --story と --story-file のどちらかからストーリーテキストを取り出すのだ。
func resolveStory(opts config.GenerateOptions) (string, error) {
	if strings.TrimSpace(opts.Story) != "" {
		return opts.Story, nil
	}
	if opts.StoryFile == "" {
		return "", fmt.Errorf("ストーリー（--story または --story-file）を指定してほしいのだ")
	}

	data, err := os.ReadFile(opts.StoryFile)
	if err != nil {
		return "", fmt.Errorf("ストーリーファイルの読み込みに失敗したのだ: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("ストーリーファイル '%s' が空です", opts.StoryFile)
	}
	return string(data), nil
}

// progressObserver は工程の切り替わりとパネル完了を標準ログに流す購読者です。
func progressObserver() pipeline.Observer {
	var lastPhase pipeline.Phase
	var lastDone int

	return func(snap pipeline.Snapshot) {
		if snap.Phase != lastPhase {
			lastPhase = snap.Phase
			slog.Info("工程が進んだのだ", "phase", snap.Phase)
		}
		if done := snap.PanelsDone(); done != lastDone {
			lastDone = done
			slog.Info("パネルが完成したのだ", "done", done, "total", len(snap.PanelImages))
		}
		if snap.Err != nil && snap.Phase == pipeline.PhaseFailed {
			slog.Error("工程が失敗したのだ", "error", snap.Err)
		}
	}
}

// persist は Ready スナップショットの成果物一式をディレクトリに書き出すのだ。
func persist(dir string, snap pipeline.Snapshot) error {
	if snap.Phase != pipeline.PhaseReady || snap.Storyboard == nil {
		return fmt.Errorf("保存できる完成状態ではありません: phase=%s", snap.Phase)
	}

	for _, sub := range []string{"panels", "audio"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return err
		}
	}

	manifest := Manifest{Title: snap.Storyboard.Title}
	if snap.FinalLayout != nil {
		manifest.LayoutURL = snap.FinalLayout.URL
	}

	for i, img := range snap.PanelImages {
		if img == nil {
			return fmt.Errorf("パネル %d の画像が欠けています", i+1)
		}

		imageRel := filepath.Join("panels", fmt.Sprintf("panel_%02d%s", i+1, imageExt(img.MimeType)))
		if err := os.WriteFile(filepath.Join(dir, imageRel), img.Data, 0o644); err != nil {
			return err
		}

		entry := ManifestPanel{
			Image:   imageRel,
			Caption: snap.Storyboard.Panels[i].NarratorCaption(),
		}

		if i < len(snap.PanelAudio) && snap.PanelAudio[i] != nil {
			handle := snap.PanelAudio[i]
			entry.AudioKind = string(handle.Kind)
			entry.Text = handle.Text

			if handle.Kind == domain.HandleRemoteAudio {
				audioRel := filepath.Join("audio", fmt.Sprintf("panel_%02d%s", i+1, audioExt(handle.MimeType)))
				if err := os.WriteFile(filepath.Join(dir, audioRel), handle.Data, 0o644); err != nil {
					return err
				}
				entry.AudioFile = audioRel
				entry.AudioMime = handle.MimeType
			}
		}

		manifest.Panels = append(manifest.Panels, entry)
	}

	// ストーリーボードも原文のまま残しておくのだ（デバッグと再生成の種に便利！）
	storyboardJSON, err := json.MarshalIndent(snap.Storyboard, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "storyboard.json"), storyboardJSON, 0o644); err != nil {
		return err
	}

	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ManifestFile), manifestJSON, 0o644)
}

// imageExt は MIME タイプから画像の拡張子を推測するのだ。
func imageExt(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}

// audioExt は MIME タイプから音声の拡張子を推測するのだ。
func audioExt(mimeType string) string {
	switch mimeType {
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".mp3"
	}
}
