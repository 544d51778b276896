package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-comic-wizard/internal/config"
	"github.com/shouni/go-comic-wizard/internal/runner"

	"github.com/spf13/cobra"
)

// generateCmd は、1枚の絵とストーリーの種からコミック一式を生成するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "子どもの絵からコミックを生成しますなのだ。",
	Long: `1枚の絵を主人公のキャラクターカードに合成し、ストーリーボードの設計、
パネルの作画、ナレーションの合成、最終レイアウトまでを一気通貫で実行するのだ。
成果物はディレクトリにまとめて保存され、play コマンドで再生できるのだよ。`,
	RunE: generateCommand,
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// 1. 必須チェック
	if opts.DrawingFile == "" {
		return fmt.Errorf("元になる絵（--drawing）を指定してほしいのだ")
	}

	// 2. 環境変数等から基本設定をロードするのだ
	cfg := config.LoadConfig()
	cfg.GeminiModel = opts.AIModel
	cfg.GeminiImageModel = opts.ImageModel
	cfg.Options = opts

	slog.Info("コミック生成パイプラインを起動するのだ！",
		"style", opts.StyleID,
		"panels", opts.PanelCount,
		"text_model", cfg.GeminiModel,
		"image_model", cfg.GeminiImageModel,
		"output", opts.OutputDir)

	// 3. 更新した config を考慮しつつパイプラインを実行するのだ
	if err := runner.ExecuteGenerate(ctx, cfg); err != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", err)
	}

	slog.Info("すべての生成工程が完了したのだ！")
	return nil
}
