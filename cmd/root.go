package cmd

import (
	"fmt"
	"os"

	"github.com/shouni/go-comic-wizard/internal/config"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
)

// opts は CLI フラグの束で、addAppFlags で各フラグに紐付けられるのだ。
var opts config.GenerateOptions

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- ソース入力関連 ---
	rootCmd.PersistentFlags().StringVarP(&opts.DrawingFile, "drawing", "d", "", "元になる子どもの絵の画像パスなのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.Story, "story", "", "ストーリーの種になるテキストなのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.StoryFile, "story-file", "f", "", "ストーリーテキストのファイルパスなのだ。")

	// --- 生成結果の出力設定 ---
	rootCmd.PersistentFlags().StringVarP(&opts.OutputDir, "output-dir", "o", config.DefaultOutputDir, "コミック一式の保存先ディレクトリなのだ。")

	// --- コミックの構成設定 ---
	rootCmd.PersistentFlags().IntVarP(&opts.PanelCount, "panels", "p", config.DefaultPanelCount, "生成するパネル数（3〜8）なのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.StyleID, "style", "s", config.DefaultStyleID, "画風のスタイルIDなのだ。")
	generateCmd.Flags().StringVar(&opts.StylesFile, "styles-file", "", "スタイル定義を上書きするJSONパスなのだ。")

	// --- AIモデル・挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.AIModel, "model", config.DefaultModel, "プランニングに使う Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.ImageModel, "image-model", config.DefaultImageModel, "作画に使う Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "Webリクエストのタイムアウトなのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.RateInterval, "rate-interval", config.DefaultRateInterval, "画像生成リクエストの最小間隔なのだ。")
}

// preRunAppE は、コマンド実行前に環境変数などの必須チェックを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	// Gemini API を使うのは generate だけなので、他のコマンドではチェックしないのだ
	if cmd.Name() != "generate" {
		return nil
	}
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}

	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	clibase.Execute(
		"comic-wizard",
		addAppFlags,
		preRunAppE,
		generateCmd,
		playCmd,
		serveCmd,
	)
}
