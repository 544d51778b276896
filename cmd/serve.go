package cmd

import (
	"fmt"

	"github.com/shouni/go-comic-wizard/internal/config"
	"github.com/shouni/go-comic-wizard/internal/runner"

	"github.com/spf13/cobra"
)

var serveAddr string

// serveCmd は、音声合成APIとグリッド合成APIへの中継サーバーを起動するのだ。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "合成APIへの中継サーバーを起動しますなのだ。",
	Long: `音声合成（/api/tts）とグリッド合成（/api/grid）のリクエストを上流APIへ中継するのだ。
資格情報はサーバー側の環境変数（COMIC_TTS_API_KEY / COMIC_GRID_API_KEY）だけが保持し、
クライアントには一切渡さないのだよ。`,
	RunE: serveCommand,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", config.DefaultProxyAddr, "待ち受けアドレスなのだ。")
}

func serveCommand(cmd *cobra.Command, args []string) error {
	cfg := config.LoadConfig()
	cfg.Options = opts

	if err := runner.ExecuteServe(cmd.Context(), cfg, serveAddr); err != nil {
		return fmt.Errorf("中継サーバーの実行に失敗したのだ: %w", err)
	}
	return nil
}
