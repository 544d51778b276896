package cmd

import (
	"fmt"
	"os"

	"github.com/shouni/go-comic-wizard/internal/config"
	"github.com/shouni/go-comic-wizard/internal/runner"

	"github.com/spf13/cobra"
)

// playCmd は、保存済みのコミックをナレーション付きで順番に再生するのだ。
var playCmd = &cobra.Command{
	Use:   "play [comic-dir]",
	Short: "完成したコミックを読み聞かせますなのだ。",
	Long: `generate コマンドが保存したコミックのディレクトリを読み込み、
パネルを順番にたどりながらナレーション音声を再生するのだ。
音声の再生には ffplay（リモート音声）または say / espeak（端末読み上げ）を使うのだよ。`,
	Args: cobra.MaximumNArgs(1),
	RunE: playCommand,
}

func playCommand(cmd *cobra.Command, args []string) error {
	dir := config.DefaultOutputDir
	if len(args) > 0 {
		dir = args[0]
	} else if opts.OutputDir != "" {
		dir = opts.OutputDir
	}

	if err := runner.ExecutePlay(dir, os.Stdin, os.Stdout); err != nil {
		return fmt.Errorf("コミックの再生に失敗したのだ: %w", err)
	}
	return nil
}
