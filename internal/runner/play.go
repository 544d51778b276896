package runner

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shouni/go-comic-wizard/pkg/domain"
	"github.com/shouni/go-comic-wizard/pkg/playback"
)

// ExecutePlay は保存済みのコミックを読み込み、対話的な再生ループを開始するのだ。
func ExecutePlay(dir string, in io.Reader, out io.Writer) error {
	manifest, err := loadManifest(dir)
	if err != nil {
		return err
	}

	handles, err := loadAudioHandles(dir, manifest)
	if err != nil {
		return err
	}

	engine, err := playback.NewEngine(handles, playback.NewExecPlayerFactory())
	if err != nil {
		return fmt.Errorf("再生エンジンの初期化に失敗したのだ: %w", err)
	}

	fmt.Fprintf(out, "『%s』 全%dパネル\n", manifest.Title, len(manifest.Panels))
	fmt.Fprintln(out, "コマンド: play / pause / next / prev / replay / quit")

	return commandLoop(engine, manifest, in, out)
}

// commandLoop は標準入力からコマンドを読み、エンジンを操作するのだ。
func commandLoop(engine *playback.Engine, manifest Manifest, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	printPanel(out, manifest, engine.Index())

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			engine.Pause()
			return scanner.Err()
		}

		switch strings.TrimSpace(scanner.Text()) {
		case "play", "p":
			engine.Play()
		case "pause":
			engine.Pause()
		case "next", "n":
			engine.Next()
		case "prev", "b":
			engine.Previous()
		case "replay", "r":
			engine.Replay()
		case "quit", "q":
			engine.Pause()
			return nil
		case "":
			continue
		default:
			fmt.Fprintln(out, "わからないコマンドなのだ。play / pause / next / prev / replay / quit から選んでほしいのだ")
			continue
		}

		printPanel(out, manifest, engine.Index())
	}
}

func printPanel(out io.Writer, manifest Manifest, index int) {
	if index < 0 || index >= len(manifest.Panels) {
		return
	}
	panel := manifest.Panels[index]
	fmt.Fprintf(out, "[%d/%d] %s\n", index+1, len(manifest.Panels), panel.Caption)
}

// loadManifest は comic.json を読み込むのだ。
func loadManifest(dir string) (Manifest, error) {
	var manifest Manifest

	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return manifest, fmt.Errorf("コミックの目次 '%s' の読み込みに失敗したのだ: %w", ManifestFile, err)
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return manifest, fmt.Errorf("コミックの目次のデコードに失敗したのだ: %w", err)
	}
	if len(manifest.Panels) == 0 {
		return manifest, fmt.Errorf("再生できるパネルがありません")
	}
	return manifest, nil
}

// loadAudioHandles は目次の各パネルから音声ハンドル列を復元するのだ。
// 音声のないパネルは nil（無音）として扱います。
func loadAudioHandles(dir string, manifest Manifest) ([]*domain.AudioHandle, error) {
	handles := make([]*domain.AudioHandle, len(manifest.Panels))

	for i, panel := range manifest.Panels {
		switch domain.HandleKind(panel.AudioKind) {
		case domain.HandleRemoteAudio:
			data, err := os.ReadFile(filepath.Join(dir, panel.AudioFile))
			if err != nil {
				slog.Warn("音声ファイルが読めないため無音パネルとして扱うのだ", "panel", i+1, "error", err)
				continue
			}
			handles[i] = &domain.AudioHandle{
				Kind:     domain.HandleRemoteAudio,
				Data:     data,
				MimeType: panel.AudioMime,
				Text:     panel.Text,
			}

		case domain.HandleOnDeviceSpeech:
			if strings.TrimSpace(panel.Text) == "" {
				continue
			}
			handles[i] = &domain.AudioHandle{
				Kind: domain.HandleOnDeviceSpeech,
				Text: panel.Text,
			}
		}
	}

	return handles, nil
}
