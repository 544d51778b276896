package playback

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/shouni/go-comic-wizard/pkg/domain"
)

// ffplayArgs は画面を出さずに再生し、終わったら自動で終了させるための引数です。
var ffplayArgs = []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}

// speechCommands は端末のテキスト読み上げコマンドの探索順です。
var speechCommands = []string{"say", "espeak"}

// ExecPlayer は外部コマンドで1つの音声ハンドルを再生する Player 実装です。
// リモート音声は一時ファイル経由で ffplay に、端末読み上げは say / espeak に渡すのだ。
type ExecPlayer struct {
	handle *domain.AudioHandle

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

// NewExecPlayerFactory は外部コマンドベースの PlayerFactory を返します。
func NewExecPlayerFactory() PlayerFactory {
	return func(handle *domain.AudioHandle) Player {
		return &ExecPlayer{handle: handle}
	}
}

// Start は再生コマンドを起動し、自然終了を待つゴルーチンを張ります。
// Stop 済みのプレイヤーからは onDone を呼びません。
func (p *ExecPlayer) Start(onDone func()) error {
	cmd, cleanup, err := p.buildCommand()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		p.mu.Lock()
		cancel := p.cancel
		p.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		cleanup()
		return fmt.Errorf("playback: 再生コマンドの起動に失敗しました: %w", err)
	}

	go func() {
		// 終了コードは見ない。Stop によるキャンセルも「終わった」扱いにしないだけなのだ。
		_ = cmd.Wait()
		cleanup()

		p.mu.Lock()
		stopped := p.stopped
		p.mu.Unlock()

		if !stopped && onDone != nil {
			onDone()
		}
	}()
	return nil
}

// Stop は再生を打ち切ります。複数回呼んでも安全です。
func (p *ExecPlayer) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// buildCommand はハンドルの種別に応じた再生コマンドを組み立てます。
func (p *ExecPlayer) buildCommand() (*exec.Cmd, func(), error) {
	if p.handle == nil {
		return nil, nil, fmt.Errorf("playback: 再生する音声ハンドルがありません")
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	switch p.handle.Kind {
	case domain.HandleRemoteAudio:
		cmd, cleanup, err := remoteAudioCommand(ctx, p.handle)
		if err != nil {
			cancel()
			return nil, nil, err
		}
		return cmd, cleanup, nil

	case domain.HandleOnDeviceSpeech:
		cmd, err := speechCommand(ctx, p.handle.Text)
		if err != nil {
			cancel()
			return nil, nil, err
		}
		return cmd, func() {}, nil

	default:
		cancel()
		return nil, nil, fmt.Errorf("playback: 未知の音声ハンドル種別です: %s", p.handle.Kind)
	}
}

// remoteAudioCommand は音声バイト列を一時ファイルへ書き出し、ffplay で再生します。
func remoteAudioCommand(ctx context.Context, handle *domain.AudioHandle) (*exec.Cmd, func(), error) {
	bin, err := exec.LookPath("ffplay")
	if err != nil {
		return nil, nil, fmt.Errorf("playback: ffplay が見つかりません（音声再生には ffmpeg のインストールが必要です）: %w", err)
	}

	tmp, err := os.CreateTemp("", "comic-wizard-audio-*"+audioExt(handle.MimeType))
	if err != nil {
		return nil, nil, fmt.Errorf("playback: 一時ファイルの作成に失敗しました: %w", err)
	}
	if _, err := tmp.Write(handle.Data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, nil, fmt.Errorf("playback: 音声データの書き出しに失敗しました: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, nil, fmt.Errorf("playback: 一時ファイルのクローズに失敗しました: %w", err)
	}

	args := append(append([]string{}, ffplayArgs...), tmp.Name())
	cmd := exec.CommandContext(ctx, bin, args...)
	cleanup := func() { os.Remove(tmp.Name()) }
	return cmd, cleanup, nil
}

// speechCommand は端末のテキスト読み上げコマンドを探して組み立てます。
func speechCommand(ctx context.Context, text string) (*exec.Cmd, error) {
	for _, name := range speechCommands {
		bin, err := exec.LookPath(name)
		if err != nil {
			continue
		}
		return exec.CommandContext(ctx, bin, text), nil
	}
	return nil, fmt.Errorf("playback: 読み上げコマンドが見つかりません（say または espeak が必要です）")
}

// audioExt は MIME タイプから ffplay 向けの拡張子を推測します。
func audioExt(mimeType string) string {
	switch mimeType {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	case "audio/aac":
		return ".aac"
	default:
		return ".bin"
	}
}
