package narration

import (
	"os/exec"

	"github.com/shouni/go-comic-wizard/pkg/domain"
)

// speechBinaries は端末内スピーチ合成に利用できるコマンドの探索順です。
var speechBinaries = []string{"say", "espeak"}

// LocalSpeech は、OS付属の読み上げコマンドを使う SpeechSynthesizer 実装です。
// 生成されるハンドルは一時的で、音声データを持たず再生時に初めて合成されます。
type LocalSpeech struct {
	binary string
}

// NewLocalSpeech は利用可能な読み上げコマンドを探して LocalSpeech を返します。
// 見つからない場合は nil を返し、フォールバックなしとして扱われるのだ。
func NewLocalSpeech() *LocalSpeech {
	for _, name := range speechBinaries {
		if _, err := exec.LookPath(name); err == nil {
			return &LocalSpeech{binary: name}
		}
	}
	return nil
}

// Binary は解決された読み上げコマンド名を返します。
func (s *LocalSpeech) Binary() string {
	return s.binary
}

// Synthesize はテキストのみを保持する端末内スピーチハンドルを生成します。
func (s *LocalSpeech) Synthesize(text string) *domain.AudioHandle {
	if s == nil || text == "" {
		return nil
	}
	return &domain.AudioHandle{
		Kind: domain.HandleOnDeviceSpeech,
		Text: text,
	}
}
