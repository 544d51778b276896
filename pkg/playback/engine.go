// Package playback は、完成したパネル群をナレーション音声と同期させて
// 順番に提示する再生エンジンです。パイプラインとは独立した状態機械で、
// 同時にアクティブな音声ハンドルは常に最大1つという排他所有を守るのだ。
package playback

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/shouni/go-comic-wizard/pkg/domain"
)

// Player は1つの音声ハンドルの再生を担う排他的リソースです。
// Start は非ブロッキングで、自然終了時に onDone を一度だけ呼び出します。
// Stop 後の onDone 呼び出しは許されません。
type Player interface {
	Start(onDone func()) error
	Stop()
}

// PlayerFactory は音声ハンドルから Player を生成します。
type PlayerFactory func(handle *domain.AudioHandle) Player

// Engine は再生状態機械の本体です。
type Engine struct {
	mu      sync.Mutex
	handles []*domain.AudioHandle
	factory PlayerFactory
	index   int
	playing bool
	active  Player
}

// NewEngine はパネルごとの音声ハンドル列から Engine を初期化します。
// nil のスロットは無音パネルを意味し、再生時にスキップされます。
func NewEngine(handles []*domain.AudioHandle, factory PlayerFactory) (*Engine, error) {
	if factory == nil {
		return nil, fmt.Errorf("playback: PlayerFactory は必須です")
	}
	if len(handles) == 0 {
		return nil, fmt.Errorf("playback: 再生するパネルがありません")
	}
	return &Engine{
		handles: handles,
		factory: factory,
	}, nil
}

// Index は現在のパネル位置を返します。
func (e *Engine) Index() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index
}

// IsPlaying は再生中かどうかを返します。
func (e *Engine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

// Play は現在のパネルから再生を開始します。
// 現在のパネルが無音の場合は、次の音声付きパネルまで即座に読み進めるのだ。
func (e *Engine) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopActiveLocked()
	e.playing = true
	e.startFromLocked(e.index)
}

// Pause は再生を停止し、現在位置を保持します。2回呼んでも結果は変わりません。
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopActiveLocked()
	e.playing = false
}

// Next は次のパネルへ移動します。再生中だった場合のみ新しいパネルの再生を開始します。
func (e *Engine) Next() {
	e.move(+1)
}

// Previous は前のパネルへ移動します。再生中だった場合のみ新しいパネルの再生を開始します。
func (e *Engine) Previous() {
	e.move(-1)
}

// Replay は先頭パネルに戻って再生をやり直します。
func (e *Engine) Replay() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopActiveLocked()
	e.index = 0
	e.playing = true
	e.startFromLocked(0)
}

// move は位置を境界内で±1し、移動前の再生状態を引き継ぎます。
func (e *Engine) move(delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	wasPlaying := e.playing
	e.stopActiveLocked()

	next := e.index + delta
	if next < 0 {
		next = 0
	}
	if next > len(e.handles)-1 {
		next = len(e.handles) - 1
	}
	e.index = next

	if !wasPlaying {
		return
	}

	// 移動先が無音パネルなら再生は止まり、位置だけが移動するのだ
	if e.handles[e.index] == nil {
		e.playing = false
		return
	}
	e.playing = true
	e.startHandleLocked(e.handles[e.index])
}

// startFromLocked は start 位置から最初の音声付きパネルを探して再生を開始します。
// 無音パネルは連続していても読み飛ばし、音声付きパネルが残っていなければ停止します。
// 呼び出し側が e.mu を保持していること。
func (e *Engine) startFromLocked(start int) {
	idx := start
	for idx < len(e.handles) && e.handles[idx] == nil {
		idx++
	}

	if idx >= len(e.handles) {
		// 読み進める先がないので終了なのだ
		e.index = len(e.handles) - 1
		e.playing = false
		return
	}

	e.index = idx
	e.startHandleLocked(e.handles[idx])
}

// startHandleLocked は新しい Player を生成して再生を開始します。
// 排他所有の原則: 開始前に必ず既存のアクティブハンドルを停止しておくこと。
func (e *Engine) startHandleLocked(handle *domain.AudioHandle) {
	if e.active != nil {
		// 停止漏れは排他所有の違反。防波堤としてここでも止めるのだ。
		e.active.Stop()
		e.active = nil
	}

	player := e.factory(handle)
	e.active = player

	if err := player.Start(func() { e.advanceOnCompletion(player) }); err != nil {
		slog.Warn("音声の再生開始に失敗したためパネルをスキップするのだ", "panel", e.index+1, "error", err)
		e.active = nil
		// 再生できないハンドルは無音パネルと同じ扱いで次へ進む
		e.startFromLocked(e.index + 1)
	}
}

// advanceOnCompletion は音声の自然終了で呼ばれ、次のパネルへ自動的に読み進めます。
func (e *Engine) advanceOnCompletion(finished Player) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// 停止済みプレイヤーの遅延通知は無視するのだ（新しい再生を壊さないため）
	if e.active != finished {
		return
	}
	e.active = nil

	if e.index >= len(e.handles)-1 {
		// 最終パネルの読み終わり
		e.playing = false
		return
	}

	e.startFromLocked(e.index + 1)
}

// stopActiveLocked はアクティブな音声ハンドルを停止・解放します。
// 呼び出し側が e.mu を保持していること。
func (e *Engine) stopActiveLocked() {
	if e.active != nil {
		e.active.Stop()
		e.active = nil
	}
}
