package playback

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/shouni/go-comic-wizard/pkg/domain"
)

// fakeFactory は生成したプレイヤーと同時アクティブ数を記録するのだ。
type fakeFactory struct {
	mu        sync.Mutex
	players   []*fakePlayer
	active    int
	maxActive int
}

func (f *fakeFactory) factory() PlayerFactory {
	return func(handle *domain.AudioHandle) Player {
		f.mu.Lock()
		defer f.mu.Unlock()
		p := &fakePlayer{handle: handle, parent: f}
		f.players = append(f.players, p)
		return p
	}
}

func (f *fakeFactory) adjustActive(delta int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active += delta
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
}

func (f *fakeFactory) snapshot() (active, maxActive int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active, f.maxActive
}

func (f *fakeFactory) last() *fakePlayer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.players) == 0 {
		return nil
	}
	return f.players[len(f.players)-1]
}

func (f *fakeFactory) playedOrder() []*domain.AudioHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	order := make([]*domain.AudioHandle, len(f.players))
	for i, p := range f.players {
		order[i] = p.handle
	}
	return order
}

// fakePlayer は再生をシミュレートするテスト用プレイヤーなのだ。
type fakePlayer struct {
	mu      sync.Mutex
	handle  *domain.AudioHandle
	parent  *fakeFactory
	onDone  func()
	stopped bool
	started bool
}

func (p *fakePlayer) Start(onDone func()) error {
	p.mu.Lock()
	p.onDone = onDone
	p.started = true
	p.mu.Unlock()
	p.parent.adjustActive(+1)
	return nil
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()
	p.parent.adjustActive(-1)
}

// complete は音声の自然終了をシミュレートするのだ。停止済みなら何もしない。
func (p *fakePlayer) complete() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	onDone := p.onDone
	p.mu.Unlock()
	p.parent.adjustActive(-1)

	if onDone != nil {
		onDone()
	}
}

// forceComplete は停止済みプレイヤーの遅延完了通知をシミュレートするのだ。
func (p *fakePlayer) forceComplete() {
	p.mu.Lock()
	onDone := p.onDone
	p.mu.Unlock()
	if onDone != nil {
		onDone()
	}
}

func handles(pattern ...bool) []*domain.AudioHandle {
	hs := make([]*domain.AudioHandle, len(pattern))
	for i, hasAudio := range pattern {
		if hasAudio {
			hs[i] = &domain.AudioHandle{Kind: domain.HandleRemoteAudio, Data: []byte{byte(i)}, MimeType: "audio/mpeg"}
		}
	}
	return hs
}

func newTestEngine(t *testing.T, hs []*domain.AudioHandle) (*Engine, *fakeFactory) {
	t.Helper()
	f := &fakeFactory{}
	e, err := NewEngine(hs, f.factory())
	if err != nil {
		t.Fatalf("エンジンの初期化に失敗しました: %v", err)
	}
	return e, f
}

func TestEngine_AutoAdvance(t *testing.T) {
	hs := handles(true, true, true)
	e, f := newTestEngine(t, hs)

	e.Play()
	if !e.IsPlaying() || e.Index() != 0 {
		t.Fatalf("再生開始の状態が不正です: index=%d playing=%v", e.Index(), e.IsPlaying())
	}

	// 自然終了のたびに次のパネルへ自動送りされるのだ
	f.last().complete()
	if e.Index() != 1 || !e.IsPlaying() {
		t.Errorf("パネル1へ進むべきです: index=%d", e.Index())
	}
	f.last().complete()
	if e.Index() != 2 || !e.IsPlaying() {
		t.Errorf("パネル2へ進むべきです: index=%d", e.Index())
	}

	// 最終パネルの読み終わりで停止
	f.last().complete()
	if e.IsPlaying() {
		t.Error("最終パネル後は停止するべきです")
	}
	if e.Index() != 2 {
		t.Errorf("位置は最終パネルに留まるべきです: %d", e.Index())
	}

	played := f.playedOrder()
	if len(played) != 3 || played[0] != hs[0] || played[1] != hs[1] || played[2] != hs[2] {
		t.Error("再生順がパネル順と一致しません")
	}
}

func TestEngine_SilentPanelSkip(t *testing.T) {
	// 4パネル中、2番目（index 1）のナレーションだけが失敗したケースなのだ
	hs := handles(true, false, true, true)
	e, f := newTestEngine(t, hs)

	e.Play()
	if e.Index() != 0 {
		t.Fatalf("開始位置が不正です: %d", e.Index())
	}

	// パネル0の読み終わりで、無音のパネル1を飛ばしてパネル2へ直行すること
	f.last().complete()
	if e.Index() != 2 {
		t.Errorf("無音パネルを飛ばしてindex 2へ進むべきです: %d", e.Index())
	}
	if f.last().handle != hs[2] {
		t.Error("無音パネルの音声が再生されています")
	}
}

func TestEngine_PlayOnSilentFirstPanel(t *testing.T) {
	// 先頭パネルが無音なら、音声を鳴らす前にindex 1へ進むのだ
	hs := handles(false, true, true, true)
	e, f := newTestEngine(t, hs)

	e.Play()
	if e.Index() != 1 {
		t.Errorf("無音の先頭パネルを飛ばすべきです: index=%d", e.Index())
	}
	if len(f.players) != 1 || f.players[0].handle != hs[1] {
		t.Error("最初に再生されるのはパネル1の音声であるべきです")
	}
}

func TestEngine_AllSilent(t *testing.T) {
	e, f := newTestEngine(t, handles(false, false, false))

	e.Play()
	if e.IsPlaying() {
		t.Error("全パネル無音なら再生状態にならないべきです")
	}
	if len(f.players) != 0 {
		t.Error("無音パネルでプレイヤーが生成されました")
	}
}

func TestEngine_PauseIdempotent(t *testing.T) {
	e, f := newTestEngine(t, handles(true, true))

	e.Play()
	e.Pause()
	index1, playing1 := e.Index(), e.IsPlaying()
	active1, _ := f.snapshot()

	e.Pause()
	index2, playing2 := e.Index(), e.IsPlaying()
	active2, _ := f.snapshot()

	if index1 != index2 || playing1 != playing2 || active1 != active2 {
		t.Error("Pauseを2回呼んだ結果が1回の場合と異なります")
	}
	if playing1 || active1 != 0 {
		t.Error("Pause後に再生が残っています")
	}
}

func TestEngine_NextPrevious(t *testing.T) {
	t.Run("一時停止中の移動は位置だけが変わること", func(t *testing.T) {
		e, f := newTestEngine(t, handles(true, true, true))

		e.Next()
		if e.Index() != 1 || e.IsPlaying() {
			t.Errorf("一時停止のままindex 1へ移動するべきです: index=%d playing=%v", e.Index(), e.IsPlaying())
		}
		if len(f.players) != 0 {
			t.Error("一時停止中の移動でプレイヤーが生成されました")
		}

		e.Previous()
		if e.Index() != 0 {
			t.Errorf("index 0へ戻るべきです: %d", e.Index())
		}
	})

	t.Run("再生中の移動は新しいパネルの再生を開始すること", func(t *testing.T) {
		hs := handles(true, true, true)
		e, f := newTestEngine(t, hs)

		e.Play()
		e.Next()

		if e.Index() != 1 || !e.IsPlaying() {
			t.Errorf("再生状態を引き継いでindex 1へ移動するべきです: index=%d playing=%v", e.Index(), e.IsPlaying())
		}
		if f.last().handle != hs[1] {
			t.Error("移動先パネルの音声が再生されていません")
		}
		if active, maxActive := f.snapshot(); active != 1 || maxActive != 1 {
			t.Errorf("排他所有が破れています: active=%d max=%d", active, maxActive)
		}
	})

	t.Run("境界でクランプされること", func(t *testing.T) {
		e, _ := newTestEngine(t, handles(true, true))

		e.Previous()
		if e.Index() != 0 {
			t.Errorf("先頭より前には行けないのだ: %d", e.Index())
		}

		e.Next()
		e.Next()
		e.Next()
		if e.Index() != 1 {
			t.Errorf("末尾より後には行けないのだ: %d", e.Index())
		}
	})
}

func TestEngine_Replay(t *testing.T) {
	hs := handles(true, true, true)
	e, f := newTestEngine(t, hs)

	e.Play()
	f.last().complete()
	f.last().complete() // index 2 まで進める

	e.Replay()
	if e.Index() != 0 || !e.IsPlaying() {
		t.Errorf("先頭から再生をやり直すべきです: index=%d playing=%v", e.Index(), e.IsPlaying())
	}
	if f.last().handle != hs[0] {
		t.Error("Replay後に先頭パネルの音声が再生されていません")
	}
	if active, maxActive := f.snapshot(); active != 1 || maxActive != 1 {
		t.Errorf("排他所有が破れています: active=%d max=%d", active, maxActive)
	}
}

func TestEngine_StaleCompletionIgnored(t *testing.T) {
	hs := handles(true, true, true)
	e, f := newTestEngine(t, hs)

	e.Play()
	first := f.last()
	e.Next() // first は停止され、新しいプレイヤーが始まる

	// 停止済みプレイヤーからの遅延完了通知は無視されるのだ
	first.forceComplete()
	if e.Index() != 1 {
		t.Errorf("遅延通知が状態を動かしました: index=%d", e.Index())
	}
}

func TestEngine_ExclusiveOwnershipProperty(t *testing.T) {
	// ランダム操作列を浴びせても、アクティブなハンドルが常に1以下であること
	hs := handles(true, false, true, true, false, true)
	e, f := newTestEngine(t, hs)

	rng := rand.New(rand.NewSource(1))
	ops := []func(){e.Play, e.Pause, e.Next, e.Previous, e.Replay}

	for i := 0; i < 500; i++ {
		ops[rng.Intn(len(ops))]()
		if rng.Intn(3) == 0 {
			if p := f.last(); p != nil {
				p.complete()
			}
		}

		if active, maxActive := f.snapshot(); active > 1 || maxActive > 1 {
			t.Fatalf("操作 %d 回目で排他所有が破れました: active=%d max=%d", i, active, maxActive)
		}
	}
}

func TestNewEngine_Validation(t *testing.T) {
	if _, err := NewEngine(nil, (&fakeFactory{}).factory()); err == nil {
		t.Error("空のハンドル列でエラーが発生しませんでした")
	}
	if _, err := NewEngine(handles(true), nil); err == nil {
		t.Error("factoryなしでエラーが発生しませんでした")
	}
}
