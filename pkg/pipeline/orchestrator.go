// Package pipeline は、コミック生成の全工程（キャラクターカード合成 →
// ストーリーボードプランニング → パネル作画 → ナレーション合成 → レイアウト合成）を
// オーケストレートする状態機械です。状態はこのパッケージが排他的に所有し、
// 購読者には遷移後のスナップショットだけが流れるのだ。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shouni/go-comic-wizard/pkg/domain"
	"github.com/shouni/go-comic-wizard/pkg/generation"
	"github.com/shouni/go-comic-wizard/pkg/layout"

	"golang.org/x/sync/errgroup"
)

// ErrRunAbandoned は、新しい実行の開始によって破棄された実行側に返されるエラーです。
// アクティブな状態はすでに置き換わっているため、ユーザーへの表面化は不要なのだ。
var ErrRunAbandoned = errors.New("pipeline: この実行は新しい実行の開始により破棄されました")

// Narrator はナレーション合成の契約です。narration.Client がこれを満たします。
type Narrator interface {
	Synthesize(ctx context.Context, text string) (*domain.AudioHandle, error)
}

// Composer はレイアウト合成の契約です。layout.Client がこれを満たします。
type Composer interface {
	Compose(ctx context.Context, panels []layout.PanelInput, cols int) (*layout.ComposedImage, error)
}

// Observer は遷移後スナップショットを受け取るコールバックです。
type Observer func(Snapshot)

// Orchestrator はパイプライン状態機械の本体です。
type Orchestrator struct {
	generator generation.Client
	narrator  Narrator
	composer  Composer

	mu        sync.Mutex
	state     *state
	run       uint64
	observers []Observer
}

// New は Orchestrator を初期化します。
func New(gen generation.Client, narrator Narrator, composer Composer) *Orchestrator {
	return &Orchestrator{
		generator: gen,
		narrator:  narrator,
		composer:  composer,
		state:     newState(0),
	}
}

// Subscribe は遷移通知の購読者を登録します。登録直後に現在のスナップショットが即時通知されます。
func (o *Orchestrator) Subscribe(fn Observer) {
	o.mu.Lock()
	o.observers = append(o.observers, fn)
	snap := o.state.snapshot()
	o.mu.Unlock()

	fn(snap)
}

// Snapshot は現在の状態のコピーを返します。
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.snapshot()
}

// Generate は1回の生成実行を最初から最後まで駆動します。
// 再度呼び出すと進行中の実行は破棄され、遅れて届いた結果は無視されるのだ。
func (o *Orchestrator) Generate(ctx context.Context, in Input) (Snapshot, error) {
	if err := validateInput(in); err != nil {
		return o.Snapshot(), err
	}

	runID := o.beginRun()

	// --- Input -> PlanningStory: キャラクターカード合成（3ポーズのバリア付き並列）---
	refs, err := o.generator.SynthesizeCharacter(ctx, in.Drawing, in.StyleID)
	if err != nil {
		// キャラクター合成の失敗は Input へ戻る。部分的な状態は一切残さないのだ。
		return o.abortToInput(runID, err)
	}

	ok := o.commit(runID, func(st *state) {
		st.characterReferences = refs
		st.phase = PhasePlanningStory
	})
	if !ok {
		return Snapshot{}, ErrRunAbandoned
	}

	// --- PlanningStory: ストーリーボードの取得（アトミック）---
	storyboard, err := o.generator.PlanStoryboard(ctx, in.Story, in.PanelCount)
	if err != nil {
		return o.failRun(runID, err)
	}

	ok = o.commit(runID, func(st *state) {
		st.storyboard = storyboard
		// パネル数分のスロットを事前確保し、位置ベースで埋めていくのだ
		st.panelImages = make([]*domain.EncodedImage, len(storyboard.Panels))
		st.panelAudio = make([]*domain.AudioHandle, len(storyboard.Panels))
		st.phase = PhaseIllustratingPanels
	})
	if !ok {
		return Snapshot{}, ErrRunAbandoned
	}

	// --- IllustratingPanels: 逐次作画。1枚完了するたびに進捗を通知するのだ ---
	for i, panel := range storyboard.Panels {
		img, err := o.generator.IllustratePanel(ctx, panel.Prompt, refs, in.StyleID, i)
		if err != nil {
			return o.failRun(runID, err)
		}

		imgCopy := img
		ok = o.commit(runID, func(st *state) {
			st.panelImages[i] = &imgCopy
		})
		if !ok {
			return Snapshot{}, ErrRunAbandoned
		}
	}

	ok = o.commit(runID, func(st *state) {
		st.phase = PhaseGeneratingNarration
	})
	if !ok {
		return Snapshot{}, ErrRunAbandoned
	}

	// --- GeneratingNarration: パネルごとの並列合成。個々の失敗はこの工程を失敗させないのだ ---
	audio, err := o.generateNarration(ctx, storyboard.Panels)
	if err != nil {
		// ここに来るのはコンテキストのキャンセルのみ。実行は静かに放棄する。
		return Snapshot{}, err
	}

	ok = o.commit(runID, func(st *state) {
		st.panelAudio = audio
		st.phase = PhaseComposingLayout
	})
	if !ok {
		return Snapshot{}, ErrRunAbandoned
	}

	// --- ComposingLayout: 失敗しても生パネル表示へフォールバックして Ready に到達するのだ ---
	composed := o.composeLayout(ctx, storyboard, o.panelInputs(runID))

	ok = o.commit(runID, func(st *state) {
		st.finalLayout = composed
		st.phase = PhaseReady
	})
	if !ok {
		return Snapshot{}, ErrRunAbandoned
	}

	snap := o.Snapshot()
	slog.Info("コミックが完成したのだ！", "title", storyboard.Title, "panels", len(storyboard.Panels), "has_layout", composed != nil)
	return snap, nil
}

// generateNarration は全パネルのナレーションを並列で合成し、位置通りに格納します。
// 合成はベストエフォートのジョインで、nil スロット（無音パネル）を許容するのだ。
func (o *Orchestrator) generateNarration(ctx context.Context, panels []domain.Panel) ([]*domain.AudioHandle, error) {
	audio := make([]*domain.AudioHandle, len(panels))
	eg, egCtx := errgroup.WithContext(ctx)

	for i, panel := range panels {
		i, panel := i, panel
		eg.Go(func() error {
			handle, err := o.narrator.Synthesize(egCtx, panel.SpeechText())
			if err != nil {
				// Narrator の契約上、エラーはキャンセル時のみ
				return err
			}
			if handle == nil {
				slog.Warn("ナレーションが得られなかったため無音パネルになるのだ", "panel", i+1)
			}
			audio[i] = handle
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return audio, nil
}

// composeLayout はレイアウト合成を試み、失敗した場合は nil を返してフォールバックさせます。
func (o *Orchestrator) composeLayout(ctx context.Context, storyboard *domain.Storyboard, panels []layout.PanelInput) *layout.ComposedImage {
	if len(panels) == 0 {
		return nil
	}

	composed, err := o.composer.Compose(ctx, panels, layout.Columns(len(panels)))
	if err != nil {
		// レイアウト失敗は吸収する。finalLayout 未設定のまま Ready に進み、生パネル表示になるのだ。
		slog.Warn("レイアウト合成に失敗したため生パネル表示へフォールバックするのだ", "error", err)
		return nil
	}
	return composed
}

// panelInputs は現在の実行のパネル画像とナレーターキャプションを組み立てます。
func (o *Orchestrator) panelInputs(runID uint64) []layout.PanelInput {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.run != runID || o.state.storyboard == nil {
		return nil
	}

	inputs := make([]layout.PanelInput, 0, len(o.state.panelImages))
	for i, img := range o.state.panelImages {
		if img == nil {
			return nil
		}
		inputs = append(inputs, layout.PanelInput{
			Image:   *img,
			Caption: o.state.storyboard.Panels[i].NarratorCaption(),
		})
	}
	return inputs
}

// beginRun は実行カウンターを進めて状態を作り直します。
// 進行中だった実行の書き込みは、カウンター不一致によりすべて無視されるのだ。
func (o *Orchestrator) beginRun() uint64 {
	o.mu.Lock()
	o.run++
	runID := o.run
	o.state = newState(runID)
	snap := o.state.snapshot()
	observers := o.observers
	o.mu.Unlock()

	notify(observers, snap)
	return runID
}

// commit は実行カウンターが一致する場合のみ状態を変更し、購読者に通知します。
func (o *Orchestrator) commit(runID uint64, mutate func(*state)) bool {
	o.mu.Lock()
	if o.run != runID {
		o.mu.Unlock()
		slog.Debug("放棄された実行の結果を破棄するのだ", "run", runID)
		return false
	}
	mutate(o.state)
	snap := o.state.snapshot()
	observers := o.observers
	o.mu.Unlock()

	notify(observers, snap)
	return true
}

// failRun は Failed を経由して Input へ戻し、工程名付きのエラーを表面化させます。
func (o *Orchestrator) failRun(runID uint64, cause error) (Snapshot, error) {
	slog.Error("パイプラインを中断するのだ", "error", cause)

	if ok := o.commit(runID, func(st *state) {
		st.phase = PhaseFailed
		st.err = cause
	}); !ok {
		return Snapshot{}, ErrRunAbandoned
	}

	// Failed は一時的な状態で、エラーを保持したまま Input に戻るのだ
	if ok := o.commit(runID, func(st *state) {
		st.phase = PhaseInput
	}); !ok {
		return Snapshot{}, ErrRunAbandoned
	}

	return o.Snapshot(), cause
}

// abortToInput はキャラクター合成失敗時の遷移です。Failed を経由せず、部分的な状態も残しません。
func (o *Orchestrator) abortToInput(runID uint64, cause error) (Snapshot, error) {
	slog.Error("キャラクター合成に失敗したため入力状態へ戻るのだ", "error", cause)

	if ok := o.commit(runID, func(st *state) {
		st.phase = PhaseInput
		st.err = cause
		st.characterReferences = nil
	}); !ok {
		return Snapshot{}, ErrRunAbandoned
	}
	return o.Snapshot(), cause
}

func notify(observers []Observer, snap Snapshot) {
	for _, fn := range observers {
		fn(snap)
	}
}

// validateInput はユーザー入力の必須条件を検査します。
func validateInput(in Input) error {
	if in.Drawing.IsEmpty() {
		return fmt.Errorf("pipeline: 元になる絵が指定されていません")
	}
	if strings.TrimSpace(in.Story) == "" {
		return fmt.Errorf("pipeline: ストーリーのテキストが空です")
	}
	if in.PanelCount < MinPanelCount || in.PanelCount > MaxPanelCount {
		return fmt.Errorf("pipeline: パネル数は %d〜%d の範囲で指定してください: %d", MinPanelCount, MaxPanelCount, in.PanelCount)
	}
	return nil
}
