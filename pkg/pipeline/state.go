package pipeline

import (
	"github.com/shouni/go-comic-wizard/pkg/domain"
	"github.com/shouni/go-comic-wizard/pkg/layout"
)

// Phase はパイプラインの進行状態です。順序は厳密で、前段の必須不変条件が
// 満たされるまで次の工程は開始されません。
type Phase string

const (
	// PhaseInput はユーザー入力待ちの初期状態です。
	PhaseInput Phase = "input"
	// PhasePlanningStory はストーリーボードのプランニング中です。
	PhasePlanningStory Phase = "planning_story"
	// PhaseIllustratingPanels はパネルの逐次作画中です。
	PhaseIllustratingPanels Phase = "illustrating_panels"
	// PhaseGeneratingNarration はナレーションの並列合成中です。
	PhaseGeneratingNarration Phase = "generating_narration"
	// PhaseComposingLayout は最終レイアウトの合成中です。
	PhaseComposingLayout Phase = "composing_layout"
	// PhaseReady は成果物の完成状態です。
	PhaseReady Phase = "ready"
	// PhaseFailed は実行を中断する失敗状態です。PlanningStory / IllustratingPanels からのみ到達します。
	PhaseFailed Phase = "failed"
)

// パネル数の境界値の定義なのだ
const (
	MinPanelCount = 3
	MaxPanelCount = 8
)

// Input は1回の生成実行に必要なユーザー入力の束です。
type Input struct {
	Drawing    domain.EncodedImage
	Story      string
	PanelCount int
	StyleID    string
}

// Snapshot は遷移後の状態の読み取り専用コピーです。
// 購読者はこれを受け取って再描画するだけで、状態を直接変更することはできないのだ。
type Snapshot struct {
	Phase               Phase
	CharacterReferences []domain.EncodedImage
	Storyboard          *domain.Storyboard
	PanelImages         []*domain.EncodedImage
	PanelAudio          []*domain.AudioHandle
	FinalLayout         *layout.ComposedImage
	Err                 error
	Run                 uint64
}

// PanelsDone は作画が完了したパネル数を返します（進捗表示用）。
func (s Snapshot) PanelsDone() int {
	done := 0
	for _, img := range s.PanelImages {
		if img != nil {
			done++
		}
	}
	return done
}

// state はオーケストレーターが排他的に所有する内部状態です。
// 変更は必ず Orchestrator の遷移操作を経由します。
type state struct {
	phase               Phase
	characterReferences []domain.EncodedImage
	storyboard          *domain.Storyboard
	panelImages         []*domain.EncodedImage
	panelAudio          []*domain.AudioHandle
	finalLayout         *layout.ComposedImage
	err                 error
	run                 uint64
}

func newState(run uint64) *state {
	return &state{
		phase: PhaseInput,
		run:   run,
	}
}

// snapshot は購読者に渡すためのコピーを生成します。
// スライスは新しく割り当て、内部状態が外から汚染されないようにするのだ。
func (st *state) snapshot() Snapshot {
	snap := Snapshot{
		Phase:       st.phase,
		Storyboard:  st.storyboard,
		FinalLayout: st.finalLayout,
		Err:         st.err,
		Run:         st.run,
	}
	if st.characterReferences != nil {
		snap.CharacterReferences = make([]domain.EncodedImage, len(st.characterReferences))
		copy(snap.CharacterReferences, st.characterReferences)
	}
	if st.panelImages != nil {
		snap.PanelImages = make([]*domain.EncodedImage, len(st.panelImages))
		copy(snap.PanelImages, st.panelImages)
	}
	if st.panelAudio != nil {
		snap.PanelAudio = make([]*domain.AudioHandle, len(st.panelAudio))
		copy(snap.PanelAudio, st.panelAudio)
	}
	return snap
}
