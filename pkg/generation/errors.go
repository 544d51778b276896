package generation

import "fmt"

// Stage は生成エラーの発生工程を識別します。
type Stage string

const (
	// StageCharacter はキャラクターリファレンス合成の工程です。
	StageCharacter Stage = "character"
	// StagePlanning はストーリーボードプランニングの工程です。
	StagePlanning Stage = "planning"
	// StageIllustration はパネル作画の工程です。
	StageIllustration Stage = "illustration"
)

// Error はリモート生成呼び出しの失敗を工程付きで表します。
// オーケストレーターはこの工程情報を使って、ユーザー向けメッセージに失敗箇所を明示するのだ。
type Error struct {
	Stage      Stage
	PanelIndex int // StageIllustration のときのみ有効。それ以外は -1。
	Err        error
}

// Error は error インターフェースを実装します。
func (e *Error) Error() string {
	if e.Stage == StageIllustration && e.PanelIndex >= 0 {
		return fmt.Sprintf("generation: %s 工程でパネル %d の生成に失敗しました: %v", e.Stage, e.PanelIndex+1, e.Err)
	}
	return fmt.Sprintf("generation: %s 工程で生成に失敗しました: %v", e.Stage, e.Err)
}

// Unwrap は元のエラーを返します。
func (e *Error) Unwrap() error {
	return e.Err
}

// newStageError は工程情報付きのエラーを生成する内部ヘルパーです。
func newStageError(stage Stage, err error) *Error {
	return &Error{Stage: stage, PanelIndex: -1, Err: err}
}

// newPanelError はパネル番号付きの作画エラーを生成する内部ヘルパーです。
func newPanelError(panelIndex int, err error) *Error {
	return &Error{Stage: StageIllustration, PanelIndex: panelIndex, Err: err}
}
