package domain

// HandleKind はナレーション音声ハンドルの種別です。
type HandleKind string

const (
	// HandleRemoteAudio はプロキシ経由で合成された音声データ（シーク・保存可能）です。
	HandleRemoteAudio HandleKind = "remote-audio"
	// HandleOnDeviceSpeech は端末内スピーチ合成へのフォールバック（一時的・保存不可）です。
	HandleOnDeviceSpeech HandleKind = "on-device-speech"
)

// AudioHandle は再生可能なナレーション音声への参照です。
// RemoteAudio の場合は Data にエンコード済み音声が入り、
// OnDeviceSpeech の場合は Text のみを保持して再生時に合成されるのだ。
type AudioHandle struct {
	Kind     HandleKind
	Data     []byte
	MimeType string
	Text     string
}

// Downloadable は音声データをファイルとして保存できるかを返します。
func (h *AudioHandle) Downloadable() bool {
	return h != nil && h.Kind == HandleRemoteAudio && len(h.Data) > 0
}
