package domain

import "strings"

// NarratorSpeaker は、レイアウト合成時にキャプションとして扱う話者名です。
const NarratorSpeaker = "Narrator"

// Storyboard は AI モデルから返される構成案（台本）全体の構造です。
// プランニング工程がアトミックに生成するもので、部分的に埋まった状態は存在しません。
type Storyboard struct {
	Title  string  `json:"title"`
	Panels []Panel `json:"panels"`
}

// Panel はコミックの1コマの構成、描画指示、セリフ情報を保持します。
type Panel struct {
	ID     string       `json:"id"`
	Prompt string       `json:"prompt"`
	Speech []SpeechLine `json:"speech"`
}

// SpeechLine は1つのセリフ（話者名と本文）を表します。
type SpeechLine struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Panels は複数パネルに対するヘルパーを提供する型なのだ。
type Panels []Panel

// SpeechText はパネル内の全セリフをナレーション用に連結して返します。
// 「話者: 本文」の形式で繋げることで、読み上げ時に誰のセリフか分かるようにするのだ。
func (p Panel) SpeechText() string {
	parts := make([]string, 0, len(p.Speech))
	for _, line := range p.Speech {
		text := strings.TrimSpace(line.Text)
		if text == "" {
			continue
		}
		if line.Speaker != "" && line.Speaker != NarratorSpeaker {
			parts = append(parts, line.Speaker+": "+text)
		} else {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// NarratorCaption は話者が Narrator である最初のセリフを返します。
// 見つからない場合は空文字列を返し、キャプションなしのパネルとして扱われます。
func (p Panel) NarratorCaption() string {
	for _, line := range p.Speech {
		if line.Speaker == NarratorSpeaker {
			return strings.TrimSpace(line.Text)
		}
	}
	return ""
}

// Captions は全パネルのナレーターキャプションを順序通りに抽出するのだ。
func (ps Panels) Captions() []string {
	captions := make([]string, len(ps))
	for i, p := range ps {
		captions[i] = p.NarratorCaption()
	}
	return captions
}
