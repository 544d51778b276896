package domain

import (
	"encoding/json"
	"testing"
)

func TestStoryboard_JSON(t *testing.T) {
	t.Run("AIからのレスポンス形式をシミュレートするのだ", func(t *testing.T) {
		inputJSON := `{
			"title": "そらとぶ犬のだいぼうけん",
			"panels": [
				{
					"id": "panel-1",
					"prompt": "a heroic dog flying over a park",
					"speech": [
						{"speaker": "Narrator", "text": "ある晴れた日のこと。"},
						{"speaker": "ポチ", "text": "たすけにいくワン！"}
					]
				}
			]
		}`

		var sb Storyboard
		if err := json.Unmarshal([]byte(inputJSON), &sb); err != nil {
			t.Fatalf("パース失敗なのだ: %v", err)
		}

		if sb.Title != "そらとぶ犬のだいぼうけん" {
			t.Errorf("タイトルが違うのだ: %s", sb.Title)
		}
		if len(sb.Panels) != 1 || len(sb.Panels[0].Speech) != 2 {
			t.Error("パネル内容が正しくパースされていないのだ")
		}
	})
}

func TestPanel_SpeechText(t *testing.T) {
	panel := Panel{
		Speech: []SpeechLine{
			{Speaker: "Narrator", Text: "むかしむかし。"},
			{Speaker: "ポチ", Text: "ワン！"},
			{Speaker: "ネコ", Text: "   "},
		},
	}

	got := panel.SpeechText()
	expected := "むかしむかし。 ポチ: ワン！"
	if got != expected {
		t.Errorf("期待値 '%s', 実際の値 '%s'", expected, got)
	}

	t.Run("セリフなしのパネルは空文字列になること", func(t *testing.T) {
		if (Panel{}).SpeechText() != "" {
			t.Error("空のパネルから空でないテキストが生成されました")
		}
	})
}

func TestPanel_NarratorCaption(t *testing.T) {
	t.Run("Narratorのセリフがキャプションになること", func(t *testing.T) {
		panel := Panel{
			Speech: []SpeechLine{
				{Speaker: "ポチ", Text: "ワン！"},
				{Speaker: "Narrator", Text: " そのとき、空から声がした。 "},
				{Speaker: "Narrator", Text: "二つ目のナレーション。"},
			},
		}
		if got := panel.NarratorCaption(); got != "そのとき、空から声がした。" {
			t.Errorf("最初のナレーター行が選ばれていません: '%s'", got)
		}
	})

	t.Run("Narrator行がなければ空キャプションになること", func(t *testing.T) {
		panel := Panel{Speech: []SpeechLine{{Speaker: "ポチ", Text: "ワン！"}}}
		if panel.NarratorCaption() != "" {
			t.Error("ナレーター行がないのにキャプションが返されました")
		}
	})
}

func TestPanels_Captions(t *testing.T) {
	panels := Panels{
		{Speech: []SpeechLine{{Speaker: "Narrator", Text: "はじまり"}}},
		{Speech: []SpeechLine{{Speaker: "ポチ", Text: "ワン"}}},
	}

	captions := panels.Captions()
	if len(captions) != 2 {
		t.Fatalf("キャプション数が一致しません: %d", len(captions))
	}
	if captions[0] != "はじまり" || captions[1] != "" {
		t.Errorf("キャプション内容が不正なのだ: %v", captions)
	}
}

func TestEncodedImage_DataURI(t *testing.T) {
	img := EncodedImage{Data: []byte{0x89, 0x50}, MimeType: "image/png"}
	expected := "data:image/png;base64,iVA="
	if got := img.DataURI(); got != expected {
		t.Errorf("期待値 '%s', 実際の値 '%s'", expected, got)
	}

	if !(EncodedImage{}).IsEmpty() {
		t.Error("空画像が IsEmpty で検出されませんでした")
	}
}

func TestAudioHandle_Downloadable(t *testing.T) {
	remote := &AudioHandle{Kind: HandleRemoteAudio, Data: []byte{1}, MimeType: "audio/mpeg"}
	if !remote.Downloadable() {
		t.Error("リモート音声がダウンロード可能と判定されませんでした")
	}

	onDevice := &AudioHandle{Kind: HandleOnDeviceSpeech, Text: "こんにちは"}
	if onDevice.Downloadable() {
		t.Error("端末内スピーチはダウンロード不可のはずです")
	}

	var nilHandle *AudioHandle
	if nilHandle.Downloadable() {
		t.Error("nilハンドルはダウンロード不可のはずです")
	}
}
