package media

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// errReader は読み込みエラーを強制するためのテスト用リーダーなのだ。
type errReader struct{}

func (errReader) Read([]byte) (int, error) {
	return 0, errors.New("boom")
}

func TestEncode(t *testing.T) {
	t.Run("PNGヘッダからMIMEタイプが判定されること", func(t *testing.T) {
		pngHeader := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
		img, err := Encode(bytes.NewReader(pngHeader))
		if err != nil {
			t.Fatalf("正常な入力でエラーが発生しました: %v", err)
		}
		if img.MimeType != "image/png" {
			t.Errorf("期待値 'image/png', 実際の値 '%s'", img.MimeType)
		}
		if len(img.Data) != len(pngHeader) {
			t.Error("データ長が入力と一致しません")
		}
	})

	t.Run("判定不能なバイナリはPNGとして扱われること", func(t *testing.T) {
		img, err := Encode(bytes.NewReader([]byte{0x00, 0x01, 0x02, 0x03}))
		if err != nil {
			t.Fatalf("エラーが発生しました: %v", err)
		}
		if img.MimeType != "image/png" {
			t.Errorf("既定MIMEタイプが適用されていません: '%s'", img.MimeType)
		}
	})

	t.Run("空入力はエラーになること", func(t *testing.T) {
		if _, err := Encode(strings.NewReader("")); err == nil {
			t.Error("空入力でエラーが発生しませんでした")
		}
	})

	t.Run("読み込みエラーが伝播すること", func(t *testing.T) {
		if _, err := Encode(errReader{}); err == nil {
			t.Error("読み込みエラーが伝播しませんでした")
		}
	})
}

func TestEncodeFile(t *testing.T) {
	if _, err := EncodeFile("testdata/no_such_file.png"); err == nil {
		t.Error("存在しないファイルでエラーが発生しませんでした")
	}
}
