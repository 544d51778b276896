// Package media は、ユーザーが持ち込んだ画像（ファイルやカメラ撮影）を
// 転送可能なエンコード済み表現へ変換する責務を担うのだ。
package media

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/shouni/go-comic-wizard/pkg/domain"
)

// Encode は生の画像バイト列を読み込み、MIMEタイプ付きのエンコード済み画像を生成します。
// 失敗パスは読み込みエラーと空入力のみです。
func Encode(r io.Reader) (domain.EncodedImage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.EncodedImage{}, fmt.Errorf("画像データの読み込みに失敗しました: %w", err)
	}
	if len(data) == 0 {
		return domain.EncodedImage{}, fmt.Errorf("画像データが空です")
	}

	// 先頭バイトからMIMEタイプを判定する。判定不能なら application/octet-stream になるが、
	// 生成APIはPNG/JPEG以外を受け付けないため image/png を既定とするのだ。
	mimeType := http.DetectContentType(data)
	if mimeType == "application/octet-stream" {
		mimeType = "image/png"
	}

	return domain.EncodedImage{
		Data:     data,
		MimeType: mimeType,
	}, nil
}

// EncodeFile はローカルファイルパスから画像を読み込むCLI向けのヘルパーなのだ。
func EncodeFile(path string) (domain.EncodedImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.EncodedImage{}, fmt.Errorf("画像ファイル '%s' を開けませんでした: %w", path, err)
	}
	defer f.Close()

	return Encode(f)
}
