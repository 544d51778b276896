package domain

import (
	"encoding/base64"
	"fmt"
)

// EncodedImage は転送可能な形式にエンコードされた画像データとそのメタデータです。
type EncodedImage struct {
	Data     []byte
	MimeType string
}

// IsEmpty は画像ペイロードが存在しないことを判定します。
func (e EncodedImage) IsEmpty() bool {
	return len(e.Data) == 0
}

// Base64 はデータを base64 文字列として返します。
func (e EncodedImage) Base64() string {
	return base64.StdEncoding.EncodeToString(e.Data)
}

// DataURI はグリッド合成プロキシに渡すための data URI 形式を返すのだ。
func (e EncodedImage) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", e.MimeType, e.Base64())
}
