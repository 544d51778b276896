// Package layout は、パネル群を1枚のコミックページに合成する
// グリッド合成プロキシへの呼び出しをラップします。
package layout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shouni/go-comic-wizard/pkg/domain"
)

// Doer はHTTPリクエストを実行する契約です。httpkit.ClientInterface がこれを満たします。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// PanelInput はレイアウト合成に渡す1パネル分の入力です。
type PanelInput struct {
	Image   domain.EncodedImage
	Caption string // ナレーターのセリフのみ。空ならキャプションなし。
}

// Error はレイアウト合成の失敗です。呼び出し元が生パネル表示へフォールバックできる回復可能なエラーなのだ。
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("layout: レイアウト合成に失敗しました: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ComposedImage は合成済みページ画像への参照です。
type ComposedImage struct {
	URL    string
	Width  int
	Height int
}

// Client はグリッド合成プロキシのクライアントです。
type Client struct {
	httpClient Doer
	endpoint   string
}

// New は Client を初期化します。
func New(httpClient Doer, endpoint string) *Client {
	return &Client{
		httpClient: httpClient,
		endpoint:   endpoint,
	}
}

// Columns はパネル数から列数ヒントを導出します。4枚以下は2列、それ以上は3列なのだ。
func Columns(panelCount int) int {
	if panelCount <= 4 {
		return 2
	}
	return 3
}

// gridRequest / gridResponse はプロキシとのワイヤ形式です。
type gridRequest struct {
	ImageURLs []string `json:"image_urls"`
	GridCols  int      `json:"grid_cols"`
	Captions  []string `json:"captions,omitempty"`
}

type gridResponse struct {
	Images []struct {
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"images"`
	ErrorMessage string `json:"error"`
}

// Compose は全パネル画像とキャプション、列数ヒントを送信して合成ページを取得します。
func (c *Client) Compose(ctx context.Context, panels []PanelInput, cols int) (*ComposedImage, error) {
	if len(panels) == 0 {
		return nil, &Error{Err: fmt.Errorf("合成するパネルがありません")}
	}

	reqBody := gridRequest{
		ImageURLs: make([]string, len(panels)),
		GridCols:  cols,
		Captions:  make([]string, len(panels)),
	}
	for i, p := range panels {
		reqBody.ImageURLs[i] = p.Image.DataURI()
		reqBody.Captions[i] = p.Caption
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("リクエストボディの構築に失敗しました: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("グリッド合成プロキシへの接続に失敗しました: %w", err)}
	}
	defer resp.Body.Close()

	var payload gridResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &Error{Err: fmt.Errorf("レスポンスのデコードに失敗しました: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Err: fmt.Errorf("グリッド合成プロキシがエラーを返しました (status %d): %s", resp.StatusCode, payload.ErrorMessage)}
	}
	if len(payload.Images) == 0 || payload.Images[0].URL == "" {
		return nil, &Error{Err: fmt.Errorf("レスポンスに画像URLが含まれていません")}
	}

	first := payload.Images[0]
	return &ComposedImage{
		URL:    first.URL,
		Width:  first.Width,
		Height: first.Height,
	}, nil
}
