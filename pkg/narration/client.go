// Package narration は、テキスト読み上げプロキシへの呼び出しをラップします。
// ナレーションは演出であってクリティカルパスではないため、
// この層で失敗を飲み込み、無音パネルという劣化結果に変換するのが責務なのだ。
package narration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shouni/go-comic-wizard/pkg/domain"
)

// Doer はHTTPリクエストを実行する契約です。httpkit.ClientInterface がこれを満たします。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SpeechSynthesizer は端末内スピーチ合成へのフォールバック契約です。
// 合成できない環境では nil を返し、そのパネルは無音になります。
type SpeechSynthesizer interface {
	Synthesize(text string) *domain.AudioHandle
}

// Client はナレーションプロキシのクライアントです。
type Client struct {
	httpClient Doer
	endpoint   string
	fallback   SpeechSynthesizer
}

// New は Client を初期化します。fallback に nil を渡すとフォールバックなしで動作します。
func New(httpClient Doer, endpoint string, fallback SpeechSynthesizer) *Client {
	return &Client{
		httpClient: httpClient,
		endpoint:   endpoint,
		fallback:   fallback,
	}
}

// Synthesize はテキスト1件分のナレーション音声を合成します。
// 空テキストはナレーション不要として (nil, nil) を返します。エラーではないのだ。
// リモート失敗は伝播せず、端末内フォールバックまたは nil ハンドルへ劣化します。
// error を返すのはコンテキストのキャンセル時のみです。
func (c *Client) Synthesize(ctx context.Context, text string) (*domain.AudioHandle, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	handle, err := c.synthesizeRemote(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// リモート失敗はここで吸収して劣化させる。呼び出し元には決して伝播させないのだ。
		slog.Warn("ナレーション合成に失敗したため劣化させるのだ", "error", err)
		return c.degrade(text), nil
	}
	return handle, nil
}

// synthesizeRemote はプロキシへの1回のPOSTを実行します。
func (c *Client) synthesizeRemote(ctx context.Context, text string) (*domain.AudioHandle, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("リクエストボディの構築に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("リクエストの構築に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ナレーションプロキシへの接続に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ナレーションプロキシがエラーを返しました: %s", statusReason(resp))
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "audio/") {
		// JSONの劣化通知ボディ。音声は得られなかったという合図なのだ。
		return nil, fmt.Errorf("ナレーションプロキシが音声以外を返しました: %s", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("音声データの読み込みに失敗しました: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("音声データが空です")
	}

	return &domain.AudioHandle{
		Kind:     domain.HandleRemoteAudio,
		Data:     data,
		MimeType: contentType,
		Text:     text,
	}, nil
}

// degrade は端末内フォールバックを試み、不可能なら nil（無音パネル）を返します。
func (c *Client) degrade(text string) *domain.AudioHandle {
	if c.fallback == nil {
		return nil
	}
	handle := c.fallback.Synthesize(text)
	if handle != nil {
		slog.Info("端末内スピーチ合成へフォールバックしたのだ")
	}
	return handle
}

// statusReason はプロキシのエラーステータスをユーザー向けの原因説明に変換します。
func statusReason(resp *http.Response) string {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return fmt.Sprintf("クォータを使い切りました (429): %s", payload.Error)
	case http.StatusUnauthorized:
		return fmt.Sprintf("認証に失敗しました (401): %s", payload.Error)
	case http.StatusBadRequest:
		return fmt.Sprintf("不正な入力です (400): %s", payload.Error)
	default:
		return fmt.Sprintf("status %d: %s", resp.StatusCode, payload.Error)
	}
}
