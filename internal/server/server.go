// Package server は、音声合成APIとグリッド合成APIへの薄い中継サーバーです。
// 資格情報はサーバー側だけが保持し、クライアントには一切渡さないのだ。
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrMissingCredential は中継先の資格情報が未設定であることを示すのだ。
var ErrMissingCredential = errors.New("server: 中継先の資格情報が設定されていません")

// Doer はHTTPリクエストを実行する最小の契約です。httpkit のクライアントがこれを満たします。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Route は1つの中継先（上流URLと資格情報）の定義です。
type Route struct {
	Upstream string // 上流APIのURL
	APIKey   string // サーバー側で注入する資格情報
}

func (r Route) valid() bool {
	return r.Upstream != "" && r.APIKey != ""
}

// Server は /api/tts と /api/grid を上流へ素通しするHTTPハンドラの束です。
type Server struct {
	client Doer
	tts    Route
	grid   Route
}

// New は中継サーバーを初期化します。
func New(client Doer, tts, grid Route) *Server {
	return &Server{client: client, tts: tts, grid: grid}
}

// Handler はルーティング済みの http.Handler を返します。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/tts", s.relay("tts", s.tts))
	mux.HandleFunc("POST /api/grid", s.relay("grid", s.grid))
	return mux
}

// relay はリクエストボディをそのまま上流へ転送し、ステータスとボディを返却するハンドラを作ります。
// 資格情報が未設定なら上流に触れず 500 を返すのだ。
func (s *Server) relay(name string, route Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !route.valid() {
			slog.Error("中継先の資格情報が未設定です", "route", name, "error", ErrMissingCredential)
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s の資格情報がサーバーに設定されていません", name))
			return
		}

		start := time.Now()
		req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, route.Upstream, r.Body)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "上流リクエストの構築に失敗しました")
			return
		}
		req.Header.Set("Content-Type", r.Header.Get("Content-Type"))
		req.Header.Set("Authorization", "Bearer "+route.APIKey)

		resp, err := s.client.Do(req)
		if err != nil {
			slog.Error("上流APIへの接続に失敗しました", "route", name, "error", err)
			writeError(w, http.StatusBadGateway, "上流APIに接続できませんでした")
			return
		}
		defer resp.Body.Close()

		// 上流のステータスとボディはそのままクライアントへ返すのだ
		if ct := resp.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			slog.Warn("レスポンスの転送が途中で打ち切られました", "route", name, "error", err)
		}

		slog.Info("中継が完了したのだ", "route", name, "status", resp.StatusCode, "elapsed", time.Since(start))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
