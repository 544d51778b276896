package layout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shouni/go-comic-wizard/pkg/domain"
)

func testPanels(n int) []PanelInput {
	panels := make([]PanelInput, n)
	for i := range panels {
		panels[i] = PanelInput{
			Image:   domain.EncodedImage{Data: []byte{byte(i + 1)}, MimeType: "image/png"},
			Caption: "caption",
		}
	}
	return panels
}

func TestColumns(t *testing.T) {
	cases := []struct {
		panels   int
		expected int
	}{
		{3, 2},
		{4, 2},
		{5, 3},
		{8, 3},
	}
	for _, tc := range cases {
		if got := Columns(tc.panels); got != tc.expected {
			t.Errorf("パネル数 %d: 期待値 %d, 実際の値 %d", tc.panels, tc.expected, got)
		}
	}
}

func TestClient_Compose(t *testing.T) {
	t.Run("正常系でワイヤ形式が守られること", func(t *testing.T) {
		var received gridRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
				t.Fatalf("リクエストのデコードに失敗しました: %v", err)
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"images": []map[string]interface{}{
					{"url": "https://example.com/page.png", "width": 1024, "height": 768},
				},
			})
		}))
		defer server.Close()

		client := New(server.Client(), server.URL)
		composed, err := client.Compose(context.Background(), testPanels(4), Columns(4))
		if err != nil {
			t.Fatalf("合成に失敗しました: %v", err)
		}

		if composed.URL != "https://example.com/page.png" || composed.Width != 1024 {
			t.Errorf("合成結果が不正です: %+v", composed)
		}
		if received.GridCols != 2 {
			t.Errorf("列数ヒントが不正です: %d", received.GridCols)
		}
		if len(received.ImageURLs) != 4 || !strings.HasPrefix(received.ImageURLs[0], "data:image/png;base64,") {
			t.Error("画像がdata URIとして送信されていません")
		}
	})

	t.Run("画像URLなしのレスポンスはLayoutErrorになること", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"images": []}`))
		}))
		defer server.Close()

		client := New(server.Client(), server.URL)
		_, err := client.Compose(context.Background(), testPanels(3), 2)

		var layoutErr *Error
		if !errors.As(err, &layoutErr) {
			t.Errorf("layout.Errorであるべきです: %v", err)
		}
	})

	t.Run("エラーステータスにはプロキシのメッセージが含まれること", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"error": "upstream unavailable"}`))
		}))
		defer server.Close()

		client := New(server.Client(), server.URL)
		_, err := client.Compose(context.Background(), testPanels(3), 2)
		if err == nil || !strings.Contains(err.Error(), "upstream unavailable") {
			t.Errorf("プロキシのエラーメッセージが含まれていません: %v", err)
		}
	})

	t.Run("空のパネルリストはエラーになること", func(t *testing.T) {
		client := New(&http.Client{}, "http://127.0.0.1:1")
		if _, err := client.Compose(context.Background(), nil, 2); err == nil {
			t.Error("空入力でエラーが発生しませんでした")
		}
	})
}
