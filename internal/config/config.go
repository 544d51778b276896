package config

import (
	"time"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultModel        = "gemini-3-flash-preview"
	DefaultImageModel   = "gemini-3-pro-image-preview"
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultRateInterval = 30 * time.Second
	DefaultPanelCount   = 4
	DefaultStyleID      = "storybook"
	DefaultOutputDir    = "output/comic" // 完成したコミックの保存先なのだ
	DefaultProxyAddr    = ":8080"
	DefaultTTSEndpoint  = "http://localhost:8080/api/tts"
	DefaultGridEndpoint = "http://localhost:8080/api/grid"
)

// Config はアプリケーション全体の環境設定（APIキーや接続先）を保持する構造体なのだ。
type Config struct {
	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string

	// プロキシ経由で叩く合成APIの入り口なのだ
	TTSEndpoint  string
	GridEndpoint string

	// プロキシ自身がサーバー側で保持する資格情報と上流URL
	TTSAPIKey    string
	GridAPIKey   string
	TTSUpstream  string
	GridUpstream string

	Options GenerateOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	cfg := &Config{
		GeminiAPIKey:     envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:      envutil.GetEnv("GEMINI_MODEL", DefaultModel),
		GeminiImageModel: envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultImageModel),
		TTSEndpoint:      envutil.GetEnv("COMIC_TTS_ENDPOINT", DefaultTTSEndpoint),
		GridEndpoint:     envutil.GetEnv("COMIC_GRID_ENDPOINT", DefaultGridEndpoint),
		TTSAPIKey:        envutil.GetEnv("COMIC_TTS_API_KEY", ""),
		GridAPIKey:       envutil.GetEnv("COMIC_GRID_API_KEY", ""),
		TTSUpstream:      envutil.GetEnv("COMIC_TTS_UPSTREAM", ""),
		GridUpstream:     envutil.GetEnv("COMIC_GRID_UPSTREAM", ""),
	}
	return cfg
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	// ソース入力関連
	DrawingFile string // --drawing
	StoryFile   string // --story-file
	Story       string // --story
	PanelCount  int    // --panels
	StyleID     string // --style
	StylesFile  string // --styles-file

	// 出力関連
	OutputDir string // --output-dir

	// AI挙動設定
	AIModel    string // --model: テキスト生成用のGeminiモデル
	ImageModel string // --image-model: 画像生成用のGeminiモデル

	// 実行制御
	HTTPTimeout  time.Duration // --http-timeout
	RateInterval time.Duration // --rate-interval
}
