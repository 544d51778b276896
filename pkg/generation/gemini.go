package generation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shouni/go-comic-wizard/pkg/domain"
	"github.com/shouni/go-comic-wizard/pkg/prompts"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-gemini-client/gemini"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// デフォルト値の定義なのだ
const (
	defaultRefCacheTTL     = 30 * time.Minute
	defaultRefCacheCleanup = 1 * time.Hour
	defaultRateBurst       = 2
)

// Config は GeminiClient の動作設定です。
type Config struct {
	APIKey       string
	TextModel    string
	ImageModel   string
	RateInterval time.Duration
	Temperature  float32
}

// Args は New に渡す依存関係の束です。
// Images / Text を注入するとリモート実装の代わりにそれが使われます（テストや差し替え用）。
type Args struct {
	Config Config
	Images ImageModel
	Text   TextModel
}

// geminiTextModel は go-gemini-client を TextModel 契約に適合させるアダプターです。
type geminiTextModel struct {
	model gemini.GenerativeModel
}

// GenerateText は1回のテキスト生成を実行し、本文のみを返します。
func (g geminiTextModel) GenerateText(ctx context.Context, prompt, model string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, prompt, model)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// GeminiClient は Client の Gemini 実装です。
// 画像系はマルチモーダルのパーツAPI、プランニングはテキスト生成＋JSONパースで実現します。
type GeminiClient struct {
	images    ImageModel
	text      TextModel
	textModel string
	builder   *prompts.Builder
	limiter   *rate.Limiter
	refCache  *cache.Cache
	synthesis singleflight.Group
}

// New は GeminiClient を初期化します。APIキーの欠落は起動時の致命的エラーです。
func New(ctx context.Context, args Args) (*GeminiClient, error) {
	cfg := args.Config

	builder, err := prompts.NewBuilder()
	if err != nil {
		return nil, fmt.Errorf("プロンプトビルダーの初期化に失敗しました: %w", err)
	}

	images := args.Images
	if images == nil {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY が設定されていません。生成クライアントの利用には必須なのだ")
		}
		images, err = newGeminiImageModel(ctx, cfg.APIKey, cfg.ImageModel)
		if err != nil {
			return nil, fmt.Errorf("画像生成モデルの初期化に失敗しました: %w", err)
		}
	}

	text := args.Text
	if text == nil {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY が設定されていません。生成クライアントの利用には必須なのだ")
		}
		clientConfig := gemini.Config{
			APIKey:      cfg.APIKey,
			Temperature: genai.Ptr(cfg.Temperature),
		}
		aiClient, aiErr := gemini.NewClient(ctx, clientConfig)
		if aiErr != nil {
			return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", aiErr)
		}
		text = geminiTextModel{model: aiClient}
	}

	interval := cfg.RateInterval
	if interval <= 0 {
		interval = time.Second
	}

	return &GeminiClient{
		images:    images,
		text:      text,
		textModel: cfg.TextModel,
		builder:   builder,
		limiter:   rate.NewLimiter(rate.Every(interval), defaultRateBurst),
		refCache:  cache.New(defaultRefCacheTTL, defaultRefCacheCleanup),
	}, nil
}

// SynthesizeCharacter は3ポーズのリファレンス画像を並列合成します。
// 同じ絵＋スタイルの組には singleflight とキャッシュで重複呼び出しを抑止するのだ。
func (c *GeminiClient) SynthesizeCharacter(ctx context.Context, drawing domain.EncodedImage, styleID string) ([]domain.EncodedImage, error) {
	if drawing.IsEmpty() {
		return nil, newStageError(StageCharacter, fmt.Errorf("元になる絵が空です"))
	}

	key := referenceKey(drawing, styleID)
	if cached, ok := c.refCache.Get(key); ok {
		refs := cached.([]domain.EncodedImage)
		slog.Debug("キャラクターリファレンスをキャッシュから再利用するのだ", "key", key[:12])
		return copyImages(refs), nil
	}

	val, err, _ := c.synthesis.Do(key, func() (interface{}, error) {
		// singleflight で待機中に他のゴルーチンが完了させている可能性があるため再確認
		if cached, ok := c.refCache.Get(key); ok {
			return cached, nil
		}

		refs, synthErr := c.synthesizePoses(ctx, drawing, styleID)
		if synthErr != nil {
			return nil, synthErr
		}

		c.refCache.Set(key, refs, cache.DefaultExpiration)
		return refs, nil
	})
	if err != nil {
		return nil, err
	}

	refs, ok := val.([]domain.EncodedImage)
	if !ok {
		return nil, newStageError(StageCharacter, fmt.Errorf("unexpected return type from singleflight: %T", val))
	}
	return copyImages(refs), nil
}

// synthesizePoses は3ポーズ分の生成呼び出しをバリア付きで並列実行します。
// 1枚でも失敗すれば全体が失敗となり、部分的な結果は返しません。
func (c *GeminiClient) synthesizePoses(ctx context.Context, drawing domain.EncodedImage, styleID string) ([]domain.EncodedImage, error) {
	poses := prompts.Poses()
	refs := make([]domain.EncodedImage, len(poses))
	eg, egCtx := errgroup.WithContext(ctx)

	slog.Info("キャラクターリファレンスの並列合成を開始するのだ", "poses", len(poses), "style", styleID)

	for i, pose := range poses {
		i, pose := i, pose
		eg.Go(func() error {
			if err := c.limiter.Wait(egCtx); err != nil {
				return newStageError(StageCharacter, err)
			}

			startTime := time.Now()
			resp, err := c.images.GenerateImage(egCtx, ImageRequest{
				Prompt:         c.builder.BuildCharacterPrompt(pose, styleID),
				NegativePrompt: prompts.NegativeImagePrompt,
				Images:         []domain.EncodedImage{drawing},
			})
			if err != nil {
				return newStageError(StageCharacter, fmt.Errorf("ポーズ '%s' の合成に失敗: %w", pose.ID, err))
			}
			if resp.IsEmpty() {
				return newStageError(StageCharacter, fmt.Errorf("ポーズ '%s' のレスポンスに画像ペイロードがありません", pose.ID))
			}

			refs[i] = resp
			slog.Info("ポーズ合成に成功したのだ", "pose", pose.ID, "duration", time.Since(startTime).Round(time.Millisecond))
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return refs, nil
}

// PlanStoryboard は構成案を1回のテキスト生成呼び出しで取得し、JSONとしてパースします。
func (c *GeminiClient) PlanStoryboard(ctx context.Context, storySeed string, panelCount int) (*domain.Storyboard, error) {
	promptContent, err := c.builder.BuildStoryboardPrompt(prompts.StoryboardData{
		Story:      storySeed,
		PanelCount: panelCount,
	})
	if err != nil {
		return nil, newStageError(StagePlanning, err)
	}

	raw, err := c.text.GenerateText(ctx, promptContent, c.textModel)
	if err != nil {
		return nil, newStageError(StagePlanning, fmt.Errorf("構成案の生成に失敗したのだ: %w", err))
	}

	storyboard, err := ParseStoryboard(raw, panelCount)
	if err != nil {
		return nil, newStageError(StagePlanning, err)
	}
	return storyboard, nil
}

// IllustratePanel は全リファレンス画像を条件として1パネルを作画します。
func (c *GeminiClient) IllustratePanel(ctx context.Context, prompt string, refs []domain.EncodedImage, styleID string, panelIndex int) (domain.EncodedImage, error) {
	if len(refs) != PoseCount {
		return domain.EncodedImage{}, newPanelError(panelIndex, fmt.Errorf("リファレンス画像は%d枚必要です: %d枚", PoseCount, len(refs)))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return domain.EncodedImage{}, newPanelError(panelIndex, err)
	}

	startTime := time.Now()
	resp, err := c.images.GenerateImage(ctx, ImageRequest{
		Prompt:         c.builder.BuildPanelPrompt(prompt, styleID),
		NegativePrompt: prompts.NegativeImagePrompt,
		Images:         refs,
	})
	if err != nil {
		return domain.EncodedImage{}, newPanelError(panelIndex, err)
	}
	if resp.IsEmpty() {
		return domain.EncodedImage{}, newPanelError(panelIndex, fmt.Errorf("レスポンスに画像ペイロードがありません"))
	}

	slog.Info("パネル作画に成功したのだ", "panel", panelIndex+1, "duration", time.Since(startTime).Round(time.Millisecond))
	return resp, nil
}

// ParseStoryboard は、AIが返したテキストからMarkdownのコードブロック等を除去してJSONとしてパースします。
// パネル数が要求と一致しないレスポンスもスキーマ違反として扱うのだ。
func ParseStoryboard(raw string, panelCount int) (*domain.Storyboard, error) {
	// 余計な空白や、AIが付けがちなMarkdownタグ (```json ... ```) を取り除く処理なのだ
	rawJSON := strings.TrimSpace(raw)
	rawJSON = strings.TrimPrefix(rawJSON, "```json")
	rawJSON = strings.TrimPrefix(rawJSON, "```")
	rawJSON = strings.TrimSuffix(rawJSON, "```")
	rawJSON = strings.TrimSpace(rawJSON)

	var storyboard domain.Storyboard
	if err := json.Unmarshal([]byte(rawJSON), &storyboard); err != nil {
		return nil, fmt.Errorf("構成案JSONのパースに失敗しました: %w", err)
	}

	if len(storyboard.Panels) != panelCount {
		return nil, fmt.Errorf("構成案のパネル数が要求と一致しません: 要求 %d, 実際 %d", panelCount, len(storyboard.Panels))
	}

	// IDが欠けているパネルには位置から決定論的なIDを振るのだ
	for i := range storyboard.Panels {
		if storyboard.Panels[i].ID == "" {
			storyboard.Panels[i].ID = fmt.Sprintf("panel-%d", i+1)
		}
	}

	return &storyboard, nil
}

// referenceKey は絵のダイジェストとスタイルIDからキャッシュキーを生成します。
func referenceKey(drawing domain.EncodedImage, styleID string) string {
	hash := sha256.Sum256(drawing.Data)
	return hex.EncodeToString(hash[:]) + ":" + styleID
}

// copyImages はキャッシュ内容が呼び出し元によって変更されるのを防ぐ防御的コピーです。
func copyImages(src []domain.EncodedImage) []domain.EncodedImage {
	copied := make([]domain.EncodedImage, len(src))
	copy(copied, src)
	return copied
}
