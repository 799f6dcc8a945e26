package workflow

import (
	"time"
)

// デフォルト値の定義なのだ
const (
	DefaultTextModel         = "gemini-3-flash-preview"
	DefaultDraftModel        = "gemini-3-pro-preview"
	DefaultImageModel        = "gemini-3-pro-image-preview"
	DefaultMaxAttempts       = 3
	DefaultInitialBackoff    = 2 * time.Second
	DefaultMaxBackoff        = 30 * time.Second
	DefaultRandomization     = 0.3
	DefaultTextRateInterval  = 2 * time.Second
	DefaultImageRateInterval = 30 * time.Second
	DefaultSessionTTL        = 30 * time.Minute
	DefaultStyleSuffix       = "modern flat illustration, harmonious palette, clean shapes, social media ready, high resolution"
)

// Config は Go Post Kit の各 Runner を動作させるための基本設定なのだ。
type Config struct {
	// --- AI Model Settings ---
	GeminiAPIKey   string
	TextModel      string   // アイデア・校正・審査用の軽量モデル
	DraftModel     string   // 本文生成用の上位モデル
	ImageModel     string   // 挿絵生成用モデル
	FallbackModels []string // テキスト系の予備モデル（優先順）

	// --- Retry Settings ---
	MaxAttemptsPerModel int
	InitialBackoff      time.Duration
	MaxBackoff          time.Duration
	Randomization       float64

	// --- Generation Settings ---
	StyleSuffix       string
	TextRateInterval  time.Duration
	ImageRateInterval time.Duration
	SessionTTL        time.Duration
	SkipBriefCheck    bool

	// --- Storage & Output Settings ---
	OutputDir string

	// --- Timeout & Retries ---
	RequestTimeout time.Duration
}

// NewConfig はデフォルト値で初期化された Config を作成し、必要最小限の値をセットして返すのだ。
func NewConfig(apiKey string) Config {
	cfg := DefaultConfig()
	cfg.GeminiAPIKey = apiKey
	return cfg
}

// DefaultConfig は推奨されるデフォルト設定を返すヘルパー関数なのだ。
func DefaultConfig() Config {
	return Config{
		TextModel:           DefaultTextModel,
		DraftModel:          DefaultDraftModel,
		ImageModel:          DefaultImageModel,
		MaxAttemptsPerModel: DefaultMaxAttempts,
		InitialBackoff:      DefaultInitialBackoff,
		MaxBackoff:          DefaultMaxBackoff,
		Randomization:       DefaultRandomization,
		StyleSuffix:         DefaultStyleSuffix,
		TextRateInterval:    DefaultTextRateInterval,
		ImageRateInterval:   DefaultImageRateInterval,
		SessionTTL:          DefaultSessionTTL,
		RequestTimeout:      5 * time.Minute,
	}
}
