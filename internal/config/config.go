package config

import (
	"strings"
	"time"

	"github.com/shouni/go-utils/envutil"

	"github.com/shouni/go-post-kit/pkg/workflow"
)

// デフォルト値の定義なのだ
const (
	DefaultHTTPTimeout = 30 * time.Second
	DefaultOutputDir   = "output" // パブリッシャーで使用するデフォルト保存先なのだ
	DefaultIdeasFile   = "output/ideas.json"
)

// Config はアプリケーション全体の環境設定（APIキーやクラウド設定）を保持する構造体なのだ。
type Config struct {
	ProjectID  string
	LocationID string
	Workflow   workflow.Config

	Options GenerateOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	wf := workflow.NewConfig(envutil.GetEnv("GEMINI_API_KEY", ""))
	wf.TextModel = envutil.GetEnv("GEMINI_MODEL", workflow.DefaultTextModel)
	wf.DraftModel = envutil.GetEnv("GEMINI_DRAFT_MODEL", workflow.DefaultDraftModel)
	wf.ImageModel = envutil.GetEnv("IMAGE_GEMINI_MODEL", workflow.DefaultImageModel)
	wf.FallbackModels = splitModels(envutil.GetEnv("GEMINI_FALLBACK_MODELS", ""))
	wf.StyleSuffix = envutil.GetEnv("IMAGE_PROMPT_SUFFIX", workflow.DefaultStyleSuffix)

	return &Config{
		ProjectID:  envutil.GetEnv("PROJECT_ID", ""),
		LocationID: envutil.GetEnv("REGION", ""),
		Workflow:   wf,
	}
}

// splitModels はカンマ区切りのモデル指定をリストに起こすのだ。空要素は捨てる。
func splitModels(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var models []string
	for _, m := range strings.Split(raw, ",") {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	return models
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	// ブリーフ入力関連
	Niche    string // --niche
	Goal     string // --goal
	Format   string // --format
	BriefURL string // --brief-url: 参考記事のURL
	IdeaFile string // --ideas-file: 保存済みアイデアJSONのパス

	// 生成結果の出力設定
	OutputDir string // --output-dir

	// AI挙動設定
	AIModel    string // --model: テキスト生成用のGeminiモデル
	DraftModel string // --draft-model: 本文生成用のGeminiモデル
	ImageModel string // --image-model: 画像生成用のGeminiモデル

	// 実行制御
	IdeaIndex      int           // --idea: 対話なしでアイデア番号を即決する（1始まり）
	WithImage      bool          // --with-image
	SkipBriefCheck bool          // --skip-check
	HTTPTimeout    time.Duration // --http-timeout
}

// ApplyOptions はフラグの値をワークフロー設定へ反映するのだ。
func (c *Config) ApplyOptions(opts GenerateOptions) {
	c.Options = opts
	if opts.AIModel != "" {
		c.Workflow.TextModel = opts.AIModel
	}
	if opts.DraftModel != "" {
		c.Workflow.DraftModel = opts.DraftModel
	}
	if opts.ImageModel != "" {
		c.Workflow.ImageModel = opts.ImageModel
	}
	if opts.OutputDir != "" {
		c.Workflow.OutputDir = opts.OutputDir
	}
	c.Workflow.SkipBriefCheck = opts.SkipBriefCheck
}
