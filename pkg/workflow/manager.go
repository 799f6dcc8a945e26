package workflow

import (
	"context"
	"fmt"

	"github.com/shouni/go-gemini-client/gemini"
	"github.com/shouni/go-http-kit/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/shouni/go-post-kit/pkg/prompts"
	"github.com/shouni/go-post-kit/pkg/reliable"
)

// ManagerArgs は Manager の生成に必要な依存関係をまとめた引数なのだ。
type ManagerArgs struct {
	Config     Config
	HTTPClient httpkit.ClientInterface
	Reader     remoteio.InputReader
	Writer     remoteio.OutputWriter

	// TextPrompt を渡すと既存のビルダーを使い回せます。nil なら新規作成します。
	TextPrompt prompts.PromptBuilder
}

// Manager は、ワークフローの各工程を担う Runner 群を構築・管理します。
// 発想系と判定系で温度の異なる2つのAIクライアントを使い分けるのだ。
type Manager struct {
	cfg          Config
	httpClient   httpkit.ClientInterface
	reader       remoteio.InputReader
	writer       remoteio.OutputWriter
	creative     gemini.GenerativeModel // 高温。アイデア・本文・シーン記述用
	strict       gemini.GenerativeModel // 低温。校正・審査用
	textPrompt   prompts.PromptBuilder
	imagePrompt  *prompts.ImagePromptBuilder
	textLimiter  *rate.Limiter
	imageLimiter *rate.Limiter
	imageModels  map[string]reliable.ImageModel
}

// New は設定を基に新しい Manager を初期化します。
func New(ctx context.Context, args ManagerArgs) (*Manager, error) {
	if args.HTTPClient == nil {
		return nil, fmt.Errorf("httpClient は必須です")
	}
	if args.Reader == nil {
		return nil, fmt.Errorf("InputReader は必須です")
	}
	if args.Writer == nil {
		return nil, fmt.Errorf("OutputWriter は必須です")
	}

	creative, err := initializeAIClient(ctx, args.Config.GeminiAPIKey, creativeTemperature)
	if err != nil {
		return nil, err
	}
	strict, err := initializeAIClient(ctx, args.Config.GeminiAPIKey, strictTemperature)
	if err != nil {
		return nil, err
	}

	textPrompt, err := initializeTextPrompt(args.TextPrompt)
	if err != nil {
		return nil, err
	}

	imageModels, err := buildImageModels(args.Config, args.HTTPClient, creative, args.Reader)
	if err != nil {
		return nil, fmt.Errorf("画像生成エンジンの初期化に失敗しました: %w", err)
	}

	return &Manager{
		cfg:          args.Config,
		httpClient:   args.HTTPClient,
		reader:       args.Reader,
		writer:       args.Writer,
		creative:     creative,
		strict:       strict,
		textPrompt:   textPrompt,
		imagePrompt:  prompts.NewImagePromptBuilder(args.Config.StyleSuffix),
		textLimiter:  rate.NewLimiter(rate.Every(args.Config.TextRateInterval), 2),
		imageLimiter: rate.NewLimiter(rate.Every(args.Config.ImageRateInterval), 2),
		imageModels:  imageModels,
	}, nil
}

// Reader は共有の入力クライアントを返すのだ。
func (b *Manager) Reader() remoteio.InputReader { return b.reader }

// Writer は共有の出力クライアントを返すのだ。
func (b *Manager) Writer() remoteio.OutputWriter { return b.writer }

// initializeAIClient は gemini クライアントを初期化します。
func initializeAIClient(ctx context.Context, apiKey string, temperature float32) (gemini.GenerativeModel, error) {
	clientConfig := gemini.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(temperature),
	}
	aiClient, err := gemini.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return aiClient, nil
}

// initializeTextPrompt は TextPromptBuilder を初期化します。
// 引数として既存のビルダーが渡された場合はそれを返し、nil の場合は新規作成します。
func initializeTextPrompt(textPrompt prompts.PromptBuilder) (prompts.PromptBuilder, error) {
	if textPrompt != nil {
		return textPrompt, nil
	}

	pb, err := prompts.NewTextPromptBuilder()
	if err != nil {
		return nil, fmt.Errorf("TextPromptBuilder の新規作成に失敗しました: %w", err)
	}

	return pb, nil
}
