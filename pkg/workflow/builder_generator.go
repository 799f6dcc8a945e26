package workflow

import (
	"fmt"

	"github.com/patrickmn/go-cache"

	imagekit "github.com/shouni/gemini-image-kit/generator"

	"github.com/shouni/go-gemini-client/gemini"
	"github.com/shouni/go-http-kit/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-post-kit/pkg/reliable"
)

// buildImageModels はフォールバック候補を含む全画像モデル分の生成クライアントを
// 事前に構築します。画像クライアントはモデルに束縛されるため、切替はマップ参照で行うのだ。
func buildImageModels(
	cfg Config,
	httpClient httpkit.ClientInterface,
	aiClient gemini.GenerativeModel,
	reader remoteio.InputReader,
) (map[string]reliable.ImageModel, error) {

	core, err := initializeCore(reader, httpClient, aiClient)
	if err != nil {
		return nil, fmt.Errorf("画像生成エンジンの初期化に失敗しました: %w", err)
	}

	models := make(map[string]reliable.ImageModel)
	for _, model := range imageModelCandidates(cfg) {
		gen, err := imagekit.NewGeminiGenerator(model, core)
		if err != nil {
			return nil, fmt.Errorf("画像生成クライアント (%s) の初期化に失敗しました: %w", model, err)
		}
		models[model] = gen
	}
	return models, nil
}

// imageModelCandidates は画像モデルの優先順リストを返します。
func imageModelCandidates(cfg Config) []string {
	models := []string{cfg.ImageModel}
	if cfg.ImageModel == "" {
		models = []string{DefaultImageModel}
	}
	return models
}

// initializeCore 提供された依存関係で構成された GeminiImageCore インスタンスを初期化して返します。
func initializeCore(reader remoteio.InputReader, httpClient httpkit.ClientInterface, aiClient gemini.GenerativeModel) (*imagekit.GeminiImageCore, error) {
	imgCache := cache.New(defaultCacheExpiration, cacheCleanupInterval)
	core, err := imagekit.NewGeminiImageCore(
		aiClient,
		reader,
		httpClient,
		imgCache,
		defaultAssetTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("GeminiImageCore の初期化に失敗しました: %w", err)
	}

	return core, nil
}
