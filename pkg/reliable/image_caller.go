package reliable

import (
	"context"
	"log/slog"

	imgdom "github.com/shouni/gemini-image-kit/ports"
	"golang.org/x/time/rate"

	"github.com/shouni/go-post-kit/pkg/domain"
)

// ImageModel は画像生成クライアントの契約です。generator.ImageGenerator が満たします。
type ImageModel interface {
	GenerateMangaPanel(ctx context.Context, req imgdom.ImagePanelRequest) (*imgdom.ImageResponse, error)
}

// GeneratorFactory はモデル名から画像生成クライアントを作るファクトリです。
// 画像クライアントはモデルに束縛されるので、フォールバックの切替はここで行います。
type GeneratorFactory func(model string) ImageModel

// ImageResult は成功した画像生成の結果です。
type ImageResult struct {
	Response  *imgdom.ImageResponse
	ModelUsed string
}

// ImageCaller は画像生成呼び出しにリトライとフォールバックを被せるラッパーです。
type ImageCaller struct {
	factory  GeneratorFactory
	limiter  *rate.Limiter
	logger   *slog.Logger
	observer Observer
}

// NewImageCaller は ImageCaller を生成するのだ。
func NewImageCaller(factory GeneratorFactory, limiter *rate.Limiter, logger *slog.Logger, observer Observer) *ImageCaller {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageCaller{factory: factory, limiter: limiter, logger: logger, observer: observer}
}

// Call はポリシーに従って画像生成を実行します。
func (c *ImageCaller) Call(ctx context.Context, req imgdom.ImagePanelRequest, p Policy) (*ImageResult, error) {
	var result *ImageResult

	err := runAttempts(ctx, p, c.limiter, c.logger, c.observer, func(ctx context.Context, model string, total int) error {
		gen := c.factory(model)
		if gen == nil {
			return &domain.ConfigurationError{Reason: "画像生成クライアントのファクトリが nil を返しました"}
		}

		resp, err := gen.GenerateMangaPanel(ctx, req)
		if err != nil {
			return err
		}
		if resp == nil || len(resp.Data) == 0 {
			return &domain.ValidationError{Reason: "画像データが空です"}
		}

		result = &ImageResult{Response: resp, ModelUsed: model}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
