package workflow

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-text-format/pkg/builder"
	"github.com/shouni/go-web-exact/v2/extract"

	"github.com/shouni/go-post-kit/pkg/pipeline"
	"github.com/shouni/go-post-kit/pkg/publisher"
	"github.com/shouni/go-post-kit/pkg/reliable"
	"github.com/shouni/go-post-kit/pkg/runner"
)

// textPolicy はアイデア・本文・シーン記述に使うリトライポリシーを組み立てるのだ。
func (b *Manager) textPolicy(primary string) reliable.Policy {
	return reliable.Policy{
		Models:              append([]string{primary}, b.cfg.FallbackModels...),
		MaxAttemptsPerModel: b.cfg.MaxAttemptsPerModel,
		InitialBackoff:      b.cfg.InitialBackoff,
		MaxBackoff:          b.cfg.MaxBackoff,
		Randomization:       b.cfg.Randomization,
	}
}

// singleShotPolicy はベストエフォート工程（校正・審査）用の1回きりポリシーです。
func (b *Manager) singleShotPolicy() reliable.Policy {
	return reliable.Policy{
		Models:              []string{b.cfg.TextModel},
		MaxAttemptsPerModel: 1,
	}
}

func (b *Manager) imagePolicy() reliable.Policy {
	return reliable.Policy{
		Models:              imageModelCandidates(b.cfg),
		MaxAttemptsPerModel: b.cfg.MaxAttemptsPerModel,
		InitialBackoff:      b.cfg.InitialBackoff,
		MaxBackoff:          b.cfg.MaxBackoff,
		Randomization:       b.cfg.Randomization,
	}
}

// BuildIdeaRunner は、アイデア生成を担当する Runner を作成します。
func (b *Manager) BuildIdeaRunner() *runner.IdeaRunner {
	caller := reliable.NewCaller(b.creative, b.textLimiter, slog.Default(), nil)
	return runner.NewIdeaRunner(b.textPrompt, caller, b.textPolicy(b.cfg.TextModel))
}

// BuildDraftRunner は、本文生成と校正を担当する Runner を作成します。
// 本文は発想系クライアント、校正は判定系クライアントに分けたいところだが、
// 校正プロンプト側が温度非依存なので発想系1本で賄うのだ。
func (b *Manager) BuildDraftRunner() *runner.DraftRunner {
	caller := reliable.NewCaller(b.creative, b.textLimiter, slog.Default(), nil)
	return runner.NewDraftRunner(b.textPrompt, caller, b.textPolicy(b.cfg.DraftModel), b.singleShotPolicy())
}

// BuildIllustrationRunner は、挿絵生成を担当する Runner を作成します。
func (b *Manager) BuildIllustrationRunner() *runner.IllustrationRunner {
	textCaller := reliable.NewCaller(b.creative, b.textLimiter, slog.Default(), nil)
	imageCaller := reliable.NewImageCaller(b.imageFactory(), b.imageLimiter, slog.Default(), nil)
	return runner.NewIllustrationRunner(
		b.textPrompt,
		b.imagePrompt,
		textCaller,
		imageCaller,
		b.textPolicy(b.cfg.TextModel),
		b.imagePolicy(),
	)
}

// BuildBriefCheckRunner は、生成前のブリーフ審査を担当する Runner を作成します。
func (b *Manager) BuildBriefCheckRunner() *runner.BriefCheckRunner {
	caller := reliable.NewCaller(b.strict, b.textLimiter, slog.Default(), nil)
	return runner.NewBriefCheckRunner(b.textPrompt, caller, b.singleShotPolicy())
}

// BuildOrchestrator は全ステージを束ねたオーケストレーターを作成します。
func (b *Manager) BuildOrchestrator() *pipeline.Orchestrator {
	var checker pipeline.BriefChecker
	if !b.cfg.SkipBriefCheck {
		checker = b.BuildBriefCheckRunner()
	}
	return pipeline.NewOrchestrator(
		b.BuildIdeaRunner(),
		b.BuildDraftRunner(),
		b.BuildIllustrationRunner(),
		checker,
		b.cfg.SessionTTL,
		slog.Default(),
	)
}

// BuildPublisher は、成果物のパブリッシュを担当するコンポーネントを作成します。
func (b *Manager) BuildPublisher() (*publisher.PostPublisher, error) {
	htmlCfg := builder.BuilderConfig{
		EnableHardWraps: true,
		Mode:            "plain",
	}
	md2htmlBuilder, err := builder.NewBuilder(htmlCfg)
	if err != nil {
		return nil, fmt.Errorf("md2htmlBuilder の初期化に失敗しました: %w", err)
	}
	md2htmlRunner, err := md2htmlBuilder.BuildRunner()
	if err != nil {
		return nil, fmt.Errorf("md2htmlRunner の初期化に失敗しました: %w", err)
	}

	return publisher.NewPostPublisher(b.writer, md2htmlRunner), nil
}

// BuildExtractor は、参考URLの本文抽出を担当するコンポーネントを作成します。
func (b *Manager) BuildExtractor() (*extract.Extractor, error) {
	extractor, err := extract.NewExtractor(b.httpClient)
	if err != nil {
		return nil, fmt.Errorf("extractor の初期化に失敗しました: %w", err)
	}
	return extractor, nil
}

// imageFactory はモデル名から事前構築済みの画像クライアントを引くファクトリを返すのだ。
func (b *Manager) imageFactory() reliable.GeneratorFactory {
	return func(model string) reliable.ImageModel {
		return b.imageModels[model]
	}
}
