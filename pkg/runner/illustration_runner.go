package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	imgdom "github.com/shouni/gemini-image-kit/ports"

	"github.com/shouni/go-post-kit/pkg/domain"
	"github.com/shouni/go-post-kit/pkg/prompts"
	"github.com/shouni/go-post-kit/pkg/reliable"
)

// 投稿用挿絵の標準アスペクト比。主要SNSのフィードに収まりの良い正方形なのだ。
const illustrationAspectRatio = "1:1"

// IllustrationRunner は、完成した投稿に添える挿絵を生成します。
// アートディレクション（テキスト）→ 作画（画像）の2段構えです。
// この工程は任意扱いで、リトライを使い切っても挿絵なしで正常終了します。
type IllustrationRunner struct {
	promptBuilder prompts.PromptBuilder
	imageBuilder  *prompts.ImagePromptBuilder
	textCaller    *reliable.Caller
	imageCaller   *reliable.ImageCaller
	textPolicy    reliable.Policy
	imagePolicy   reliable.Policy
}

// NewIllustrationRunner は依存関係を注入して初期化します。
func NewIllustrationRunner(
	pb prompts.PromptBuilder,
	ib *prompts.ImagePromptBuilder,
	textCaller *reliable.Caller,
	imageCaller *reliable.ImageCaller,
	textPolicy, imagePolicy reliable.Policy,
) *IllustrationRunner {
	return &IllustrationRunner{
		promptBuilder: pb,
		imageBuilder:  ib,
		textCaller:    textCaller,
		imageCaller:   imageCaller,
		textPolicy:    textPolicy,
		imagePolicy:   imagePolicy,
	}
}

// Run は挿絵生成を実行するのだ。リトライを使い切った場合は (nil, nil) を返し、
// 呼び出し側は挿絵なしでセッションを完了させる。設定エラーだけはそのまま返す。
func (ir *IllustrationRunner) Run(ctx context.Context, brief domain.Brief, idea domain.Idea, post *domain.Post) (*domain.Illustration, error) {
	scene, err := ir.directScene(ctx, brief, idea, post)
	if err != nil {
		return ir.degradeOrFail("art_direction", err)
	}

	userPrompt, systemPrompt := ir.imageBuilder.BuildIllustrationPrompt(scene, brief.Niche)

	req := imgdom.ImagePanelRequest{
		GenerationOptions: imgdom.GenerationOptions{
			Prompt:         userPrompt,
			SystemPrompt:   systemPrompt,
			NegativePrompt: prompts.IllustrationNegativePrompt,
			AspectRatio:    illustrationAspectRatio,
		},
	}

	res, err := ir.imageCaller.Call(ctx, req, ir.imagePolicy)
	if err != nil {
		return ir.degradeOrFail("illustration", err)
	}

	slog.Info("IllustrationRunner: 挿絵を生成しました",
		"mime_type", res.Response.MimeType,
		"bytes", len(res.Response.Data),
		"model", res.ModelUsed,
	)

	return &domain.Illustration{
		PromptUsed: userPrompt,
		Data:       res.Response.Data,
		MimeType:   res.Response.MimeType,
		ModelUsed:  res.ModelUsed,
	}, nil
}

// directScene は投稿内容からシーン記述を起こすアートディレクション工程です。
// 本文の丸写しを避けるため、プロンプトにはタイトルと要約だけを渡すのだ。
func (ir *IllustrationRunner) directScene(ctx context.Context, brief domain.Brief, idea domain.Idea, post *domain.Post) (string, error) {
	prompt, err := ir.promptBuilder.Build(prompts.ModeImageBrief, prompts.TemplateData{
		Niche:       brief.Niche,
		Title:       post.Title,
		IdeaSummary: idea.Summary,
	})
	if err != nil {
		return "", fmt.Errorf("アートディレクションのプロンプト生成に失敗: %w", err)
	}

	policy := ir.textPolicy
	policy.Validate = validateSceneText
	policy.Adapt = appendCorrective

	res, err := ir.textCaller.Call(ctx, prompt, policy)
	if err != nil {
		return "", err
	}

	scene, err := parseScene(res.Text)
	if err != nil {
		return "", err
	}
	return scene, nil
}

// degradeOrFail は挿絵工程の失敗を格下げします。設定エラーはセッション全体に
// 関わるのでそのまま返し、それ以外は挿絵なしの正常系として握りつぶすのだ。
func (ir *IllustrationRunner) degradeOrFail(stage string, err error) (*domain.Illustration, error) {
	var ce *domain.ConfigurationError
	if errors.As(err, &ce) {
		return nil, err
	}
	slog.Warn("挿絵の生成に失敗したため、挿絵なしで続行します", "stage", stage, "error", err)
	return nil, nil
}

func parseScene(raw string) (string, error) {
	var env imagePromptEnvelope
	if err := decodeEnvelope(raw, &env); err != nil {
		return "", err
	}
	scene := strings.TrimSpace(env.ImagePrompt.FullPrompt)
	if scene == "" {
		return "", &domain.ValidationError{Reason: "image_prompt.full_prompt が空です"}
	}
	return scene, nil
}

func validateSceneText(text string) error {
	_, err := parseScene(text)
	return err
}
