package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-post-kit/pkg/domain"
	"github.com/shouni/go-post-kit/pkg/prompts"
	"github.com/shouni/go-post-kit/pkg/reliable"
)

// DraftRunner は、選択されたアイデアから完成した投稿を生成します。
// 本文のスタイル契約チェックと、ベストエフォートの文法校正パスを含むのだ。
type DraftRunner struct {
	promptBuilder prompts.PromptBuilder
	caller        *reliable.Caller
	policy        reliable.Policy
	grammarPolicy reliable.Policy
}

// NewDraftRunner は依存関係を注入して初期化します。
func NewDraftRunner(pb prompts.PromptBuilder, caller *reliable.Caller, policy, grammarPolicy reliable.Policy) *DraftRunner {
	return &DraftRunner{
		promptBuilder: pb,
		caller:        caller,
		policy:        policy,
		grammarPolicy: grammarPolicy,
	}
}

// Run は本文生成と校正を実行するのだ。
func (dr *DraftRunner) Run(ctx context.Context, brief domain.Brief, idea domain.Idea, reference string) (*domain.Post, string, error) {
	slog.Info("DraftRunner: 本文を生成します", "idea", idea.Title)

	prompt, err := dr.promptBuilder.Build(prompts.ModePost, prompts.TemplateData{
		Niche:       brief.Niche,
		Goal:        brief.Goal,
		Format:      brief.Format,
		Reference:   reference,
		IdeaTitle:   idea.Title,
		IdeaSummary: idea.Summary,
		IdeaAngle:   idea.Angle,
	})
	if err != nil {
		return nil, "", &domain.GenerationError{StageName: "post", Err: fmt.Errorf("プロンプト生成に失敗: %w", err)}
	}

	policy := dr.policy
	policy.Validate = validatePostText
	policy.Adapt = appendCorrective

	res, err := dr.caller.Call(ctx, prompt, policy)
	if err != nil {
		return nil, "", &domain.GenerationError{StageName: "post", Err: err}
	}

	post, err := parsePost(res.Text)
	if err != nil {
		return nil, "", &domain.GenerationError{StageName: "post", Err: err}
	}

	post.Hashtags = domain.NormalizeHashtags(post.Hashtags)
	post.Body = dr.correctGrammar(ctx, post.Body)

	slog.Info("DraftRunner: 投稿が完成しました", "post", post.String(), "model", res.ModelUsed)
	return post, res.ModelUsed, nil
}

// correctGrammar は文法校正パスです。ベストエフォートで、失敗したら元の本文を
// そのまま使います。校正結果がスタイル契約を壊していた場合も元に戻すのだ。
func (dr *DraftRunner) correctGrammar(ctx context.Context, body string) string {
	prompt, err := dr.promptBuilder.Build(prompts.ModeGrammar, prompts.TemplateData{Body: body})
	if err != nil {
		slog.Warn("校正プロンプトの生成に失敗したため原文を使います", "error", err)
		return body
	}

	res, err := dr.caller.Call(ctx, prompt, dr.grammarPolicy)
	if err != nil {
		slog.Warn("文法校正に失敗したため原文を使います", "error", err)
		return body
	}

	var env correctedEnvelope
	if err := decodeEnvelope(res.Text, &env); err != nil {
		slog.Warn("校正応答の解析に失敗したため原文を使います", "error", err)
		return body
	}

	corrected := strings.TrimSpace(env.Corrected)
	if corrected == "" {
		return body
	}
	if err := domain.CheckBodyStyle(corrected); err != nil {
		slog.Warn("校正結果がスタイル契約に違反したため原文を使います", "error", err)
		return body
	}
	return corrected
}

func parsePost(raw string) (*domain.Post, error) {
	var env postEnvelope
	if err := decodeEnvelope(raw, &env); err != nil {
		return nil, err
	}
	if err := env.Post.Validate(); err != nil {
		return nil, err
	}
	return &env.Post, nil
}

func validatePostText(text string) error {
	_, err := parsePost(text)
	return err
}
