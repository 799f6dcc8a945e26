package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-post-kit/pkg/domain"
	"github.com/shouni/go-post-kit/pkg/prompts"
	"github.com/shouni/go-post-kit/pkg/reliable"
)

// IdeaRunner は、ブリーフからちょうど5件のアイデアを生成します。
type IdeaRunner struct {
	promptBuilder prompts.PromptBuilder
	caller        *reliable.Caller
	policy        reliable.Policy
}

// NewIdeaRunner は依存関係を注入して初期化します。
func NewIdeaRunner(pb prompts.PromptBuilder, caller *reliable.Caller, policy reliable.Policy) *IdeaRunner {
	return &IdeaRunner{
		promptBuilder: pb,
		caller:        caller,
		policy:        policy,
	}
}

// Run はアイデア生成を実行するのだ。契約（5件・全項目必須・切り口ユニーク）を
// 満たさない応答はリトライ対象になり、使い切れば GenerationError で返す。
func (ir *IdeaRunner) Run(ctx context.Context, brief domain.Brief, reference string) (domain.Ideas, string, error) {
	slog.Info("IdeaRunner: アイデアを生成します", "brief", brief.String())

	prompt, err := ir.promptBuilder.Build(prompts.ModeIdeas, prompts.TemplateData{
		Niche:     brief.Niche,
		Goal:      brief.Goal,
		Format:    brief.Format,
		Reference: reference,
	})
	if err != nil {
		return nil, "", &domain.GenerationError{StageName: "ideas", Err: fmt.Errorf("プロンプト生成に失敗: %w", err)}
	}

	policy := ir.policy
	policy.Validate = validateIdeasText
	policy.Adapt = appendCorrective

	res, err := ir.caller.Call(ctx, prompt, policy)
	if err != nil {
		return nil, "", &domain.GenerationError{StageName: "ideas", Err: err}
	}

	ideas, err := parseIdeas(res.Text)
	if err != nil {
		// Validate を通っているのでここには来ないはずだが、契約は二重に守る
		return nil, "", &domain.GenerationError{StageName: "ideas", Err: err}
	}

	slog.Info("IdeaRunner: アイデアを生成しました", "count", len(ideas), "model", res.ModelUsed)
	return ideas, res.ModelUsed, nil
}

func parseIdeas(raw string) (domain.Ideas, error) {
	var env ideasEnvelope
	if err := decodeEnvelope(raw, &env); err != nil {
		return nil, err
	}

	ideas := domain.Ideas(env.Ideas)
	if len(ideas) != domain.IdeaCount {
		return nil, &domain.ValidationError{Reason: fmt.Sprintf("アイデアは%d件必要ですが%d件でした", domain.IdeaCount, len(ideas))}
	}
	for i, idea := range ideas {
		if !idea.IsComplete() {
			return nil, &domain.ValidationError{Reason: fmt.Sprintf("アイデア%dに空のフィールドがあります", i+1)}
		}
	}
	if !ideas.AnglesDistinct() {
		return nil, &domain.ValidationError{Reason: "切り口が重複しているアイデアがあります"}
	}
	return ideas, nil
}

func validateIdeasText(text string) error {
	_, err := parseIdeas(text)
	return err
}

// appendCorrective は、直前の検証エラーを矯正指示としてプロンプト末尾に追記するのだ。
func appendCorrective(prompt string, lastErr error) string {
	return fmt.Sprintf("%s\n\n### CORRECTION ###\nYour previous response was rejected: %v\nFix this and follow the output format exactly.", prompt, lastErr)
}
