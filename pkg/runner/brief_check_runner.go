package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-post-kit/pkg/domain"
	"github.com/shouni/go-post-kit/pkg/prompts"
	"github.com/shouni/go-post-kit/pkg/reliable"
)

// Verdict はブリーフ審査の結果です。
type Verdict struct {
	Relevant bool
	Reason   string
}

// BriefCheckRunner は、生成を始める前にブリーフの妥当性をAIに審査させます。
// ベストエフォートの門番で、審査自体が失敗した場合は通して先へ進めるのだ。
type BriefCheckRunner struct {
	promptBuilder prompts.PromptBuilder
	caller        *reliable.Caller
	policy        reliable.Policy
}

// NewBriefCheckRunner は依存関係を注入して初期化します。
func NewBriefCheckRunner(pb prompts.PromptBuilder, caller *reliable.Caller, policy reliable.Policy) *BriefCheckRunner {
	return &BriefCheckRunner{
		promptBuilder: pb,
		caller:        caller,
		policy:        policy,
	}
}

// Run はブリーフ審査を実行します。審査不能なら relevant 扱いで返すのだ。
func (br *BriefCheckRunner) Run(ctx context.Context, brief domain.Brief) Verdict {
	prompt, err := br.promptBuilder.Build(prompts.ModeBriefCheck, prompts.TemplateData{
		Niche:  brief.Niche,
		Goal:   brief.Goal,
		Format: brief.Format,
	})
	if err != nil {
		slog.Warn("審査プロンプトの生成に失敗したため審査をスキップします", "error", err)
		return Verdict{Relevant: true}
	}

	policy := br.policy
	policy.Validate = validateVerdictText

	res, err := br.caller.Call(ctx, prompt, policy)
	if err != nil {
		slog.Warn("ブリーフ審査に失敗したため審査をスキップします", "error", err)
		return Verdict{Relevant: true}
	}

	verdict, err := parseVerdict(res.Text)
	if err != nil {
		slog.Warn("審査応答の解析に失敗したため審査をスキップします", "error", err)
		return Verdict{Relevant: true}
	}

	if !verdict.Relevant {
		slog.Info("ブリーフが審査で弾かれました", "reason", verdict.Reason)
	}
	return verdict
}

func parseVerdict(raw string) (Verdict, error) {
	var env verdictEnvelope
	if err := decodeEnvelope(raw, &env); err != nil {
		return Verdict{}, err
	}
	return Verdict{Relevant: env.Relevant, Reason: env.Reason}, nil
}

func validateVerdictText(text string) error {
	if _, err := parseVerdict(text); err != nil {
		return fmt.Errorf("審査応答が不正です: %w", err)
	}
	return nil
}
