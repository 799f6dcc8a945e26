package reliable

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shouni/go-gemini-client/gemini"
	"golang.org/x/time/rate"

	"github.com/shouni/go-post-kit/pkg/domain"
)

// TextModel はテキスト生成クライアントの契約です。gemini.GenerativeModel が満たします。
type TextModel interface {
	GenerateContent(ctx context.Context, prompt string, model string) (*gemini.Response, error)
}

// TextResult は成功した呼び出しの結果です。
type TextResult struct {
	Text      string
	ModelUsed string // フォールバック後に実際へ使われたモデル
}

// Caller はテキスト生成呼び出しにリトライ・フォールバック・検証を被せるラッパーです。
type Caller struct {
	model    TextModel
	limiter  *rate.Limiter // nil ならレート制限なし
	logger   *slog.Logger
	observer Observer
}

// NewCaller は Caller を生成するのだ。limiter と observer は nil でも構わない。
func NewCaller(model TextModel, limiter *rate.Limiter, logger *slog.Logger, observer Observer) *Caller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Caller{model: model, limiter: limiter, logger: logger, observer: observer}
}

// Call はポリシーに従ってテキスト生成を実行します。
// 応答は Validate に通り、失敗した試行の後は Adapt でプロンプトを調整します。
func (c *Caller) Call(ctx context.Context, prompt string, p Policy) (*TextResult, error) {
	var result *TextResult
	current := prompt

	err := runAttempts(ctx, p, c.limiter, c.logger, c.observer, func(ctx context.Context, model string, total int) error {
		resp, err := c.model.GenerateContent(ctx, current, model)
		if err != nil {
			return err
		}

		text := resp.Text
		if strings.TrimSpace(text) == "" {
			err := &domain.ValidationError{Reason: "応答が空です"}
			current = c.adapt(p, current, err)
			return err
		}
		if p.Validate != nil {
			if err := p.Validate(text); err != nil {
				current = c.adapt(p, current, err)
				return err
			}
		}

		result = &TextResult{Text: text, ModelUsed: model}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Caller) adapt(p Policy, prompt string, lastErr error) string {
	if p.Adapt == nil {
		return prompt
	}
	return p.Adapt(prompt, lastErr)
}
