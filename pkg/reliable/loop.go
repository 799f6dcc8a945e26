package reliable

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/shouni/go-post-kit/pkg/domain"
)

// attemptFunc は1回分の試行です。モデル名と通し番号を受け取り、失敗ならエラーを返します。
type attemptFunc func(ctx context.Context, model string, total int) error

// runAttempts はリトライとフォールバックの共通ループです。
// 同一モデル内は指数バックオフ（ジッター付き）で粘り、使い切ったら次のモデルへ移ります。
// 致命的エラー（設定起因）は検出した時点で即座に打ち切るのだ。
func runAttempts(ctx context.Context, p Policy, limiter *rate.Limiter, logger *slog.Logger, observer Observer, do attemptFunc) error {
	if err := p.check(); err != nil {
		return err
	}
	p = p.normalized()

	total := 0
	var lastErr error

	for _, model := range p.Models {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = p.InitialBackoff
		bo.MaxInterval = p.MaxBackoff
		bo.RandomizationFactor = p.Randomization
		bo.MaxElapsedTime = 0 // 試行回数で打ち切るので経過時間の上限は設けない
		bo.Reset()

		for attempt := 1; attempt <= p.MaxAttemptsPerModel; attempt++ {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return err
				}
			}

			total++
			start := time.Now()
			err := do(ctx, model, total)
			latency := time.Since(start)

			if observer != nil {
				observer(Attempt{Model: model, Number: attempt, Total: total, Latency: latency, Err: err})
			}

			if err == nil {
				return nil
			}
			lastErr = err

			var ce *domain.ConfigurationError
			switch {
			case errors.As(err, &ce):
				// 認証やリクエスト構造の誤りはリトライしても無駄なのだ
				logger.Error("致命的エラーのため中断します", "model", model, "error", err)
				return err
			case isFatal(err):
				cfgErr := &domain.ConfigurationError{Reason: "APIが致命的エラーを返しました", Err: err}
				logger.Error("致命的エラーのため中断します", "model", model, "error", err)
				return cfgErr
			}

			logger.Warn("試行に失敗しました",
				"model", model,
				"attempt", attempt,
				"total", total,
				"rate_limited", isRateLimited(err),
				"latency", latency,
				"error", err,
			)

			if ctx.Err() != nil {
				return ctx.Err()
			}

			// 同一モデル内の次の試行前だけ待つ。モデル切替は即座に行う。
			if attempt < p.MaxAttemptsPerModel {
				if err := sleepContext(ctx, bo.NextBackOff()); err != nil {
					return err
				}
			}
		}

		logger.Info("フォールバックします", "exhausted_model", model)
	}

	return &domain.ExhaustedRetriesError{Attempts: total, Last: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
