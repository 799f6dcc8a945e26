package domain

import (
	"errors"
	"fmt"
)

// ConfigurationError は、APIキー不正やリクエスト構造の誤りなど、
// リトライしても回復しない致命的なエラーなのだ。検出した時点でセッションを中断する。
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("設定エラー: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("設定エラー: %s", e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ExhaustedRetriesError は、候補モデルすべての試行回数を使い切ったことを表します。
// Last には最後の試行の診断情報をそのまま保持します。
type ExhaustedRetriesError struct {
	Attempts int   // 実行した総試行回数
	Last     error // 最後の試行が返したエラー
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("全候補モデルの試行（%d回）を使い切ったのだ: %v", e.Attempts, e.Last)
}

func (e *ExhaustedRetriesError) Unwrap() error { return e.Last }

// ValidationError は、AI応答の形状が期待する契約（スキーマや件数）と
// 一致しなかったことを表します。呼び出し側ではリトライ対象として扱います。
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("応答の検証に失敗したのだ: %s", e.Reason)
}

// GenerationError は、ステージ単位の失敗を表すラッパーです。
// 必須ステージ（アイデア・本文）のものはセッションの中断理由になります。
type GenerationError struct {
	StageName string
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("ステージ '%s' の生成に失敗しました: %v", e.StageName, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// UsageError は利用者の入力誤り（範囲外のインデックス等）を表します。
// セッション状態は一切変更せず、同期的に呼び出し元へ返します。
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string { return e.Reason }

// IsRetriable は、リトライによって回復する見込みのあるエラーかを判定するのだ。
// 設定エラーと利用エラーはリトライしても無駄なので false を返す。
func IsRetriable(err error) bool {
	var ce *ConfigurationError
	var ue *UsageError
	if errors.As(err, &ce) || errors.As(err, &ue) {
		return false
	}
	return true
}
