package reliable

import (
	"time"

	"github.com/shouni/go-post-kit/pkg/domain"
)

// AdaptFunc は、失敗した試行のエラーを踏まえて次のプロンプトを調整するフックです。
// 検証エラーの内容をプロンプトに追記して再挑戦する、といった使い方をします。
type AdaptFunc func(prompt string, lastErr error) string

// Policy はリトライとフォールバックの振る舞いを定義します。
// Models は優先順です。先頭のモデルで MaxAttemptsPerModel 回失敗したら次へ移るのだ。
type Policy struct {
	Models              []string
	MaxAttemptsPerModel int
	InitialBackoff      time.Duration
	MaxBackoff          time.Duration
	Randomization       float64 // バックオフに加えるジッターの割合（0〜1）

	// Validate は応答テキストの契約検証です。nil なら空チェックのみ行います。
	Validate func(text string) error

	// Adapt は試行間のプロンプト調整です。nil なら調整しません。
	Adapt AdaptFunc
}

// normalized はゼロ値を既定値で埋めた複製を返すのだ。
func (p Policy) normalized() Policy {
	if p.MaxAttemptsPerModel <= 0 {
		p.MaxAttemptsPerModel = 1
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = 2 * time.Second
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 30 * time.Second
	}
	if p.Randomization < 0 {
		p.Randomization = 0
	}
	return p
}

// check は実行前の整合性確認です。モデル未指定は設定ミスとして扱います。
func (p Policy) check() error {
	if len(p.Models) == 0 {
		return &domain.ConfigurationError{Reason: "候補モデルが1つも指定されていません"}
	}
	return nil
}
