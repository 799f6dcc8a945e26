package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// 入力値の上限。長すぎる入力はプロンプトを壊すので弾くのだ。
const maxBriefFieldLen = 200

// Brief は利用者が対話で与える3つの生成条件をまとめた構造体です。
type Brief struct {
	Niche  string `json:"niche"`  // 発信ジャンル（例: "フィットネス"）
	Goal   string `json:"goal"`   // 投稿の目的（例: "フォロワーを増やす"）
	Format string `json:"format"` // 投稿フォーマット（例: "Instagram post"）
}

// Validate は各フィールドが空でなく、上限長以内であることを確認するのだ。
// 不正な場合は UsageError を返し、セッションは作られない。
func (b Brief) Validate() error {
	fields := map[string]string{
		"niche":  b.Niche,
		"goal":   b.Goal,
		"format": b.Format,
	}
	for name, v := range fields {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return &UsageError{Reason: fmt.Sprintf("%s が空です。値を指定してほしいのだ", name)}
		}
		if utf8.RuneCountInString(trimmed) > maxBriefFieldLen {
			return &UsageError{Reason: fmt.Sprintf("%s が長すぎます（%d文字以内）", name, maxBriefFieldLen)}
		}
	}
	return nil
}

// Normalized は前後の空白を落とした複製を返します。
func (b Brief) Normalized() Brief {
	return Brief{
		Niche:  strings.TrimSpace(b.Niche),
		Goal:   strings.TrimSpace(b.Goal),
		Format: strings.TrimSpace(b.Format),
	}
}

// String はログ用の短い表現を返すのだ。
func (b Brief) String() string {
	return fmt.Sprintf("%s / %s / %s", b.Niche, b.Goal, b.Format)
}
