package domain

import "strings"

// IdeaCount は1回の生成で提示するアイデアの数です。5件未満の提示は契約違反として扱います。
const IdeaCount = 5

// Idea は投稿のネタ候補1件を表します。
type Idea struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Angle   string `json:"angle"` // 他のアイデアと差別化する切り口
}

// IsComplete は必須フィールドがすべて埋まっているかを返すのだ。
func (i Idea) IsComplete() bool {
	return strings.TrimSpace(i.Title) != "" &&
		strings.TrimSpace(i.Summary) != "" &&
		strings.TrimSpace(i.Angle) != ""
}

// Ideas はアイデアのリストに対する検証ヘルパーを提供します。
type Ideas []Idea

// AnglesDistinct は、全アイデアの切り口が互いに異なるかを判定します。
// 比較は前後空白を無視した小文字化で行うのだ。
func (is Ideas) AnglesDistinct() bool {
	seen := make(map[string]struct{}, len(is))
	for _, idea := range is {
		key := strings.ToLower(strings.TrimSpace(idea.Angle))
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
	}
	return true
}
