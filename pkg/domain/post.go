package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Post は完成した投稿コンテンツです。Body は地の文（ナラティブ）であることを
// 契約とし、箇条書きやセクション見出しの混入は CheckBodyStyle で検出します。
type Post struct {
	Title        string   `json:"title"`
	Body         string   `json:"body"`
	Hashtags     []string `json:"hashtags"`
	CallToAction string   `json:"call_to_action"`
}

var (
	// 行頭の箇条書きマーカー（メニュー形式の構造）を検出する。
	menuMarkerRegex = regexp.MustCompile(`(?m)^\s*(?:[-*•]|\d+[.)])\s+`)

	// "Introduction:" のような明示的なセクションラベルを検出する。
	sectionLabelRegex = regexp.MustCompile(`(?mi)^\s*(?:introduction|intro|conclusion|outro|summary|body|title|導入|本文|結論|まとめ|タイトル)\s*[:：]`)

	// 空行が2つ以上連続する（= 区切りの連打）箇所を検出するのだ。
	separatorRunRegex = regexp.MustCompile(`\n[ \t]*\n[ \t]*\n`)
)

// CheckBodyStyle は本文がスタイル契約を満たすか検証します。
// 違反は ValidationError として返すので、呼び出し側ではそのままリトライ対象になります。
func CheckBodyStyle(body string) error {
	if strings.TrimSpace(body) == "" {
		return &ValidationError{Reason: "本文が空です"}
	}
	if menuMarkerRegex.MatchString(body) {
		return &ValidationError{Reason: "本文にメニュー形式の箇条書きが含まれています"}
	}
	if sectionLabelRegex.MatchString(body) {
		return &ValidationError{Reason: "本文に明示的なセクションラベルが含まれています"}
	}
	if separatorRunRegex.MatchString(body) {
		return &ValidationError{Reason: "本文に区切り（空行）が連続しています"}
	}
	return nil
}

// Validate は投稿全体の必須項目とスタイル契約を検証するのだ。
func (p Post) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return &ValidationError{Reason: "title が空です"}
	}
	return CheckBodyStyle(p.Body)
}

// NormalizeHashtags は各タグの前後空白を除去し、先頭に '#' を補うのだ。
// 空のタグは捨てる。
func NormalizeHashtags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || t == "#" {
			continue
		}
		if !strings.HasPrefix(t, "#") {
			t = "#" + t
		}
		out = append(out, t)
	}
	return out
}

// String は投稿の要約（タイトルと本文長）を返します。ログ用です。
func (p Post) String() string {
	return fmt.Sprintf("%s (本文%d文字, タグ%d件)", p.Title, len([]rune(p.Body)), len(p.Hashtags))
}
