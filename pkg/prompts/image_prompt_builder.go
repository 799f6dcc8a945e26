package prompts

import (
	"fmt"
	"strings"
)

// 画像生成へ渡すユーザープロンプトの上限（ルーン数）。
// シーン記述がこれを超えるのは本文の丸写しなど異常系だけなので、黙って切り詰める。
const maxScenePromptRunes = 1000

// ImagePromptBuilder は、アートディレクション済みのシーン記述から
// 画像生成用の UserPrompt / SystemPrompt を構築します。
type ImagePromptBuilder struct {
	defaultSuffix string // "minimalist, pastel tones" 等の共通サフィックス
}

// NewImagePromptBuilder は新しい ImagePromptBuilder を生成します。
func NewImagePromptBuilder(suffix string) *ImagePromptBuilder {
	return &ImagePromptBuilder{
		defaultSuffix: suffix,
	}
}

// BuildIllustrationPrompt は、挿絵1枚分の UserPrompt と SystemPrompt を生成します。
// scene にはアートディレクション段階で得たシーン記述を渡すのだ。投稿本文そのものは渡さない。
func (pb *ImagePromptBuilder) BuildIllustrationPrompt(scene, niche string) (string, string) {
	// --- 1. System Prompt の構築 ---
	var ss strings.Builder
	const illustratorInstruction = "You are a professional illustrator. Create a single polished illustration for a social media post."
	ss.WriteString(illustratorInstruction)
	ss.WriteString("\n\n")
	ss.WriteString(IllustrationStyle)
	if pb.defaultSuffix != "" {
		ss.WriteString("\n\n")
		ss.WriteString(fmt.Sprintf("### GLOBAL STYLE SUFFIX ###\n%s", pb.defaultSuffix))
	}
	systemPrompt := ss.String()

	// --- 2. User Prompt の構築 ---
	var visualParts []string
	if s := truncateRunes(strings.TrimSpace(scene), maxScenePromptRunes); s != "" {
		visualParts = append(visualParts, s)
	}
	if n := strings.TrimSpace(niche); n != "" {
		visualParts = append(visualParts, fmt.Sprintf("theme: %s", n))
	}
	visualParts = append(visualParts, QualityTags)

	prompt := strings.Join(visualParts, ", ")

	return prompt, systemPrompt
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
