package runner

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shouni/go-post-kit/pkg/domain"
)

var jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*\\S)\\s*```")

// extractJSON は、AI応答からJSON本体を取り出します。コードフェンス付き、
// 前後に説明文が混ざったもの、素のJSONの順で救済を試みるのだ。
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	matches := jsonBlockRegex.FindStringSubmatch(raw)
	if len(matches) > 1 {
		return matches[1]
	}

	firstBracket := strings.Index(raw, "{")
	lastBracket := strings.LastIndex(raw, "}")
	if firstBracket != -1 && lastBracket > firstBracket {
		return raw[firstBracket : lastBracket+1]
	}

	return raw
}

// decodeEnvelope は応答JSONを指定の構造へ復号します。失敗は ValidationError
// として返すので、呼び出し側ではそのままリトライ対象になります。
func decodeEnvelope(raw string, v any) error {
	if err := json.Unmarshal([]byte(extractJSON(raw)), v); err != nil {
		return &domain.ValidationError{
			Reason: fmt.Sprintf("応答JSONの解析に失敗しました (応答抜粋: %q): %v", truncateString(raw, 200), err),
		}
	}
	return nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// AI応答の外側の封筒。プロンプト側の OUTPUT FORMAT と対になっている。
type ideasEnvelope struct {
	Ideas []domain.Idea `json:"ideas"`
}

type postEnvelope struct {
	Post domain.Post `json:"post"`
}

type correctedEnvelope struct {
	Corrected string `json:"corrected"`
}

type imagePromptEnvelope struct {
	ImagePrompt struct {
		FullPrompt string `json:"full_prompt"`
	} `json:"image_prompt"`
}

type verdictEnvelope struct {
	Relevant bool   `json:"relevant"`
	Reason   string `json:"reason"`
}
