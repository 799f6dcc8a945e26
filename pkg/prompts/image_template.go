package prompts

const (
	// QualityTags クオリティ向上のための共通タグ
	QualityTags = "clean composition, soft natural lighting, high resolution, sharp focus"

	// IllustrationNegativePrompt Negative Prompt の定義
	IllustrationNegativePrompt = "text, alphabet, letters, words, logo, watermark, username, speech bubble, low quality, distorted, bad anatomy"

	// IllustrationStyle は投稿用挿絵の共通画風を定義します。
	IllustrationStyle = `### GLOBAL VISUAL STYLE ###
- RENDERING: Modern flat illustration, vibrant but harmonious palette, suitable as a social media post visual.
- COMPOSITION: One clear subject, uncluttered background, room for the eye to rest.`
)
