package prompts

import (
	_ "embed"
)

// 各テンプレートに対応するモード名なのだ。
const (
	ModeIdeas      = "ideas"
	ModePost       = "post"
	ModeGrammar    = "grammar"
	ModeImageBrief = "image_brief"
	ModeBriefCheck = "brief_check"
)

// TemplateData はテキスト系プロンプトのテンプレートに渡すデータ構造です。
// モードによって使うフィールドは異なり、不要なものは空のままで構いません。
type TemplateData struct {
	Niche       string
	Goal        string
	Format      string
	Reference   string // 参考記事から抽出したテキスト（任意）
	Title       string
	IdeaTitle   string
	IdeaSummary string
	IdeaAngle   string
	Body        string
}

var (
	//go:embed ideas.md
	IdeasPrompt string
	//go:embed post.md
	PostPrompt string
	//go:embed grammar.md
	GrammarPrompt string
	//go:embed image_brief.md
	ImageBriefPrompt string
	//go:embed brief_check.md
	BriefCheckPrompt string
)

// allTemplates はモードとテンプレート文字列を紐づけるマップなのだ。
var allTemplates = map[string]string{
	ModeIdeas:      IdeasPrompt,
	ModePost:       PostPrompt,
	ModeGrammar:    GrammarPrompt,
	ModeImageBrief: ImageBriefPrompt,
	ModeBriefCheck: BriefCheckPrompt,
}
