package pipeline

import "github.com/shouni/go-post-kit/pkg/domain"

// Outcome は完了したセッションの最終成果物です。
// Illustration は生成に失敗していれば nil のままで、それは正常な完了です。
type Outcome struct {
	SessionID    string
	Brief        domain.Brief
	Idea         domain.Idea
	Post         *domain.Post
	Illustration *domain.Illustration
}

// HasIllustration は挿絵付きで完了したかを返すのだ。
func (o *Outcome) HasIllustration() bool {
	return o.Illustration != nil && len(o.Illustration.Data) > 0
}
