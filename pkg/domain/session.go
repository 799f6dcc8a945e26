package domain

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Stage はパイプラインの進行状態を表します。遷移は一直線で、
// 任意の非終端状態から Aborted へ落ちる以外の分岐はありません。
type Stage int

const (
	StageAwaitingInputs Stage = iota
	StageIdeasReady
	StagePostReady
	StageCompleted
	StageAborted
)

// String は状態名を返すのだ。
func (s Stage) String() string {
	switch s {
	case StageAwaitingInputs:
		return "awaiting_inputs"
	case StageIdeasReady:
		return "ideas_ready"
	case StagePostReady:
		return "post_ready"
	case StageCompleted:
		return "completed"
	case StageAborted:
		return "aborted"
	}
	return "unknown"
}

// Terminal は終端状態（これ以上遷移しない）かどうかを返します。
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageAborted
}

// Session は1つの対話に対応する生成セッションです。
// フィールドの変更はオーケストレーターだけが行い、各セッションの
// ステージ実行は直列化されるので、ここにロックは持ちません。
type Session struct {
	ID            string
	Brief         Brief
	Reference     string // 参考記事の抽出テキスト（任意）
	Ideas         Ideas  // 生成後は必ず IdeaCount 件
	SelectedIndex int    // 未選択は -1
	Post          *Post
	Illustration  *Illustration
	Stage         Stage
	AbortReason   error
	CreatedAt     time.Time
}

// NewSession は ID を採番した初期状態のセッションを返すのだ。
func NewSession(brief Brief, reference string) *Session {
	return &Session{
		ID:            newSessionID(),
		Brief:         brief.Normalized(),
		Reference:     reference,
		SelectedIndex: -1,
		Stage:         StageAwaitingInputs,
		CreatedAt:     time.Now(),
	}
}

// SelectedIdea は選択済みのアイデアを返します。未選択なら nil です。
func (s *Session) SelectedIdea() *Idea {
	if s.SelectedIndex < 0 || s.SelectedIndex >= len(s.Ideas) {
		return nil
	}
	idea := s.Ideas[s.SelectedIndex]
	return &idea
}

// newSessionID は衝突の心配がない程度にランダムな ID を生成するのだ。
func newSessionID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// 乱数源が死んでいる環境はまず無いが、念のため時刻で代用する
		return hex.EncodeToString([]byte(time.Now().Format("20060102150405.000")))
	}
	return hex.EncodeToString(buf)
}
