package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestBrief_Validate(t *testing.T) {
	t.Run("3項目が揃っていれば通るのだ", func(t *testing.T) {
		b := Brief{Niche: "フィットネス", Goal: "フォロワーを増やす", Format: "Instagram post"}
		if err := b.Validate(); err != nil {
			t.Fatalf("正常なBriefが弾かれたのだ: %v", err)
		}
	})

	t.Run("空のフィールドはUsageErrorなのだ", func(t *testing.T) {
		briefs := []Brief{
			{Niche: "", Goal: "g", Format: "f"},
			{Niche: "n", Goal: "  ", Format: "f"},
			{Niche: "n", Goal: "g", Format: ""},
		}
		for _, b := range briefs {
			var ue *UsageError
			if !errors.As(b.Validate(), &ue) {
				t.Errorf("空フィールドがUsageErrorにならなかったのだ: %+v", b)
			}
		}
	})

	t.Run("上限長を超えるとUsageErrorなのだ", func(t *testing.T) {
		b := Brief{Niche: strings.Repeat("あ", maxBriefFieldLen+1), Goal: "g", Format: "f"}
		var ue *UsageError
		if !errors.As(b.Validate(), &ue) {
			t.Error("長すぎる入力が弾かれなかったのだ")
		}
	})
}

func TestIdeas_AnglesDistinct(t *testing.T) {
	t.Run("切り口が全て異なれば真なのだ", func(t *testing.T) {
		ideas := Ideas{
			{Title: "a", Summary: "s", Angle: "初心者の失敗談"},
			{Title: "b", Summary: "s", Angle: "科学的エビデンス"},
		}
		if !ideas.AnglesDistinct() {
			t.Error("異なる切り口がユニークと判定されなかったのだ")
		}
	})

	t.Run("大文字小文字と前後空白の違いは同一視するのだ", func(t *testing.T) {
		ideas := Ideas{
			{Angle: "Personal Story"},
			{Angle: " personal story "},
		}
		if ideas.AnglesDistinct() {
			t.Error("実質同じ切り口が重複として検出されなかったのだ")
		}
	})
}

func TestSession_SelectedIdea(t *testing.T) {
	t.Run("未選択ならnilなのだ", func(t *testing.T) {
		s := NewSession(Brief{Niche: "n", Goal: "g", Format: "f"}, "")
		if s.SelectedIdea() != nil {
			t.Error("未選択なのにアイデアが返ってきたのだ")
		}
	})

	t.Run("選択済みなら該当アイデアを返すのだ", func(t *testing.T) {
		s := NewSession(Brief{Niche: "n", Goal: "g", Format: "f"}, "")
		s.Ideas = Ideas{{Title: "one"}, {Title: "two"}}
		s.SelectedIndex = 1
		got := s.SelectedIdea()
		if got == nil || got.Title != "two" {
			t.Errorf("選択アイデアが違うのだ: %+v", got)
		}
	})
}

func TestIsRetriable(t *testing.T) {
	t.Run("設定エラーと利用エラーはリトライ不可なのだ", func(t *testing.T) {
		if IsRetriable(&ConfigurationError{Reason: "APIキー不正"}) {
			t.Error("ConfigurationErrorがリトライ可と判定されたのだ")
		}
		if IsRetriable(&UsageError{Reason: "範囲外"}) {
			t.Error("UsageErrorがリトライ可と判定されたのだ")
		}
	})

	t.Run("検証エラーはリトライ可なのだ", func(t *testing.T) {
		if !IsRetriable(&ValidationError{Reason: "件数不足"}) {
			t.Error("ValidationErrorがリトライ不可と判定されたのだ")
		}
	})

	t.Run("ラップされた設定エラーも見抜くのだ", func(t *testing.T) {
		wrapped := &GenerationError{StageName: "ideas", Err: &ConfigurationError{Reason: "401"}}
		if IsRetriable(wrapped) {
			t.Error("ラップ越しのConfigurationErrorを見逃したのだ")
		}
	})
}
