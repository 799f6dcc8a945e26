package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	imgdom "github.com/shouni/gemini-image-kit/ports"
	"github.com/shouni/go-gemini-client/gemini"

	"github.com/shouni/go-post-kit/pkg/domain"
	"github.com/shouni/go-post-kit/pkg/prompts"
	"github.com/shouni/go-post-kit/pkg/reliable"
)

// fakeTextModel は台本どおりの応答を順番に返すスタブなのだ。
type fakeTextModel struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (f *fakeTextModel) GenerateContent(_ context.Context, prompt, _ string) (*gemini.Response, error) {
	idx := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx >= len(f.responses) {
		return nil, fmt.Errorf("台本外の呼び出し %d", idx)
	}
	return &gemini.Response{Text: f.responses[idx]}, nil
}

type fakeImageGen struct {
	resp  *imgdom.ImageResponse
	err   error
	calls int
}

func (f *fakeImageGen) GenerateMangaPanel(_ context.Context, _ imgdom.ImagePanelRequest) (*imgdom.ImageResponse, error) {
	f.calls++
	return f.resp, f.err
}

func testPolicy(attempts int) reliable.Policy {
	return reliable.Policy{
		Models:              []string{"test-model"},
		MaxAttemptsPerModel: attempts,
		InitialBackoff:      time.Millisecond,
		MaxBackoff:          time.Millisecond,
	}
}

func mustPromptBuilder(t *testing.T) *prompts.TextPromptBuilder {
	t.Helper()
	pb, err := prompts.NewTextPromptBuilder()
	if err != nil {
		t.Fatalf("プロンプトビルダー初期化に失敗したのだ: %v", err)
	}
	return pb
}

func validIdeasJSON() string {
	return `{"ideas": [
		{"title": "t1", "summary": "s1", "angle": "personal story"},
		{"title": "t2", "summary": "s2", "angle": "myth busting"},
		{"title": "t3", "summary": "s3", "angle": "how-to"},
		{"title": "t4", "summary": "s4", "angle": "contrarian"},
		{"title": "t5", "summary": "s5", "angle": "data-driven"}
	]}`
}

var testBrief = domain.Brief{Niche: "フィットネス", Goal: "フォロワー増", Format: "Instagram post"}

func TestIdeaRunner_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("コードフェンス付きでも5件のアイデアをパースするのだ", func(t *testing.T) {
		fake := &fakeTextModel{responses: []string{"```json\n" + validIdeasJSON() + "\n```"}}
		ir := NewIdeaRunner(mustPromptBuilder(t), reliable.NewCaller(fake, nil, nil, nil), testPolicy(1))

		ideas, model, err := ir.Run(ctx, testBrief, "")
		if err != nil {
			t.Fatalf("失敗したのだ: %v", err)
		}
		if len(ideas) != domain.IdeaCount {
			t.Errorf("件数が%dだったのだ", len(ideas))
		}
		if model != "test-model" {
			t.Errorf("使用モデルが違うのだ: %s", model)
		}
	})

	t.Run("件数不足はリトライして回復するのだ", func(t *testing.T) {
		short := `{"ideas": [{"title": "t", "summary": "s", "angle": "a"}]}`
		fake := &fakeTextModel{responses: []string{short, validIdeasJSON()}}
		ir := NewIdeaRunner(mustPromptBuilder(t), reliable.NewCaller(fake, nil, nil, nil), testPolicy(2))

		ideas, _, err := ir.Run(ctx, testBrief, "")
		if err != nil {
			t.Fatalf("回復できなかったのだ: %v", err)
		}
		if len(ideas) != domain.IdeaCount {
			t.Errorf("件数が%dだったのだ", len(ideas))
		}
		if fake.calls != 2 {
			t.Errorf("呼び出し回数が%dだったのだ", fake.calls)
		}
		// 2回目のプロンプトには矯正指示が入っているはずなのだ
		if !strings.Contains(fake.prompts[1], "CORRECTION") {
			t.Error("矯正指示が追記されていないのだ")
		}
	})

	t.Run("切り口の重複は契約違反として弾くのだ", func(t *testing.T) {
		dup := strings.Replace(validIdeasJSON(), "myth busting", "personal story", 1)
		fake := &fakeTextModel{responses: []string{dup}}
		ir := NewIdeaRunner(mustPromptBuilder(t), reliable.NewCaller(fake, nil, nil, nil), testPolicy(1))

		_, _, err := ir.Run(ctx, testBrief, "")
		var ge *domain.GenerationError
		if !errors.As(err, &ge) || ge.StageName != "ideas" {
			t.Fatalf("GenerationError(ideas)ではなかったのだ: %v", err)
		}
		var ex *domain.ExhaustedRetriesError
		if !errors.As(err, &ex) {
			t.Errorf("リトライ枯渇が記録されていないのだ: %v", err)
		}
	})
}

func TestDraftRunner_Run(t *testing.T) {
	ctx := context.Background()

	postJSON := `{"post": {
		"title": "朝ランのすすめ",
		"body": "朝のランニングを始めて3ヶ月。\n\n続けるコツは完璧を目指さないことでした。",
		"hashtags": ["morningrun", "#fitness"],
		"call_to_action": "あなたの朝の習慣を教えてください"
	}}`

	t.Run("本文生成と校正が通るのだ", func(t *testing.T) {
		corrected := `{"corrected": "朝のランニングを始めて3ヶ月が経ちました。\n\n続けるコツは完璧を目指さないことでした。"}`
		fake := &fakeTextModel{responses: []string{postJSON, corrected}}
		dr := NewDraftRunner(mustPromptBuilder(t), reliable.NewCaller(fake, nil, nil, nil), testPolicy(1), testPolicy(1))

		post, _, err := dr.Run(ctx, testBrief, domain.Idea{Title: "t", Summary: "s", Angle: "a"}, "")
		if err != nil {
			t.Fatalf("失敗したのだ: %v", err)
		}
		if !strings.Contains(post.Body, "経ちました") {
			t.Error("校正結果が反映されていないのだ")
		}
		// ハッシュタグは正規化されているはずなのだ
		if post.Hashtags[0] != "#morningrun" {
			t.Errorf("ハッシュタグが正規化されていないのだ: %v", post.Hashtags)
		}
	})

	t.Run("校正の失敗は原文で続行するのだ", func(t *testing.T) {
		fake := &fakeTextModel{
			responses: []string{postJSON, ""},
			errs:      []error{nil, errors.New("503 unavailable")},
		}
		dr := NewDraftRunner(mustPromptBuilder(t), reliable.NewCaller(fake, nil, nil, nil), testPolicy(1), testPolicy(1))

		post, _, err := dr.Run(ctx, testBrief, domain.Idea{Title: "t", Summary: "s", Angle: "a"}, "")
		if err != nil {
			t.Fatalf("校正失敗で全体が失敗したのだ: %v", err)
		}
		if !strings.Contains(post.Body, "始めて3ヶ月。") {
			t.Error("原文が保持されていないのだ")
		}
	})

	t.Run("校正結果がスタイル契約を壊したら原文に戻すのだ", func(t *testing.T) {
		broken := `{"corrected": "ポイントはこちら。\n- 完璧を目指さない\n- 毎日続ける"}`
		fake := &fakeTextModel{responses: []string{postJSON, broken}}
		dr := NewDraftRunner(mustPromptBuilder(t), reliable.NewCaller(fake, nil, nil, nil), testPolicy(1), testPolicy(1))

		post, _, err := dr.Run(ctx, testBrief, domain.Idea{Title: "t", Summary: "s", Angle: "a"}, "")
		if err != nil {
			t.Fatalf("失敗したのだ: %v", err)
		}
		if strings.Contains(post.Body, "- ") {
			t.Error("箇条書き混入の校正結果が採用されてしまったのだ")
		}
	})

	t.Run("箇条書き本文はリトライ対象なのだ", func(t *testing.T) {
		listy := `{"post": {"title": "t", "body": "- 箇条書きなのだ", "hashtags": [], "call_to_action": ""}}`
		fake := &fakeTextModel{responses: []string{listy}}
		dr := NewDraftRunner(mustPromptBuilder(t), reliable.NewCaller(fake, nil, nil, nil), testPolicy(1), testPolicy(1))

		_, _, err := dr.Run(ctx, testBrief, domain.Idea{Title: "t", Summary: "s", Angle: "a"}, "")
		var ge *domain.GenerationError
		if !errors.As(err, &ge) || ge.StageName != "post" {
			t.Fatalf("GenerationError(post)ではなかったのだ: %v", err)
		}
	})
}

func TestIllustrationRunner_Run(t *testing.T) {
	ctx := context.Background()
	sceneJSON := `{"image_prompt": {"full_prompt": "A runner at dawn on an empty bridge"}}`
	post := &domain.Post{Title: "朝ランのすすめ", Body: "本文です。"}
	idea := domain.Idea{Title: "t", Summary: "s", Angle: "a"}

	newRunner := func(t *testing.T, text *fakeTextModel, img *fakeImageGen) *IllustrationRunner {
		factory := func(string) reliable.ImageModel { return img }
		return NewIllustrationRunner(
			mustPromptBuilder(t),
			prompts.NewImagePromptBuilder(""),
			reliable.NewCaller(text, nil, nil, nil),
			reliable.NewImageCaller(factory, nil, nil, nil),
			testPolicy(1),
			testPolicy(1),
		)
	}

	t.Run("シーン記述から挿絵を生成するのだ", func(t *testing.T) {
		text := &fakeTextModel{responses: []string{sceneJSON}}
		img := &fakeImageGen{resp: &imgdom.ImageResponse{Data: []byte{1}, MimeType: "image/png"}}
		illust, err := newRunner(t, text, img).Run(ctx, testBrief, idea, post)
		if err != nil {
			t.Fatalf("失敗したのだ: %v", err)
		}
		if illust == nil || illust.MimeType != "image/png" {
			t.Fatalf("挿絵が生成されていないのだ: %+v", illust)
		}
		if !strings.Contains(illust.PromptUsed, "A runner at dawn") {
			t.Error("シーン記述がプロンプトに反映されていないのだ")
		}
	})

	t.Run("画像生成の枯渇は挿絵なしの正常系になるのだ", func(t *testing.T) {
		text := &fakeTextModel{responses: []string{sceneJSON}}
		img := &fakeImageGen{err: errors.New("503 unavailable")}
		illust, err := newRunner(t, text, img).Run(ctx, testBrief, idea, post)
		if err != nil {
			t.Fatalf("格下げされずエラーになったのだ: %v", err)
		}
		if illust != nil {
			t.Error("失敗したのに挿絵が返ってきたのだ")
		}
	})

	t.Run("アートディレクションの枯渇も挿絵なしで続行するのだ", func(t *testing.T) {
		text := &fakeTextModel{errs: []error{errors.New("503 unavailable")}}
		img := &fakeImageGen{}
		illust, err := newRunner(t, text, img).Run(ctx, testBrief, idea, post)
		if err != nil || illust != nil {
			t.Errorf("挿絵なしの正常系にならなかったのだ: %v, %+v", err, illust)
		}
		if img.calls != 0 {
			t.Error("シーン記述なしで作画が呼ばれたのだ")
		}
	})

	t.Run("設定エラーは格下げせず伝播するのだ", func(t *testing.T) {
		text := &fakeTextModel{errs: []error{errors.New("401 invalid api key")}}
		img := &fakeImageGen{}
		_, err := newRunner(t, text, img).Run(ctx, testBrief, idea, post)
		var ce *domain.ConfigurationError
		if !errors.As(err, &ce) {
			t.Errorf("ConfigurationErrorが伝播しなかったのだ: %v", err)
		}
	})
}

func TestBriefCheckRunner_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("不適切なブリーフは理由つきで弾かれるのだ", func(t *testing.T) {
		fake := &fakeTextModel{responses: []string{`{"relevant": false, "reason": "意味をなさない入力です"}`}}
		br := NewBriefCheckRunner(mustPromptBuilder(t), reliable.NewCaller(fake, nil, nil, nil), testPolicy(1))

		verdict := br.Run(ctx, testBrief)
		if verdict.Relevant {
			t.Error("弾かれるべきブリーフが通ったのだ")
		}
		if verdict.Reason == "" {
			t.Error("理由が空なのだ")
		}
	})

	t.Run("審査自体の失敗は通過扱いなのだ", func(t *testing.T) {
		fake := &fakeTextModel{errs: []error{errors.New("503 unavailable")}}
		br := NewBriefCheckRunner(mustPromptBuilder(t), reliable.NewCaller(fake, nil, nil, nil), testPolicy(1))

		if verdict := br.Run(ctx, testBrief); !verdict.Relevant {
			t.Error("審査失敗でブリーフが弾かれてしまったのだ")
		}
	})
}
