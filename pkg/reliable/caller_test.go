package reliable

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shouni/go-gemini-client/gemini"

	"github.com/shouni/go-post-kit/pkg/domain"
)

// fakeTextModel は呼び出しごとに台本どおりの応答を返すスタブなのだ。
type fakeTextModel struct {
	calls   []string // 呼ばれたモデル名の記録
	prompts []string // 受け取ったプロンプトの記録
	script  []func() (*gemini.Response, error)
}

func (f *fakeTextModel) GenerateContent(_ context.Context, prompt, model string) (*gemini.Response, error) {
	f.calls = append(f.calls, model)
	f.prompts = append(f.prompts, prompt)
	idx := len(f.calls) - 1
	if idx >= len(f.script) {
		return nil, fmt.Errorf("台本外の呼び出し %d", idx)
	}
	return f.script[idx]()
}

func ok(text string) func() (*gemini.Response, error) {
	return func() (*gemini.Response, error) { return &gemini.Response{Text: text}, nil }
}

func fail(err error) func() (*gemini.Response, error) {
	return func() (*gemini.Response, error) { return nil, err }
}

func fastPolicy(models ...string) Policy {
	return Policy{
		Models:              models,
		MaxAttemptsPerModel: 2,
		InitialBackoff:      time.Millisecond,
		MaxBackoff:          2 * time.Millisecond,
	}
}

func TestCaller_Call(t *testing.T) {
	ctx := context.Background()

	t.Run("初回成功ならそのまま返すのだ", func(t *testing.T) {
		fake := &fakeTextModel{script: []func() (*gemini.Response, error){ok("hello")}}
		caller := NewCaller(fake, nil, nil, nil)

		res, err := caller.Call(ctx, "p", fastPolicy("model-a"))
		if err != nil {
			t.Fatalf("失敗したのだ: %v", err)
		}
		if res.Text != "hello" || res.ModelUsed != "model-a" {
			t.Errorf("結果が違うのだ: %+v", res)
		}
		if len(fake.calls) != 1 {
			t.Errorf("呼び出し回数が%dだったのだ", len(fake.calls))
		}
	})

	t.Run("一時エラーはリトライして回復するのだ", func(t *testing.T) {
		fake := &fakeTextModel{script: []func() (*gemini.Response, error){
			fail(errors.New("503 unavailable")),
			ok("recovered"),
		}}
		caller := NewCaller(fake, nil, nil, nil)

		res, err := caller.Call(ctx, "p", fastPolicy("model-a"))
		if err != nil {
			t.Fatalf("回復できなかったのだ: %v", err)
		}
		if res.Text != "recovered" {
			t.Errorf("結果が違うのだ: %+v", res)
		}
	})

	t.Run("検証失敗後はAdaptでプロンプトが調整されるのだ", func(t *testing.T) {
		fake := &fakeTextModel{script: []func() (*gemini.Response, error){
			ok("bad output"),
			ok("good output"),
		}}
		caller := NewCaller(fake, nil, nil, nil)

		p := fastPolicy("model-a")
		p.Validate = func(text string) error {
			if text == "bad output" {
				return &domain.ValidationError{Reason: "形式不正"}
			}
			return nil
		}
		p.Adapt = func(prompt string, lastErr error) string {
			return prompt + " [前回の失敗: " + lastErr.Error() + "]"
		}

		res, err := caller.Call(ctx, "base", p)
		if err != nil {
			t.Fatalf("失敗したのだ: %v", err)
		}
		if res.Text != "good output" {
			t.Errorf("結果が違うのだ: %+v", res)
		}
		if fake.prompts[0] != "base" {
			t.Errorf("初回プロンプトが違うのだ: %q", fake.prompts[0])
		}
		if fake.prompts[1] == "base" {
			t.Error("2回目のプロンプトが調整されていないのだ")
		}
	})

	t.Run("1モデル1回のポリシーでは呼び出しは1回だけで最初のエラーがそのまま見えるのだ", func(t *testing.T) {
		firstErr := errors.New("503 service unavailable")
		fake := &fakeTextModel{script: []func() (*gemini.Response, error){fail(firstErr)}}
		caller := NewCaller(fake, nil, nil, nil)

		p := Policy{Models: []string{"model-a"}, MaxAttemptsPerModel: 1}
		_, err := caller.Call(ctx, "p", p)

		if len(fake.calls) != 1 {
			t.Fatalf("呼び出しが%d回あったのだ", len(fake.calls))
		}
		var ex *domain.ExhaustedRetriesError
		if !errors.As(err, &ex) {
			t.Fatalf("ExhaustedRetriesErrorではなかったのだ: %v", err)
		}
		if ex.Attempts != 1 || !errors.Is(err, firstErr) {
			t.Errorf("最初のエラーが保持されていないのだ: %+v", ex)
		}
	})

	t.Run("致命的エラーは即中断してConfigurationErrorになるのだ", func(t *testing.T) {
		fake := &fakeTextModel{script: []func() (*gemini.Response, error){
			fail(errors.New("401 invalid api key")),
		}}
		caller := NewCaller(fake, nil, nil, nil)

		_, err := caller.Call(ctx, "p", fastPolicy("model-a", "model-b"))
		var ce *domain.ConfigurationError
		if !errors.As(err, &ce) {
			t.Fatalf("ConfigurationErrorではなかったのだ: %v", err)
		}
		if len(fake.calls) != 1 {
			t.Errorf("致命的エラー後もリトライしてしまったのだ: %d回", len(fake.calls))
		}
	})

	t.Run("モデルを使い切ったらフォールバックするのだ", func(t *testing.T) {
		fake := &fakeTextModel{script: []func() (*gemini.Response, error){
			fail(errors.New("429 rate limit")),
			fail(errors.New("429 rate limit")),
			ok("from fallback"),
		}}
		caller := NewCaller(fake, nil, nil, nil)

		res, err := caller.Call(ctx, "p", fastPolicy("primary", "fallback"))
		if err != nil {
			t.Fatalf("失敗したのだ: %v", err)
		}
		if res.ModelUsed != "fallback" {
			t.Errorf("使用モデルが違うのだ: %s", res.ModelUsed)
		}
		want := []string{"primary", "primary", "fallback"}
		for i, m := range want {
			if fake.calls[i] != m {
				t.Errorf("呼び出し順が違うのだ: %v", fake.calls)
				break
			}
		}
	})

	t.Run("空応答はValidationErrorとしてリトライされるのだ", func(t *testing.T) {
		fake := &fakeTextModel{script: []func() (*gemini.Response, error){
			ok("   "),
			ok("filled"),
		}}
		caller := NewCaller(fake, nil, nil, nil)

		res, err := caller.Call(ctx, "p", fastPolicy("model-a"))
		if err != nil {
			t.Fatalf("失敗したのだ: %v", err)
		}
		if res.Text != "filled" {
			t.Errorf("結果が違うのだ: %+v", res)
		}
	})

	t.Run("モデル未指定はConfigurationErrorなのだ", func(t *testing.T) {
		caller := NewCaller(&fakeTextModel{}, nil, nil, nil)
		_, err := caller.Call(ctx, "p", Policy{})
		var ce *domain.ConfigurationError
		if !errors.As(err, &ce) {
			t.Errorf("ConfigurationErrorではなかったのだ: %v", err)
		}
	})

	t.Run("Observerが各試行の診断情報を受け取るのだ", func(t *testing.T) {
		fake := &fakeTextModel{script: []func() (*gemini.Response, error){
			fail(errors.New("503")),
			ok("done"),
		}}
		var seen []Attempt
		caller := NewCaller(fake, nil, nil, func(a Attempt) { seen = append(seen, a) })

		if _, err := caller.Call(ctx, "p", fastPolicy("model-a")); err != nil {
			t.Fatalf("失敗したのだ: %v", err)
		}
		if len(seen) != 2 {
			t.Fatalf("Observer呼び出しが%d回だったのだ", len(seen))
		}
		if seen[0].Err == nil || seen[1].Err != nil {
			t.Errorf("試行結果の記録が違うのだ: %+v", seen)
		}
		if seen[1].Total != 2 {
			t.Errorf("通し番号が違うのだ: %+v", seen[1])
		}
	})
}
