package reliable

import (
	"context"
	"errors"
	"testing"
	"time"

	imgdom "github.com/shouni/gemini-image-kit/ports"

	"github.com/shouni/go-post-kit/pkg/domain"
)

// fakeImageModel はモデル名ごとの応答を台本で返すスタブなのだ。
type fakeImageModel struct {
	model  string
	calls  *[]string
	script func(model string, nth int) (*imgdom.ImageResponse, error)
	count  int
}

func (f *fakeImageModel) GenerateMangaPanel(_ context.Context, _ imgdom.ImagePanelRequest) (*imgdom.ImageResponse, error) {
	f.count++
	*f.calls = append(*f.calls, f.model)
	return f.script(f.model, f.count)
}

func TestImageCaller_Call(t *testing.T) {
	ctx := context.Background()

	newFactory := func(calls *[]string, script func(model string, nth int) (*imgdom.ImageResponse, error)) GeneratorFactory {
		gens := make(map[string]*fakeImageModel)
		return func(model string) ImageModel {
			if g, ok := gens[model]; ok {
				return g
			}
			g := &fakeImageModel{model: model, calls: calls, script: script}
			gens[model] = g
			return g
		}
	}

	t.Run("成功したら画像と使用モデルを返すのだ", func(t *testing.T) {
		var calls []string
		factory := newFactory(&calls, func(string, int) (*imgdom.ImageResponse, error) {
			return &imgdom.ImageResponse{Data: []byte{1, 2}, MimeType: "image/png"}, nil
		})
		caller := NewImageCaller(factory, nil, nil, nil)

		res, err := caller.Call(ctx, imgdom.ImagePanelRequest{GenerationOptions: imgdom.GenerationOptions{Prompt: "scene"}}, fastPolicy("image-a"))
		if err != nil {
			t.Fatalf("失敗したのだ: %v", err)
		}
		if res.ModelUsed != "image-a" || len(res.Response.Data) != 2 {
			t.Errorf("結果が違うのだ: %+v", res)
		}
	})

	t.Run("空の画像データはリトライ対象なのだ", func(t *testing.T) {
		var calls []string
		factory := newFactory(&calls, func(_ string, nth int) (*imgdom.ImageResponse, error) {
			if nth == 1 {
				return &imgdom.ImageResponse{}, nil
			}
			return &imgdom.ImageResponse{Data: []byte{9}, MimeType: "image/png"}, nil
		})
		caller := NewImageCaller(factory, nil, nil, nil)

		res, err := caller.Call(ctx, imgdom.ImagePanelRequest{GenerationOptions: imgdom.GenerationOptions{Prompt: "scene"}}, fastPolicy("image-a"))
		if err != nil {
			t.Fatalf("回復できなかったのだ: %v", err)
		}
		if len(calls) != 2 {
			t.Errorf("呼び出し回数が%dだったのだ", len(calls))
		}
		_ = res
	})

	t.Run("全モデルを使い切ったらExhaustedRetriesErrorなのだ", func(t *testing.T) {
		var calls []string
		lastErr := errors.New("503 unavailable")
		factory := newFactory(&calls, func(string, int) (*imgdom.ImageResponse, error) {
			return nil, lastErr
		})
		caller := NewImageCaller(factory, nil, nil, nil)

		p := Policy{
			Models:              []string{"image-a", "image-b"},
			MaxAttemptsPerModel: 2,
			InitialBackoff:      time.Millisecond,
			MaxBackoff:          time.Millisecond,
		}
		_, err := caller.Call(ctx, imgdom.ImagePanelRequest{GenerationOptions: imgdom.GenerationOptions{Prompt: "scene"}}, p)

		var ex *domain.ExhaustedRetriesError
		if !errors.As(err, &ex) {
			t.Fatalf("ExhaustedRetriesErrorではなかったのだ: %v", err)
		}
		if ex.Attempts != 4 || !errors.Is(err, lastErr) {
			t.Errorf("試行記録が違うのだ: %+v", ex)
		}
	})

	t.Run("認証エラーは即ConfigurationErrorで打ち切るのだ", func(t *testing.T) {
		var calls []string
		factory := newFactory(&calls, func(string, int) (*imgdom.ImageResponse, error) {
			return nil, errors.New("403 permission denied")
		})
		caller := NewImageCaller(factory, nil, nil, nil)

		_, err := caller.Call(ctx, imgdom.ImagePanelRequest{GenerationOptions: imgdom.GenerationOptions{Prompt: "scene"}}, fastPolicy("image-a", "image-b"))
		var ce *domain.ConfigurationError
		if !errors.As(err, &ce) {
			t.Fatalf("ConfigurationErrorではなかったのだ: %v", err)
		}
		if len(calls) != 1 {
			t.Errorf("致命的エラー後もリトライしてしまったのだ: %d回", len(calls))
		}
	})
}
