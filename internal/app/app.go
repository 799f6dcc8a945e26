package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/shouni/go-http-kit/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"

	"github.com/shouni/go-post-kit/internal/config"
	"github.com/shouni/go-post-kit/pkg/workflow"
)

// Setup は、提供された設定と共有コンポーネントを使用してワークフローの Manager を
// 初期化して返すのだ。入出力は GCS とローカルの両対応で、URIのスキームで自動判別する。
func Setup(ctx context.Context, cfg *config.Config) (*workflow.Manager, error) {
	timeout := cfg.Options.HTTPTimeout
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeout
	}
	httpClient := httpkit.New(timeout)

	gcsFactory, err := gcsfactory.NewGCSClientFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client factory: %w", err)
	}

	reader, err := gcsFactory.NewInputReader()
	if err != nil {
		return nil, err
	}
	writer, err := gcsFactory.NewOutputWriter()
	if err != nil {
		return nil, err
	}

	manager, err := workflow.New(ctx, workflow.ManagerArgs{
		Config:     cfg.Workflow,
		HTTPClient: httpClient,
		Reader:     reader,
		Writer:     writer,
	})
	if err != nil {
		return nil, fmt.Errorf("ワークフローの初期化に失敗しました: %w", err)
	}
	return manager, nil
}

// FetchReference は --brief-url で指定された参考記事から本文テキストを抽出するのだ。
// URL未指定なら空文字を返すだけで、エラーにはしない。
func FetchReference(ctx context.Context, manager *workflow.Manager, briefURL string) (string, error) {
	if strings.TrimSpace(briefURL) == "" {
		return "", nil
	}

	extractor, err := manager.BuildExtractor()
	if err != nil {
		return "", err
	}

	text, _, err := extractor.FetchAndExtractText(ctx, briefURL)
	if err != nil {
		return "", fmt.Errorf("参考記事の抽出に失敗しました (%s): %w", briefURL, err)
	}
	return text, nil
}
