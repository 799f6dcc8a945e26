package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shouni/go-post-kit/internal/app"
	"github.com/shouni/go-post-kit/internal/config"
	"github.com/shouni/go-post-kit/pkg/domain"
	"github.com/shouni/go-post-kit/pkg/pipeline"
	"github.com/shouni/go-post-kit/pkg/publisher"
)

// postIdeaIndex は --idea の値（1始まり）。generate 側の即決フラグとは別管理なのだ。
var postIdeaIndex int

// postCmd は、保存済みのアイデアJSONから投稿の完成だけを実行するのだ。
var postCmd = &cobra.Command{
	Use:   "post",
	Short: "保存済みアイデアから投稿を完成させるのだ。",
	Long: `ideas コマンドで保存したJSONを読み込み、--idea で指定した番号のアイデアを
本文・ハッシュタグ・CTAまで仕上げるのだ。--with-image で挿絵も付くのだよ。`,
	RunE: postCommand,
}

func init() {
}

func postCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := config.LoadConfig()
	cfg.ApplyOptions(opts)

	manager, err := app.Setup(ctx, cfg)
	if err != nil {
		return err
	}

	// アイデアJSONの読み込み
	rc, err := manager.Reader().Open(ctx, opts.IdeaFile)
	if err != nil {
		return fmt.Errorf("アイデアファイル '%s' の読み込みに失敗したのだ: %w", opts.IdeaFile, err)
	}
	defer rc.Close()

	var doc ideasDocument
	if err := json.NewDecoder(rc).Decode(&doc); err != nil {
		return fmt.Errorf("アイデアファイル '%s' のデコードに失敗したのだ: %w", opts.IdeaFile, err)
	}

	index := postIdeaIndex - 1
	if index < 0 || index >= len(doc.Ideas) {
		return &domain.UsageError{Reason: fmt.Sprintf("アイデア番号が範囲外なのだ: %d (1〜%d で指定してほしいのだ)", postIdeaIndex, len(doc.Ideas))}
	}
	idea := doc.Ideas[index]

	slog.Info("投稿仕上げモードを起動するのだ！",
		"idea", idea.Title,
		"draft_model", cfg.Workflow.DraftModel,
		"with_image", opts.WithImage,
	)

	post, modelUsed, err := manager.BuildDraftRunner().Run(ctx, doc.Brief, idea, "")
	if err != nil {
		return fmt.Errorf("本文生成中にエラーが発生したのだ: %w", err)
	}

	var illustration *domain.Illustration
	if opts.WithImage {
		illustration, err = manager.BuildIllustrationRunner().Run(ctx, doc.Brief, idea, post)
		if err != nil {
			return fmt.Errorf("挿絵生成が致命的エラーで失敗したのだ: %w", err)
		}
	}

	pub, err := manager.BuildPublisher()
	if err != nil {
		return err
	}
	outcome := &pipeline.Outcome{
		Brief:        doc.Brief,
		Idea:         idea,
		Post:         post,
		Illustration: illustration,
	}
	result, err := pub.Publish(ctx, outcome, publisher.Options{OutputDir: cfg.Workflow.OutputDir})
	if err != nil {
		return fmt.Errorf("成果物の保存に失敗したのだ: %w", err)
	}

	slog.Info("投稿の仕上げが完了したのだ！",
		"markdown", result.MarkdownPath,
		"html", result.HTMLPath,
		"model", modelUsed,
	)
	return nil
}
