package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shouni/go-post-kit/internal/app"
	"github.com/shouni/go-post-kit/internal/config"
	"github.com/shouni/go-post-kit/pkg/domain"
	"github.com/shouni/go-post-kit/pkg/workflow"
)

// ideasCmd は、アイデアの生成（JSON出力）のみを実行するのだ。
var ideasCmd = &cobra.Command{
	Use:   "ideas",
	Short: "アイデア5件（JSON）のみを生成して保存するのだ。",
	Long: `ブリーフから5件のアイデア（タイトル、要約、切り口）をJSON形式で出力するのだ。
本文や挿絵の生成は行わないのだよ。post コマンドで後から続きを作れるのだ。`,
	RunE: ideasCommand,
}

func init() {
}

func ideasCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	brief := domain.Brief{Niche: opts.Niche, Goal: opts.Goal, Format: opts.Format}
	if err := brief.Validate(); err != nil {
		return fmt.Errorf("ブリーフが不完全なのだ（--niche / --goal / --format を確認してほしいのだ）: %w", err)
	}

	cfg := config.LoadConfig()
	cfg.ApplyOptions(opts)

	slog.Info("アイデア生成モードを起動するのだ！",
		"brief", brief.String(),
		"text_model", cfg.Workflow.TextModel,
	)

	manager, err := app.Setup(ctx, cfg)
	if err != nil {
		return err
	}

	reference, err := app.FetchReference(ctx, manager, opts.BriefURL)
	if err != nil {
		return err
	}

	ideas, modelUsed, err := manager.BuildIdeaRunner().Run(ctx, brief, reference)
	if err != nil {
		return fmt.Errorf("アイデア生成中にエラーが発生したのだ: %w", err)
	}

	outputPath := config.DefaultIdeasFile
	if err := saveIdeas(ctx, manager, brief, ideas, outputPath); err != nil {
		return err
	}

	printIdeas(ideas)
	slog.Info("アイデア（JSON）の生成が完了したのだ！", "output_file", outputPath, "model", modelUsed)
	return nil
}

// ideasDocument は ideas コマンドの保存形式です。post コマンドがこのまま読み込みます。
type ideasDocument struct {
	Brief domain.Brief `json:"brief"`
	Ideas domain.Ideas `json:"ideas"`
}

func saveIdeas(ctx context.Context, manager *workflow.Manager, brief domain.Brief, ideas domain.Ideas, path string) error {
	doc := ideasDocument{Brief: brief, Ideas: ideas}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("アイデアのJSON変換に失敗したのだ: %w", err)
	}
	if err := manager.Writer().Write(ctx, path, strings.NewReader(string(data)), "application/json"); err != nil {
		return fmt.Errorf("アイデアの保存に失敗したのだ: %w", err)
	}
	return nil
}
