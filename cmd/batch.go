package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shouni/go-post-kit/internal/app"
	"github.com/shouni/go-post-kit/internal/config"
	"github.com/shouni/go-post-kit/pkg/domain"
	"github.com/shouni/go-post-kit/pkg/publisher"
)

// 同時に走らせるセッション数の上限。APIのレート制限とのバランスで決めているのだ。
const batchConcurrency = 3

var batchBriefsFile string

// batchCmd は、複数ブリーフの一括生成を実行するのだ。
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "複数のブリーフをまとめて投稿に仕上げるのだ。",
	Long: `ブリーフの配列（JSON）を読み込み、それぞれ独立したセッションとして
並行に投稿を生成するのだ。各セッションは先頭のアイデアを自動採用するのだよ。`,
	RunE: batchCommand,
}

func init() {
	batchCmd.Flags().StringVar(&batchBriefsFile, "briefs-file", "examples/briefs.json", "ブリーフ配列（JSON）のパスなのだ。")
}

func batchCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := config.LoadConfig()
	cfg.ApplyOptions(opts)

	manager, err := app.Setup(ctx, cfg)
	if err != nil {
		return err
	}

	rc, err := manager.Reader().Open(ctx, batchBriefsFile)
	if err != nil {
		return fmt.Errorf("ブリーフファイル '%s' の読み込みに失敗したのだ: %w", batchBriefsFile, err)
	}
	defer rc.Close()

	var briefs []domain.Brief
	if err := json.NewDecoder(rc).Decode(&briefs); err != nil {
		return fmt.Errorf("ブリーフファイル '%s' のデコードに失敗したのだ: %w", batchBriefsFile, err)
	}
	if len(briefs) == 0 {
		return fmt.Errorf("ブリーフが1件もないのだ")
	}

	orchestrator := manager.BuildOrchestrator()
	pub, err := manager.BuildPublisher()
	if err != nil {
		return err
	}

	slog.Info("一括生成を開始するのだ！", "briefs", len(briefs), "concurrency", batchConcurrency)

	// セッション同士は独立なので、上限付きで並行に回すのだ
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	for i, brief := range briefs {
		g.Go(func() error {
			session, err := orchestrator.StartSession(gctx, brief, "")
			if err != nil {
				return fmt.Errorf("ブリーフ%d (%s) のアイデア生成に失敗したのだ: %w", i+1, brief.Niche, err)
			}

			// 一括モードでは先頭のアイデアを自動採用する
			if _, err := orchestrator.SelectIdea(gctx, session.ID, 0); err != nil {
				return fmt.Errorf("ブリーフ%d (%s) の本文生成に失敗したのだ: %w", i+1, brief.Niche, err)
			}

			outcome, err := orchestrator.Finalize(gctx, session.ID, opts.WithImage)
			if err != nil {
				return fmt.Errorf("ブリーフ%d (%s) の完了処理に失敗したのだ: %w", i+1, brief.Niche, err)
			}

			result, err := pub.Publish(gctx, outcome, publisher.Options{
				OutputDir:  cfg.Workflow.OutputDir,
				PerSession: true,
			})
			if err != nil {
				return fmt.Errorf("ブリーフ%d (%s) の保存に失敗したのだ: %w", i+1, brief.Niche, err)
			}

			slog.Info("セッションが完了したのだ", "brief", brief.String(), "markdown", result.MarkdownPath)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("一括生成がすべて完了したのだ！", "count", len(briefs))
	return nil
}
