package cmd

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shouni/go-post-kit/internal/app"
	"github.com/shouni/go-post-kit/internal/config"
	"github.com/shouni/go-post-kit/pkg/domain"
	"github.com/shouni/go-post-kit/pkg/publisher"
)

// generateCmd は、ブリーフから投稿完成までの全工程を対話で実行するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "アイデア提示から投稿完成までを一気に実行するのだ。",
	Long: `ニッチ・目的・フォーマットの3点から5つのアイデアを提示し、
選んだアイデアを完成した投稿（本文・ハッシュタグ・CTA・挿絵）に仕上げるのだ。
--idea で番号を即決すれば対話なしでも動くのだよ。`,
	RunE: generateCommand,
}

func init() {
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	brief := domain.Brief{Niche: opts.Niche, Goal: opts.Goal, Format: opts.Format}
	if err := brief.Validate(); err != nil {
		return fmt.Errorf("ブリーフが不完全なのだ（--niche / --goal / --format を確認してほしいのだ）: %w", err)
	}

	// 環境変数等から基本設定をロードするのだ
	cfg := config.LoadConfig()
	cfg.ApplyOptions(opts)

	slog.Info("投稿生成パイプラインを起動するのだ！",
		"brief", brief.String(),
		"text_model", cfg.Workflow.TextModel,
		"draft_model", cfg.Workflow.DraftModel,
		"with_image", opts.WithImage,
	)

	manager, err := app.Setup(ctx, cfg)
	if err != nil {
		return err
	}

	reference, err := app.FetchReference(ctx, manager, opts.BriefURL)
	if err != nil {
		return err
	}

	orchestrator := manager.BuildOrchestrator()

	// --- Phase 1: アイデア提示 ---
	session, err := orchestrator.StartSession(ctx, brief, reference)
	if err != nil {
		return fmt.Errorf("アイデア生成に失敗したのだ: %w", err)
	}
	printIdeas(session.Ideas)

	// --- Phase 2: アイデア選択と本文生成 ---
	index := opts.IdeaIndex - 1
	if opts.IdeaIndex <= 0 {
		index, err = promptIdeaChoice(len(session.Ideas))
		if err != nil {
			// 利用者が選択をやめたのでセッションも畳むのだ
			_ = orchestrator.Abort(session.ID, "利用者が選択を中止しました")
			return err
		}
	}

	session, err = orchestrator.SelectIdea(ctx, session.ID, index)
	if err != nil {
		return fmt.Errorf("本文生成に失敗したのだ: %w", err)
	}

	// --- Phase 3: 挿絵と完了 ---
	outcome, err := orchestrator.Finalize(ctx, session.ID, opts.WithImage)
	if err != nil {
		return fmt.Errorf("完了処理に失敗したのだ: %w", err)
	}

	// --- Phase 4: 保存 ---
	pub, err := manager.BuildPublisher()
	if err != nil {
		return err
	}
	result, err := pub.Publish(ctx, outcome, publisher.Options{OutputDir: cfg.Workflow.OutputDir})
	if err != nil {
		return fmt.Errorf("成果物の保存に失敗したのだ: %w", err)
	}

	slog.Info("すべての生成工程が完了したのだ！",
		"markdown", result.MarkdownPath,
		"html", result.HTMLPath,
		"illustration", result.IllustrationPath,
	)
	return nil
}

// printIdeas はアイデア一覧を番号付きで表示するのだ。
func printIdeas(ideas domain.Ideas) {
	fmt.Println("\n=== アイデア候補 ===")
	for i, idea := range ideas {
		fmt.Printf("%d. %s\n   %s\n   切り口: %s\n", i+1, idea.Title, idea.Summary, idea.Angle)
	}
	fmt.Println()
}

// promptIdeaChoice は標準入力からアイデア番号を読み取るのだ（0始まりで返す）。
func promptIdeaChoice(count int) (int, error) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("採用するアイデア番号（1〜%d、q で中止）: ", count)
		if !scanner.Scan() {
			return 0, fmt.Errorf("入力が閉じられたのだ")
		}
		input := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(input, "q") {
			return 0, fmt.Errorf("選択が中止されたのだ")
		}
		n, err := strconv.Atoi(input)
		if err != nil || n < 1 || n > count {
			fmt.Printf("1〜%d の番号で指定してほしいのだ\n", count)
			continue
		}
		return n - 1, nil
	}
}
