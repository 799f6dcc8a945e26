package cmd

import (
	"fmt"
	"os"

	"github.com/shouni/go-post-kit/internal/config"
	"github.com/shouni/go-post-kit/pkg/workflow"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
)

var opts config.GenerateOptions

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- ブリーフ入力関連 ---
	rootCmd.PersistentFlags().StringVarP(&opts.Niche, "niche", "n", "", "発信ジャンル（例: フィットネス）なのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.Goal, "goal", "g", "", "投稿の目的（例: フォロワーを増やす）なのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.Format, "format", "f", "", "投稿フォーマット（例: Instagram post）なのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.BriefURL, "brief-url", "u", "", "参考記事のURL。本文を抽出して生成の背景情報に使うのだ。")

	// --- 生成結果の出力設定 ---
	rootCmd.PersistentFlags().StringVarP(&opts.OutputDir, "output-dir", "o", config.DefaultOutputDir, "保存先ディレクトリ（ローカル or gs://...）なのだ。")

	// --- AIモデル・挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.AIModel, "model", workflow.DefaultTextModel, "アイデア生成などに使う Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.DraftModel, "draft-model", workflow.DefaultDraftModel, "本文生成に使う Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.ImageModel, "image-model", workflow.DefaultImageModel, "挿絵生成に使う Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "Webリクエストのタイムアウトなのだ。")

	// --- 実行制御 ---
	rootCmd.PersistentFlags().BoolVar(&opts.WithImage, "with-image", false, "完成した投稿に挿絵を付けるのだ。")
	rootCmd.PersistentFlags().BoolVar(&opts.SkipBriefCheck, "skip-check", false, "生成前のブリーフ審査を省略するのだ。")
	generateCmd.Flags().IntVar(&opts.IdeaIndex, "idea", 0, "アイデア番号（1〜5）を即決して対話をスキップするのだ。")
	postCmd.Flags().IntVar(&postIdeaIndex, "idea", 1, "採用するアイデア番号（1〜5）なのだ。")
	postCmd.Flags().StringVar(&opts.IdeaFile, "ideas-file", config.DefaultIdeasFile, "保存済みアイデアJSONのパスなのだ。")
}

// preRunAppE は、コマンド実行前に環境変数などの必須チェックを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	// Gemini APIを利用するため、APIキーの存在チェックは欠かせないのだ！
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}

	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	clibase.Execute(
		"ap-post-go",
		addAppFlags,
		preRunAppE,
		generateCmd,
		ideasCmd,
		postCmd,
		batchCmd,
	)
}
