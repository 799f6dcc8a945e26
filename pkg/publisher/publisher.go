package publisher

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/shouni/go-remote-io/pkg/remoteio"
	"github.com/shouni/go-text-format/pkg/md2htmlrunner"

	"github.com/shouni/go-post-kit/pkg/pipeline"
)

// Options はパブリッシュ動作を制御する設定項目です。
type Options struct {
	OutputDir string
	// PerSession が真ならセッションIDのサブディレクトリを切って保存します。
	PerSession bool
}

// PublishResult はパブリッシュ処理の結果として生成されたファイルの情報を保持します。
type PublishResult struct {
	MarkdownPath     string // 生成された post.md のパス
	HTMLPath         string // 生成された HTML のパス
	IllustrationPath string // 保存された挿絵のパス（挿絵なしなら空）
}

const (
	defaultPostName         = "post.md"
	defaultIllustrationName = "illustration"
)

// PostPublisher は成果物の永続化とフォーマット変換を担います。
// 出力先はローカルパスと GCS URI の両方に対応しているのだ。
type PostPublisher struct {
	writer     remoteio.OutputWriter
	htmlRunner md2htmlrunner.Runner
}

// NewPostPublisher は依存関係を注入して PostPublisher を生成します。
func NewPostPublisher(writer remoteio.OutputWriter, htmlRunner md2htmlrunner.Runner) *PostPublisher {
	return &PostPublisher{
		writer:     writer,
		htmlRunner: htmlRunner,
	}
}

// Publish は挿絵の保存、Markdownの構築、HTML変換を一括して実行し、生成されたファイル情報を返却するのだ！
func (p *PostPublisher) Publish(ctx context.Context, outcome *pipeline.Outcome, opts Options) (PublishResult, error) {
	result := PublishResult{}
	if outcome == nil || outcome.Post == nil {
		return result, fmt.Errorf("公開対象の投稿がありません")
	}

	outputDir := opts.OutputDir
	if opts.PerSession && outcome.SessionID != "" {
		var err error
		outputDir, err = SessionOutputDir(outputDir, outcome.SessionID)
		if err != nil {
			return result, err
		}
	}

	// 1. 出力パスの解決
	markdown, err := ResolveOutputPath(outputDir, defaultPostName)
	if err != nil {
		return result, err
	}
	result.MarkdownPath = markdown

	// 2. 挿絵の保存
	var illustrationRel string
	if outcome.HasIllustration() {
		name := defaultIllustrationName + extensionFor(outcome.Illustration.MimeType)
		fullPath, err := ResolveOutputPath(outputDir, name)
		if err != nil {
			return result, fmt.Errorf("出力パスの解決に失敗しました: %w", err)
		}
		if err := p.writer.Write(ctx, fullPath, bytes.NewReader(outcome.Illustration.Data), outcome.Illustration.MimeType); err != nil {
			return result, fmt.Errorf("挿絵の書き込みに失敗しました %s: %w", fullPath, err)
		}
		result.IllustrationPath = fullPath
		illustrationRel = path.Join(".", name)
	}

	// 3. Markdownテキストの構築と書き出し
	content := p.buildMarkdown(outcome, illustrationRel)
	if err := p.writer.Write(ctx, markdown, strings.NewReader(content), "text/markdown; charset=utf-8"); err != nil {
		return result, fmt.Errorf("markdownファイルの書き込みに失敗しました: %w", err)
	}

	// 4. HTML変換と保存
	if p.htmlRunner != nil {
		slog.Info("HTMLへ変換しています", "title", outcome.Post.Title)
		htmlBuffer, err := p.htmlRunner.Run(ctx, outcome.Post.Title, []byte(content))
		if err != nil {
			return result, fmt.Errorf("HTMLの変換に失敗しました: %w", err)
		}

		// Markdownの拡張子を置換してHTMLパスを生成するのだ
		htmlPath := strings.TrimSuffix(markdown, filepath.Ext(markdown)) + ".html"
		if err := p.writer.Write(ctx, htmlPath, htmlBuffer, "text/html; charset=utf-8"); err != nil {
			return result, fmt.Errorf("HTMLファイルの書き込みに失敗しました: %w", err)
		}
		result.HTMLPath = htmlPath
	}

	return result, nil
}

// buildMarkdown returns the Markdown content for the completed post.
func (p *PostPublisher) buildMarkdown(outcome *pipeline.Outcome, illustrationRel string) string {
	post := outcome.Post
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", post.Title))

	if illustrationRel != "" {
		sb.WriteString(fmt.Sprintf("![%s](%s)\n\n", post.Title, illustrationRel))
	}

	sb.WriteString(post.Body)
	sb.WriteString("\n")

	if post.CallToAction != "" {
		sb.WriteString(fmt.Sprintf("\n%s\n", post.CallToAction))
	}

	if len(post.Hashtags) > 0 {
		sb.WriteString(fmt.Sprintf("\n%s\n", strings.Join(post.Hashtags, " ")))
	}

	// 生成条件を再現できるようにメタ情報を残すのだ
	sb.WriteString("\n---\n")
	sb.WriteString(fmt.Sprintf("- niche: %s\n", outcome.Brief.Niche))
	sb.WriteString(fmt.Sprintf("- goal: %s\n", outcome.Brief.Goal))
	sb.WriteString(fmt.Sprintf("- format: %s\n", outcome.Brief.Format))
	if outcome.Idea.Angle != "" {
		sb.WriteString(fmt.Sprintf("- angle: %s\n", outcome.Idea.Angle))
	}

	return sb.String()
}

// extensionFor は MIME タイプから保存用の拡張子を決めます。不明なら png 扱いです。
func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
