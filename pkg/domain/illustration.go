package domain

// Illustration は生成された挿絵とそのメタデータです。
// 挿絵ステージがリトライを使い切った場合は生成されず、その不在は
// セッションにとってエラーではなく正常な最終状態として扱います。
type Illustration struct {
	PromptUsed string // 実際に画像生成へ渡したプロンプト
	Data       []byte
	MimeType   string
	ModelUsed  string // フォールバック後に実際へ使われたモデル
}
