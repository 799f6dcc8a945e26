package reliable

import "time"

// Attempt は1回の試行の診断情報です。
type Attempt struct {
	Model   string
	Number  int // そのモデル内での試行番号（1始まり）
	Total   int // ポリシー全体での通し番号（1始まり）
	Latency time.Duration
	Err     error // 成功時は nil
}

// Observer は試行ごとに呼ばれるフックなのだ。ログやメトリクスの差し込み用。
type Observer func(Attempt)
