package reliable

import "strings"

// API のエラーを文字列で分類します。SDK が構造化コードを返さないケースが
// あるため、メッセージ本文のパターン照合を最後の砦にしています。

var fatalMarkers = []string{
	"401",
	"403",
	"permission",
	"api key",
	"unauthenticated",
	"invalid_argument",
	"400",
}

var rateLimitMarkers = []string{
	"429",
	"rate limit",
	"resource_exhausted",
	"quota",
}

// isFatal は、リトライしても回復しない認証・リクエスト構造系のエラーかを判定するのだ。
func isFatal(err error) bool {
	return containsAny(err, fatalMarkers)
}

// isRateLimited はレート制限系のエラーかを判定します。リトライ対象ですが、
// ログで区別できるようにしておきます。
func isRateLimited(err error) bool {
	return containsAny(err, rateLimitMarkers)
}

func containsAny(err error, markers []string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range markers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
