package workflow

import (
	"time"
)

const (
	// 発想系（アイデア・本文・シーン記述）と判定系（校正・審査）で温度を使い分けるのだ
	creativeTemperature = float32(0.9)
	strictTemperature   = float32(0.1)

	defaultCacheExpiration = 5 * time.Minute
	cacheCleanupInterval   = 15 * time.Minute
	defaultAssetTTL        = 5 * time.Minute
)
