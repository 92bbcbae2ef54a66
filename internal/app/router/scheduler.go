package router

import (
	"context"
	"epg/internal/app/epg"
	"time"

	"go.uber.org/zap"
)

// staleCheckInterval 检查节目单是否过期的间隔
var staleCheckInterval = time.Hour

// Schedule 启动时若节目单为空则立即更新，之后每天在指定时间更新，直到ctx结束。
// 节目单超过有效期（例如定时更新失败）时，每隔staleCheckInterval重试一次。
func Schedule(ctx context.Context, guide *epg.Guide, url string, hour, minute int) {
	logger := zap.L()

	guide.Initialize(ctx, url)

	ticker := time.NewTicker(staleCheckInterval)
	defer ticker.Stop()

	next := nextRun(time.Now(), hour, minute)
	logger.Info("Next EPG update scheduled.", zap.Time("at", next))
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("The scheduling task has been stopped.")
			return
		case <-ticker.C:
			if guide.NeedsUpdate() {
				logger.Warn("EPG data is stale, start updating.")
				guide.TriggerUpdate(ctx, url)
			}
		case <-timer.C:
			logger.Info("Start executing the scheduling task.")
			guide.TriggerUpdate(ctx, url)
			logger.Info("The scheduling task has been completed.")

			next = nextRun(time.Now(), hour, minute)
			logger.Info("Next EPG update scheduled.", zap.Time("at", next))
			timer.Reset(time.Until(next))
		}
	}
}

// nextRun 计算下一次执行时间（本地时区）
func nextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
