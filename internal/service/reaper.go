package service

import (
	"context"
	"time"
)

// RunReaper releases expired temporary locks every interval until ctx is
// done.  A non-positive interval disables it.
func (e *Engine) RunReaper(ctx context.Context, every time.Duration) {
	if every <= 0 {
		e.logger.Info("lock reaper disabled")
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := e.ReapExpiredLocks(ctx); err != nil && ctx.Err() == nil {
				e.logger.Warn("lock reaper sweep failed", "error", err)
			}
		}
	}
}
