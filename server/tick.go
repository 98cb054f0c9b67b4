package server

import (
	"context"
	"time"
)

// StartTicker 启动 Tick 循环：按固定频率推进所有关卡，ctx 取消后退出
func (m *LevelManager) StartTicker(ctx context.Context) {
	m.mu.Lock()
	if m.tickerStarted {
		m.mu.Unlock()
		return
	}
	m.tickerStarted = true
	interval := m.cfg.TickInterval()
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// 核心循环：对象钩子 → 点击/移动事件 → 广播增量
				start := time.Now()
				m.Tick()
				if elapsed := time.Since(start); elapsed > interval {
					m.log.Warnw("tick overran interval", "elapsed", elapsed, "interval", interval)
				}
			}
		}
	}()
}
