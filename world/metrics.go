package world

import (
	"sync/atomic"
)

// LevelMetrics 记录关卡运行期的关键指标（用于监控与调试）
type LevelMetrics struct {
	TickCount        int64 // 活跃 Tick 次数
	MovesAccepted    int64 // 完整执行的移动
	StaleSyncIgnored int64 // 因旧同步计数被忽略的输入
	Resyncs          int64 // 服务端强制纠正位置次数
	ClicksAccepted   int64
	ClicksDropped    int64 // 超过每 Tick 上限被丢弃的点击
	LinesAccepted    int64
	LinesDropped     int64
	Malformed        int64 // 格式错误的入站帧
	HookFaults       int64 // 对象钩子异常（已隔离）
	FramesBroadcast  int64 // 广播的 UPDATE_DATA 帧数
	TotalTickNs      int64 // Tick 累计耗时（纳秒）
}

func (m *LevelMetrics) IncMovesAccepted()    { atomic.AddInt64(&m.MovesAccepted, 1) }
func (m *LevelMetrics) IncStaleSyncIgnored() { atomic.AddInt64(&m.StaleSyncIgnored, 1) }
func (m *LevelMetrics) IncResyncs()          { atomic.AddInt64(&m.Resyncs, 1) }
func (m *LevelMetrics) IncClicksAccepted()   { atomic.AddInt64(&m.ClicksAccepted, 1) }
func (m *LevelMetrics) IncClicksDropped()    { atomic.AddInt64(&m.ClicksDropped, 1) }
func (m *LevelMetrics) IncLinesAccepted()    { atomic.AddInt64(&m.LinesAccepted, 1) }
func (m *LevelMetrics) IncLinesDropped()     { atomic.AddInt64(&m.LinesDropped, 1) }
func (m *LevelMetrics) IncMalformed()        { atomic.AddInt64(&m.Malformed, 1) }
func (m *LevelMetrics) IncHookFaults()       { atomic.AddInt64(&m.HookFaults, 1) }
func (m *LevelMetrics) IncFramesBroadcast()  { atomic.AddInt64(&m.FramesBroadcast, 1) }
func (m *LevelMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *LevelMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":         tick,
		"moves_accepted":     atomic.LoadInt64(&m.MovesAccepted),
		"stale_sync_ignored": atomic.LoadInt64(&m.StaleSyncIgnored),
		"resyncs":            atomic.LoadInt64(&m.Resyncs),
		"clicks_accepted":    atomic.LoadInt64(&m.ClicksAccepted),
		"clicks_dropped":     atomic.LoadInt64(&m.ClicksDropped),
		"lines_accepted":     atomic.LoadInt64(&m.LinesAccepted),
		"lines_dropped":      atomic.LoadInt64(&m.LinesDropped),
		"malformed":          atomic.LoadInt64(&m.Malformed),
		"hook_faults":        atomic.LoadInt64(&m.HookFaults),
		"frames_broadcast":   atomic.LoadInt64(&m.FramesBroadcast),
		"avg_tick_ms":        avgMs,
	}
}
