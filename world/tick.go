package world

import "time"

// Tick 推进关卡一帧。顺序：对象 OnTick → 点击 → 移动触发悬停 → 卡墙检查 → 广播 → 清空累加器。
// 没有玩家时重置所有对象并挂起，直到下一次有人加入。
func (l *Level) Tick() {
	if l.occupants.Len() == 0 {
		l.suspend()
		return
	}
	start := time.Now()
	l.tick++

	for _, obj := range l.objects.Items() {
		if l.safeHook(obj, "tick", obj.OnTick) {
			l.dirty.Add(obj)
		}
	}

	l.dispatchClicks()
	moved := l.dispatchMoves()

	l.sweepStuck()

	if l.occupants.Len() == 0 {
		l.suspend()
		return
	}

	if l.countChanged || len(moved) > 0 || l.moved.Len() > 0 || l.clicks.Len() > 0 ||
		l.lines.Len() > 0 || l.dirty.Len() > 0 || l.removed.Len() > 0 {
		l.broadcast(l.encodeUpdate())
	}

	l.clicks.Clear()
	l.lines.Clear()
	l.dirty.Clear()
	l.removed.Clear()
	l.countChanged = false
	l.metrics.AddTick(time.Since(start).Nanoseconds())
}

// suspend 关卡清空：所有对象恢复默认状态并停止推进
func (l *Level) suspend() {
	if l.active {
		for _, obj := range l.objects.Items() {
			l.safeHook(obj, "reset", func() bool {
				obj.OnReset()
				return false
			})
		}
		l.active = false
		l.log.Infow("level idle", "ticks", l.tick)
	}
	l.moved.Clear()
	l.clicks.Clear()
	l.lines.Clear()
	l.dirty.Clear()
	l.removed.Clear()
	l.countChanged = false
}

func (l *Level) dispatchClicks() {
	buttons := LayerOf(KindButton)
	for _, p := range l.clicks.Items() {
		if !l.grid.Query(p).Has(buttons) {
			continue
		}
		for _, obj := range l.objects.Items() {
			b := obj.base()
			if b.kind != KindButton || !b.active || !obj.CheckInside(p) {
				continue
			}
			if l.safeHook(obj, "click", obj.OnClick) {
				l.dirty.Add(obj)
			}
		}
	}
}

// dispatchMoves 取出本帧移动过的玩家并触发悬停；处理期间产生的强制移动留到下一帧
func (l *Level) dispatchMoves() []*Occupant {
	moved := l.moved.Items()
	l.moved.Clear()

	counters, teleports := LayerOf(KindAreaCounter), LayerOf(KindTeleport)
	for _, o := range moved {
		if o.level != l {
			continue
		}
		layers := l.grid.Query(o.pos)
		if layers.Has(counters) {
			for _, obj := range l.objects.Items() {
				b := obj.base()
				if b.kind != KindAreaCounter || !b.active || !obj.CheckInside(o.pos) {
					continue
				}
				if l.safeHook(obj, "hover", func() bool { return obj.OnHover(o) }) {
					l.dirty.Add(obj)
				}
			}
		}
		if layers.Has(teleports) {
			for _, obj := range l.objects.Items() {
				b := obj.base()
				if b.kind != KindTeleport || !b.active || !obj.CheckInside(o.pos) {
					continue
				}
				l.safeHook(obj, "hover", func() bool { return obj.OnHover(o) })
				if o.level != l {
					break
				}
			}
		}
	}
	return moved
}

func (l *Level) broadcast(frame []byte) {
	for _, o := range l.occupants.Items() {
		o.Send(frame)
	}
	l.metrics.IncFramesBroadcast()
}

// encodeUpdate UPDATE_DATA 帧：玩家、点击、移除、更新对象、画线、总人数
func (l *Level) encodeUpdate() []byte {
	w := NewWriter(512)
	w.U8(MsgUpdateData)

	occupants := l.occupants.Items()
	if len(occupants) > MaxOccupantRecords {
		occupants = occupants[:MaxOccupantRecords]
	}
	w.U16(uint16(len(occupants)))
	for _, o := range occupants {
		o.serialize(w)
	}

	clicks := l.clicks.Items()
	if len(clicks) > l.limits.MaxClicks {
		clicks = clicks[:l.limits.MaxClicks]
	}
	w.U16(uint16(len(clicks)))
	for _, p := range clicks {
		w.Coord(p.X)
		w.Coord(p.Y)
	}

	removed := l.removed.Items()
	w.U16(uint16(len(removed)))
	for _, id := range removed {
		w.U32(id)
	}

	l.writeObjects(w, l.liveObjects(l.dirty.Items()))

	lines := l.lines.Items()
	if len(lines) > l.limits.MaxLines {
		lines = lines[:l.limits.MaxLines]
	}
	w.U16(uint16(len(lines)))
	for _, ln := range lines {
		w.Coord(ln.A.X)
		w.Coord(ln.A.Y)
		w.Coord(ln.B.X)
		w.Coord(ln.B.Y)
	}

	total := l.occupants.Len()
	if l.router != nil {
		total = l.router.TotalOccupants()
	}
	w.U16(uint16(total))
	return w.Bytes()
}
