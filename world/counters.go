package world

import (
	"math"

	"github.com/zyedidia/generic/mapset"
)

// AreaCounter 区域人数计数器：显示值 = max(0, CountMax - 区域内人数)，
// 显示值归零时关闭同色墙体，离开零时重新打开。
type AreaCounter struct {
	ObjectBase
	CountMax int
	Color    uint32

	count  int
	inside mapset.Set[*Occupant]
}

func NewAreaCounter(box Box, countMax int, color uint32) *AreaCounter {
	return &AreaCounter{
		ObjectBase: newBase(KindAreaCounter, box),
		CountMax:   countMax,
		Color:      color,
		count:      countMax,
		inside:     mapset.New[*Occupant](),
	}
}

// Count 当前显示值
func (a *AreaCounter) Count() int { return a.count }

// Inside 区域内去重后的人数
func (a *AreaCounter) Inside() int { return a.inside.Size() }

func (a *AreaCounter) OnHover(o *Occupant) bool {
	a.inside.Put(o)
	return a.recount()
}

// OnLeave 离开关卡的玩家无条件移出，同时清理其他已不在区域内的玩家
func (a *AreaCounter) OnLeave(o *Occupant) bool {
	a.inside.Remove(o)
	a.sweep()
	return a.recount()
}

func (a *AreaCounter) OnTick() bool {
	a.sweep()
	return a.recount()
}

func (a *AreaCounter) OnReset() {
	a.inside = mapset.New[*Occupant]()
	prev := a.count
	a.count = a.CountMax
	if prev == 0 && a.count > 0 {
		a.activateGroup(a.Color, true)
	}
}

func (a *AreaCounter) sweep() {
	var gone []*Occupant
	a.inside.Each(func(o *Occupant) {
		if !o.in(a.host) || !a.CheckInside(o.Pos()) {
			gone = append(gone, o)
		}
	})
	for _, o := range gone {
		a.inside.Remove(o)
	}
}

// recount 只有显示值变化时才返回 true
func (a *AreaCounter) recount() bool {
	prev := a.count
	a.count = max(0, a.CountMax-a.inside.Size())
	switch {
	case prev > 0 && a.count == 0:
		a.activateGroup(a.Color, false)
	case prev == 0 && a.count > 0:
		a.activateGroup(a.Color, true)
	}
	return prev != a.count
}

func (a *AreaCounter) Serialize(w *Writer) {
	a.writeHeader(w)
	w.U16(uint16(a.count))
	w.U32(a.Color)
}

// 冷却倍数：归零后需要额外等待 Speed*1.5 才开始恢复
const buttonCooldownFactor = 1.5

// Button 点击计数按钮：每次点击减一，归零时关闭同色墙体并进入冷却，
// 之后每经过 Speed 毫秒恢复一次，离开零时重新打开墙体。
type Button struct {
	ObjectBase
	CountMax int
	Speed    int64 // 毫秒
	Color    uint32

	count       int
	lastClickAt int64
}

func NewButton(box Box, color uint32, countMax int, speed int64) *Button {
	return &Button{
		ObjectBase: newBase(KindButton, box),
		CountMax:   countMax,
		Speed:      speed,
		Color:      color,
		count:      countMax,
	}
}

// Count 剩余点击次数
func (b *Button) Count() int { return b.count }

func (b *Button) OnClick() bool {
	if b.count <= 0 {
		return false
	}
	b.count--
	now := b.now()
	if b.count == 0 {
		b.lastClickAt = now + int64(float64(b.Speed)*buttonCooldownFactor)
		b.activateGroup(b.Color, false)
	} else {
		b.lastClickAt = now
	}
	return true
}

func (b *Button) OnTick() bool {
	return b.recover(b.Speed)
}

// recover 把已经过去的冷却周期换算成恢复次数，上限 CountMax
func (b *Button) recover(speed int64) bool {
	if b.count >= b.CountMax || speed <= 0 {
		return false
	}
	elapsed := b.now() - b.lastClickAt
	if elapsed < speed {
		return false
	}
	steps := elapsed / speed
	prev := b.count
	b.count = int(min(int64(b.CountMax), int64(b.count)+steps))
	b.lastClickAt += steps * speed
	if prev == 0 && b.count > 0 {
		b.activateGroup(b.Color, true)
	}
	return b.count != prev
}

func (b *Button) OnReset() {
	prev := b.count
	b.count = b.CountMax
	b.lastClickAt = 0
	if prev == 0 && b.count > 0 {
		b.activateGroup(b.Color, true)
	}
}

func (b *Button) Serialize(w *Writer) {
	b.writeHeader(w)
	w.U16(uint16(b.count))
	w.U32(b.Color)
}

// 彩虹按钮颜色周期除数
const rainbowSpeed = 30

// RainbowButton 颜色随时间变化的按钮，越接近清空恢复越快
type RainbowButton struct {
	Button
	live uint32
}

func NewRainbowButton(box Box, color uint32, countMax int, speed int64) *RainbowButton {
	rb := &RainbowButton{Button: *NewButton(box, color, countMax, speed)}
	rb.live = rainbowColor(0)
	return rb
}

// LiveColor 当前显示颜色
func (rb *RainbowButton) LiveColor() uint32 { return rb.live }

func (rb *RainbowButton) OnTick() bool {
	var tick uint64
	if rb.host != nil {
		tick = rb.host.TickCount()
	}
	prevColor := rb.live
	rb.live = rainbowColor(tick)
	recovered := rb.recover(rb.effectiveSpeed())
	return recovered || prevColor != rb.live
}

// effectiveSpeed 冷却速度按 (count+1)/CountMax 缩放
func (rb *RainbowButton) effectiveSpeed() int64 {
	if rb.CountMax <= 0 {
		return rb.Speed
	}
	return max(1, rb.Speed*int64(rb.count+1)/int64(rb.CountMax))
}

func (rb *RainbowButton) Serialize(w *Writer) {
	rb.writeHeader(w)
	w.U16(uint16(rb.count))
	w.U32(rb.live)
}

// rainbowColor 三路相位差 0/2/4 弧度的正弦波合成 RGB
func rainbowColor(tick uint64) uint32 {
	t := float64(tick) / rainbowSpeed
	channel := func(offset float64) uint32 {
		return uint32(math.Sin(t+offset)*127 + 128)
	}
	return channel(0)<<16 | channel(2)<<8 | channel(4)
}
