package world

import "go.uber.org/zap"

// Kind 对象类型（封闭集合），同时决定网格图层位
type Kind uint8

const (
	KindText Kind = iota
	KindWall
	KindTeleport
	KindAreaCounter
	KindButton
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindWall:
		return "wall"
	case KindTeleport:
		return "teleport"
	case KindAreaCounter:
		return "area_counter"
	case KindButton:
		return "button"
	default:
		return "unknown"
	}
}

// 墙体颜色，同时作为按钮/计数器联动分组的键
const (
	ColorBlack        uint32 = 0x000000
	ColorWhite        uint32 = 0xFFFFFF
	ColorPink         uint32 = 0xFF9999
	ColorPortage      uint32 = 0x9999FF
	ColorYellow       uint32 = 0xFFFF99
	ColorElectricBlue uint32 = 0x99FFFF
	ColorViolet       uint32 = 0xFF99FF
	ColorNeonBlue     uint32 = 0x3333FF
)

// Host 对象可调用的所属关卡能力（非拥有的反向引用）
type Host interface {
	NowMillis() int64
	TickCount() uint64
	Spawn() Point
	ActivateGroup(color uint32, active bool)
	Reposition(o *Occupant, p Point)
	Transfer(o *Occupant, levelID int) error
	Logger() *zap.SugaredLogger
}

// Object 可交互对象的能力接口。
// 返回 true 表示对象的序列化状态已改变，需要进入下一帧的更新列表。
type Object interface {
	base() *ObjectBase

	OnTick() bool
	OnClick() bool
	OnHover(o *Occupant) bool
	OnLeave(o *Occupant) bool
	OnReset()
	CheckInside(p Point) bool
	Serialize(w *Writer)
}

// ObjectBase 所有对象共享的字段，嵌入到各具体类型中
type ObjectBase struct {
	id     uint32
	kind   Kind
	box    Box
	active bool
	placed bool // 是否已分配过 id
	refs   int  // 激活引用计数：>0 表示有未撤销的关闭请求
	host   Host
}

func newBase(kind Kind, box Box) ObjectBase {
	return ObjectBase{kind: kind, box: box}
}

func (b *ObjectBase) base() *ObjectBase { return b }

func (b *ObjectBase) ID() uint32   { return b.id }
func (b *ObjectBase) Kind() Kind   { return b.kind }
func (b *ObjectBase) Box() Box     { return b.box }
func (b *ObjectBase) Active() bool { return b.active }

// DeactivationRefs 当前未被抵消的关闭请求数
func (b *ObjectBase) DeactivationRefs() int { return b.refs }

func (b *ObjectBase) OnTick() bool             { return false }
func (b *ObjectBase) OnClick() bool            { return false }
func (b *ObjectBase) OnHover(o *Occupant) bool { return false }
func (b *ObjectBase) OnLeave(o *Occupant) bool { return false }
func (b *ObjectBase) OnReset()                 {}

func (b *ObjectBase) CheckInside(p Point) bool {
	return b.box.Contains(p)
}

// writeHeader id, type, x, y, w, h
func (b *ObjectBase) writeHeader(w *Writer) {
	w.U32(b.id)
	w.U8(uint8(b.kind))
	w.Coord(b.box.X)
	w.Coord(b.box.Y)
	w.Coord(b.box.W)
	w.Coord(b.box.H)
}

func (b *ObjectBase) now() int64 {
	if b.host == nil {
		return 0
	}
	return b.host.NowMillis()
}

func (b *ObjectBase) activateGroup(color uint32, active bool) {
	if b.host != nil {
		b.host.ActivateGroup(color, active)
	}
}
