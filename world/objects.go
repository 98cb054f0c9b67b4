package world

import "fmt"

// Text 静态文字（点对象）
type Text struct {
	ObjectBase
	Size     uint8
	Centered bool
	Color    uint32
	Content  string
}

func NewText(pos Point, size uint8, centered bool, content string, color uint32) *Text {
	return &Text{
		ObjectBase: newBase(KindText, Box{X: pos.X, Y: pos.Y}),
		Size:       size,
		Centered:   centered,
		Color:      color,
		Content:    content,
	}
}

func (t *Text) Serialize(w *Writer) {
	t.writeHeader(w)
	w.U8(t.Size)
	if t.Centered {
		w.U8(1)
	} else {
		w.U8(0)
	}
	w.U32(t.Color)
	w.CString(t.Content)
}

// Wall 被动墙体，存在即占据 Wall 图层；颜色用于分组联动
type Wall struct {
	ObjectBase
	Color uint32
}

func NewWall(box Box, color uint32) *Wall {
	return &Wall{ObjectBase: newBase(KindWall, box), Color: color}
}

func (wl *Wall) Serialize(w *Writer) {
	wl.writeHeader(w)
	w.U32(wl.Color)
}

// 传送门显示颜色
const (
	TeleportGreen uint8 = 0
	TeleportRed   uint8 = 1
)

// TeleportTarget 传送目标：关卡、坐标点二选一，或都不设置（回到本关出生点）
type TeleportTarget struct {
	Level *int
	Point *Point
}

// Teleport 传送门
type Teleport struct {
	ObjectBase
	target TeleportTarget
}

// NewTeleport 构造时校验目标：最多只能设置一个，目标点须在默认地图内
func NewTeleport(box Box, target TeleportTarget) (*Teleport, error) {
	if target.Level != nil && target.Point != nil {
		return nil, fmt.Errorf("teleport at %v: %w", box, ErrInvalidTeleportTarget)
	}
	if p := target.Point; p != nil && !(Box{W: MapWidth, H: MapHeight}).Contains(*p) {
		return nil, fmt.Errorf("teleport target %v: %w", *p, ErrOutOfBounds)
	}
	return &Teleport{ObjectBase: newBase(KindTeleport, box), target: target}, nil
}

// Target 返回构造时的目标
func (t *Teleport) Target() TeleportTarget { return t.target }

func (t *Teleport) color() uint8 {
	if t.target.Level == nil && t.target.Point == nil {
		return TeleportRed
	}
	return TeleportGreen
}

// OnHover 传送的副作用不改变自身序列化状态，总是返回 false
func (t *Teleport) OnHover(o *Occupant) bool {
	if t.host == nil {
		return false
	}
	switch {
	case t.target.Level != nil:
		if err := t.host.Transfer(o, *t.target.Level); err != nil {
			t.host.Logger().Warnw("teleport transfer failed",
				"object", t.id, "occupant", o.ID(), "target", *t.target.Level, "err", err)
		}
	case t.target.Point != nil:
		t.host.Reposition(o, *t.target.Point)
	default:
		t.host.Reposition(o, t.host.Spawn())
	}
	return false
}

func (t *Teleport) Serialize(w *Writer) {
	t.writeHeader(w)
	w.U8(t.color())
}
