package world

import (
	"math"
	"math/rand"

	"github.com/oklog/ulid/v2"
)

// Sender 连接的发送端：非阻塞投递，失败由实现方吞掉
type Sender interface {
	Enqueue(b []byte)
}

// Occupant 连接对应的玩家光标（服务端权威状态）
type Occupant struct {
	id     uint32
	handle ulid.ULID
	color  uint32

	pos   Point
	sync  uint32 // 每次接受/强制移动后递增，用于丢弃过期意图
	level *Level

	out Sender
}

// NewOccupant 创建玩家，随机分配 24 位颜色
func NewOccupant(id uint32, out Sender) *Occupant {
	return &Occupant{
		id:     id,
		handle: ulid.Make(),
		color:  rand.Uint32() & 0xFFFFFF,
		out:    out,
	}
}

func (o *Occupant) ID() uint32     { return o.id }
func (o *Occupant) Handle() string { return o.handle.String() }
func (o *Occupant) Color() uint32  { return o.color }
func (o *Occupant) Pos() Point     { return o.pos }
func (o *Occupant) Sync() uint32   { return o.sync }

// Level 当前所属关卡，未加入时为 nil
func (o *Occupant) Level() *Level { return o.level }

// Send 发送失败不影响调用方
func (o *Occupant) Send(b []byte) {
	if o.out != nil {
		o.out.Enqueue(b)
	}
}

func (o *Occupant) in(h Host) bool {
	return o.level != nil && h != nil && Host(o.level) == h
}

// HandleMessage 解码并执行一条入站消息；格式错误返回 ErrMalformedMessage，
// 过期的同步计数静默忽略。
func (o *Occupant) HandleMessage(raw []byte) error {
	m, err := DecodeClientMessage(raw)
	if err != nil {
		if o.level != nil {
			o.level.metrics.IncMalformed()
		}
		return err
	}
	if o.level == nil {
		return nil
	}
	switch m.Type {
	case MsgMove:
		o.Move(m.Pos, m.Sync)
	case MsgClick:
		o.Click(m.Pos, m.Sync)
	case MsgDraw:
		o.Draw(m.Pos, m.End)
	}
	return nil
}

// Move 按客户端意图移动。sync 小于当前计数时丢弃；
// 实际可达点与请求点不同时发送重同步。完整到达请求点时返回 true。
func (o *Occupant) Move(target Point, sync uint32) bool {
	l := o.level
	if l == nil {
		return false
	}
	if sync < o.sync {
		l.metrics.IncStaleSyncIgnored()
		return false
	}
	reached := Walk(o.pos, target, l.grid)
	o.sync = nextSync(sync)
	o.pos = reached
	l.markMoved(o)
	if reached != target {
		o.resync()
		return false
	}
	l.metrics.IncMovesAccepted()
	return true
}

// Click 先移动到点击位置，只有完整到达才记录点击
func (o *Occupant) Click(target Point, sync uint32) bool {
	if !o.Move(target, sync) {
		return false
	}
	return o.level.AddClick(target)
}

// Draw 记录一条画线
func (o *Occupant) Draw(a, b Point) bool {
	if o.level == nil {
		return false
	}
	return o.level.AddLine(Line{A: a, B: b})
}

// resync 递增计数并把权威位置推送给客户端
func (o *Occupant) resync() {
	o.sync = nextSync(o.sync)
	o.Send(EncodeTeleportClient(o.pos, o.sync))
	if o.level != nil {
		o.level.metrics.IncResyncs()
	}
}

// nextSync 计数到顶后保持不变，不回绕到 0
func nextSync(s uint32) uint32 {
	if s == math.MaxUint32 {
		return s
	}
	return s + 1
}

func (o *Occupant) serialize(w *Writer) {
	w.U32(o.id)
	w.Coord(o.pos.X)
	w.Coord(o.pos.Y)
	w.U32(o.color)
}
