package world

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// 每 Tick 输入上限（控制广播帧大小）
const (
	DefaultMaxClicks          = 100
	DefaultMaxLines           = 80
	DefaultLineOccupancyLimit = 30
	MaxOccupantRecords        = 100
)

// Limits 每 Tick 输入准入限制，超出部分静默丢弃
type Limits struct {
	MaxClicks          int `yaml:"max_clicks" json:"maxClicks"`
	MaxLines           int `yaml:"max_lines" json:"maxLines"`
	LineOccupancyLimit int `yaml:"line_occupancy_limit" json:"lineOccupancyLimit"` // 房间人数低于该值时才接受画线
}

// DefaultLimits 默认准入限制
func DefaultLimits() Limits {
	return Limits{
		MaxClicks:          DefaultMaxClicks,
		MaxLines:           DefaultMaxLines,
		LineOccupancyLimit: DefaultLineOccupancyLimit,
	}
}

// Router 跨关卡操作（由关卡管理器实现并串行化）
type Router interface {
	Transfer(o *Occupant, levelID int) error
	TotalOccupants() int
}

// Line 画线
type Line struct {
	A Point
	B Point
}

// LevelConfig 构造关卡的参数，零值字段使用默认值
type LevelConfig struct {
	Name   string
	Spawn  Point
	Width  int
	Height int
	Limits Limits
	Logger *zap.SugaredLogger
	Clock  func() time.Time
}

// Level 独立推进的房间：拥有网格、对象与玩家名单
type Level struct {
	id     int
	name   string
	spawn  Point
	grid   *Grid
	limits Limits
	router Router
	log    *zap.SugaredLogger
	clock  func() time.Time

	objects   *OrderedSet[Object]
	occupants *OrderedSet[*Occupant]
	nextID    uint32
	tick      uint64
	active    bool

	// 每 Tick 累加器
	moved        *OrderedSet[*Occupant]
	clicks       *OrderedSet[Point]
	lines        *OrderedSet[Line]
	dirty        *OrderedSet[Object]
	removed      *OrderedSet[uint32]
	countChanged bool

	metrics *LevelMetrics
}

// NewLevel 创建空关卡；出生点必须在网格内
func NewLevel(cfg LevelConfig) (*Level, error) {
	if cfg.Width <= 0 {
		cfg.Width = MapWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = MapHeight
	}
	if cfg.Limits == (Limits{}) {
		cfg.Limits = DefaultLimits()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	l := &Level{
		id:        -1,
		name:      cfg.Name,
		spawn:     cfg.Spawn,
		grid:      NewGrid(cfg.Width, cfg.Height),
		limits:    cfg.Limits,
		log:       cfg.Logger.With("level", cfg.Name),
		clock:     cfg.Clock,
		objects:   NewOrderedSet[Object](),
		occupants: NewOrderedSet[*Occupant](),
		moved:     NewOrderedSet[*Occupant](),
		clicks:    NewOrderedSet[Point](),
		lines:     NewOrderedSet[Line](),
		dirty:     NewOrderedSet[Object](),
		removed:   NewOrderedSet[uint32](),
		metrics:   &LevelMetrics{},
	}
	if !l.grid.InBounds(cfg.Spawn) {
		return nil, fmt.Errorf("level %q spawn %v: %w", cfg.Name, cfg.Spawn, ErrOutOfBounds)
	}
	return l, nil
}

// Attach 由管理器注册时调用，分配关卡 id 与路由
func (l *Level) Attach(id int, r Router) {
	l.id = id
	l.router = r
}

func (l *Level) ID() int                    { return l.id }
func (l *Level) Name() string               { return l.name }
func (l *Level) Grid() *Grid                { return l.grid }
func (l *Level) Metrics() *LevelMetrics     { return l.metrics }
func (l *Level) Active() bool               { return l.active }
func (l *Level) OccupantCount() int         { return l.occupants.Len() }
func (l *Level) Objects() []Object          { return l.objects.Items() }
func (l *Level) Occupants() []*Occupant     { return l.occupants.Items() }
func (l *Level) Limits() Limits             { return l.limits }
func (l *Level) SetLimits(lim Limits)       { l.limits = lim }
func (l *Level) Logger() *zap.SugaredLogger { return l.log }

// Host 实现

func (l *Level) NowMillis() int64  { return l.clock().UnixMilli() }
func (l *Level) TickCount() uint64 { return l.tick }
func (l *Level) Spawn() Point      { return l.spawn }

// AddGameObject 放入对象并分配 id（首次放置时）。重复添加为空操作；
// 越界时返回 ErrOutOfBounds 且网格不变。添加墙体会立即检查卡墙玩家。
func (l *Level) AddGameObject(obj Object) error {
	if l.objects.Has(obj) {
		return nil
	}
	b := obj.base()
	if err := l.grid.checkBox(b.box); err != nil {
		return fmt.Errorf("level %q add %s: %w", l.name, b.kind, err)
	}
	// 传送目标点落在网格外会让玩家永久卡住
	if tp, ok := obj.(*Teleport); ok && tp.target.Point != nil && !l.grid.InBounds(*tp.target.Point) {
		return fmt.Errorf("level %q add %s target %v: %w", l.name, b.kind, *tp.target.Point, ErrOutOfBounds)
	}
	if !b.placed {
		l.nextID++
		b.id = l.nextID
		b.placed = true
	}
	b.host = l
	l.objects.Add(obj)
	if b.refs == 0 {
		l.place(obj)
	}
	return nil
}

// RemoveGameObject 永久移除对象；不存在时为空操作。id 保留用于移除帧。
func (l *Level) RemoveGameObject(obj Object) {
	if !l.objects.Has(obj) {
		return
	}
	b := obj.base()
	if b.active {
		l.unplace(obj)
	}
	l.objects.Remove(obj)
	l.dirty.Remove(obj)
	l.removed.Add(b.id)
}

// Deactivate 引用计数式关闭：第一次关闭立即移出网格与广播，之后只累加计数
func (l *Level) Deactivate(obj Object) {
	b := obj.base()
	b.refs++
	if b.refs == 1 && b.active {
		l.unplace(obj)
		l.dirty.Remove(obj)
		l.removed.Add(b.id)
	}
}

// Activate 抵消一次关闭请求，计数恰好归零时恢复网格占用
func (l *Level) Activate(obj Object) {
	b := obj.base()
	if b.refs > 0 {
		b.refs--
	}
	if b.refs == 0 && !b.active && l.objects.Has(obj) {
		l.place(obj)
	}
}

// ActivateGroup 打开/关闭指定颜色的所有墙体
func (l *Level) ActivateGroup(color uint32, active bool) {
	for _, obj := range l.objects.Items() {
		w, ok := obj.(*Wall)
		if !ok || w.Color != color {
			continue
		}
		if active {
			l.Activate(w)
		} else {
			l.Deactivate(w)
		}
	}
}

// place 标记网格并进入更新列表；调用前已校验边界
func (l *Level) place(obj Object) {
	b := obj.base()
	if err := l.grid.Mark(b.box, LayerOf(b.kind)); err != nil {
		l.log.Errorw("mark failed", "object", b.id, "kind", b.kind, "err", err)
		return
	}
	b.active = true
	l.removed.Remove(b.id)
	l.dirty.Add(obj)
	if b.kind == KindWall {
		l.sweepStuck()
	}
}

// unplace 清除网格后，让同类型且相交的其他存活对象重新标记
func (l *Level) unplace(obj Object) {
	b := obj.base()
	layer := LayerOf(b.kind)
	l.grid.Unmark(b.box, layer)
	b.active = false
	l.reconcile(obj, b.box, layer)
}

func (l *Level) reconcile(skip Object, cleared Box, layer Layer) {
	kind := skip.base().kind
	for _, other := range l.objects.Items() {
		ob := other.base()
		if other == skip || !ob.active || ob.kind != kind || !ob.box.Intersects(cleared) {
			continue
		}
		if err := l.grid.Mark(ob.box, layer); err != nil {
			l.log.Errorw("reconcile mark failed", "object", ob.id, "err", err)
		}
	}
}

// Join 玩家加入本关卡：离开旧关卡，放到出生点并下发 LOAD_LEVEL
func (l *Level) Join(o *Occupant) {
	prev := o.level
	if prev != nil && prev != l {
		prev.Leave(o)
	}
	if !l.active {
		l.active = true
		l.log.Infow("level activated", "occupant", o.id)
	}
	l.occupants.Add(o)
	o.level = l
	l.countChanged = true
	if prev != nil {
		// 使旧位置上仍在途中的意图失效
		o.sync = nextSync(o.sync)
	}
	o.pos = l.spawn
	l.markMoved(o)
	o.Send(l.encodeLoadLevel(o.sync))
}

// Leave 玩家离开本关卡，通知所有对象
func (l *Level) Leave(o *Occupant) {
	if !l.occupants.Has(o) {
		return
	}
	l.occupants.Remove(o)
	l.moved.Remove(o)
	o.level = nil
	l.countChanged = true
	for _, obj := range l.objects.Items() {
		if l.safeHook(obj, "leave", func() bool { return obj.OnLeave(o) }) {
			l.dirty.Add(obj)
		}
	}
}

// Reposition 服务端强制移动：绕过同步计数检查并发送重同步
func (l *Level) Reposition(o *Occupant, p Point) {
	if o.level != l {
		return
	}
	o.pos = p
	o.resync()
	l.markMoved(o)
}

// Transfer 把玩家送到另一关卡
func (l *Level) Transfer(o *Occupant, levelID int) error {
	if l.router != nil {
		return l.router.Transfer(o, levelID)
	}
	if levelID == l.id {
		l.Join(o)
		return nil
	}
	return fmt.Errorf("level %d: %w", levelID, ErrUnknownLevel)
}

// AddClick 记录点击；超过每 Tick 上限时丢弃
func (l *Level) AddClick(p Point) bool {
	if l.clicks.Len() >= l.limits.MaxClicks {
		l.metrics.IncClicksDropped()
		return false
	}
	if l.clicks.Add(p) {
		l.metrics.IncClicksAccepted()
	}
	return true
}

// AddLine 记录画线：房间人数不低于阈值、超过上限或越界时丢弃
func (l *Level) AddLine(ln Line) bool {
	if l.occupants.Len() >= l.limits.LineOccupancyLimit ||
		l.lines.Len() >= l.limits.MaxLines ||
		!l.grid.InBounds(ln.A) || !l.grid.InBounds(ln.B) {
		l.metrics.IncLinesDropped()
		return false
	}
	if l.lines.Add(ln) {
		l.metrics.IncLinesAccepted()
	}
	return true
}

func (l *Level) markMoved(o *Occupant) {
	l.moved.Add(o)
}

// sweepStuck 把站在墙里的玩家挪到最近的空闲格子
func (l *Level) sweepStuck() {
	wall := LayerOf(KindWall)
	for _, o := range l.occupants.Items() {
		if !l.grid.Query(o.pos).Has(wall) {
			continue
		}
		p := Unstuck(o.pos, l.grid)
		if p == o.pos {
			l.log.Warnw("occupant stuck with no free cell", "occupant", o.id, "x", p.X, "y", p.Y)
			continue
		}
		l.Reposition(o, p)
	}
}

// safeHook 隔离单个对象钩子的异常：记录日志后继续本 Tick
func (l *Level) safeHook(obj Object, hook string, fn func() bool) (changed bool) {
	defer func() {
		if r := recover(); r != nil {
			b := obj.base()
			l.metrics.IncHookFaults()
			l.log.Errorw("object hook panicked",
				"object", b.id, "kind", b.kind, "hook", hook, "panic", r)
			changed = false
		}
	}()
	return fn()
}

func (l *Level) encodeLoadLevel(sync uint32) []byte {
	w := NewWriter(256)
	w.U8(MsgLoadLevel)
	w.Coord(l.spawn.X)
	w.Coord(l.spawn.Y)
	l.writeObjects(w, l.liveObjects(l.objects.Items()))
	w.U32(sync)
	return w.Bytes()
}

// writeObjects 写出计数和对象记录。Serialize 异常的对象整条跳过，
// 计数按实际写出的记录回填。
func (l *Level) writeObjects(w *Writer, objs []Object) {
	at := w.Len()
	w.U16(0)
	n := 0
	for _, obj := range objs {
		mark := w.Len()
		if !l.safeHook(obj, "serialize", func() bool { obj.Serialize(w); return true }) {
			w.truncate(mark)
			continue
		}
		n++
	}
	w.putU16At(at, uint16(n))
}

func (l *Level) liveObjects(objs []Object) []Object {
	out := objs[:0:0]
	for _, obj := range objs {
		if obj.base().active {
			out = append(out, obj)
		}
	}
	return out
}
