package server

import (
	"errors"
	"fmt"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	"cursorworld/world"
)

// LevelManager 管理所有关卡与连接玩家。
// 所有入口（连接、消息、Tick、管理接口）都持有同一把锁，
// 保证关卡 Tick 与玩家消息、跨关卡传送互不交错。
type LevelManager struct {
	mu        deadlock.Mutex
	cfg       Config
	levels    []*world.Level
	occupants map[uint32]*world.Occupant
	handles   map[string]*world.Occupant // ULID 句柄 -> 玩家，供管理接口按日志里的句柄查找
	nextID    uint32
	log       *zap.SugaredLogger

	tickerStarted bool
}

// NewLevelManager 注册关卡：关卡 id 即其在切片中的下标
func NewLevelManager(cfg Config, levels []*world.Level, logger *zap.SugaredLogger) (*LevelManager, error) {
	if len(levels) == 0 {
		return nil, errors.New("level manager: no levels")
	}
	if cfg.DefaultLevel < 0 || cfg.DefaultLevel >= len(levels) {
		return nil, fmt.Errorf("default level %d: %w", cfg.DefaultLevel, world.ErrUnknownLevel)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	m := &LevelManager{
		cfg:       cfg,
		levels:    levels,
		occupants: make(map[uint32]*world.Occupant),
		handles:   make(map[string]*world.Occupant),
		log:       logger.Named("levels"),
	}
	for i, l := range levels {
		l.Attach(i, m)
		l.SetLimits(cfg.Limits)
	}
	m.log.Infow("levels loaded", "count", len(levels))
	return m, nil
}

// Transfer 实现 world.Router：调用方已持有锁（关卡 Tick 或入口函数内）
func (m *LevelManager) Transfer(o *world.Occupant, levelID int) error {
	if levelID < 0 || levelID >= len(m.levels) {
		return fmt.Errorf("level %d: %w", levelID, world.ErrUnknownLevel)
	}
	m.levels[levelID].Join(o)
	return nil
}

// TotalOccupants 实现 world.Router：全服在线人数
func (m *LevelManager) TotalOccupants() int {
	return len(m.occupants)
}

// Connect 新连接：分配 id，下发 SET_CLIENT_ID 并加入默认关卡
func (m *LevelManager) Connect(out world.Sender) (*world.Occupant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	o := world.NewOccupant(m.nextID, out)
	m.occupants[o.ID()] = o
	o.Send(world.EncodeSetClientID(o.ID()))
	if err := m.Transfer(o, m.cfg.DefaultLevel); err != nil {
		delete(m.occupants, o.ID())
		return nil, err
	}
	m.handles[o.Handle()] = o
	m.log.Infow("occupant connected", "occupant", o.ID(), "handle", o.Handle(), "level", m.cfg.DefaultLevel)
	return o, nil
}

// Disconnect 连接关闭：离开所在关卡并移除
func (m *LevelManager) Disconnect(id uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.occupants[id]
	if !ok {
		return
	}
	if l := o.Level(); l != nil {
		l.Leave(o)
	}
	delete(m.occupants, id)
	delete(m.handles, o.Handle())
	m.log.Infow("occupant disconnected", "occupant", id, "handle", o.Handle())
}

// HandleMessage 同步处理一条入站消息；格式错误的消息被丢弃，连接保持
func (m *LevelManager) HandleMessage(id uint32, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.occupants[id]
	if !ok {
		return
	}
	if err := o.HandleMessage(raw); err != nil {
		m.log.Debugw("message dropped", "occupant", id, "bytes", len(raw), "err", err)
	}
}

// Join 把玩家移到指定关卡（管理接口使用）
func (m *LevelManager) Join(id uint32, levelID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.occupants[id]
	if !ok {
		return fmt.Errorf("occupant %d not connected", id)
	}
	return m.Transfer(o, levelID)
}

// Tick 依次推进所有关卡
func (m *LevelManager) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.levels {
		m.tickLevel(l)
	}
}

// tickLevel 单个关卡的异常不能带走整个 ticker 协程
func (m *LevelManager) tickLevel(l *world.Level) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Errorw("level tick panicked", "level", l.ID(), "name", l.Name(), "panic", r)
		}
	}()
	l.Tick()
}

// Limits 当前输入准入限制
func (m *LevelManager) Limits() world.Limits {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Limits
}

// SetLimits 热更新所有关卡的输入准入限制
func (m *LevelManager) SetLimits(lim world.Limits) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.Limits = lim
	for _, l := range m.levels {
		l.SetLimits(lim)
	}
}

// LevelInfo 关卡概要（管理接口输出）
type LevelInfo struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	Occupants int    `json:"occupants"`
	Objects   int    `json:"objects"`
	Tick      uint64 `json:"tick"`
}

// LevelInfos 所有关卡概要
func (m *LevelManager) LevelInfos() []LevelInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LevelInfo, 0, len(m.levels))
	for _, l := range m.levels {
		out = append(out, m.info(l))
	}
	return out
}

func (m *LevelManager) info(l *world.Level) LevelInfo {
	return LevelInfo{
		ID:        l.ID(),
		Name:      l.Name(),
		Active:    l.Active(),
		Occupants: l.OccupantCount(),
		Objects:   len(l.Objects()),
		Tick:      l.TickCount(),
	}
}

// OccupantInfo 单个在线玩家的调试视图
type OccupantInfo struct {
	ID     uint32 `json:"id"`
	Handle string `json:"handle"`
	Level  int    `json:"level"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Sync   uint32 `json:"sync"`
	Color  uint32 `json:"color"`
}

// FindOccupant 按连接日志中的句柄查找在线玩家
func (m *LevelManager) FindOccupant(handle string) (OccupantInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.handles[handle]
	if !ok {
		return OccupantInfo{}, false
	}
	info := OccupantInfo{
		ID:     o.ID(),
		Handle: o.Handle(),
		Level:  -1,
		X:      o.Pos().X,
		Y:      o.Pos().Y,
		Sync:   o.Sync(),
		Color:  o.Color(),
	}
	if l := o.Level(); l != nil {
		info.Level = l.ID()
	}
	return info, true
}

// LevelMetrics 指定关卡的概要与指标
func (m *LevelManager) LevelMetrics(levelID int) (LevelInfo, map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if levelID < 0 || levelID >= len(m.levels) {
		return LevelInfo{}, nil, fmt.Errorf("level %d: %w", levelID, world.ErrUnknownLevel)
	}
	l := m.levels[levelID]
	return m.info(l), l.Metrics().Snapshot(), nil
}
