package server

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cursorworld/content"
	"cursorworld/world"
)

type captureSender struct {
	mu     sync.Mutex
	frames [][]byte
}

func (c *captureSender) Enqueue(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, append([]byte(nil), b...))
}

func (c *captureSender) byTag(tag uint8) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out [][]byte
	for _, f := range c.frames {
		if len(f) > 0 && f[0] == tag {
			out = append(out, f)
		}
	}
	return out
}

// brokenSender 在广播帧上出错的连接
type brokenSender struct{}

func (brokenSender) Enqueue(b []byte) {
	if len(b) > 0 && b[0] == world.MsgUpdateData {
		panic("enqueue failed")
	}
}

func newTestManager(t *testing.T) *LevelManager {
	t.Helper()
	doc, err := content.Default()
	require.NoError(t, err)
	clock := func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	levels, err := content.Build(doc, content.Options{Clock: clock})
	require.NoError(t, err)
	m, err := NewLevelManager(DefaultConfig(), levels, nil)
	require.NoError(t, err)
	return m
}

func totalOccupants(frame []byte) uint16 {
	return binary.LittleEndian.Uint16(frame[len(frame)-2:])
}

func TestNewLevelManagerErrors(t *testing.T) {
	_, err := NewLevelManager(DefaultConfig(), nil, nil)
	assert.Error(t, err)

	l, err := world.NewLevel(world.LevelConfig{Name: "only", Spawn: world.Point{X: 1, Y: 1}})
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.DefaultLevel = 3
	_, err = NewLevelManager(cfg, []*world.Level{l}, nil)
	assert.ErrorIs(t, err, world.ErrUnknownLevel)
}

func TestConnectMoveTickDisconnect(t *testing.T) {
	m := newTestManager(t)
	out := &captureSender{}
	o, err := m.Connect(out)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(out.frames), 2)
	assert.Equal(t, world.EncodeSetClientID(o.ID()), out.frames[0])
	assert.Equal(t, world.MsgLoadLevel, out.frames[1][0])

	other := &captureSender{}
	_, err = m.Connect(other)
	require.NoError(t, err)

	m.HandleMessage(o.ID(), world.EncodeMove(world.Point{X: 210, Y: 60}, 0))
	m.HandleMessage(o.ID(), []byte{0xFF})
	m.Tick()

	updates := out.byTag(world.MsgUpdateData)
	require.Len(t, updates, 1)
	assert.Equal(t, uint16(2), totalOccupants(updates[0]))
	assert.Equal(t, world.Point{X: 210, Y: 60}, o.Pos())

	info, snap, err := m.LevelMetrics(0)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Occupants)
	assert.Equal(t, int64(1), snap["moves_accepted"])
	assert.Equal(t, int64(1), snap["malformed"])

	m.Disconnect(o.ID())
	m.Disconnect(o.ID())
	assert.Nil(t, o.Level())
	assert.Equal(t, 1, m.LevelInfos()[0].Occupants)

	// 已断开的连接上的消息直接忽略
	m.HandleMessage(o.ID(), world.EncodeMove(world.Point{X: 0, Y: 0}, 5))
	assert.Equal(t, world.Point{X: 210, Y: 60}, o.Pos())
}

func TestJoinLevel(t *testing.T) {
	m := newTestManager(t)
	out := &captureSender{}
	o, err := m.Connect(out)
	require.NoError(t, err)

	assert.ErrorIs(t, m.Join(o.ID(), 7), world.ErrUnknownLevel)
	assert.Error(t, m.Join(999, 1))

	require.NoError(t, m.Join(o.ID(), 2))
	assert.Len(t, out.byTag(world.MsgLoadLevel), 2)
	assert.Equal(t, world.Point{X: 200, Y: 200}, o.Pos())

	infos := m.LevelInfos()
	require.Len(t, infos, 3)
	assert.Equal(t, 0, infos[0].Occupants)
	assert.Equal(t, 1, infos[2].Occupants)
	assert.Equal(t, "End", infos[2].Name)

	m.Tick()
	assert.False(t, m.LevelInfos()[0].Active)
	assert.True(t, m.LevelInfos()[2].Active)
}

func TestTeleportAcrossLevels(t *testing.T) {
	m := newTestManager(t)
	out := &captureSender{}
	o, err := m.Connect(out)
	require.NoError(t, err)

	// 关卡 0 底部的传送门通往关卡 1，途中有粉色墙
	m.HandleMessage(o.ID(), world.EncodeMove(world.Point{X: 200, Y: 280}, 0))
	assert.Equal(t, world.Point{X: 200, Y: 219}, o.Pos())
	require.Len(t, out.byTag(world.MsgTeleportClient), 1)

	require.NoError(t, m.Join(o.ID(), 0))
	seq := o.Sync()
	m.mu.Lock()
	m.levels[0].ActivateGroup(world.ColorPink, false)
	m.mu.Unlock()
	m.HandleMessage(o.ID(), world.EncodeMove(world.Point{X: 200, Y: 280}, seq))
	m.Tick()

	assert.Same(t, m.levels[1], o.Level())
	assert.Equal(t, world.Point{X: 200, Y: 150}, o.Pos())
}

func TestTickIsolatesFailingLevel(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Connect(brokenSender{})
	require.NoError(t, err)

	out := &captureSender{}
	o, err := m.Connect(out)
	require.NoError(t, err)
	require.NoError(t, m.Join(o.ID(), 2))

	require.NotPanics(t, m.Tick)
	assert.Len(t, out.byTag(world.MsgUpdateData), 1, "later levels still tick")
	require.NotPanics(t, m.Tick)
	assert.Equal(t, uint64(2), m.LevelInfos()[2].Tick)
}

func TestSetLimitsAppliesToAllLevels(t *testing.T) {
	m := newTestManager(t)
	lim := world.Limits{MaxClicks: 5, MaxLines: 6, LineOccupancyLimit: 7}
	m.SetLimits(lim)
	assert.Equal(t, lim, m.Limits())
	for _, l := range m.levels {
		assert.Equal(t, lim, l.Limits())
	}
}

func TestStartTicker(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Connect(&captureSender{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartTicker(ctx)
	m.StartTicker(ctx)

	require.Eventually(t, func() bool { return m.LevelInfos()[0].Tick >= 2 },
		2*time.Second, 10*time.Millisecond)
	cancel()
}
