package world

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type captureSender struct {
	frames [][]byte
}

func (c *captureSender) Enqueue(b []byte) {
	c.frames = append(c.frames, append([]byte(nil), b...))
}

func (c *captureSender) byTag(tag uint8) [][]byte {
	var out [][]byte
	for _, f := range c.frames {
		if len(f) > 0 && f[0] == tag {
			out = append(out, f)
		}
	}
	return out
}

func (c *captureSender) reset() { c.frames = nil }

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time          { return f.now }
func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestLevel(t *testing.T, clock *fakeClock) *Level {
	t.Helper()
	l, err := NewLevel(LevelConfig{Name: "test", Spawn: Point{X: 200, Y: 50}, Clock: clock.Now})
	require.NoError(t, err)
	l.Attach(0, nil)
	return l
}

func joinOccupant(l *Level, id uint32) (*Occupant, *captureSender) {
	out := &captureSender{}
	o := NewOccupant(id, out)
	l.Join(o)
	return o, out
}

type occupantRecord struct {
	ID    uint32
	Pos   Point
	Color uint32
}

type updateFrame struct {
	Occupants []occupantRecord
	Clicks    []Point
	Removed   []uint32
	Dirty     int
}

// decodeUpdate 解析 UPDATE_DATA 帧到对象记录之前的部分
func decodeUpdate(t *testing.T, b []byte) updateFrame {
	t.Helper()
	r := NewReader(b)
	require.Equal(t, MsgUpdateData, r.U8())
	var f updateFrame
	n := int(r.U16())
	for i := 0; i < n; i++ {
		f.Occupants = append(f.Occupants, occupantRecord{
			ID:    r.U32(),
			Pos:   Point{X: int(r.U16()), Y: int(r.U16())},
			Color: r.U32(),
		})
	}
	n = int(r.U16())
	for i := 0; i < n; i++ {
		f.Clicks = append(f.Clicks, Point{X: int(r.U16()), Y: int(r.U16())})
	}
	n = int(r.U16())
	for i := 0; i < n; i++ {
		f.Removed = append(f.Removed, r.U32())
	}
	f.Dirty = int(r.U16())
	require.NoError(t, r.Err())
	return f
}

type panicObject struct {
	ObjectBase
}

func (p *panicObject) OnTick() bool        { panic("boom") }
func (p *panicObject) Serialize(w *Writer) { p.writeHeader(w) }

// brokenRecord 每帧都标脏，但写记录时半途出错
type brokenRecord struct {
	ObjectBase
}

func (b *brokenRecord) OnTick() bool { return true }
func (b *brokenRecord) Serialize(w *Writer) {
	b.writeHeader(w)
	panic("bad record")
}

type dirtyText struct {
	ObjectBase
}

func (d *dirtyText) OnTick() bool        { return true }
func (d *dirtyText) Serialize(w *Writer) { d.writeHeader(w) }

type tickCounter struct {
	ObjectBase
	ticks int
}

func (c *tickCounter) OnTick() bool {
	c.ticks++
	return false
}

func (c *tickCounter) Serialize(w *Writer) { c.writeHeader(w) }

type testRouter struct {
	levels []*Level
}

func (r *testRouter) Transfer(o *Occupant, levelID int) error {
	if levelID < 0 || levelID >= len(r.levels) {
		return ErrUnknownLevel
	}
	r.levels[levelID].Join(o)
	return nil
}

func (r *testRouter) TotalOccupants() int {
	n := 0
	for _, l := range r.levels {
		n += l.OccupantCount()
	}
	return n
}
