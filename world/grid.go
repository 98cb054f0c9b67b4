package world

import "fmt"

// Layer 每种对象类型占用一个比特位
type Layer uint8

// LayerOf 返回对象类型对应的图层位
func LayerOf(k Kind) Layer {
	return Layer(1) << uint(k)
}

// Has 是否包含指定图层
func (l Layer) Has(o Layer) bool {
	return l&o != 0
}

// Grid 占用网格：每个格子保存当前覆盖它的对象类型位集合
type Grid struct {
	width  int
	height int
	cells  []Layer // 按 y*width+x 展平
}

// NewGrid 创建指定尺寸的空网格
func NewGrid(width, height int) *Grid {
	return &Grid{
		width:  width,
		height: height,
		cells:  make([]Layer, width*height),
	}
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

// InBounds 坐标是否在网格内
func (g *Grid) InBounds(p Point) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

// checkBox 先整体校验，再修改任何格子
func (g *Grid) checkBox(b Box) error {
	if b.X < 0 || b.Y < 0 || b.W < 0 || b.H < 0 || b.X+b.W > g.width || b.Y+b.H > g.height {
		return fmt.Errorf("box %v in %dx%d grid: %w", b, g.width, g.height, ErrOutOfBounds)
	}
	// 点对象也要求锚点在网格内
	if b.Empty() && !g.InBounds(Point{X: b.X, Y: b.Y}) {
		return fmt.Errorf("point %d,%d in %dx%d grid: %w", b.X, b.Y, g.width, g.height, ErrOutOfBounds)
	}
	return nil
}

// Mark 为矩形覆盖的每个格子置位；越界时整体拒绝，不修改网格
func (g *Grid) Mark(b Box, layer Layer) error {
	if err := g.checkBox(b); err != nil {
		return err
	}
	for y := b.Y; y < b.Y+b.H; y++ {
		row := y * g.width
		for x := b.X; x < b.X+b.W; x++ {
			g.cells[row+x] |= layer
		}
	}
	return nil
}

// Unmark 清除矩形覆盖格子的图层位（越界部分忽略）。
// 调用方需随后让同类型的其他存活对象重新 Mark，见 Level.reconcile。
func (g *Grid) Unmark(b Box, layer Layer) {
	x0, y0 := max(b.X, 0), max(b.Y, 0)
	x1, y1 := min(b.X+b.W, g.width), min(b.Y+b.H, g.height)
	for y := y0; y < y1; y++ {
		row := y * g.width
		for x := x0; x < x1; x++ {
			g.cells[row+x] &^= layer
		}
	}
}

// Query O(1) 查询某点的图层集合，越界返回 0
func (g *Grid) Query(p Point) Layer {
	if !g.InBounds(p) {
		return 0
	}
	return g.cells[p.Y*g.width+p.X]
}

// Blocked 越界或被墙占据
func (g *Grid) Blocked(p Point) bool {
	return !g.InBounds(p) || g.Query(p).Has(LayerOf(KindWall))
}
