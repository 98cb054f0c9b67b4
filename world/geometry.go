package world

// 地图坐标空间（所有关卡共用）
const (
	MapWidth  = 400
	MapHeight = 300
)

// Point 网格坐标点
type Point struct {
	X int
	Y int
}

// Box 轴对齐矩形：[X, X+W) × [Y, Y+H)，W/H 可为 0（点对象）
type Box struct {
	X int
	Y int
	W int
	H int
}

// Contains 包含检测：最小边包含，最大边不包含
func (b Box) Contains(p Point) bool {
	return p.X >= b.X && p.X < b.X+b.W && p.Y >= b.Y && p.Y < b.Y+b.H
}

// Intersects 两个矩形是否有公共格子
func (b Box) Intersects(o Box) bool {
	return b.X < o.X+o.W && o.X < b.X+b.W && b.Y < o.Y+o.H && o.Y < b.Y+b.H
}

// Empty 零面积矩形不覆盖任何格子
func (b Box) Empty() bool {
	return b.W <= 0 || b.H <= 0
}
