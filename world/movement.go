package world

// Walk 沿 Bresenham 直线从 start 向 end 逐格前进，遇到越界或墙体的格子即停止，
// 返回最后一个可达格子（下一步就被挡住时返回 start）。起点本身不做检查。
func Walk(start, end Point, g *Grid) Point {
	dx, dy := end.X-start.X, end.Y-start.Y
	absDx, absDy := abs(dx), abs(dy)
	stepX, stepY := 1, 1
	if dx < 0 {
		stepX = -1
	}
	if dy < 0 {
		stepY = -1
	}

	err := absDx - absDy
	cur := start
	for cur != end {
		next := cur
		e2 := 2 * err
		if e2 > -absDy {
			err -= absDy
			next.X += stepX
		}
		if e2 < absDx {
			err += absDx
			next.Y += stepY
		}
		if g.Blocked(next) {
			return cur
		}
		cur = next
	}
	return cur
}

var neighborOffsets = [...]Point{
	{X: 0, Y: -1},
	{X: 1, Y: 0},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
}

// Unstuck 从被墙占据的 p 出发做四邻域广度优先搜索，返回最近的空闲格子；
// 找不到（或 p 不在网格内）时原样返回 p。
func Unstuck(p Point, g *Grid) Point {
	if !g.InBounds(p) {
		return p
	}
	visited := make([]bool, g.Width()*g.Height())
	visited[p.Y*g.Width()+p.X] = true
	queue := []Point{p}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, off := range neighborOffsets {
			n := Point{X: cur.X + off.X, Y: cur.Y + off.Y}
			if !g.InBounds(n) {
				continue
			}
			idx := n.Y*g.Width() + n.X
			if visited[idx] {
				continue
			}
			visited[idx] = true
			if !g.Blocked(n) {
				return n
			}
			queue = append(queue, n)
		}
	}
	return p
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
