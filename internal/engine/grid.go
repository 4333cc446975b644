package engine

import "math"

const (
	minCellSize = 16.0
	maxGridDim  = 256
)

// grid is a uniform spatial hash used as the broad phase for impacts.
// Coordinates outside the board are clamped to the border cells, so items
// that left the board are still found.
type grid struct {
	cellSize   float64
	cols, rows int
	cells      [][]int
}

func newGrid(board Size, largest float64) *grid {
	cell := math.Max(2*largest, minCellSize)
	cols := int(math.Ceil(board.Width/cell)) + 1
	rows := int(math.Ceil(board.Height/cell)) + 1
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	if cols > maxGridDim {
		cols = maxGridDim
	}
	if rows > maxGridDim {
		rows = maxGridDim
	}
	return &grid{
		cellSize: cell,
		cols:     cols,
		rows:     rows,
		cells:    make([][]int, cols*rows),
	}
}

func clampCell(v float64, size float64, n int) int {
	c := int(math.Floor(v / size))
	if c < 0 {
		return 0
	}
	if c >= n {
		return n - 1
	}
	return c
}

func (g *grid) bounds(p Point, radius float64) (minCX, maxCX, minCY, maxCY int) {
	minCX = clampCell(p.X-radius, g.cellSize, g.cols)
	maxCX = clampCell(p.X+radius, g.cellSize, g.cols)
	minCY = clampCell(p.Y-radius, g.cellSize, g.rows)
	maxCY = clampCell(p.Y+radius, g.cellSize, g.rows)
	return
}

// insert adds idx to every cell overlapping the circle's bounding box
func (g *grid) insert(p Point, radius float64, idx int) {
	minCX, maxCX, minCY, maxCY := g.bounds(p, radius)
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			i := cy*g.cols + cx
			g.cells[i] = append(g.cells[i], idx)
		}
	}
}

// query appends to buf the indices in cells overlapping the bounding box.
// An index may appear more than once.
func (g *grid) query(p Point, radius float64, buf []int) []int {
	minCX, maxCX, minCY, maxCY := g.bounds(p, radius)
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			buf = append(buf, g.cells[cy*g.cols+cx]...)
		}
	}
	return buf
}
