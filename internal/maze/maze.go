package maze

import (
	"github.com/ironsheep/maze-ar-mcp/internal/geom"
)

// Grid is a W×H navigability matrix stored row-major. true marks a cell a
// path may traverse, false marks a wall.
type Grid struct {
	Width  int
	Height int
	cells  []bool
}

// NewGrid returns a grid of the given size with every cell set to wall.
func NewGrid(width, height int) *Grid {
	return &Grid{Width: width, Height: height, cells: make([]bool, width*height)}
}

// GridFromRows builds a grid from rows of text, where '#' is a wall and any
// other byte is navigable. All rows must have the same length.
func GridFromRows(rows ...string) *Grid {
	if len(rows) == 0 {
		return NewGrid(0, 0)
	}
	g := NewGrid(len(rows[0]), len(rows))
	for y, row := range rows {
		for x := 0; x < g.Width && x < len(row); x++ {
			g.Set(x, y, row[x] != '#')
		}
	}
	return g
}

// InBounds reports whether (x, y) lies inside the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

// Navigable reports whether (x, y) is inside the grid and not a wall.
func (g *Grid) Navigable(x, y int) bool {
	return g.InBounds(x, y) && g.cells[y*g.Width+x]
}

// Set marks (x, y) as navigable or wall. Out-of-bounds writes are ignored.
func (g *Grid) Set(x, y int, navigable bool) {
	if g.InBounds(x, y) {
		g.cells[y*g.Width+x] = navigable
	}
}

// CountNavigable returns the number of navigable cells.
func (g *Grid) CountNavigable() int {
	n := 0
	for _, c := range g.cells {
		if c {
			n++
		}
	}
	return n
}

// Maze is a navigability grid plus the endpoints chosen by the user.
// Start and End are in maze space and are nil until set.
type Maze struct {
	Grid  *Grid
	Start *geom.Point
	End   *geom.Point
}

// Width returns the grid width.
func (m *Maze) Width() int { return m.Grid.Width }

// Height returns the grid height.
func (m *Maze) Height() int { return m.Grid.Height }

// SetEndpoints records the start and end points. It does not validate them;
// Solve reports invalid endpoints as an unsolved maze.
func (m *Maze) SetEndpoints(start, end geom.Point) {
	m.Start = &start
	m.End = &end
}

// ValidPoint reports whether p is in bounds and its nearest cell is navigable.
func (m *Maze) ValidPoint(p geom.Point) bool {
	if p.X < 0 || p.Y < 0 || p.X >= float64(m.Grid.Width) || p.Y >= float64(m.Grid.Height) {
		return false
	}
	x, y := p.Cell()
	return m.Grid.Navigable(x, y)
}

// Solution is the result of a path search. Found is true exactly when Path
// is non-empty.
type Solution struct {
	Path  []geom.Point `json:"path"`
	Found bool         `json:"found"`
}

// Length returns the number of unit moves along the path.
func (s Solution) Length() int {
	if len(s.Path) == 0 {
		return 0
	}
	return len(s.Path) - 1
}

func unsolved() Solution {
	return Solution{Path: []geom.Point{}, Found: false}
}
