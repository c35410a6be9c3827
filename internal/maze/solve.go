package maze

import (
	"github.com/ironsheep/maze-ar-mcp/internal/geom"
)

// directions is the neighbour expansion order: right, down, left, up.
// It only decides which of several equally short paths is returned.
var directions = [4][2]int{
	{1, 0},
	{0, 1},
	{-1, 0},
	{0, -1},
}

// Solve finds a shortest 4-connected path from m.Start to m.End.
//
// Parameters:
//   - m: A detected maze with both endpoints set. Endpoints are rounded to
//     the nearest cell.
//
// Returns:
//   - Solution: Found with the path from start to end inclusive, one point
//     per cell, each step moving one cell horizontally or vertically. The
//     path length in steps is Length(). When start equals end the path is
//     that single cell.
//
// Solve has no error return. A nil maze, a missing endpoint, an endpoint
// outside the grid or on a wall, and disconnected endpoints all produce an
// unsolved Solution with an empty path.
//
// The search is a breadth-first traversal with a flat visited set and
// backpointers, so it runs in O(W·H) time and space. Identical inputs always
// produce the identical path.
func Solve(m *Maze) Solution {
	if m == nil || m.Grid == nil || m.Start == nil || m.End == nil {
		return unsolved()
	}
	if !m.ValidPoint(*m.Start) || !m.ValidPoint(*m.End) {
		return unsolved()
	}

	g := m.Grid
	sx, sy := m.Start.Cell()
	ex, ey := m.End.Cell()
	start := sy*g.Width + sx
	end := ey*g.Width + ex

	// prev[i] is the index the search reached cell i from, -1 for the start
	// and unvisited cells alike; visited disambiguates.
	prev := make([]int32, g.Width*g.Height)
	visited := make([]bool, g.Width*g.Height)
	queue := make([]int32, 0, 64)

	visited[start] = true
	prev[start] = -1
	queue = append(queue, int32(start))

	for head := 0; head < len(queue); head++ {
		cur := int(queue[head])
		if cur == end {
			return Solution{Path: backtrack(prev, cur, g.Width), Found: true}
		}

		x, y := cur%g.Width, cur/g.Width
		for _, d := range directions {
			nx, ny := x+d[0], y+d[1]
			if !g.Navigable(nx, ny) {
				continue
			}
			n := ny*g.Width + nx
			if visited[n] {
				continue
			}
			visited[n] = true
			prev[n] = int32(cur)
			queue = append(queue, int32(n))
		}
	}

	return unsolved()
}

// backtrack walks the backpointers from end to the start and returns the
// path in start-to-end order.
func backtrack(prev []int32, end, width int) []geom.Point {
	n := 0
	for i := end; i != -1; i = int(prev[i]) {
		n++
	}
	path := make([]geom.Point, n)
	for i := end; i != -1; i = int(prev[i]) {
		n--
		path[n] = geom.Pt(i%width, i/width)
	}
	return path
}

// SolveBetween sets the endpoints on m and solves it.
func SolveBetween(m *Maze, start, end geom.Point) Solution {
	m.SetEndpoints(start, end)
	return Solve(m)
}
