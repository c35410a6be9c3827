// Package geom holds the point and transform types shared by the maze,
// tracking and rendering packages.
//
// # Coordinate Spaces
//
// Two coordinate spaces are in play and each has its own type:
//   - Point: the maze's original image-pixel space (the frame the maze was
//     detected in). Grid cells and solved paths live here.
//   - FramePoint: the space of the most recently observed frame. Only a
//     Matrix produces FramePoints from Points.
//
// Both use the image convention: origin at the top-left, X rightward, Y downward.
package geom

import "math"

// Point is a position in maze space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for constructing a maze-space point from integer cell coordinates.
func Pt(x, y int) Point {
	return Point{X: float64(x), Y: float64(y)}
}

// Cell returns the grid cell the point falls in, rounding to the nearest integer.
func (p Point) Cell() (x, y int) {
	return int(math.Round(p.X)), int(math.Round(p.Y))
}

// FramePoint is a position in the coordinate space of the current frame.
type FramePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the Euclidean distance between two frame-space points.
func (p FramePoint) Dist(q FramePoint) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Matrix is a 3x3 projective transform stored row-major as
// [a b c; d e f; g h i], mapping maze space into frame space.
type Matrix [9]float64

// Identity is the transform used before any estimate exists.
var Identity = Matrix{1, 0, 0, 0, 1, 0, 0, 0, 1}

// Translation returns a matrix that shifts every point by (dx, dy).
func Translation(dx, dy float64) Matrix {
	return Matrix{1, 0, dx, 0, 1, dy, 0, 0, 1}
}

// Apply maps p through the matrix using homogeneous division:
//
//	x' = (a·x + b·y + c) / (g·x + h·y + i)
//	y' = (d·x + e·y + f) / (g·x + h·y + i)
//
// A zero denominator (a point on the line at infinity) yields ±Inf or NaN
// coordinates; callers that need finite output should check IsFinite.
func (m Matrix) Apply(p Point) FramePoint {
	w := m[6]*p.X + m[7]*p.Y + m[8]
	return FramePoint{
		X: (m[0]*p.X + m[1]*p.Y + m[2]) / w,
		Y: (m[3]*p.X + m[4]*p.Y + m[5]) / w,
	}
}

// ApplyPath maps every point of path, preserving order.
func (m Matrix) ApplyPath(path []Point) []FramePoint {
	out := make([]FramePoint, len(path))
	for i, p := range path {
		out[i] = m.Apply(p)
	}
	return out
}

// Normalized scales the matrix so that its bottom-right entry is 1.
// Matrices with a zero bottom-right entry are returned unchanged.
func (m Matrix) Normalized() Matrix {
	if m[8] == 0 {
		return m
	}
	var out Matrix
	for i, v := range m {
		out[i] = v / m[8]
	}
	return out
}

// IsAffine reports whether the projective row is (0, 0, 1) after normalization.
func (m Matrix) IsAffine() bool {
	n := m.Normalized()
	return n[6] == 0 && n[7] == 0 && n[8] == 1
}

// IsFinite reports whether every entry is a finite number.
func (m Matrix) IsFinite() bool {
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Mul returns the product m·n, i.e. the transform that applies n first, then m.
func (m Matrix) Mul(n Matrix) Matrix {
	var out Matrix
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += m[r*3+k] * n[k*3+c]
			}
			out[r*3+c] = sum
		}
	}
	return out
}
