// Package maze turns frames into navigability grids and finds shortest paths
// through them.
//
// # Detection
//
// Detect converts a frame to intensities (mean of R, G, B), chooses a global
// threshold with Otsu's method and marks every pixel brighter than the
// threshold as navigable. One grid cell corresponds to one pixel, so callers
// should downsample large captures first (see frame.FromImage).
//
// # Solving
//
// Solve runs a breadth-first search over 4-connected neighbours, expanding in
// the fixed order right, down, left, up. Unsolvable inputs are reported as
// data, never as errors:
//
//	sol := maze.Solve(m)
//	if !sol.Found {
//	    // missing/invalid endpoints, or no connecting path
//	}
//
// The returned path includes both endpoints and consists of unit steps, so a
// path of n points has n-1 moves.
package maze
