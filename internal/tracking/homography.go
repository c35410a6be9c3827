package tracking

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/maze-ar-mcp/internal/geom"
)

// MinCorrespondences is the smallest number of point pairs that determines a
// general projective transform.
const MinCorrespondences = 4

var (
	// ErrTooFewPoints is returned when fewer than MinCorrespondences pairs are supplied.
	ErrTooFewPoints = errors.New("too few correspondences")

	// ErrDegenerate is returned when the point configuration does not determine
	// a unique transform (coincident or collinear points) or the fit is singular.
	ErrDegenerate = errors.New("degenerate correspondence configuration")
)

// rankTolerance bounds the ratio of the second-smallest to the largest
// singular value below which the DLT null space is treated as ambiguous.
const rankTolerance = 1e-9

// EstimateHomography fits the projective transform mapping every src[i] onto
// dst[i] in the least-squares sense.
//
// It implements the normalized direct linear transform: both point sets are
// translated to their centroid and scaled to a mean distance of √2, the 2n×9
// design matrix is solved for its null vector with an SVD and the result is
// de-normalized. The returned matrix is scaled so its bottom-right entry is 1.
func EstimateHomography(src []geom.Point, dst []geom.FramePoint) (geom.Matrix, error) {
	if len(src) != len(dst) {
		return geom.Identity, fmt.Errorf("estimate homography: %d source points but %d destination points", len(src), len(dst))
	}
	n := len(src)
	if n < MinCorrespondences {
		return geom.Identity, fmt.Errorf("estimate homography: %w: have %d, need %d", ErrTooFewPoints, n, MinCorrespondences)
	}

	sx, sy := make([]float64, n), make([]float64, n)
	dx, dy := make([]float64, n), make([]float64, n)
	for i := range src {
		sx[i], sy[i] = src[i].X, src[i].Y
		dx[i], dy[i] = dst[i].X, dst[i].Y
	}

	tSrc, ok := normalization(sx, sy)
	if !ok {
		return geom.Identity, fmt.Errorf("estimate homography: %w: source points coincide", ErrDegenerate)
	}
	tDst, ok := normalization(dx, dy)
	if !ok {
		return geom.Identity, fmt.Errorf("estimate homography: %w: destination points coincide", ErrDegenerate)
	}

	a := mat.NewDense(2*n, 9, nil)
	for i := 0; i < n; i++ {
		X, Y := apply(tSrc, sx[i], sy[i])
		x, y := apply(tDst, dx[i], dy[i])
		a.SetRow(2*i, []float64{-X, -Y, -1, 0, 0, 0, x * X, x * Y, x})
		a.SetRow(2*i+1, []float64{0, 0, 0, -X, -Y, -1, y * X, y * Y, y})
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return geom.Identity, fmt.Errorf("estimate homography: %w: SVD did not converge", ErrDegenerate)
	}

	// With n == 4 there are only 8 singular values and the null vector's
	// value is implicitly zero; either way index 7 is the second smallest.
	values := svd.Values(nil)
	if values[0] == 0 || values[7]/values[0] < rankTolerance {
		return geom.Identity, fmt.Errorf("estimate homography: %w: rank deficient", ErrDegenerate)
	}

	var v mat.Dense
	svd.VTo(&v)
	var hn geom.Matrix
	for i := 0; i < 9; i++ {
		hn[i] = v.At(i, 8)
	}

	h := invertNormalization(tDst).Mul(hn).Mul(tSrc)
	if math.Abs(h[8]) < 1e-12 || !h.IsFinite() {
		return geom.Identity, fmt.Errorf("estimate homography: %w: singular fit", ErrDegenerate)
	}
	return h.Normalized(), nil
}

// normalization returns the similarity transform that moves the centroid of
// the points to the origin and scales their mean distance from it to √2.
func normalization(xs, ys []float64) (geom.Matrix, bool) {
	var cx, cy float64
	for i := range xs {
		cx += xs[i]
		cy += ys[i]
	}
	cx /= float64(len(xs))
	cy /= float64(len(xs))

	var mean float64
	for i := range xs {
		mean += math.Hypot(xs[i]-cx, ys[i]-cy)
	}
	mean /= float64(len(xs))
	if mean < 1e-12 {
		return geom.Identity, false
	}

	s := math.Sqrt2 / mean
	return geom.Matrix{s, 0, -s * cx, 0, s, -s * cy, 0, 0, 1}, true
}

func invertNormalization(t geom.Matrix) geom.Matrix {
	s := t[0]
	return geom.Matrix{1 / s, 0, -t[2] / s, 0, 1 / s, -t[5] / s, 0, 0, 1}
}

func apply(t geom.Matrix, x, y float64) (float64, float64) {
	return t[0]*x + t[2], t[4]*y + t[5]
}

// RANSACConfig controls robust estimation.
type RANSACConfig struct {
	// Iterations is the number of minimal samples drawn.
	Iterations int

	// Threshold is the largest reprojection error, in frame pixels, at which
	// a correspondence still counts as an inlier.
	Threshold float64

	// Rand supplies sampling randomness. A nil Rand uses a fixed seed so
	// results are reproducible.
	Rand *rand.Rand
}

// DefaultRANSACConfig returns the defaults used by the tracker.
func DefaultRANSACConfig() RANSACConfig {
	return RANSACConfig{Iterations: 200, Threshold: 3.0}
}

// Estimate is the outcome of a robust fit.
type Estimate struct {
	Matrix  geom.Matrix
	Inliers []int
}

// EstimateRobust fits a homography while rejecting outlier correspondences.
//
// Minimal samples of four pairs are drawn at random; samples containing three
// collinear points on either side are skipped. The sample model with the most
// inliers wins, and among equal counts the one with the lower median
// reprojection error over its inliers (earliest on exact ties).
//
// The winner is then refit on all of its inliers. The refit is kept only if
// it loses no inliers and does not raise the median error. Near-miss
// correspondences inside the threshold would otherwise bend an exact
// sample model, turning a pure translation into a perspective fit.
func EstimateRobust(src []geom.Point, dst []geom.FramePoint, cfg RANSACConfig) (Estimate, error) {
	if len(src) != len(dst) {
		return Estimate{Matrix: geom.Identity}, fmt.Errorf("estimate robust: %d source points but %d destination points", len(src), len(dst))
	}
	n := len(src)
	if n < MinCorrespondences {
		return Estimate{Matrix: geom.Identity}, fmt.Errorf("estimate robust: %w: have %d, need %d", ErrTooFewPoints, n, MinCorrespondences)
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = DefaultRANSACConfig().Iterations
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultRANSACConfig().Threshold
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	var (
		best      geom.Matrix
		bestIn    []int
		bestMed   float64
		haveModel bool
	)

	sample := make([]int, MinCorrespondences)
	ss := make([]geom.Point, MinCorrespondences)
	ds := make([]geom.FramePoint, MinCorrespondences)

	for iter := 0; iter < cfg.Iterations; iter++ {
		if n == MinCorrespondences {
			for i := range sample {
				sample[i] = i
			}
		} else {
			drawSample(rng, n, sample)
		}
		for i, idx := range sample {
			ss[i], ds[i] = src[idx], dst[idx]
		}
		if hasCollinearTriple(ss) || hasCollinearTripleFrame(ds) {
			if n == MinCorrespondences {
				break
			}
			continue
		}

		h, err := EstimateHomography(ss, ds)
		if err != nil {
			if n == MinCorrespondences {
				break
			}
			continue
		}

		in := inliers(h, src, dst, cfg.Threshold)
		if haveModel && len(in) < len(bestIn) {
			continue
		}
		med := medianError(h, src, dst, in)
		if !haveModel || len(in) > len(bestIn) || med < bestMed {
			best, bestIn, bestMed, haveModel = h, in, med, true
		}
		if len(bestIn) == n || n == MinCorrespondences {
			break
		}
	}

	if !haveModel || len(bestIn) < MinCorrespondences {
		return Estimate{Matrix: geom.Identity}, fmt.Errorf("estimate robust: %w: no consistent model", ErrDegenerate)
	}

	inSrc := make([]geom.Point, len(bestIn))
	inDst := make([]geom.FramePoint, len(bestIn))
	for i, idx := range bestIn {
		inSrc[i], inDst[i] = src[idx], dst[idx]
	}
	if refit, err := EstimateHomography(inSrc, inDst); err == nil {
		in := inliers(refit, src, dst, cfg.Threshold)
		if len(in) >= len(bestIn) && medianError(refit, src, dst, bestIn) <= bestMed {
			best, bestIn = refit, in
		}
	}

	return Estimate{Matrix: best, Inliers: bestIn}, nil
}

// ReprojectionError returns the distance between h(src) and dst.
func ReprojectionError(h geom.Matrix, src geom.Point, dst geom.FramePoint) float64 {
	p := h.Apply(src)
	d := p.Dist(dst)
	if math.IsNaN(d) {
		return math.Inf(1)
	}
	return d
}

func inliers(h geom.Matrix, src []geom.Point, dst []geom.FramePoint, threshold float64) []int {
	out := make([]int, 0, len(src))
	for i := range src {
		if ReprojectionError(h, src[i], dst[i]) <= threshold {
			out = append(out, i)
		}
	}
	return out
}

// medianError returns the median reprojection error of h over the pairs
// selected by idx, or +Inf when idx is empty.
func medianError(h geom.Matrix, src []geom.Point, dst []geom.FramePoint, idx []int) float64 {
	if len(idx) == 0 {
		return math.Inf(1)
	}
	errs := make([]float64, len(idx))
	for i, k := range idx {
		errs[i] = ReprojectionError(h, src[k], dst[k])
	}
	sort.Float64s(errs)
	return errs[len(errs)/2]
}

// drawSample fills sample with distinct indices in [0, n).
func drawSample(rng *rand.Rand, n int, sample []int) {
	for i := range sample {
	retry:
		for {
			c := rng.Intn(n)
			for _, prev := range sample[:i] {
				if prev == c {
					continue retry
				}
			}
			sample[i] = c
			break
		}
	}
}

// collinearArea is twice the triangle area, in square pixels, below which
// three points are treated as collinear.
const collinearArea = 1.0

func hasCollinearTriple(p []geom.Point) bool {
	for i := 0; i < len(p); i++ {
		for j := i + 1; j < len(p); j++ {
			for k := j + 1; k < len(p); k++ {
				if math.Abs(cross(p[i].X, p[i].Y, p[j].X, p[j].Y, p[k].X, p[k].Y)) < collinearArea {
					return true
				}
			}
		}
	}
	return false
}

func hasCollinearTripleFrame(p []geom.FramePoint) bool {
	for i := 0; i < len(p); i++ {
		for j := i + 1; j < len(p); j++ {
			for k := j + 1; k < len(p); k++ {
				if math.Abs(cross(p[i].X, p[i].Y, p[j].X, p[j].Y, p[k].X, p[k].Y)) < collinearArea {
					return true
				}
			}
		}
	}
	return false
}

func cross(ax, ay, bx, by, cx, cy float64) float64 {
	return (bx-ax)*(cy-ay) - (by-ay)*(cx-ax)
}
