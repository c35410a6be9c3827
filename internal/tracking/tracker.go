package tracking

import (
	"github.com/ironsheep/maze-ar-mcp/internal/frame"
	"github.com/ironsheep/maze-ar-mcp/internal/geom"
	"github.com/ironsheep/maze-ar-mcp/internal/maze"
)

// minReferenceStride is the smallest spacing between edge samples.
const minReferenceStride = 30

// ReferencePoints returns the tracking anchors for a w×h maze: the four
// corners followed by samples along the top and bottom edges, then the left
// and right edges. Samples are spaced max(30, min(w,h)/10) pixels apart and
// stop one stride short of the far corner.
func ReferencePoints(w, h int) []geom.Point {
	pts := []geom.Point{
		geom.Pt(0, 0),
		geom.Pt(w-1, 0),
		geom.Pt(w-1, h-1),
		geom.Pt(0, h-1),
	}

	step := min(w, h) / 10
	if step < minReferenceStride {
		step = minReferenceStride
	}

	for x := step; x < w-step; x += step {
		pts = append(pts, geom.Pt(x, 0), geom.Pt(x, h-1))
	}
	for y := step; y < h-step; y += step {
		pts = append(pts, geom.Pt(0, y), geom.Pt(w-1, y))
	}
	return pts
}

// Config controls a Tracker.
type Config struct {
	// Matcher finds correspondences. Nil uses NewBlockMatcher().
	Matcher Matcher

	// RANSAC controls robust estimation.
	RANSAC RANSACConfig
}

// DefaultConfig returns the block-matching, RANSAC-backed configuration.
func DefaultConfig() Config {
	return Config{Matcher: NewBlockMatcher(), RANSAC: DefaultRANSACConfig()}
}

// Result describes the most recent Track call.
type Result struct {
	Correspondences int         `json:"correspondences"`
	Inliers         int         `json:"inliers"`
	Updated         bool        `json:"updated"`
	Transform       geom.Matrix `json:"transform"`
}

// Tracker estimates the transform from a maze's original coordinate space
// into each new frame.
//
// A Tracker owns its reference points and current transform; both are reset
// together by Initialize. It is not safe for concurrent use.
type Tracker struct {
	cfg       Config
	ref       *frame.Frame
	refPoints []geom.Point
	transform geom.Matrix
	last      Result
}

// New creates a tracker with no reference. Track reports false until
// Initialize is called.
func New(cfg Config) *Tracker {
	if cfg.Matcher == nil {
		cfg.Matcher = NewBlockMatcher()
	}
	return &Tracker{cfg: cfg, transform: geom.Identity}
}

// Initialize derives the reference points from the maze's extent and resets
// the transform to identity. ref is the frame the maze was detected in; it
// supplies the appearance the matcher searches for. A nil ref leaves the
// tracker able to transform points but unable to track.
func (t *Tracker) Initialize(m *maze.Maze, ref *frame.Frame) {
	t.ref = ref
	t.refPoints = ReferencePoints(m.Width(), m.Height())
	t.transform = geom.Identity
	t.last = Result{Transform: geom.Identity}
}

// Track estimates the transform for f.
//
// It returns the new transform and true on success. When the tracker is not
// initialized, f does not match the reference dimensions, fewer than four
// correspondences are found or no consistent transform fits them, it returns
// the unchanged current transform and false.
func (t *Tracker) Track(f *frame.Frame) (geom.Matrix, bool) {
	t.last = Result{Transform: t.transform}
	if t.ref == nil || len(t.refPoints) == 0 || f.Validate() != nil || !t.ref.SameSize(f) {
		return t.transform, false
	}

	predicted := t.transform.ApplyPath(t.refPoints)
	matches := t.cfg.Matcher.Match(t.ref, f, t.refPoints, predicted)
	t.last.Correspondences = len(matches)
	if len(matches) < MinCorrespondences {
		return t.transform, false
	}

	src := make([]geom.Point, len(matches))
	dst := make([]geom.FramePoint, len(matches))
	for i, c := range matches {
		src[i], dst[i] = c.Ref, c.Cur
	}

	est, err := EstimateRobust(src, dst, t.cfg.RANSAC)
	if err != nil {
		return t.transform, false
	}

	t.transform = est.Matrix
	t.last = Result{
		Correspondences: len(matches),
		Inliers:         len(est.Inliers),
		Updated:         true,
		Transform:       est.Matrix,
	}
	return t.transform, true
}

// Transform returns the current transform.
func (t *Tracker) Transform() geom.Matrix { return t.transform }

// LastResult describes the most recent Track call.
func (t *Tracker) LastResult() Result { return t.last }

// Points returns a copy of the reference points.
func (t *Tracker) Points() []geom.Point {
	return append([]geom.Point(nil), t.refPoints...)
}

// TransformPoint maps p from maze space into the current frame.
func (t *Tracker) TransformPoint(p geom.Point) geom.FramePoint {
	return t.transform.Apply(p)
}

// TransformPath maps every point of path into the current frame.
func (t *Tracker) TransformPath(path []geom.Point) []geom.FramePoint {
	return t.transform.ApplyPath(path)
}
