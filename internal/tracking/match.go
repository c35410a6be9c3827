package tracking

import (
	"math"

	"github.com/ironsheep/maze-ar-mcp/internal/frame"
	"github.com/ironsheep/maze-ar-mcp/internal/geom"
)

// Correspondence pairs a reference point with where it was found in a frame.
type Correspondence struct {
	Ref geom.Point      `json:"ref"`
	Cur geom.FramePoint `json:"cur"`

	// Error is the matcher's dissimilarity score for the pair (lower is better).
	Error float64 `json:"error"`
}

// Matcher finds the current-frame positions of reference points.
//
// ref is the frame the reference points were taken from and predicted holds
// each point's expected position in cur (the current transform applied to
// the reference point). Implementations return only the pairs they are
// confident about, in any order.
type Matcher interface {
	Match(ref, cur *frame.Frame, refPts []geom.Point, predicted []geom.FramePoint) []Correspondence
}

// BlockMatcher locates each reference point by comparing the grayscale patch
// around it in the reference frame against patches inside a search window
// around its predicted position in the current frame.
//
// Dissimilarity is the mean absolute intensity difference over the pixels
// that fall inside both frames. Patches with too little texture are skipped
// because every candidate matches them equally well.
type BlockMatcher struct {
	// TemplateRadius is the half-size of the compared patch.
	TemplateRadius int

	// SearchRadius is how far from the prediction candidates are tried.
	SearchRadius int

	// BlurRadius is the Gaussian smoothing applied to both frames first.
	// Zero disables smoothing.
	BlurRadius float64

	// MaxMeanError rejects matches whose best score is above it.
	MaxMeanError float64

	// MinTemplateStdDev rejects reference patches flatter than this.
	MinTemplateStdDev float64

	// MinCoverage is the fraction of the template that must overlap the
	// current frame for a candidate to be scored.
	MinCoverage float64
}

// NewBlockMatcher returns a BlockMatcher with working defaults.
func NewBlockMatcher() *BlockMatcher {
	return &BlockMatcher{
		TemplateRadius:    7,
		SearchRadius:      12,
		BlurRadius:        1.0,
		MaxMeanError:      40,
		MinTemplateStdDev: 4,
		MinCoverage:       0.5,
	}
}

// plane is a row-major intensity image.
type plane struct {
	w, h int
	v    []float64
}

func (p plane) at(x, y int) (float64, bool) {
	if x < 0 || y < 0 || x >= p.w || y >= p.h {
		return 0, false
	}
	return p.v[y*p.w+x], true
}

// Match implements Matcher.
func (m *BlockMatcher) Match(ref, cur *frame.Frame, refPts []geom.Point, predicted []geom.FramePoint) []Correspondence {
	if ref == nil || cur == nil || len(refPts) != len(predicted) {
		return nil
	}

	rp := plane{w: ref.Width, h: ref.Height, v: ref.SmoothGray(m.BlurRadius)}
	cp := plane{w: cur.Width, h: cur.Height, v: cur.SmoothGray(m.BlurRadius)}

	out := make([]Correspondence, 0, len(refPts))
	for i, p := range refPts {
		q := predicted[i]
		if math.IsNaN(q.X) || math.IsNaN(q.Y) || math.IsInf(q.X, 0) || math.IsInf(q.Y, 0) {
			continue
		}
		c, ok := m.matchPoint(rp, cp, p, q)
		if ok {
			out = append(out, c)
		}
	}
	return out
}

func (m *BlockMatcher) matchPoint(rp, cp plane, p geom.Point, q geom.FramePoint) (Correspondence, bool) {
	rx, ry := p.Cell()
	r := m.TemplateRadius

	// Collect the template once, skipping pixels outside the reference frame.
	type px struct {
		u, v int
		val  float64
	}
	tmpl := make([]px, 0, (2*r+1)*(2*r+1))
	var sum, sumSq float64
	for v := -r; v <= r; v++ {
		for u := -r; u <= r; u++ {
			val, ok := rp.at(rx+u, ry+v)
			if !ok {
				continue
			}
			tmpl = append(tmpl, px{u, v, val})
			sum += val
			sumSq += val * val
		}
	}
	if len(tmpl) == 0 {
		return Correspondence{}, false
	}
	mean := sum / float64(len(tmpl))
	if variance := sumSq/float64(len(tmpl)) - mean*mean; math.Sqrt(math.Max(variance, 0)) < m.MinTemplateStdDev {
		return Correspondence{}, false
	}

	minCount := int(math.Ceil(m.MinCoverage * float64(len(tmpl))))
	if minCount < 1 {
		minCount = 1
	}

	px0, py0 := int(math.Round(q.X)), int(math.Round(q.Y))
	bestErr := math.Inf(1)
	bestDist := 0
	var bx, by int
	found := false

	s := m.SearchRadius
	for dy := -s; dy <= s; dy++ {
		for dx := -s; dx <= s; dx++ {
			cx, cy := px0+dx, py0+dy
			if cx < 0 || cy < 0 || cx >= cp.w || cy >= cp.h {
				continue
			}

			var diff float64
			count := 0
			for _, t := range tmpl {
				val, ok := cp.at(cx+t.u, cy+t.v)
				if !ok {
					continue
				}
				diff += math.Abs(val - t.val)
				count++
			}
			if count < minCount {
				continue
			}

			e := diff / float64(count)
			dist := dx*dx + dy*dy
			if e < bestErr || (e == bestErr && dist < bestDist) {
				bestErr, bestDist, bx, by, found = e, dist, cx, cy, true
			}
		}
	}

	if !found || bestErr > m.MaxMeanError {
		return Correspondence{}, false
	}
	return Correspondence{
		Ref:   p,
		Cur:   geom.FramePoint{X: float64(bx), Y: float64(by)},
		Error: bestErr,
	}, true
}
