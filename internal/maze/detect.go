package maze

import (
	"fmt"
	"math"

	"github.com/ironsheep/maze-ar-mcp/internal/frame"
)

// DetectResult summarises a detection for callers that report on it.
type DetectResult struct {
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Threshold      int     `json:"threshold"`
	NavigableCells int     `json:"navigable_cells"`
	NavigableRatio float64 `json:"navigable_ratio"`
}

// Detect binarizes a frame into a maze with no endpoints set.
//
// Parameters:
//   - f: The captured frame. Its alpha channel is ignored.
//
// Returns:
//   - *Maze: A grid with the frame's dimensions where each cell is navigable
//     iff that pixel's intensity is strictly greater than the Otsu threshold.
//     Start and End are nil; set them with SetEndpoints or SolveBetween.
//   - error: Non-nil only when f is not a valid frame.
//
// Each pixel's intensity is the mean of its red, green and blue samples.
// Bright pixels are paths and dark pixels are walls. The polarity is fixed;
// mazes drawn light on dark must be inverted by the caller. A uniform frame
// gets threshold 0, so an all-black frame is all wall and any brighter
// uniform frame is all path.
//
// # Errors
//
//   - Returns error wrapping frame.ErrInvalidFrame for a nil frame,
//     non-positive dimensions or a pixel buffer of the wrong length
func Detect(f *frame.Frame) (*Maze, error) {
	m, _, err := DetectWithThreshold(f)
	return m, err
}

// DetectWithThreshold is Detect that also returns the Otsu threshold used,
// an integer in [0, 255]. Outer surfaces report it so callers can judge how
// cleanly the frame separated into walls and paths.
func DetectWithThreshold(f *frame.Frame) (*Maze, int, error) {
	if err := f.Validate(); err != nil {
		return nil, 0, fmt.Errorf("detect: %w", err)
	}

	gray := f.Gray()
	threshold := OtsuThreshold(Histogram(gray))

	grid := NewGrid(f.Width, f.Height)
	t := float64(threshold)
	for i, v := range gray {
		grid.cells[i] = v > t
	}

	return &Maze{Grid: grid}, threshold, nil
}

// Summarize builds a DetectResult for m. NavigableRatio is the navigable cell
// count over the cell total, rounded to three decimals.
func Summarize(m *Maze, threshold int) *DetectResult {
	n := m.Grid.CountNavigable()
	total := m.Grid.Width * m.Grid.Height
	ratio := 0.0
	if total > 0 {
		ratio = math.Round(float64(n)/float64(total)*1000) / 1000
	}
	return &DetectResult{
		Width:          m.Grid.Width,
		Height:         m.Grid.Height,
		Threshold:      threshold,
		NavigableCells: n,
		NavigableRatio: ratio,
	}
}

// Histogram buckets intensities in [0,255] by their nearest integer.
func Histogram(gray []float64) [256]int {
	var hist [256]int
	for _, v := range gray {
		b := int(math.Round(v))
		if b < 0 {
			b = 0
		} else if b > 255 {
			b = 255
		}
		hist[b]++
	}
	return hist
}

// OtsuThreshold picks the threshold maximising the between-class variance
// wB·wF·(mB−mF)² over a 256-bucket histogram.
//
// Candidates are scanned in ascending order and only a strictly larger
// variance replaces the current best, so ties resolve to the lowest t. A
// histogram with a single populated bucket has no valid split and yields 0.
func OtsuThreshold(hist [256]int) int {
	total := 0
	sum := 0.0
	for i, n := range hist {
		total += n
		sum += float64(i) * float64(n)
	}

	var (
		sumB        float64
		wB          int
		maxVariance float64
		threshold   int
	)
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}

		sumB += float64(t) * float64(hist[t])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)

		variance := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if variance > maxVariance {
			maxVariance = variance
			threshold = t
		}
	}
	return threshold
}
