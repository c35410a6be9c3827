package render

import (
	"sync"

	"github.com/ironsheep/maze-ar-mcp/internal/geom"
	"github.com/ironsheep/maze-ar-mcp/internal/session"
)

// Emission is one path delivered to a Recorder.
type Emission struct {
	Path  []geom.FramePoint `json:"path"`
	Start *geom.FramePoint  `json:"start,omitempty"`
	End   *geom.FramePoint  `json:"end,omitempty"`
}

// Recorder is a session.Sink that keeps every emitted path.
type Recorder struct {
	mu        sync.Mutex
	emissions []Emission
}

// Draw records path and markers.
func (r *Recorder) Draw(path []geom.FramePoint, markers session.Markers) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emissions = append(r.emissions, Emission{
		Path:  append([]geom.FramePoint(nil), path...),
		Start: markers.Start,
		End:   markers.End,
	})
	return nil
}

// Emissions returns a copy of everything recorded so far.
func (r *Recorder) Emissions() []Emission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Emission(nil), r.emissions...)
}

// Last returns the most recent emission.
func (r *Recorder) Last() (Emission, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.emissions) == 0 {
		return Emission{}, false
	}
	return r.emissions[len(r.emissions)-1], true
}

// Len returns the number of recorded emissions.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.emissions)
}

// Reset discards all recorded emissions.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emissions = nil
}

// Tee is a session.Sink that forwards to every sink in order, stopping at
// the first error.
type Tee []session.Sink

// Draw forwards to each sink.
func (t Tee) Draw(path []geom.FramePoint, markers session.Markers) error {
	for _, s := range t {
		if err := s.Draw(path, markers); err != nil {
			return err
		}
	}
	return nil
}
