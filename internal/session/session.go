package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/maze-ar-mcp/internal/frame"
	"github.com/ironsheep/maze-ar-mcp/internal/geom"
	"github.com/ironsheep/maze-ar-mcp/internal/maze"
	"github.com/ironsheep/maze-ar-mcp/internal/tracking"
)

// State is a session lifecycle state.
type State int

const (
	// Idle holds no maze or transform.
	Idle State = iota
	// Initialized holds a maze and solution but is not projecting.
	Initialized
	// Tracking re-projects the path on every update.
	Tracking
	// Stopped ignores updates until re-initialized.
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Initialized:
		return "initialized"
	case Tracking:
		return "tracking"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Markers are the optional endpoint markers drawn with a path.
type Markers struct {
	Start *geom.FramePoint
	End   *geom.FramePoint
}

// Sink receives each re-projected path. Implementations draw it; the session
// never touches pixels itself. Draw is called with the session locked and
// must not call back into the session.
type Sink interface {
	Draw(path []geom.FramePoint, markers Markers) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(path []geom.FramePoint, markers Markers) error

// Draw calls f.
func (f SinkFunc) Draw(path []geom.FramePoint, markers Markers) error {
	return f(path, markers)
}

// Source delivers frames in capture order. Next returns io.EOF when no more
// frames will arrive.
type Source interface {
	Next(ctx context.Context) (*frame.Frame, error)
}

// ErrNotInitialized is returned when projection is started before Initialize.
var ErrNotInitialized = errors.New("session not initialized")

// Stats counts the frames a session has processed since Initialize.
type Stats struct {
	Frames  int `json:"frames"`
	Tracked int `json:"tracked"`
	Emitted int `json:"emitted"`
}

// Session owns one maze, its solution and a tracker, and emits the solution
// path re-projected into each new frame.
//
// The zero value is not usable; create sessions with New. Methods are safe to
// call from multiple goroutines, which lets a UI stop projection while a Run
// loop is delivering frames.
type Session struct {
	mu       sync.Mutex
	state    State
	maze     *maze.Maze
	solution maze.Solution
	tracker  *tracking.Tracker
	sink     Sink
	log      *logrus.Entry
	stats    Stats
}

// New creates an idle session that emits to sink using a tracker built from cfg.
func New(sink Sink, cfg tracking.Config, logger *logrus.Logger) *Session {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Session{
		state:   Idle,
		tracker: tracking.New(cfg),
		sink:    sink,
		log:     logger.WithField("component", "session"),
	}
}

// Initialize stores the maze and solution, initializes the tracker from f and
// moves to Initialized. It is allowed from any state.
//
// An unsolved solution is accepted; the session then never emits anything.
func (s *Session) Initialize(f *frame.Frame, m *maze.Maze, sol maze.Solution) error {
	if m == nil || m.Grid == nil {
		return fmt.Errorf("initialize session: nil maze")
	}
	if err := f.Validate(); err != nil {
		return fmt.Errorf("initialize session: %w", err)
	}
	if f.Width != m.Width() || f.Height != m.Height() {
		return fmt.Errorf("initialize session: %w: frame %dx%d does not match maze %dx%d",
			frame.ErrInvalidFrame, f.Width, f.Height, m.Width(), m.Height())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.maze = m
	s.solution = sol
	s.tracker.Initialize(m, f)
	s.state = Initialized
	s.stats = Stats{}

	s.log.WithFields(logrus.Fields{
		"width":  m.Width(),
		"height": m.Height(),
		"found":  sol.Found,
		"length": sol.Length(),
	}).Debug("session initialized")
	return nil
}

// StartProjection moves to Tracking and immediately emits the path with the
// current transform. It resumes a stopped session without resetting its
// transform; only Idle sessions are rejected.
func (s *Session) StartProjection(ctx context.Context) error {
	s.mu.Lock()
	if s.state == Idle {
		s.mu.Unlock()
		return ErrNotInitialized
	}
	s.state = Tracking
	s.mu.Unlock()

	s.log.Debug("projection started")
	return s.Update(ctx, nil)
}

// StopProjection moves to Stopped. Updates after it returns are no-ops.
func (s *Session) StopProjection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Stopped {
		return
	}
	s.state = Stopped
	s.log.WithField("frames", s.stats.Frames).Debug("projection stopped")
}

// Update processes one frame. It does nothing unless the session is Tracking
// with a found solution or ctx is done. With a non-nil f the tracker is
// advanced first; the path is then emitted with whatever transform is
// current, so a failed estimate re-emits the previous projection.
//
// A nil ctx is treated as context.Background().
func (s *Session) Update(ctx context.Context, f *frame.Frame) error {
	ctx = orBackground(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil || !s.active() {
		return nil
	}

	if f != nil {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		s.stats.Frames++
		if _, ok := s.tracker.Track(f); ok {
			s.stats.Tracked++
		} else {
			res := s.tracker.LastResult()
			s.log.WithFields(logrus.Fields{
				"frame":           s.stats.Frames,
				"correspondences": res.Correspondences,
			}).Debug("tracking estimate rejected, reusing previous transform")
		}
	}

	// Cancellation may have arrived while tracking.
	if ctx.Err() != nil {
		return nil
	}
	return s.emit()
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// active reports whether updates should do work. Callers hold s.mu.
func (s *Session) active() bool {
	return s.state == Tracking && s.solution.Found
}

func (s *Session) emit() error {
	path := s.tracker.TransformPath(s.solution.Path)
	markers := Markers{}
	if len(path) > 0 {
		start, end := path[0], path[len(path)-1]
		markers.Start, markers.End = &start, &end
	}
	if s.sink == nil {
		return nil
	}
	if err := s.sink.Draw(path, markers); err != nil {
		return fmt.Errorf("emit path: %w", err)
	}
	s.stats.Emitted++
	return nil
}

// Run pulls frames from src and updates once per frame until src is
// exhausted, ctx is cancelled or projection is stopped. Stop and
// cancellation are checked before each frame is requested and again before
// it is processed, so no transform-and-emit cycle runs after either.
//
// Run returns nil when the loop ends because of io.EOF, StopProjection or
// an inert session, and ctx.Err() when it was cancelled.
func (s *Session) Run(ctx context.Context, src Source) error {
	ctx = orBackground(ctx)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.Active() {
			return nil
		}

		f, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("next frame: %w", err)
		}

		if err := s.Update(ctx, f); err != nil {
			return err
		}
	}
}

// Active reports whether the session is Tracking with a found solution.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Solution returns the solution the session was initialized with.
func (s *Session) Solution() maze.Solution {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.solution
}

// Transform returns the tracker's current transform.
func (s *Session) Transform() geom.Matrix {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Transform()
}

// LastResult describes the most recent tracking attempt.
func (s *Session) LastResult() tracking.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.LastResult()
}

// Stats returns frame counters since the last Initialize.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
