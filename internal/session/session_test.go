package session

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ironsheep/maze-ar-mcp/internal/frame"
	"github.com/ironsheep/maze-ar-mcp/internal/geom"
	"github.com/ironsheep/maze-ar-mcp/internal/maze"
	"github.com/ironsheep/maze-ar-mcp/internal/tracking"
)

// recorder is a Sink that keeps every emitted path.
type recorder struct {
	paths   [][]geom.FramePoint
	markers []Markers
	err     error
}

func (r *recorder) Draw(path []geom.FramePoint, m Markers) error {
	if r.err != nil {
		return r.err
	}
	r.paths = append(r.paths, path)
	r.markers = append(r.markers, m)
	return nil
}

// shiftMatcher reports every reference point displaced by a fixed amount,
// or nothing when empty is set.
type shiftMatcher struct {
	dx, dy float64
	empty  bool
}

func (s *shiftMatcher) Match(_, _ *frame.Frame, refPts []geom.Point, _ []geom.FramePoint) []tracking.Correspondence {
	if s.empty {
		return nil
	}
	out := make([]tracking.Correspondence, len(refPts))
	for i, p := range refPts {
		out[i] = tracking.Correspondence{Ref: p, Cur: geom.FramePoint{X: p.X + s.dx, Y: p.Y + s.dy}}
	}
	return out
}

// sliceSource delivers frames from a slice, running hook before each one.
type sliceSource struct {
	frames []*frame.Frame
	calls  int
	hook   func(call int)
}

func (s *sliceSource) Next(ctx context.Context) (*frame.Frame, error) {
	s.calls++
	if s.hook != nil {
		s.hook(s.calls)
	}
	if len(s.frames) == 0 {
		return nil, io.EOF
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

func quietLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

type fixture struct {
	frame    *frame.Frame
	maze     *maze.Maze
	solution maze.Solution
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f, err := frame.Uniform(40, 30, 255, 255, 255, 255)
	if err != nil {
		t.Fatal(err)
	}
	m, err := maze.Detect(f)
	if err != nil {
		t.Fatal(err)
	}
	sol := maze.SolveBetween(m, geom.Pt(0, 0), geom.Pt(3, 2))
	if !sol.Found {
		t.Fatal("fixture maze should be solvable")
	}
	return fixture{frame: f, maze: m, solution: sol}
}

func newSession(sink Sink, matcher tracking.Matcher) *Session {
	cfg := tracking.DefaultConfig()
	cfg.Matcher = matcher
	return New(sink, cfg, quietLogger())
}

func TestSession_UpdateBeforeStartIsNoop(t *testing.T) {
	fx := newFixture(t)
	rec := &recorder{}
	s := newSession(rec, &shiftMatcher{dx: 1})
	ctx := context.Background()

	if err := s.Update(ctx, fx.frame); err != nil {
		t.Fatalf("Update on idle session: %v", err)
	}
	if err := s.Initialize(fx.frame, fx.maze, fx.solution); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := s.Update(ctx, fx.frame); err != nil {
		t.Fatalf("Update on initialized session: %v", err)
	}

	if len(rec.paths) != 0 {
		t.Errorf("emitted %d paths before StartProjection, want 0", len(rec.paths))
	}
	if s.Stats().Frames != 0 {
		t.Errorf("frames counted before StartProjection: %d", s.Stats().Frames)
	}
}

func TestSession_StartEmitsImmediately(t *testing.T) {
	fx := newFixture(t)
	rec := &recorder{}
	s := newSession(rec, &shiftMatcher{})

	if err := s.Initialize(fx.frame, fx.maze, fx.solution); err != nil {
		t.Fatal(err)
	}
	if err := s.StartProjection(context.Background()); err != nil {
		t.Fatalf("StartProjection failed: %v", err)
	}

	if s.State() != Tracking {
		t.Errorf("state: got %v, want tracking", s.State())
	}
	if len(rec.paths) != 1 {
		t.Fatalf("emitted %d paths, want 1", len(rec.paths))
	}
	got := rec.paths[0]
	if len(got) != len(fx.solution.Path) {
		t.Fatalf("path length: got %d, want %d", len(got), len(fx.solution.Path))
	}
	for i, p := range fx.solution.Path {
		if got[i].X != p.X || got[i].Y != p.Y {
			t.Errorf("point %d: got %v, want identity-mapped %v", i, got[i], p)
		}
	}

	m := rec.markers[0]
	if m.Start == nil || m.End == nil {
		t.Fatal("markers should be set")
	}
	if *m.Start != got[0] || *m.End != got[len(got)-1] {
		t.Errorf("markers: got %v/%v, want path endpoints", *m.Start, *m.End)
	}
}

func TestSession_UpdateTracksAndEmits(t *testing.T) {
	fx := newFixture(t)
	rec := &recorder{}
	matcher := &shiftMatcher{dx: 4, dy: -2}
	s := newSession(rec, matcher)
	ctx := context.Background()

	if err := s.Initialize(fx.frame, fx.maze, fx.solution); err != nil {
		t.Fatal(err)
	}
	if err := s.StartProjection(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Update(ctx, fx.frame); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	last := rec.paths[len(rec.paths)-1]
	want := geom.FramePoint{X: 4, Y: -2}
	if last[0].Dist(want) > 1e-6 {
		t.Errorf("first point: got %v, want %v", last[0], want)
	}

	// A rejected estimate still re-emits with the previous transform.
	matcher.empty = true
	if err := s.Update(ctx, fx.frame); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	stale := rec.paths[len(rec.paths)-1]
	if stale[0].Dist(want) > 1e-6 {
		t.Errorf("stale point: got %v, want %v", stale[0], want)
	}

	st := s.Stats()
	if st.Frames != 2 || st.Tracked != 1 || st.Emitted != 3 {
		t.Errorf("stats: got %+v, want frames=2 tracked=1 emitted=3", st)
	}
	if s.LastResult().Updated {
		t.Error("last result should report the rejected estimate")
	}
}

func TestSession_UpdateAfterStopIsNoop(t *testing.T) {
	fx := newFixture(t)
	rec := &recorder{}
	s := newSession(rec, &shiftMatcher{dx: 1})
	ctx := context.Background()

	_ = s.Initialize(fx.frame, fx.maze, fx.solution)
	_ = s.StartProjection(ctx)
	s.StopProjection()
	s.StopProjection()

	if err := s.Update(ctx, fx.frame); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(rec.paths) != 1 {
		t.Errorf("emitted %d paths, want only the one from StartProjection", len(rec.paths))
	}
	if s.State() != Stopped {
		t.Errorf("state: got %v, want stopped", s.State())
	}
}

func TestSession_UnsolvedIsInert(t *testing.T) {
	fx := newFixture(t)
	rec := &recorder{}
	s := newSession(rec, &shiftMatcher{dx: 1})
	ctx := context.Background()

	unsolved := maze.Solve(&maze.Maze{Grid: fx.maze.Grid})
	if err := s.Initialize(fx.frame, fx.maze, unsolved); err != nil {
		t.Fatalf("Initialize should accept an unsolved maze: %v", err)
	}
	if err := s.StartProjection(ctx); err != nil {
		t.Fatalf("StartProjection failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := s.Update(ctx, fx.frame); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}
	if len(rec.paths) != 0 {
		t.Errorf("emitted %d paths for unsolved maze, want 0", len(rec.paths))
	}
	if s.Active() {
		t.Error("unsolved session should never be active")
	}
}

func TestSession_ReinitializeResets(t *testing.T) {
	fx := newFixture(t)
	rec := &recorder{}
	s := newSession(rec, &shiftMatcher{dx: 2, dy: 2})
	ctx := context.Background()

	_ = s.Initialize(fx.frame, fx.maze, fx.solution)
	_ = s.StartProjection(ctx)
	_ = s.Update(ctx, fx.frame)
	if s.Transform() == geom.Identity {
		t.Fatal("transform should have moved")
	}

	for _, prepare := range []func(){func() {}, s.StopProjection} {
		prepare()
		if err := s.Initialize(fx.frame, fx.maze, fx.solution); err != nil {
			t.Fatal(err)
		}
		if s.State() != Initialized {
			t.Errorf("state: got %v, want initialized", s.State())
		}
		if s.Transform() != geom.Identity {
			t.Errorf("transform should reset, got %v", s.Transform())
		}
		if s.Stats() != (Stats{}) {
			t.Errorf("stats should reset, got %+v", s.Stats())
		}
	}
}

func TestSession_StartRequiresInitialize(t *testing.T) {
	s := newSession(&recorder{}, nil)
	if err := s.StartProjection(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("got %v, want ErrNotInitialized", err)
	}
	if s.State() != Idle {
		t.Errorf("state: got %v, want idle", s.State())
	}
}

func TestSession_InitializeValidation(t *testing.T) {
	fx := newFixture(t)
	s := newSession(&recorder{}, nil)

	if err := s.Initialize(fx.frame, nil, fx.solution); err == nil {
		t.Error("nil maze should be rejected")
	}
	small, _ := frame.Uniform(10, 10, 0, 0, 0, 255)
	if err := s.Initialize(small, fx.maze, fx.solution); !errors.Is(err, frame.ErrInvalidFrame) {
		t.Errorf("mismatched frame: got %v, want ErrInvalidFrame", err)
	}
	if err := s.Initialize(&frame.Frame{Width: 40, Height: 30}, fx.maze, fx.solution); !errors.Is(err, frame.ErrInvalidFrame) {
		t.Errorf("empty buffer: got %v, want ErrInvalidFrame", err)
	}
	if s.State() != Idle {
		t.Errorf("failed Initialize should not change state, got %v", s.State())
	}
}

func TestSession_SinkErrorPropagates(t *testing.T) {
	fx := newFixture(t)
	boom := errors.New("canvas gone")
	s := newSession(&recorder{err: boom}, &shiftMatcher{})

	_ = s.Initialize(fx.frame, fx.maze, fx.solution)
	if err := s.StartProjection(context.Background()); !errors.Is(err, boom) {
		t.Errorf("got %v, want wrapped sink error", err)
	}
}

func TestSession_CancelledContextIsNoop(t *testing.T) {
	fx := newFixture(t)
	rec := &recorder{}
	s := newSession(rec, &shiftMatcher{})
	_ = s.Initialize(fx.frame, fx.maze, fx.solution)
	_ = s.StartProjection(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Update(ctx, fx.frame); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(rec.paths) != 1 {
		t.Errorf("emitted %d paths, want 1", len(rec.paths))
	}
}

func TestSession_NilContextIsBackground(t *testing.T) {
	fx := newFixture(t)
	rec := &recorder{}
	s := newSession(rec, &shiftMatcher{dx: 2})
	var ctx context.Context

	if err := s.Initialize(fx.frame, fx.maze, fx.solution); err != nil {
		t.Fatal(err)
	}
	if err := s.StartProjection(ctx); err != nil {
		t.Fatalf("StartProjection failed: %v", err)
	}
	if err := s.Update(ctx, fx.frame); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	src := &sliceSource{frames: []*frame.Frame{fx.frame}}
	if err := s.Run(ctx, src); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(rec.paths) != 3 {
		t.Errorf("emitted %d paths, want 3", len(rec.paths))
	}
	if st := s.Stats(); st.Frames != 2 || st.Tracked != 2 {
		t.Errorf("stats: got %+v, want frames=2 tracked=2", st)
	}
}

func TestSession_RunUntilEOF(t *testing.T) {
	fx := newFixture(t)
	rec := &recorder{}
	s := newSession(rec, &shiftMatcher{dx: 1})
	ctx := context.Background()

	_ = s.Initialize(fx.frame, fx.maze, fx.solution)
	_ = s.StartProjection(ctx)

	src := &sliceSource{frames: []*frame.Frame{fx.frame, fx.frame, fx.frame}}
	if err := s.Run(ctx, src); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(rec.paths) != 4 {
		t.Errorf("emitted %d paths, want 4 (start + 3 frames)", len(rec.paths))
	}
	if s.Stats().Frames != 3 {
		t.Errorf("frames: got %d, want 3", s.Stats().Frames)
	}
}

func TestSession_RunStopsBeforeNextEmit(t *testing.T) {
	fx := newFixture(t)
	rec := &recorder{}
	s := newSession(rec, &shiftMatcher{dx: 1})
	ctx := context.Background()

	_ = s.Initialize(fx.frame, fx.maze, fx.solution)
	_ = s.StartProjection(ctx)

	frames := []*frame.Frame{fx.frame, fx.frame, fx.frame, fx.frame, fx.frame}
	src := &sliceSource{frames: frames, hook: func(call int) {
		// The third frame is already in flight when projection stops.
		if call == 3 {
			s.StopProjection()
		}
	}}

	if err := s.Run(ctx, src); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(rec.paths) != 3 {
		t.Errorf("emitted %d paths, want 3 (start + 2 frames)", len(rec.paths))
	}
	if src.calls != 3 {
		t.Errorf("source polled %d times, want 3", src.calls)
	}
}

func TestSession_RunCancelled(t *testing.T) {
	fx := newFixture(t)
	rec := &recorder{}
	s := newSession(rec, &shiftMatcher{dx: 1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = s.Initialize(fx.frame, fx.maze, fx.solution)
	_ = s.StartProjection(ctx)

	src := &sliceSource{frames: []*frame.Frame{fx.frame, fx.frame, fx.frame}, hook: func(call int) {
		if call == 2 {
			cancel()
		}
	}}

	if err := s.Run(ctx, src); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if len(rec.paths) != 2 {
		t.Errorf("emitted %d paths, want 2 (start + 1 frame)", len(rec.paths))
	}
}

func TestSession_RunInertReturnsImmediately(t *testing.T) {
	s := newSession(&recorder{}, nil)
	src := &sliceSource{frames: nil}
	if err := s.Run(context.Background(), src); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if src.calls != 0 {
		t.Errorf("inert session polled the source %d times", src.calls)
	}
}

func TestSession_SinkFunc(t *testing.T) {
	fx := newFixture(t)
	calls := 0
	s := newSession(SinkFunc(func(path []geom.FramePoint, _ Markers) error {
		calls++
		return nil
	}), &shiftMatcher{})

	_ = s.Initialize(fx.frame, fx.maze, fx.solution)
	_ = s.StartProjection(context.Background())
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{Idle: "idle", Initialized: "initialized", Tracking: "tracking", Stopped: "stopped", State(9): "state(9)"}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String(): got %q, want %q", int(s), got, want)
		}
	}
}
