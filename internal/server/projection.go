package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/maze-ar-mcp/internal/geom"
	"github.com/ironsheep/maze-ar-mcp/internal/maze"
	"github.com/ironsheep/maze-ar-mcp/internal/render"
	"github.com/ironsheep/maze-ar-mcp/internal/session"
)

// errNoProjection is returned by update and stop before any start.
var errNoProjection = errors.New("no projection session; call maze_projection_start first")

// projection is the server-held tracking session driven by the
// maze_projection_* tools.
type projection struct {
	id       string
	session  *session.Session
	overlay  *render.Overlay
	recorder *render.Recorder
}

// projectionState is returned by every projection tool.
type projectionState struct {
	SessionID string            `json:"session_id"`
	State     string            `json:"state"`
	Found     bool              `json:"found"`
	Length    int               `json:"length"`
	Tracked   bool              `json:"tracked"`
	Transform geom.Matrix       `json:"transform"`
	Projected []geom.FramePoint `json:"projected"`
	Stats     session.Stats     `json:"stats"`
	Image     *render.Encoded   `json:"image,omitempty"`
}

func (p *projection) state(withImage bool) (*projectionState, error) {
	sol := p.session.Solution()
	st := &projectionState{
		SessionID: p.id,
		State:     p.session.State().String(),
		Found:     sol.Found,
		Length:    sol.Length(),
		Tracked:   p.session.LastResult().Updated,
		Transform: p.session.Transform(),
		Projected: []geom.FramePoint{},
		Stats:     p.session.Stats(),
	}
	if last, ok := p.recorder.Last(); ok {
		st.Projected = last.Path
	}
	if withImage && p.overlay.Image() != nil {
		img, err := p.overlay.Encode()
		if err != nil {
			return nil, err
		}
		st.Image = img
	}
	return st, nil
}

type projectionStartArgs struct {
	Path   string      `json:"path" validate:"required"`
	Start  *geom.Point `json:"start" validate:"required"`
	End    *geom.Point `json:"end" validate:"required"`
	Render bool        `json:"render"`
}

func (s *Server) handleProjectionStart(args json.RawMessage) (interface{}, error) {
	var a projectionStartArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	ref, m, _, err := s.loadMaze(a.Path)
	if err != nil {
		return nil, err
	}
	sol := maze.SolveBetween(m, *a.Start, *a.End)

	overlay, err := render.NewOverlay(render.DefaultStyle())
	if err != nil {
		return nil, err
	}
	overlay.SetFrame(ref.Frame)
	p := &projection{
		id:       uuid.NewString(),
		overlay:  overlay,
		recorder: &render.Recorder{},
	}
	p.session = session.New(render.Tee{p.overlay, p.recorder}, s.cfg.TrackingConfig(), s.log)

	if err := p.session.Initialize(ref.Frame, m, sol); err != nil {
		return nil, err
	}
	if err := p.session.StartProjection(context.Background()); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.projection != nil {
		s.projection.session.StopProjection()
	}
	s.projection = p
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"session_id": p.id,
		"found":      sol.Found,
		"length":     sol.Length(),
	}).Info("projection session started")
	return p.state(a.Render)
}

type projectionUpdateArgs struct {
	Path      string `json:"path" validate:"required"`
	SessionID string `json:"session_id" validate:"omitempty,uuid"`
	Render    bool   `json:"render"`
}

func (s *Server) handleProjectionUpdate(args json.RawMessage) (interface{}, error) {
	var a projectionUpdateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	s.mu.Lock()
	p := s.projection
	s.mu.Unlock()
	if p == nil {
		return nil, errNoProjection
	}
	if a.SessionID != "" && a.SessionID != p.id {
		return nil, fmt.Errorf("session %s is not the current projection session", a.SessionID)
	}

	// Stopped sessions ignore frames, so skip decoding them.
	if p.session.Active() {
		l, err := s.cache.Load(a.Path, s.cfg.MaxDimension)
		if err != nil {
			return nil, err
		}
		p.overlay.SetFrame(l.Frame)
		if err := p.session.Update(context.Background(), l.Frame); err != nil {
			return nil, err
		}
	}
	return p.state(a.Render)
}

func (s *Server) handleProjectionStop(args json.RawMessage) (interface{}, error) {
	var a struct{}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	s.mu.Lock()
	p := s.projection
	s.mu.Unlock()
	if p == nil {
		return nil, errNoProjection
	}

	p.session.StopProjection()
	s.log.WithFields(logrus.Fields{
		"session_id": p.id,
		"frames":     p.session.Stats().Frames,
	}).Info("projection session stopped")
	return p.state(false)
}
