package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/maze-ar-mcp/internal/frame"
	"github.com/ironsheep/maze-ar-mcp/internal/geom"
	"github.com/ironsheep/maze-ar-mcp/internal/maze"
	"github.com/ironsheep/maze-ar-mcp/internal/render"
	"github.com/ironsheep/maze-ar-mcp/internal/session"
	"github.com/ironsheep/maze-ar-mcp/internal/tracking"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "maze_detect", "maze_solve").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// argumentError marks a tool failure caused by malformed or missing arguments.
type argumentError struct {
	err error
}

func (e *argumentError) Error() string { return e.err.Error() }
func (e *argumentError) Unwrap() error { return e.err }

var validate = validator.New()

// decodeArgs unmarshals args into dst and validates its struct tags.
func decodeArgs(args json.RawMessage, dst interface{}) error {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(args, dst); err != nil {
		return &argumentError{err: err}
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &argumentError{err: fmt.Errorf("argument %s fails %q", fe.Namespace(), fe.Tag())}
		}
		return &argumentError{err: err}
	}
	return nil
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Argument errors return code -32602; other tool errors return -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	entry := s.log.WithField("tool", params.Name)

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		entry.WithError(err).Warn("tool failed")
		var argErr *argumentError
		if errors.As(err, &argErr) {
			return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	entry.WithField("elapsed", time.Since(start).String()).Debug("tool completed")

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "maze_detect":
		return s.handleMazeDetect(args)
	case "maze_solve":
		return s.handleMazeSolve(args)
	case "maze_track":
		return s.handleMazeTrack(args)

	case "maze_projection_start":
		return s.handleProjectionStart(args)
	case "maze_projection_update":
		return s.handleProjectionUpdate(args)
	case "maze_projection_stop":
		return s.handleProjectionStop(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// loadMaze decodes path through the cache and binarizes it.
func (s *Server) loadMaze(path string) (*frame.Loaded, *maze.Maze, int, error) {
	l, err := s.cache.Load(path, s.cfg.MaxDimension)
	if err != nil {
		return nil, nil, 0, err
	}
	m, threshold, err := maze.DetectWithThreshold(l.Frame)
	if err != nil {
		return nil, nil, 0, err
	}
	return l, m, threshold, nil
}

// === Detection Handlers ===

type mazeDetectArgs struct {
	Path   string `json:"path" validate:"required"`
	Render bool   `json:"render"`
}

type mazeDetectResult struct {
	*maze.DetectResult
	SourceWidth  int             `json:"source_width"`
	SourceHeight int             `json:"source_height"`
	Scale        float64         `json:"scale"`
	Image        *render.Encoded `json:"image,omitempty"`
}

func (s *Server) handleMazeDetect(args json.RawMessage) (interface{}, error) {
	var a mazeDetectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	l, m, threshold, err := s.loadMaze(a.Path)
	if err != nil {
		return nil, err
	}
	result := &mazeDetectResult{
		DetectResult: maze.Summarize(m, threshold),
		SourceWidth:  l.SourceWidth,
		SourceHeight: l.SourceHeight,
		Scale:        l.Scale,
	}

	if a.Render {
		o, err := render.NewOverlay(render.DefaultStyle())
		if err != nil {
			return nil, err
		}
		o.SetFrame(l.Frame)
		if err := o.DrawMaze(m); err != nil {
			return nil, err
		}
		if result.Image, err = o.Encode(); err != nil {
			return nil, err
		}
	}
	return result, nil
}

type mazeSolveArgs struct {
	Path   string      `json:"path" validate:"required"`
	Start  *geom.Point `json:"start" validate:"required"`
	End    *geom.Point `json:"end" validate:"required"`
	Render bool        `json:"render"`
}

type mazeSolveResult struct {
	Found      bool            `json:"found"`
	Length     int             `json:"length"`
	Path       []geom.Point    `json:"path"`
	StartValid bool            `json:"start_valid"`
	EndValid   bool            `json:"end_valid"`
	Threshold  int             `json:"threshold"`
	Scale      float64         `json:"scale"`
	Image      *render.Encoded `json:"image,omitempty"`
}

func (s *Server) handleMazeSolve(args json.RawMessage) (interface{}, error) {
	var a mazeSolveArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	l, m, threshold, err := s.loadMaze(a.Path)
	if err != nil {
		return nil, err
	}

	sol := maze.SolveBetween(m, *a.Start, *a.End)
	result := &mazeSolveResult{
		Found:      sol.Found,
		Length:     sol.Length(),
		Path:       sol.Path,
		StartValid: m.ValidPoint(*a.Start),
		EndValid:   m.ValidPoint(*a.End),
		Threshold:  threshold,
		Scale:      l.Scale,
	}

	if a.Render {
		o, err := render.NewOverlay(render.DefaultStyle())
		if err != nil {
			return nil, err
		}
		o.SetFrame(l.Frame)
		path := geom.Identity.ApplyPath(sol.Path)
		if err := o.Draw(path, endpointMarkers(path)); err != nil {
			return nil, err
		}
		if result.Image, err = o.Encode(); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func endpointMarkers(path []geom.FramePoint) session.Markers {
	if len(path) == 0 {
		return session.Markers{}
	}
	start, end := path[0], path[len(path)-1]
	return session.Markers{Start: &start, End: &end}
}

// === Tracking Handlers ===

type mazeTrackArgs struct {
	Reference string      `json:"reference" validate:"required"`
	Frames    []string    `json:"frames" validate:"required,min=1,dive,required"`
	Start     *geom.Point `json:"start" validate:"required"`
	End       *geom.Point `json:"end" validate:"required"`
	Render    bool        `json:"render"`
}

// frameReport describes one processed frame.
type frameReport struct {
	Index           int               `json:"index"`
	Path            string            `json:"path"`
	Tracked         bool              `json:"tracked"`
	Correspondences int               `json:"correspondences"`
	Inliers         int               `json:"inliers"`
	Transform       geom.Matrix       `json:"transform"`
	Projected       []geom.FramePoint `json:"projected"`
	Image           *render.Encoded   `json:"image,omitempty"`
}

type mazeTrackResult struct {
	Found  bool          `json:"found"`
	Length int           `json:"length"`
	Path   []geom.Point  `json:"path"`
	Frames []frameReport `json:"frames"`
	Stats  session.Stats `json:"stats"`
}

func (s *Server) handleMazeTrack(args json.RawMessage) (interface{}, error) {
	var a mazeTrackArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	ref, m, _, err := s.loadMaze(a.Reference)
	if err != nil {
		return nil, err
	}
	sol := maze.SolveBetween(m, *a.Start, *a.End)

	result := &mazeTrackResult{
		Found:  sol.Found,
		Length: sol.Length(),
		Path:   sol.Path,
		Frames: []frameReport{},
	}
	if !sol.Found {
		return result, nil
	}

	overlay, err := render.NewOverlay(render.DefaultStyle())
	if err != nil {
		return nil, err
	}
	overlay.SetFrame(ref.Frame)
	rec := &render.Recorder{}
	sess := session.New(render.Tee{overlay, rec}, s.cfg.TrackingConfig(), s.log)

	ctx := context.Background()
	if err := sess.Initialize(ref.Frame, m, sol); err != nil {
		return nil, err
	}
	if err := sess.StartProjection(ctx); err != nil {
		return nil, err
	}

	src := overlay.Watch(render.NewFileSource(s.cache, s.cfg.MaxDimension, a.Frames...))
	for i := 0; ; i++ {
		f, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := sess.Update(ctx, f); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}

		report := reportFrame(i, a.Frames[i], sess.LastResult(), rec)
		if a.Render {
			if report.Image, err = overlay.Encode(); err != nil {
				return nil, err
			}
		}
		result.Frames = append(result.Frames, report)
	}
	sess.StopProjection()

	result.Stats = sess.Stats()
	s.log.WithFields(logrus.Fields{
		"frames":  result.Stats.Frames,
		"tracked": result.Stats.Tracked,
	}).Info("tracked frame sequence")
	return result, nil
}

func reportFrame(index int, path string, res tracking.Result, rec *render.Recorder) frameReport {
	report := frameReport{
		Index:           index,
		Path:            path,
		Tracked:         res.Updated,
		Correspondences: res.Correspondences,
		Inliers:         res.Inliers,
		Transform:       res.Transform,
	}
	if last, ok := rec.Last(); ok {
		report.Projected = last.Path
	}
	return report
}
