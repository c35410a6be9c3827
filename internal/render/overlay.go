package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/maze-ar-mcp/internal/frame"
	"github.com/ironsheep/maze-ar-mcp/internal/geom"
	"github.com/ironsheep/maze-ar-mcp/internal/maze"
	"github.com/ironsheep/maze-ar-mcp/internal/session"
)

// ErrNoFrame is returned when drawing before any frame has been set.
var ErrNoFrame = errors.New("overlay has no frame")

// Style controls overlay colours and sizes. Colours are "#rrggbb" hex strings.
type Style struct {
	PathColor    string  `json:"path_color"`
	StartColor   string  `json:"start_color"`
	EndColor     string  `json:"end_color"`
	LineWidth    float64 `json:"line_width"`
	GlowWidth    float64 `json:"glow_width"`
	GlowAlpha    float64 `json:"glow_alpha"`
	MarkerRadius float64 `json:"marker_radius"`

	// WallColor shades non-navigable cells in DrawMaze at WallAlpha.
	WallColor string  `json:"wall_color"`
	WallAlpha float64 `json:"wall_alpha"`

	// Labels writes "S" and "E" beside the markers in LabelColor.
	Labels     bool   `json:"labels"`
	LabelColor string `json:"label_color"`
}

// DefaultStyle returns a cyan path with green start and red end markers.
func DefaultStyle() Style {
	return Style{
		PathColor:    "#00e5ff",
		StartColor:   "#00c853",
		EndColor:     "#ff1744",
		LineWidth:    3,
		GlowWidth:    9,
		GlowAlpha:    0.35,
		MarkerRadius: 6,
		WallColor:    "#282864",
		WallAlpha:    0.5,
		Labels:       true,
		LabelColor:   "#ffffff",
	}
}

// Encoded is a rendered overlay ready to return to a client.
type Encoded struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Overlay is a session.Sink that rasterizes each path onto a copy of the
// most recent frame.
type Overlay struct {
	mu    sync.Mutex
	style Style
	path  colorful.Color
	start colorful.Color
	end   colorful.Color
	wall  colorful.Color
	text  colorful.Color
	base  *frame.Frame
	out   *image.RGBA
}

// NewOverlay parses the style colours and returns an overlay with no frame.
func NewOverlay(style Style) (*Overlay, error) {
	o := &Overlay{style: style}
	var err error
	if o.path, err = colorful.Hex(style.PathColor); err != nil {
		return nil, fmt.Errorf("path color %q: %w", style.PathColor, err)
	}
	if o.start, err = colorful.Hex(style.StartColor); err != nil {
		return nil, fmt.Errorf("start color %q: %w", style.StartColor, err)
	}
	if o.end, err = colorful.Hex(style.EndColor); err != nil {
		return nil, fmt.Errorf("end color %q: %w", style.EndColor, err)
	}
	if o.wall, err = colorful.Hex(style.WallColor); err != nil {
		return nil, fmt.Errorf("wall color %q: %w", style.WallColor, err)
	}
	if style.Labels {
		if o.text, err = colorful.Hex(style.LabelColor); err != nil {
			return nil, fmt.Errorf("label color %q: %w", style.LabelColor, err)
		}
	}
	return o, nil
}

// SetFrame sets the frame the next Draw paints over.
func (o *Overlay) SetFrame(f *frame.Frame) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.base = f
}

// Watch wraps src so every frame it delivers becomes the overlay's frame.
func (o *Overlay) Watch(src session.Source) session.Source {
	return watched{src: src, o: o}
}

// Draw renders path and markers over the current frame. An empty path
// clears the overlay back to the bare frame.
func (o *Overlay) Draw(path []geom.FramePoint, markers session.Markers) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.base == nil {
		return ErrNoFrame
	}
	img := o.base.Image()
	w, h := o.base.Width, o.base.Height

	glow := newLayer(w, h)
	core := newLayer(w, h)
	for i := range path {
		if i == 0 {
			glow.disc(path[0], o.style.GlowWidth/2, o.style.GlowAlpha)
			core.disc(path[0], o.style.LineWidth/2, 1)
			continue
		}
		glow.segment(path[i-1], path[i], o.style.GlowWidth/2, o.style.GlowAlpha)
		core.segment(path[i-1], path[i], o.style.LineWidth/2, 1)
	}
	glow.composite(img, o.path)
	core.composite(img, o.path)
	o.markers(img, markers)

	o.out = img
	return nil
}

// DrawMaze shades the walls of m over the current frame and marks m's
// endpoints when they are set. Grid cells outside the frame are ignored.
func (o *Overlay) DrawMaze(m *maze.Maze) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.base == nil {
		return ErrNoFrame
	}
	if m == nil || m.Grid == nil {
		return errors.New("draw maze: nil maze")
	}
	img := o.base.Image()
	w, h := o.base.Width, o.base.Height

	if o.style.WallAlpha > 0 {
		walls := newLayer(w, h)
		for y := 0; y < min(h, m.Height()); y++ {
			for x := 0; x < min(w, m.Width()); x++ {
				if !m.Grid.Navigable(x, y) {
					walls.alpha[y*w+x] = math.Min(o.style.WallAlpha, 1)
					walls.any = true
				}
			}
		}
		walls.composite(img, o.wall)
	}

	var markers session.Markers
	if m.Start != nil {
		p := geom.Identity.Apply(*m.Start)
		markers.Start = &p
	}
	if m.End != nil {
		p := geom.Identity.Apply(*m.End)
		markers.End = &p
	}
	o.markers(img, markers)

	o.out = img
	return nil
}

// markers draws the start and end discs and their labels.
func (o *Overlay) markers(img *image.RGBA, markers session.Markers) {
	b := img.Bounds()
	if markers.Start != nil {
		m := newLayer(b.Dx(), b.Dy())
		m.disc(*markers.Start, o.style.MarkerRadius, 1)
		m.composite(img, o.start)
	}
	if markers.End != nil {
		m := newLayer(b.Dx(), b.Dy())
		m.disc(*markers.End, o.style.MarkerRadius, 1)
		m.composite(img, o.end)
	}
	if o.style.Labels {
		if markers.Start != nil {
			o.label(img, *markers.Start, "S")
		}
		if markers.End != nil {
			o.label(img, *markers.End, "E")
		}
	}
}

// Image returns the last rendered image, or nil before the first Draw.
func (o *Overlay) Image() *image.RGBA {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.out
}

// Encode returns the last rendered image as base64 PNG.
func (o *Overlay) Encode() (*Encoded, error) {
	img := o.Image()
	if img == nil {
		return nil, ErrNoFrame
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	b := img.Bounds()
	return &Encoded{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// label draws text to the right of a marker, vertically centred on it.
func (o *Overlay) label(img *image.RGBA, at geom.FramePoint, text string) {
	b := img.Bounds()
	x := at.X + o.style.MarkerRadius + 2
	y := at.Y + 4
	if math.IsNaN(x) || math.IsNaN(y) || x < -20 || y < -20 || x > float64(b.Dx()+20) || y > float64(b.Dy()+20) {
		return
	}
	r, g, bl := o.text.RGB255()
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: r, G: g, B: bl, A: 255}),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(int(x)), Y: fixed.I(int(y))},
	}
	d.DrawString(text)
}

type watched struct {
	src session.Source
	o   *Overlay
}

func (w watched) Next(ctx context.Context) (*frame.Frame, error) {
	f, err := w.src.Next(ctx)
	if err == nil {
		w.o.SetFrame(f)
	}
	return f, err
}

// layer is a per-pixel coverage mask. Overlapping strokes keep the maximum
// coverage so segment joints do not darken.
type layer struct {
	w, h  int
	alpha []float64
	any   bool
}

func newLayer(w, h int) *layer {
	return &layer{w: w, h: h, alpha: make([]float64, w*h)}
}

func (l *layer) disc(c geom.FramePoint, r, alpha float64) {
	if r <= 0 || alpha <= 0 || math.IsNaN(c.X) || math.IsNaN(c.Y) || math.IsInf(c.X, 0) || math.IsInf(c.Y, 0) {
		return
	}
	if c.X+r < 0 || c.Y+r < 0 || c.X-r > float64(l.w-1) || c.Y-r > float64(l.h-1) {
		return
	}
	x0 := clamp(int(math.Floor(c.X-r)), 0, l.w-1)
	x1 := clamp(int(math.Ceil(c.X+r)), 0, l.w-1)
	y0 := clamp(int(math.Floor(c.Y-r)), 0, l.h-1)
	y1 := clamp(int(math.Ceil(c.Y+r)), 0, l.h-1)

	r2 := r * r
	for y := y0; y <= y1; y++ {
		dy := float64(y) - c.Y
		for x := x0; x <= x1; x++ {
			dx := float64(x) - c.X
			if dx*dx+dy*dy > r2 {
				continue
			}
			i := y*l.w + x
			if alpha > l.alpha[i] {
				l.alpha[i] = alpha
				l.any = true
			}
		}
	}
}

// segment stamps discs every half pixel from p to q. Segments far longer
// than the frame come from degenerate projections and are skipped.
func (l *layer) segment(p, q geom.FramePoint, r, alpha float64) {
	d := p.Dist(q)
	if math.IsNaN(d) || d > 4*float64(l.w+l.h) {
		return
	}
	steps := int(math.Ceil(d * 2))
	if steps == 0 {
		l.disc(p, r, alpha)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		l.disc(geom.FramePoint{X: p.X + (q.X-p.X)*t, Y: p.Y + (q.Y-p.Y)*t}, r, alpha)
	}
}

func (l *layer) composite(img *image.RGBA, c colorful.Color) {
	if !l.any {
		return
	}
	for y := 0; y < l.h; y++ {
		for x := 0; x < l.w; x++ {
			a := l.alpha[y*l.w+x]
			if a == 0 {
				continue
			}
			off := img.PixOffset(x, y)
			under := colorful.Color{
				R: float64(img.Pix[off]) / 255,
				G: float64(img.Pix[off+1]) / 255,
				B: float64(img.Pix[off+2]) / 255,
			}
			r, g, b := under.BlendRgb(c, a).Clamped().RGB255()
			img.Pix[off], img.Pix[off+1], img.Pix[off+2], img.Pix[off+3] = r, g, b, 255
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
