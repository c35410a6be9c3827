package frame

import (
	"errors"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
)

// ErrInvalidFrame is returned when a frame has non-positive dimensions or a
// pixel buffer whose length does not match them.
var ErrInvalidFrame = errors.New("invalid frame")

// Frame is an immutable RGBA8 pixel buffer.
//
// Pix holds 4·Width·Height bytes in row-major order starting at the top-left
// pixel. Samples are R, G, B, A per pixel. Callers must not modify Pix after
// the frame has been handed to any detection or tracking routine.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8
}

// New validates the dimensions and buffer and returns a frame that wraps pix
// without copying it.
func New(width, height int, pix []uint8) (*Frame, error) {
	f := &Frame{Width: width, Height: height, Pix: pix}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks the frame invariants.
func (f *Frame) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: nil frame", ErrInvalidFrame)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidFrame, f.Width, f.Height)
	}
	if want := 4 * f.Width * f.Height; len(f.Pix) != want {
		return fmt.Errorf("%w: buffer has %d bytes, want %d", ErrInvalidFrame, len(f.Pix), want)
	}
	return nil
}

// Uniform returns a frame filled with one colour. It is mostly useful in tests
// and for synthesising blank reference frames.
func Uniform(width, height int, r, g, b, a uint8) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidFrame, width, height)
	}
	pix := make([]uint8, 4*width*height)
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = r, g, b, a
	}
	return &Frame{Width: width, Height: height, Pix: pix}, nil
}

// FromImage converts img into a frame.
//
// If maxDimension is positive and either side of img exceeds it, the image is
// first downsampled (aspect ratio preserved) so that path finding, whose cost
// grows with the pixel count, stays responsive. The returned scale is the
// ratio of output size to input size (1 when no resampling took place).
func FromImage(img image.Image, maxDimension int) (*Frame, float64, error) {
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, 0, fmt.Errorf("%w: empty image", ErrInvalidFrame)
	}

	scale := 1.0
	var nrgba *image.NRGBA
	if maxDimension > 0 && (bounds.Dx() > maxDimension || bounds.Dy() > maxDimension) {
		nrgba = imaging.Fit(img, maxDimension, maxDimension, imaging.Box)
		scale = float64(nrgba.Bounds().Dx()) / float64(bounds.Dx())
	} else {
		nrgba = imaging.Clone(img)
	}

	w, h := nrgba.Bounds().Dx(), nrgba.Bounds().Dy()
	pix := make([]uint8, 4*w*h)
	for y := 0; y < h; y++ {
		copy(pix[y*w*4:(y+1)*w*4], nrgba.Pix[y*nrgba.Stride:y*nrgba.Stride+w*4])
	}

	f, err := New(w, h, pix)
	if err != nil {
		return nil, 0, err
	}
	return f, scale, nil
}

// Image returns a copy of the frame as an *image.RGBA, suitable for drawing on.
// Pixels are treated as opaque or already premultiplied.
func (f *Frame) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	copy(img.Pix, f.Pix)
	return img
}

// At returns the R, G, B, A samples of the pixel at (x, y).
func (f *Frame) At(x, y int) (r, g, b, a uint8) {
	i := (y*f.Width + x) * 4
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3]
}

// Intensity returns the mean of the red, green and blue samples at (x, y).
// Alpha is ignored.
func (f *Frame) Intensity(x, y int) float64 {
	i := (y*f.Width + x) * 4
	return (float64(f.Pix[i]) + float64(f.Pix[i+1]) + float64(f.Pix[i+2])) / 3
}

// Gray returns the per-pixel intensity plane (see Intensity), row-major.
func (f *Frame) Gray() []float64 {
	out := make([]float64, f.Width*f.Height)
	for i := range out {
		p := i * 4
		out[i] = (float64(f.Pix[p]) + float64(f.Pix[p+1]) + float64(f.Pix[p+2])) / 3
	}
	return out
}

// SmoothGray returns the intensity plane after a Gaussian blur of the given
// radius. A non-positive radius returns Gray unchanged.
func (f *Frame) SmoothGray(radius float64) []float64 {
	if radius <= 0 {
		return f.Gray()
	}

	src := &image.RGBA{Pix: f.Pix, Stride: f.Width * 4, Rect: image.Rect(0, 0, f.Width, f.Height)}
	blurred := blur.Gaussian(src, radius)

	out := make([]float64, f.Width*f.Height)
	for y := 0; y < f.Height; y++ {
		row := blurred.Pix[y*blurred.Stride:]
		for x := 0; x < f.Width; x++ {
			p := x * 4
			out[y*f.Width+x] = (float64(row[p]) + float64(row[p+1]) + float64(row[p+2])) / 3
		}
	}
	return out
}

// SameSize reports whether two frames share dimensions.
func (f *Frame) SameSize(o *Frame) bool {
	return f != nil && o != nil && f.Width == o.Width && f.Height == o.Height
}
