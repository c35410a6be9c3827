package frame

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// createInMemoryImage creates a uniform in-memory image.
func createInMemoryImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createTestImage writes a uniform PNG into the test's temp dir and returns its path.
func createTestImage(t *testing.T, width, height int, c color.Color) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frame.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, createInMemoryImage(width, height, c)); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		pixLen  int
		wantErr bool
	}{
		{"valid", 4, 3, 48, false},
		{"zero width", 0, 3, 0, true},
		{"negative height", 4, -1, 0, true},
		{"short buffer", 4, 3, 47, true},
		{"long buffer", 4, 3, 52, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.w, tt.h, make([]uint8, tt.pixLen))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidFrame) {
					t.Fatalf("error: got %v, want ErrInvalidFrame", err)
				}
				if f != nil {
					t.Error("frame should be nil on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.Width != tt.w || f.Height != tt.h {
				t.Errorf("dimensions: got %dx%d, want %dx%d", f.Width, f.Height, tt.w, tt.h)
			}
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	var f *Frame
	if err := f.Validate(); !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("got %v, want ErrInvalidFrame", err)
	}
}

func TestUniform(t *testing.T) {
	f, err := Uniform(5, 4, 10, 20, 30, 255)
	if err != nil {
		t.Fatalf("Uniform failed: %v", err)
	}
	r, g, b, a := f.At(4, 3)
	if r != 10 || g != 20 || b != 30 || a != 255 {
		t.Errorf("At(4,3): got (%d,%d,%d,%d), want (10,20,30,255)", r, g, b, a)
	}
	if got := f.Intensity(2, 2); got != 20 {
		t.Errorf("Intensity: got %v, want 20", got)
	}

	if _, err := Uniform(0, 4, 0, 0, 0, 0); !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("zero width: got %v, want ErrInvalidFrame", err)
	}
}

func TestIntensity_IgnoresAlpha(t *testing.T) {
	f, _ := New(1, 1, []uint8{30, 60, 90, 0})
	if got := f.Intensity(0, 0); got != 60 {
		t.Errorf("got %v, want 60", got)
	}
	if got := f.Gray()[0]; got != 60 {
		t.Errorf("Gray: got %v, want 60", got)
	}
}

func TestFromImage_NoResize(t *testing.T) {
	img := createInMemoryImage(40, 30, color.RGBA{200, 100, 50, 255})

	f, scale, err := FromImage(img, 100)
	if err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}
	if scale != 1 {
		t.Errorf("scale: got %v, want 1", scale)
	}
	if f.Width != 40 || f.Height != 30 {
		t.Errorf("dimensions: got %dx%d, want 40x30", f.Width, f.Height)
	}
	r, g, b, a := f.At(39, 29)
	if r != 200 || g != 100 || b != 50 || a != 255 {
		t.Errorf("pixel: got (%d,%d,%d,%d), want (200,100,50,255)", r, g, b, a)
	}
}

func TestFromImage_Downsample(t *testing.T) {
	img := createInMemoryImage(200, 100, color.White)

	f, scale, err := FromImage(img, 50)
	if err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}
	if f.Width != 50 || f.Height != 25 {
		t.Errorf("dimensions: got %dx%d, want 50x25", f.Width, f.Height)
	}
	if scale != 0.25 {
		t.Errorf("scale: got %v, want 0.25", scale)
	}
}

func TestFromImage_SubImageOffset(t *testing.T) {
	base := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			if x >= 10 {
				base.Set(x, y, color.White)
			} else {
				base.Set(x, y, color.Black)
			}
		}
	}
	sub := base.SubImage(image.Rect(10, 5, 20, 15))

	f, _, err := FromImage(sub, 0)
	if err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}
	if f.Width != 10 || f.Height != 10 {
		t.Fatalf("dimensions: got %dx%d, want 10x10", f.Width, f.Height)
	}
	if got := f.Intensity(0, 0); got != 255 {
		t.Errorf("sub-image origin should map to (0,0): got intensity %v", got)
	}
}

func TestFromImage_Empty(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 0, 0))
	if _, _, err := FromImage(img, 0); !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("got %v, want ErrInvalidFrame", err)
	}
}

func TestSmoothGray_Uniform(t *testing.T) {
	f, _ := Uniform(20, 20, 128, 128, 128, 255)
	smooth := f.SmoothGray(1.5)

	for y := 5; y < 15; y++ {
		for x := 5; x < 15; x++ {
			if v := smooth[y*20+x]; math.Abs(v-128) > 1 {
				t.Errorf("smooth[%d,%d]: got %.2f, want ~128", x, y, v)
			}
		}
	}
}

func TestSmoothGray_ZeroRadius(t *testing.T) {
	f, _ := New(2, 1, []uint8{0, 0, 0, 255, 255, 255, 255, 255})
	got := f.SmoothGray(0)
	if got[0] != 0 || got[1] != 255 {
		t.Errorf("got %v, want [0 255]", got)
	}
}

func TestImage_Copy(t *testing.T) {
	f, _ := Uniform(3, 3, 1, 2, 3, 255)
	img := f.Image()
	img.Pix[0] = 99
	if f.Pix[0] != 1 {
		t.Error("Image must not alias the frame buffer")
	}
}

func TestCache_Load(t *testing.T) {
	path := createTestImage(t, 64, 32, color.RGBA{255, 255, 255, 255})
	c := NewCache()

	l, err := c.Load(path, 0)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if l.Frame.Width != 64 || l.Frame.Height != 32 {
		t.Errorf("dimensions: got %dx%d, want 64x32", l.Frame.Width, l.Frame.Height)
	}
	if l.SourceWidth != 64 || l.SourceHeight != 32 || l.Scale != 1 {
		t.Errorf("source: got %dx%d scale %v", l.SourceWidth, l.SourceHeight, l.Scale)
	}

	again, err := c.Load(path, 0)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if again != l {
		t.Error("second Load should return the cached entry")
	}

	small, err := c.Load(path, 16)
	if err != nil {
		t.Fatalf("downsampled Load failed: %v", err)
	}
	if small.Frame.Width != 16 || small.Frame.Height != 8 {
		t.Errorf("downsampled: got %dx%d, want 16x8", small.Frame.Width, small.Frame.Height)
	}
	if c.Len() != 2 {
		t.Errorf("Len: got %d, want 2", c.Len())
	}

	c.Evict(path)
	if c.Len() != 0 {
		t.Errorf("Len after Evict: got %d, want 0", c.Len())
	}
}

func TestCache_ReloadsRewrittenFile(t *testing.T) {
	path := createTestImage(t, 20, 10, color.White)
	c := NewCache()

	first, err := c.Load(path, 0)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to rewrite file: %v", err)
	}
	if err := png.Encode(f, createInMemoryImage(30, 12, color.Black)); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	f.Close()
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	second, err := c.Load(path, 0)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if second == first {
		t.Fatal("rewritten file should not be served from cache")
	}
	if second.Frame.Width != 30 || second.Frame.Height != 12 {
		t.Errorf("dimensions: got %dx%d, want 30x12", second.Frame.Width, second.Frame.Height)
	}
	if c.Len() != 1 {
		t.Errorf("Len: got %d, want 1", c.Len())
	}
}

func TestCache_LoadErrors(t *testing.T) {
	c := NewCache()
	if _, err := c.Load("/nonexistent/maze.png", 0); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Load(bad, 0); err == nil {
		t.Error("expected error for undecodable file")
	}
}

func TestCache_Concurrent(t *testing.T) {
	path := createTestImage(t, 10, 10, color.Black)
	c := NewCache()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Load(path, 0); err != nil {
				t.Errorf("Load failed: %v", err)
			}
		}()
	}
	wg.Wait()

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear: got %d, want 0", c.Len())
	}
}
