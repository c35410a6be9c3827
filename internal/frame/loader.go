package frame

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"
	"time"
)

// Cache provides thread-safe caching of frames decoded from image files.
//
// Entries are keyed by path and by the downsampling limit used, since the
// same file produces different frames for different limits. An entry is
// decoded again when the file's size or modification time changes, so a
// frame file rewritten in place by a capture loop is never served stale.
// Cached frames remain in memory until Evict or Clear is called.
type Cache struct {
	mu     sync.RWMutex
	frames map[cacheKey]*Loaded
}

type cacheKey struct {
	path string
	max  int
}

// Loaded is a decoded frame together with how it was derived from its file.
type Loaded struct {
	Frame *Frame

	// Scale is output size divided by the original image size.
	Scale float64

	// SourceWidth and SourceHeight are the original image dimensions.
	SourceWidth  int
	SourceHeight int

	modTime time.Time
	size    int64
}

func (l *Loaded) current(fi os.FileInfo) bool {
	return l.size == fi.Size() && l.modTime.Equal(fi.ModTime())
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{frames: make(map[cacheKey]*Loaded)}
}

// Load returns the frame for path, decoding and caching it on first use.
//
// Parameters:
//   - path: File path to the image. Supported formats are PNG, JPEG and GIF.
//   - maxDimension: Upper bound on the longer side of the resulting frame.
//     Larger images are downsampled with their aspect ratio preserved. Zero
//     disables downsampling.
//
// Returns:
//   - *Loaded: The frame together with the applied scale and the original
//     image dimensions. The same *Loaded is returned while the file is
//     unchanged.
//   - error: Non-nil if the file cannot be read, decoded or converted.
//
// Each call stats the file. When its size or modification time differs from
// the cached entry the file is decoded again, so a capture loop that rewrites
// one path gets the new frame every time. Different path strings for the same
// file (relative vs absolute) get separate entries.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not a valid PNG, JPEG, or GIF image
//   - Returns error wrapping ErrInvalidFrame if the image has no pixels
func (c *Cache) Load(path string, maxDimension int) (*Loaded, error) {
	key := cacheKey{path: path, max: maxDimension}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	c.mu.RLock()
	if l, ok := c.frames[key]; ok && l.current(fi) {
		c.mu.RUnlock()
		return l, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	fr, scale, err := FromImage(img, maxDimension)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}

	l := &Loaded{
		Frame:        fr,
		Scale:        scale,
		SourceWidth:  img.Bounds().Dx(),
		SourceHeight: img.Bounds().Dy(),
		modTime:      fi.ModTime(),
		size:         fi.Size(),
	}

	c.mu.Lock()
	c.frames[key] = l
	c.mu.Unlock()

	return l, nil
}

// Evict removes every cached frame decoded from path.
func (c *Cache) Evict(path string) {
	c.mu.Lock()
	for k := range c.frames {
		if k.path == path {
			delete(c.frames, k)
		}
	}
	c.mu.Unlock()
}

// Clear removes all cached frames.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.frames = make(map[cacheKey]*Loaded)
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.frames)
}
