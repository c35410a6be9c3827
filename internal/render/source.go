package render

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/ironsheep/maze-ar-mcp/internal/frame"
)

// FileSource is a session.Source that decodes frames from a fixed list of
// image files, in order, through a shared cache.
type FileSource struct {
	mu           sync.Mutex
	cache        *frame.Cache
	paths        []string
	next         int
	maxDimension int
}

// NewFileSource returns a source over paths. A nil cache gets a private one.
// maxDimension is passed to frame.Cache.Load.
func NewFileSource(cache *frame.Cache, maxDimension int, paths ...string) *FileSource {
	if cache == nil {
		cache = frame.NewCache()
	}
	return &FileSource{
		cache:        cache,
		paths:        append([]string(nil), paths...),
		maxDimension: maxDimension,
	}
}

// Next decodes the next file. It returns io.EOF after the last one.
func (s *FileSource) Next(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.next >= len(s.paths) {
		s.mu.Unlock()
		return nil, io.EOF
	}
	path := s.paths[s.next]
	s.next++
	s.mu.Unlock()

	l, err := s.cache.Load(path, s.maxDimension)
	if err != nil {
		return nil, fmt.Errorf("frame %q: %w", path, err)
	}
	return l.Frame, nil
}

// Index returns how many frames have been requested so far.
func (s *FileSource) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}
