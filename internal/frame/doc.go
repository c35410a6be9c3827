// Package frame defines the raw frame buffer consumed by maze detection and
// tracking, and the helpers that produce frames from image files.
//
// A Frame is W×H RGBA8 samples, row-major, origin at the top-left. Frames are
// immutable once produced; detection and tracking only read them.
//
// # Validation
//
// Zero-sized frames and buffers whose length is not 4·W·H are programming
// errors. They are rejected at construction time (New, FromImage) with
// ErrInvalidFrame so the algorithms downstream never see them.
//
// # Downsampling
//
// Shortest-path search costs O(W·H). FromImage and Cache.Load accept a
// maximum dimension and shrink larger images before they reach the grid so
// solving stays interactive. The scale factor is reported back so callers can
// map results to the original resolution.
//
// # Thread Safety
//
// Cache is safe for concurrent use. Frames themselves are read-only and may be
// shared between goroutines.
package frame
