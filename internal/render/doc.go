// Package render provides the reference collaborators of a projection
// session: sinks that draw or record re-projected paths and a source that
// reads frames from image files.
//
// # Overlay
//
// Overlay paints the path as a soft glow under a solid stroke and marks the
// start and end points with filled discs. It never modifies the frame it
// draws over; each Draw starts from a fresh copy. Points that are not finite
// or lie far outside the frame are dropped, so a degenerate transform
// produces a partial drawing rather than an error.
//
// DrawMaze is the detection view: wall cells of a binarized grid are shaded
// with Style.WallColor so a caller can see what Otsu classified as wall.
//
// Results can be fetched as an *image.RGBA or as base64 PNG via Encode.
//
// # Sources
//
// FileSource yields one frame per file through a frame.Cache. Wrap it with
// Overlay.Watch so the overlay always draws on the frame being tracked.
package render
