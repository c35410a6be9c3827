// Package server implements the MCP (Model Context Protocol) server for maze
// solving and path projection.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// One-shot tools:
//   - maze_detect: Binarize an image and report the grid, optionally with walls shaded
//   - maze_solve: Shortest path between two cells, optionally rendered
//   - maze_track: Solve in a reference frame and re-project into later frames
//
// Held projection session:
//   - maze_projection_start: Solve and start projecting
//   - maze_projection_update: Track one more frame
//   - maze_projection_stop: Stop; later updates are ignored
//
// Coordinates are in grid space, which equals image pixels unless the image
// was larger than MAZE_MCP_MAX_DIMENSION and got downsampled. maze_detect
// reports the scale that was applied.
//
// # Frame Caching
//
// Decoded frames are cached by path for the lifetime of the process, so a
// reference frame reused across calls is decoded once. A file rewritten in
// place (a new size or modification time) is decoded again, so a capture
// loop may pass the same path to every maze_projection_update.
//
// # Error Handling
//
// Tool failures are returned as JSON-RPC error responses:
//   - -32602: missing or malformed tool arguments
//   - -32000: tool execution failure (unreadable image, no session, ...)
//   - -32601: unknown method
//   - -32700: request line is not JSON
package server
