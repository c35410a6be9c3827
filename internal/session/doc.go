// Package session drives path projection: it owns a solved maze and a
// tracker and, once per delivered frame, emits the solution path re-projected
// into that frame.
//
// # Lifecycle
//
//	Idle ──Initialize──▶ Initialized ──StartProjection──▶ Tracking ──StopProjection──▶ Stopped
//
// Initialize may be called from any state and always lands in Initialized.
// Update does work only while Tracking with a found solution; everywhere else
// it is a no-op. A session initialized with an unsolved maze is valid but
// permanently inert.
//
// # Frame Delivery
//
// There is no internal timer. Either call Update from the frame source's
// callback, or hand a Source to Run, which processes one frame per iteration
// and checks cancellation and StopProjection before every frame.
package session
