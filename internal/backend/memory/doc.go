// Package memory is an in-process composition backend.
//
// It keeps node timing in memory, models child elements with typed parameter
// tables, and recomputes composition durations whenever a child changes. It
// renders nothing; it exists so the timeline model can be exercised end to
// end by tests and by the CLI without a media engine.
//
// Renegotiate emulates the engine adjusting a node on its own streaming
// goroutine, which is how backend-originated changes reach the model.
package memory
