// Package backend defines the boundary between the timeline model and the
// media composition engine that actually renders it.
//
// The model never touches decoders, mixers or pipelines directly. It asks a
// Factory for one Node per placed track object and one Composition per track,
// pushes timing values into them, and listens for the changes the engine makes
// on its own (for example after renegotiating caps on its streaming thread).
//
// Implementations must be safe for concurrent use: watchers may be invoked
// from any goroutine, and getters may be called from the control goroutine
// while the engine is running.
package backend
