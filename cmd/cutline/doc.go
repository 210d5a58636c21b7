// Package main hosts the cutline CLI entrypoint and command graph.
//
// The Cobra-based command tree builds a timeline on the in-memory backend
// from clip descriptions given on the command line, arranges the clips in a
// simple layer and reports the resulting placement, track contents and
// layer validity. It centralizes configuration resolution and structured
// logging setup so subcommands only describe what to build and print.
//
// Keep this package lean: timeline behaviour belongs in internal/timeline
// and is only surfaced here.
package main
