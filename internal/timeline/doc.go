// Package timeline is the non-linear editing model: track objects placed on
// tracks, clips grouping one track object per track, and layers arranging
// clips in time.
//
// Every TrackObject goes through a two-phase lifecycle. While unbound it keeps
// its timing in a pending shadow; once a Track binds it to a backend node, all
// reads and writes go straight to that node. Tracks keep their members sorted
// by (start, priority) and own the single backend composition their members
// are rendered through. Clips push their own start, in-point, duration and
// priority down to every locked track object they own. A SimpleLayer lays its
// clips out back to back in insertion order and treats transitions as
// overlaps between their neighbours.
//
// All mutating calls belong to one control goroutine. Changes the backend
// makes on its own are queued per Track and applied the next time the Track
// is used from the control goroutine (or when Sync is called), so cascades
// started by a single call always complete before that call returns.
package timeline
