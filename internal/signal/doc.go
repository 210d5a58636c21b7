// Package signal provides small typed notification hubs.
//
// A Signal delivers values to its handlers synchronously, in connection
// order, on the emitting goroutine. Handlers may connect or disconnect other
// handlers (including themselves) while an emission is in flight; the change
// takes effect from the next emission.
package signal
