package backend

import (
	"fmt"
	"math"
	"time"
)

// ClockTime is a position or length on the timeline, in nanoseconds.
type ClockTime uint64

const (
	Nanosecond  ClockTime = 1
	Microsecond           = 1000 * Nanosecond
	Millisecond           = 1000 * Microsecond
	Second                = 1000 * Millisecond

	// ClockTimeNone marks an unset time, such as an unlimited max duration.
	ClockTimeNone ClockTime = math.MaxUint64
)

// FromDuration converts a non-negative time.Duration. Negative durations map to 0.
func FromDuration(d time.Duration) ClockTime {
	if d < 0 {
		return 0
	}
	return ClockTime(d)
}

// Valid reports whether t is a real time rather than ClockTimeNone.
func (t ClockTime) Valid() bool {
	return t != ClockTimeNone
}

// Duration converts t to a time.Duration, saturating at the maximum.
func (t ClockTime) Duration() time.Duration {
	if t > ClockTime(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(t)
}

// String renders t as h:mm:ss.nnnnnnnnn, or "none" for ClockTimeNone.
func (t ClockTime) String() string {
	if !t.Valid() {
		return "none"
	}
	hours := uint64(t / (3600 * Second))
	minutes := uint64(t/(60*Second)) % 60
	seconds := uint64(t/Second) % 60
	nanos := uint64(t % Second)
	return fmt.Sprintf("%d:%02d:%02d.%09d", hours, minutes, seconds, nanos)
}

// SaturatingSub returns t-d, clamped at zero.
func (t ClockTime) SaturatingSub(d ClockTime) ClockTime {
	if d >= t {
		return 0
	}
	return t - d
}
