package testsupport

import (
	"sync"

	"cutline/internal/signal"
)

type notifier interface {
	OnNotify(func(signal.Notification)) func()
}

// Recorder collects notifications emitted by an object.
type Recorder struct {
	mu    sync.Mutex
	notes []signal.Notification
}

// Record connects a Recorder to every notification of n.
func Record(n notifier) *Recorder {
	r := &Recorder{}
	n.OnNotify(func(note signal.Notification) {
		r.mu.Lock()
		r.notes = append(r.notes, note)
		r.mu.Unlock()
	})
	return r
}

// Values returns the values notified for property, in order.
func (r *Recorder) Values(property string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, note := range r.notes {
		if note.Property == property {
			out = append(out, note.Value)
		}
	}
	return out
}

// Count returns how many notifications were recorded for property.
func (r *Recorder) Count(property string) int {
	return len(r.Values(property))
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.notes = nil
	r.mu.Unlock()
}
