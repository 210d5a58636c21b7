package timeline

import (
	"sync/atomic"

	"cutline/internal/backend"
)

type queuedChange struct {
	object *TrackObject // nil for composition changes
	change backend.Change
}

// changeQueue carries backend-originated changes from whatever goroutine the
// backend notifies on to the control goroutine. Push never blocks; when the
// queue is full the change is dropped and the next drain reports an overflow
// so the owner can resynchronise from the backend instead.
type changeQueue struct {
	ch       chan queuedChange
	overflow atomic.Bool
}

func newChangeQueue(size int) *changeQueue {
	return &changeQueue{ch: make(chan queuedChange, size)}
}

func (q *changeQueue) push(change queuedChange) {
	select {
	case q.ch <- change:
	default:
		q.overflow.Store(true)
	}
}

func (q *changeQueue) drain() ([]queuedChange, bool) {
	var out []queuedChange
	for {
		select {
		case change := <-q.ch:
			out = append(out, change)
		default:
			return out, q.overflow.Swap(false)
		}
	}
}
