package signal

import "sync"

// Signal is a list of handlers for values of type T. The zero value is ready
// to use.
type Signal[T any] struct {
	mu       sync.Mutex
	nextID   uint64
	handlers []handler[T]
	blocked  int
}

type handler[T any] struct {
	id uint64
	fn func(T)
}

// Connect registers fn and returns a function that disconnects it. The
// returned function is idempotent.
func (s *Signal[T]) Connect(fn func(T)) (disconnect func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.handlers = append(s.handlers, handler[T]{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.disconnect(id) })
	}
}

func (s *Signal[T]) disconnect(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, h := range s.handlers {
		if h.id == id {
			next := make([]handler[T], 0, len(s.handlers)-1)
			next = append(next, s.handlers[:i]...)
			next = append(next, s.handlers[i+1:]...)
			s.handlers = next
			return
		}
	}
}

// Emit calls every handler with value. Emissions are dropped while the
// signal is blocked.
func (s *Signal[T]) Emit(value T) {
	s.mu.Lock()
	if s.blocked > 0 {
		s.mu.Unlock()
		return
	}
	handlers := s.handlers
	s.mu.Unlock()

	for _, h := range handlers {
		h.fn(value)
	}
}

// Block suppresses emissions until the returned function is called. Blocks
// nest.
func (s *Signal[T]) Block() (unblock func()) {
	s.mu.Lock()
	s.blocked++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.blocked--
			s.mu.Unlock()
		})
	}
}

// Len returns the number of connected handlers.
func (s *Signal[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}
