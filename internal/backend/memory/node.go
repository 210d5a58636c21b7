package memory

import (
	"fmt"
	"sync"

	"cutline/internal/backend"
)

// Node is the in-memory backend.Node.
type Node struct {
	name string
	role backend.Role
	kind backend.MediaKind

	mu       sync.Mutex
	fields   backend.Fields
	elements []backend.Element
	released bool

	watchers watcherSet
	// parent is notified after every field change so the composition can
	// recompute its duration.
	parentMu sync.Mutex
	parent   func()

	onRelease func()
}

var _ backend.Node = (*Node)(nil)

func (n *Node) Name() string { return n.name }
func (n *Node) Role() backend.Role { return n.role }
func (n *Node) Kind() backend.MediaKind { return n.kind }
func (n *Node) String() string { return n.name }
func (n *Node) Watch(fn func(backend.Change)) func() { return n.watchers.add(fn) }

func (n *Node) Fields() backend.Fields {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.fields
}

func (n *Node) SetFields(values backend.Fields, mask backend.Mask) {
	n.mu.Lock()
	if n.released {
		n.mu.Unlock()
		return
	}
	before := n.fields
	n.fields = n.fields.Merge(values, mask)
	changed := before != n.fields
	n.mu.Unlock()

	if changed {
		n.notifyParent()
	}
}

// Renegotiate applies the masked fields as if the engine changed them on its
// own, then notifies watchers with one Change per modified field. It is safe
// to call from any goroutine.
func (n *Node) Renegotiate(values backend.Fields, mask backend.Mask) {
	n.mu.Lock()
	if n.released {
		n.mu.Unlock()
		return
	}
	before := n.fields
	n.fields = n.fields.Merge(values, mask)
	after := n.fields
	n.mu.Unlock()

	changed := before.Diff(after)
	if len(changed) == 0 {
		return
	}
	n.notifyParent()
	for _, field := range changed {
		n.watchers.emit(backend.Change{Source: n, Field: field, Value: after.Value(field)})
	}
}

func (n *Node) Elements() []backend.Element {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.released {
		return nil
	}
	out := make([]backend.Element, len(n.elements))
	copy(out, n.elements)
	return out
}

// Released reports whether Release has been called.
func (n *Node) Released() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.released
}

func (n *Node) Release() {
	n.mu.Lock()
	if n.released {
		n.mu.Unlock()
		return
	}
	n.released = true
	n.elements = nil
	n.mu.Unlock()

	n.watchers.clear()
	if n.onRelease != nil {
		n.onRelease()
	}
}

func (n *Node) setParent(fn func()) error {
	n.parentMu.Lock()
	defer n.parentMu.Unlock()
	if fn != nil && n.parent != nil {
		return fmt.Errorf("%w: %s", backend.ErrDuplicate, n.name)
	}
	n.parent = fn
	return nil
}

func (n *Node) notifyParent() {
	n.parentMu.Lock()
	fn := n.parent
	n.parentMu.Unlock()
	if fn != nil {
		fn()
	}
}

type watcherSet struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func(backend.Change)
	order  []int
}

func (w *watcherSet) add(fn func(backend.Change)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fns == nil {
		w.fns = make(map[int]func(backend.Change))
	}
	id := w.nextID
	w.nextID++
	w.fns[id] = fn
	w.order = append(w.order, id)
	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			delete(w.fns, id)
			for i, candidate := range w.order {
				if candidate == id {
					w.order = append(w.order[:i], w.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (w *watcherSet) emit(change backend.Change) {
	w.mu.Lock()
	fns := make([]func(backend.Change), 0, len(w.order))
	for _, id := range w.order {
		fns = append(fns, w.fns[id])
	}
	w.mu.Unlock()
	for _, fn := range fns {
		fn(change)
	}
}

func (w *watcherSet) clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fns = nil
	w.order = nil
}

func (w *watcherSet) len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.order)
}
