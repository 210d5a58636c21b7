package memory

import (
	"fmt"
	"sync"

	"cutline/internal/backend"
)

// Composition is the in-memory backend.Composition.
type Composition struct {
	name string
	kind backend.MediaKind

	// mu guards the child table and is only held for single add/remove
	// operations and duration recomputation.
	mu       sync.Mutex
	caps     string
	children []*Node
	duration backend.ClockTime
	released bool

	watchers watcherSet
}

var _ backend.Composition = (*Composition)(nil)

func (c *Composition) Name() string { return c.name }
func (c *Composition) Kind() backend.MediaKind { return c.kind }
func (c *Composition) String() string { return c.name }

func (c *Composition) Caps() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.caps
}

func (c *Composition) SetCaps(caps string) {
	c.mu.Lock()
	c.caps = caps
	c.mu.Unlock()
}

func (c *Composition) Watch(fn func(backend.Change)) func() { return c.watchers.add(fn) }

func (c *Composition) Add(child backend.Node) error {
	node, ok := child.(*Node)
	if !ok {
		return fmt.Errorf("%w: foreign node %T", backend.ErrUnsupported, child)
	}
	if node.Kind() != c.kind {
		return fmt.Errorf("%w: %s node in %s composition", backend.ErrUnsupported, node.Kind(), c.kind)
	}

	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return backend.ErrReleased
	}
	for _, existing := range c.children {
		if existing == node {
			c.mu.Unlock()
			return fmt.Errorf("%w: %s", backend.ErrDuplicate, node.Name())
		}
	}
	if err := node.setParent(c.recompute); err != nil {
		c.mu.Unlock()
		return err
	}
	c.children = append(c.children, node)
	c.mu.Unlock()

	c.recompute()
	return nil
}

func (c *Composition) Remove(child backend.Node) error {
	node, ok := child.(*Node)
	if !ok {
		return fmt.Errorf("%w: foreign node %T", backend.ErrUnknownChild, child)
	}

	c.mu.Lock()
	idx := -1
	for i, existing := range c.children {
		if existing == node {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", backend.ErrUnknownChild, node.Name())
	}
	c.children = append(c.children[:idx], c.children[idx+1:]...)
	c.mu.Unlock()

	_ = node.setParent(nil)
	c.recompute()
	return nil
}

func (c *Composition) Children() []backend.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]backend.Node, 0, len(c.children))
	for _, child := range c.children {
		out = append(out, child)
	}
	return out
}

func (c *Composition) Duration() backend.ClockTime {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

func (c *Composition) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.children) > 0 {
		return fmt.Errorf("%w: %s has %d children", backend.ErrBusy, c.name, len(c.children))
	}
	c.released = true
	c.watchers.clear()
	return nil
}

func (c *Composition) recompute() {
	c.mu.Lock()
	var end backend.ClockTime
	for _, child := range c.children {
		fields := child.Fields()
		if !fields.Active {
			continue
		}
		if stop := fields.Start + fields.Duration; stop > end {
			end = stop
		}
	}
	changed := end != c.duration
	c.duration = end
	c.mu.Unlock()

	if changed {
		c.watchers.emit(backend.Change{Source: c, Field: backend.FieldDuration, Value: end})
	}
}
