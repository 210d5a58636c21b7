package memory

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"cutline/internal/backend"
)

// Options configures a Factory.
type Options struct {
	// Catalog overrides DefaultCatalog.
	Catalog Catalog
	// FailRoles makes NewNode fail for the listed roles.
	FailRoles []backend.Role
	// FailCompositions makes NewComposition fail.
	FailCompositions bool
}

// Factory hands out in-memory nodes and compositions and counts the ones
// still alive so tests can detect leaks.
type Factory struct {
	catalog Catalog

	mu        sync.Mutex
	failRoles map[backend.Role]bool
	failComps bool
	live      int
	created   int
}

var _ backend.Factory = (*Factory)(nil)

// NewFactory builds a Factory from opts.
func NewFactory(opts Options) *Factory {
	catalog := opts.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	f := &Factory{
		catalog:   catalog,
		failRoles: make(map[backend.Role]bool, len(opts.FailRoles)),
		failComps: opts.FailCompositions,
	}
	for _, role := range opts.FailRoles {
		f.failRoles[role] = true
	}
	return f
}

// SetFailRole toggles failure injection for role.
func (f *Factory) SetFailRole(role backend.Role, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRoles[role] = fail
}

func (f *Factory) NewNode(role backend.Role, kind backend.MediaKind) (backend.Node, error) {
	f.mu.Lock()
	fail := f.failRoles[role]
	f.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("%w: %s node creation disabled", backend.ErrUnsupported, role)
	}
	tmpls, ok := f.catalog.lookup(role, kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", backend.ErrUnsupported, role, kind)
	}

	node := &Node{
		name:   fmt.Sprintf("%s-%s-%s", kind, role, shortID()),
		role:   role,
		kind:   kind,
		fields: backend.Fields{Active: true},
	}
	for _, tmpl := range tmpls {
		node.elements = append(node.elements, newElement(tmpl))
	}
	node.onRelease = f.released

	f.mu.Lock()
	f.live++
	f.created++
	f.mu.Unlock()
	return node, nil
}

func (f *Factory) NewComposition(kind backend.MediaKind, caps string) (backend.Composition, error) {
	if f.failComps {
		return nil, fmt.Errorf("%w: composition creation disabled", backend.ErrUnsupported)
	}
	return &Composition{
		name: fmt.Sprintf("%s-composition-%s", kind, shortID()),
		kind: kind,
		caps: caps,
	}, nil
}

// Live returns the number of nodes created and not yet released.
func (f *Factory) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live
}

// Created returns the number of nodes ever created.
func (f *Factory) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created
}

func (f *Factory) released() {
	f.mu.Lock()
	f.live--
	f.mu.Unlock()
}

func shortID() string {
	id := uuid.NewString()
	return id[:8]
}
