package timeline

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/samber/lo"

	"cutline/internal/backend"
	"cutline/internal/logging"
	"cutline/internal/signal"
)

// Track is a sorted container of TrackObjects of one media kind. It owns the
// backend composition their nodes are added to.
type Track struct {
	signal.Notifier

	// ObjectAdded fires after an object is bound and inserted.
	ObjectAdded signal.Signal[*TrackObject]
	// ObjectRemoved fires after an object is unbound and removed.
	ObjectRemoved signal.Signal[*TrackObject]

	kind    backend.MediaKind
	factory backend.Factory
	comp    backend.Composition
	queue   *changeQueue
	unwatch func()
	logger  *slog.Logger

	mu        sync.Mutex
	members   []*TrackObject
	listeners map[*TrackObject]func()
	duration  ClockTime
	timeline  *Timeline
	released  bool
}

// NewTrack creates a track of kind whose composition is restricted to caps.
func NewTrack(kind backend.MediaKind, caps string, factory backend.Factory, opts ...Option) (*Track, error) {
	o := buildOptions(opts)
	if factory == nil {
		return nil, Wrap(ErrBind, "track", "create", "no backend factory", nil)
	}
	comp, err := factory.NewComposition(kind, caps)
	if err != nil {
		return nil, Wrap(ErrBind, "track", "create", fmt.Sprintf("%s composition", kind), err)
	}
	t := &Track{
		kind:      kind,
		factory:   factory,
		comp:      comp,
		queue:     newChangeQueue(o.queueSize),
		logger:    logging.NewComponentLogger(o.logger, "track").With(logging.String("track_kind", kind.String())),
		listeners: map[*TrackObject]func(){},
	}
	t.unwatch = comp.Watch(func(change backend.Change) {
		t.queue.push(queuedChange{change: change})
	})
	return t, nil
}

func (t *Track) Kind() backend.MediaKind { return t.kind }

// Composition exposes the backend aggregation node.
func (t *Track) Composition() backend.Composition { return t.comp }

func (t *Track) String() string {
	return fmt.Sprintf("%s track", t.kind)
}

// Caps returns the restriction applied to the composition output.
func (t *Track) Caps() string {
	return t.comp.Caps()
}

// SetCaps changes the output restriction.
func (t *Track) SetCaps(caps string) {
	if t.comp.Caps() == caps {
		return
	}
	t.comp.SetCaps(caps)
	t.Notify(t, PropCaps, caps)
}

// Timeline returns the owning timeline, or nil.
func (t *Track) Timeline() *Timeline {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timeline
}

func (t *Track) setTimeline(tl *Timeline) {
	t.mu.Lock()
	t.timeline = tl
	t.mu.Unlock()
}

// Add binds obj to a new backend node and inserts it in sorted position.
func (t *Track) Add(obj *TrackObject) error {
	t.Sync()
	if obj == nil {
		return Wrap(ErrNotMember, "track", "add", "nil object", nil)
	}
	if obj.Track() != nil {
		return Wrap(ErrAlreadyOwned, "track", "add", obj.String(), nil)
	}
	switch obj.Phase() {
	case PhaseBound:
		return Wrap(ErrAlreadyBound, "track", "add", obj.String(), nil)
	case PhaseDestroyed:
		return Wrap(ErrDestroyed, "track", "add", obj.String(), nil)
	}
	if obj.Kind() != t.kind {
		return Wrap(ErrKindMismatch, "track", "add", fmt.Sprintf("%s object in %s track", obj.Kind(), t.kind), nil)
	}
	t.mu.Lock()
	released := t.released
	t.mu.Unlock()
	if released {
		return Wrap(ErrBind, "track", "add", "track released", nil)
	}

	if err := obj.bind(t.factory, t, t.logger); err != nil {
		return err
	}
	if err := t.comp.Add(obj.Node()); err != nil {
		_ = obj.unbind()
		return Wrap(ErrBind, "track", "add", "attach node to composition", err)
	}

	t.mu.Lock()
	t.members = append(t.members, obj)
	t.sortLocked()
	t.listeners[obj] = obj.OnNotify(func(note signal.Notification) {
		if note.Property == PropStart || note.Property == PropPriority {
			t.resort()
		}
	})
	t.mu.Unlock()

	t.logger.Debug("track object added",
		logging.String("object", obj.String()),
		logging.ClockTime("start", obj.Start()),
		logging.Uint64("priority", uint64(obj.Priority())),
	)
	t.ObjectAdded.Emit(obj)
	return nil
}

// Remove detaches obj from the composition and unbinds it.
func (t *Track) Remove(obj *TrackObject) error {
	t.Sync()
	t.mu.Lock()
	idx := slices.Index(t.members, obj)
	if idx < 0 {
		t.mu.Unlock()
		return Wrap(ErrNotMember, "track", "remove", fmt.Sprint(obj), nil)
	}
	t.members = slices.Delete(t.members, idx, idx+1)
	if disconnect, ok := t.listeners[obj]; ok {
		disconnect()
		delete(t.listeners, obj)
	}
	t.mu.Unlock()

	if node := obj.Node(); node != nil {
		if err := t.comp.Remove(node); err != nil {
			logging.WarnWithContext(t.logger, "composition refused node removal", "composition_remove_failed",
				logging.String("object", obj.String()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "node released while still attached"),
			)
		}
	}
	if err := obj.unbind(); err != nil {
		return err
	}

	t.logger.Debug("track object removed", logging.String("object", obj.String()))
	t.ObjectRemoved.Emit(obj)
	return nil
}

// Members returns the objects ordered by start, then priority.
func (t *Track) Members() []*TrackObject {
	t.Sync()
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.members)
}

// Contains reports whether obj is a member.
func (t *Track) Contains(obj *TrackObject) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return lo.Contains(t.members, obj)
}

// Duration is the end of the last active member as computed by the
// composition.
func (t *Track) Duration() ClockTime {
	t.Sync()
	return t.comp.Duration()
}

// Sync applies backend-originated changes queued since the last control
// operation. After an overflow every member is re-read from its node.
func (t *Track) Sync() {
	changes, overflow := t.queue.drain()
	if overflow {
		t.logger.Debug("change queue overflowed, resynchronising", logging.Int("queued", len(changes)))
		for _, obj := range t.snapshot() {
			obj.resync()
		}
		t.syncDuration()
		return
	}
	for _, qc := range changes {
		if qc.object == nil {
			t.syncDuration()
			continue
		}
		if qc.object.Track() != t {
			continue
		}
		qc.object.applyBackendChange(qc.change)
	}
}

// Release frees the composition. It fails while members remain.
func (t *Track) Release() error {
	t.Sync()
	t.mu.Lock()
	if n := len(t.members); n > 0 {
		t.mu.Unlock()
		return Wrap(ErrNotEmpty, "track", "release", fmt.Sprintf("%d members", n), nil)
	}
	if t.released {
		t.mu.Unlock()
		return nil
	}
	t.released = true
	t.mu.Unlock()

	t.unwatch()
	if err := t.comp.Release(); err != nil {
		return Wrap(ErrBind, "track", "release", "composition", err)
	}
	return nil
}

func (t *Track) snapshot() []*TrackObject {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.members)
}

func (t *Track) syncDuration() {
	current := t.comp.Duration()
	t.mu.Lock()
	changed := current != t.duration
	t.duration = current
	t.mu.Unlock()
	if changed {
		t.Notify(t, PropDuration, current)
	}
}

func (t *Track) resort() {
	t.mu.Lock()
	t.sortLocked()
	t.mu.Unlock()
}

func (t *Track) sortLocked() {
	slices.SortStableFunc(t.members, func(a, b *TrackObject) int {
		fa, fb := a.Fields(), b.Fields()
		switch {
		case fa.Start < fb.Start:
			return -1
		case fa.Start > fb.Start:
			return 1
		case fa.Priority < fb.Priority:
			return -1
		case fa.Priority > fb.Priority:
			return 1
		default:
			return 0
		}
	})
}
