package timeline

import (
	"fmt"
	"log/slog"
	"sync"

	"cutline/internal/backend"
	"cutline/internal/logging"
	"cutline/internal/signal"
)

// Phase is the lifecycle phase of a TrackObject.
type Phase int

const (
	PhaseUnbound Phase = iota
	PhaseBound
	PhaseDestroyed
)

func (p Phase) String() string {
	switch p {
	case PhaseUnbound:
		return "unbound"
	case PhaseBound:
		return "bound"
	case PhaseDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// objectState is the tagged lifecycle state. Every accessor dispatches on it
// exactly once.
type objectState interface {
	phase() Phase
}

type unboundState struct {
	shadow Fields
	// children holds child property values keyed "Type::name", applied at
	// the next bind.
	children map[string]any
}

type boundState struct {
	node    backend.Node
	unwatch func()
	track   *Track
	props   []ChildProperty
	// cache is the last state reported to observers. Backend-originated
	// changes are diffed against it when the owning queue drains.
	cache Fields
}

type destroyedState struct{}

func (*unboundState) phase() Phase   { return PhaseUnbound }
func (*boundState) phase() Phase     { return PhaseBound }
func (*destroyedState) phase() Phase { return PhaseDestroyed }

// BackendChangeHook is invoked after a backend-originated change has been
// applied to a TrackObject.
type BackendChangeHook func(obj *TrackObject, property string, value any)

// TrackObject is one time-bound segment (source, effect, transition or
// generator) inside a single Track.
type TrackObject struct {
	signal.Notifier

	name string
	role backend.Role
	kind backend.MediaKind

	mu             sync.Mutex
	state          objectState
	track          *Track
	clip           *Clip
	locked         bool
	maxDuration    ClockTime
	priorityOffset uint32
	internalSource bool
	hook           BackendChangeHook
	logger         *slog.Logger

	// standalone receives backend changes while the object is materialized
	// outside of any Track.
	standalone *changeQueue
}

// NewTrackObject creates a detached, unbound object. Sources have an
// internal source by default; other roles do not.
func NewTrackObject(role backend.Role, kind backend.MediaKind) *TrackObject {
	return &TrackObject{
		name: fmt.Sprintf("%s-%s", kind, role),
		role: role,
		kind: kind,
		state: &unboundState{
			shadow:   Fields{Active: true},
			children: map[string]any{},
		},
		locked:         true,
		maxDuration:    backend.ClockTimeNone,
		internalSource: role == backend.RoleSource,
		logger:         logging.NewNop(),
	}
}

func (o *TrackObject) Role() backend.Role      { return o.role }
func (o *TrackObject) Kind() backend.MediaKind { return o.kind }

func (o *TrackObject) String() string {
	return o.name
}

// Phase reports the current lifecycle phase.
func (o *TrackObject) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.phase()
}

// Track returns the owning track, or nil.
func (o *TrackObject) Track() *Track {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.track
}

// Clip returns the clip this object belongs to, or nil.
func (o *TrackObject) Clip() *Clip {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.clip
}

// Node returns the bound backend node, or nil while unbound.
func (o *TrackObject) Node() backend.Node {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.state.(*boundState); ok {
		return s.node
	}
	return nil
}

// Fields reads the live backend values when bound and the pending shadow
// otherwise.
func (o *TrackObject) Fields() Fields {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.readLocked()
}

func (o *TrackObject) readLocked() Fields {
	switch s := o.state.(type) {
	case *boundState:
		return fieldsFromBackend(s.node.Fields())
	case *unboundState:
		return s.shadow
	default:
		return Fields{}
	}
}

func (o *TrackObject) Start() ClockTime    { return o.Fields().Start }
func (o *TrackObject) InPoint() ClockTime  { return o.Fields().InPoint }
func (o *TrackObject) Duration() ClockTime { return o.Fields().Duration }
func (o *TrackObject) Priority() uint32    { return o.Fields().Priority }
func (o *TrackObject) Active() bool        { return o.Fields().Active }

// End is Start plus Duration.
func (o *TrackObject) End() ClockTime {
	f := o.Fields()
	return f.Start + f.Duration
}

// SetStart reports whether the start changed.
func (o *TrackObject) SetStart(start ClockTime) bool {
	return o.update(PropStart, backend.MaskStart, func(f *Fields) bool {
		if f.Start == start {
			return false
		}
		f.Start = start
		return true
	})
}

// SetInPoint reports whether the in-point changed. Objects without an
// internal source only accept zero.
func (o *TrackObject) SetInPoint(inPoint ClockTime) bool {
	if inPoint != 0 && !o.HasInternalSource() {
		o.log().Debug("rejecting in-point on object without internal source",
			logging.String("object", o.name), logging.ClockTime("in_point", inPoint))
		return false
	}
	return o.update(PropInPoint, backend.MaskMediaStart, func(f *Fields) bool {
		if f.InPoint == inPoint {
			return false
		}
		f.InPoint = inPoint
		return true
	})
}

// SetDuration reports whether the duration changed. The value is clamped to
// the max duration.
func (o *TrackObject) SetDuration(duration ClockTime) bool {
	if limit := o.MaxDuration(); limit.Valid() && duration > limit {
		duration = limit
	}
	return o.update(PropDuration, backend.MaskDuration|backend.MaskMediaDuration, func(f *Fields) bool {
		if f.Duration == duration {
			return false
		}
		f.Duration = duration
		return true
	})
}

// SetPriority reports whether the priority changed.
func (o *TrackObject) SetPriority(priority uint32) bool {
	return o.update(PropPriority, backend.MaskPriority, func(f *Fields) bool {
		if f.Priority == priority {
			return false
		}
		f.Priority = priority
		return true
	})
}

// SetActive reports whether the active flag changed.
func (o *TrackObject) SetActive(active bool) bool {
	return o.update(PropActive, backend.MaskActive, func(f *Fields) bool {
		if f.Active == active {
			return false
		}
		f.Active = active
		return true
	})
}

// update routes a write to the shadow or the node and notifies on change.
func (o *TrackObject) update(property string, mask backend.Mask, apply func(*Fields) bool) bool {
	o.mu.Lock()
	var (
		changed bool
		value   any
	)
	switch s := o.state.(type) {
	case *unboundState:
		changed = apply(&s.shadow)
		value = s.shadow.value(property)
	case *boundState:
		current := fieldsFromBackend(s.node.Fields())
		if apply(&current) {
			s.node.SetFields(current.backend(), mask)
			s.cache.assign(property, current)
			changed = true
		}
		value = current.value(property)
	case *destroyedState:
	}
	o.mu.Unlock()

	if changed {
		o.Notify(o, property, value)
	}
	return changed
}

// Locked reports whether the object follows its clip.
func (o *TrackObject) Locked() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.locked
}

// SetLocked sets whether the object moves in lock-step with its clip.
func (o *TrackObject) SetLocked(locked bool) bool {
	o.mu.Lock()
	if o.locked == locked {
		o.mu.Unlock()
		return false
	}
	o.locked = locked
	o.mu.Unlock()
	o.Notify(o, PropLocked, locked)
	return true
}

// MaxDuration returns the clamp applied to durations, or ClockTimeNone.
func (o *TrackObject) MaxDuration() ClockTime {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.maxDuration
}

// SetMaxDuration sets the duration clamp and shortens the current duration
// when it exceeds the new limit. Objects without an internal source cannot
// have a max duration.
func (o *TrackObject) SetMaxDuration(limit ClockTime) bool {
	o.mu.Lock()
	if limit.Valid() && !o.internalSource {
		o.mu.Unlock()
		return false
	}
	if o.maxDuration == limit {
		o.mu.Unlock()
		return false
	}
	o.maxDuration = limit
	o.mu.Unlock()

	o.Notify(o, PropMaxDuration, limit)
	if limit.Valid() && o.Duration() > limit {
		o.SetDuration(limit)
	}
	return true
}

// HasInternalSource reports whether the object plays content with its own
// timing, which is what makes in-point and max duration meaningful.
func (o *TrackObject) HasInternalSource() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.internalSource
}

// SetHasInternalSource toggles internal-source semantics. Turning it off
// resets the in-point to zero and clears the max duration.
func (o *TrackObject) SetHasInternalSource(has bool) {
	o.mu.Lock()
	if o.internalSource == has {
		o.mu.Unlock()
		return
	}
	o.internalSource = has
	o.mu.Unlock()
	if !has {
		o.SetInPoint(0)
		o.mu.Lock()
		o.maxDuration = backend.ClockTimeNone
		o.mu.Unlock()
	}
}

// SetBackendChangeHook installs the hook run after backend-originated changes.
func (o *TrackObject) SetBackendChangeHook(hook BackendChangeHook) {
	o.mu.Lock()
	o.hook = hook
	o.mu.Unlock()
}

func (o *TrackObject) priorityOffsetValue() uint32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.priorityOffset
}

func (o *TrackObject) setPriorityOffset(offset uint32) {
	o.mu.Lock()
	o.priorityOffset = offset
	o.mu.Unlock()
}

func (o *TrackObject) setClip(clip *Clip) {
	o.mu.Lock()
	o.clip = clip
	o.mu.Unlock()
}

func (o *TrackObject) log() *slog.Logger {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.logger
}

// Materialize binds the object to a node from factory without placing it in
// a Track. Backend changes are applied on Sync.
func (o *TrackObject) Materialize(factory backend.Factory) error {
	return o.bind(factory, nil, nil)
}

// Unbind releases the node of a materialized object. Objects owned by a Track
// are unbound by removing them from it.
func (o *TrackObject) Unbind() error {
	o.mu.Lock()
	track := o.track
	o.mu.Unlock()
	if track != nil {
		return Wrap(ErrAlreadyOwned, "track object", "unbind", "remove it from its track instead", nil)
	}
	return o.unbind()
}

// Destroy unbinds the object if needed and makes it unusable.
func (o *TrackObject) Destroy() error {
	o.mu.Lock()
	track := o.track
	o.mu.Unlock()
	if track != nil {
		return Wrap(ErrAlreadyOwned, "track object", "destroy", "remove it from its track first", nil)
	}
	if o.Phase() == PhaseBound {
		if err := o.unbind(); err != nil {
			return err
		}
	}
	o.mu.Lock()
	o.state = &destroyedState{}
	o.mu.Unlock()
	return nil
}

// bind allocates the node, replays the shadow into it in one batch, installs
// the watcher and only then switches the state to bound. On failure the
// object stays unbound with its shadow untouched.
func (o *TrackObject) bind(factory backend.Factory, track *Track, logger *slog.Logger) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var pending *unboundState
	switch s := o.state.(type) {
	case *unboundState:
		pending = s
	case *boundState:
		return Wrap(ErrAlreadyBound, "track object", "bind", o.name, nil)
	default:
		return Wrap(ErrDestroyed, "track object", "bind", o.name, nil)
	}
	if factory == nil {
		return Wrap(ErrBind, "track object", "bind", "no backend factory", nil)
	}

	node, err := factory.NewNode(o.role, o.kind)
	if err != nil {
		return Wrap(ErrBind, "track object", "bind", fmt.Sprintf("create %s %s node", o.kind, o.role), err)
	}
	if node == nil {
		return Wrap(ErrBind, "track object", "bind", "factory returned no node", nil)
	}

	if logger != nil {
		o.logger = logger
	}
	props := collectChildProperties(node)
	for key, value := range pending.children {
		prop, err := lookupChild(props, key)
		if err == nil {
			err = prop.Element.Set(prop.Spec.Name, value)
		}
		if err != nil {
			logging.WarnWithContext(o.logger, "dropping pending child property", "child_property_dropped",
				logging.String("object", o.name),
				logging.String("property", key),
				logging.Error(err),
				logging.String(logging.FieldImpact, "value not applied to the new backend node"),
			)
		}
	}

	node.SetFields(pending.shadow.backend(), backend.MaskAll)

	var queue *changeQueue
	if track != nil {
		queue = track.queue
	} else {
		if o.standalone == nil {
			o.standalone = newChangeQueue(defaultQueueSize)
		}
		queue = o.standalone
	}
	unwatch := node.Watch(func(change backend.Change) {
		queue.push(queuedChange{object: o, change: change})
	})

	o.name = node.Name()
	o.track = track
	o.state = &boundState{
		node:    node,
		unwatch: unwatch,
		track:   track,
		props:   props,
		cache:   pending.shadow,
	}
	o.logger.Debug("track object bound",
		logging.String("object", o.name),
		logging.String("role", o.role.String()),
		logging.ClockTime("start", pending.shadow.Start),
		logging.ClockTime("duration", pending.shadow.Duration),
		logging.Uint64("priority", uint64(pending.shadow.Priority)),
	)
	return nil
}

// unbind captures the live values as the new shadow and releases the node.
func (o *TrackObject) unbind() error {
	o.mu.Lock()
	s, ok := o.state.(*boundState)
	if !ok {
		o.mu.Unlock()
		if o.Phase() == PhaseDestroyed {
			return Wrap(ErrDestroyed, "track object", "unbind", o.name, nil)
		}
		return Wrap(ErrUnbound, "track object", "unbind", o.name, nil)
	}
	s.unwatch()
	shadow := fieldsFromBackend(s.node.Fields())
	children := captureChildValues(s.props, false)
	s.node.Release()
	o.state = &unboundState{shadow: shadow, children: children}
	o.track = nil
	logger := o.logger
	o.mu.Unlock()

	logger.Debug("track object unbound", logging.String("object", o.name))
	return nil
}

// Sync applies backend changes queued while the object is materialized
// outside any Track.
func (o *TrackObject) Sync() {
	o.mu.Lock()
	queue := o.standalone
	inTrack := o.track != nil
	o.mu.Unlock()
	if queue == nil || inTrack {
		return
	}
	changes, overflow := queue.drain()
	if overflow {
		o.resync()
		return
	}
	for _, qc := range changes {
		o.applyBackendChange(qc.change)
	}
}

// applyBackendChange runs on the control goroutine when a queue drains.
func (o *TrackObject) applyBackendChange(change backend.Change) (string, bool) {
	property := propertyFor(change.Field)
	if property == "" {
		return "", false
	}
	o.mu.Lock()
	s, ok := o.state.(*boundState)
	if !ok {
		o.mu.Unlock()
		return "", false
	}
	live := fieldsFromBackend(s.node.Fields())
	if s.cache.value(property) == live.value(property) {
		o.mu.Unlock()
		return "", false
	}
	s.cache.assign(property, live)
	value := live.value(property)
	hook := o.hook
	o.mu.Unlock()

	o.Notify(o, property, value)
	if hook != nil {
		hook(o, property, value)
	}
	return property, true
}

// resync reports every field that differs between the cache and the node.
// It is used when a change queue overflowed.
func (o *TrackObject) resync() []string {
	o.mu.Lock()
	s, ok := o.state.(*boundState)
	if !ok {
		o.mu.Unlock()
		return nil
	}
	live := fieldsFromBackend(s.node.Fields())
	changed := s.cache.changedProperties(live)
	s.cache = live
	hook := o.hook
	o.mu.Unlock()

	for _, property := range changed {
		value := live.value(property)
		o.Notify(o, property, value)
		if hook != nil {
			hook(o, property, value)
		}
	}
	return changed
}

// Copy returns a detached object with the same configuration. A deep copy
// also carries every child property value: read from the node when this
// object is bound, or taken from its pending values otherwise. The copy
// applies them when it is bound.
func (o *TrackObject) Copy(deep bool) (*TrackObject, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.phase() == PhaseDestroyed {
		return nil, Wrap(ErrDestroyed, "track object", "copy", o.name, nil)
	}
	cp := NewTrackObject(o.role, o.kind)
	cp.locked = o.locked
	cp.maxDuration = o.maxDuration
	cp.priorityOffset = o.priorityOffset
	cp.internalSource = o.internalSource
	cp.hook = o.hook
	cp.logger = o.logger

	shadow := cp.state.(*unboundState)
	shadow.shadow = o.readLocked()

	if deep {
		switch s := o.state.(type) {
		case *boundState:
			shadow.children = captureChildValues(s.props, true)
		case *unboundState:
			for key, value := range s.children {
				shadow.children[key] = value
			}
		}
	}
	return cp, nil
}

// PendingChildProperties returns the child property values that will be
// applied at the next bind.
func (o *TrackObject) PendingChildProperties() map[string]any {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.state.(*unboundState)
	if !ok {
		return nil
	}
	out := make(map[string]any, len(s.children))
	for key, value := range s.children {
		out[key] = value
	}
	return out
}

// SetPendingChildProperty records a child property for the next bind. Bound
// objects write through instead.
func (o *TrackObject) SetPendingChildProperty(name string, value any) error {
	o.mu.Lock()
	s, ok := o.state.(*unboundState)
	if ok {
		s.children[name] = value
		o.mu.Unlock()
		return nil
	}
	o.mu.Unlock()
	return o.SetChildProperty(name, value)
}
