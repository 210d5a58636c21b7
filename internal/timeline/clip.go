package timeline

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"cutline/internal/backend"
	"cutline/internal/logging"
	"cutline/internal/signal"
)

// ClipKind selects which TrackObject variant a Clip produces.
type ClipKind int

const (
	ClipSource ClipKind = iota
	ClipTransition
	ClipGenerator
)

func (k ClipKind) String() string {
	switch k {
	case ClipSource:
		return "source"
	case ClipTransition:
		return "transition"
	case ClipGenerator:
		return "generator"
	default:
		return "unknown"
	}
}

// ParseClipKind accepts the names produced by ClipKind.String.
func ParseClipKind(value string) (ClipKind, error) {
	switch value {
	case "source", "src":
		return ClipSource, nil
	case "transition", "trans":
		return ClipTransition, nil
	case "generator", "test", "background":
		return ClipGenerator, nil
	default:
		return 0, fmt.Errorf("unknown clip kind %q", value)
	}
}

func (k ClipKind) role() backend.Role {
	switch k {
	case ClipTransition:
		return backend.RoleTransition
	case ClipGenerator:
		return backend.RoleGenerator
	default:
		return backend.RoleSource
	}
}

// Child properties configured on the objects a clip creates.
const (
	wipeProperty      = "GstSMPTEAlpha::type"
	videoTestProperty = "GstVideoTestSrc::pattern"
	audioTestProperty = "GstAudioTestSrc::wave"

	// DefaultWipe is the SMPTE bar wipe, left to right.
	DefaultWipe = 1
)

// ClipOption configures a Clip at construction.
type ClipOption func(*Clip)

// WithWipe selects the SMPTE pattern video transitions use.
func WithWipe(wipe int) ClipOption {
	return func(c *Clip) { c.wipe = wipe }
}

// WithPattern selects the generator test pattern or waveform.
func WithPattern(pattern int) ClipOption {
	return func(c *Clip) { c.pattern = pattern }
}

// WithClipLogger sets the logger used by the clip.
func WithClipLogger(logger *slog.Logger) ClipOption {
	return func(c *Clip) { c.logger = logging.NewComponentLogger(logger, "clip") }
}

// Clip groups one TrackObject per compatible Track and keeps their timing
// in lock-step.
type Clip struct {
	signal.Notifier

	id        string
	kind      ClipKind
	supported backend.MediaKind
	wipe      int
	pattern   int
	logger    *slog.Logger

	mu          sync.Mutex
	start       ClockTime
	inPoint     ClockTime
	duration    ClockTime
	maxDuration ClockTime
	priority    uint32
	objects     []*TrackObject
	effects     []*TrackObject
	listeners   map[*TrackObject]func()
	layer       *Layer
	propagating bool
}

// NewClip creates a clip of kind producing objects for the supported media
// kinds.
func NewClip(kind ClipKind, supported backend.MediaKind, opts ...ClipOption) *Clip {
	c := &Clip{
		id:          uuid.NewString(),
		kind:        kind,
		supported:   supported,
		wipe:        DefaultWipe,
		maxDuration: backend.ClockTimeNone,
		listeners:   map[*TrackObject]func(){},
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *Clip) ID() string                   { return c.id }
func (c *Clip) Kind() ClipKind               { return c.kind }
func (c *Clip) Supported() backend.MediaKind { return c.supported }
func (c *Clip) IsTransition() bool           { return c.kind == ClipTransition }

func (c *Clip) String() string {
	return fmt.Sprintf("%s-clip-%s", c.kind, c.id[:8])
}

func (c *Clip) Start() ClockTime {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start
}

func (c *Clip) InPoint() ClockTime {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inPoint
}

func (c *Clip) Duration() ClockTime {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// End is Start plus Duration.
func (c *Clip) End() ClockTime {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start + c.duration
}

func (c *Clip) Priority() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.priority
}

func (c *Clip) MaxDuration() ClockTime {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxDuration
}

// Height is the number of priority levels the clip spans: one per top
// effect plus one for the core objects.
func (c *Clip) Height() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uint32(len(c.effects)) + 1
}

// Layer returns the owning layer, or nil.
func (c *Clip) Layer() *Layer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layer
}

func (c *Clip) setLayer(layer *Layer) {
	c.mu.Lock()
	c.layer = layer
	c.mu.Unlock()
}

// TrackObjects returns the core objects, excluding top effects.
func (c *Clip) TrackObjects() []*TrackObject {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.objects)
}

// TopEffects returns the effects ordered from the top-most down.
func (c *Clip) TopEffects() []*TrackObject {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.effects)
}

// TrackObjectFor returns the core object placed in track, or nil.
func (c *Clip) TrackObjectFor(track *Track) *TrackObject {
	for _, obj := range c.TrackObjects() {
		if obj.Track() == track {
			return obj
		}
	}
	return nil
}

// CreateTrackObjectFor builds the object this clip contributes to track and
// takes ownership of it. It reports false when the clip does not support the
// track's media kind.
func (c *Clip) CreateTrackObjectFor(track *Track) (*TrackObject, bool) {
	if track == nil || !c.supported.Has(track.Kind()) {
		return nil, false
	}
	kind := track.Kind()
	obj := NewTrackObject(c.kind.role(), kind)

	switch {
	case c.kind == ClipTransition && kind == backend.KindVideo:
		_ = obj.SetPendingChildProperty(wipeProperty, c.wipe)
	case c.kind == ClipGenerator && kind == backend.KindVideo:
		_ = obj.SetPendingChildProperty(videoTestProperty, c.pattern)
	case c.kind == ClipGenerator && kind == backend.KindAudio:
		_ = obj.SetPendingChildProperty(audioTestProperty, c.pattern)
	}

	if err := c.AddTrackObject(obj); err != nil {
		c.logger.Debug("clip refused its own track object", logging.Error(err))
		return nil, false
	}
	return obj, true
}

// AddTrackObject takes ownership of obj. Operation objects are treated as
// top effects.
func (c *Clip) AddTrackObject(obj *TrackObject) error {
	if obj.Role() == backend.RoleOperation {
		return c.AddTopEffect(obj)
	}
	if obj.Clip() != nil {
		return Wrap(ErrAlreadyOwned, "clip", "add track object", obj.String(), nil)
	}

	c.mu.Lock()
	offset := uint32(len(c.effects))
	c.objects = append(c.objects, obj)
	c.mu.Unlock()

	obj.setClip(c)
	obj.setPriorityOffset(offset)
	c.syncChild(obj)
	c.listen(obj)
	return nil
}

// RemoveTrackObject releases ownership of obj. The object is not removed
// from its track.
func (c *Clip) RemoveTrackObject(obj *TrackObject) error {
	if obj.Role() == backend.RoleOperation {
		return c.RemoveTopEffect(obj)
	}
	c.mu.Lock()
	idx := slices.Index(c.objects, obj)
	if idx < 0 {
		c.mu.Unlock()
		return Wrap(ErrNotMember, "clip", "remove track object", obj.String(), nil)
	}
	c.objects = slices.Delete(c.objects, idx, idx+1)
	c.mu.Unlock()

	c.unlisten(obj)
	obj.setClip(nil)
	return nil
}

// syncChild copies the clip timing onto a locked child.
func (c *Clip) syncChild(obj *TrackObject) {
	if !obj.Locked() {
		return
	}
	c.mu.Lock()
	f := Fields{Start: c.start, InPoint: c.inPoint, Duration: c.duration, Priority: c.priority}
	limit := c.maxDuration
	c.propagating = true
	c.mu.Unlock()

	offset := obj.priorityOffsetValue()
	obj.SetStart(f.Start)
	if obj.HasInternalSource() {
		obj.SetMaxDuration(limit)
		obj.SetInPoint(f.InPoint)
	}
	obj.SetDuration(f.Duration)
	obj.SetPriority(f.Priority + offset)

	c.mu.Lock()
	c.propagating = false
	c.mu.Unlock()
}

func (c *Clip) listen(obj *TrackObject) {
	disconnect := obj.OnNotify(func(note signal.Notification) {
		c.childChanged(obj, note.Property)
	})
	c.mu.Lock()
	c.listeners[obj] = disconnect
	c.mu.Unlock()
}

func (c *Clip) unlisten(obj *TrackObject) {
	c.mu.Lock()
	disconnect, ok := c.listeners[obj]
	delete(c.listeners, obj)
	c.mu.Unlock()
	if ok {
		disconnect()
	}
}

// childChanged drags the clip and its other locked children along when a
// locked child is moved directly or by the backend.
func (c *Clip) childChanged(obj *TrackObject, property string) {
	c.mu.Lock()
	busy := c.propagating
	c.mu.Unlock()
	if busy || !obj.Locked() {
		return
	}

	var err error
	switch property {
	case PropStart:
		err = c.SetStart(obj.Start())
	case PropDuration:
		err = c.SetDuration(obj.Duration())
	case PropInPoint:
		err = c.SetInPoint(obj.InPoint())
	case PropPriority:
		priority, offset := obj.Priority(), obj.priorityOffsetValue()
		if priority >= offset {
			err = c.SetPriority(priority - offset)
		}
	default:
		return
	}
	if err != nil {
		logging.WarnWithContext(c.logger, "clip could not follow its track object", "clip_follow_failed",
			logging.String("clip", c.String()),
			logging.String("object", obj.String()),
			logging.String("property", property),
			logging.Error(err),
		)
	}
}

// lockedChildren returns every locked object and effect. The caller holds
// c.mu.
func (c *Clip) lockedChildrenLocked() []*TrackObject {
	all := make([]*TrackObject, 0, len(c.objects)+len(c.effects))
	all = append(all, c.effects...)
	all = append(all, c.objects...)
	return lo.Filter(all, func(obj *TrackObject, _ int) bool { return obj.Locked() })
}

func validateChildren(children []*TrackObject, operation string) error {
	for _, obj := range children {
		if obj.Phase() == PhaseDestroyed {
			return Wrap(ErrDestroyed, "clip", operation, obj.String(), nil)
		}
	}
	return nil
}

// propagate validates the locked children, applies set to the clip fields
// and then to every locked child. Nothing changes when validation fails.
func (c *Clip) propagate(property, operation string, check func() error, set func() (bool, any), apply func(*TrackObject)) error {
	c.mu.Lock()
	children := c.lockedChildrenLocked()
	if err := validateChildren(children, operation); err != nil {
		c.mu.Unlock()
		return err
	}
	if check != nil {
		if err := check(); err != nil {
			c.mu.Unlock()
			return err
		}
	}
	changed, value := set()
	if !changed {
		c.mu.Unlock()
		return nil
	}
	c.propagating = true
	c.mu.Unlock()

	for _, obj := range children {
		apply(obj)
	}

	c.mu.Lock()
	c.propagating = false
	c.mu.Unlock()
	c.Notify(c, property, value)
	return nil
}

// SetStart moves the clip and its locked children.
func (c *Clip) SetStart(start ClockTime) error {
	return c.propagate(PropStart, "set start", nil,
		func() (bool, any) {
			if c.start == start {
				return false, nil
			}
			c.start = start
			return true, start
		},
		func(obj *TrackObject) { obj.SetStart(start) },
	)
}

// SetInPoint changes the in-point of the clip and of its locked core objects
// that have an internal source.
func (c *Clip) SetInPoint(inPoint ClockTime) error {
	return c.propagate(PropInPoint, "set in-point",
		func() error {
			if c.maxDuration.Valid() && inPoint >= c.maxDuration {
				return Wrap(ErrConstraint, "clip", "set in-point", fmt.Sprintf("%s is beyond max duration %s", inPoint, c.maxDuration), nil)
			}
			return nil
		},
		func() (bool, any) {
			if c.inPoint == inPoint {
				return false, nil
			}
			c.inPoint = inPoint
			return true, inPoint
		},
		func(obj *TrackObject) {
			if obj.Role() != backend.RoleOperation && obj.HasInternalSource() {
				obj.SetInPoint(inPoint)
			}
		},
	)
}

// SetDuration changes the duration, clamped to the max duration.
func (c *Clip) SetDuration(duration ClockTime) error {
	return c.propagate(PropDuration, "set duration", nil,
		func() (bool, any) {
			if c.maxDuration.Valid() && duration > c.maxDuration {
				duration = c.maxDuration
			}
			if c.duration == duration {
				return false, nil
			}
			c.duration = duration
			return true, duration
		},
		func(obj *TrackObject) { obj.SetDuration(duration) },
	)
}

// SetPriority sets the base priority. Children sit at the base plus their
// offset.
func (c *Clip) SetPriority(priority uint32) error {
	return c.propagate(PropPriority, "set priority",
		func() error {
			if uint64(priority)+uint64(len(c.effects)) > uint64(^uint32(0)) {
				return Wrap(ErrConstraint, "clip", "set priority", fmt.Sprintf("priority %d overflows", priority), nil)
			}
			return nil
		},
		func() (bool, any) {
			if c.priority == priority {
				return false, nil
			}
			c.priority = priority
			return true, priority
		},
		func(obj *TrackObject) { obj.SetPriority(priority + obj.priorityOffsetValue()) },
	)
}

// SetMaxDuration limits the duration of the clip and of its core objects
// with an internal source.
func (c *Clip) SetMaxDuration(limit ClockTime) error {
	if c.kind != ClipSource && limit.Valid() {
		return Wrap(ErrNoInternalSource, "clip", "set max duration", c.String(), nil)
	}
	err := c.propagate(PropMaxDuration, "set max duration", nil,
		func() (bool, any) {
			if c.maxDuration == limit {
				return false, nil
			}
			c.maxDuration = limit
			return true, limit
		},
		func(obj *TrackObject) {
			if obj.Role() != backend.RoleOperation && obj.HasInternalSource() {
				obj.SetMaxDuration(limit)
			}
		},
	)
	if err != nil {
		return err
	}
	if limit.Valid() && c.Duration() > limit {
		return c.SetDuration(limit)
	}
	return nil
}

// AddTopEffect places effect above every existing effect's source. Effects
// occupy offsets 0..n-1 and the core objects sit at offset n.
func (c *Clip) AddTopEffect(effect *TrackObject) error {
	if effect.Role() != backend.RoleOperation {
		return Wrap(ErrWrongRole, "clip", "add top effect", fmt.Sprintf("%s is a %s", effect, effect.Role()), nil)
	}
	if effect.Clip() != nil {
		return Wrap(ErrAlreadyOwned, "clip", "add top effect", effect.String(), nil)
	}

	c.mu.Lock()
	c.effects = append(c.effects, effect)
	effect.setPriorityOffset(uint32(len(c.effects) - 1))
	core := slices.Clone(c.objects)
	height := uint32(len(c.effects)) + 1
	layer := c.layer
	c.mu.Unlock()

	effect.setClip(c)
	c.syncChild(effect)
	c.listen(effect)
	c.renumberCore(core, height-1)

	if layer != nil {
		if tl := layer.Timeline(); tl != nil {
			if err := tl.attachTrackObject(c, effect); err != nil {
				_ = c.RemoveTopEffect(effect)
				return err
			}
		}
	}
	c.Notify(c, PropHeight, height)
	return nil
}

// RemoveTopEffect drops effect from the clip and from its track.
func (c *Clip) RemoveTopEffect(effect *TrackObject) error {
	c.mu.Lock()
	idx := slices.Index(c.effects, effect)
	if idx < 0 {
		c.mu.Unlock()
		return Wrap(ErrNotMember, "clip", "remove top effect", effect.String(), nil)
	}
	c.effects = slices.Delete(c.effects, idx, idx+1)
	effects := slices.Clone(c.effects)
	core := slices.Clone(c.objects)
	height := uint32(len(c.effects)) + 1
	c.mu.Unlock()

	c.unlisten(effect)
	effect.setClip(nil)
	if track := effect.Track(); track != nil {
		if err := track.Remove(effect); err != nil {
			c.logger.Debug("effect already gone from its track", logging.Error(err))
		}
	}
	c.renumberEffects(effects)
	c.renumberCore(core, height-1)
	c.Notify(c, PropHeight, height)
	return nil
}

// TopEffectIndex returns the position of effect, or -1.
func (c *Clip) TopEffectIndex(effect *TrackObject) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.IndexOf(c.effects, effect)
}

// SetTopEffectIndex moves effect to index, renumbering only the effects.
func (c *Clip) SetTopEffectIndex(effect *TrackObject, index int) error {
	c.mu.Lock()
	current := lo.IndexOf(c.effects, effect)
	if current < 0 {
		c.mu.Unlock()
		return Wrap(ErrNotMember, "clip", "set top effect index", effect.String(), nil)
	}
	if index < 0 || index >= len(c.effects) {
		c.mu.Unlock()
		return Wrap(ErrInvalidIndex, "clip", "set top effect index", fmt.Sprintf("%d of %d", index, len(c.effects)), nil)
	}
	if index == current {
		c.mu.Unlock()
		return nil
	}
	c.effects = slices.Delete(c.effects, current, current+1)
	c.effects = slices.Insert(c.effects, index, effect)
	effects := slices.Clone(c.effects)
	c.mu.Unlock()

	c.renumberEffects(effects)
	return nil
}

func (c *Clip) renumberEffects(effects []*TrackObject) {
	c.renumber(effects, func(i int) uint32 { return uint32(i) })
}

func (c *Clip) renumberCore(core []*TrackObject, offset uint32) {
	c.renumber(core, func(int) uint32 { return offset })
}

func (c *Clip) renumber(objs []*TrackObject, offsetFor func(int) uint32) {
	c.mu.Lock()
	base := c.priority
	c.propagating = true
	c.mu.Unlock()

	for i, obj := range objs {
		offset := offsetFor(i)
		obj.setPriorityOffset(offset)
		if obj.Locked() {
			obj.SetPriority(base + offset)
		}
	}

	c.mu.Lock()
	c.propagating = false
	c.mu.Unlock()
}

// Split cuts the clip at position, a timeline time strictly inside it. The
// clip keeps the part before position and the returned clip holds the rest.
// When the clip belongs to a layer the new clip is placed right after it.
func (c *Clip) Split(position ClockTime) (*Clip, error) {
	c.mu.Lock()
	start, duration, inPoint := c.start, c.duration, c.inPoint
	priority, limit := c.priority, c.maxDuration
	effects := slices.Clone(c.effects)
	layer := c.layer
	c.mu.Unlock()

	if position <= start || position >= start+duration {
		return nil, Wrap(ErrInvalidPosition, "clip", "split",
			fmt.Sprintf("%s not inside [%s, %s)", position, start, start+duration), nil)
	}

	next := NewClip(c.kind, c.supported, WithWipe(c.wipe), WithPattern(c.pattern))
	next.logger = c.logger
	next.start = position
	next.duration = start + duration - position
	next.priority = priority
	next.maxDuration = limit
	next.inPoint = inPoint
	if c.kind == ClipSource {
		next.inPoint = inPoint + (position - start)
	}

	for _, effect := range effects {
		cp, err := effect.Copy(true)
		if err != nil {
			return nil, err
		}
		if err := next.AddTopEffect(cp); err != nil {
			return nil, err
		}
	}

	if err := c.SetDuration(position - start); err != nil {
		return nil, err
	}

	if layer != nil {
		if err := layer.insertAfter(c, next); err != nil {
			_ = c.SetDuration(duration)
			return nil, err
		}
		for _, obj := range c.TrackObjects() {
			copyChildProperties(c.logger, obj, next.TrackObjectFor(obj.Track()))
		}
	}
	c.logger.Debug("clip split",
		logging.String("clip", c.String()),
		logging.String("new_clip", next.String()),
		logging.ClockTime("position", position),
	)
	return next, nil
}

// copyChildProperties replays the copyable child values of from onto to.
func copyChildProperties(logger *slog.Logger, from, to *TrackObject) {
	if from == nil || to == nil {
		return
	}
	props, err := from.ListChildProperties()
	if err != nil {
		return
	}
	for _, prop := range props {
		if !prop.copyable() {
			continue
		}
		value, err := prop.Element.Get(prop.Spec.Name)
		if err != nil {
			continue
		}
		if err := to.SetChildProperty(prop.Key(), value); err != nil {
			logger.Debug("child property not copied", logging.String("property", prop.Key()), logging.Error(err))
		}
	}
}
