package timeline

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"cutline/internal/logging"
	"cutline/internal/signal"
)

// arranger lets a layer variant take over placement of clips created by
// Clip.Split.
type arranger interface {
	insertAfter(anchor, clip *Clip) error
}

// Layer is a plain collection of clips sharing a reserved priority range.
type Layer struct {
	signal.Notifier

	// ClipAdded fires after a clip was attached.
	ClipAdded signal.Signal[*Clip]
	// ClipRemoved fires after a clip was detached.
	ClipRemoved signal.Signal[*Clip]

	height uint32
	logger *slog.Logger

	mu       sync.Mutex
	clips    []*Clip
	priority uint32
	timeline *Timeline
	arranger arranger
}

// NewLayer creates an empty layer at priority 0.
func NewLayer(opts ...Option) *Layer {
	o := buildOptions(opts)
	return newLayer(o, "layer")
}

func newLayer(o options, component string) *Layer {
	return &Layer{
		height: o.layerHeight,
		logger: logging.NewComponentLogger(o.logger, component),
	}
}

// Priority is the layer index; lower layers composite on top.
func (l *Layer) Priority() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.priority
}

// SetPriority moves the layer and its reserved priority range.
func (l *Layer) SetPriority(priority uint32) {
	l.mu.Lock()
	if l.priority == priority {
		l.mu.Unlock()
		return
	}
	l.priority = priority
	l.mu.Unlock()
	l.Notify(l, PropPriority, priority)
}

// MinPriority is the first priority reserved for this layer.
func (l *Layer) MinPriority() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.priority * l.height
}

// MaxReservedPriority is the last priority reserved for this layer. It does
// not move with the clips; SimpleLayer reports its used range through
// MaxPriority.
func (l *Layer) MaxReservedPriority() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return (l.priority+1)*l.height - 1
}

// Timeline returns the owning timeline, or nil.
func (l *Layer) Timeline() *Timeline {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.timeline
}

func (l *Layer) setTimeline(tl *Timeline) {
	l.mu.Lock()
	l.timeline = tl
	l.mu.Unlock()
}

// Clips returns the clips in insertion order.
func (l *Layer) Clips() []*Clip {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.clips)
}

// AddClip attaches clip. When the layer belongs to a timeline, the clip's
// track objects are created and added to every compatible track; a failure
// there leaves the layer unchanged.
func (l *Layer) AddClip(clip *Clip) error {
	if clip == nil {
		return Wrap(ErrNotMember, "layer", "add clip", "nil clip", nil)
	}
	if owner := clip.Layer(); owner != nil {
		return Wrap(ErrAlreadyOwned, "layer", "add clip", clip.String(), nil)
	}

	l.mu.Lock()
	l.clips = append(l.clips, clip)
	tl := l.timeline
	l.mu.Unlock()
	clip.setLayer(l)

	if tl != nil {
		if err := tl.attachClip(clip); err != nil {
			l.mu.Lock()
			if idx := slices.Index(l.clips, clip); idx >= 0 {
				l.clips = slices.Delete(l.clips, idx, idx+1)
			}
			l.mu.Unlock()
			clip.setLayer(nil)
			return err
		}
	}

	l.logger.Debug("clip added", logging.String("clip", clip.String()))
	l.ClipAdded.Emit(clip)
	return nil
}

// RemoveClip detaches clip and removes its track objects from their tracks.
func (l *Layer) RemoveClip(clip *Clip) error {
	if clip == nil {
		return Wrap(ErrNotMember, "layer", "remove clip", "nil clip", nil)
	}
	if clip.Layer() != l {
		return Wrap(ErrNotOwned, "layer", "remove clip", clip.String(), nil)
	}

	l.mu.Lock()
	idx := slices.Index(l.clips, clip)
	if idx < 0 {
		l.mu.Unlock()
		return Wrap(ErrNotMember, "layer", "remove clip", clip.String(), nil)
	}
	l.clips = slices.Delete(l.clips, idx, idx+1)
	tl := l.timeline
	l.mu.Unlock()
	clip.setLayer(nil)

	if tl != nil {
		tl.detachClip(clip)
	}

	l.logger.Debug("clip removed", logging.String("clip", clip.String()))
	l.ClipRemoved.Emit(clip)
	return nil
}

func (l *Layer) setArranger(a arranger) {
	l.mu.Lock()
	l.arranger = a
	l.mu.Unlock()
}

func (l *Layer) insertAfter(anchor, clip *Clip) error {
	l.mu.Lock()
	a := l.arranger
	l.mu.Unlock()
	if a != nil {
		return a.insertAfter(anchor, clip)
	}
	return l.AddClip(clip)
}

func (l *Layer) String() string {
	return fmt.Sprintf("layer %d", l.Priority())
}
