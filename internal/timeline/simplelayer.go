package timeline

import (
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"

	"cutline/internal/logging"
	"cutline/internal/signal"
)

// ObjectMove describes a clip that changed position in a SimpleLayer.
type ObjectMove struct {
	Clip     *Clip
	OldIndex int
	NewIndex int
}

// SimpleLayer keeps its clips in an ordered sequence and places them back to
// back. A transition overlaps its neighbours by its own duration instead of
// taking up time of its own.
type SimpleLayer struct {
	*Layer

	// ObjectMoved fires after Move changed a clip's index.
	ObjectMoved signal.Signal[ObjectMove]

	smu         sync.Mutex
	sequence    []*Clip
	watches     map[*Clip]func()
	valid       bool
	maxPriority uint32
}

// NewSimpleLayer creates an empty, valid layer.
func NewSimpleLayer(opts ...Option) *SimpleLayer {
	o := buildOptions(opts)
	s := &SimpleLayer{
		Layer:   newLayer(o, "simple_layer"),
		watches: map[*Clip]func(){},
		valid:   true,
	}
	s.maxPriority = s.MinPriority()
	s.setArranger(s)
	s.ClipAdded.Connect(s.clipAdded)
	s.ClipRemoved.Connect(s.clipRemoved)
	s.OnProperty(PropPriority, func(signal.Notification) { s.recalculate() })
	return s
}

// Valid reports whether the last recalculation found a playable
// arrangement.
func (s *SimpleLayer) Valid() bool {
	s.smu.Lock()
	defer s.smu.Unlock()
	return s.valid
}

// MaxPriority is the priority cursor after the last recalculation, one past
// the highest priority used by the layer's clips. It grows with the clips;
// MaxReservedPriority is the fixed end of the range the layer may use.
func (s *SimpleLayer) MaxPriority() uint32 {
	s.smu.Lock()
	defer s.smu.Unlock()
	return s.maxPriority
}

// Clips returns the clips in sequence order.
func (s *SimpleLayer) Clips() []*Clip {
	s.smu.Lock()
	defer s.smu.Unlock()
	return slices.Clone(s.sequence)
}

// Len is the number of clips in the sequence.
func (s *SimpleLayer) Len() int {
	s.smu.Lock()
	defer s.smu.Unlock()
	return len(s.sequence)
}

// IndexOf returns the index of clip, or -1.
func (s *SimpleLayer) IndexOf(clip *Clip) int {
	s.smu.Lock()
	defer s.smu.Unlock()
	return lo.IndexOf(s.sequence, clip)
}

// Nth returns the clip at index, or nil.
func (s *SimpleLayer) Nth(index int) *Clip {
	s.smu.Lock()
	defer s.smu.Unlock()
	if index < 0 || index >= len(s.sequence) {
		return nil
	}
	return s.sequence[index]
}

// Insert places clip at position, or at the end when position is -1. A
// transition next to another transition is refused.
func (s *SimpleLayer) Insert(clip *Clip, position int) error {
	if clip == nil {
		return Wrap(ErrNotMember, "simple layer", "insert", "nil clip", nil)
	}
	s.smu.Lock()
	n := len(s.sequence)
	if position == -1 {
		position = n
	}
	if position < 0 || position > n {
		s.smu.Unlock()
		return Wrap(ErrInvalidIndex, "simple layer", "insert", clip.String(), nil)
	}
	if lo.Contains(s.sequence, clip) {
		s.smu.Unlock()
		return Wrap(ErrAlreadyOwned, "simple layer", "insert", clip.String(), nil)
	}
	if clip.IsTransition() {
		if position > 0 && s.sequence[position-1].IsTransition() {
			s.smu.Unlock()
			return Wrap(ErrAdjacentTransition, "simple layer", "insert", "previous clip is a transition", nil)
		}
		if position < n && s.sequence[position].IsTransition() {
			s.smu.Unlock()
			return Wrap(ErrAdjacentTransition, "simple layer", "insert", "next clip is a transition", nil)
		}
	}
	s.sequence = slices.Insert(s.sequence, position, clip)
	s.smu.Unlock()

	if err := s.AddClip(clip); err != nil {
		s.smu.Lock()
		if idx := slices.Index(s.sequence, clip); idx >= 0 {
			s.sequence = slices.Delete(s.sequence, idx, idx+1)
		}
		s.smu.Unlock()
		s.logger.Debug("insert rolled back", logging.String("clip", clip.String()), logging.Error(err))
		return err
	}

	s.watch(clip)
	s.recalculate()
	return nil
}

// Move changes the index of clip. Moving to the current index is a no-op.
func (s *SimpleLayer) Move(clip *Clip, position int) error {
	s.smu.Lock()
	current := lo.IndexOf(s.sequence, clip)
	n := len(s.sequence)
	s.smu.Unlock()

	if current < 0 {
		return Wrap(ErrNotMember, "simple layer", "move", clip.String(), nil)
	}
	if clip.Layer() != s.Layer {
		return Wrap(ErrNotOwned, "simple layer", "move", clip.String(), nil)
	}
	if position == -1 {
		position = n - 1
	}
	if position < 0 || position >= n {
		return Wrap(ErrInvalidIndex, "simple layer", "move", clip.String(), nil)
	}
	if position == current {
		return nil
	}

	s.smu.Lock()
	s.sequence = slices.Delete(s.sequence, current, current+1)
	s.sequence = slices.Insert(s.sequence, position, clip)
	s.smu.Unlock()

	s.recalculate()
	s.ObjectMoved.Emit(ObjectMove{Clip: clip, OldIndex: current, NewIndex: position})
	return nil
}

// Remove detaches clip from the layer.
func (s *SimpleLayer) Remove(clip *Clip) error {
	if s.IndexOf(clip) < 0 {
		return Wrap(ErrNotMember, "simple layer", "remove", clip.String(), nil)
	}
	return s.RemoveClip(clip)
}

func (s *SimpleLayer) insertAfter(anchor, clip *Clip) error {
	idx := s.IndexOf(anchor)
	if idx < 0 {
		return s.Insert(clip, -1)
	}
	return s.Insert(clip, idx+1)
}

// clipAdded appends clips attached through the base Layer directly.
func (s *SimpleLayer) clipAdded(clip *Clip) {
	s.smu.Lock()
	if lo.Contains(s.sequence, clip) {
		s.smu.Unlock()
		return
	}
	s.sequence = append(s.sequence, clip)
	s.smu.Unlock()

	s.watch(clip)
	s.recalculate()
}

func (s *SimpleLayer) clipRemoved(clip *Clip) {
	s.smu.Lock()
	idx := lo.IndexOf(s.sequence, clip)
	if idx < 0 {
		s.smu.Unlock()
		return
	}
	s.sequence = slices.Delete(s.sequence, idx, idx+1)
	disconnect := s.watches[clip]
	delete(s.watches, clip)
	s.smu.Unlock()

	if disconnect != nil {
		disconnect()
	}
	s.recalculate()
}

func (s *SimpleLayer) watch(clip *Clip) {
	disconnect := clip.OnNotify(func(note signal.Notification) {
		if note.Property == PropDuration || note.Property == PropHeight {
			s.recalculate()
		}
	})
	s.smu.Lock()
	if previous, ok := s.watches[clip]; ok {
		previous()
	}
	s.watches[clip] = disconnect
	s.smu.Unlock()
}

// recalculate places every clip. Non-transitions are laid end to end with
// increasing priorities; a transition starts its own duration before the
// cursor, never before zero, one priority above the clip it follows and
// never above the layer's first reserved priority.
// Invalid arrangements are reported through Valid, never rejected.
func (s *SimpleLayer) recalculate() {
	sequence := s.Clips()
	floor := s.MinPriority()

	var (
		pos                ClockTime
		priority           = floor
		transitionPriority = floor
		prev               *Clip
		prevTransition     *Clip
		prevTransitionEnd  ClockTime
		problems           []string
	)
	flag := func(problem string, clip *Clip) {
		problems = append(problems, problem)
		s.logger.Debug("invalid arrangement",
			logging.String("problem", problem),
			logging.String("clip", clip.String()),
		)
	}

	for _, clip := range sequence {
		duration := clip.Duration()
		if clip.IsTransition() {
			switch {
			case prev == nil:
				flag("layer starts with a transition", clip)
			case prev.IsTransition():
				flag("adjacent transitions", clip)
			case duration > prev.Duration():
				flag("transition longer than the previous clip", clip)
			}

			if pos > duration {
				pos -= duration
			} else {
				pos = 0
			}
			if prevTransition != nil && pos < prevTransitionEnd {
				flag("overlapping transitions", clip)
			}
			s.place(clip, pos, transitionPriority)
			prevTransition = clip
			prevTransitionEnd = pos + duration
		} else {
			if prev != nil && prev.IsTransition() && prev.Duration() > duration {
				flag("transition longer than the next clip", clip)
			}
			s.place(clip, pos, priority)
			transitionPriority = floor
			if priority > floor {
				transitionPriority = priority - 1
			}
			priority += clip.Height()
			pos += duration
		}
		prev = clip
	}
	if prev != nil && prev.IsTransition() {
		flag("layer ends with a transition", prev)
	}

	valid := len(problems) == 0
	s.smu.Lock()
	s.maxPriority = priority
	flipped := s.valid != valid
	s.valid = valid
	s.smu.Unlock()

	s.logger.Debug("layer recalculated",
		logging.Int("clips", len(sequence)),
		logging.ClockTime("end", pos),
		logging.Uint64("max_priority", uint64(priority)),
		logging.Bool("valid", valid),
	)
	if !flipped {
		return
	}
	if !valid {
		logging.WarnWithContext(s.logger, "layer arrangement is not playable", "layer_invalid",
			logging.String("problems", joinProblems(problems)),
			logging.String(logging.FieldErrorHint, "move or resize the transitions listed in problems"),
		)
	}
	s.Notify(s, PropValid, valid)
}

func (s *SimpleLayer) place(clip *Clip, start ClockTime, priority uint32) {
	if clip.Start() != start {
		if err := clip.SetStart(start); err != nil {
			s.logger.Debug("clip refused start", logging.String("clip", clip.String()), logging.Error(err))
		}
	}
	if clip.Priority() != priority {
		if err := clip.SetPriority(priority); err != nil {
			s.logger.Debug("clip refused priority", logging.String("clip", clip.String()), logging.Error(err))
		}
	}
}

func joinProblems(problems []string) string {
	return strings.Join(lo.Uniq(problems), "; ")
}
