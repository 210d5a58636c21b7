package backend

import "errors"

// Field names a timing property exposed by every Node.
type Field string

const (
	FieldStart         Field = "start"
	FieldMediaStart    Field = "media-start"
	FieldDuration      Field = "duration"
	FieldMediaDuration Field = "media-duration"
	FieldPriority      Field = "priority"
	FieldActive        Field = "active"
)

// Mask selects which Fields a batch write applies.
type Mask uint8

const (
	MaskStart Mask = 1 << iota
	MaskMediaStart
	MaskDuration
	MaskMediaDuration
	MaskPriority
	MaskActive

	MaskAll = MaskStart | MaskMediaStart | MaskDuration | MaskMediaDuration | MaskPriority | MaskActive
)

// MaskFor returns the mask bit of a single field.
func MaskFor(field Field) Mask {
	switch field {
	case FieldStart:
		return MaskStart
	case FieldMediaStart:
		return MaskMediaStart
	case FieldDuration:
		return MaskDuration
	case FieldMediaDuration:
		return MaskMediaDuration
	case FieldPriority:
		return MaskPriority
	case FieldActive:
		return MaskActive
	default:
		return 0
	}
}

// Fields is the timing state of a Node.
type Fields struct {
	Start         ClockTime
	MediaStart    ClockTime
	Duration      ClockTime
	MediaDuration ClockTime
	Priority      uint32
	Active        bool
}

// Value returns the value of a single field, or nil for an unknown name.
func (f Fields) Value(field Field) any {
	switch field {
	case FieldStart:
		return f.Start
	case FieldMediaStart:
		return f.MediaStart
	case FieldDuration:
		return f.Duration
	case FieldMediaDuration:
		return f.MediaDuration
	case FieldPriority:
		return f.Priority
	case FieldActive:
		return f.Active
	default:
		return nil
	}
}

// Merge copies the masked fields of src into f.
func (f Fields) Merge(src Fields, mask Mask) Fields {
	if mask&MaskStart != 0 {
		f.Start = src.Start
	}
	if mask&MaskMediaStart != 0 {
		f.MediaStart = src.MediaStart
	}
	if mask&MaskDuration != 0 {
		f.Duration = src.Duration
	}
	if mask&MaskMediaDuration != 0 {
		f.MediaDuration = src.MediaDuration
	}
	if mask&MaskPriority != 0 {
		f.Priority = src.Priority
	}
	if mask&MaskActive != 0 {
		f.Active = src.Active
	}
	return f
}

// Diff reports the fields whose values differ between f and other.
func (f Fields) Diff(other Fields) []Field {
	var changed []Field
	if f.Start != other.Start {
		changed = append(changed, FieldStart)
	}
	if f.MediaStart != other.MediaStart {
		changed = append(changed, FieldMediaStart)
	}
	if f.Duration != other.Duration {
		changed = append(changed, FieldDuration)
	}
	if f.MediaDuration != other.MediaDuration {
		changed = append(changed, FieldMediaDuration)
	}
	if f.Priority != other.Priority {
		changed = append(changed, FieldPriority)
	}
	if f.Active != other.Active {
		changed = append(changed, FieldActive)
	}
	return changed
}

// Change is a property-change notification emitted by a Node or Composition.
type Change struct {
	Source any
	Field  Field
	Value  any
}

// Node is the composition resource bound to one track object.
type Node interface {
	Name() string
	Role() Role
	Kind() MediaKind
	Fields() Fields
	// SetFields writes the masked fields in one batch. Writes made through
	// SetFields do not notify watchers; only engine-side changes do.
	SetFields(values Fields, mask Mask)
	// Watch registers fn for engine-side changes. fn may run on any goroutine.
	Watch(fn func(Change)) (unwatch func())
	// Elements lists the configurable child elements inside the node.
	Elements() []Element
	Release()
}

// Composition aggregates the nodes of one track.
type Composition interface {
	Name() string
	Kind() MediaKind
	Caps() string
	SetCaps(caps string)
	Add(child Node) error
	Remove(child Node) error
	Children() []Node
	// Duration is the end of the last active child.
	Duration() ClockTime
	Watch(fn func(Change)) (unwatch func())
	// Release fails with ErrBusy while children remain.
	Release() error
}

// Element is a child of a Node that exposes named parameters.
type Element interface {
	TypeName() string
	Params() []ParamSpec
	Get(name string) (any, error)
	Set(name string, value any) error
}

// ParamSpec describes one parameter of an Element.
type ParamSpec struct {
	Name      string
	Owner     string
	Blurb     string
	Default   any
	Writable  bool
	Readable  bool
	Construct bool
}

// Factory produces backend resources for the model.
type Factory interface {
	NewNode(role Role, kind MediaKind) (Node, error)
	NewComposition(kind MediaKind, caps string) (Composition, error)
}

var (
	ErrUnsupported  = errors.New("backend: unsupported role or kind")
	ErrBusy         = errors.New("backend: composition still has children")
	ErrUnknownChild = errors.New("backend: node is not a child of this composition")
	ErrDuplicate    = errors.New("backend: node already added")
	ErrNoSuchParam  = errors.New("backend: no such parameter")
	ErrReadOnly     = errors.New("backend: parameter is not writable")
	ErrInvalidValue = errors.New("backend: invalid parameter value")
	ErrReleased     = errors.New("backend: resource released")
)
