package timeline

import "cutline/internal/backend"

// ClockTime re-exports backend.ClockTime for callers of this package.
type ClockTime = backend.ClockTime

// Second is one second of ClockTime.
const Second = backend.Second

// Property names carried by notifications.
const (
	PropStart       = "start"
	PropInPoint     = "in-point"
	PropDuration    = "duration"
	PropPriority    = "priority"
	PropActive      = "active"
	PropLocked      = "locked"
	PropMaxDuration = "max-duration"
	PropHeight      = "height"
	PropValid       = "valid"
	PropCaps        = "caps"
)

// Fields is the timing configuration of a TrackObject.
type Fields struct {
	Start    ClockTime
	InPoint  ClockTime
	Duration ClockTime
	Priority uint32
	Active   bool
}

func (f Fields) backend() backend.Fields {
	return backend.Fields{
		Start:         f.Start,
		MediaStart:    f.InPoint,
		Duration:      f.Duration,
		MediaDuration: f.Duration,
		Priority:      f.Priority,
		Active:        f.Active,
	}
}

func fieldsFromBackend(b backend.Fields) Fields {
	return Fields{
		Start:    b.Start,
		InPoint:  b.MediaStart,
		Duration: b.Duration,
		Priority: b.Priority,
		Active:   b.Active,
	}
}

// propertyFor maps a backend field to the model property it drives. Fields
// with no model counterpart return "".
func propertyFor(field backend.Field) string {
	switch field {
	case backend.FieldStart:
		return PropStart
	case backend.FieldMediaStart:
		return PropInPoint
	case backend.FieldDuration:
		return PropDuration
	case backend.FieldPriority:
		return PropPriority
	case backend.FieldActive:
		return PropActive
	default:
		return ""
	}
}

func (f Fields) value(property string) any {
	switch property {
	case PropStart:
		return f.Start
	case PropInPoint:
		return f.InPoint
	case PropDuration:
		return f.Duration
	case PropPriority:
		return f.Priority
	case PropActive:
		return f.Active
	default:
		return nil
	}
}

func (f Fields) changedProperties(other Fields) []string {
	var out []string
	if f.Start != other.Start {
		out = append(out, PropStart)
	}
	if f.InPoint != other.InPoint {
		out = append(out, PropInPoint)
	}
	if f.Duration != other.Duration {
		out = append(out, PropDuration)
	}
	if f.Priority != other.Priority {
		out = append(out, PropPriority)
	}
	if f.Active != other.Active {
		out = append(out, PropActive)
	}
	return out
}

// assign copies a single property from other.
func (f *Fields) assign(property string, other Fields) {
	switch property {
	case PropStart:
		f.Start = other.Start
	case PropInPoint:
		f.InPoint = other.InPoint
	case PropDuration:
		f.Duration = other.Duration
	case PropPriority:
		f.Priority = other.Priority
	case PropActive:
		f.Active = other.Active
	}
}
