package timeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConstraint marks a rejected structural mutation. No state changed.
	ErrConstraint = errors.New("constraint violation")
	// ErrBind marks a backend node that could not be created or wired.
	ErrBind = errors.New("backend bind failure")
	// ErrDestroyed is returned by every mutation of a destroyed TrackObject.
	ErrDestroyed = errors.New("object destroyed")
	// ErrUnbound is returned by operations that need a backend node.
	ErrUnbound = errors.New("object has no backend node")
	// ErrNoSuchChildProperty is returned when a child property lookup fails.
	ErrNoSuchChildProperty = errors.New("no such child property")
)

var (
	ErrAdjacentTransition = constraint("transition adjacent to another transition")
	ErrNotMember          = constraint("not a member")
	ErrNotOwned           = constraint("not owned by this container")
	ErrAlreadyOwned       = constraint("already owned by another container")
	ErrAlreadyBound       = constraint("already bound to a backend node")
	ErrKindMismatch       = constraint("media kind mismatch")
	ErrNotEmpty           = constraint("container still has members")
	ErrNoInternalSource   = constraint("object has no internal source")
	ErrInvalidIndex       = constraint("index out of range")
	ErrInvalidPosition    = constraint("position outside the clip")
	ErrWrongRole          = constraint("object has the wrong role")
)

func constraint(message string) error {
	return fmt.Errorf("%w: %s", ErrConstraint, message)
}

// Wrap tags err with marker and the component/operation that produced it,
// so callers can classify it with errors.Is.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrConstraint
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "timeline failure"
	}
	return strings.Join(parts, ": ")
}
