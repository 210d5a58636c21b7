package backend

import "strings"

// MediaKind is a bitmask of the media a track carries or a clip supports.
type MediaKind uint32

const (
	KindUnknown MediaKind = 1 << iota
	KindAudio
	KindVideo
	KindText
	KindCustom
)

// KindAudioVideo is the usual set supported by a file-backed clip.
const KindAudioVideo = KindAudio | KindVideo

// Has reports whether k includes every bit of other.
func (k MediaKind) Has(other MediaKind) bool {
	return other != 0 && k&other == other
}

func (k MediaKind) String() string {
	if k == 0 {
		return "none"
	}
	var parts []string
	for _, entry := range []struct {
		kind MediaKind
		name string
	}{
		{KindUnknown, "unknown"},
		{KindAudio, "audio"},
		{KindVideo, "video"},
		{KindText, "text"},
		{KindCustom, "custom"},
	} {
		if k&entry.kind != 0 {
			parts = append(parts, entry.name)
		}
	}
	return strings.Join(parts, "+")
}

// ParseMediaKind maps a name such as "video" or "audio+video" to its bitmask.
func ParseMediaKind(value string) (MediaKind, bool) {
	var kind MediaKind
	for _, part := range strings.Split(strings.ToLower(strings.TrimSpace(value)), "+") {
		switch strings.TrimSpace(part) {
		case "audio":
			kind |= KindAudio
		case "video":
			kind |= KindVideo
		case "text":
			kind |= KindText
		case "custom":
			kind |= KindCustom
		default:
			return 0, false
		}
	}
	return kind, kind != 0
}

// Role selects the kind of composition node a track object needs.
type Role int

const (
	// RoleSource plays media from an asset.
	RoleSource Role = iota
	// RoleOperation filters the output of the nodes below it (effects).
	RoleOperation
	// RoleTransition blends the two nodes it overlaps.
	RoleTransition
	// RoleGenerator produces synthetic media (test patterns, backgrounds).
	RoleGenerator
)

func (r Role) String() string {
	switch r {
	case RoleSource:
		return "source"
	case RoleOperation:
		return "operation"
	case RoleTransition:
		return "transition"
	case RoleGenerator:
		return "generator"
	default:
		return "unknown"
	}
}

// ParseRole is the inverse of Role.String.
func ParseRole(value string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "source":
		return RoleSource, true
	case "operation", "effect":
		return RoleOperation, true
	case "transition":
		return RoleTransition, true
	case "generator":
		return RoleGenerator, true
	default:
		return 0, false
	}
}
