package storage

import "fmt"

// Kind is the moderation action discriminant, persisted as a small integer.
type Kind int

const (
	KindWarning Kind = iota
	KindKick
	KindMute
	KindTimeout
	KindBan
	KindUnmute
	KindUntimeout
	KindUnban
)

// UnknownKindError reports a persisted kind tag outside the known range.
type UnknownKindError struct {
	Tag int
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown moderation kind tag %d", e.Tag)
}

// KindFromInt decodes a stored tag, rejecting corrupt or future values.
func KindFromInt(tag int) (Kind, error) {
	if tag < int(KindWarning) || tag > int(KindUnban) {
		return 0, &UnknownKindError{Tag: tag}
	}
	return Kind(tag), nil
}

// Timed reports whether the kind carries an expiry and is subject to the
// one-active-sanction rule.
func (k Kind) Timed() bool {
	switch k {
	case KindBan, KindMute, KindTimeout:
		return true
	}
	return false
}

// ActiveOnCreate reports whether a freshly recorded entry of this kind starts
// active. Kicks and reversals are point-in-time history, not ongoing state.
func (k Kind) ActiveOnCreate() bool {
	switch k {
	case KindKick, KindUnban, KindUnmute, KindUntimeout:
		return false
	}
	return true
}

func (k Kind) String() string {
	switch k {
	case KindWarning:
		return "Warning"
	case KindKick:
		return "Kick"
	case KindMute:
		return "Mute"
	case KindTimeout:
		return "Timeout"
	case KindBan:
		return "Ban"
	case KindUnmute:
		return "Unmute"
	case KindUntimeout:
		return "Untimeout"
	case KindUnban:
		return "Unban"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}
