package dictation

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// State is the lifecycle state of a capture session.
type State int

const (
	StateInactive State = iota
	StateActive
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateActive:
		return "active"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Mode is the merge policy of a session. It is fixed when the session starts.
type Mode int

const (
	// ModeReplace replaces the whole buffer with each result. Used when the
	// buffer was empty at session start.
	ModeReplace Mode = iota
	// ModeSplice inserts the incremental delta at the anchor position.
	ModeSplice
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeReplace:
		return "replace"
	case ModeSplice:
		return "splice"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// Session is one continuous dictation attempt against a render target.
type Session struct {
	ID          string
	LanguageTag string
	// IsInitial is true when the buffer was empty at session start.
	IsInitial bool
	// AnchorPosition is the rune offset where the next delta is spliced.
	AnchorPosition int
	// LastAppliedText is the last transcript already merged for the current utterance.
	LastAppliedText string
	StartedAt       time.Time

	active  bool
	results int
	logger  zerolog.Logger
}

// Active reports whether the session still accepts results.
func (s *Session) Active() bool { return s.active }

// State returns the session state.
func (s *Session) State() State {
	if s.active {
		return StateActive
	}
	return StateInactive
}

// Mode returns the merge policy for the session.
func (s *Session) Mode() Mode {
	if s.IsInitial {
		return ModeReplace
	}
	return ModeSplice
}

// StateReason explains a session state transition.
type StateReason string

const (
	ReasonStarted     StateReason = "started"
	ReasonStopped     StateReason = "stopped"
	ReasonInterrupted StateReason = "interrupted"
	ReasonEnded       StateReason = "ended"
	ReasonFailed      StateReason = "failed"
	ReasonLimit       StateReason = "limit"
)
