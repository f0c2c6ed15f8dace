// Package utterance tracks the publish lifecycle of dictated utterances.
package utterance

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of an utterance.
type State int

const (
	// StateOpen - interim transcripts may be published.
	StateOpen State = iota
	// StateFinalEmitted - the final transcript was published.
	StateFinalEmitted
	// StateClosed - the utterance ended normally.
	StateClosed
	// StateDropped - the capture failed before a final arrived. Terminal;
	// nothing more is published for it.
	StateDropped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateFinalEmitted:
		return "FINAL_EMITTED"
	case StateClosed:
		return "CLOSED"
	case StateDropped:
		return "DROPPED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true for CLOSED and DROPPED.
func (s State) IsTerminal() bool {
	return s == StateClosed || s == StateDropped
}

var (
	ErrClosed                      = errors.New("utterance is closed")
	ErrFinalAlreadyEmitted         = errors.New("final already emitted for this utterance")
	ErrCannotEmitPartialAfterFinal = errors.New("cannot emit partial after final")
)

// Lifecycle is the state machine of a single utterance. Safe for concurrent use.
//
//	OPEN ──EmitFinal──→ FINAL_EMITTED ──Close──→ CLOSED
//	  │
//	  └──Drop──→ DROPPED
type Lifecycle struct {
	mu       sync.RWMutex
	id       string
	state    State
	partials int
	lastText string
}

// NewLifecycle creates an utterance lifecycle in OPEN state.
func NewLifecycle(id string) *Lifecycle {
	return &Lifecycle{id: id, state: StateOpen}
}

// ID returns the utterance id.
func (l *Lifecycle) ID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.id
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Partials returns how many interim transcripts were accepted.
func (l *Lifecycle) Partials() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.partials
}

// LastText returns the most recent accepted transcript.
func (l *Lifecycle) LastText() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastText
}

// EmitPartial records an interim transcript if the utterance is still open.
func (l *Lifecycle) EmitPartial(text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateOpen:
		l.partials++
		l.lastText = text
		return nil
	case StateFinalEmitted:
		return ErrCannotEmitPartialAfterFinal
	case StateClosed, StateDropped:
		return ErrClosed
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// EmitFinal records the final transcript. Allowed once, from OPEN.
func (l *Lifecycle) EmitFinal(text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateOpen:
		l.state = StateFinalEmitted
		l.lastText = text
		return nil
	case StateFinalEmitted:
		return ErrFinalAlreadyEmitted
	case StateClosed, StateDropped:
		return ErrClosed
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// Close ends the utterance. Idempotent; a dropped utterance stays dropped.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateDropped {
		l.state = StateClosed
	}
}

// Drop abandons the utterance without a final. It returns false if the
// utterance was already terminal.
func (l *Lifecycle) Drop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return false
	}
	l.state = StateDropped
	return true
}
