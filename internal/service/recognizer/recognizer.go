// Package recognizer defines the contract for speech recognition sources.
package recognizer

import (
	"context"
	"errors"
	"fmt"
)

// Kind tags a message on a source's event channel.
type Kind int

const (
	// KindResult carries the recognizer's current best transcript for the utterance.
	KindResult Kind = iota
	// KindError reports a recognition failure.
	KindError
	// KindEnd signals the recognizer stopped producing events for the session.
	KindEnd
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindResult:
		return "result"
	case KindError:
		return "error"
	case KindEnd:
		return "end"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Event is a single message emitted by a Source.
type Event struct {
	Kind       Kind
	SessionID  string
	Text       string
	IsFinal    bool
	Confidence float64
	Reason     Reason
}

// Result builds a result event.
func Result(sessionID, text string, isFinal bool) Event {
	return Event{Kind: KindResult, SessionID: sessionID, Text: text, IsFinal: isFinal}
}

// Failure builds an error event.
func Failure(sessionID string, reason Reason) Event {
	return Event{Kind: KindError, SessionID: sessionID, Reason: reason}
}

// End builds an end-of-session event.
func End(sessionID string) Event {
	return Event{Kind: KindEnd, SessionID: sessionID}
}

// Source is a speech recognition engine (platform API, cloud service, mock).
//
// Start requests recognition for one capture session; events produced for that
// session carry its id. Start may return before the engine is actually listening;
// asynchronous failures arrive as KindError events.
type Source interface {
	Start(ctx context.Context, sessionID, languageTag string) error
	Stop() error
	Events() <-chan Event
}

// Prober is implemented by sources that can tell whether recognition is
// available at all in the current environment.
type Prober interface {
	Supported() error
}

// ErrUnavailable reports that no recognition engine is available.
var ErrUnavailable = errors.New("speech recognition unavailable")

// Error is returned by Source.Start when the engine rejects the request.
type Error struct {
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "recognizer: " + string(e.Reason)
	}
	return fmt.Sprintf("recognizer: %s: %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ReasonOf extracts the reason carried by err, or ReasonUnknown.
func ReasonOf(err error) Reason {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Reason
	}
	return ReasonUnknown
}
