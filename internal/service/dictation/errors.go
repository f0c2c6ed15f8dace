package dictation

import (
	"errors"
	"fmt"

	"voice-scribe-service/internal/service/recognizer"
)

var (
	// ErrCaptureActive is returned by BeginCapture while another session is active.
	ErrCaptureActive = errors.New("capture session already active")
	// ErrUnsupported reports that the recognition source is unavailable.
	ErrUnsupported = errors.New("speech recognition not supported")
)

// ErrorKind classifies capture errors.
type ErrorKind int

const (
	// KindUnsupported means no recognizer is available at all.
	KindUnsupported ErrorKind = iota
	// KindStart means the recognizer rejected a start request.
	KindStart
	// KindSession means the recognizer failed while a session was active.
	KindSession
	// KindLimit means a capture limit ended the session.
	KindLimit
)

// String returns the string representation of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindUnsupported:
		return "unsupported"
	case KindStart:
		return "start"
	case KindSession:
		return "session"
	case KindLimit:
		return "limit"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// CaptureError is surfaced to the user whenever a capture attempt fails.
type CaptureError struct {
	Kind      ErrorKind
	SessionID string
	Reason    recognizer.Reason
	Err       error
}

func (e *CaptureError) Error() string {
	msg := fmt.Sprintf("dictation %s error", e.Kind)
	if e.Reason != "" {
		msg += ": " + string(e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CaptureError) Unwrap() error { return e.Err }

// Message returns the human-readable text shown to the user.
func (e *CaptureError) Message() string {
	switch e.Kind {
	case KindUnsupported:
		return recognizer.UnsupportedMessage
	case KindStart:
		if e.Reason == "" || e.Reason == recognizer.ReasonUnknown {
			return recognizer.StartFailedMessage
		}
	}
	return e.Reason.Message()
}
