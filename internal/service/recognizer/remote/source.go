// Package remote provides a recognition source whose engine runs on the
// client side of a connection, such as a browser's speech API. Start and
// stop requests are forwarded through a Controller, and the client's
// recognition events are pushed back with Deliver.
package remote

import (
	"context"
	"errors"
	"sync"

	"voice-scribe-service/internal/service/recognizer"
)

// ErrClosed is returned once the source was closed.
var ErrClosed = errors.New("remote: source closed")

const eventBufferSize = 64

// Controller forwards start and stop requests to the remote engine.
type Controller interface {
	RequestStart(ctx context.Context, sessionID, languageTag string) error
	RequestStop(sessionID string) error
}

// Source implements recognizer.Source and recognizer.Prober.
type Source struct {
	ctrl   Controller
	events chan recognizer.Event
	done   chan struct{}

	mu        sync.Mutex
	supported bool
	sessionID string
	closed    bool
}

// New creates a remote source. It reports itself unsupported until the
// client says otherwise.
func New(ctrl Controller) *Source {
	return &Source{
		ctrl:   ctrl,
		events: make(chan recognizer.Event, eventBufferSize),
		done:   make(chan struct{}),
	}
}

// SetSupported records whether the client has a usable engine.
func (s *Source) SetSupported(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supported = ok
}

// Supported implements recognizer.Prober.
func (s *Source) Supported() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.supported {
		return recognizer.ErrUnavailable
	}
	return nil
}

// Events returns events delivered by the client.
func (s *Source) Events() <-chan recognizer.Event {
	return s.events
}

// Start asks the client to begin recognition for sessionID.
func (s *Source) Start(ctx context.Context, sessionID, languageTag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &recognizer.Error{Reason: recognizer.ReasonAborted, Err: ErrClosed}
	}
	if err := s.ctrl.RequestStart(ctx, sessionID, languageTag); err != nil {
		return &recognizer.Error{Reason: recognizer.ReasonNetwork, Err: err}
	}
	s.sessionID = sessionID
	return nil
}

// Stop asks the client to stop the current session.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessionID == "" || s.closed {
		return nil
	}
	id := s.sessionID
	s.sessionID = ""
	return s.ctrl.RequestStop(id)
}

// Deliver queues an event received from the client. It blocks while the
// buffer is full and fails once ctx is done or the source is closed.
func (s *Source) Deliver(ctx context.Context, ev recognizer.Event) error {
	select {
	case s.events <- ev:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases blocked Deliver calls. The event channel is left open.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	return nil
}
