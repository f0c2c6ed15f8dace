package remote

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"voice-scribe-service/internal/service/recognizer"
)

type fakeController struct {
	mu       sync.Mutex
	started  []string
	stopped  []string
	startErr error
}

func (f *fakeController) RequestStart(ctx context.Context, sessionID, languageTag string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, sessionID+"/"+languageTag)
	return nil
}

func (f *fakeController) RequestStop(sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, sessionID)
	return nil
}

func TestSource_SupportedFollowsClient(t *testing.T) {
	s := New(&fakeController{})
	if !errors.Is(s.Supported(), recognizer.ErrUnavailable) {
		t.Error("expected unsupported before hello")
	}
	s.SetSupported(true)
	if s.Supported() != nil {
		t.Error("expected supported after client reports an engine")
	}
}

func TestSource_StartStopForwarded(t *testing.T) {
	ctrl := &fakeController{}
	s := New(ctrl)

	if err := s.Start(context.Background(), "sess-1", "de-DE"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Stop()

	if len(ctrl.started) != 1 || ctrl.started[0] != "sess-1/de-DE" {
		t.Errorf("unexpected starts %v", ctrl.started)
	}
	if len(ctrl.stopped) != 1 || ctrl.stopped[0] != "sess-1" {
		t.Errorf("expected a single stop for sess-1, got %v", ctrl.stopped)
	}
}

func TestSource_StartFailureIsNetworkReason(t *testing.T) {
	s := New(&fakeController{startErr: errors.New("write: broken pipe")})

	err := s.Start(context.Background(), "sess-1", "en-US")
	if recognizer.ReasonOf(err) != recognizer.ReasonNetwork {
		t.Errorf("expected network reason, got %v", err)
	}
}

func TestSource_Deliver(t *testing.T) {
	s := New(&fakeController{})
	ev := recognizer.Result("sess-1", "hello", false)

	if err := s.Deliver(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := <-s.Events(); got != ev {
		t.Errorf("expected %+v, got %+v", ev, got)
	}
}

func TestSource_DeliverUnblocksOnClose(t *testing.T) {
	s := New(&fakeController{})
	for i := 0; i < eventBufferSize; i++ {
		s.Deliver(context.Background(), recognizer.End("x"))
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.Deliver(context.Background(), recognizer.End("x")) }()

	s.Close()
	select {
	case err := <-errCh:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Deliver did not return after Close")
	}

	if err := s.Start(context.Background(), "sess-2", "en-US"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected start after close to fail, got %v", err)
	}
}
