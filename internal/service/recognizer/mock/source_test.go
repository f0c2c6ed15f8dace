package mock

import (
	"context"
	"errors"
	"testing"

	"voice-scribe-service/internal/service/recognizer"
)

func drain(s *Source) []recognizer.Event {
	var out []recognizer.Event
	for {
		select {
		case ev := <-s.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func sendFrames(t *testing.T, s *Source, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := s.SendAudio(context.Background(), []byte("audio")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestSource_ScriptedUtterance(t *testing.T) {
	s := New(Config{Utterances: DefaultUtterances[:1]})
	if err := s.Start(context.Background(), "sess-1", "en-US"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sendFrames(t, s, 3)
	events := drain(s)

	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	expected := []struct {
		text  string
		final bool
	}{
		{"testing", false},
		{"testing one", false},
		{"testing one two", true},
	}
	for i, want := range expected {
		ev := events[i]
		if ev.Kind != recognizer.KindResult || ev.SessionID != "sess-1" {
			t.Errorf("event %d: unexpected %+v", i, ev)
		}
		if ev.Text != want.text || ev.IsFinal != want.final {
			t.Errorf("event %d: expected %q final=%v, got %q final=%v", i, want.text, want.final, ev.Text, ev.IsFinal)
		}
	}
	if events[2].Confidence != 0.94 {
		t.Errorf("expected confidence on final, got %f", events[2].Confidence)
	}
}

func TestSource_EndAfterScript(t *testing.T) {
	s := New(Config{Utterances: DefaultUtterances[3:], EndAfterScript: true})
	s.Start(context.Background(), "sess-1", "en-US")

	sendFrames(t, s, 5)
	events := drain(s)

	if len(events) != 3 {
		t.Fatalf("expected partial, final and end, got %d", len(events))
	}
	if events[2].Kind != recognizer.KindEnd {
		t.Errorf("expected end event, got %s", events[2].Kind)
	}
}

func TestSource_ExactlyOneFinalPerUtterance(t *testing.T) {
	s := New(DefaultConfig())
	s.Start(context.Background(), "sess-1", "en-US")

	sendFrames(t, s, 50)
	finals := 0
	for _, ev := range drain(s) {
		if ev.IsFinal {
			finals++
		}
	}
	if finals != len(DefaultUtterances) {
		t.Errorf("expected %d finals, got %d", len(DefaultUtterances), finals)
	}
}

func TestSource_InterimsGrowByPrefix(t *testing.T) {
	for i, utt := range DefaultUtterances {
		prev := ""
		for _, p := range append(append([]string{}, utt.Partials...), utt.Final) {
			if len(p) < len(prev) || p[:len(prev)] != prev {
				t.Errorf("utterance %d: %q does not extend %q", i, p, prev)
			}
			prev = p
		}
		if utt.Confidence <= 0 || utt.Confidence > 1 {
			t.Errorf("utterance %d has invalid confidence %f", i, utt.Confidence)
		}
	}
}

func TestSource_StopDeliversPendingFinal(t *testing.T) {
	s := New(DefaultConfig())
	s.Start(context.Background(), "sess-1", "en-US")
	sendFrames(t, s, 1)
	drain(s)

	if err := s.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	events := drain(s)
	if len(events) != 2 {
		t.Fatalf("expected final and end, got %d", len(events))
	}
	if !events[0].IsFinal || events[0].Text != "testing one two" {
		t.Errorf("expected trailing final, got %+v", events[0])
	}
	if events[1].Kind != recognizer.KindEnd {
		t.Errorf("expected end, got %s", events[1].Kind)
	}

	// Idempotent, and audio after stop is ignored
	s.Stop()
	sendFrames(t, s, 2)
	if extra := drain(s); len(extra) != 0 {
		t.Errorf("expected no events after stop, got %d", len(extra))
	}
}

func TestSource_FailStart(t *testing.T) {
	s := New(Config{FailStart: recognizer.ReasonNotAllowed})
	err := s.Start(context.Background(), "sess-1", "en-US")
	if recognizer.ReasonOf(err) != recognizer.ReasonNotAllowed {
		t.Errorf("expected not-allowed, got %v", err)
	}
}

func TestSource_FailAfter(t *testing.T) {
	s := New(Config{FailAfter: 2, FailReason: recognizer.ReasonNetwork})
	s.Start(context.Background(), "sess-1", "en-US")
	sendFrames(t, s, 3)

	events := drain(s)
	if len(events) != 3 {
		t.Fatalf("expected interim, error and end, got %d", len(events))
	}
	if events[1].Kind != recognizer.KindError || events[1].Reason != recognizer.ReasonNetwork {
		t.Errorf("expected network error, got %+v", events[1])
	}
}

func TestSource_Unsupported(t *testing.T) {
	s := New(Config{Unsupported: true})
	if !errors.Is(s.Supported(), recognizer.ErrUnavailable) {
		t.Error("expected unavailable")
	}
	if New(DefaultConfig()).Supported() != nil {
		t.Error("expected default mock to be supported")
	}
}

func TestSource_NeverBlocks(t *testing.T) {
	utts := make([]SimulatedUtterance, eventBufferSize*2)
	for i := range utts {
		utts[i] = SimulatedUtterance{Final: "x", Confidence: 0.5}
	}
	s := New(Config{Utterances: utts})
	s.Start(context.Background(), "sess-1", "en-US")

	sendFrames(t, s, len(utts))
	if s.Dropped() != len(utts)-eventBufferSize {
		t.Errorf("expected %d dropped, got %d", len(utts)-eventBufferSize, s.Dropped())
	}
}
