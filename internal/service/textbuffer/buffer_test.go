package textbuffer

import (
	"context"
	"testing"
	"time"

	"voice-scribe-service/internal/service/dictation"
	"voice-scribe-service/internal/service/recognizer"
)

func TestNew_CaretAtEnd(t *testing.T) {
	b := New("héllo")
	if b.Caret() != 5 {
		t.Errorf("expected caret 5, got %d", b.Caret())
	}
	if b.Len() != 5 {
		t.Errorf("expected length 5, got %d", b.Len())
	}
}

func TestBuffer_ProgrammaticWritesEmitNothing(t *testing.T) {
	b := New("abc")
	b.SetContent("abcdef")
	b.SetCaret(2)

	select {
	case e := <-b.Edits():
		t.Fatalf("expected no edit, got %v", e.Kind)
	default:
	}
	if b.Content() != "abcdef" || b.Caret() != 2 {
		t.Errorf("unexpected state %q/%d", b.Content(), b.Caret())
	}
}

func TestBuffer_CaretClamped(t *testing.T) {
	b := New("abc")
	b.SetCaret(99)
	if b.Caret() != 3 {
		t.Errorf("expected caret clamped to 3, got %d", b.Caret())
	}
	b.SetCaret(-4)
	if b.Caret() != 0 {
		t.Errorf("expected caret clamped to 0, got %d", b.Caret())
	}
	b.SetCaret(3)
	b.SetContent("a")
	if b.Caret() != 1 {
		t.Errorf("expected caret clamped to new length, got %d", b.Caret())
	}
}

func TestBuffer_UserActions(t *testing.T) {
	tests := []struct {
		name          string
		act           func(b *Buffer)
		expectContent string
		expectCaret   int
		expectKind    dictation.EditKind
	}{
		{"type", func(b *Buffer) { b.Type("XY") }, "abXYcd", 4, dictation.EditKey},
		{"paste", func(b *Buffer) { b.Paste("ñ") }, "abñcd", 3, dictation.EditPaste},
		{"click", func(b *Buffer) { b.Click(4) }, "abcd", 4, dictation.EditPointer},
		{"select", func(b *Buffer) { b.Select(3, 1) }, "abcd", 3, dictation.EditSelect},
		{"backspace", func(b *Buffer) { b.Backspace(1) }, "acd", 1, dictation.EditKey},
		{"backspace past start", func(b *Buffer) { b.Backspace(9) }, "cd", 0, dictation.EditKey},
		{"clear", func(b *Buffer) { b.Clear() }, "", 0, dictation.EditKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("abcd")
			b.SetCaret(2)

			tt.act(b)

			if got := b.Content(); got != tt.expectContent {
				t.Errorf("expected content %q, got %q", tt.expectContent, got)
			}
			if got := b.Caret(); got != tt.expectCaret {
				t.Errorf("expected caret %d, got %d", tt.expectCaret, got)
			}
			select {
			case e := <-b.Edits():
				if e.Kind != tt.expectKind {
					t.Errorf("expected edit %s, got %s", tt.expectKind, e.Kind)
				}
			default:
				t.Error("expected an edit notification")
			}
		})
	}
}

func TestBuffer_EmitNeverBlocks(t *testing.T) {
	b := New("")
	for i := 0; i < editQueueSize*3; i++ {
		b.Type("x")
	}
	if b.Len() != editQueueSize*3 {
		t.Errorf("expected %d runes, got %d", editQueueSize*3, b.Len())
	}
	if len(b.edits) != editQueueSize {
		t.Errorf("expected full queue, got %d", len(b.edits))
	}
}

func TestBuffer_Close(t *testing.T) {
	b := New("")
	b.Close()
	b.Close()
	b.Type("still editable")

	if _, ok := <-b.Edits(); ok {
		t.Error("expected closed edit channel")
	}
	if b.Content() != "still editable" {
		t.Errorf("unexpected content %q", b.Content())
	}
}

// stubSource accepts every start request and never emits on its own.
type stubSource struct {
	events chan recognizer.Event
}

func (s *stubSource) Start(context.Context, string, string) error { return nil }
func (s *stubSource) Stop() error                                 { return nil }
func (s *stubSource) Events() <-chan recognizer.Event             { return s.events }

func TestBuffer_AsRenderTarget(t *testing.T) {
	b := New("Notes: ")
	var pending []func()
	sched := dictation.SchedulerFunc(func(fn func()) { pending = append(pending, fn) })
	s := dictation.NewWithScheduler(&stubSource{events: make(chan recognizer.Event)}, b, nil, dictation.DefaultConfig(), sched)

	if err := s.BeginCapture(context.Background(), "en-US"); err != nil {
		t.Fatalf("BeginCapture: %v", err)
	}
	sess, _ := s.Session()
	s.OnRecognitionResult(sess.ID, "hello", false)
	s.OnRecognitionResult(sess.ID, "hello world", true)
	for _, fn := range pending {
		fn()
	}

	if b.Content() != "Notes: hello world" {
		t.Errorf("unexpected content %q", b.Content())
	}
	if b.Caret() != 18 {
		t.Errorf("expected caret 18, got %d", b.Caret())
	}

	b.Click(0)
	if s.Active() {
		t.Error("expected click to end capture")
	}
	select {
	case e := <-b.Edits():
		t.Errorf("expected attached buffer to report through the synchronizer, got %+v", e)
	default:
	}
}

func TestBuffer_TypingWinsOverQueuedResult(t *testing.T) {
	for i := 0; i < 50; i++ {
		b := New("")
		src := &stubSource{events: make(chan recognizer.Event, 1)}
		s := dictation.New(src, b, nil, dictation.DefaultConfig())

		ctx, cancel := context.WithCancel(context.Background())
		if err := s.BeginCapture(ctx, "en-US"); err != nil {
			t.Fatalf("BeginCapture: %v", err)
		}
		sess, _ := s.Session()
		src.events <- recognizer.Result(sess.ID, "hello", false)
		b.Type("X")

		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()
		time.Sleep(2 * time.Millisecond)
		cancel()
		<-done

		if got := b.Content(); got != "X" {
			t.Fatalf("run %d: expected typed text kept, got %q", i, got)
		}
	}
}
