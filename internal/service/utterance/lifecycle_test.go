package utterance

import (
	"testing"
)

func TestLifecycle_InitialState(t *testing.T) {
	lc := NewLifecycle("utt-1")

	if lc.State() != StateOpen {
		t.Errorf("expected StateOpen, got %v", lc.State())
	}
	if lc.ID() != "utt-1" {
		t.Errorf("expected utt-1, got %v", lc.ID())
	}
}

func TestLifecycle_FullCycle(t *testing.T) {
	lc := NewLifecycle("utt-1")

	for _, text := range []string{"testing", "testing one"} {
		if err := lc.EmitPartial(text); err != nil {
			t.Fatalf("partial %q failed: %v", text, err)
		}
	}
	if lc.Partials() != 2 || lc.LastText() != "testing one" {
		t.Errorf("unexpected partial bookkeeping %d/%q", lc.Partials(), lc.LastText())
	}

	if err := lc.EmitFinal("testing one two"); err != nil {
		t.Fatalf("final failed: %v", err)
	}
	if lc.State() != StateFinalEmitted {
		t.Errorf("expected StateFinalEmitted, got %v", lc.State())
	}

	lc.Close()
	if lc.State() != StateClosed {
		t.Errorf("expected StateClosed, got %v", lc.State())
	}
}

func TestLifecycle_TransitionErrors(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(lc *Lifecycle)
		partial   error
		final     error
		dropAfter bool
	}{
		{"open", func(lc *Lifecycle) {}, nil, nil, true},
		{"after final", func(lc *Lifecycle) { lc.EmitFinal("x") }, ErrCannotEmitPartialAfterFinal, ErrFinalAlreadyEmitted, true},
		{"after close", func(lc *Lifecycle) { lc.Close() }, ErrClosed, ErrClosed, false},
		{"after drop", func(lc *Lifecycle) { lc.Drop() }, ErrClosed, ErrClosed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := NewLifecycle("utt-1")
			tt.setup(lc)
			before := lc.State()

			if err := lc.EmitPartial("p"); err != tt.partial {
				t.Errorf("EmitPartial: expected %v, got %v", tt.partial, err)
			}

			lc2 := NewLifecycle("utt-2")
			tt.setup(lc2)
			if err := lc2.EmitFinal("f"); err != tt.final {
				t.Errorf("EmitFinal: expected %v, got %v", tt.final, err)
			}

			lc3 := NewLifecycle("utt-3")
			tt.setup(lc3)
			if got := lc3.Drop(); got != tt.dropAfter {
				t.Errorf("Drop: expected %v from %v, got %v", tt.dropAfter, before, got)
			}
		})
	}
}

func TestLifecycle_Drop_MidUtterance(t *testing.T) {
	lc := NewLifecycle("utt-1")
	lc.EmitPartial("partial text")

	if !lc.Drop() {
		t.Fatal("expected Drop() to succeed mid-utterance")
	}
	if lc.Drop() {
		t.Error("expected second Drop() to return false")
	}

	lc.Close()
	if lc.State() != StateDropped {
		t.Errorf("expected dropped utterance to stay dropped, got %v", lc.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateOpen, "OPEN"},
		{StateFinalEmitted, "FINAL_EMITTED"},
		{StateClosed, "CLOSED"},
		{StateDropped, "DROPPED"},
		{State(99), "UNKNOWN(99)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %v, want %v", tt.state, got, tt.expected)
		}
	}
}

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state      State
		isTerminal bool
	}{
		{StateOpen, false},
		{StateFinalEmitted, false},
		{StateClosed, true},
		{StateDropped, true},
	}

	for _, tt := range tests {
		if got := tt.state.IsTerminal(); got != tt.isTerminal {
			t.Errorf("State(%s).IsTerminal() = %v, want %v", tt.state, got, tt.isTerminal)
		}
	}
}
