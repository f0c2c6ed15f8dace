package dictation

import "time"

// StateChange describes a session state transition.
type StateChange struct {
	SessionID   string
	LanguageTag string
	State       State
	Reason      StateReason
	At          time.Time
}

// Merge describes one result applied to the buffer.
type Merge struct {
	SessionID   string
	LanguageTag string
	Mode        Mode
	// Text is the result text as delivered by the recognizer.
	Text string
	// Delta is the text inserted at Anchor. Equals Text in replace mode.
	Delta   string
	Anchor  int
	Caret   int
	IsFinal bool
	At      time.Time
}

// EventSink observes a synchronizer. Calls are made outside the
// synchronizer's lock, one at a time, in the order the transitions happened.
// A sink must not call back into the synchronizer.
type EventSink interface {
	CaptureStateChanged(change StateChange)
	TranscriptMerged(merge Merge)
	CaptureFailed(err *CaptureError)
}

// NopSink discards all notifications.
type NopSink struct{}

func (NopSink) CaptureStateChanged(StateChange) {}
func (NopSink) TranscriptMerged(Merge)          {}
func (NopSink) CaptureFailed(*CaptureError)     {}

// MultiSink fans notifications out to several sinks.
type MultiSink []EventSink

func (m MultiSink) CaptureStateChanged(change StateChange) {
	for _, s := range m {
		s.CaptureStateChanged(change)
	}
}

func (m MultiSink) TranscriptMerged(merge Merge) {
	for _, s := range m {
		s.TranscriptMerged(merge)
	}
}

func (m MultiSink) CaptureFailed(err *CaptureError) {
	for _, s := range m {
		s.CaptureFailed(err)
	}
}
