// Package mock provides a scripted recognition source for running without
// cloud credentials. It simulates realistic recognizer behavior: growing
// interim transcripts, exactly one final transcript per utterance, and the
// trailing results a real engine still delivers after it was asked to stop.
package mock

import (
	"context"
	"sync"

	"voice-scribe-service/internal/service/recognizer"
)

// SimulatedUtterance represents a mock utterance with progressive transcripts.
type SimulatedUtterance struct {
	Partials   []string // Progressive interim transcripts
	Final      string   // Final transcript text
	Confidence float64  // Confidence score for final
}

// DefaultUtterances provides sample dictation for simulation.
var DefaultUtterances = []SimulatedUtterance{
	{
		Partials:   []string{"testing", "testing one"},
		Final:      "testing one two",
		Confidence: 0.94,
	},
	{
		Partials:   []string{"remember", "remember to buy", "remember to buy milk"},
		Final:      "remember to buy milk and eggs",
		Confidence: 0.91,
	},
	{
		Partials:   []string{"the meeting", "the meeting moved to"},
		Final:      "the meeting moved to Thursday",
		Confidence: 0.89,
	},
	{
		Partials:   []string{"thank you"},
		Final:      "thank you very much",
		Confidence: 0.98,
	},
}

// Config scripts the mock source.
type Config struct {
	Utterances []SimulatedUtterance
	// FailStart makes every Start call fail with this reason.
	FailStart recognizer.Reason
	// FailAfter emits a FailReason error after this many audio frames. Zero disables.
	FailAfter  int
	FailReason recognizer.Reason
	// EndAfterScript emits an end event once every utterance was delivered.
	EndAfterScript bool
	// Unsupported makes the source report itself unavailable.
	Unsupported bool
}

// DefaultConfig plays DefaultUtterances once and then ends the session.
func DefaultConfig() Config {
	return Config{
		Utterances:     DefaultUtterances,
		EndAfterScript: true,
	}
}

const eventBufferSize = 64

// Source implements recognizer.Source with scripted responses. Each audio
// frame passed to SendAudio advances the script by one step.
type Source struct {
	cfg    Config
	events chan recognizer.Event

	mu           sync.Mutex
	sessionID    string
	active       bool
	frames       int
	utterance    int // Index of the utterance being simulated
	partialIndex int // Next partial to send
	dropped      int
}

// New creates a new mock source.
func New(cfg Config) *Source {
	if len(cfg.Utterances) == 0 {
		cfg.Utterances = DefaultUtterances
	}
	return &Source{
		cfg:    cfg,
		events: make(chan recognizer.Event, eventBufferSize),
	}
}

// Supported reports whether the source is available.
func (s *Source) Supported() error {
	if s.cfg.Unsupported {
		return recognizer.ErrUnavailable
	}
	return nil
}

// Events returns the recognition event stream.
func (s *Source) Events() <-chan recognizer.Event {
	return s.events
}

// Start begins a mock session at the first utterance.
func (s *Source) Start(ctx context.Context, sessionID, languageTag string) error {
	if s.cfg.FailStart != "" {
		return &recognizer.Error{Reason: s.cfg.FailStart}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = sessionID
	s.active = true
	s.frames = 0
	s.utterance = 0
	s.partialIndex = 0
	return nil
}

// SendAudio simulates receiving one audio frame. It emits the next interim
// transcript, or the final one once the partials are exhausted.
func (s *Source) SendAudio(ctx context.Context, audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil
	}
	s.frames++

	if s.cfg.FailAfter > 0 && s.frames >= s.cfg.FailAfter {
		s.active = false
		s.emit(recognizer.Failure(s.sessionID, s.cfg.FailReason))
		s.emit(recognizer.End(s.sessionID))
		return nil
	}

	if s.utterance >= len(s.cfg.Utterances) {
		return nil
	}
	utt := s.cfg.Utterances[s.utterance]

	if s.partialIndex < len(utt.Partials) {
		s.emit(recognizer.Result(s.sessionID, utt.Partials[s.partialIndex], false))
		s.partialIndex++
		return nil
	}

	// All partials sent: silence detection ends the utterance
	s.emitFinal(utt)
	s.utterance++
	s.partialIndex = 0

	if s.utterance >= len(s.cfg.Utterances) && s.cfg.EndAfterScript {
		s.active = false
		s.emit(recognizer.End(s.sessionID))
	}
	return nil
}

// Stop ends the session. If an utterance was in progress its final
// transcript is still delivered, followed by an end event.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil
	}
	s.active = false

	if s.partialIndex > 0 && s.utterance < len(s.cfg.Utterances) {
		s.emitFinal(s.cfg.Utterances[s.utterance])
	}
	s.emit(recognizer.End(s.sessionID))
	return nil
}

// Dropped returns how many events were lost to a full event buffer.
func (s *Source) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *Source) emitFinal(utt SimulatedUtterance) {
	ev := recognizer.Result(s.sessionID, utt.Final, true)
	ev.Confidence = utt.Confidence
	s.emit(ev)
}

// emit must be called with s.mu held. It never blocks: Stop is called from
// the consumer's own loop.
func (s *Source) emit(ev recognizer.Event) {
	select {
	case s.events <- ev:
	default:
		s.dropped++
	}
}
