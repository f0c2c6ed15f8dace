package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voice-scribe-service/internal/models"
	"voice-scribe-service/internal/observability/logging"
	"voice-scribe-service/internal/observability/metrics"
	"voice-scribe-service/internal/service/dictation"
	"voice-scribe-service/internal/service/utterance"
)

// TranscriptPublisher is satisfied by *Publisher.
type TranscriptPublisher interface {
	PublishPartial(ctx context.Context, key string, event any) error
	PublishFinal(ctx context.Context, key string, event any) error
}

// EventValidator is satisfied by *schema.Validator.
type EventValidator interface {
	Validate(event any) error
}

// SinkConfig controls the publishing queue.
type SinkConfig struct {
	Principal      string
	QueueSize      int
	PublishTimeout time.Duration
}

// DefaultSinkConfig returns sensible defaults.
func DefaultSinkConfig() SinkConfig {
	return SinkConfig{
		QueueSize:      256,
		PublishTimeout: 5 * time.Second,
	}
}

type job struct {
	final bool
	key   string
	event any
}

// tracker follows the utterances of one capture session.
type tracker struct {
	gen       *utterance.Generator
	current   *utterance.Lifecycle
	offset    int
	startedAt time.Time
}

// Sink is a dictation.EventSink that publishes merged transcripts. Each
// utterance gets an id and a lifecycle: interims stop once the final is out,
// and an utterance cut short by an error or interruption publishes no final.
// Publishing happens on a background worker so the synchronizer never waits
// on Kafka.
type Sink struct {
	pub       TranscriptPublisher
	validator EventValidator
	cfg       SinkConfig
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	jobs chan job
	wg   sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*tracker
	closed   bool
}

// NewSink creates the sink and starts its publishing worker.
func NewSink(pub TranscriptPublisher, validator EventValidator, cfg SinkConfig) *Sink {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultSinkConfig().QueueSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultSinkConfig().PublishTimeout
	}
	s := &Sink{
		pub:       pub,
		validator: validator,
		cfg:       cfg,
		metrics:   metrics.DefaultMetrics,
		logger:    logging.WithComponent("transcript-sink"),
		jobs:      make(chan job, cfg.QueueSize),
		sessions:  make(map[string]*tracker),
	}
	s.wg.Add(1)
	go s.worker()
	return s
}

// CaptureStateChanged opens or closes the session's tracker.
func (s *Sink) CaptureStateChanged(change dictation.StateChange) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch change.State {
	case dictation.StateActive:
		s.sessions[change.SessionID] = &tracker{
			gen:       utterance.NewGenerator(change.SessionID),
			startedAt: change.At,
		}
	case dictation.StateInactive:
		t, ok := s.sessions[change.SessionID]
		if !ok {
			return
		}
		s.dropOpen(t, string(change.Reason))
		delete(s.sessions, change.SessionID)
	}
}

// TranscriptMerged queues the merge for publishing. Merges for a session that
// is not open, because it already ended or started before the sink was
// attached, are dropped.
func (s *Sink) TranscriptMerged(m dictation.Merge) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.sessions[m.SessionID]
	if !ok {
		s.metrics.RecordUtteranceDropped("unknown_session")
		s.logger.Debug().Str("sessionId", m.SessionID).Bool("final", m.IsFinal).Msg("Merge for closed session not published")
		return
	}
	if t.current == nil || t.current.State().IsTerminal() {
		t.current = utterance.NewLifecycle(t.gen.Next())
		t.offset = m.Anchor
	}
	lc := t.current

	if !m.IsFinal {
		if err := lc.EmitPartial(m.Text); err != nil {
			s.logger.Debug().Err(err).Str("utteranceId", lc.ID()).Msg("Partial not published")
			return
		}
		s.enqueue(job{key: m.SessionID, event: models.DictationPartial{
			EventType:   models.EventTypePartial,
			SessionID:   m.SessionID,
			UtteranceID: lc.ID(),
			Principal:   s.cfg.Principal,
			Language:    m.LanguageTag,
			Mode:        m.Mode.String(),
			Timestamp:   m.At.UnixMilli(),
			Text:        m.Text,
		}})
		return
	}

	partials := lc.Partials()
	if err := lc.EmitFinal(m.Text); err != nil {
		s.logger.Warn().Err(err).Str("utteranceId", lc.ID()).Msg("Final not published")
		return
	}
	s.enqueue(job{final: true, key: m.SessionID, event: models.DictationFinal{
		EventType:       models.EventTypeFinal,
		SessionID:       m.SessionID,
		UtteranceID:     lc.ID(),
		Principal:       s.cfg.Principal,
		Language:        m.LanguageTag,
		Mode:            m.Mode.String(),
		Timestamp:       m.At.UnixMilli(),
		Text:            m.Text,
		Offset:          t.offset,
		SessionOffsetMs: nonNegative(m.At.Sub(t.startedAt).Milliseconds()),
		Partials:        partials,
	}})
	lc.Close()
	t.current = nil
	s.metrics.RecordUtteranceCompleted()
}

// CaptureFailed drops the utterance in progress.
func (s *Sink) CaptureFailed(err *dictation.CaptureError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.sessions[err.SessionID]; ok {
		s.dropOpen(t, string(err.Reason))
	}
}

// OpenSessions returns how many sessions are being tracked.
func (s *Sink) OpenSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close stops accepting merges and waits for queued events to be published.
func (s *Sink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.jobs)
	s.mu.Unlock()
	s.wg.Wait()
}

// dropOpen must be called with s.mu held.
func (s *Sink) dropOpen(t *tracker, reason string) {
	if t.current == nil {
		return
	}
	if t.current.Drop() {
		s.metrics.RecordUtteranceDropped(reason)
		s.logger.Debug().
			Str("utteranceId", t.current.ID()).
			Str("reason", reason).
			Msg("Utterance dropped without final")
	}
	t.current = nil
}

// enqueue must be called with s.mu held. It never blocks.
func (s *Sink) enqueue(j job) {
	if s.closed {
		return
	}
	select {
	case s.jobs <- j:
	default:
		s.metrics.RecordUtteranceDropped("queue_full")
		s.logger.Warn().Str("key", j.key).Bool("final", j.final).Msg("Publish queue full, event dropped")
	}
}

func (s *Sink) worker() {
	defer s.wg.Done()
	for j := range s.jobs {
		if s.validator != nil {
			if err := s.validator.Validate(j.event); err != nil {
				s.logger.Error().Err(err).Str("key", j.key).Msg("Event failed validation")
				continue
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PublishTimeout)
		var err error
		if j.final {
			err = s.pub.PublishFinal(ctx, j.key, j.event)
		} else {
			err = s.pub.PublishPartial(ctx, j.key, j.event)
		}
		cancel()
		if err != nil {
			s.logger.Error().Err(err).Str("key", j.key).Bool("final", j.final).Msg("Failed to publish transcript")
		}
	}
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

var _ dictation.EventSink = (*Sink)(nil)
