// Package dictation merges live speech recognition results into a
// user-editable text buffer.
//
// A Synchronizer owns at most one active capture Session against a
// RenderTarget. Results are either written over the whole buffer (the buffer
// was empty when capture began) or spliced in at a remembered anchor. Any
// direct user interaction with the buffer ends capture immediately, and every
// event that arrives for a session that is no longer active is discarded.
package dictation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"voice-scribe-service/internal/observability/logging"
	"voice-scribe-service/internal/observability/metrics"
	"voice-scribe-service/internal/service/recognizer"
)

// Limits bounds a single capture session. Zero values disable a limit.
type Limits struct {
	MaxDuration time.Duration
	MaxResults  int
}

// DefaultLimits returns sensible default limits.
func DefaultLimits() Limits {
	return Limits{
		MaxDuration: 10 * time.Minute,
		MaxResults:  5000,
	}
}

// Config controls merge behavior.
type Config struct {
	// MergeInterim applies interim results as they arrive. When false only
	// final results touch the buffer.
	MergeInterim bool
	Limits       Limits
}

// DefaultConfig returns the default synchronizer configuration.
func DefaultConfig() Config {
	return Config{
		MergeInterim: true,
		Limits:       DefaultLimits(),
	}
}

// Synchronizer merges a recognition event stream into a render target.
type Synchronizer struct {
	source  recognizer.Source
	target  RenderTarget
	sink    EventSink
	sched   Scheduler
	ticks   *tickQueue
	cfg     Config
	metrics *metrics.Metrics
	logger  zerolog.Logger
	newID   func() string
	now     func() time.Time

	supportOnce sync.Once
	supportErr  error

	mu           sync.Mutex
	session      *Session
	interactions uint64

	// notifyMu is taken before mu is released and held while the sink runs,
	// so notifications keep the order of the transitions under mu.
	notifyMu sync.Mutex
}

// New creates a synchronizer whose deferred caret moves run on its own Run loop.
func New(source recognizer.Source, target RenderTarget, sink EventSink, cfg Config) *Synchronizer {
	q := newTickQueue()
	s := NewWithScheduler(source, target, sink, cfg, q)
	s.ticks = q
	return s
}

// NewWithScheduler creates a synchronizer that defers caret moves through sched.
// A target implementing InterruptibleTarget is attached to the synchronizer.
func NewWithScheduler(source recognizer.Source, target RenderTarget, sink EventSink, cfg Config, sched Scheduler) *Synchronizer {
	if sink == nil {
		sink = NopSink{}
	}
	s := &Synchronizer{
		source:  source,
		target:  target,
		sink:    sink,
		sched:   sched,
		cfg:     cfg,
		metrics: metrics.DefaultMetrics,
		logger:  logging.WithComponent("synchronizer"),
		newID:   uuid.NewString,
		now:     time.Now,
	}
	if it, ok := target.(InterruptibleTarget); ok {
		it.SetInterrupter(s)
	}
	return s
}

// Supported reports whether the recognition source is usable. The first
// failure is reported to the sink once; later calls return the cached result.
func (s *Synchronizer) Supported() error {
	s.supportOnce.Do(func() {
		s.supportErr = probe(s.source)
		if s.supportErr != nil {
			s.logger.Warn().Err(s.supportErr).Msg("Speech recognition unsupported")
			s.sink.CaptureFailed(&CaptureError{Kind: KindUnsupported, Err: s.supportErr})
		}
	})
	return s.supportErr
}

func probe(source recognizer.Source) error {
	if source == nil {
		return ErrUnsupported
	}
	if p, ok := source.(recognizer.Prober); ok {
		if err := p.Supported(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
	}
	return nil
}

// BeginCapture starts a capture session at the target's current caret. The
// caret left by the last user interaction is the anchor for the next session.
func (s *Synchronizer) BeginCapture(ctx context.Context, languageTag string) error {
	if err := s.Supported(); err != nil {
		return &CaptureError{Kind: KindUnsupported, Err: err}
	}

	s.mu.Lock()
	if s.session != nil && s.session.active {
		s.mu.Unlock()
		return ErrCaptureActive
	}

	length := utf8.RuneCountInString(s.target.Content())
	id := s.newID()
	sess := &Session{
		ID:             id,
		LanguageTag:    languageTag,
		IsInitial:      length == 0,
		AnchorPosition: clamp(s.target.Caret(), 0, length),
		StartedAt:      s.now(),
		active:         true,
		logger:         logging.WithSession(s.logger, id, languageTag),
	}

	if err := s.source.Start(ctx, sess.ID, languageTag); err != nil {
		s.notifyMu.Lock()
		s.mu.Unlock()
		defer s.notifyMu.Unlock()

		cerr := &CaptureError{
			Kind:      KindStart,
			SessionID: sess.ID,
			Reason:    recognizer.ReasonOf(err),
			Err:       err,
		}
		s.metrics.RecordCaptureStartFailed(string(cerr.Reason))
		sess.logger.Warn().
			Err(err).
			Str("reason", string(cerr.Reason)).
			Msg("Recognizer rejected start request")
		s.sink.CaptureFailed(cerr)
		return cerr
	}
	s.session = sess
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.metrics.RecordCaptureStarted(languageTag, sess.Mode().String())
	sess.logger.Info().
		Str("mode", sess.Mode().String()).
		Int("anchor", sess.AnchorPosition).
		Msg("Capture started")
	s.notifyState(sess, StateActive, ReasonStarted)
	return nil
}

// OnRecognitionResult merges a result into the buffer. It returns false when
// the result was discarded.
func (s *Synchronizer) OnRecognitionResult(sessionID, text string, isFinal bool) bool {
	s.mu.Lock()
	sess := s.current(sessionID)
	if sess == nil {
		s.mu.Unlock()
		s.metrics.RecordResultDiscarded("stale")
		s.logger.Debug().Str("sessionId", sessionID).Bool("final", isFinal).Msg("Result ignored: no active session")
		return false
	}
	if !isFinal && !s.cfg.MergeInterim {
		s.mu.Unlock()
		s.metrics.RecordResultDiscarded("interim_disabled")
		return false
	}
	if limit := s.exceededLimit(sess); limit != "" {
		sess.active = false
		stopErr := s.source.Stop()
		s.notifyMu.Lock()
		s.mu.Unlock()
		defer s.notifyMu.Unlock()

		s.metrics.RecordLimitExceeded(limit)
		s.logStop(sess, stopErr)
		cerr := &CaptureError{
			Kind:      KindLimit,
			SessionID: sess.ID,
			Reason:    recognizer.ReasonCaptureLimit,
			Err:       fmt.Errorf("%s limit exceeded", limit),
		}
		s.sink.CaptureFailed(cerr)
		s.ended(sess, ReasonLimit)
		return false
	}
	sess.results++

	merge := s.apply(sess, text, isFinal)
	gen := s.interactions
	s.sched.Defer(func() { s.moveCaret(gen, merge.Caret) })
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.metrics.RecordResultMerged(merge.Mode.String(), isFinal)
	s.sink.TranscriptMerged(merge)
	return true
}

// apply must be called with s.mu held.
func (s *Synchronizer) apply(sess *Session, text string, isFinal bool) Merge {
	content := s.target.Content()
	merge := Merge{
		SessionID:   sess.ID,
		LanguageTag: sess.LanguageTag,
		Mode:        sess.Mode(),
		Text:        text,
		IsFinal:     isFinal,
		At:          s.now(),
	}

	var updated string
	if sess.IsInitial {
		updated = text
		merge.Delta = text
		sess.AnchorPosition = utf8.RuneCountInString(text)
	} else {
		delta := text
		if strings.HasPrefix(text, sess.LastAppliedText) {
			delta = text[len(sess.LastAppliedText):]
		}
		runes := []rune(content)
		anchor := clamp(sess.AnchorPosition, 0, len(runes))
		updated = string(runes[:anchor]) + delta + string(runes[anchor:])

		merge.Delta = delta
		merge.Anchor = anchor
		sess.AnchorPosition = anchor + utf8.RuneCountInString(delta)
		sess.LastAppliedText = text
	}
	if isFinal {
		sess.LastAppliedText = ""
	}
	merge.Caret = sess.AnchorPosition

	if updated != content {
		s.target.SetContent(updated)
	}
	return merge
}

// moveCaret runs on a later tick. It is dropped if the user touched the
// buffer after it was scheduled.
func (s *Synchronizer) moveCaret(gen uint64, offset int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.interactions {
		return
	}
	s.target.SetCaret(offset)
}

// Interrupt records a direct user edit. An active session is stopped
// unconditionally, then applyEdit runs while the synchronizer is still locked,
// so no result can be merged between the stop and the edit. applyEdit may be
// nil when the edit already happened. It returns true if a session was stopped.
func (s *Synchronizer) Interrupt(kind EditKind, applyEdit func()) bool {
	s.mu.Lock()
	s.interactions++
	sess := s.session
	stopped := sess != nil && sess.active
	var stopErr error
	if stopped {
		sess.active = false
		stopErr = s.source.Stop()
	}
	if applyEdit != nil {
		applyEdit()
	}
	if !stopped {
		s.mu.Unlock()
		return false
	}
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.logStop(sess, stopErr)
	s.metrics.RecordUserInterruption(string(kind))
	sess.logger.Info().
		Str("kind", string(kind)).
		Msg("Capture stopped by user interaction")
	s.ended(sess, ReasonInterrupted)
	return true
}

// OnUserInteraction reports an edit that has already been applied to the
// target. It returns true if a session was stopped.
func (s *Synchronizer) OnUserInteraction(kind EditKind) bool {
	return s.Interrupt(kind, nil)
}

// EndCapture stops the active session on request. Calling it when no session
// is active is a no-op.
func (s *Synchronizer) EndCapture() {
	s.mu.Lock()
	sess := s.session
	if sess == nil || !sess.active {
		s.mu.Unlock()
		return
	}
	sess.active = false
	stopErr := s.source.Stop()
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.logStop(sess, stopErr)
	s.ended(sess, ReasonStopped)
}

// OnRecognitionError ends the session and surfaces the mapped message.
// Text merged so far stays in the buffer. Errors for stale sessions are
// discarded and nil is returned.
func (s *Synchronizer) OnRecognitionError(sessionID string, reason recognizer.Reason) *CaptureError {
	s.mu.Lock()
	sess := s.current(sessionID)
	if sess == nil {
		s.mu.Unlock()
		s.logger.Debug().Str("sessionId", sessionID).Str("reason", string(reason)).Msg("Error ignored: no active session")
		return nil
	}
	sess.active = false
	stopErr := s.source.Stop()
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.logStop(sess, stopErr)
	cerr := &CaptureError{Kind: KindSession, SessionID: sess.ID, Reason: reason}
	s.metrics.RecordRecognizerError(string(reason))
	sess.logger.Warn().
		Str("reason", string(reason)).
		Msg("Recognizer error, capture ended")
	s.sink.CaptureFailed(cerr)
	s.ended(sess, ReasonFailed)
	return cerr
}

// OnRecognitionEnd handles the recognizer's end-of-stream. It returns true if
// the current session was ended by it.
func (s *Synchronizer) OnRecognitionEnd(sessionID string) bool {
	s.mu.Lock()
	sess := s.current(sessionID)
	if sess == nil {
		s.mu.Unlock()
		return false
	}
	sess.active = false
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.ended(sess, ReasonEnded)
	return true
}

// Dispatch routes a source event to the matching handler.
func (s *Synchronizer) Dispatch(ev recognizer.Event) {
	switch ev.Kind {
	case recognizer.KindResult:
		s.OnRecognitionResult(ev.SessionID, ev.Text, ev.IsFinal)
	case recognizer.KindError:
		s.OnRecognitionError(ev.SessionID, ev.Reason)
	case recognizer.KindEnd:
		s.OnRecognitionEnd(ev.SessionID)
	default:
		s.logger.Warn().Str("kind", ev.Kind.String()).Msg("Unknown recognizer event")
	}
}

// Run is the synchronizer's event loop. It processes recognizer events, user
// edits and deferred ticks one at a time until ctx is done. Queued user edits
// are always handled before the next recognizer event or tick. Any active
// session is ended on return.
func (s *Synchronizer) Run(ctx context.Context) error {
	var events <-chan recognizer.Event
	if s.source != nil {
		events = s.source.Events()
	}
	edits := s.target.Edits()
	var ticks <-chan func()
	if s.ticks != nil {
		ticks = s.ticks.ch
	}

	for {
		select {
		case <-ctx.Done():
			s.EndCapture()
			return ctx.Err()
		case ev, ok := <-events:
			edits = s.drainEdits(edits)
			if !ok {
				events = nil
				s.OnRecognitionEnd("")
				continue
			}
			s.Dispatch(ev)
		case edit, ok := <-edits:
			if !ok {
				edits = nil
				continue
			}
			s.OnUserInteraction(edit.Kind)
		case fn := <-ticks:
			edits = s.drainEdits(edits)
			fn()
		}
	}
}

// drainEdits handles every edit already queued without blocking. It returns
// nil once the channel is closed.
func (s *Synchronizer) drainEdits(edits <-chan UserEdit) <-chan UserEdit {
	for {
		select {
		case edit, ok := <-edits:
			if !ok {
				return nil
			}
			s.OnUserInteraction(edit.Kind)
		default:
			return edits
		}
	}
}

// Session returns a copy of the most recent session, if any.
func (s *Synchronizer) Session() (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return Session{}, false
	}
	return *s.session, true
}

// Active reports whether a capture session is active.
func (s *Synchronizer) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil && s.session.active
}

// current must be called with s.mu held.
func (s *Synchronizer) current(sessionID string) *Session {
	if s.session == nil || !s.session.active {
		return nil
	}
	if sessionID != "" && sessionID != s.session.ID {
		return nil
	}
	return s.session
}

// exceededLimit must be called with s.mu held.
func (s *Synchronizer) exceededLimit(sess *Session) string {
	limits := s.cfg.Limits
	if limits.MaxResults > 0 && sess.results >= limits.MaxResults {
		return "results"
	}
	if limits.MaxDuration > 0 && s.now().Sub(sess.StartedAt) > limits.MaxDuration {
		return "duration"
	}
	return ""
}

func (s *Synchronizer) ended(sess *Session, reason StateReason) {
	s.metrics.RecordCaptureEnded(string(reason), s.now().Sub(sess.StartedAt).Seconds())
	sess.logger.Info().
		Str("reason", string(reason)).
		Msg("Capture ended")
	s.notifyState(sess, StateInactive, reason)
}

func (s *Synchronizer) notifyState(sess *Session, state State, reason StateReason) {
	s.sink.CaptureStateChanged(StateChange{
		SessionID:   sess.ID,
		LanguageTag: sess.LanguageTag,
		State:       state,
		Reason:      reason,
		At:          s.now(),
	})
}

func (s *Synchronizer) logStop(sess *Session, err error) {
	if err == nil {
		return
	}
	sess.logger.Warn().
		Err(err).
		Msg("Failed to stop recognizer cleanly")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
