// Package google provides a recognition source backed by Google Cloud Speech-to-Text.
package google

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"voice-scribe-service/internal/observability/logging"
	"voice-scribe-service/internal/observability/metrics"
	"voice-scribe-service/internal/service/recognizer"
)

// ErrNotStarted is returned by SendAudio when no stream is open.
var ErrNotStarted = errors.New("google: recognition stream not started")

const eventBufferSize = 64

// Config holds configuration for the Google STT source.
type Config struct {
	LanguageCode   string // Fallback BCP-47 tag when Start gets none
	SampleRateHz   int32  // Audio sample rate in Hz
	InterimResults bool   // Whether to return interim results
	AudioEncoding  string // Audio encoding (LINEAR16, MULAW, etc.)
	Punctuation    bool   // Automatic punctuation
}

// DefaultConfig returns sensible defaults for dictation audio.
func DefaultConfig() Config {
	return Config{
		LanguageCode:   "en-US",
		SampleRateHz:   16000,
		InterimResults: true,
		AudioEncoding:  "LINEAR16",
		Punctuation:    true,
	}
}

// Source implements recognizer.Source using a streaming recognize call.
// Audio is pushed with SendAudio while a session is active.
type Source struct {
	client  *speech.Client
	cfg     Config
	events  chan recognizer.Event
	done    chan struct{}
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu        sync.Mutex
	stream    speechpb.Speech_StreamingRecognizeClient
	cancel    context.CancelFunc
	sessionID string
	startedAt time.Time
	closeOnce sync.Once
}

// New creates a new Google STT source.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, cfg Config) (*Source, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return newSource(c, cfg), nil
}

func newSource(c *speech.Client, cfg Config) *Source {
	return &Source{
		client:  c,
		cfg:     cfg,
		events:  make(chan recognizer.Event, eventBufferSize),
		done:    make(chan struct{}),
		metrics: metrics.DefaultMetrics,
		logger:  logging.WithComponent("google-stt"),
	}
}

// Supported reports whether a client is available.
func (s *Source) Supported() error {
	if s.client == nil {
		return recognizer.ErrUnavailable
	}
	return nil
}

// Events returns the recognition event stream.
func (s *Source) Events() <-chan recognizer.Event {
	return s.events
}

// Start opens a streaming session and sends the recognition config.
func (s *Source) Start(ctx context.Context, sessionID, languageTag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		return &recognizer.Error{Reason: recognizer.ReasonAborted, Err: errors.New("stream already active")}
	}

	streamCtx, cancel := context.WithCancel(ctx)
	stream, err := s.client.StreamingRecognize(streamCtx)
	if err != nil {
		cancel()
		return &recognizer.Error{Reason: reasonFromStatus(err), Err: err}
	}

	// Send streaming config as the first message
	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: s.streamingConfig(languageTag),
		},
	}); err != nil {
		cancel()
		return &recognizer.Error{Reason: reasonFromStatus(err), Err: err}
	}

	s.stream = stream
	s.cancel = cancel
	s.sessionID = sessionID
	s.startedAt = time.Now()
	s.metrics.RecordStreamStart(metrics.Outbound)

	go s.listen(stream, sessionID)
	return nil
}

func (s *Source) streamingConfig(languageTag string) *speechpb.StreamingRecognitionConfig {
	lang := languageTag
	if lang == "" {
		lang = s.cfg.LanguageCode
	}
	return &speechpb.StreamingRecognitionConfig{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   parseAudioEncoding(s.cfg.AudioEncoding),
			SampleRateHertz:            s.cfg.SampleRateHz,
			LanguageCode:               lang,
			EnableAutomaticPunctuation: s.cfg.Punctuation,
		},
		InterimResults: s.cfg.InterimResults,
	}
}

// parseAudioEncoding converts a string encoding name to the protobuf enum.
func parseAudioEncoding(encoding string) speechpb.RecognitionConfig_AudioEncoding {
	switch encoding {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "AMR":
		return speechpb.RecognitionConfig_AMR
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_LINEAR16
	}
}

// SendAudio sends audio bytes to the active stream.
func (s *Source) SendAudio(ctx context.Context, audio []byte) error {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()

	if stream == nil {
		return ErrNotStarted
	}
	return stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: audio,
		},
	})
}

// Stop half-closes the stream and cancels it. Results still in flight are
// delivered with the old session id and dropped by the synchronizer.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return nil
	}
	err := s.stream.CloseSend()
	s.cancel()
	s.stream = nil
	s.cancel = nil
	return err
}

// Close stops any session and releases the client.
func (s *Source) Close() error {
	stopErr := s.Stop()
	s.closeOnce.Do(func() { close(s.done) })
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			return err
		}
	}
	return stopErr
}

// listen receives responses until the stream ends. Runs in its own goroutine.
func (s *Source) listen(stream speechpb.Speech_StreamingRecognizeClient, sessionID string) {
	for {
		resp, err := stream.Recv()
		if err != nil {
			s.finish(sessionID, err)
			return
		}
		if resp.Error != nil && resp.Error.Code != int32(codes.OK) {
			s.finish(sessionID, status.ErrorProto(resp.Error))
			return
		}
		if text, final, ok := transcriptOf(resp); ok {
			s.emit(recognizer.Event{
				Kind:       recognizer.KindResult,
				SessionID:  sessionID,
				Text:       text,
				IsFinal:    final,
				Confidence: confidenceOf(resp),
			})
		}
	}
}

func (s *Source) finish(sessionID string, err error) {
	s.mu.Lock()
	elapsed := time.Since(s.startedAt).Seconds()
	stopped := s.sessionID != sessionID || s.stream == nil
	if !stopped {
		s.stream = nil
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	clean := errors.Is(err, io.EOF) || (stopped && status.Code(err) == codes.Canceled)
	s.metrics.RecordStreamEnd(metrics.Outbound, clean, elapsed)
	if clean {
		s.emit(recognizer.End(sessionID))
		return
	}

	reason := reasonFromStatus(err)
	s.logger.Warn().Err(err).Str("sessionId", sessionID).Str("reason", string(reason)).Msg("Recognition stream failed")
	s.emit(recognizer.Failure(sessionID, reason))
	s.emit(recognizer.End(sessionID))
}

func (s *Source) emit(ev recognizer.Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// transcriptOf folds a response into the utterance's current transcript.
// A final result wins; otherwise the interim pieces are joined.
func transcriptOf(resp *speechpb.StreamingRecognizeResponse) (string, bool, bool) {
	var interim strings.Builder
	found := false
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		alt := r.Alternatives[0]
		if r.IsFinal {
			return alt.Transcript, true, true
		}
		interim.WriteString(alt.Transcript)
		found = true
	}
	return interim.String(), false, found
}

func confidenceOf(resp *speechpb.StreamingRecognizeResponse) float64 {
	for _, r := range resp.Results {
		if r.IsFinal && len(r.Alternatives) > 0 {
			return float64(r.Alternatives[0].Confidence)
		}
	}
	return 0
}

// reasonFromStatus maps gRPC status codes onto the recognizer vocabulary.
func reasonFromStatus(err error) recognizer.Reason {
	st, ok := status.FromError(err)
	if !ok {
		return recognizer.ReasonUnknown
	}
	switch st.Code() {
	case codes.Canceled:
		return recognizer.ReasonAborted
	case codes.Unavailable, codes.DeadlineExceeded:
		return recognizer.ReasonNetwork
	case codes.PermissionDenied, codes.Unauthenticated, codes.ResourceExhausted:
		return recognizer.ReasonServiceNotAllowed
	case codes.OutOfRange:
		// Streams are capped server side at roughly five minutes.
		return recognizer.ReasonCaptureLimit
	case codes.InvalidArgument:
		if strings.Contains(strings.ToLower(st.Message()), "language") {
			return recognizer.ReasonLanguageNotSupported
		}
		return recognizer.ReasonBadGrammar
	default:
		return recognizer.ReasonUnknown
	}
}
