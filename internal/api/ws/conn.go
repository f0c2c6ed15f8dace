package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"voice-scribe-service/internal/languages"
	"voice-scribe-service/internal/observability/logging"
	"voice-scribe-service/internal/service/dictation"
	"voice-scribe-service/internal/service/recognizer"
	"voice-scribe-service/internal/service/recognizer/remote"
	"voice-scribe-service/internal/settings"
)

const (
	writeWait      = 10 * time.Second
	helloWait      = 10 * time.Second
	maxMessageSize = 1 << 20
)

var errExpectedHello = errors.New("first message must be hello")

// AudioReceiver is implemented by server-side sources that consume the
// client's binary audio frames.
type AudioReceiver interface {
	SendAudio(ctx context.Context, audio []byte) error
}

// conn is one dictation client. It owns a synchronizer whose render target
// mirrors the client's text box.
type conn struct {
	id     string
	ws     *websocket.Conn
	deps   Deps
	logger zerolog.Logger

	writeMu sync.Mutex

	mirror       *mirror
	source       recognizer.Source
	remote       *remote.Source
	synchronizer *dictation.Synchronizer

	// Touched only by the read loop.
	language string
}

func newConn(id string, ws *websocket.Conn, deps Deps) *conn {
	return &conn{
		id:     id,
		ws:     ws,
		deps:   deps,
		logger: logging.WithConnection(id),
	}
}

func (c *conn) send(msg Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(msg); err != nil {
		c.logger.Debug().Err(err).Str("type", msg.Type).Msg("Write failed")
		return err
	}
	return nil
}

// serve runs the connection until the client goes away or ctx is done.
func (c *conn) serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hello, err := c.readHello()
	if err != nil {
		c.send(errorMessage("", "", err.Error()))
		return err
	}

	src, err := c.deps.NewSource(ctx, c)
	if err != nil {
		c.send(errorMessage("", "", recognizer.UnsupportedMessage))
		return fmt.Errorf("create recognition source: %w", err)
	}
	defer closeSource(src)
	c.source = src
	if rs, ok := src.(*remote.Source); ok {
		c.remote = rs
		rs.SetSupported(hello.Supported != nil && *hello.Supported)
	}

	c.mirror = newMirror(c.send, hello.Content, hello.Caret)

	sinks := dictation.MultiSink{c}
	if c.deps.Sink != nil {
		sinks = append(sinks, c.deps.Sink)
	}
	c.synchronizer = dictation.New(src, c.mirror, sinks, c.deps.Config)

	prefs := c.loadSettings(ctx)
	supported := c.synchronizer.Supported() == nil
	if err := c.send(Envelope{
		Type:      TypeReady,
		Supported: &supported,
		Languages: languages.Options,
		Settings:  &prefs,
	}); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := c.synchronizer.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return c.readLoop(gctx)
	})
	g.Go(func() error {
		// Unblocks the read loop on shutdown.
		<-gctx.Done()
		c.ws.Close()
		return nil
	})
	return g.Wait()
}

func (c *conn) readHello() (Envelope, error) {
	c.ws.SetReadDeadline(time.Now().Add(helloWait))
	defer c.ws.SetReadDeadline(time.Time{})

	var msg Envelope
	mt, data, err := c.ws.ReadMessage()
	if err != nil {
		return msg, err
	}
	if mt != websocket.TextMessage {
		return msg, errExpectedHello
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("decode hello: %w", err)
	}
	if msg.Type != TypeHello {
		return msg, errExpectedHello
	}
	return msg, nil
}

func (c *conn) readLoop(ctx context.Context) error {
	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		if mt == websocket.BinaryMessage {
			c.handleAudio(ctx, data)
			continue
		}

		var msg Envelope
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn().Err(err).Msg("Malformed message")
			c.send(errorMessage("", "", "malformed message"))
			continue
		}
		c.handle(ctx, msg)
	}
}

func (c *conn) handle(ctx context.Context, msg Envelope) {
	switch msg.Type {
	case TypeStart:
		c.handleStart(ctx, msg)
	case TypeStop:
		c.synchronizer.EndCapture()
	case TypeResult, TypeError, TypeEnd:
		c.deliver(ctx, msg)
	case TypeEdit:
		c.handleEdit(msg)
	case TypeLanguage:
		c.handleLanguage(ctx, msg)
	case TypeHello:
		c.logger.Debug().Msg("Repeated hello ignored")
	default:
		c.logger.Warn().Str("type", msg.Type).Msg("Unknown message type")
		c.send(errorMessage("", "", "unknown message type: "+msg.Type))
	}
}

func (c *conn) handleStart(ctx context.Context, msg Envelope) {
	lang, err := c.resolveLanguage(ctx, msg.Language)
	if err != nil {
		reason := recognizer.ReasonLanguageNotSupported
		c.logger.Info().Err(err).Str("language", msg.Language).Msg("Start rejected")
		c.send(errorMessage("", string(reason), reason.Message()))
		return
	}

	err = c.synchronizer.BeginCapture(ctx, lang)
	if err == nil {
		return
	}
	if errors.Is(err, dictation.ErrCaptureActive) {
		c.logger.Debug().Msg("Start ignored: capture already active")
		return
	}
	// Start failures reach the client through CaptureFailed; unsupported
	// was only reported once, so repeat it here.
	var cerr *dictation.CaptureError
	if errors.As(err, &cerr) && cerr.Kind == dictation.KindUnsupported {
		c.send(errorMessage("", "", cerr.Message()))
	}
}

func (c *conn) resolveLanguage(ctx context.Context, requested string) (string, error) {
	tag := requested
	if tag == "" {
		tag = c.language
	}
	if tag == "" {
		tag = c.loadSettings(ctx).Language
	}
	return languages.Normalize(tag)
}

// handleLanguage changes the default for the next capture. A session that is
// already running keeps its language.
func (c *conn) handleLanguage(ctx context.Context, msg Envelope) {
	tag, err := languages.Normalize(msg.Language)
	if err != nil {
		reason := recognizer.ReasonLanguageNotSupported
		c.send(errorMessage("", string(reason), reason.Message()))
		return
	}
	c.language = tag

	if c.deps.Settings == nil {
		return
	}
	prefs := c.loadSettings(ctx)
	prefs.Language = tag
	if err := c.deps.Settings.Save(ctx, prefs); err != nil {
		c.logger.Warn().Err(err).Str("language", tag).Msg("Failed to save language")
	}
}

// handleEdit runs on the read loop so the interaction is seen before any
// result the client sent after it. The mirror only takes the edit once the
// session is stopped.
func (c *conn) handleEdit(msg Envelope) {
	c.synchronizer.Interrupt(editKind(msg.Kind), func() {
		c.mirror.update(msg.Content, msg.Caret)
	})
}

func (c *conn) deliver(ctx context.Context, msg Envelope) {
	if c.remote == nil {
		c.logger.Debug().Str("type", msg.Type).Msg("Recognizer event ignored: recognition runs server side")
		return
	}

	var ev recognizer.Event
	switch msg.Type {
	case TypeResult:
		ev = recognizer.Result(msg.SessionID, msg.Text, msg.IsFinal)
	case TypeError:
		ev = recognizer.Failure(msg.SessionID, recognizer.ParseReason(msg.Reason))
	default:
		ev = recognizer.End(msg.SessionID)
	}
	if err := c.remote.Deliver(ctx, ev); err != nil && ctx.Err() == nil {
		c.logger.Warn().Err(err).Str("type", msg.Type).Msg("Failed to deliver recognizer event")
	}
}

func (c *conn) handleAudio(ctx context.Context, audio []byte) {
	rx, ok := c.source.(AudioReceiver)
	if !ok {
		return
	}
	if err := rx.SendAudio(ctx, audio); err != nil {
		c.logger.Debug().Err(err).Int("bytes", len(audio)).Msg("Audio frame not forwarded")
	}
}

func (c *conn) loadSettings(ctx context.Context) settings.Settings {
	if c.deps.Settings == nil {
		return settings.Defaults()
	}
	prefs, err := c.deps.Settings.Load(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to load settings, using defaults")
		return settings.Defaults()
	}
	return prefs
}

// RequestStart implements remote.Controller.
func (c *conn) RequestStart(ctx context.Context, sessionID, languageTag string) error {
	return c.send(Envelope{Type: TypeRecognizerStart, SessionID: sessionID, Language: languageTag})
}

// RequestStop implements remote.Controller.
func (c *conn) RequestStop(sessionID string) error {
	return c.send(Envelope{Type: TypeRecognizerStop, SessionID: sessionID})
}

func (c *conn) CaptureStateChanged(change dictation.StateChange) {
	c.send(Envelope{
		Type:      TypeState,
		SessionID: change.SessionID,
		State:     change.State.String(),
		Reason:    string(change.Reason),
	})
}

func (c *conn) TranscriptMerged(dictation.Merge) {}

func (c *conn) CaptureFailed(err *dictation.CaptureError) {
	c.send(errorMessage(err.SessionID, string(err.Reason), err.Message()))
}

func editKind(kind string) dictation.EditKind {
	switch k := dictation.EditKind(kind); k {
	case dictation.EditKey, dictation.EditPointer, dictation.EditPaste, dictation.EditSelect:
		return k
	default:
		return dictation.EditKey
	}
}

func closeSource(src recognizer.Source) {
	if c, ok := src.(io.Closer); ok {
		c.Close()
	}
}

var (
	_ remote.Controller   = (*conn)(nil)
	_ dictation.EventSink = (*conn)(nil)
)
