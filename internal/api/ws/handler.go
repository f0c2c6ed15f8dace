// Package ws is the websocket gateway used by the browser extension. Each
// connection gets its own synchronizer: recognition runs either in the
// browser (events are relayed over the socket) or on the server (the client
// streams binary audio frames), and the buffer lives in the client's text box,
// mirrored on the server.
package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"voice-scribe-service/internal/observability/logging"
	"voice-scribe-service/internal/observability/metrics"
	"voice-scribe-service/internal/service/dictation"
	"voice-scribe-service/internal/service/recognizer"
	"voice-scribe-service/internal/service/recognizer/remote"
	"voice-scribe-service/internal/settings"
)

// SourceFactory creates the recognition source for one connection. ctrl
// forwards start and stop requests to the client when recognition runs in
// the browser.
type SourceFactory func(ctx context.Context, ctrl remote.Controller) (recognizer.Source, error)

// RemoteSources runs recognition in the client.
func RemoteSources(ctx context.Context, ctrl remote.Controller) (recognizer.Source, error) {
	return remote.New(ctrl), nil
}

// Deps are shared by every connection.
type Deps struct {
	Settings  settings.Provider
	NewSource SourceFactory
	// Sink also observes every connection's synchronizer. Optional.
	Sink   dictation.EventSink
	Config dictation.Config
	// AllowedOrigins restricts the Origin header. Empty allows any origin.
	AllowedOrigins []string
}

// Handler upgrades dictation requests to websocket connections.
type Handler struct {
	deps     Deps
	upgrader websocket.Upgrader
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHandler creates the gateway handler.
func NewHandler(deps Deps) *Handler {
	if deps.NewSource == nil {
		deps.NewSource = RemoteSources
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handler{
		deps:    deps,
		metrics: metrics.DefaultMetrics,
		logger:  logging.WithComponent("ws-gateway"),
		ctx:     ctx,
		cancel:  cancel,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.deps.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.deps.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		h.logger.Warn().Err(err).Str("remoteAddr", r.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}
	defer wsConn.Close()
	wsConn.SetReadLimit(maxMessageSize)

	h.wg.Add(1)
	defer h.wg.Done()
	h.metrics.RecordConnectionOpened()
	defer h.metrics.RecordConnectionClosed()

	c := newConn(uuid.NewString(), wsConn, h.deps)
	c.logger.Info().Str("remoteAddr", r.RemoteAddr).Msg("Dictation client connected")
	if err := c.serve(h.ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Dictation connection ended with error")
		return
	}
	c.logger.Info().Msg("Dictation client disconnected")
}

// Shutdown ends every open connection and waits for them to finish.
// Sessions still capturing are stopped.
func (h *Handler) Shutdown() {
	h.cancel()
	h.wg.Wait()
}
