// Package server exposes the capture controller over a websocket: JSON
// commands in, JSON responses and pushed capture events out.
package server

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/utterly-ai/utterly/pkg/bus"
	"github.com/utterly-ai/utterly/pkg/capture"
	"github.com/utterly-ai/utterly/pkg/device"
)

// forwardedEvents are the bus events pushed to every connected client.
var forwardedEvents = []bus.EventType{
	bus.EventCaptureStarted,
	bus.EventSpeechStart,
	bus.EventSpeechDetected,
	bus.EventSpeechDiscarded,
	bus.EventEncodingError,
	bus.EventContinuousStarted,
	bus.EventRecordingProgress,
	bus.EventContinuousStopped,
	bus.EventCaptureStopped,
}

// eventBufferSize must absorb a burst of utterances while a client's
// socket is slow; overflow drops events rather than stalling capture.
const eventBufferSize = 256

// DeviceDirectory answers device queries for the command handlers.
// *device.Manager is the production implementation.
type DeviceDirectory interface {
	ListInputs() ([]device.Info, error)
	ListOutputs() ([]device.Info, error)
	CheckAccess() bool
	DefaultSampleRate() uint32
}

// Config holds the server configuration.
type Config struct {
	// Addr is the address to listen on (e.g., "127.0.0.1:8098").
	Addr string

	// Path is the websocket endpoint path.
	Path string

	// AuthToken is the bearer token for authentication.
	// If empty, authentication is disabled.
	AuthToken string

	// ReadBufferSize is the websocket read buffer size.
	ReadBufferSize int

	// WriteBufferSize is the websocket write buffer size.
	WriteBufferSize int
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:            "127.0.0.1:8098",
		Path:            "/v1/capture",
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
}

// Server is the websocket capture server.
type Server struct {
	config     *Config
	controller *capture.Controller
	devices    DeviceDirectory
	bus        bus.Bus
	log        zerolog.Logger

	httpServer *http.Server
	mux        *http.ServeMux
	upgrader   websocket.Upgrader
	routeOnce  sync.Once

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a server. A nil config uses DefaultConfig.
func New(config *Config, controller *capture.Controller, devices DeviceDirectory, b bus.Bus, log zerolog.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		config:     config,
		controller: controller,
		devices:    devices,
		bus:        b,
		log:        log.With().Str("component", "server").Logger(),
		mux:        http.NewServeMux(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true // local control socket, origin is meaningless
			},
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Handler returns the HTTP handler, for mounting on an external server or
// an httptest instance.
func (s *Server) Handler() http.Handler {
	s.registerRoutes()
	return s.mux
}

func (s *Server) registerRoutes() {
	s.routeOnce.Do(func() {
		s.mux.HandleFunc(s.config.Path, s.handleWebSocket)
	})
}

// Start begins listening. It returns once the listener is up or has
// failed immediately.
func (s *Server) Start(ctx context.Context) error {
	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:    s.config.Addr,
		Handler: s.mux,
	}

	s.log.Info().Str("addr", s.config.Addr).Str("path", s.config.Path).Msg("server starting")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.cancel()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// handleWebSocket upgrades the connection and runs the read loop and the
// event forwarder for its lifetime.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.config.AuthToken != "" {
		authHeader := r.Header.Get("Authorization")
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if !strings.HasPrefix(authHeader, "Bearer ") || token != s.config.AuthToken {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	s.log.Info().Str("remote", r.RemoteAddr).Msg("client connected")

	events := make(chan bus.Event, eventBufferSize)
	for _, typ := range forwardedEvents {
		s.bus.Subscribe(typ, events)
	}

	// outbound serializes all writes; gorilla allows one writer at a time.
	outbound := make(chan any, eventBufferSize)
	connCtx, connCancel := context.WithCancel(s.ctx)
	defer connCancel()

	go s.writePump(connCtx, conn, outbound, events)

	defer func() {
		for _, typ := range forwardedEvents {
			s.bus.Unsubscribe(typ, events)
		}
		conn.Close()
		s.log.Info().Str("remote", r.RemoteAddr).Msg("client disconnected")
	}()

	for {
		select {
		case <-connCtx.Done():
			return
		default:
		}

		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Msg("websocket read error")
			}
			return
		}

		resp := s.dispatch(req)
		select {
		case outbound <- resp:
		case <-connCtx.Done():
			return
		}
	}
}

// writePump is the single writer for one connection.
func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, outbound <-chan any, events <-chan bus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-outbound:
			if err := conn.WriteJSON(msg); err != nil {
				s.log.Warn().Err(err).Msg("websocket write error")
				return
			}
		case evt := <-events:
			if err := conn.WriteJSON(eventMessage(evt)); err != nil {
				s.log.Warn().Err(err).Msg("websocket write error")
				return
			}
		}
	}
}
