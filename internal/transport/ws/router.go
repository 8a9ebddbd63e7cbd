package ws

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"shellbridge/internal/platform/logging"
)

const logTag = "WS"

// HandlerBuilder creates a session handler for an upgraded connection.
type HandlerBuilder func(conn *Connection, req *http.Request) (SessionHandler, error)

// Router upgrades HTTP connections to websocket sessions.
type Router struct {
	hub    *Hub
	logger *logging.Logger

	upgrader         *websocket.Upgrader
	handshakeTimeout time.Duration
	builder          atomic.Value // HandlerBuilder
}

// RouterOptions configures the websocket router.
type RouterOptions struct {
	HandshakeTimeout time.Duration
	CheckOrigin      func(r *http.Request) bool
}

// NewRouter constructs a websocket router.
func NewRouter(hub *Hub, logger *logging.Logger, opts RouterOptions) *Router {
	upgrader := &websocket.Upgrader{
		CheckOrigin: opts.CheckOrigin,
	}
	if upgrader.CheckOrigin == nil {
		upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}

	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Router{
		hub:              hub,
		logger:           logger,
		upgrader:         upgrader,
		handshakeTimeout: timeout,
	}
}

// SetHandlerBuilder registers the builder invoked after each upgrade.
func (r *Router) SetHandlerBuilder(builder HandlerBuilder) {
	r.builder.Store(builder)
}

// Handle upgrades the HTTP connection and launches a websocket session.
func (r *Router) Handle(w http.ResponseWriter, req *http.Request) {
	value := r.builder.Load()
	if value == nil {
		http.Error(w, "websocket handler not ready", http.StatusServiceUnavailable)
		return
	}
	builder := value.(HandlerBuilder)

	handshakeCtx, cancel := context.WithTimeoutCause(req.Context(), r.handshakeTimeout, ErrHandshakeTimeout)
	defer cancel()
	req = req.WithContext(handshakeCtx)

	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.ErrorTag(logTag, "handshake failed: %v", err)
		return
	}

	clientID := resolveClientID(req)
	r.logger.InfoTag(logTag, "web view connected client=%s", clientID)

	wsConn := NewConnection(clientID, conn)
	handler, err := builder(wsConn, req)
	if err != nil || handler == nil {
		r.logger.ErrorTag(logTag, "session handler creation failed: %v", err)
		_ = wsConn.Close()
		return
	}

	session := NewSession(context.Background(), handler, wsConn, r.logger)
	r.hub.Register(session)

	go session.Run(func(runErr error) {
		r.hub.Unregister(session.ID())
		if runErr != nil {
			r.logger.WarnTag(logTag, "session %s ended abnormally: %v", session.ID(), runErr)
		} else {
			r.logger.InfoTag(logTag, "session %s closed", session.ID())
		}
	})
}

func resolveClientID(req *http.Request) string {
	if id := req.Header.Get("Client-Id"); id != "" {
		return id
	}
	if id := req.URL.Query().Get("client-id"); id != "" {
		return id
	}
	return uuid.NewString()
}
