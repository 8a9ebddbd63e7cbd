package ws

import "errors"

var (
	// ErrSessionShutdown marks a session closed by server shutdown.
	ErrSessionShutdown = errors.New("session shutdown")
	// ErrHandshakeTimeout marks an upgrade that exceeded its deadline.
	ErrHandshakeTimeout = errors.New("websocket handshake timeout")
	// ErrConnectionClosed marks a write against a closed connection.
	ErrConnectionClosed = errors.New("connection closed")
)
