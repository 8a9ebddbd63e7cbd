package ws

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// Connection wraps one gorilla websocket connection to an embedded web
// view. Writes are serialized; reads happen on the session goroutine.
type Connection struct {
	id     string
	socket *websocket.Conn
	mu     sync.Mutex
	closed atomic.Bool
}

// NewConnection creates a tracked websocket connection.
func NewConnection(id string, socket *websocket.Conn) *Connection {
	return &Connection{
		id:     id,
		socket: socket,
	}
}

// SendJSON encodes and writes one outbound bridge message as a text
// frame. Fails when the connection is already closed; the caller drops
// the message in that case.
func (c *Connection) SendJSON(message interface{}) error {
	payload, err := sonic.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode outbound message: %w", err)
	}
	return c.WriteMessage(websocket.TextMessage, payload)
}

// WriteMessage sends a raw frame to the client.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("%w: %s", ErrConnectionClosed, c.id)
	}

	return c.socket.WriteMessage(messageType, data)
}

// ReadMessage receives one frame from the client.
func (c *Connection) ReadMessage() (int, []byte, error) {
	return c.socket.ReadMessage()
}

// Close terminates the underlying websocket connection.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.socket.Close()
}

// ID returns the connection identifier.
func (c *Connection) ID() string {
	return c.id
}
