// ABOUTME: WebSocket connection wrapper with a single-writer send queue
// ABOUTME: Implements hub.Conn; all socket writes go through the write pump

package ws

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeWait is the deadline for a single socket write.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before the read
	// loop gives up on it. Pings go out at pingPeriod to keep it alive.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds inbound control events. Chat messages travel
	// over the REST surface, so client events stay small.
	maxMessageSize = 4096

	// sendBufferSize is the per-connection outbound queue. A connection
	// that falls this far behind starts dropping events.
	sendBufferSize = 64
)

// ErrConnClosed is returned by Send after the connection has shut down.
var ErrConnClosed = errors.New("connection closed")

// ErrSendBufferFull is returned by Send when the outbound queue is full.
var ErrSendBufferFull = errors.New("send buffer full")

// envelope is the wire shape of every server-to-client event
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Connection wraps a websocket session. Writes are serialized through a
// single pump goroutine; Send only enqueues and never blocks.
type Connection struct {
	id     string
	socket *websocket.Conn
	send   chan envelope
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

func newConnection(socket *websocket.Conn, logger *slog.Logger) *Connection {
	id := uuid.New().String()
	return &Connection{
		id:     id,
		socket: socket,
		send:   make(chan envelope, sendBufferSize),
		done:   make(chan struct{}),
		logger: logger.With("conn_id", id),
	}
}

// ID returns the connection's ephemeral identifier.
func (c *Connection) ID() string { return c.id }

// Send enqueues an event for delivery. Never blocks: a closed connection or
// a full queue returns an error, and the caller decides whether that matters.
func (c *Connection) Send(event string, payload any) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- envelope{Event: event, Data: payload}:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSendBufferFull
	}
}

// writePump is the single writer goroutine for the socket. It drains the
// send queue and keeps the session alive with periodic pings.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case env := <-c.send:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteJSON(env); err != nil {
				c.logger.Debug("write failed", "error", err)
				c.close()
				return
			}
		case <-ticker.C:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// close shuts the connection down exactly once. Safe to call from either
// pump or from the handler.
func (c *Connection) close() {
	c.once.Do(func() {
		close(c.done)
		c.socket.Close()
	})
}

// Close tears down the connection. Safe to call repeatedly.
func (c *Connection) Close() error {
	c.close()
	return nil
}
