// ABOUTME: WebSocket endpoint: upgrades, decodes client events, dispatches
// ABOUTME: Drives registry membership and presence from the push channel

package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/devsparki/OmniChat/internal/chat"
	"github.com/devsparki/OmniChat/internal/hub"
	"github.com/devsparki/OmniChat/internal/metrics"
)

// clientEvent is the wire shape of every client-to-server event
type clientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinPayload struct {
	ConversationID string `json:"conversation_id"`
}

type typingPayload struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Username       string `json:"username"`
}

// Handler serves the websocket endpoint. Each accepted socket becomes a
// Connection registered with the hub for the life of the transport session:
// Connected on upgrade, zero or more join/leave transitions, then a full
// membership purge when the read loop exits.
type Handler struct {
	registry  *hub.Registry
	presence  *chat.Presence
	upgrader  websocket.Upgrader
	eventRate rate.Limit
	burst     int
	logger    *slog.Logger
}

// NewHandler creates a websocket handler. eventsPerSecond/burst bound the
// inbound control-event rate per connection; zero values disable limiting.
func NewHandler(registry *hub.Registry, presence *chat.Presence, eventsPerSecond float64, burst int, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	eventRate := rate.Inf
	if eventsPerSecond > 0 {
		eventRate = rate.Limit(eventsPerSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &Handler{
		registry: registry,
		presence: presence,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is handled by the CORS layer in front; the
			// push channel accepts any origin the API accepts.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		eventRate: eventRate,
		burst:     burst,
		logger:    logger.With("component", "ws"),
	}
}

// ServeHTTP upgrades the request and runs the connection until it closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("upgrade failed", "error", err)
		return
	}

	conn := newConnection(socket, h.logger)
	h.registry.Register(conn)
	metrics.ActiveConnections.Inc()
	h.logger.Debug("client connected", "conn_id", conn.ID())

	go conn.writePump()
	h.readLoop(conn)

	// Transport closed: purge every membership in one step, then tear the
	// connection down. The user's persisted status is left untouched.
	h.registry.Disconnect(conn)
	conn.close()
	metrics.ActiveConnections.Dec()
	h.logger.Debug("client disconnected", "conn_id", conn.ID())
}

func (h *Handler) readLoop(conn *Connection) {
	socket := conn.socket
	socket.SetReadLimit(maxMessageSize)
	socket.SetReadDeadline(time.Now().Add(pongWait))
	socket.SetPongHandler(func(string) error {
		socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	limiter := rate.NewLimiter(h.eventRate, h.burst)

	for {
		_, data, err := socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("read failed", "conn_id", conn.ID(), "error", err)
			}
			return
		}

		if !limiter.Allow() {
			h.logger.Debug("event rate exceeded, dropping", "conn_id", conn.ID())
			continue
		}

		var event clientEvent
		if err := json.Unmarshal(data, &event); err != nil {
			h.logger.Debug("malformed client event", "conn_id", conn.ID(), "error", err)
			continue
		}

		h.dispatch(conn, event)
	}
}

func (h *Handler) dispatch(conn *Connection, event clientEvent) {
	switch event.Event {
	case "join_conversation":
		var p joinPayload
		if err := json.Unmarshal(event.Data, &p); err != nil || p.ConversationID == "" {
			return
		}
		h.registry.Join(conn, p.ConversationID)
		// Unicast ack to the joiner only
		if err := conn.Send("joined_conversation", joinPayload{ConversationID: p.ConversationID}); err != nil {
			h.logger.Debug("join ack dropped", "conn_id", conn.ID(), "error", err)
		}

	case "leave_conversation":
		var p joinPayload
		if err := json.Unmarshal(event.Data, &p); err != nil || p.ConversationID == "" {
			return
		}
		h.registry.Leave(conn, p.ConversationID)

	case "typing_start":
		var p typingPayload
		if err := json.Unmarshal(event.Data, &p); err != nil || p.ConversationID == "" {
			return
		}
		h.presence.TypingStart(conn, p.ConversationID, p.UserID, p.Username)

	case "typing_stop":
		var p typingPayload
		if err := json.Unmarshal(event.Data, &p); err != nil || p.ConversationID == "" {
			return
		}
		h.presence.TypingStop(conn, p.ConversationID, p.UserID)

	default:
		h.logger.Debug("unknown client event", "conn_id", conn.ID(), "event", event.Event)
	}
}
