// ABOUTME: Best-effort fan-out delivery of events to room members
// ABOUTME: Failure to reach one connection never aborts delivery to the rest

package hub

import (
	"log/slog"

	"github.com/devsparki/OmniChat/internal/metrics"
)

// Broadcaster fans an event out to the members of a room, or to every live
// connection for global events. Delivery is best-effort: a connection whose
// send queue is full or whose transport has closed is skipped with a log
// line, and the error never reaches the caller.
type Broadcaster struct {
	registry *Registry
	logger   *slog.Logger
}

// NewBroadcaster creates a broadcaster over the given registry.
// Pass nil logger for default.
func NewBroadcaster(registry *Registry, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		registry: registry,
		logger:   logger.With("component", "broadcaster"),
	}
}

// Broadcast delivers the event to every member of the room except exclude.
// Pass nil exclude to reach all members. Callers must only broadcast after
// any associated durable write has succeeded.
func (b *Broadcaster) Broadcast(room, event string, payload any, exclude Conn) {
	members := b.registry.MembersOf(room)
	for _, conn := range members {
		if exclude != nil && conn.ID() == exclude.ID() {
			continue
		}
		b.deliver(conn, event, payload)
	}
}

// BroadcastAll delivers the event to every live connection, whether or not
// it has joined a room. Used for cross-conversation signals like user
// status changes.
func (b *Broadcaster) BroadcastAll(event string, payload any) {
	for _, conn := range b.registry.Connections() {
		b.deliver(conn, event, payload)
	}
}

func (b *Broadcaster) deliver(conn Conn, event string, payload any) {
	if err := conn.Send(event, payload); err != nil {
		metrics.EventsDropped.Inc()
		b.logger.Debug("dropped event for connection",
			"conn_id", conn.ID(),
			"event", event,
			"error", err)
		return
	}
	metrics.EventsDelivered.Inc()
}
