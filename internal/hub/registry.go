// ABOUTME: Connection registry tracking live connections and room membership
// ABOUTME: Bidirectional connection<->room map guarded by a single RWMutex

package hub

import (
	"log/slog"
	"sync"
)

// Conn is the transport-side handle the hub delivers events to. The registry
// and broadcaster only ever see this interface; the websocket layer owns the
// concrete type.
type Conn interface {
	// ID returns the connection's unique ephemeral identifier.
	ID() string
	// Send enqueues a named event for delivery. It must not block; a
	// connection that cannot accept the event returns an error.
	Send(event string, payload any) error
}

// Registry owns the connection<->room membership map. Rooms have no
// existence of their own: a room is exactly the set of connections currently
// joined to a conversation id, held here and never persisted.
//
// All methods are safe for concurrent use. A single lock over the whole
// registry is deliberate; membership churn is light compared to delivery.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]Conn            // connID -> connection
	rooms  map[string]map[string]bool // roomID -> set of connIDs
	joined map[string]map[string]bool // connID -> set of roomIDs
	logger *slog.Logger
}

// NewRegistry creates an empty registry. Pass nil logger for default.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		conns:  make(map[string]Conn),
		rooms:  make(map[string]map[string]bool),
		joined: make(map[string]map[string]bool),
		logger: logger.With("component", "registry"),
	}
}

// Register adds a connection to the registry without joining any room.
// Registered connections receive global broadcasts (user status changes).
func (r *Registry) Register(conn Conn) {
	r.mu.Lock()
	r.conns[conn.ID()] = conn
	r.mu.Unlock()

	r.logger.Debug("connection registered", "conn_id", conn.ID())
}

// Join adds the connection to a room's member set. Idempotent.
func (r *Registry) Join(conn Conn, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := conn.ID()
	r.conns[id] = conn

	if _, ok := r.rooms[room]; !ok {
		r.rooms[room] = make(map[string]bool)
	}
	r.rooms[room][id] = true

	if _, ok := r.joined[id]; !ok {
		r.joined[id] = make(map[string]bool)
	}
	r.joined[id][room] = true
}

// Leave removes the connection from a room. Idempotent; a no-op when the
// connection is not a member.
func (r *Registry) Leave(conn Conn, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := conn.ID()
	if members, ok := r.rooms[room]; ok {
		delete(members, id)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	if rooms, ok := r.joined[id]; ok {
		delete(rooms, room)
	}
}

// MembersOf returns a snapshot of the room's current members. The snapshot
// reflects every completed join/leave and never a half-applied mutation.
func (r *Registry) MembersOf(room string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.rooms[room]
	if !ok {
		return nil
	}

	conns := make([]Conn, 0, len(members))
	for id := range members {
		if conn, ok := r.conns[id]; ok {
			conns = append(conns, conn)
		}
	}
	return conns
}

// Connections returns a snapshot of every live connection, joined or not.
func (r *Registry) Connections() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Conn, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}

// Disconnect removes the connection from every room it belongs to and from
// the registry itself in one atomic step. Safe to call for a connection that
// holds no memberships, and safe to call more than once.
func (r *Registry) Disconnect(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := conn.ID()
	for room := range r.joined[id] {
		if members, ok := r.rooms[room]; ok {
			delete(members, id)
			if len(members) == 0 {
				delete(r.rooms, room)
			}
		}
	}
	delete(r.joined, id)
	delete(r.conns, id)

	r.logger.Debug("connection removed", "conn_id", id)
}
