// Package hub tracks live connections and their room memberships, and
// fans events out to them.
//
// The Registry is the single owner of connection and membership state.
// All mutation goes through its methods under one lock, so a disconnect
// atomically removes the connection from every room it joined.
//
// The Broadcaster delivers an event to every member of a room, optionally
// excluding the originating connection. Delivery is best-effort: a send
// that fails (closed connection, full buffer) is counted and logged, never
// retried, and never blocks delivery to the remaining members.
package hub
