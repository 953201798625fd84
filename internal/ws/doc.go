// Package ws exposes the websocket endpoint for real-time chat events.
//
// # Protocol
//
// Every frame in both directions is a JSON envelope:
//
//	{"event": "typing_start", "data": {...}}
//
// Client-to-server events: join_conversation, leave_conversation,
// typing_start, typing_stop. Server-to-client events: joined_conversation,
// new_message, user_typing, user_status_changed.
//
// Chat messages themselves travel over the REST API; the socket carries
// only control events and server pushes.
//
// # Connection Lifecycle
//
// Each connection gets a single writer goroutine (the write pump) and the
// handler goroutine doubles as the read loop. Sends never block: a slow
// consumer's events are dropped once its buffer fills. When the read loop
// exits for any reason the connection is removed from every room it joined.
//
// Inbound events are rate limited per connection with a token bucket when
// limits are configured.
package ws
