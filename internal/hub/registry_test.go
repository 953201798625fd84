// ABOUTME: Tests for the connection registry membership map
// ABOUTME: Covers join/leave idempotence, disconnect purge, and concurrent access

package hub

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeConn records events sent to it; failSend makes every Send error.
type fakeConn struct {
	id       string
	mu       sync.Mutex
	events   []sentEvent
	failSend bool
}

type sentEvent struct {
	event   string
	payload any
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(event string, payload any) error {
	if c.failSend {
		return fmt.Errorf("connection closed")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, sentEvent{event: event, payload: payload})
	return nil
}

func (c *fakeConn) sent() []sentEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentEvent(nil), c.events...)
}

func memberIDs(r *Registry, room string) map[string]bool {
	ids := make(map[string]bool)
	for _, conn := range r.MembersOf(room) {
		ids[conn.ID()] = true
	}
	return ids
}

func TestRegistry_JoinAndMembersOf(t *testing.T) {
	r := NewRegistry(nil)
	a := newFakeConn("conn-a")
	b := newFakeConn("conn-b")

	r.Join(a, "room-1")
	r.Join(b, "room-1")

	ids := memberIDs(r, "room-1")
	assert.Len(t, ids, 2)
	assert.True(t, ids["conn-a"])
	assert.True(t, ids["conn-b"])
}

func TestRegistry_JoinIsIdempotent(t *testing.T) {
	r := NewRegistry(nil)
	a := newFakeConn("conn-a")

	r.Join(a, "room-1")
	r.Join(a, "room-1")
	r.Join(a, "room-1")

	assert.Len(t, r.MembersOf("room-1"), 1)
}

func TestRegistry_LeaveRemovesMembership(t *testing.T) {
	r := NewRegistry(nil)
	a := newFakeConn("conn-a")

	r.Join(a, "room-1")
	r.Leave(a, "room-1")

	assert.Empty(t, r.MembersOf("room-1"))
}

func TestRegistry_LeaveWithoutJoinIsNoop(t *testing.T) {
	r := NewRegistry(nil)
	a := newFakeConn("conn-a")

	r.Leave(a, "room-1")

	assert.Empty(t, r.MembersOf("room-1"))
}

func TestRegistry_DisconnectPurgesAllRooms(t *testing.T) {
	r := NewRegistry(nil)
	a := newFakeConn("conn-a")
	b := newFakeConn("conn-b")

	r.Join(a, "room-1")
	r.Join(a, "room-2")
	r.Join(a, "room-3")
	r.Join(b, "room-2")

	r.Disconnect(a)

	for _, room := range []string{"room-1", "room-2", "room-3"} {
		assert.False(t, memberIDs(r, room)["conn-a"], "conn-a still member of %s", room)
	}
	assert.True(t, memberIDs(r, "room-2")["conn-b"], "disconnect removed an unrelated member")
}

func TestRegistry_DisconnectWithoutMembershipsIsSafe(t *testing.T) {
	r := NewRegistry(nil)
	a := newFakeConn("conn-a")

	r.Register(a)
	r.Disconnect(a)
	r.Disconnect(a) // second call must also be safe

	assert.Empty(t, r.Connections())
}

func TestRegistry_ConnectionsIncludesRoomless(t *testing.T) {
	r := NewRegistry(nil)
	a := newFakeConn("conn-a")
	b := newFakeConn("conn-b")

	r.Register(a)
	r.Join(b, "room-1")

	assert.Len(t, r.Connections(), 2)
}

func TestRegistry_ConcurrentJoinLeaveDisconnect(t *testing.T) {
	r := NewRegistry(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			conn := newFakeConn(fmt.Sprintf("conn-%d", n))
			room := fmt.Sprintf("room-%d", n%5)
			for j := 0; j < 100; j++ {
				r.Join(conn, room)
				r.MembersOf(room)
				r.Leave(conn, room)
			}
			r.Join(conn, room)
			r.Disconnect(conn)
		}(i)
	}
	wg.Wait()

	// Every connection disconnected; no residual membership anywhere
	for i := 0; i < 5; i++ {
		assert.Empty(t, r.MembersOf(fmt.Sprintf("room-%d", i)))
	}
	assert.Empty(t, r.Connections())
}
