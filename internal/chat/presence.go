// ABOUTME: Ephemeral typing signals and durable user status changes
// ABOUTME: Typing events are never persisted; status rides through the store

package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/devsparki/OmniChat/internal/hub"
	"github.com/devsparki/OmniChat/internal/store"
)

// PresenceStore defines what the coordinator needs from storage
type PresenceStore interface {
	UpdateUserStatus(ctx context.Context, userID, status string) error
}

// GlobalBroadcaster extends Broadcaster with delivery to every connection,
// used for cross-conversation presence signals.
type GlobalBroadcaster interface {
	Broadcaster
	BroadcastAll(event string, payload any)
}

// TypingPayload is the wire payload for user_typing events. Username is
// only carried on typing-start.
type TypingPayload struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	Typing   bool   `json:"typing"`
}

// StatusPayload is the wire payload for user_status_changed events.
type StatusPayload struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// Presence coordinates typing indicators and user status. Typing state is
// purely transient and lives only on the wire; it is deliberately not
// modeled on the durable User record.
type Presence struct {
	store       PresenceStore
	broadcaster GlobalBroadcaster
	logger      *slog.Logger
}

// NewPresence creates a presence coordinator. Pass nil logger for default.
func NewPresence(store PresenceStore, broadcaster GlobalBroadcaster, logger *slog.Logger) *Presence {
	if logger == nil {
		logger = slog.Default()
	}
	return &Presence{
		store:       store,
		broadcaster: broadcaster,
		logger:      logger.With("component", "presence"),
	}
}

// TypingStart announces that a user began typing in a room. The originating
// connection is excluded so a client never sees its own indicator.
func (p *Presence) TypingStart(conn hub.Conn, room, userID, username string) {
	p.broadcaster.Broadcast(room, "user_typing", TypingPayload{
		UserID:   userID,
		Username: username,
		Typing:   true,
	}, conn)
}

// TypingStop announces that a user stopped typing in a room.
func (p *Presence) TypingStop(conn hub.Conn, room, userID string) {
	p.broadcaster.Broadcast(room, "user_typing", TypingPayload{
		UserID: userID,
		Typing: false,
	}, conn)
}

// SetUserStatus persists the user's status and then announces the change to
// every live connection. Status is cross-conversation presence, not a room
// concept, so the broadcast is global.
func (p *Presence) SetUserStatus(ctx context.Context, userID, status string) error {
	if !store.ValidStatus(status) {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	if err := p.store.UpdateUserStatus(ctx, userID, status); err != nil {
		return fmt.Errorf("updating user status: %w", err)
	}

	p.broadcaster.BroadcastAll("user_status_changed", StatusPayload{
		UserID: userID,
		Status: status,
	})

	p.logger.Debug("user status changed", "user_id", userID, "status", status)
	return nil
}
