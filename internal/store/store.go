// ABOUTME: Store interface and data types for OmniChat persistence
// ABOUTME: Defines User, Conversation, Message structs and the Store interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// User status constants. Typing is a transient presence state that a client
// may also persist explicitly; disconnects never change the stored status.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusTyping  = "typing"
)

// Message type constants
const (
	MessageTypeText       = "text"        // Regular user message
	MessageTypeAIResponse = "ai_response" // Message authored by the AI assistant
	MessageTypeSystem     = "system"      // Server-generated notice
)

// ValidStatus reports whether s is a known user status.
func ValidStatus(s string) bool {
	return s == StatusOnline || s == StatusOffline || s == StatusTyping
}

// ValidMessageType reports whether t is a known message type.
func ValidMessageType(t string) bool {
	return t == MessageTypeText || t == MessageTypeAIResponse || t == MessageTypeSystem
}

// User represents a chat participant
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation represents a named room with a fixed participant list.
// LastMessage holds a short preview of the most recent message and
// LastActivity its timestamp; both are updated on every accepted message.
type Conversation struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
	LastMessage  string    `json:"last_message,omitempty"`
	LastActivity time.Time `json:"last_activity"`
}

// Message represents a single message within a conversation. Messages are
// append-only: once persisted they are never mutated or deleted.
type Message struct {
	ID             string    `json:"id"`
	SenderID       string    `json:"sender_id"`
	SenderUsername string    `json:"sender_username"`
	Content        string    `json:"content"`
	MessageType    string    `json:"message_type"`
	Timestamp      time.Time `json:"timestamp"`
	ConversationID string    `json:"conversation_id"`
}

// Store defines the interface for user, conversation and message persistence.
// No cross-call transactions are assumed; callers that perform multi-step
// writes own the resulting consistency window.
type Store interface {
	// Users
	InsertUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	UpdateUserStatus(ctx context.Context, userID, status string) error

	// Conversations
	InsertConversation(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListConversations(ctx context.Context) ([]*Conversation, error)
	UpdateConversationSummary(ctx context.Context, conversationID, preview string, lastActivity time.Time) error

	// Messages (append-only)
	AppendMessage(ctx context.Context, msg *Message) error
	ListMessagesByConversation(ctx context.Context, conversationID string) ([]*Message, error)

	// Close releases any resources held by the store
	Close() error
}
