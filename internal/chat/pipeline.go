// ABOUTME: Message pipeline: validate, persist, update summary, broadcast
// ABOUTME: Single submission path shared by human and AI-authored messages

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/devsparki/OmniChat/internal/hub"
	"github.com/devsparki/OmniChat/internal/metrics"
	"github.com/devsparki/OmniChat/internal/store"
)

// ErrValidation marks a malformed submission rejected before it reaches
// storage. Callers surface it as a client-side failure.
var ErrValidation = errors.New("invalid message")

// previewLimit is the maximum preview length carried on a conversation
// summary; longer content is truncated and marked with an ellipsis.
const previewLimit = 50

// PipelineStore defines what the pipeline needs from storage
type PipelineStore interface {
	GetConversation(ctx context.Context, id string) (*store.Conversation, error)
	AppendMessage(ctx context.Context, msg *store.Message) error
	UpdateConversationSummary(ctx context.Context, conversationID, preview string, lastActivity time.Time) error
}

// Broadcaster defines what the pipeline needs from the fan-out layer
type Broadcaster interface {
	Broadcast(room, event string, payload any, exclude hub.Conn)
}

// Pipeline accepts newly created messages, persists them, updates the owning
// conversation's summary, and fans them out to the conversation's room.
// Human and AI producers go through the same Submit path; there is no
// special-cased delivery for AI messages.
type Pipeline struct {
	store       PipelineStore
	broadcaster Broadcaster
	logger      *slog.Logger
}

// NewPipeline creates a pipeline. Pass nil logger for default.
func NewPipeline(store PipelineStore, broadcaster Broadcaster, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:       store,
		broadcaster: broadcaster,
		logger:      logger.With("component", "pipeline"),
	}
}

// Submit runs a draft message through persist -> summarize -> broadcast and
// returns the persisted message.
//
// Key principle: record first, then act. The broadcast happens only after
// the message is durable, so a client can never observe a message that a
// concurrent read would not find. The summary update is a separate write;
// a crash between the two leaves the summary stale but the message durable.
// That window is accepted, not corrected.
func (p *Pipeline) Submit(ctx context.Context, draft *store.Message) (*store.Message, error) {
	if err := p.validate(draft); err != nil {
		return nil, err
	}

	// The store does not enforce referential integrity between messages and
	// conversations; this lookup is the one place that intent is checked.
	if _, err := p.store.GetConversation(ctx, draft.ConversationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: conversation %s does not exist", ErrValidation, draft.ConversationID)
		}
		return nil, fmt.Errorf("resolving conversation: %w", err)
	}

	if draft.ID == "" {
		draft.ID = uuid.New().String()
	}
	if draft.Timestamp.IsZero() {
		draft.Timestamp = time.Now().UTC()
	}
	if draft.MessageType == "" {
		draft.MessageType = store.MessageTypeText
	}

	if err := p.store.AppendMessage(ctx, draft); err != nil {
		return nil, fmt.Errorf("persisting message: %w", err)
	}
	metrics.MessagesPersisted.WithLabelValues(draft.MessageType).Inc()

	preview := buildPreview(draft)
	if err := p.store.UpdateConversationSummary(ctx, draft.ConversationID, preview, draft.Timestamp); err != nil {
		// The message is already durable at this point; no broadcast happens
		// and the stale summary stands until the next accepted message.
		return nil, fmt.Errorf("updating conversation summary: %w", err)
	}

	p.broadcaster.Broadcast(draft.ConversationID, "new_message", draft, nil)

	p.logger.Debug("message accepted",
		"message_id", draft.ID,
		"conversation_id", draft.ConversationID,
		"type", draft.MessageType)

	return draft, nil
}

func (p *Pipeline) validate(draft *store.Message) error {
	if draft.Content == "" {
		return fmt.Errorf("%w: content is required", ErrValidation)
	}
	if draft.SenderID == "" {
		return fmt.Errorf("%w: sender_id is required", ErrValidation)
	}
	if draft.ConversationID == "" {
		return fmt.Errorf("%w: conversation_id is required", ErrValidation)
	}
	if draft.MessageType != "" && !store.ValidMessageType(draft.MessageType) {
		return fmt.Errorf("%w: unknown message type %q", ErrValidation, draft.MessageType)
	}
	return nil
}

// buildPreview derives the conversation summary preview from a message:
// the first 50 runes, with an ellipsis marker when truncated, and an
// "AI: " prefix for assistant responses.
func buildPreview(msg *store.Message) string {
	preview := msg.Content
	if runes := []rune(preview); len(runes) > previewLimit {
		preview = string(runes[:previewLimit]) + "..."
	}
	if msg.MessageType == store.MessageTypeAIResponse {
		preview = "AI: " + preview
	}
	return preview
}
