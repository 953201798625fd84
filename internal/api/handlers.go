// ABOUTME: HTTP handlers for the OmniChat request surface
// ABOUTME: Creation payloads validated here, before anything reaches the pipeline

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/devsparki/OmniChat/internal/ai"
	"github.com/devsparki/OmniChat/internal/store"
)

type createUserRequest struct {
	Username  string `json:"username" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	AvatarURL string `json:"avatar_url"`
}

type createConversationRequest struct {
	Name         string   `json:"name" validate:"required"`
	Participants []string `json:"participants" validate:"required,min=1"`
}

type createMessageRequest struct {
	Content        string `json:"content" validate:"required"`
	SenderID       string `json:"sender_id" validate:"required"`
	SenderUsername string `json:"sender_username" validate:"required"`
	ConversationID string `json:"conversation_id" validate:"required"`
	MessageType    string `json:"message_type"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "OmniChat API is running!"})
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	user := &store.User{
		ID:        uuid.New().String(),
		Username:  req.Username,
		Email:     req.Email,
		AvatarURL: req.AvatarURL,
		Status:    store.StatusOffline,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.InsertUser(r.Context(), user); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if users == nil {
		users = []*store.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) updateUserStatus(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	// Status arrives as a query parameter; a JSON body works too
	status := r.URL.Query().Get("status")
	if status == "" {
		var req updateStatusRequest
		if r.Body != nil {
			_ = decodeBody(r, &req)
		}
		status = req.Status
	}
	if status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	if err := s.presence.SetUserStatus(r.Context(), userID, status); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) createConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	now := time.Now().UTC()
	conv := &store.Conversation{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Participants: req.Participants,
		CreatedAt:    now,
		LastActivity: now,
	}

	if err := s.store.InsertConversation(r.Context(), conv); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.store.ListConversations(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if convs == nil {
		convs = []*store.Conversation{}
	}
	writeJSON(w, http.StatusOK, convs)
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	conversationID := mux.Vars(r)["id"]

	msgs, err := s.store.ListMessagesByConversation(r.Context(), conversationID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if msgs == nil {
		msgs = []*store.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) createMessage(w http.ResponseWriter, r *http.Request) {
	var req createMessageRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	draft := &store.Message{
		SenderID:       req.SenderID,
		SenderUsername: req.SenderUsername,
		Content:        req.Content,
		MessageType:    req.MessageType,
		ConversationID: req.ConversationID,
	}

	msg, err := s.pipeline.Submit(r.Context(), draft)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// aiChat generates an assistant reply and feeds it through the same
// pipeline as human messages.
func (s *Server) aiChat(w http.ResponseWriter, r *http.Request) {
	var req createMessageRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	// Generation is not tied to the requester's connection: if the client
	// goes away mid-call, the response is still persisted and broadcast
	// to the room.
	ctx := context.WithoutCancel(r.Context())

	text, err := s.generator.Generate(ctx, req.ConversationID, req.Content)
	if err != nil {
		// Generation failure is reported inside a success-shaped body, not
		// via an error status. Existing clients depend on this shape.
		s.logger.Error("ai chat error", "conversation_id", req.ConversationID, "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"error": "AI response failed"})
		return
	}

	draft := &store.Message{
		SenderID:       ai.SenderID,
		SenderUsername: ai.SenderName,
		Content:        text,
		MessageType:    store.MessageTypeAIResponse,
		ConversationID: req.ConversationID,
	}

	msg, err := s.pipeline.Submit(ctx, draft)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}
