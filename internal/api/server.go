// ABOUTME: REST surface for users, conversations, messages, and AI replies
// ABOUTME: Thin layer over the store and pipeline; gorilla/mux routing

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/devsparki/OmniChat/internal/chat"
	"github.com/devsparki/OmniChat/internal/store"
)

// Generator produces assistant text for a conversation. Implemented by
// ai.Responder; stubbed in tests.
type Generator interface {
	Generate(ctx context.Context, conversationID, prompt string) (string, error)
}

// Server holds the request surface's collaborators
type Server struct {
	store     store.Store
	pipeline  *chat.Pipeline
	presence  *chat.Presence
	generator Generator
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewServer creates the REST surface. Pass nil logger for default.
func NewServer(st store.Store, pipeline *chat.Pipeline, presence *chat.Presence, generator Generator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:     st,
		pipeline:  pipeline,
		presence:  presence,
		generator: generator,
		validate:  validator.New(),
		logger:    logger.With("component", "api"),
	}
}

// Register mounts all API routes under /api on the given router.
func (s *Server) Register(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/", s.root).Methods(http.MethodGet)

	api.HandleFunc("/users", s.createUser).Methods(http.MethodPost)
	api.HandleFunc("/users", s.listUsers).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/status", s.updateUserStatus).Methods(http.MethodPut)

	api.HandleFunc("/conversations", s.createConversation).Methods(http.MethodPost)
	api.HandleFunc("/conversations", s.listConversations).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}/messages", s.listMessages).Methods(http.MethodGet)

	api.HandleFunc("/messages", s.createMessage).Methods(http.MethodPost)
	api.HandleFunc("/ai/chat", s.aiChat).Methods(http.MethodPost)
}

// CORSMiddleware allows cross-origin requests from the configured origins.
// An empty list or a "*" entry allows any origin.
func CORSMiddleware(allowedOrigins []string) mux.MiddlewareFunc {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || allowed[origin]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps pipeline and store failures onto HTTP statuses
// following the error taxonomy: validation failures are the client's
// fault, missing entities are 404, everything else is a server fault.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
