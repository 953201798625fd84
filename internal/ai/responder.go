// ABOUTME: AI response producer backed by an OpenAI-compatible chat endpoint
// ABOUTME: Keeps a per-conversation context window keyed by conversation id

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/devsparki/OmniChat/internal/metrics"
)

// ErrUnavailable is returned when the generation service cannot be reached
// or rejects the request. Callers must surface it as a soft failure and
// never fabricate a placeholder message.
var ErrUnavailable = errors.New("ai service unavailable")

// SenderID and SenderName identify the assistant as a message author.
const (
	SenderID   = "ai-assistant"
	SenderName = "AI Assistant"
)

const defaultSystemPrompt = "You are an AI assistant in OmniChat. Provide helpful, concise responses for real-time chat. Keep responses brief and conversational."

// defaultMaxTurns bounds the per-conversation context window sent upstream.
const defaultMaxTurns = 20

// Config holds the generation endpoint settings
type Config struct {
	Endpoint     string        // Base URL, e.g. https://api.openai.com/v1
	APIKey       string
	Model        string
	SystemPrompt string        // Defaults to the OmniChat assistant prompt
	Timeout      time.Duration // Per-request timeout, defaults to 60s
	MaxTurns     int           // Context window size in turns, defaults to 20
}

// Responder turns a prompt into assistant text. The conversation id is the
// continuity key: each conversation carries its own rolling history window,
// so multi-turn context never leaks across conversations.
type Responder struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string][]turn // conversation id -> history window
}

type turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewResponder creates a responder. Pass nil logger for default.
func NewResponder(cfg Config, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTurns == 0 {
		cfg.MaxTurns = defaultMaxTurns
	}
	return &Responder{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger.With("component", "ai"),
		sessions: make(map[string][]turn),
	}
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []turn `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message turn `json:"message"`
	} `json:"choices"`
}

// Generate forwards the prompt to the generation service and returns the
// assistant's text. The exchange is appended to the conversation's history
// window only after a successful response, so failed calls leave no trace.
func (r *Responder) Generate(ctx context.Context, conversationID, prompt string) (string, error) {
	messages := make([]turn, 0, r.cfg.MaxTurns+2)
	messages = append(messages, turn{Role: "system", Content: r.cfg.SystemPrompt})
	messages = append(messages, r.history(conversationID)...)
	messages = append(messages, turn{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{Model: r.cfg.Model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.cfg.Endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		metrics.AIRequests.WithLabelValues("error").Inc()
		r.logger.Error("generation request failed",
			"conversation_id", conversationID,
			"error", err)
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.AIRequests.WithLabelValues("error").Inc()
		// Read a little of the body for the log; upstream error text is
		// never forwarded to chat clients.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		r.logger.Error("generation service rejected request",
			"conversation_id", conversationID,
			"status", resp.StatusCode,
			"detail", string(detail))
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.AIRequests.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}
	if len(parsed.Choices) == 0 {
		metrics.AIRequests.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}

	text := parsed.Choices[0].Message.Content
	r.remember(conversationID, prompt, text)
	metrics.AIRequests.WithLabelValues("ok").Inc()
	return text, nil
}

func (r *Responder) history(conversationID string) []turn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]turn(nil), r.sessions[conversationID]...)
}

func (r *Responder) remember(conversationID, prompt, response string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	window := append(r.sessions[conversationID],
		turn{Role: "user", Content: prompt},
		turn{Role: "assistant", Content: response},
	)
	if len(window) > r.cfg.MaxTurns {
		window = window[len(window)-r.cfg.MaxTurns:]
	}
	r.sessions[conversationID] = window
}
