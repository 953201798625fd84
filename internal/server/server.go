// ABOUTME: Server orchestrator that wires the store, hub, pipeline, and HTTP surface
// ABOUTME: Manages listener setup, component lifecycle, and graceful shutdown

package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devsparki/OmniChat/internal/ai"
	"github.com/devsparki/OmniChat/internal/api"
	"github.com/devsparki/OmniChat/internal/chat"
	"github.com/devsparki/OmniChat/internal/config"
	"github.com/devsparki/OmniChat/internal/hub"
	"github.com/devsparki/OmniChat/internal/store"
	"github.com/devsparki/OmniChat/internal/ws"
)

// unavailableGenerator stands in when no AI endpoint is configured, so the
// chat endpoint degrades to the failure path instead of panicking.
type unavailableGenerator struct{}

func (unavailableGenerator) Generate(context.Context, string, string) (string, error) {
	return "", fmt.Errorf("ai responder: %w", ai.ErrUnavailable)
}

// Server orchestrates the omnichat components. It owns the store, the
// connection registry, and the HTTP server carrying the API, websocket,
// and metrics endpoints.
type Server struct {
	config     *config.Config
	store      store.Store
	registry   *hub.Registry
	httpServer *http.Server
	logger     *slog.Logger
}

// initStore creates a store based on config and environment.
func initStore(cfg *config.Config) (store.Store, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("OMNICHAT_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// New wires all components and returns a server ready to Run.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	registry := hub.NewRegistry(logger)
	broadcaster := hub.NewBroadcaster(registry, logger)
	pipeline := chat.NewPipeline(st, broadcaster, logger)
	presence := chat.NewPresence(st, broadcaster, logger)

	var generator api.Generator = unavailableGenerator{}
	if cfg.AI.Endpoint != "" {
		generator = ai.NewResponder(ai.Config{
			Endpoint:     cfg.AI.Endpoint,
			APIKey:       cfg.AI.APIKey,
			Model:        cfg.AI.Model,
			SystemPrompt: cfg.AI.SystemPrompt,
			Timeout:      cfg.AI.Timeout,
			MaxTurns:     cfg.AI.MaxTurns,
		}, logger)
	} else {
		logger.Warn("ai.endpoint not configured, AI chat will report failures")
	}

	router := mux.NewRouter()
	router.Use(api.CORSMiddleware(cfg.CORS.AllowedOrigins))

	apiServer := api.NewServer(st, pipeline, presence, generator, logger)
	apiServer.Register(router)

	wsHandler := ws.NewHandler(registry, presence, cfg.Limits.EventsPerSecond, cfg.Limits.Burst, logger)
	router.Handle("/ws", wsHandler)

	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, promhttp.Handler())
	}
	router.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)

	return &Server{
		config:   cfg,
		store:    st,
		registry: registry,
		httpServer: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger.With("component", "server"),
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	serverErr := s.waitForShutdownSignal(ctx, errCh)
	shutdownErr := s.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// waitForShutdownSignal waits for context cancellation or a server error.
func (s *Server) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		s.logger.Error("server error", "error", err)
		return err
	}
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops the HTTP server, drops live connections, and closes the store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}

	// Shutdown only stops the listener and waits for in-flight requests;
	// websocket connections are hijacked and must be dropped explicitly.
	for _, conn := range s.registry.Connections() {
		s.registry.Disconnect(conn)
		if closer, ok := conn.(io.Closer); ok {
			_ = closer.Close()
		}
	}

	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
