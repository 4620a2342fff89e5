package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"tile-engine/internal/config"
	"tile-engine/internal/game"

	"github.com/go-chi/chi/v5"
)

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with WebSocket hub for real-time updates.
type Server struct {
	engine      *game.Engine
	cfg         config.ServerConfig
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
	unsubscribe func()
}

// NewServer creates a new API server.
//
// Background workers do NOT start until Start() is called, so a server can
// be constructed in tests without goroutines or listeners. For testing HTTP
// endpoints without WebSocket support, use NewRouter() directly.
func NewServer(engine *game.Engine, cfg config.ServerConfig) *Server {
	s := &Server{
		engine: engine,
		cfg:    cfg,
		wsHub:  NewWebSocketHub(engine, cfg.AllowedOrigins),
	}

	s.rateLimiter = NewIPRateLimiter(RateLimitConfig{
		RequestsPerSecond: cfg.RequestsPerSec,
		Burst:             cfg.Burst,
		CleanupInterval:   DefaultRateLimitConfig.CleanupInterval,
	})

	s.router = NewRouter(RouterConfig{
		Engine:      engine,
		RateLimiter: s.rateLimiter,
		CORSOrigins: cfg.AllowedOrigins,
	})

	// WebSocket routes need the wsHub instance
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	return s
}

// Start begins the HTTP server AND starts background workers.
// It blocks until the server stops; a clean Shutdown returns nil.
func (s *Server) Start(addr string) error {
	go s.wsHub.Run()

	period := s.cfg.BroadcastPeriod
	if period <= 0 {
		period = config.DefaultServer().BroadcastPeriod
	}
	s.wsHub.StartBroadcastLoop(period)
	s.unsubscribe = s.engine.Subscribe(s.wsHub.ForwardEffect)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("🌐 API server starting on %s", addr)

	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Stop performs graceful shutdown of the listener and background workers.
func (s *Server) Stop(ctx context.Context) error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.wsHub.Stop()
	s.rateLimiter.Stop()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
