package api

import (
	"net/http"

	"tile-engine/internal/game"
	"tile-engine/internal/game/spatial"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineInterface defines the engine methods used by the API.
// This interface enables mocking for tests without spinning up the tick loop.
// Keep this minimal - only include methods the API layer actually calls.
type EngineInterface interface {
	// GetSnapshot returns the latest lock-free immutable snapshot
	GetSnapshot() *game.GameSnapshot
	// Stats returns engine counters
	Stats() game.EngineStats
	// Grid returns a copy of the collision layer rows
	Grid() [][]int
	// Cell returns the clamped code of a cell
	Cell(x, y int) int
	// Occupants lists the entities whose position falls in a cell
	Occupants(c spatial.Point) []string
	// QueueEdit schedules a cell change for the next tick boundary
	QueueEdit(x, y, code int) error
	// Spawn places a new entity
	Spawn(opts game.SpawnOptions) (string, error)
	// Remove deletes an entity
	Remove(id string) error
	// Entity returns one entity's current state
	Entity(id string) (game.EntitySnapshot, bool)
	// Steer points an entity at a pixel target
	Steer(id string, target spatial.Vec2, thrust bool) error
	// SteerToCell points an entity at the centre of a cell
	SteerToCell(id string, cell spatial.CellVector, thrust bool) error
	// Navigate sends an entity to a goal cell around blocking cells
	Navigate(id string, goal spatial.CellVector, thrust bool) error
	// Route returns the cells between two cells, both included
	Route(from, to spatial.CellVector) ([]spatial.Point, error)
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine: mockEngine,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the tile engine (required)
	Engine EngineInterface

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses DefaultAllowedOrigins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

type routerHandlers struct {
	engine EngineInterface
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// NewRouter opens no listeners. The only goroutine it may start is the
// cleanup loop of a rate limiter it creates itself; pass RateLimiter to
// control that. Safe to use with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting (BEFORE CORS to reject early)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = DefaultAllowedOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{engine: cfg.Engine}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.handleGetState)
		r.Get("/stats", h.handleGetStats)

		// Collision grid
		r.Get("/grid", h.handleGetGrid)
		r.Get("/grid/cell", h.handleGetCell)
		r.Post("/grid/cell", h.handleEditCell)
		r.Get("/grid/route", h.handleGetRoute)

		// Entities
		r.Post("/entities", h.handleSpawn)
		r.Get("/entities/{id}", h.handleGetEntity)
		r.Delete("/entities/{id}", h.handleRemove)
		r.Post("/entities/{id}/steer", h.handleSteer)
		r.Post("/entities/{id}/navigate", h.handleNavigate)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	return r
}
