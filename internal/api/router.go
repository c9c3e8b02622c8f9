package api

import (
	"net/http"

	"horde-sim/internal/game"
	"horde-sim/internal/game/spatial"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineInterface is the slice of the simulation engine the API layer
// uses. Keeping it an interface lets tests mock the engine without
// running the tick loop.
type EngineInterface interface {
	// Snapshot returns the latest published tick snapshot.
	Snapshot() *game.SimSnapshot
	// Stats summarizes engine, grid, and cache health.
	Stats() game.EngineStats
	// AddEntity spawns an entity into the running simulation.
	AddEntity(spec game.EntitySpec) spatial.EntityID
	// RemoveEntity marks an entity for despawn.
	RemoveEntity(id spatial.EntityID) bool
	// Config returns the engine sizing (world extent, tick rate).
	Config() game.EngineConfig
}

// RouterConfig carries the router's dependencies, built for injection
// and testability:
//
//	cfg := api.RouterConfig{
//	    Engine: mockEngine,
//	    RateLimitConfig: &api.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
//	}
//	ts := httptest.NewServer(api.NewRouter(cfg))
type RouterConfig struct {
	// Engine is the simulation engine (required).
	Engine EngineInterface

	// RateLimiter is an optional pre-built limiter; when nil one is
	// created from RateLimitConfig (or the defaults).
	RateLimiter     *IPRateLimiter
	RateLimitConfig *RateLimitConfig

	// CORSOrigins overrides the default local-dashboard origins.
	CORSOrigins []string

	// DebugFrame renders the current state as a PNG. Optional; the
	// endpoint 404s when unset.
	DebugFrame func() ([]byte, error)

	// DisableLogging drops the request logger (benchmarks, tests).
	DisableLogging bool
}

type routerHandlers struct {
	engine     EngineInterface
	debugFrame func() ([]byte, error)
}

// NewRouter constructs the HTTP router with all middleware and routes.
// It is pure: no goroutines, no listeners, safe under httptest.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting before CORS so floods are rejected cheaply.
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
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{
		engine:     cfg.Engine,
		debugFrame: cfg.DebugFrame,
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.handleGetState)
		r.Get("/stats", h.handleGetStats)
		r.Get("/config", h.handleGetConfig)

		r.Post("/spawn", h.handleSpawn)
		r.Post("/despawn", h.handleDespawn)

		r.Get("/debug/frame.png", h.handleDebugFrame)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
