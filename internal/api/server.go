package api

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Server combines the HTTP router with the WebSocket hub. Construction
// is side-effect free; Start is the only method that launches
// goroutines or opens listeners.
type Server struct {
	engine      EngineInterface
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
}

// NewServer builds the production server around an engine. debugFrame
// may be nil to disable the PNG endpoint.
func NewServer(engine EngineInterface, debugFrame func() ([]byte, error)) *Server {
	s := &Server{
		engine: engine,
		wsHub:  NewWebSocketHub(),
	}

	s.rateLimiter = NewIPRateLimiter(DefaultRateLimitConfig)

	s.router = NewRouter(RouterConfig{
		Engine:      engine,
		RateLimiter: s.rateLimiter,
		DebugFrame:  debugFrame,
	})

	// The hub needs its instance, so its route is wired here rather
	// than in the pure router factory.
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	return s
}

// Router exposes the mux for tests.
func (s *Server) Router() *chi.Mux { return s.router }

// Hub exposes the WebSocket hub for tests.
func (s *Server) Hub() *WebSocketHub { return s.wsHub }

// Start launches the hub, the broadcast loop, and the HTTP listener.
// Blocks until the listener fails.
func (s *Server) Start(addr string) error {
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop(s.engine)

	log.Printf("🌐 API server listening on %s", addr)
	return http.ListenAndServe(addr, s.router)
}
