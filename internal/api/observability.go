package api

import (
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"horde-sim/internal/game"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality (no per-entity labels).
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_tick_duration_seconds",
		Help:    "Time spent in one simulation tick",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
	})

	entityCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sim_entity_count",
		Help: "Current number of live entities",
	})

	occupiedCells = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sim_grid_occupied_cells",
		Help: "Currently allocated spatial grid cells",
	})

	collisionPairs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sim_collision_pairs_total",
		Help: "Confirmed collision pairs across all ticks",
	})

	narrowPhaseTests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sim_narrow_phase_tests_total",
		Help: "Narrow-phase tests run across all ticks",
	})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sim_query_cache_hits_total",
		Help: "Spatial query cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sim_query_cache_misses_total",
		Help: "Spatial query cache misses (recomputes)",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // bounded: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket frames broadcast",
	})
)

// ObservabilityConfig configures the localhost debug server.
type ObservabilityConfig struct {
	Enabled    bool
	ListenAddr string // MUST stay on localhost in production
}

// DefaultObservabilityConfig returns safe defaults.
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// StartDebugServer starts the internal observability server with
// pprof, /metrics, and /health. It binds localhost only unless
// explicitly overridden via ALLOW_DEBUG_EXTERNAL.
func StartDebugServer(cfg ObservabilityConfig) error {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil
	}

	if cfg.ListenAddr != "127.0.0.1:6060" && cfg.ListenAddr != "localhost:6060" {
		if os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
			log.Println("⚠️ Debug server forced to localhost")
			cfg.ListenAddr = "127.0.0.1:6060"
		}
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return nil
}

// RecordTick records one tick's duration.
func RecordTick(duration time.Duration) {
	tickDuration.Observe(duration.Seconds())
}

// simCounters tracks the last observed totals so monotonic engine
// counters map cleanly onto prometheus counters.
var simCounters struct {
	pairs  uint64
	tests  uint64
	hits   uint64
	misses uint64
}

// ObserveEngineStats publishes one stats sample. Called periodically
// by the server's broadcast loop.
func ObserveEngineStats(stats game.EngineStats) {
	entityCount.Set(float64(stats.Entities))
	occupiedCells.Set(float64(stats.Grid.OccupiedCells))

	if d := stats.TotalPairs - simCounters.pairs; d > 0 {
		collisionPairs.Add(float64(d))
		simCounters.pairs = stats.TotalPairs
	}
	if d := stats.TotalTests - simCounters.tests; d > 0 {
		narrowPhaseTests.Add(float64(d))
		simCounters.tests = stats.TotalTests
	}
	if d := stats.Grid.Cache.Hits - simCounters.hits; d > 0 {
		cacheHits.Add(float64(d))
		simCounters.hits = stats.Grid.Cache.Hits
	}
	if d := stats.Grid.Cache.Misses - simCounters.misses; d > 0 {
		cacheMisses.Add(float64(d))
		simCounters.misses = stats.Grid.Cache.Misses
	}
}

// RecordConnectionRejected increments the rejection counter.
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// UpdateWSConnections updates the WebSocket connection gauge.
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages counts one broadcast frame.
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}
