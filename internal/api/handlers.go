package api

import (
	"encoding/json"
	"math/rand"
	"net/http"

	"horde-sim/internal/game"
	"horde-sim/internal/game/spatial"
)

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Snapshot())
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Stats())
}

func (h *routerHandlers) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.engine.Config()
	writeJSON(w, map[string]interface{}{
		"tickRate":    cfg.TickRate,
		"worldWidth":  cfg.WorldWidth,
		"worldHeight": cfg.WorldHeight,
		"cellSize":    cfg.CellSize,
	})
}

// spawnDefaults gives each kind a plausible demo shape when the
// request does not spell one out.
var spawnDefaults = map[spatial.Kind]game.EntitySpec{
	spatial.KindPlayer:     {Collider: &game.Collider{Kind: spatial.KindPlayer, Size: game.Vec2{X: 24, Y: 24}}, Physics: &game.Physics{}, Health: &game.Health{HP: 100, MaxHP: 100}},
	spatial.KindEnemy:      {Collider: &game.Collider{Kind: spatial.KindEnemy, Size: game.Vec2{X: 20, Y: 20}}, Physics: &game.Physics{}, Health: &game.Health{HP: 30, MaxHP: 30}},
	spatial.KindProjectile: {Collider: &game.Collider{Kind: spatial.KindProjectile, Size: game.Vec2{X: 6, Y: 6}, Damage: 10}, Physics: &game.Physics{}},
	spatial.KindPickup:     {Collider: &game.Collider{Kind: spatial.KindPickup, Size: game.Vec2{X: 12, Y: 12}}},
	spatial.KindAreaEffect: {Collider: &game.Collider{Kind: spatial.KindAreaEffect, Size: game.Vec2{X: 48, Y: 48}, Damage: 2}},
	spatial.KindObject:     {Collider: &game.Collider{Kind: spatial.KindObject, Size: game.Vec2{X: 16, Y: 16}, Radius: 8}, Physics: &game.Physics{}},
	spatial.KindObstacle:   {Collider: &game.Collider{Kind: spatial.KindObstacle, Size: game.Vec2{X: 40, Y: 40}}},
}

func (h *routerHandlers) handleSpawn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind  string   `json:"kind"`
		Count int      `json:"count"`
		X     *float64 `json:"x"`
		Y     *float64 `json:"y"`
		VX    float64  `json:"vx"`
		VY    float64  `json:"vy"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	kind, ok := spatial.ParseKind(req.Kind)
	if !ok {
		writeError(w, "Unknown kind", http.StatusBadRequest)
		return
	}
	if req.Count <= 0 {
		req.Count = 1
	}
	if req.Count > 500 {
		req.Count = 500
	}

	cfg := h.engine.Config()
	tmpl := spawnDefaults[kind]

	ids := make([]uint32, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		spec := game.EntitySpec{}
		if tmpl.Collider != nil {
			c := *tmpl.Collider
			spec.Collider = &c
		}
		if tmpl.Physics != nil {
			spec.Physics = &game.Physics{Vel: game.Vec2{X: req.VX, Y: req.VY}}
		}
		if tmpl.Health != nil {
			hp := *tmpl.Health
			spec.Health = &hp
		}

		if req.X != nil && req.Y != nil {
			spec.Pos = game.Vec2{X: *req.X, Y: *req.Y}
		} else {
			spec.Pos = game.Vec2{
				X: rand.Float64()*cfg.WorldWidth*0.8 + cfg.WorldWidth*0.1,
				Y: rand.Float64()*cfg.WorldHeight*0.8 + cfg.WorldHeight*0.1,
			}
		}

		ids = append(ids, uint32(h.engine.AddEntity(spec)))
	}

	writeJSON(w, map[string]interface{}{
		"success": true,
		"count":   len(ids),
		"ids":     ids,
	})
}

func (h *routerHandlers) handleDespawn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID uint32 `json:"id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	success := h.engine.RemoveEntity(spatial.EntityID(req.ID))
	writeJSON(w, map[string]bool{"success": success})
}

func (h *routerHandlers) handleDebugFrame(w http.ResponseWriter, r *http.Request) {
	if h.debugFrame == nil {
		writeError(w, "Debug rendering disabled", http.StatusNotFound)
		return
	}

	png, err := h.debugFrame()
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
