package game

import (
	"log"
	"sync"
	"time"

	"horde-sim/internal/game/spatial"
)

// EngineConfig sizes the simulation.
type EngineConfig struct {
	TickRate    int     // ticks per second
	WorldWidth  float64 // world units
	WorldHeight float64
	CellSize    float64 // spatial grid cell edge
	Crowd       CrowdConfig
}

// DefaultEngineConfig returns the stock 30 TPS arena.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TickRate:    30,
		WorldWidth:  1280,
		WorldHeight: 720,
		CellSize:    64,
		Crowd:       DefaultCrowdConfig(),
	}
}

// DamageFunc consumes one damage pair per tick: source is the
// projectile or area effect, target the entity it hit. The engine
// ships a default that applies contact damage and despawns at zero HP.
type DamageFunc func(tick uint64, source, target *Entity)

// Engine owns the world, the spatial grid, and the collision pipeline,
// and drives them in strict per-tick order: integration, grid sync,
// broad phase, contact resolution, crowd resolution, damage dispatch,
// despawn, snapshot. Everything runs on one goroutine; the mutex only
// guards external API access.
type Engine struct {
	mu sync.RWMutex

	world      *World
	grid       *spatial.Grid
	matrix     *TypeMatrix
	collisions *CollisionSystem
	contacts   *ContactResolver
	crowd      *CrowdResolver

	// lastIndexed is the position of each entity's last grid reindex.
	// The grid's update fast path needs the position it actually
	// indexed at, not last tick's position, or multi-cell entities
	// would leak stale memberships on every skipped update.
	lastIndexed map[spatial.EntityID]Vec2

	cfg      EngineConfig
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}

	tickCount uint64

	eventLog     *EventLog
	snapshotPool *SnapshotPool

	onDamage DamageFunc
	onTick   func(time.Duration) // metrics hook, wired by the caller

	totalPairs  uint64
	totalTests  uint64
	totalDamage uint64
}

// NewEngine builds a stopped engine from the config.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultEngineConfig().TickRate
	}
	if cfg.CellSize <= 0 {
		cfg.CellSize = DefaultEngineConfig().CellSize
	}

	world := NewWorld(cfg.WorldWidth, cfg.WorldHeight)
	grid := spatial.NewGrid(cfg.WorldWidth, cfg.WorldHeight, cfg.CellSize)
	matrix := NewTypeMatrix()

	e := &Engine{
		world:        world,
		grid:         grid,
		matrix:       matrix,
		collisions:   NewCollisionSystem(world, grid, matrix),
		contacts:     NewContactResolver(world),
		crowd:        NewCrowdResolver(world, grid, world.Rect(), cfg.Crowd),
		lastIndexed:  make(map[spatial.EntityID]Vec2, 1024),
		cfg:          cfg,
		stopChan:     make(chan struct{}),
		eventLog:     NewEventLog(),
		snapshotPool: NewSnapshotPool(),
	}
	e.onDamage = e.applyDamage
	return e
}

// Start launches the tick loop.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	e.ticker = time.NewTicker(time.Second / time.Duration(e.cfg.TickRate))

	go func() {
		for {
			select {
			case <-e.ticker.C:
				e.Tick()
			case <-e.stopChan:
				return
			}
		}
	}()

	log.Printf("🧮 Simulation engine started at %d TPS (%gx%g world, cell %g)",
		e.cfg.TickRate, e.cfg.WorldWidth, e.cfg.WorldHeight, e.cfg.CellSize)
}

// Stop halts the tick loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	e.running = false
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopChan)
	log.Println("🛑 Simulation engine stopped")
}

// Tick runs one full simulation step. Exported so tests and headless
// drivers can step the engine without the wall-clock ticker.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	started := time.Now()

	e.tickCount++
	tick := e.tickCount
	dt := 1.0 / float64(e.cfg.TickRate)

	e.grid.BeginTick(tick)

	// 1. Integrate velocities. Sleeping bodies hold position until a
	// collision wakes them.
	for _, ent := range e.world.Entities() {
		if ent.Transform == nil || ent.Physics == nil || ent.Physics.Asleep {
			continue
		}
		if ent.Physics.Vel.IsZero() {
			continue
		}
		ent.Transform.Pos = ent.Transform.Pos.Add(ent.Physics.Vel.Scale(dt))
	}

	// 2. Grid sync. All mutation completes before any query runs.
	for _, ent := range e.world.Entities() {
		if ent.Transform == nil || ent.Collider == nil {
			continue
		}
		old, ok := e.lastIndexed[ent.ID]
		if !ok {
			continue
		}
		pos := ent.Transform.Pos
		if e.grid.UpdatePosition(ent.ID, old.X, old.Y, pos.X, pos.Y) {
			e.lastIndexed[ent.ID] = pos
		}
	}

	// 3. Broad + narrow phase.
	e.collisions.Detect(tick)
	results := e.collisions.Results()
	e.totalPairs += uint64(len(results))
	e.totalTests += uint64(e.collisions.TestsRun())

	// 4. Contact resolution for every confirmed pair.
	for _, res := range results {
		e.contacts.Resolve(res)
	}

	// 5. Dense object relaxation.
	e.crowd.Resolve()

	// 6. Damage dispatch, consumed once and discarded.
	damage := e.collisions.DamageResults()
	e.totalDamage += uint64(len(damage))
	for _, res := range damage {
		source, target := e.damagePair(res)
		if source == nil || target == nil {
			continue
		}
		e.onDamage(tick, source, target)
	}

	e.logCollisions(tick, results)

	// 7. Despawn pass: pull pending entities out of the grid and
	// recycle their ids.
	e.world.compact(func(ent *Entity) {
		if pos, ok := e.lastIndexed[ent.ID]; ok {
			e.grid.Remove(ent.ID, pos.X, pos.Y)
			delete(e.lastIndexed, ent.ID)
		}
		kind := ""
		if ent.Collider != nil {
			kind = ent.Collider.Kind.String()
		}
		e.eventLog.EmitSimple(EventTypeDespawn, tick, uint32(ent.ID),
			DespawnPayload{ID: uint32(ent.ID), Kind: kind})
	})

	elapsed := time.Since(started)

	// 8. Publish the tick's snapshot.
	snap := e.snapshotPool.AcquireWrite()
	snap.fill(e.world, results, len(damage), tick, elapsed)
	e.snapshotPool.PublishWrite()

	e.eventLog.EmitSimple(EventTypeTick, tick, 0, TickPayload{
		Entities:   e.world.Count(),
		Pairs:      len(results),
		DurationUs: int(elapsed.Microseconds()),
	})

	if e.onTick != nil {
		e.onTick(elapsed)
	}
}

// damagePair orients a damage result as (source, target) with the
// projectile or area effect as the source.
func (e *Engine) damagePair(res CollisionResult) (source, target *Entity) {
	a := e.world.Get(res.A)
	b := e.world.Get(res.B)
	if a == nil || b == nil || a.Collider == nil || b.Collider == nil {
		return nil, nil
	}
	ka := a.Collider.Kind
	if ka == spatial.KindProjectile || ka == spatial.KindAreaEffect {
		return a, b
	}
	return b, a
}

// applyDamage is the stock damage hook: subtract contact damage and
// mark both a spent projectile and a dead target for despawn.
func (e *Engine) applyDamage(tick uint64, source, target *Entity) {
	if target.Health == nil {
		return
	}
	amount := source.Collider.Damage
	if amount <= 0 {
		return
	}
	target.Health.HP -= amount
	if target.Health.HP <= 0 {
		target.Health.HP = 0
		target.PendingRemoval = true
	}
	if source.Collider.Kind == spatial.KindProjectile && !source.Collider.Beam {
		source.PendingRemoval = true
	}
	e.eventLog.EmitSimple(EventTypeDamage, tick, uint32(source.ID), DamagePayload{
		SourceID: uint32(source.ID),
		TargetID: uint32(target.ID),
		Amount:   amount,
		TargetHP: target.Health.HP,
	})
}

// logCollisions samples confirmed pairs into the event log. The log's
// own limiters bound the volume; this just avoids encoding work for
// pairs that would be dropped anyway.
func (e *Engine) logCollisions(tick uint64, results []CollisionResult) {
	for _, res := range results {
		a := e.world.Get(res.A)
		b := e.world.Get(res.B)
		if a == nil || b == nil || a.Collider == nil || b.Collider == nil {
			continue
		}
		ok := e.eventLog.EmitSimple(EventTypeCollision, tick, uint32(res.A), CollisionPayload{
			A:        uint32(res.A),
			B:        uint32(res.B),
			KindA:    a.Collider.Kind.String(),
			KindB:    b.Collider.Kind.String(),
			OverlapX: res.OverlapX,
			OverlapY: res.OverlapY,
		})
		if !ok {
			break // rate limited, skip the rest of this tick's pairs
		}
	}
}

// EntitySpec describes an entity to add. Nil components stay nil on
// the entity, and the pipeline skips what it cannot process.
type EntitySpec struct {
	Pos      Vec2
	Collider *Collider
	Physics  *Physics
	Health   *Health
}

// AddEntity spawns an entity, indexes its collider in the grid, and
// logs the spawn. Safe to call while the engine runs.
func (e *Engine) AddEntity(spec EntitySpec) spatial.EntityID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addEntityLocked(spec)
}

func (e *Engine) addEntityLocked(spec EntitySpec) spatial.EntityID {
	ent := e.world.Spawn()
	ent.Transform = &Transform{Pos: spec.Pos}
	ent.Collider = spec.Collider
	ent.Physics = spec.Physics
	ent.Health = spec.Health

	kind := ""
	if ent.Collider != nil {
		kind = ent.Collider.Kind.String()
		e.grid.InsertSized(ent.ID, ent.Collider.Kind, spec.Pos.X, spec.Pos.Y,
			ent.Collider.Size.X, ent.Collider.Size.Y)
		e.lastIndexed[ent.ID] = spec.Pos
	}

	e.eventLog.EmitSimple(EventTypeSpawn, e.tickCount, uint32(ent.ID),
		SpawnPayload{ID: uint32(ent.ID), Kind: kind, X: spec.Pos.X, Y: spec.Pos.Y})
	return ent.ID
}

// RemoveEntity marks an entity for despawn at the next tick boundary.
func (e *Engine) RemoveEntity(id spatial.EntityID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent := e.world.Get(id)
	if ent == nil {
		return false
	}
	ent.PendingRemoval = true
	return true
}

// SetDamageFunc replaces the stock damage hook.
func (e *Engine) SetDamageFunc(fn DamageFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fn != nil {
		e.onDamage = fn
	}
}

// SetTickObserver wires a per-tick duration callback (metrics).
func (e *Engine) SetTickObserver(fn func(time.Duration)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTick = fn
}

// SetFocus enables distance tiering in the broad phase around a
// reference point.
func (e *Engine) SetFocus(p Vec2) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.collisions.SetFocus(p)
}

// Snapshot returns the latest published tick snapshot, lock-free.
func (e *Engine) Snapshot() *SimSnapshot {
	return e.snapshotPool.AcquireRead()
}

// World returns the engine's world. Callers must not mutate entities
// while the engine runs; tests step the engine manually instead.
func (e *Engine) World() *World { return e.world }

// Grid returns the spatial grid for tests and diagnostics.
func (e *Engine) Grid() *spatial.Grid { return e.grid }

// Matrix returns the collision type matrix for runtime rule changes.
func (e *Engine) Matrix() *TypeMatrix { return e.matrix }

// Config returns the engine's sizing.
func (e *Engine) Config() EngineConfig { return e.cfg }

// StartEventLog begins persisting events to the given path.
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog flushes and stops the event log.
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// EventLog exposes the log for stats and for wiring the replay store.
func (e *Engine) EventLog() *EventLog { return e.eventLog }

// EngineStats is a point-in-time health summary for the API.
type EngineStats struct {
	Tick         uint64            `json:"tick"`
	Entities     int               `json:"entities"`
	PairsChecked int               `json:"pairsChecked"`
	TestsRun     int               `json:"testsRun"`
	TotalPairs   uint64            `json:"totalPairs"`
	TotalTests   uint64            `json:"totalTests"`
	TotalDamage  uint64            `json:"totalDamage"`
	Grid         spatial.GridStats `json:"grid"`
}

// Stats summarizes the engine, grid, and cache.
func (e *Engine) Stats() EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return EngineStats{
		Tick:         e.tickCount,
		Entities:     e.world.Count(),
		PairsChecked: e.collisions.PairsChecked(),
		TestsRun:     e.collisions.TestsRun(),
		TotalPairs:   e.totalPairs,
		TotalTests:   e.totalTests,
		TotalDamage:  e.totalDamage,
		Grid:         e.grid.Stats(),
	}
}

// CellOccupancy is one occupied grid cell, for debug rendering.
type CellOccupancy struct {
	Cx, Cy int
	Count  int
}

// Cells copies the grid's occupancy under the engine lock.
func (e *Engine) Cells() []CellOccupancy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	cells := make([]CellOccupancy, 0, 128)
	e.grid.EachCell(func(cx, cy, count int) {
		cells = append(cells, CellOccupancy{Cx: cx, Cy: cy, Count: count})
	})
	return cells
}
