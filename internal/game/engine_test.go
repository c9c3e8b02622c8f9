package game

import (
	"testing"
	"time"

	"horde-sim/internal/game/spatial"
)

func newTestEngine() *Engine {
	return NewEngine(EngineConfig{
		TickRate:    30,
		WorldWidth:  800,
		WorldHeight: 600,
		CellSize:    64,
	})
}

func TestTickIntegratesAndReindexes(t *testing.T) {
	e := newTestEngine()

	// 300 units/s at 30 TPS crosses the cell boundary at x=64 in one
	// tick from x=60.
	id := e.AddEntity(EntitySpec{
		Pos:      Vec2{X: 60, Y: 10},
		Collider: &Collider{Kind: spatial.KindEnemy, Size: Vec2{X: 4, Y: 4}},
		Physics:  &Physics{Vel: Vec2{X: 300, Y: 0}},
	})

	e.Tick()

	ent := e.World().Get(id)
	if !almostEqual(ent.Transform.Pos.X, 70) {
		t.Fatalf("pos.X = %.2f, want 70", ent.Transform.Pos.X)
	}

	// The grid must see it in its new cell.
	key := spatial.KeyFor(e.Grid().CellOf(70), e.Grid().CellOf(10))
	found := false
	for _, got := range e.Grid().EntitiesIn(key, spatial.QueryCollision) {
		if got == id {
			found = true
		}
	}
	if !found {
		t.Error("entity not indexed in its new cell after crossing the boundary")
	}
}

func TestTickSkipsSleepingBodies(t *testing.T) {
	e := newTestEngine()
	id := e.AddEntity(EntitySpec{
		Pos:      Vec2{X: 100, Y: 100},
		Collider: &Collider{Kind: spatial.KindObject, Size: Vec2{X: 10, Y: 10}},
		Physics:  &Physics{Vel: Vec2{X: 300, Y: 0}, Asleep: true},
	})

	e.Tick()

	if pos := e.World().Get(id).Transform.Pos; pos.X != 100 {
		t.Errorf("sleeping body moved to %.2f", pos.X)
	}
}

func TestProjectileDamageDespawnsBoth(t *testing.T) {
	e := newTestEngine()
	enemyID := e.AddEntity(EntitySpec{
		Pos:      Vec2{X: 100, Y: 100},
		Collider: &Collider{Kind: spatial.KindEnemy, Size: Vec2{X: 20, Y: 20}},
		Physics:  &Physics{},
		Health:   &Health{HP: 10, MaxHP: 10},
	})
	projID := e.AddEntity(EntitySpec{
		Pos:      Vec2{X: 104, Y: 100},
		Collider: &Collider{Kind: spatial.KindProjectile, Size: Vec2{X: 6, Y: 6}, Damage: 10},
		Physics:  &Physics{},
	})

	e.Tick()

	if got := e.World().Get(enemyID); got != nil {
		t.Errorf("enemy at 0 HP survived the tick: %+v", got.Health)
	}
	if got := e.World().Get(projID); got != nil {
		t.Error("projectile not spent on hit")
	}
	if e.World().Count() != 0 {
		t.Errorf("world count = %d, want 0", e.World().Count())
	}

	stats := e.Stats()
	if stats.TotalDamage != 1 {
		t.Errorf("TotalDamage = %d, want 1", stats.TotalDamage)
	}
}

func TestBeamPersistsAfterHit(t *testing.T) {
	e := newTestEngine()
	e.AddEntity(EntitySpec{
		Pos:      Vec2{X: 100, Y: 100},
		Collider: &Collider{Kind: spatial.KindEnemy, Size: Vec2{X: 20, Y: 20}},
		Physics:  &Physics{},
		Health:   &Health{HP: 100, MaxHP: 100},
	})
	beamID := e.AddEntity(EntitySpec{
		Pos: Vec2{X: 90, Y: 100},
		Collider: &Collider{
			Kind: spatial.KindProjectile, Damage: 5,
			Beam: true, Dir: Vec2{X: 1, Y: 0}, Length: 200, HalfWidth: 6,
		},
	})

	e.Tick()
	e.Tick()

	if e.World().Get(beamID) == nil {
		t.Fatal("beam despawned on hit; only plain projectiles are spent")
	}
	stats := e.Stats()
	if stats.TotalDamage != 2 {
		t.Errorf("TotalDamage = %d, want 2 (one per tick)", stats.TotalDamage)
	}
}

func TestCustomDamageFunc(t *testing.T) {
	e := newTestEngine()
	var calls int
	e.SetDamageFunc(func(tick uint64, source, target *Entity) {
		calls++
		if source.Collider.Kind != spatial.KindProjectile {
			t.Errorf("source kind = %v, want projectile", source.Collider.Kind)
		}
	})

	e.AddEntity(EntitySpec{
		Pos:      Vec2{X: 100, Y: 100},
		Collider: &Collider{Kind: spatial.KindEnemy, Size: Vec2{X: 20, Y: 20}},
		Physics:  &Physics{},
		Health:   &Health{HP: 10, MaxHP: 10},
	})
	e.AddEntity(EntitySpec{
		Pos:      Vec2{X: 104, Y: 100},
		Collider: &Collider{Kind: spatial.KindProjectile, Size: Vec2{X: 6, Y: 6}, Damage: 10},
		Physics:  &Physics{},
	})

	e.Tick()

	if calls != 1 {
		t.Errorf("damage func called %d times, want 1", calls)
	}
	// Custom hook did not despawn anything.
	if e.World().Count() != 2 {
		t.Errorf("world count = %d, want 2", e.World().Count())
	}
}

func TestRemoveEntityDespawnsAtTickBoundary(t *testing.T) {
	e := newTestEngine()
	id := e.AddEntity(EntitySpec{
		Pos:      Vec2{X: 100, Y: 100},
		Collider: &Collider{Kind: spatial.KindPickup, Size: Vec2{X: 12, Y: 12}},
	})

	if !e.RemoveEntity(id) {
		t.Fatal("RemoveEntity returned false for a live entity")
	}
	// Marked but still present until the boundary.
	if e.World().Get(id) == nil {
		t.Fatal("entity removed before the tick boundary")
	}

	e.Tick()

	if e.World().Get(id) != nil {
		t.Error("entity survived the despawn pass")
	}
	if e.RemoveEntity(id) {
		t.Error("RemoveEntity succeeded on a despawned id")
	}
}

func TestSnapshotPublishedEachTick(t *testing.T) {
	e := newTestEngine()
	e.AddEntity(EntitySpec{
		Pos:      Vec2{X: 100, Y: 100},
		Collider: &Collider{Kind: spatial.KindEnemy, Size: Vec2{X: 20, Y: 20}},
		Physics:  &Physics{Vel: Vec2{X: 3, Y: 0}},
		Health:   &Health{HP: 30, MaxHP: 30},
	})

	e.Tick()
	snap := e.Snapshot()

	if snap.Tick != 1 {
		t.Errorf("snapshot tick = %d, want 1", snap.Tick)
	}
	if snap.EntityCount != 1 || len(snap.Entities) != 1 {
		t.Fatalf("snapshot entities = %d/%d, want 1", snap.EntityCount, len(snap.Entities))
	}
	es := snap.Entities[0]
	if es.Kind != "enemy" || es.HP != 30 {
		t.Errorf("entity snapshot = %+v", es)
	}

	e.Tick()
	next := e.Snapshot()
	if next.Sequence <= snap.Sequence {
		t.Error("snapshot sequence did not advance")
	}
}

func TestTickObserverFires(t *testing.T) {
	e := newTestEngine()
	var seen time.Duration
	e.SetTickObserver(func(d time.Duration) { seen = d })

	e.Tick()

	if seen <= 0 {
		t.Error("tick observer not called with a positive duration")
	}
}

func TestStatsAccumulate(t *testing.T) {
	e := newTestEngine()
	e.AddEntity(EntitySpec{
		Pos:      Vec2{X: 100, Y: 100},
		Collider: &Collider{Kind: spatial.KindEnemy, Size: Vec2{X: 20, Y: 20}},
		Physics:  &Physics{},
	})
	e.AddEntity(EntitySpec{
		Pos:      Vec2{X: 108, Y: 100},
		Collider: &Collider{Kind: spatial.KindEnemy, Size: Vec2{X: 20, Y: 20}},
		Physics:  &Physics{},
	})

	e.Tick()
	first := e.Stats()
	e.Tick()
	second := e.Stats()

	if first.TotalPairs == 0 {
		t.Error("overlapping pair not counted in TotalPairs")
	}
	if second.TotalPairs < first.TotalPairs || second.TotalTests < first.TotalTests {
		t.Error("totals went backwards")
	}
	if second.Tick != 2 {
		t.Errorf("tick = %d, want 2", second.Tick)
	}
}

func TestStartStopIdempotent(t *testing.T) {
	e := newTestEngine()
	e.Start()
	e.Start()
	time.Sleep(50 * time.Millisecond)
	e.Stop()
	e.Stop()

	if e.Stats().Tick == 0 {
		t.Error("ticker never fired between Start and Stop")
	}
}
