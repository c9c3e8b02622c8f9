package game

import (
	"testing"

	"horde-sim/internal/game/spatial"
)

type broadFixture struct {
	world *World
	grid  *spatial.Grid
	sys   *CollisionSystem
}

func newBroadFixture() *broadFixture {
	world := NewWorld(800, 600)
	grid := spatial.NewGrid(800, 600, 64)
	return &broadFixture{
		world: world,
		grid:  grid,
		sys:   NewCollisionSystem(world, grid, NewTypeMatrix()),
	}
}

func (f *broadFixture) add(kind spatial.Kind, pos Vec2, size Vec2) *Entity {
	e := f.world.Spawn()
	e.Transform = &Transform{Pos: pos}
	e.Collider = &Collider{Kind: kind, Size: size}
	f.grid.InsertSized(e.ID, kind, pos.X, pos.Y, size.X, size.Y)
	return e
}

func TestTierForLadder(t *testing.T) {
	tests := []struct {
		distSq float64
		want   Tier
	}{
		{0, TierCritical},
		{99 * 99, TierCritical},
		{100 * 100, TierCritical},
		{101 * 101, TierNormal},
		{300 * 300, TierNormal},
		{301 * 301, TierDistant},
		{500 * 500, TierDistant},
		{2000 * 2000, TierDistant},
	}
	for _, tt := range tests {
		if got := TierFor(tt.distSq); got != tt.want {
			t.Errorf("TierFor(%.0f) = %v, want %v", tt.distSq, got, tt.want)
		}
	}
}

func TestDetectFindsOverlappingPairOnce(t *testing.T) {
	f := newBroadFixture()
	f.add(spatial.KindEnemy, Vec2{X: 100, Y: 100}, Vec2{X: 20, Y: 20})
	f.add(spatial.KindEnemy, Vec2{X: 110, Y: 100}, Vec2{X: 20, Y: 20})

	f.sys.Detect(1)

	results := f.sys.Results()
	if len(results) != 1 {
		t.Fatalf("Results = %d pairs, want 1 (dedup across both directions)", len(results))
	}
	if results[0].OverlapX != 10 || results[0].OverlapY != 20 {
		t.Errorf("overlap = (%.0f, %.0f), want (10, 20)", results[0].OverlapX, results[0].OverlapY)
	}
	if f.sys.TestsRun() < 1 {
		t.Error("narrow phase never ran")
	}
	if len(f.sys.DamageResults()) != 0 {
		t.Error("enemy pair should not produce damage results")
	}
}

func TestDetectSeparatedPairProducesNothing(t *testing.T) {
	f := newBroadFixture()
	f.add(spatial.KindEnemy, Vec2{X: 100, Y: 100}, Vec2{X: 20, Y: 20})
	f.add(spatial.KindEnemy, Vec2{X: 160, Y: 100}, Vec2{X: 20, Y: 20})

	f.sys.Detect(1)

	if len(f.sys.Results()) != 0 {
		t.Errorf("separated pair produced %d results", len(f.sys.Results()))
	}
}

func TestDetectRespectsTypeMatrix(t *testing.T) {
	f := newBroadFixture()
	// Players pass through projectiles in the stock matrix.
	f.add(spatial.KindPlayer, Vec2{X: 100, Y: 100}, Vec2{X: 24, Y: 24})
	f.add(spatial.KindProjectile, Vec2{X: 104, Y: 100}, Vec2{X: 6, Y: 6})

	f.sys.Detect(1)

	if len(f.sys.Results()) != 0 {
		t.Errorf("matrix-filtered pair produced %d results", len(f.sys.Results()))
	}
}

func TestDetectSplitsDamagePairs(t *testing.T) {
	f := newBroadFixture()
	f.add(spatial.KindEnemy, Vec2{X: 100, Y: 100}, Vec2{X: 20, Y: 20})
	f.add(spatial.KindProjectile, Vec2{X: 104, Y: 100}, Vec2{X: 6, Y: 6})

	f.sys.Detect(1)

	if len(f.sys.Results()) != 1 {
		t.Fatalf("Results = %d, want 1", len(f.sys.Results()))
	}
	if len(f.sys.DamageResults()) != 1 {
		t.Fatalf("DamageResults = %d, want 1", len(f.sys.DamageResults()))
	}
}

func TestDetectSkipsPendingRemoval(t *testing.T) {
	f := newBroadFixture()
	a := f.add(spatial.KindEnemy, Vec2{X: 100, Y: 100}, Vec2{X: 20, Y: 20})
	f.add(spatial.KindEnemy, Vec2{X: 110, Y: 100}, Vec2{X: 20, Y: 20})
	a.PendingRemoval = true

	f.sys.Detect(1)

	if len(f.sys.Results()) != 0 {
		t.Errorf("pending-removal entity still collided: %d results", len(f.sys.Results()))
	}
}

func TestFocusTiersCadence(t *testing.T) {
	f := newBroadFixture()
	f.sys.SetFocus(Vec2{X: 0, Y: 0})

	// Both far outside the distant threshold: quarter-rate checks.
	f.add(spatial.KindEnemy, Vec2{X: 600, Y: 300}, Vec2{X: 20, Y: 20})
	f.add(spatial.KindEnemy, Vec2{X: 610, Y: 300}, Vec2{X: 20, Y: 20})

	f.sys.Detect(1)
	if len(f.sys.Results()) != 0 {
		t.Errorf("distant pair checked off-cadence: %d results", len(f.sys.Results()))
	}

	f.sys.Detect(4)
	if len(f.sys.Results()) != 1 {
		t.Errorf("distant pair missed on its cadence tick: %d results", len(f.sys.Results()))
	}

	// Without a focus everything is critical and runs every tick.
	f.sys.ClearFocus()
	f.sys.Detect(3)
	if len(f.sys.Results()) != 1 {
		t.Errorf("focus-less pair missed: %d results", len(f.sys.Results()))
	}
}

func TestBeamHitsAlongSegment(t *testing.T) {
	f := newBroadFixture()

	beam := f.add(spatial.KindProjectile, Vec2{X: 100, Y: 100}, Vec2{X: 4, Y: 4})
	beam.Collider.Beam = true
	beam.Collider.Dir = Vec2{X: 1, Y: 0}
	beam.Collider.Length = 100
	beam.Collider.HalfWidth = 5

	enemy := f.add(spatial.KindEnemy, Vec2{X: 120, Y: 104}, Vec2{X: 8, Y: 8})

	f.sys.Detect(1)

	if len(f.sys.Results()) != 1 {
		t.Fatalf("beam missed: %d results", len(f.sys.Results()))
	}
	if len(f.sys.DamageResults()) != 1 {
		t.Error("beam hit should count as a damage pair")
	}
	res := f.sys.Results()[0]
	if res.A != beam.ID && res.B != beam.ID {
		t.Error("result does not involve the beam")
	}
	_ = enemy
}

func TestBeamIgnoresTargetsBehindOrigin(t *testing.T) {
	f := newBroadFixture()

	beam := f.add(spatial.KindProjectile, Vec2{X: 100, Y: 100}, Vec2{X: 4, Y: 4})
	beam.Collider.Beam = true
	beam.Collider.Dir = Vec2{X: 1, Y: 0}
	beam.Collider.Length = 100
	beam.Collider.HalfWidth = 5

	f.add(spatial.KindEnemy, Vec2{X: 80, Y: 100}, Vec2{X: 8, Y: 8})

	f.sys.Detect(1)

	if len(f.sys.Results()) != 0 {
		t.Errorf("beam hit a target behind its origin: %d results", len(f.sys.Results()))
	}
}
