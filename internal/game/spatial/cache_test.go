package spatial

import (
	"slices"
	"testing"
)

// fakeClock lets cache-age tests step milliseconds by hand.
type fakeClock struct{ ms int64 }

func (c *fakeClock) now() int64 { return c.ms }

func newClockedGrid(w, h, cellSize float64) (*Grid, *fakeClock) {
	g := NewGrid(w, h, cellSize)
	clk := &fakeClock{}
	g.SetNow(clk.now)
	return g, clk
}

func TestNearbyOrderedUnique(t *testing.T) {
	g, _ := newClockedGrid(1000, 1000, 100)

	g.Insert(30, KindEnemy, 50, 50)
	g.Insert(10, KindEnemy, 60, 50)
	g.Insert(20, KindEnemy, 70, 50)
	// Spans cells (0,0) and (1,0); both are in scan range.
	g.InsertSized(40, KindObject, 100, 50, 80, 10)

	g.BeginTick(1)
	got := g.Nearby(50, 50, 80, QueryCollision)
	want := []EntityID{10, 20, 30, 40}
	if !slices.Equal(got, want) {
		t.Errorf("Nearby = %v, want %v", got, want)
	}
}

func TestNearbyCachesAndServesHits(t *testing.T) {
	g, _ := newClockedGrid(1000, 1000, 100)
	g.Insert(1, KindEnemy, 50, 50)

	// The fake clock reads 0 here; an entry stamped at time zero must
	// still count as present.
	g.BeginTick(1) // off cadence for QueryCollision (every 2)

	first := g.Nearby(50, 50, 40, QueryCollision)
	if len(first) != 1 || first[0] != 1 {
		t.Fatalf("first query should find the enemy, got %v", first)
	}
	second := g.Nearby(50, 50, 40, QueryCollision)
	if !slices.Equal(first, second) {
		t.Errorf("cached result differs: %v vs %v", first, second)
	}

	st := g.Stats().Cache
	if st.Misses != 1 || st.Hits != 1 {
		t.Errorf("expected 1 miss + 1 hit, got misses=%d hits=%d", st.Misses, st.Hits)
	}
	if st.Entries != 1 {
		t.Errorf("expected 1 cached cell, got %d", st.Entries)
	}
}

func TestEmptyResultsAreNotCached(t *testing.T) {
	g, _ := newClockedGrid(1000, 1000, 100)

	g.BeginTick(1)
	if got := g.Nearby(500, 500, 40, QueryCollision); got != nil {
		t.Fatalf("empty region should return nil, got %v", got)
	}
	g.Nearby(500, 500, 40, QueryCollision)

	st := g.Stats().Cache
	if st.Misses != 2 {
		t.Errorf("empty results must recompute every call, got %d misses", st.Misses)
	}
	if st.Entries != 0 {
		t.Errorf("empty results must not be cached, got %d entries", st.Entries)
	}
}

func TestMooreInvalidationIsLocal(t *testing.T) {
	g, _ := newClockedGrid(1000, 1000, 100)

	g.Insert(1, KindObstacle, 50, 50)   // cell (0,0)
	g.Insert(2, KindObstacle, 850, 850) // cell (8,8)

	g.BeginTick(1) // off cadence for QueryObstacle (every 4)
	g.Nearby(50, 50, 10, QueryObstacle)
	g.Nearby(850, 850, 10, QueryObstacle)
	if st := g.Stats().Cache; st.Entries != 2 {
		t.Fatalf("expected 2 cached cells, got %d", st.Entries)
	}

	// Cell (1,0): its Moore neighborhood includes (0,0) but not (8,8).
	g.Insert(99, KindEnemy, 150, 50)

	g.BeginTick(2)
	before := g.Stats().Cache
	g.Nearby(50, 50, 10, QueryObstacle)   // invalidated -> miss
	g.Nearby(850, 850, 10, QueryObstacle) // untouched -> hit
	after := g.Stats().Cache

	if after.Misses != before.Misses+1 {
		t.Errorf("neighbor mutation should force one recompute, misses %d -> %d", before.Misses, after.Misses)
	}
	if after.Hits != before.Hits+1 {
		t.Errorf("distant entry should still serve, hits %d -> %d", before.Hits, after.Hits)
	}

	// A mutation far from both origins must invalidate neither.
	g.Insert(100, KindEnemy, 500, 500)

	g.BeginTick(3)
	before = g.Stats().Cache
	g.Nearby(50, 50, 10, QueryObstacle)
	g.Nearby(850, 850, 10, QueryObstacle)
	after = g.Stats().Cache
	if after.Hits != before.Hits+2 {
		t.Errorf("far mutation should leave both entries intact, hits %d -> %d", before.Hits, after.Hits)
	}
}

func TestRefreshTickRecomputesPastTTL(t *testing.T) {
	g, clk := newClockedGrid(1000, 1000, 100)
	g.Insert(1, KindObject, 50, 50)

	// QueryObject refreshes every tick with a 100ms TTL.
	clk.ms = 1000
	g.BeginTick(1)
	g.Nearby(50, 50, 40, QueryObject)

	clk.ms = 1050
	g.BeginTick(2)
	g.Nearby(50, 50, 40, QueryObject)
	if st := g.Stats().Cache; st.Hits != 1 {
		t.Errorf("entry younger than ttl should serve on a refresh tick, hits=%d", st.Hits)
	}

	clk.ms = 1150
	g.BeginTick(3)
	g.Nearby(50, 50, 40, QueryObject)
	if st := g.Stats().Cache; st.Misses != 2 {
		t.Errorf("entry older than ttl should recompute on a refresh tick, misses=%d", st.Misses)
	}
}

func TestOffCadenceServesUntilStaleBound(t *testing.T) {
	g, clk := newClockedGrid(1000, 1000, 100)
	g.Insert(1, KindEnemy, 50, 50)

	// QueryCollision: ttl 200, refresh every 2 ticks; odd ticks are
	// off cadence.
	clk.ms = 0
	g.BeginTick(1)
	g.Nearby(50, 50, 40, QueryCollision)

	// Age 700 is past the ttl but inside ttl*4.
	clk.ms = 700
	g.BeginTick(3)
	g.Nearby(50, 50, 40, QueryCollision)
	if st := g.Stats().Cache; st.Hits != 1 {
		t.Errorf("off-cadence read inside the stale bound should hit, hits=%d", st.Hits)
	}

	// Age 900 crosses ttl*4: treated as absent even without a sweep.
	clk.ms = 900
	g.BeginTick(5)
	g.Nearby(50, 50, 40, QueryCollision)
	if st := g.Stats().Cache; st.Misses != 2 {
		t.Errorf("entry past ttl*4 must not be served, misses=%d", st.Misses)
	}
}

func TestSweepDropsExpiredEntries(t *testing.T) {
	g, clk := newClockedGrid(1000, 1000, 100)
	g.Insert(1, KindEnemy, 50, 50)

	clk.ms = 0
	g.BeginTick(1)
	g.Nearby(50, 50, 40, QueryCollision)
	if st := g.Stats().Cache; st.Entries != 1 {
		t.Fatalf("expected 1 cached cell, got %d", st.Entries)
	}

	// ttl*4 = 800 for QueryCollision; the 60-tick sweep removes it.
	clk.ms = 900
	g.BeginTick(60)

	st := g.Stats().Cache
	if st.Entries != 0 {
		t.Errorf("sweep should drop the expired entry, entries=%d", st.Entries)
	}
	if st.Sweeps == 0 {
		t.Error("sweep counter should have advanced")
	}
}

func TestMissRecomputesImmediatelyOffCadence(t *testing.T) {
	g, _ := newClockedGrid(1000, 1000, 100)
	g.Insert(5, KindPickup, 250, 250)

	// QueryPickup refreshes every 3 ticks; tick 1 is off cadence. A
	// miss must still produce the full result right away.
	g.BeginTick(1)
	got := g.Nearby(250, 250, 40, QueryPickup)
	if len(got) != 1 || got[0] != 5 {
		t.Errorf("off-cadence miss must recompute, got %v", got)
	}
}

func TestRadiusMultiplierWidensScan(t *testing.T) {
	g, _ := newClockedGrid(1000, 1000, 100)

	g.Insert(1, KindEnemy, 210, 50)
	g.Insert(2, KindObstacle, 210, 50)

	g.BeginTick(1)

	// Damage scans at 1.5x: radius 40 reaches cell (2,0).
	if got := g.Nearby(50, 50, 40, QueryDamage); !contains(got, 1) {
		t.Errorf("damage query at 1.5x radius should reach cell (2,0), got %v", got)
	}
	// Obstacle scans at 1.0x: radius 40 stops at cell (1,0).
	if got := g.Nearby(50, 50, 40, QueryObstacle); len(got) != 0 {
		t.Errorf("obstacle query at 1.0x radius should not reach cell (2,0), got %v", got)
	}
}
