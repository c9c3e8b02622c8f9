package spatial

import (
	"slices"
	"sync/atomic"
	"time"
)

// cacheSweepInterval is the tick cadence of the full cache sweep.
const cacheSweepInterval = 60

// staleFactor bounds how old an entry may get between sweeps. Entries
// older than ttl*staleFactor are treated as absent at read time and
// physically removed by the next sweep.
const staleFactor = 4

// CacheConfig tunes one query class. The table is fixed at build time;
// UpdateEvery must be at least 1.
type CacheConfig struct {
	// TTLMillis is the age beyond which a refresh tick recomputes.
	TTLMillis int64
	// RadiusMult scales the caller's radius before the cell scan.
	RadiusMult float64
	// UpdateEvery is the refresh cadence in ticks.
	UpdateEvery uint64
}

// cacheTable pairs short-lived combat queries with tight TTLs and a
// fast cadence, and near-static obstacle queries with long ones.
var cacheTable = [queryCount]CacheConfig{
	QueryCollision:        {TTLMillis: 200, RadiusMult: 1.2, UpdateEvery: 2},
	QueryDamage:           {TTLMillis: 150, RadiusMult: 1.5, UpdateEvery: 2},
	QueryCollisionDistant: {TTLMillis: 400, RadiusMult: 2.0, UpdateEvery: 4},
	QueryPickup:           {TTLMillis: 500, RadiusMult: 1.2, UpdateEvery: 3},
	QueryObstacle:         {TTLMillis: 1000, RadiusMult: 1.0, UpdateEvery: 4},
	QueryObject:           {TTLMillis: 100, RadiusMult: 1.2, UpdateEvery: 1},
}

// ConfigFor returns the tuning for a query class.
func ConfigFor(q Query) CacheConfig { return cacheTable[q] }

type cacheEntry struct {
	ids   []EntityID
	stamp int64 // insert time in millis
	valid bool  // distinguishes absent from an entry stamped at t=0
}

// cellEntries groups the per-query entries of one cell so cell-local
// invalidation is a single map delete.
type cellEntries [queryCount]cacheEntry

// queryCache holds nearby-query results keyed by the origin cell.
// Counters are atomic because the metrics scraper reads them from
// outside the tick goroutine.
type queryCache struct {
	entries map[CellKey]*cellEntries

	hits          uint64
	misses        uint64
	invalidations uint64
	sweeps        uint64
}

func (c *queryCache) init() {
	c.entries = make(map[CellKey]*cellEntries, 256)
}

// invalidateRect drops every cached entry whose origin cell falls in
// the rect. Grid mutations call this with the touched cells grown by
// one, which is exactly the set of cells whose 3x3 neighborhood the
// mutation intersects.
func (c *queryCache) invalidateRect(minX, minY, maxX, maxY int) {
	for cy := minY; cy <= maxY; cy++ {
		for cx := minX; cx <= maxX; cx++ {
			key := KeyFor(cx, cy)
			if _, ok := c.entries[key]; ok {
				delete(c.entries, key)
				atomic.AddUint64(&c.invalidations, 1)
			}
		}
	}
}

// sweep removes entries past the staleness bound and frees cells with
// nothing left.
func (c *queryCache) sweep(now int64) {
	atomic.AddUint64(&c.sweeps, 1)
	for key, ce := range c.entries {
		live := false
		for q := range ce {
			e := &ce[q]
			if !e.valid {
				continue
			}
			if now-e.stamp > cacheTable[q].TTLMillis*staleFactor {
				*e = cacheEntry{}
				continue
			}
			live = true
		}
		if !live {
			delete(c.entries, key)
		}
	}
}

// CacheStats reports cache effectiveness counters. Entries counts
// cells holding at least one cached result.
type CacheStats struct {
	Entries       int
	Hits          uint64
	Misses        uint64
	Invalidations uint64
	Sweeps        uint64
}

func (c *queryCache) stats() CacheStats {
	return CacheStats{
		Entries:       len(c.entries),
		Hits:          atomic.LoadUint64(&c.hits),
		Misses:        atomic.LoadUint64(&c.misses),
		Invalidations: atomic.LoadUint64(&c.invalidations),
		Sweeps:        atomic.LoadUint64(&c.sweeps),
	}
}

func (g *Grid) now() int64 {
	if g.nowMS != nil {
		return g.nowMS()
	}
	return time.Now().UnixMilli()
}

// BeginTick advances the grid's frame counter and runs the periodic
// cache sweep. The engine calls this once at the top of every tick,
// before any grid mutation or query.
func (g *Grid) BeginTick(tick uint64) {
	g.tick = tick
	if tick%cacheSweepInterval == 0 {
		g.cache.sweep(g.now())
	}
}

// Tick returns the frame counter last passed to BeginTick.
func (g *Grid) Tick() uint64 { return g.tick }

// Nearby returns the ids within radius of (x, y) for the query class,
// ascending and unique. Results are served from the per-cell cache
// when fresh enough; the effective scan radius is the caller's radius
// times the class's RadiusMult.
//
// Cadence: on a refresh tick for the class (tick % UpdateEvery == 0)
// an entry older than its TTL is recomputed. Off cadence, any entry
// inside the staleness bound is served, and a miss recomputes
// immediately rather than returning empty until the next refresh.
// Only non-empty results are cached.
//
// The returned slice is cache-owned; callers must not modify it.
func (g *Grid) Nearby(x, y, radius float64, q Query) []EntityID {
	cfg := &cacheTable[q]
	key := KeyFor(g.CellOf(x), g.CellOf(y))
	now := g.now()

	var ent *cacheEntry
	if ce := g.cache.entries[key]; ce != nil {
		e := &ce[q]
		if e.valid && now-e.stamp <= cfg.TTLMillis*staleFactor {
			ent = e
		}
	}

	if g.tick%cfg.UpdateEvery == 0 {
		if ent != nil && now-ent.stamp <= cfg.TTLMillis {
			atomic.AddUint64(&g.cache.hits, 1)
			return ent.ids
		}
	} else if ent != nil {
		atomic.AddUint64(&g.cache.hits, 1)
		return ent.ids
	}

	atomic.AddUint64(&g.cache.misses, 1)
	ids := g.collect(x, y, radius*cfg.RadiusMult, q)
	if len(ids) == 0 {
		return nil
	}
	stored := slices.Clone(ids)
	ce := g.cache.entries[key]
	if ce == nil {
		ce = &cellEntries{}
		g.cache.entries[key] = ce
	}
	ce[q] = cacheEntry{ids: stored, stamp: now, valid: true}
	return stored
}

// collect recomputes a radius query straight from the cells.
func (g *Grid) collect(x, y, radius float64, q Query) []EntityID {
	g.scratch = g.scratch[:0]
	minX, minY, maxX, maxY, ok := g.clampRange(g.CellRange(x, y, radius))
	if !ok {
		return g.scratch
	}
	for cy := minY; cy <= maxY; cy++ {
		for cx := minX; cx <= maxX; cx++ {
			c := g.cells[KeyFor(cx, cy)]
			if c == nil {
				continue
			}
			for _, k := range queryKinds[q] {
				g.scratch = append(g.scratch, c.buckets[k]...)
			}
		}
	}
	slices.Sort(g.scratch)
	g.scratch = slices.Compact(g.scratch)
	return g.scratch
}
