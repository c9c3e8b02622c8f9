// Package spatial implements the uniform grid index and the per-query
// result cache behind the collision engine.
//
// The grid stores entity ids only; entity data stays with the world
// that owns it. Cells are bucketed by entity kind so queries union
// exactly the buckets they care about instead of filtering afterward.
package spatial

import (
	"math"
	"slices"
)

// CellKey packs a cell coordinate pair into a single map key.
// No string formatting on the hot path.
type CellKey uint64

// KeyFor packs (cx, cy) into a CellKey.
func KeyFor(cx, cy int) CellKey {
	return CellKey(uint64(uint32(cx))<<32 | uint64(uint32(cy)))
}

// Coords unpacks the cell coordinates.
func (k CellKey) Coords() (cx, cy int) {
	return int(int32(k >> 32)), int(int32(uint32(k)))
}

// cell buckets the occupants of one grid square by kind. A cell is
// allocated on first insert and deleted when its last occupant leaves,
// so the cells map scales with the live population, not the world area.
type cell struct {
	buckets [KindCount][]EntityID
	total   int
}

func (c *cell) add(id EntityID, k Kind) bool {
	b := c.buckets[k]
	for _, e := range b {
		if e == id {
			return false
		}
	}
	c.buckets[k] = append(b, id)
	c.total++
	return true
}

func (c *cell) drop(id EntityID, k Kind) bool {
	b := c.buckets[k]
	for i, e := range b {
		if e == id {
			b[i] = b[len(b)-1]
			c.buckets[k] = b[:len(b)-1]
			c.total--
			return true
		}
	}
	return false
}

// entityInfo remembers what Insert was told so Remove and the update
// fast path can recover kind and extent without the caller restating
// them.
type entityInfo struct {
	kind Kind
	w, h float64
}

// Grid is a uniform spatial hash over a bounded world. Coordinates
// outside [0, worldW) x [0, worldH) count as outside the simulated
// world: every operation skips them silently instead of erroring.
type Grid struct {
	cellSize    float64
	invCellSize float64 // 1/cellSize, avoids division on hot paths
	maxCellX    int
	maxCellY    int

	cells    map[CellKey]*cell
	entities map[EntityID]entityInfo

	cache queryCache
	tick  uint64
	nowMS func() int64

	scratch []EntityID // backs EntitiesIn/Neighborhood results
}

// NewGrid creates an empty grid over a worldW x worldH area divided
// into cellSize squares.
func NewGrid(worldW, worldH, cellSize float64) *Grid {
	g := &Grid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		maxCellX:    int(math.Ceil(worldW/cellSize)) - 1,
		maxCellY:    int(math.Ceil(worldH/cellSize)) - 1,
		cells:       make(map[CellKey]*cell, 256),
		entities:    make(map[EntityID]entityInfo, 1024),
		scratch:     make([]EntityID, 0, 128),
	}
	if g.maxCellX < 0 {
		g.maxCellX = 0
	}
	if g.maxCellY < 0 {
		g.maxCellY = 0
	}
	g.cache.init()
	return g
}

// SetNow swaps the millisecond clock used for cache aging. Tests use
// this to step time deterministically.
func (g *Grid) SetNow(fn func() int64) { g.nowMS = fn }

// CellSize returns the edge length of one cell in world units.
func (g *Grid) CellSize() float64 { return g.cellSize }

// Bounds returns the maximum valid cell coordinate per axis.
func (g *Grid) Bounds() (maxCellX, maxCellY int) { return g.maxCellX, g.maxCellY }

// CellOf maps one world coordinate to its cell index.
func (g *Grid) CellOf(v float64) int {
	return int(math.Floor(v * g.invCellSize))
}

// CellRange returns the query cell range for a circle at (x, y):
// floor on the low edge, ceil on the high edge, per axis. The range is
// not clamped to the world; scans drop the out-of-range part.
func (g *Grid) CellRange(x, y, radius float64) (minX, minY, maxX, maxY int) {
	minX = int(math.Floor((x - radius) * g.invCellSize))
	minY = int(math.Floor((y - radius) * g.invCellSize))
	maxX = int(math.Ceil((x + radius) * g.invCellSize))
	maxY = int(math.Ceil((y + radius) * g.invCellSize))
	return
}

// coverRange returns the cells actually occupied by an AABB centered
// at (x, y) with extent (w, h).
func (g *Grid) coverRange(x, y, w, h float64) (minX, minY, maxX, maxY int) {
	minX = g.CellOf(x - w/2)
	minY = g.CellOf(y - h/2)
	maxX = g.CellOf(x + w/2)
	maxY = g.CellOf(y + h/2)
	return
}

// clampRange narrows a cell range to the world. ok is false when the
// range lies entirely outside.
func (g *Grid) clampRange(minX, minY, maxX, maxY int) (cMinX, cMinY, cMaxX, cMaxY int, ok bool) {
	if maxX < 0 || maxY < 0 || minX > g.maxCellX || minY > g.maxCellY {
		return 0, 0, 0, 0, false
	}
	return max(minX, 0), max(minY, 0), min(maxX, g.maxCellX), min(maxY, g.maxCellY), true
}

// Insert adds a point entity to the cell containing (x, y).
func (g *Grid) Insert(id EntityID, kind Kind, x, y float64) {
	g.InsertSized(id, kind, x, y, 0, 0)
}

// InsertSized adds an entity to every cell covered by the box
// [x-w/2, x+w/2] x [y-h/2, y+h/2]. Metadata is recorded even when the
// box lies outside the world, so a later move back inside reindexes
// correctly.
func (g *Grid) InsertSized(id EntityID, kind Kind, x, y, w, h float64) {
	g.entities[id] = entityInfo{kind: kind, w: w, h: h}
	minX, minY, maxX, maxY, ok := g.clampRange(g.coverRange(x, y, w, h))
	if !ok {
		return
	}
	for cy := minY; cy <= maxY; cy++ {
		for cx := minX; cx <= maxX; cx++ {
			key := KeyFor(cx, cy)
			c := g.cells[key]
			if c == nil {
				c = &cell{}
				g.cells[key] = c
			}
			c.add(id, kind)
		}
	}
	g.cache.invalidateRect(minX-1, minY-1, maxX+1, maxY+1)
}

// Remove takes an entity out of every cell its box at (x, y) covers,
// recovering kind and extent from the metadata stored at insert time.
// Cells emptied by the removal are deleted.
func (g *Grid) Remove(id EntityID, x, y float64) {
	info, known := g.entities[id]
	if !known {
		return
	}
	delete(g.entities, id)
	g.removeAt(id, info, x, y)
}

func (g *Grid) removeAt(id EntityID, info entityInfo, x, y float64) {
	minX, minY, maxX, maxY, ok := g.clampRange(g.coverRange(x, y, info.w, info.h))
	if !ok {
		return
	}
	for cy := minY; cy <= maxY; cy++ {
		for cx := minX; cx <= maxX; cx++ {
			key := KeyFor(cx, cy)
			c := g.cells[key]
			if c == nil {
				continue
			}
			if c.drop(id, info.kind) && c.total == 0 {
				delete(g.cells, key)
			}
		}
	}
	g.cache.invalidateRect(minX-1, minY-1, maxX+1, maxY+1)
}

// UpdatePosition moves an entity and reports whether the grid was
// actually touched. Fast path: when the origin cells of the old and
// new positions match, nothing happens and the call returns false.
//
// The check looks at the origin cell only, and the removal uses the
// caller's old position. An entity spanning several cells can
// therefore keep stale outer memberships across skipped updates;
// callers that need exact coverage must pass the position of the last
// reindex (the last call that returned true) as the old position.
// That approximation is part of the contract; see the grid tests.
func (g *Grid) UpdatePosition(id EntityID, oldX, oldY, newX, newY float64) bool {
	info, known := g.entities[id]
	if !known {
		return false
	}
	if g.CellOf(oldX) == g.CellOf(newX) && g.CellOf(oldY) == g.CellOf(newY) {
		return false
	}
	g.removeAt(id, info, oldX, oldY)
	g.InsertSized(id, info.kind, newX, newY, info.w, info.h)
	return true
}

// UpdateSized is UpdatePosition with a new extent taking effect on the
// reinsert. The fast-path check is still origin-cell only; a pure
// resize inside one cell defers the coverage change to the next
// boundary crossing.
func (g *Grid) UpdateSized(id EntityID, oldX, oldY, newX, newY, w, h float64) bool {
	info, known := g.entities[id]
	if !known {
		return false
	}
	if g.CellOf(oldX) == g.CellOf(newX) && g.CellOf(oldY) == g.CellOf(newY) {
		info.w, info.h = w, h
		g.entities[id] = info
		return false
	}
	g.removeAt(id, info, oldX, oldY)
	g.InsertSized(id, info.kind, newX, newY, w, h)
	return true
}

// Contains reports whether the grid currently tracks the id.
func (g *Grid) Contains(id EntityID) bool {
	_, ok := g.entities[id]
	return ok
}

// KindOf returns the kind recorded for a tracked id.
func (g *Grid) KindOf(id EntityID) (Kind, bool) {
	info, ok := g.entities[id]
	return info.kind, ok
}

// EntitiesIn returns the occupants of one cell matching the query
// class, ascending by id.
//
// The returned slice is grid-owned scratch, reused by the next call.
// Copy it if you need to keep it.
func (g *Grid) EntitiesIn(key CellKey, q Query) []EntityID {
	g.scratch = g.scratch[:0]
	c := g.cells[key]
	if c == nil {
		return g.scratch
	}
	for _, k := range queryKinds[q] {
		g.scratch = append(g.scratch, c.buckets[k]...)
	}
	slices.Sort(g.scratch)
	return g.scratch
}

// Neighborhood returns the occupants of the 3x3 cell block centered on
// (cx, cy) matching the query class, deduplicated and ascending by id.
// Same scratch-reuse caveat as EntitiesIn.
func (g *Grid) Neighborhood(cx, cy int, q Query) []EntityID {
	g.scratch = g.scratch[:0]
	minX, minY, maxX, maxY, ok := g.clampRange(cx-1, cy-1, cx+1, cy+1)
	if !ok {
		return g.scratch
	}
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			c := g.cells[KeyFor(x, y)]
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

// CellsAlongSegment returns the cells a swept rectangle of the given
// width passes through from (x0, y0) to (x1, y1), sampled every
// cellSize/4 along the segment and across the half width. The start
// cell and the four corner cells of the swept box are always included
// even when sampling would step over them.
func (g *Grid) CellsAlongSegment(x0, y0, x1, y1, width float64) []CellKey {
	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)

	seen := make(map[CellKey]struct{}, 32)
	keys := make([]CellKey, 0, 32)
	visit := func(x, y float64) {
		cx, cy := g.CellOf(x), g.CellOf(y)
		if cx < 0 || cy < 0 || cx > g.maxCellX || cy > g.maxCellY {
			return
		}
		key := KeyFor(cx, cy)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	visit(x0, y0)

	var ux, uy float64
	if length > 0 {
		ux, uy = dx/length, dy/length
	}
	px, py := -uy, ux // perpendicular, for the width sweep
	half := width / 2

	step := g.cellSize / 4
	for along := 0.0; along <= length; along += step {
		sx := x0 + ux*along
		sy := y0 + uy*along
		for across := -half; across <= half; across += step {
			visit(sx+px*across, sy+py*across)
		}
		visit(sx+px*half, sy+py*half)
	}

	visit(x0+px*half, y0+py*half)
	visit(x0-px*half, y0-py*half)
	visit(x1+px*half, y1+py*half)
	visit(x1-px*half, y1-py*half)

	return keys
}

// OccupiedCells appends every allocated cell key to buf in ascending
// order and returns it. Pass a reused buffer to avoid allocation.
func (g *Grid) OccupiedCells(buf []CellKey) []CellKey {
	buf = buf[:0]
	for key := range g.cells {
		buf = append(buf, key)
	}
	slices.Sort(buf)
	return buf
}

// EachCell calls fn with the coordinates and occupant count of every
// allocated cell. Iteration order is unspecified.
func (g *Grid) EachCell(fn func(cx, cy, count int)) {
	for key, c := range g.cells {
		cx, cy := key.Coords()
		fn(cx, cy, c.total)
	}
}

// GridStats is a point-in-time summary for metrics and debugging.
type GridStats struct {
	OccupiedCells int
	Entities      int
	Cache         CacheStats
}

// Stats summarizes the grid and its cache.
func (g *Grid) Stats() GridStats {
	return GridStats{
		OccupiedCells: len(g.cells),
		Entities:      len(g.entities),
		Cache:         g.cache.stats(),
	}
}
