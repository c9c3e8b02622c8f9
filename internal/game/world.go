package game

import (
	"log"

	"horde-sim/internal/game/spatial"
)

// pairKeyIDLimit is where legacy 32-bit pair packings started aliasing.
// The 64-bit key removed the hazard; crossing the line is still worth
// one log line when chasing odd behavior in long-running sessions.
const pairKeyIDLimit = 1 << 20

// IDAllocator hands out dense entity ids. Ids are monotonic and come
// back only through the explicit free list, so a live id never aliases
// another live entity.
type IDAllocator struct {
	next uint32
	free []spatial.EntityID
}

// Alloc returns the next id, preferring recycled ones.
func (a *IDAllocator) Alloc() spatial.EntityID {
	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		return id
	}
	id := spatial.EntityID(a.next)
	a.next++
	if a.next == pairKeyIDLimit {
		log.Printf("⚠️ entity ids crossed 2^20 (fine for 64-bit pair keys, fatal for 32-bit ones)")
	}
	return id
}

// Free recycles an id for reuse.
func (a *IDAllocator) Free(id spatial.EntityID) {
	a.free = append(a.free, id)
}

// World owns entity storage. Iteration order is insertion order and
// stays stable across ticks so runs are reproducible.
type World struct {
	byID  map[spatial.EntityID]*Entity
	order []*Entity
	alloc IDAllocator

	width, height float64
}

// NewWorld creates an empty world with the given extent.
func NewWorld(width, height float64) *World {
	return &World{
		byID:   make(map[spatial.EntityID]*Entity, 1024),
		order:  make([]*Entity, 0, 1024),
		width:  width,
		height: height,
	}
}

func (w *World) Width() float64  { return w.width }
func (w *World) Height() float64 { return w.height }

// Rect returns the world bounds as a box anchored at the origin.
func (w *World) Rect() AABB { return AABB{0, 0, w.width, w.height} }

// Spawn allocates an id and registers a bare entity; the caller
// attaches components.
func (w *World) Spawn() *Entity {
	e := &Entity{ID: w.alloc.Alloc()}
	w.byID[e.ID] = e
	w.order = append(w.order, e)
	return e
}

// Get returns the entity for an id, or nil.
func (w *World) Get(id spatial.EntityID) *Entity {
	return w.byID[id]
}

// Count returns the number of live entities.
func (w *World) Count() int { return len(w.order) }

// Entities returns the live entities in spawn order. The slice is
// world-owned; callers iterate, they do not keep or mutate it.
func (w *World) Entities() []*Entity { return w.order }

// Despawn removes an entity immediately and recycles its id. Inside a
// tick, set PendingRemoval instead and let the engine despawn at the
// tick boundary.
func (w *World) Despawn(id spatial.EntityID) bool {
	e := w.byID[id]
	if e == nil {
		return false
	}
	delete(w.byID, id)
	for i, o := range w.order {
		if o == e {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	w.alloc.Free(id)
	return true
}

// compact drops every pending-removal entity in one pass, handing each
// to fn before the id is recycled. The engine uses this at the tick
// boundary.
func (w *World) compact(fn func(*Entity)) int {
	n := 0
	removed := 0
	for _, e := range w.order {
		if e.PendingRemoval {
			if fn != nil {
				fn(e)
			}
			delete(w.byID, e.ID)
			w.alloc.Free(e.ID)
			removed++
			continue
		}
		w.order[n] = e
		n++
	}
	// Zero the tail so removed entities can be collected.
	for i := n; i < len(w.order); i++ {
		w.order[i] = nil
	}
	w.order = w.order[:n]
	return removed
}
