package game

import (
	"testing"

	"horde-sim/internal/game/spatial"
)

func TestAllocatorRecyclesIDs(t *testing.T) {
	var a IDAllocator

	first := a.Alloc()
	second := a.Alloc()
	if first == second {
		t.Fatal("allocator handed out the same id twice")
	}

	a.Free(first)
	if got := a.Alloc(); got != first {
		t.Errorf("Alloc after Free = %d, want recycled %d", got, first)
	}
	if got := a.Alloc(); got != second+1 {
		t.Errorf("Alloc = %d, want fresh %d", got, second+1)
	}
}

func TestWorldSpawnOrderIsStable(t *testing.T) {
	w := NewWorld(800, 600)

	var ids []spatial.EntityID
	for i := 0; i < 5; i++ {
		ids = append(ids, w.Spawn().ID)
	}

	for i, e := range w.Entities() {
		if e.ID != ids[i] {
			t.Fatalf("order[%d] = %d, want %d", i, e.ID, ids[i])
		}
	}
}

func TestWorldDespawn(t *testing.T) {
	w := NewWorld(800, 600)
	a := w.Spawn()
	b := w.Spawn()

	if !w.Despawn(a.ID) {
		t.Fatal("Despawn returned false for a live entity")
	}
	if w.Despawn(a.ID) {
		t.Error("Despawn succeeded twice for the same id")
	}
	if w.Count() != 1 || w.Get(b.ID) == nil {
		t.Error("wrong entity removed")
	}

	// The freed id comes back on the next spawn.
	if got := w.Spawn().ID; got != a.ID {
		t.Errorf("respawn id = %d, want recycled %d", got, a.ID)
	}
}

func TestWorldCompact(t *testing.T) {
	w := NewWorld(800, 600)
	keep1 := w.Spawn()
	gone := w.Spawn()
	keep2 := w.Spawn()
	gone.PendingRemoval = true

	var seen []spatial.EntityID
	removed := w.compact(func(e *Entity) { seen = append(seen, e.ID) })

	if removed != 1 || len(seen) != 1 || seen[0] != gone.ID {
		t.Fatalf("compact removed %d (%v), want just %d", removed, seen, gone.ID)
	}
	if w.Count() != 2 {
		t.Fatalf("count = %d, want 2", w.Count())
	}
	// Survivors keep their relative order.
	if w.Entities()[0] != keep1 || w.Entities()[1] != keep2 {
		t.Error("compact broke spawn order")
	}
	if w.Get(gone.ID) != nil {
		t.Error("compacted entity still resolvable")
	}
}
