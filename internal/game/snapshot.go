package game

import (
	"sync/atomic"
	"time"

	"horde-sim/internal/game/spatial"
)

// Snapshot caps. The API and websocket consumers render at most this
// much state per frame regardless of how large the simulation grows.
const (
	MaxSnapshotEntities = 4096
	MaxSnapshotPairs    = 1024
)

// EntitySnapshot is an immutable copy of one entity's observable
// state. Value types only, safe to hand across goroutines.
type EntitySnapshot struct {
	ID     uint32  `json:"id" msgpack:"id"`
	Kind   string  `json:"kind" msgpack:"k"`
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	VX     float64 `json:"vx" msgpack:"vx"`
	VY     float64 `json:"vy" msgpack:"vy"`
	Radius float64 `json:"radius" msgpack:"r"`
	HP     float64 `json:"hp" msgpack:"hp"`
	Asleep bool    `json:"asleep" msgpack:"s"`
}

// PairSnapshot is one confirmed collision pair, for debug overlays.
type PairSnapshot struct {
	A        uint32  `json:"a" msgpack:"a"`
	B        uint32  `json:"b" msgpack:"b"`
	OverlapX float64 `json:"overlapX" msgpack:"ox"`
	OverlapY float64 `json:"overlapY" msgpack:"oy"`
}

// SimSnapshot is a complete immutable view of one tick, produced at
// the end of the tick and read lock-free by the API and websocket
// consumers.
type SimSnapshot struct {
	Sequence  uint64    `json:"sequence" msgpack:"seq"`
	Timestamp time.Time `json:"timestamp" msgpack:"ts"`
	Tick      uint64    `json:"tick" msgpack:"t"`

	Entities []EntitySnapshot `json:"entities" msgpack:"e"`
	Pairs    []PairSnapshot   `json:"pairs" msgpack:"p"`

	EntityCount   int   `json:"entityCount" msgpack:"ec"`
	PairCount     int   `json:"pairCount" msgpack:"pc"`
	DamageCount   int   `json:"damageCount" msgpack:"dc"`
	TickDurationU int64 `json:"tickDurationUs" msgpack:"du"`
}

// SnapshotPool triple-buffers snapshots so the tick goroutine writes
// while readers keep a complete earlier frame, with no locks and no
// per-tick allocation.
type SnapshotPool struct {
	snapshots [3]SimSnapshot
	writeIdx  uint32 // atomic
	readIdx   uint32 // atomic
	sequence  uint64 // atomic
}

// NewSnapshotPool pre-allocates all three buffers at their caps.
func NewSnapshotPool() *SnapshotPool {
	pool := &SnapshotPool{}
	for i := range pool.snapshots {
		pool.snapshots[i] = SimSnapshot{
			Entities: make([]EntitySnapshot, 0, MaxSnapshotEntities),
			Pairs:    make([]PairSnapshot, 0, MaxSnapshotPairs),
		}
	}
	return pool
}

// AcquireWrite returns the next write slot with reset slices.
// Producer only; the engine calls this from the tick goroutine.
func (p *SnapshotPool) AcquireWrite() *SimSnapshot {
	idx := atomic.AddUint32(&p.writeIdx, 1) % 3
	snap := &p.snapshots[idx]

	snap.Entities = snap.Entities[:0]
	snap.Pairs = snap.Pairs[:0]
	snap.Sequence = atomic.AddUint64(&p.sequence, 1)
	snap.Timestamp = time.Now()
	return snap
}

// PublishWrite makes the just-written snapshot visible to readers.
func (p *SnapshotPool) PublishWrite() {
	atomic.StoreUint32(&p.readIdx, atomic.LoadUint32(&p.writeIdx))
}

// AcquireRead returns the latest published snapshot.
func (p *SnapshotPool) AcquireRead() *SimSnapshot {
	idx := atomic.LoadUint32(&p.readIdx) % 3
	return &p.snapshots[idx]
}

// fill copies the observable world state into the snapshot.
func (snap *SimSnapshot) fill(w *World, results []CollisionResult, damageCount int, tick uint64, dur time.Duration) {
	for _, e := range w.Entities() {
		if len(snap.Entities) >= MaxSnapshotEntities {
			break
		}
		if e.Transform == nil {
			continue
		}
		es := EntitySnapshot{
			ID: uint32(e.ID),
			X:  e.Transform.Pos.X,
			Y:  e.Transform.Pos.Y,
		}
		if e.Collider != nil {
			es.Kind = e.Collider.Kind.String()
			es.Radius = e.Collider.BroadRadius()
		} else {
			es.Kind = spatial.Kind(0).String()
		}
		if e.Physics != nil {
			es.VX = e.Physics.Vel.X
			es.VY = e.Physics.Vel.Y
			es.Asleep = e.Physics.Asleep
		}
		if e.Health != nil {
			es.HP = e.Health.HP
		}
		snap.Entities = append(snap.Entities, es)
	}

	for _, r := range results {
		if len(snap.Pairs) >= MaxSnapshotPairs {
			break
		}
		snap.Pairs = append(snap.Pairs, PairSnapshot{
			A:        uint32(r.A),
			B:        uint32(r.B),
			OverlapX: r.OverlapX,
			OverlapY: r.OverlapY,
		})
	}

	snap.Tick = tick
	snap.EntityCount = w.Count()
	snap.PairCount = len(results)
	snap.DamageCount = damageCount
	snap.TickDurationU = dur.Microseconds()
}
