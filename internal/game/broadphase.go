package game

import (
	"math"

	"horde-sim/internal/game/spatial"
)

// Tier buckets entities by distance from the focus point, trading
// precision for cadence the farther out they are.
type Tier uint8

const (
	TierCritical Tier = iota
	TierNormal
	TierDistant
)

func (t Tier) String() string {
	switch t {
	case TierCritical:
		return "critical"
	case TierNormal:
		return "normal"
	default:
		return "distant"
	}
}

// tierSpec drives search radius scaling, which query cache a tier
// reads, and how often its entities are processed.
type tierSpec struct {
	radiusMult float64
	query      spatial.Query
	every      uint64
}

var tierSpecs = [3]tierSpec{
	TierCritical: {radiusMult: 1.0, query: spatial.QueryCollision, every: 1},
	TierNormal:   {radiusMult: 1.2, query: spatial.QueryCollision, every: 2},
	TierDistant:  {radiusMult: 1.5, query: spatial.QueryCollisionDistant, every: 4},
}

// Squared distance ladder: critical inside 100 units, normal inside
// 300, distant inside 500. Farther out stays distant; far pairs are
// still checked, just at quarter rate.
var tierThresholds = [3]float64{100 * 100, 300 * 300, 500 * 500}

// TierFor buckets a squared distance from the focus point.
func TierFor(distSq float64) Tier {
	for t, limit := range tierThresholds {
		if distSq <= limit {
			return Tier(t)
		}
	}
	return TierDistant
}

// CollisionResult is one confirmed overlap. Results are produced and
// consumed within a single tick, never persisted.
type CollisionResult struct {
	A, B     spatial.EntityID
	OverlapX float64
	OverlapY float64
	AreaA    AABB
	AreaB    AABB
}

// Depth is the penetration along the axis of least overlap.
func (r CollisionResult) Depth() float64 {
	return math.Min(r.OverlapX, r.OverlapY)
}

// CollisionSystem is the tiered broad phase. Per tick it walks every
// entity with a collider, pulls candidates from the grid cache at a
// tier-scaled radius, filters them through the type matrix and the
// per-tick pair set, and narrow-phase tests the survivors.
type CollisionSystem struct {
	world   *World
	grid    *spatial.Grid
	matrix  *TypeMatrix
	checked *spatial.PairSet

	// focus is the tiering reference point. Nil reproduces the stock
	// wiring: distance zero for everyone, so every entity runs the
	// critical tier every tick.
	focus *Vec2

	results []CollisionResult
	damage  []CollisionResult
	tested  int
}

// NewCollisionSystem wires the broad phase to its collaborators. The
// grid handle is explicit; nothing here reaches for shared globals.
func NewCollisionSystem(world *World, grid *spatial.Grid, matrix *TypeMatrix) *CollisionSystem {
	return &CollisionSystem{
		world:   world,
		grid:    grid,
		matrix:  matrix,
		checked: spatial.NewPairSet(),
		results: make([]CollisionResult, 0, 256),
		damage:  make([]CollisionResult, 0, 64),
	}
}

// SetFocus enables distance tiering around a reference point, e.g.
// the player's position.
func (s *CollisionSystem) SetFocus(p Vec2) { s.focus = &p }

// ClearFocus restores the stock behavior: everything critical.
func (s *CollisionSystem) ClearFocus() { s.focus = nil }

// TierOf returns the tier the system would use for an entity this
// tick.
func (s *CollisionSystem) TierOf(e *Entity) Tier {
	if s.focus == nil || e.Transform == nil {
		return TierCritical
	}
	return TierFor(e.Transform.Pos.Sub(*s.focus).LenSq())
}

// Detect runs one broad-phase pass. The per-tick checked set and both
// result lists reset at the start; results stay valid until the next
// call.
func (s *CollisionSystem) Detect(tick uint64) {
	s.checked.Clear()
	s.results = s.results[:0]
	s.damage = s.damage[:0]
	s.tested = 0

	for _, e := range s.world.Entities() {
		if e.Collider == nil || e.Transform == nil || e.PendingRemoval {
			continue
		}
		spec := &tierSpecs[s.TierOf(e)]
		if tick%spec.every != 0 {
			continue
		}

		area := e.Collider.Area(e.Transform.Pos)
		radius := math.Max(area.W, area.H) * 2 * spec.radiusMult
		for _, otherID := range s.grid.Nearby(e.Transform.Pos.X, e.Transform.Pos.Y, radius, spec.query) {
			if otherID == e.ID {
				continue
			}
			other := s.world.Get(otherID)
			if other == nil || other.Collider == nil || other.Transform == nil || other.PendingRemoval {
				continue
			}
			if s.checked.Seen(e.ID, otherID) {
				continue
			}
			if !s.matrix.ShouldCollide(e.Collider.Kind, other.Collider.Kind) {
				continue
			}
			s.checked.Visit(e.ID, otherID)
			s.testPair(e, other)
		}
	}
}

// testPair runs the narrow phase for one candidate pair.
func (s *CollisionSystem) testPair(a, b *Entity) {
	s.tested++
	if a.Collider.Beam || b.Collider.Beam {
		s.testBeam(a, b)
		return
	}

	areaA := a.Collider.Area(a.Transform.Pos)
	areaB := b.Collider.Area(b.Transform.Pos)
	if !areaA.Overlaps(areaB) {
		return
	}
	ox, oy := areaA.Overlap(areaB)
	s.record(a, b, ox, oy, areaA, areaB)
}

// testBeam tests a widened segment against the other entity's circle
// bound. Targets behind the beam origin never hit.
func (s *CollisionSystem) testBeam(a, b *Entity) {
	beam, other := a, b
	if !a.Collider.Beam {
		beam, other = b, a
	}
	dir := beam.Collider.Dir
	if dir.IsZero() {
		return // no direction to project on
	}

	rel := other.Transform.Pos.Sub(beam.Transform.Pos)
	along := rel.Dot(dir)
	if along < 0 {
		return
	}
	if l := beam.Collider.Length; l > 0 && along > l {
		along = l
	}

	closest := beam.Transform.Pos.Add(dir.Scale(along))
	distSq := other.Transform.Pos.Sub(closest).LenSq()
	reach := beam.Collider.HalfWidth + other.Collider.BroadRadius()
	if distSq > reach*reach {
		return
	}

	// Beams have no meaningful box overlap; report the radial
	// penetration on both axes.
	pen := reach - math.Sqrt(distSq)
	s.record(a, b, pen, pen, a.Collider.Area(a.Transform.Pos), b.Collider.Area(b.Transform.Pos))
}

func (s *CollisionSystem) record(a, b *Entity, ox, oy float64, areaA, areaB AABB) {
	res := CollisionResult{A: a.ID, B: b.ID, OverlapX: ox, OverlapY: oy, AreaA: areaA, AreaB: areaB}
	s.results = append(s.results, res)

	ka, kb := a.Collider.Kind, b.Collider.Kind
	if ka == spatial.KindProjectile || ka == spatial.KindAreaEffect ||
		kb == spatial.KindProjectile || kb == spatial.KindAreaEffect {
		s.damage = append(s.damage, res)
	}
}

// Results returns this tick's confirmed pairs, valid until the next
// Detect.
func (s *CollisionSystem) Results() []CollisionResult { return s.results }

// DamageResults returns the subset of pairs involving a projectile or
// area effect, consumed once per tick by the damage hook.
func (s *CollisionSystem) DamageResults() []CollisionResult { return s.damage }

// TestsRun returns how many narrow-phase tests the last Detect ran.
func (s *CollisionSystem) TestsRun() int { return s.tested }

// PairsChecked returns how many unique pairs the last Detect visited.
func (s *CollisionSystem) PairsChecked() int { return s.checked.Len() }
