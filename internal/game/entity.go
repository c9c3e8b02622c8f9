package game

import (
	"math"

	"horde-sim/internal/game/spatial"
)

// Transform holds an entity's position in world units.
type Transform struct {
	Pos Vec2
}

// Collider describes an entity's collision shape and classification.
type Collider struct {
	Kind spatial.Kind

	// Size is the AABB extent, centered on the transform. Zero size
	// means a point entity in the grid.
	Size Vec2

	// Radius is the circle bound used by the crowd resolver and by
	// beam tests against this entity. Zero falls back to half the
	// larger box edge.
	Radius float64

	// Damage dealt on contact; read by the damage hook for
	// projectiles and area effects.
	Damage float64

	// Beam marks a collider tested as a widened segment instead of a
	// box. Dir must be unit length; Length 0 means an unbounded ray.
	Beam      bool
	Dir       Vec2
	Length    float64
	HalfWidth float64
}

// Area returns the collision box centered on pos.
func (c *Collider) Area(pos Vec2) AABB {
	return AABB{pos.X - c.Size.X/2, pos.Y - c.Size.Y/2, c.Size.X, c.Size.Y}
}

// BroadRadius is the circle bound for narrow-phase beam tests.
func (c *Collider) BroadRadius() float64 {
	if c.Radius > 0 {
		return c.Radius
	}
	return math.Max(c.Size.X, c.Size.Y) / 2
}

// Physics carries velocity and the sleep flag. Sleep is an external
// optimization owned by whoever integrates motion; the resolvers only
// ever wake entities, never put them to sleep.
type Physics struct {
	Vel    Vec2
	Asleep bool
}

func (p *Physics) Wake() { p.Asleep = false }

// Health is the contact damage target. Projectiles and area effects
// subtract from it through the engine's damage hook.
type Health struct {
	HP    float64
	MaxHP float64
}

// Entity ties an id to its components. A nil component means absent:
// pipeline steps skip entities and pairs lacking what they need for
// the tick instead of panicking.
type Entity struct {
	ID spatial.EntityID

	Transform *Transform
	Collider  *Collider
	Physics   *Physics
	Health    *Health

	// PendingRemoval excludes the entity from new collision pairs
	// until the end-of-tick despawn pass recycles it.
	PendingRemoval bool
}

// Kind returns the collider kind, or false for shapeless entities.
func (e *Entity) Kind() (spatial.Kind, bool) {
	if e.Collider == nil {
		return 0, false
	}
	return e.Collider.Kind, true
}
