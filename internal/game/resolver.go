package game

import "horde-sim/internal/game/spatial"

// Contact response constants. These are compiled in rather than
// configured: downstream balance was tuned against exactly these
// numbers and the resolvers must stay numerically reproducible.
const (
	// pushForce is how far a player shoves an enemy per contact tick.
	pushForce = 4.0
	// restitution is the bounciness of the generic impulse exchange.
	restitution = 0.2
	// impulseDamping bleeds energy out of both bodies after an impulse.
	impulseDamping = 0.8
	// obstacleDamping halves an enemy's speed when it bounces off an
	// immovable obstacle.
	obstacleDamping = 0.5
)

// ContactResolver applies the kind-specific collision response to a
// confirmed pair. It is a pure dispatch over the two colliders' kinds;
// all state lives in the world's components.
type ContactResolver struct {
	world *World
}

// NewContactResolver wires the resolver to the world it mutates.
func NewContactResolver(world *World) *ContactResolver {
	return &ContactResolver{world: world}
}

// Resolve dispatches one collision result. Pairs with missing
// components are skipped for the tick, never a panic.
func (r *ContactResolver) Resolve(res CollisionResult) {
	a := r.world.Get(res.A)
	b := r.world.Get(res.B)
	if a == nil || b == nil || a.Transform == nil || b.Transform == nil ||
		a.Collider == nil || b.Collider == nil {
		return
	}

	ka, kb := a.Collider.Kind, b.Collider.Kind

	// Projectiles and area effects deal damage upstream; they have no
	// positional response at all.
	if ka == spatial.KindProjectile || ka == spatial.KindAreaEffect ||
		kb == spatial.KindProjectile || kb == spatial.KindAreaEffect {
		return
	}

	switch {
	case ka == spatial.KindPlayer && kb == spatial.KindEnemy:
		r.pushEnemy(a, b, res)
	case ka == spatial.KindEnemy && kb == spatial.KindPlayer:
		r.pushEnemy(b, a, res)
	case ka == spatial.KindObstacle && kb == spatial.KindEnemy:
		r.deflectOffObstacle(a, b, res)
	case ka == spatial.KindEnemy && kb == spatial.KindObstacle:
		r.deflectOffObstacle(b, a, res)
	default:
		r.impulseExchange(a, b, res)
	}
}

// pushEnemy shoves the enemy along the player→enemy normal by the
// fixed push force. The player does not move.
func (r *ContactResolver) pushEnemy(player, enemy *Entity, res CollisionResult) {
	n := enemy.Transform.Pos.Sub(player.Transform.Pos).Normalize()
	enemy.Transform.Pos = enemy.Transform.Pos.Add(n.Scale(pushForce))
	wake(enemy)
	wake(player)
}

// deflectOffObstacle moves the enemy fully out of the overlap and
// reflects its velocity about the contact normal, halving the speed.
func (r *ContactResolver) deflectOffObstacle(obstacle, enemy *Entity, res CollisionResult) {
	n := enemy.Transform.Pos.Sub(obstacle.Transform.Pos).Normalize()
	enemy.Transform.Pos = enemy.Transform.Pos.Add(n.Scale(res.Depth()))

	if enemy.Physics != nil {
		v := enemy.Physics.Vel
		enemy.Physics.Vel = v.Sub(n.Scale(2 * v.Dot(n))).Scale(obstacleDamping)
	}
	wake(enemy)
}

// impulseExchange is the generic dynamic-vs-dynamic response: an
// elastic impulse with restitution, a symmetric positional split, and
// a final damping pass on both bodies.
func (r *ContactResolver) impulseExchange(a, b *Entity, res CollisionResult) {
	if a.Physics == nil || b.Physics == nil {
		return
	}

	n := b.Transform.Pos.Sub(a.Transform.Pos).Normalize()
	if n.IsZero() {
		return // coincident centers, no direction to resolve along
	}

	vRel := b.Physics.Vel.Sub(a.Physics.Vel)
	vn := vRel.Dot(n)
	if vn > 0 {
		return // already separating
	}

	j := -(1 + restitution) * vn
	a.Physics.Vel = a.Physics.Vel.Sub(n.Scale(j))
	b.Physics.Vel = b.Physics.Vel.Add(n.Scale(j))

	half := res.Depth() / 2
	a.Transform.Pos = a.Transform.Pos.Sub(n.Scale(half))
	b.Transform.Pos = b.Transform.Pos.Add(n.Scale(half))

	a.Physics.Vel = a.Physics.Vel.Scale(impulseDamping)
	b.Physics.Vel = b.Physics.Vel.Scale(impulseDamping)

	wake(a)
	wake(b)
}

// wake clears the sleep flag on any entity involved in a confirmed
// collision. Putting entities to sleep is the integrator's business.
func wake(e *Entity) {
	if e.Physics != nil {
		e.Physics.Wake()
	}
}
