package game

import "horde-sim/internal/game/spatial"

// TypeMatrix is the symmetric table of which kind pairs collide at
// all. Both kinds pack into one byte (4 bits each, smaller kind high);
// an absent key means no collision, which keeps the table sparse.
type TypeMatrix struct {
	rules map[uint8]bool
}

func pairBits(a, b spatial.Kind) uint8 {
	if a > b {
		a, b = b, a
	}
	return uint8(a)<<4 | uint8(b)
}

// NewTypeMatrix returns the stock rule set. Notable holes: players
// pass through projectiles and area effects (those only ever damage
// enemies), pickups touch nothing but players, and nothing collides
// with an area effect except enemies.
func NewTypeMatrix() *TypeMatrix {
	m := &TypeMatrix{rules: make(map[uint8]bool, 16)}
	for _, p := range [][2]spatial.Kind{
		{spatial.KindPlayer, spatial.KindEnemy},
		{spatial.KindPlayer, spatial.KindPickup},
		{spatial.KindEnemy, spatial.KindEnemy},
		{spatial.KindEnemy, spatial.KindProjectile},
		{spatial.KindEnemy, spatial.KindAreaEffect},
		{spatial.KindEnemy, spatial.KindObject},
		{spatial.KindEnemy, spatial.KindObstacle},
		{spatial.KindProjectile, spatial.KindObject},
		{spatial.KindProjectile, spatial.KindObstacle},
		{spatial.KindObject, spatial.KindObject},
		{spatial.KindObject, spatial.KindObstacle},
		{spatial.KindObstacle, spatial.KindObstacle},
	} {
		m.SetRule(p[0], p[1], true)
	}
	return m
}

// ShouldCollide reports whether the two kinds may collide. Symmetric
// by construction.
func (m *TypeMatrix) ShouldCollide(a, b spatial.Kind) bool {
	return m.rules[pairBits(a, b)]
}

// SetRule enables or disables a kind pair at runtime.
func (m *TypeMatrix) SetRule(a, b spatial.Kind, collide bool) {
	if collide {
		m.rules[pairBits(a, b)] = true
		return
	}
	delete(m.rules, pairBits(a, b))
}
