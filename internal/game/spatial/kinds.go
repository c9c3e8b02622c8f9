package spatial

// EntityID is the dense numeric handle the grid stores. The world's
// allocator assigns ids monotonically and recycles them only through
// its explicit free list.
type EntityID uint32

// Kind classifies an entity into one of the fixed per-cell buckets.
type Kind uint8

const (
	KindPlayer Kind = iota
	KindEnemy
	KindProjectile
	KindPickup
	KindAreaEffect
	KindObject
	KindObstacle

	// KindCount sizes the per-cell bucket arrays.
	KindCount
)

var kindNames = [KindCount]string{
	KindPlayer:     "player",
	KindEnemy:      "enemy",
	KindProjectile: "projectile",
	KindPickup:     "pickup",
	KindAreaEffect: "area_effect",
	KindObject:     "object",
	KindObstacle:   "obstacle",
}

func (k Kind) String() string {
	if k < KindCount {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind maps a kind name back to its enum value.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// Query selects which kind buckets a spatial lookup unions together.
// Each query class carries its own cache tuning (see CacheConfig).
type Query uint8

const (
	QueryCollision Query = iota
	QueryDamage
	QueryCollisionDistant
	QueryPickup
	QueryObstacle
	QueryObject

	queryCount
)

var queryNames = [queryCount]string{
	QueryCollision:        "collision",
	QueryDamage:           "damage",
	QueryCollisionDistant: "collision_distant",
	QueryPickup:           "pickup",
	QueryObstacle:         "obstacle",
	QueryObject:           "object",
}

func (q Query) String() string {
	if q < queryCount {
		return queryNames[q]
	}
	return "unknown"
}

// queryKinds maps each query class to the buckets it reads. An entity
// lives in exactly one bucket per cell, so a single cell never yields
// duplicates; only multi-cell coverage does.
var queryKinds = [queryCount][]Kind{
	QueryCollision:        {KindEnemy, KindPlayer, KindProjectile, KindAreaEffect, KindObject, KindObstacle},
	QueryDamage:           {KindEnemy, KindProjectile, KindAreaEffect},
	QueryCollisionDistant: {KindEnemy, KindPlayer, KindProjectile, KindAreaEffect, KindObject, KindObstacle},
	QueryPickup:           {KindPickup},
	QueryObstacle:         {KindObstacle},
	QueryObject:           {KindObject},
}

// Queries returns every query class, for metrics registration loops.
func Queries() []Query {
	return []Query{QueryCollision, QueryDamage, QueryCollisionDistant, QueryPickup, QueryObstacle, QueryObject}
}
