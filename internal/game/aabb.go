package game

import "math"

// AABB is an axis-aligned box anchored at its top-left corner.
type AABB struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	W float64 `json:"w" msgpack:"w"`
	H float64 `json:"h" msgpack:"h"`
}

func (b AABB) MaxX() float64 { return b.X + b.W }

func (b AABB) MaxY() float64 { return b.Y + b.H }

func (b AABB) Center() Vec2 { return Vec2{b.X + b.W/2, b.Y + b.H/2} }

// Overlaps reports strict overlap. Boxes that only touch along an
// edge do not collide.
func (b AABB) Overlaps(o AABB) bool {
	return b.X < o.MaxX() && b.MaxX() > o.X && b.Y < o.MaxY() && b.MaxY() > o.Y
}

// Overlap returns the per-axis penetration depths. Meaningful only
// when Overlaps is true.
func (b AABB) Overlap(o AABB) (x, y float64) {
	x = math.Min(b.MaxX(), o.MaxX()) - math.Max(b.X, o.X)
	y = math.Min(b.MaxY(), o.MaxY()) - math.Max(b.Y, o.Y)
	return
}
