package debugdraw

import (
	"bytes"
	"image/png"
	"testing"

	"horde-sim/internal/game"
	"horde-sim/internal/game/spatial"
)

func newTestEngine(t *testing.T) *game.Engine {
	t.Helper()
	e := game.NewEngine(game.EngineConfig{
		TickRate:    30,
		WorldWidth:  320,
		WorldHeight: 240,
		CellSize:    64,
	})

	e.AddEntity(game.EntitySpec{
		Pos:      game.Vec2{X: 100, Y: 100},
		Collider: &game.Collider{Kind: spatial.KindPlayer, Size: game.Vec2{X: 24, Y: 24}},
		Physics:  &game.Physics{Vel: game.Vec2{X: 5, Y: 0}},
		Health:   &game.Health{HP: 100, MaxHP: 100},
	})
	e.AddEntity(game.EntitySpec{
		Pos:      game.Vec2{X: 110, Y: 100},
		Collider: &game.Collider{Kind: spatial.KindEnemy, Size: game.Vec2{X: 20, Y: 20}},
		Physics:  &game.Physics{},
		Health:   &game.Health{HP: 30, MaxHP: 30},
	})
	e.Tick()
	return e
}

func TestRenderPNGProducesValidImage(t *testing.T) {
	r := NewRenderer(newTestEngine(t))

	data, err := r.RenderPNG()
	if err != nil {
		t.Fatalf("RenderPNG failed: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a decodable PNG: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != 320 || bounds.Dy() != 240 {
		t.Errorf("frame size = %dx%d, want 320x240", bounds.Dx(), bounds.Dy())
	}
}

func TestRenderPNGEmptyWorld(t *testing.T) {
	e := game.NewEngine(game.EngineConfig{
		TickRate:    30,
		WorldWidth:  128,
		WorldHeight: 128,
		CellSize:    64,
	})
	e.Tick()

	data, err := NewRenderer(e).RenderPNG()
	if err != nil {
		t.Fatalf("RenderPNG failed on empty world: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("empty-world frame not decodable: %v", err)
	}
}
