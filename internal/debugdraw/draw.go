// Package debugdraw renders a simulation snapshot to a PNG frame:
// grid occupancy heat, entity shapes, velocities, and confirmed
// collision pairs. It feeds the /api/debug/frame.png endpoint.
package debugdraw

import (
	"bytes"
	"image/color"
	"os"

	"github.com/fogleman/gg"

	"horde-sim/internal/game"
)

// Source is the slice of the engine the renderer reads. Snapshot and
// Cells return copies, so rendering never holds the engine lock for
// the duration of a frame.
type Source interface {
	Snapshot() *game.SimSnapshot
	Cells() []game.CellOccupancy
	Config() game.EngineConfig
}

// kindColors maps entity kinds to their debug palette.
var kindColors = map[string]color.RGBA{
	"player":      {80, 200, 255, 255},
	"enemy":       {230, 70, 70, 255},
	"projectile":  {255, 220, 90, 255},
	"pickup":      {120, 230, 120, 255},
	"area_effect": {200, 110, 240, 120},
	"object":      {180, 180, 190, 255},
	"obstacle":    {110, 90, 60, 255},
}

var defaultKindColor = color.RGBA{255, 255, 255, 255}

// Renderer draws debug frames at world resolution.
type Renderer struct {
	src Source
}

// NewRenderer wraps a snapshot source.
func NewRenderer(src Source) *Renderer {
	return &Renderer{src: src}
}

// RenderPNG draws the current frame and returns it PNG-encoded.
func (r *Renderer) RenderPNG() ([]byte, error) {
	cfg := r.src.Config()
	width := int(cfg.WorldWidth)
	height := int(cfg.WorldHeight)

	dc := gg.NewContext(width, height)

	// Background
	dc.SetColor(color.RGBA{12, 12, 28, 255})
	dc.DrawRectangle(0, 0, float64(width), float64(height))
	dc.Fill()

	r.drawCells(dc, cfg)
	r.drawGridLines(dc, cfg)

	snap := r.src.Snapshot()
	r.drawPairs(dc, snap)
	r.drawEntities(dc, snap)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SavePNG writes the current frame to disk.
func (r *Renderer) SavePNG(path string) error {
	data, err := r.RenderPNG()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// drawCells shades occupied cells, hotter with more entities.
func (r *Renderer) drawCells(dc *gg.Context, cfg game.EngineConfig) {
	for _, cell := range r.src.Cells() {
		heat := cell.Count * 24
		if heat > 140 {
			heat = 140
		}
		dc.SetColor(color.RGBA{uint8(40 + heat), 40, 60, 90})
		dc.DrawRectangle(
			float64(cell.Cx)*cfg.CellSize,
			float64(cell.Cy)*cfg.CellSize,
			cfg.CellSize,
			cfg.CellSize,
		)
		dc.Fill()
	}
}

// drawGridLines overlays the cell boundaries.
func (r *Renderer) drawGridLines(dc *gg.Context, cfg game.EngineConfig) {
	dc.SetColor(color.RGBA{30, 30, 45, 255})
	dc.SetLineWidth(1)

	for x := 0.0; x <= cfg.WorldWidth; x += cfg.CellSize {
		dc.DrawLine(x, 0, x, cfg.WorldHeight)
		dc.Stroke()
	}
	for y := 0.0; y <= cfg.WorldHeight; y += cfg.CellSize {
		dc.DrawLine(0, y, cfg.WorldWidth, y)
		dc.Stroke()
	}
}

// drawPairs connects confirmed collision pairs.
func (r *Renderer) drawPairs(dc *gg.Context, snap *game.SimSnapshot) {
	if len(snap.Pairs) == 0 {
		return
	}

	byID := make(map[uint32]*game.EntitySnapshot, len(snap.Entities))
	for i := range snap.Entities {
		byID[snap.Entities[i].ID] = &snap.Entities[i]
	}

	dc.SetColor(color.RGBA{255, 120, 60, 200})
	dc.SetLineWidth(2)
	for _, pair := range snap.Pairs {
		a, okA := byID[pair.A]
		b, okB := byID[pair.B]
		if !okA || !okB {
			continue
		}
		dc.DrawLine(a.X, a.Y, b.X, b.Y)
		dc.Stroke()
	}
}

// drawEntities draws each entity as a kind-colored circle with a
// velocity whisker. Sleeping objects render dimmed.
func (r *Renderer) drawEntities(dc *gg.Context, snap *game.SimSnapshot) {
	for i := range snap.Entities {
		e := &snap.Entities[i]

		radius := e.Radius
		if radius < 2 {
			radius = 2
		}

		c := kindColors[e.Kind]
		if c.A == 0 {
			c = defaultKindColor
		}
		if e.Asleep {
			c.A = 100
		}

		dc.SetColor(c)
		dc.DrawCircle(e.X, e.Y, radius)
		dc.Fill()

		if e.VX != 0 || e.VY != 0 {
			dc.SetColor(color.RGBA{255, 255, 255, 160})
			dc.SetLineWidth(1)
			dc.DrawLine(e.X, e.Y, e.X+e.VX*3, e.Y+e.VY*3)
			dc.Stroke()
		}
	}
}
