package level

import (
	"context"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"levelgen/internal/cave"
)

const (
	iceChunkEdgeMargin = 5000
	iceChunkVertices   = 8
)

// generateIceChunks sets floating chunks of ice bobbing up and down in open
// stretches of the tunnels, away from the start and the end.
func (l *Level) generateIceChunks(context.Context) error {
	p := l.Params.IceChunks
	if p.FloatingCount <= 0 {
		return nil
	}
	mmpw := float64(l.MinMainPathWidth)
	var candidates []mgl64.Vec2
	for _, pos := range l.PositionsOf(PositionMainPath | PositionSidePath) {
		x := float64(pos.Position.X)
		if pos.Position.X < iceChunkEdgeMargin || pos.Position.X > l.Borders.Width-iceChunkEdgeMargin {
			continue
		}
		if math.Abs(x-float64(l.StartPosition.X)) < mmpw*2 || math.Abs(x-float64(l.EndPosition.X)) < mmpw*2 {
			continue
		}
		if len(l.layoutOfCellAt(pos.Position.Vec()).TooCloseCells(pos.Position.Vec(), mmpw*0.7)) > 0 {
			continue
		}
		candidates = append(candidates, pos.Position.Vec())
	}

	for i := 0; i < p.FloatingCount && len(candidates) > 0; i++ {
		k := l.rng.Int(len(candidates))
		pos := candidates[k]
		candidates = append(candidates[:k], candidates[k+1:]...)

		radius := p.Radius.Lerp(l.rng.Float())
		wall, err := cave.NewWall(cave.RandomChunk(l.rng, radius, iceChunkVertices, radius*0.8))
		if err != nil {
			l.Diagnostics.DroppedWalls++
			l.logf("ice chunk at %v: %v", pos, err)
			continue
		}
		wall.Translate(pos)
		wall.Static = false
		wall.MoveAmount = mgl64.Vec2{0, mmpw * 0.7}
		wall.MoveSpeed = p.MoveSpeed.Lerp(l.rng.Float())
		l.ExtraWalls = append(l.ExtraWalls, wall)
	}
	return nil
}

// layoutOfCellAt returns the island layout covering p, or the main layout.
func (l *Level) layoutOfCellAt(p mgl64.Vec2) *cave.Layout {
	for _, island := range l.AbyssIslands {
		if island.layout != nil && island.Area.ContainsVec(p) {
			return island.layout
		}
	}
	return l.Layout
}
