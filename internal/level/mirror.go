package level

import "levelgen/internal/geom"

// mirror flips the generated geometry and everything placed so far across
// the vertical center line.
func (l *Level) mirror() {
	w := l.Borders.Width
	fw := float64(w)
	flipX := func(x int) int { return w - x }
	flipRect := func(r geom.Rect) geom.Rect {
		r.X = w - r.Right()
		return r
	}

	l.Graph.MirrorX(fw, float64(l.Params.GridCellSize))
	for _, island := range l.AbyssIslands {
		island.Area = flipRect(island.Area)
		if island.layout != nil {
			island.layout.Borders = island.Area
		}
	}
	for _, wall := range l.ExtraWalls {
		wall.MirrorX(fw)
	}
	for _, c := range l.Caves {
		c.Area = flipRect(c.Area)
		c.StartPos.X = flipX(c.StartPos.X)
		c.EndPos.X = flipX(c.EndPos.X)
	}
	for _, t := range l.Tunnels {
		for i := range t.Nodes {
			t.Nodes[i].X = flipX(t.Nodes[i].X)
		}
	}
	for i := range l.Positions {
		l.Positions[i].Position.X = flipX(l.Positions[i].Position.X)
	}
	l.WayPoints.MirrorX(fw)
	if l.SeaFloor != nil {
		l.SeaFloor.mirrorX(w)
	}

	l.StartPosition.X = flipX(l.StartPosition.X)
	l.EndPosition.X = flipX(l.EndPosition.X)
	l.StartExitPosition.X = flipX(l.StartExitPosition.X)
	l.EndExitPosition.X = flipX(l.EndExitPosition.X)

	l.geometryMirrored = true
	l.computeDistanceField()
}
