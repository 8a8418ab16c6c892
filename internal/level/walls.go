package level

import (
	"context"
	"math"

	"github.com/zyedidia/generic/mapset"

	"levelgen/internal/cave"
	"levelgen/internal/geom"
	"levelgen/internal/world"
)

const destructibleWallHealth = 50.0

// generateWalls settles which cells stay solid: it trims the ragged level
// edges, punches holes into the bottom half, mirrors the level if requested
// and turns part of every cave into destructible walls.
func (l *Level) generateWalls(ctx context.Context) error {
	inPath := mapset.New[world.CellID]()
	for _, id := range l.PathCells {
		inPath.Put(id)
	}

	var solid []*world.Cell
	for _, id := range l.allCells {
		c := l.Graph.Cell(id)
		if inPath.Has(id) || c.Type == world.CellRemoved {
			continue
		}
		// A clean cut along the sides and bottom looks artificial.
		if l.Graph.HasEdgeFlag(c, func(e *world.Edge) bool {
			return e.Other(c.ID) == world.NoCell && !geom.NearlyEqual(e.P1[1], float64(l.Borders.Height), 0.01)
		}) {
			l.removeCell(c)
			continue
		}
		solid = append(solid, c)
	}

	xPadding := l.Borders.Width / 5
	limits := geom.Rect{X: xPadding, Width: l.Borders.Width - xPadding*2, Height: l.Borders.Height / 2}
	for _, c := range solid {
		if l.isHole(c, limits) {
			l.removeCell(c)
		}
	}

	half := float64(l.Borders.Height) / 2
	for _, c := range solid {
		if c.Type == world.CellRemoved || l.Graph.SitePos(c)[1] < half {
			continue
		}
		for _, id := range c.Edges {
			l.Graph.Edge(id).OutsideLevel = true
		}
	}

	for _, id := range l.PathCells {
		c := l.Graph.Cell(id)
		c.Type = world.CellPath
		for _, eid := range c.Edges {
			l.Graph.Edge(eid).OutsideLevel = false
		}
	}

	if l.Mirrored {
		l.mirror()
	}

	l.Layout.Grid.Clear()
	l.Cells = l.Cells[:0]
	for _, c := range solid {
		if c.Type == world.CellSolid {
			l.Layout.Grid.Insert(c.ID, l.Graph.SitePos(c))
			l.Cells = append(l.Cells, c.ID)
		}
	}
	for _, island := range l.AbyssIslands {
		if island.layout == nil {
			continue
		}
		island.layout.Grid = world.NewGrid(island.Area, l.Params.GridCellSize)
		for _, id := range island.Cells {
			if c := l.Graph.Cell(id); c.Type == world.CellSolid {
				island.layout.Grid.Insert(id, l.Graph.SitePos(c))
				l.Cells = append(l.Cells, id)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	l.generateCaveWalls()

	l.pruneCells()
	return nil
}

// isHole draws whether a solid cell in the bottom half becomes a hole. Cells
// above the nearest tunnel node and cells bordering caves are kept.
func (l *Level) isHole(c *world.Cell, limits geom.Rect) bool {
	if l.Graph.HasEdgeFlag(c, func(e *world.Edge) bool { return e.NextToCave }) {
		return false
	}
	if l.rng.Range(0, 1) > l.Params.Tunnels.BottomHoleProbability {
		return false
	}
	site := l.Graph.SitePos(c)
	if !limits.ContainsVec(site) {
		return false
	}
	center := l.Graph.Center(c)
	var (
		closest geom.Point
		found   bool
		bestD   float64
	)
	for _, t := range l.Tunnels {
		for _, n := range t.Nodes {
			d := math.Abs(center[0] - float64(n.X))
			if !found || d < bestD {
				closest, bestD, found = n, d, true
			}
		}
	}
	return !found || float64(closest.Y) >= center[1]
}

// generateCaveWalls connects the caves to the tunnels and fills part of their
// cells with destructible walls, more of them on harder levels.
func (l *Level) generateCaveWalls() {
	ratio := geom.Lerp(0.2, 1, l.Difficulty/100)
	for _, c := range l.Caves {
		if c.Area.Y > 0 {
			l.pathToClosestTunnel(c.StartPos)
		}
		seen := mapset.New[world.CellID]()
		for _, t := range c.Tunnels {
			for _, id := range t.Cells {
				if seen.Has(id) {
					continue
				}
				seen.Put(id)
				if l.rng.Range(0, 1) >= ratio*c.Params.DestructibleWallRatio {
					continue
				}
				cell := l.Graph.Cell(id)
				wall, err := cave.NewWall(l.Graph.Vertices(cell))
				if err != nil {
					l.Diagnostics.DroppedWalls++
					l.logf("cave wall in cell %d: %v", id, err)
					continue
				}
				wall.Source = id
				wall.Health, wall.MaxHealth = destructibleWallHealth, destructibleWallHealth
				l.ExtraWalls = append(l.ExtraWalls, wall)
			}
		}
	}
}

// pruneCells drops removed cells from the solid cell list.
func (l *Level) pruneCells() {
	live := l.Cells[:0]
	for _, id := range l.Cells {
		if l.Graph.Cell(id).Type != world.CellRemoved {
			live = append(live, id)
		}
	}
	l.Cells = live
}
