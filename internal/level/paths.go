package level

import (
	"context"
	"fmt"

	"github.com/zyedidia/generic/mapset"

	"levelgen/internal/cave"
	"levelgen/internal/geom"
	"levelgen/internal/voronoi"
	"levelgen/internal/world"
)

// pathPositionSpacing is how many carved cells separate two path positions.
const pathPositionSpacing = 3

// generatePaths builds the cell diagram, carves every tunnel through it and
// lays the waypoints along the carved cells.
func (l *Level) generatePaths(ctx context.Context) error {
	diagram, err := voronoi.NewBuilder(0).Build(ctx, l.sites, l.Borders)
	if err != nil {
		return fmt.Errorf("build voronoi diagram: %w", err)
	}
	l.Layout, l.allCells = cave.AssembleCells(l.Graph, diagram, l.Borders, l.Params.GridCellSize)

	if err := l.generateAbyssGeometry(ctx); err != nil {
		return err
	}
	l.generateAbyssPositions()

	inPath := mapset.New[world.CellID]()
	for _, t := range l.Tunnels {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.carve(t, inPath)
	}

	l.pickIslands()

	if len(l.MainPath.Cells) > 0 {
		first := l.Graph.SitePos(l.Graph.Cell(l.MainPath.Cells[0]))
		l.StartPosition.X = int(first[0])
		l.StartExitPosition.X = int(first[0])
	}
	return nil
}

// carve walks t through its layout, lays its waypoints and widens the
// result to the tunnel's minimum width.
func (l *Level) carve(t *world.Tunnel, inPath mapset.Set[world.CellID]) {
	layout := l.layoutFor(t)
	budget := max(layout.Grid.Len()/2, 1)
	res := layout.CarveTunnel(t.Nodes, budget)
	if res.Exhausted {
		l.Diagnostics.CarveBudgetExhausted++
		l.logf("carve %s: iteration budget exhausted after %d steps", t, res.Steps)
	}
	t.Cells = res.Cells

	if (t.Type == world.MainPath || t.Type == world.SidePath) && !l.isExitTunnel(t) {
		l.addPathPositions(t)
	}

	l.builderFor(layout).BuildTunnel(t)

	cells := append([]world.CellID(nil), t.Cells...)
	cells = layout.EnlargePath(cells, float64(t.MinWidth))
	for _, id := range cells {
		c := l.Graph.Cell(id)
		l.markNextTo(c, t.Type)
		for _, eid := range c.Edges {
			if adj := l.Graph.Adjacent(l.Graph.Edge(eid), c); adj != nil {
				l.markNextTo(adj, t.Type)
			}
		}
		if !inPath.Has(id) {
			inPath.Put(id)
			l.PathCells = append(l.PathCells, id)
		}
	}
}

func (l *Level) addPathPositions(t *world.Tunnel) {
	typ := PositionMainPath
	if t.Type == world.SidePath {
		typ = PositionSidePath
	}
	seen := mapset.New[world.CellID]()
	n := 0
	for _, id := range t.Cells {
		if seen.Has(id) {
			continue
		}
		seen.Put(id)
		if n >= 2 && (n-2)%pathPositionSpacing == 0 {
			pos := geom.PointFrom(l.Graph.SitePos(l.Graph.Cell(id)))
			l.Positions = append(l.Positions, InterestingPosition{Position: pos, Type: typ, Cave: l.caveOf(t)})
		}
		n++
	}
}

func (l *Level) markNextTo(c *world.Cell, typ world.TunnelType) {
	for _, id := range c.Edges {
		e := l.Graph.Edge(id)
		switch typ {
		case world.MainPath:
			e.NextToMainPath = true
		case world.SidePath:
			e.NextToSidePath = true
		case world.Cave:
			e.NextToCave = true
		}
	}
}

// pickIslands turns a few path cells well inside wide passages back into
// solid pillars.
func (l *Level) pickIslands() {
	count := l.Params.Tunnels.IslandCount
	if count <= 0 {
		return
	}
	minDist := float64(l.MinMainPathWidth)
	var candidates []*world.Cell
	for _, id := range l.PathCells {
		c := l.Graph.Cell(id)
		if l.layoutOfCell(id) != l.Layout || c.Type != world.CellPath {
			continue
		}
		site := l.Graph.SitePos(c)
		if distToTunnel(site, l.MainPath) < minDist {
			continue
		}
		nearExit := false
		for _, t := range []*world.Tunnel{l.startPath, l.endPath, l.endHole} {
			if t != nil && distToTunnel(site, t) < minDist {
				nearExit = true
				break
			}
		}
		if nearExit || l.Graph.HasEdgeFlag(c, func(e *world.Edge) bool { return e.NextToCave }) {
			continue
		}
		enclosed := true
		for _, eid := range c.Edges {
			adj := l.Graph.Adjacent(l.Graph.Edge(eid), c)
			if adj == nil || adj.Type != world.CellPath {
				enclosed = false
				break
			}
		}
		if enclosed {
			candidates = append(candidates, c)
		}
	}

	for i := 0; i < count && len(candidates) > 0; i++ {
		k := l.rng.Int(len(candidates))
		c := candidates[k]
		candidates = append(candidates[:k], candidates[k+1:]...)
		c.Type = world.CellSolid
		c.Island = true
	}

	kept := l.PathCells[:0]
	for _, id := range l.PathCells {
		if !l.Graph.Cell(id).Island {
			kept = append(kept, id)
		}
	}
	l.PathCells = kept
}
