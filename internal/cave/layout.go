// Package cave turns a Voronoi diagram into carved level geometry: it
// assembles cells, walks tunnels through them, widens and rounds the result
// and produces the final polygons.
package cave

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/zyedidia/generic/mapset"

	"levelgen/internal/geom"
	"levelgen/internal/voronoi"
	"levelgen/internal/world"
)

// minEdgeLengthSq drops diagram edges that collapse to a point.
const minEdgeLengthSq = 0.001

// Layout couples the cell arena with the grid used for neighbourhood queries.
// Several layouts may share one graph; abyss islands get their own grid.
type Layout struct {
	Graph   *world.Graph
	Grid    *world.Grid
	Borders geom.Rect
}

// AssembleCells converts diagram edges into cells registered in a new grid
// covering borders. Cells touching the borders receive synthetic solid edges
// along the outline. The returned cells are in creation order.
func AssembleCells(graph *world.Graph, diagram *voronoi.Diagram, borders geom.Rect, gridCellSize int) (*Layout, []world.CellID) {
	layout := &Layout{
		Graph:   graph,
		Grid:    world.NewGrid(borders, gridCellSize),
		Borders: borders,
	}

	siteIDs := make([]world.SiteID, len(diagram.Sites))
	for i, s := range diagram.Sites {
		siteIDs[i] = graph.AddSite(s)
	}

	var cells []world.CellID
	cellFor := func(site world.SiteID) *world.Cell {
		pos := graph.Sites[site]
		x, y := layout.Grid.BucketOf(pos)
		for _, id := range layout.Grid.Bucket(x, y) {
			if c := graph.Cell(id); c.Site == site {
				return c
			}
		}
		c := graph.AddCell(site)
		layout.Grid.Insert(c.ID, pos)
		cells = append(cells, c.ID)
		return c
	}

	for _, de := range diagram.Edges {
		if geom.DistanceSquared(de.P1, de.P2) < minEdgeLengthSq {
			continue
		}
		edge := graph.AddEdge(de.P1, de.P2)
		for _, s := range [2]int{de.Site1, de.Site2} {
			cell := cellFor(siteIDs[s])
			edge.Attach(cell.ID, cell.Site)
			cell.Edges = append(cell.Edges, edge.ID)
		}
	}

	for _, id := range cells {
		layout.addBorderEdges(graph.Cell(id))
	}
	return layout, cells
}

func (l *Layout) onBorder(p mgl64.Vec2) bool {
	return l.onSide(p) ||
		geom.NearlyEqual(p[1], float64(l.Borders.Y), 0.01) ||
		geom.NearlyEqual(p[1], float64(l.Borders.Top()), 0.01)
}

func (l *Layout) onSide(p mgl64.Vec2) bool {
	return geom.NearlyEqual(p[0], float64(l.Borders.X), 0.01) ||
		geom.NearlyEqual(p[0], float64(l.Borders.Right()), 0.01)
}

func (l *Layout) addBorderEdges(cell *world.Cell) {
	var (
		points [2]mgl64.Vec2
		found  int
	)
	for _, id := range cell.Edges {
		e := l.Graph.Edge(id)
		for _, p := range [2]mgl64.Vec2{e.P1, e.P2} {
			if found == 2 || !l.onBorder(p) {
				continue
			}
			if found == 1 && geom.NearlyEqualVec(points[0], p, 0.01) {
				continue
			}
			points[found] = p
			found++
		}
	}
	if found < 2 {
		return
	}

	p1, p2 := points[0], points[1]
	if l.onSide(p1) != l.onSide(p2) {
		side, end := p1, p2
		if !l.onSide(p1) {
			side, end = p2, p1
		}
		corner := mgl64.Vec2{side[0], end[1]}
		l.addBorderEdge(cell, p1, corner)
		l.addBorderEdge(cell, corner, p2)
		return
	}
	l.addBorderEdge(cell, p1, p2)
}

func (l *Layout) addBorderEdge(cell *world.Cell, p1, p2 mgl64.Vec2) {
	e := l.Graph.AddEdge(p1, p2)
	e.IsSolid = true
	e.OutsideLevel = true
	e.Attach(cell.ID, cell.Site)
	cell.Edges = append(cell.Edges, e.ID)
}

// CellsNear returns the live cells registered within depth buckets of pos.
func (l *Layout) CellsNear(pos mgl64.Vec2, depth int) []*world.Cell {
	ids := l.Grid.Near(pos, depth)
	cells := make([]*world.Cell, 0, len(ids))
	for _, id := range ids {
		if c := l.Graph.Cell(id); c != nil {
			cells = append(cells, c)
		}
	}
	return cells
}

// ClosestCell returns the cell whose center is nearest pos within depth
// buckets, or nil when none is registered there.
func (l *Layout) ClosestCell(pos mgl64.Vec2, depth int) *world.Cell {
	var (
		best  *world.Cell
		bestD = math.MaxFloat64
	)
	for _, c := range l.CellsNear(pos, depth) {
		if d := geom.DistanceSquared(l.Graph.Center(c), pos); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

// closestWidening retries ClosestCell with growing search depth.
func (l *Layout) closestWidening(pos mgl64.Vec2, minDepth, maxDepth int) *world.Cell {
	for depth := minDepth; depth <= maxDepth; depth++ {
		if c := l.ClosestCell(pos, depth); c != nil {
			return c
		}
	}
	return nil
}

// SolidBetween reports whether the segment a-b crosses an edge of a solid
// cell. Cells are gathered from the grid buckets the segment passes through.
func (l *Layout) SolidBetween(a, b mgl64.Vec2) bool {
	step := l.Grid.CellSize()
	n := max(int(math.Ceil(geom.Distance(a, b)/step)), 1)
	seen := mapset.New[world.CellID]()
	for i := 0; i <= n; i++ {
		p := geom.LerpVec(a, b, float64(i)/float64(n))
		for _, c := range l.CellsNear(p, 2) {
			if seen.Has(c.ID) {
				continue
			}
			seen.Put(c.ID)
			if c.Type != world.CellSolid {
				continue
			}
			for _, id := range c.Edges {
				e := l.Graph.Edge(id)
				if geom.SegmentsIntersect(a, b, e.P1, e.P2) {
					return true
				}
			}
		}
	}
	return false
}
