package cave

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"levelgen/internal/geom"
	"levelgen/internal/world"
)

// Triangle is one piece of a cell or wall body.
type Triangle [3]mgl64.Vec2

// Area returns the unsigned area of the triangle.
func (t Triangle) Area() float64 {
	a, b, c := t[0], t[1], t[2]
	return math.Abs(a[0]*(b[1]-c[1])+b[0]*(c[1]-a[1])+c[0]*(a[1]-b[1])) / 2
}

// minTriangleArea skips slivers a physics engine would reject.
const minTriangleArea = 1.0

// Bodies is the output of polygon generation.
type Bodies struct {
	Cells     []world.CellID
	Triangles []Triangle
	// Owners maps each triangle to the cell it was cut from.
	Owners []world.CellID
}

// GeneratePolygons fills BodyVertices for every cell and triangulates the
// non-empty ones around their centers. Cells left with fewer than three
// distinct vertices are dropped from the returned list.
func (l *Layout) GeneratePolygons(cells []world.CellID) Bodies {
	keep := make([]bool, len(cells))
	var bodies Bodies
	for n := len(cells) - 1; n >= 0; n-- {
		cell := l.Graph.Cell(cells[n])
		verts := make([]mgl64.Vec2, 0, len(cell.Edges)*2)
		add := func(p mgl64.Vec2) {
			for _, v := range verts {
				if geom.DistanceSquared(v, p) < 1 {
					return
				}
			}
			verts = append(verts, p)
		}
		for _, id := range cell.Edges {
			e := l.Graph.Edge(id)
			if e.LengthSquared() < 0.01 {
				continue
			}
			add(e.P1)
			add(e.P2)
		}
		if len(verts) < 3 {
			continue
		}
		keep[n] = true

		center := l.Graph.Center(cell)
		sort.SliceStable(verts, func(i, j int) bool {
			return geom.Angle(verts[i].Sub(center)) < geom.Angle(verts[j].Sub(center))
		})
		cell.BodyVertices = verts

		if cell.Type == world.CellEmpty {
			continue
		}
		for i := range verts {
			tri := Triangle{center, verts[i], verts[(i+1)%len(verts)]}
			if tri.Area() < minTriangleArea {
				continue
			}
			bodies.Triangles = append(bodies.Triangles, tri)
			bodies.Owners = append(bodies.Owners, cell.ID)
		}
	}
	for i, id := range cells {
		if keep[i] {
			bodies.Cells = append(bodies.Cells, id)
		}
	}
	return bodies
}

// OrientEdges rewrites the edges of the given cells so P1 -> P2 runs counter
// clockwise around each edge's first cell, and clears references to cells
// that are no longer part of the level.
func (l *Layout) OrientEdges(cells []world.CellID, live func(world.CellID) bool) {
	for _, id := range cells {
		cell := l.Graph.Cell(id)
		center := l.Graph.Center(cell)
		for _, eid := range cell.Edges {
			e := l.Graph.Edge(eid)
			if e.Cell1 != world.NoCell && !live(e.Cell1) {
				e.Cell1 = world.NoCell
			}
			if e.Cell2 != world.NoCell && !live(e.Cell2) {
				e.Cell2 = world.NoCell
			}
			if e.Cell1 != cell.ID && !(e.Cell1 == world.NoCell && e.Cell2 == cell.ID) {
				continue
			}
			if geom.Cross(e.P1.Sub(center), e.P2.Sub(center)) < 0 {
				e.P1, e.P2 = e.P2, e.P1
			}
		}
	}
}
