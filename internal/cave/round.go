package cave

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ojrac/opensimplex-go"

	"levelgen/internal/geom"
	"levelgen/internal/world"
)

// noiseScale converts level units to noise space; one noise period spans a
// few cells.
const noiseScale = 1.0 / 4000

// Rounding configures RoundCell.
type Rounding struct {
	MinEdgeLength float64
	Amount        float64
	Irregularity  float64
	// Noise drives the irregular part of the bulge. It must be normalized to [0,1).
	Noise opensimplex.Noise
}

// NewRounding seeds the irregularity noise from a level stream draw.
func NewRounding(minEdgeLength, amount, irregularity float64, seed int64) Rounding {
	return Rounding{
		MinEdgeLength: minEdgeLength,
		Amount:        amount,
		Irregularity:  irregularity,
		Noise:         opensimplex.NewNormalized(seed),
	}
}

// Enabled reports whether rounding would change any edge.
func (r Rounding) Enabled() bool {
	return r.Amount > 0.01 || r.Irregularity > 0.01
}

// RoundCell subdivides the solid edges of cell and pushes the new points
// outwards, bulging most at the middle of each edge. Edges facing a narrow
// gap (an open cell with another solid cell behind it) are left alone so the
// passage stays open. Points that would land inside a neighbouring solid
// cell, outside the borders, or whose segment would cross another solid
// cell's edge are skipped.
func (l *Layout) RoundCell(cell *world.Cell, r Rounding) {
	if r.MinEdgeLength <= 0 {
		return
	}
	edges := make([]world.EdgeID, 0, len(cell.Edges))
	for _, id := range cell.Edges {
		e := l.Graph.Edge(id)
		if !e.IsSolid || l.facesNarrowGap(cell, e) {
			edges = append(edges, id)
			continue
		}

		normal := l.Graph.EdgeNormal(e, cell)
		length := e.Length()
		count := max(int(math.Ceil(length/r.MinEdgeLength)), 1)
		dir := e.P2.Sub(e.P1)

		points := []mgl64.Vec2{e.P1}
		for i := 1; i < count; i++ {
			t := float64(i) / float64(count)
			base := e.P1.Add(dir.Mul(t))
			centerF := 0.5 - math.Abs(0.5-t)
			variance := 0.0
			if r.Noise != nil {
				variance = r.Irregularity * r.Noise.Eval2(base[0]*noiseScale, base[1]*noiseScale)
			}
			pt := base.Add(normal.Mul(length * (r.Amount + variance) * centerF))
			if l.acceptRoundedPoint(cell, points[len(points)-1], pt) {
				points = append(points, pt)
			}
		}
		points = append(points, e.P2)

		for i := 0; i < len(points)-1; i++ {
			edges = append(edges, l.Graph.CloneEdge(e, points[i], points[i+1]).ID)
		}
	}
	cell.Edges = edges
}

// facesNarrowGap reports whether e borders an open cell that has a solid cell
// on its far side.
func (l *Layout) facesNarrowGap(cell *world.Cell, e *world.Edge) bool {
	adj := l.Graph.Adjacent(e, cell)
	if adj == nil || adj.Type == world.CellSolid {
		return false
	}
	adjCenter := l.Graph.Center(adj)
	toEdge := adjCenter.Sub(e.Center())
	for _, id := range adj.Edges {
		other := l.Graph.Edge(id)
		if toEdge.Dot(adjCenter.Sub(other.Center())) >= 0 {
			continue
		}
		if far := l.Graph.Adjacent(other, adj); far != nil && far.Type == world.CellSolid {
			return true
		}
	}
	return false
}

func (l *Layout) acceptRoundedPoint(cell *world.Cell, prev, pt mgl64.Vec2) bool {
	if !l.Borders.ContainsVec(pt) {
		return false
	}
	for _, other := range l.CellsNear(pt, 1) {
		if other == cell || other.Type != world.CellSolid {
			continue
		}
		if l.Graph.IsPointInside(other, pt) {
			return false
		}
		for _, id := range other.Edges {
			e := l.Graph.Edge(id)
			if e.Cell1 == cell.ID || e.Cell2 == cell.ID {
				continue
			}
			if crossesInterior(prev, pt, e.P1, e.P2) {
				return false
			}
		}
	}
	return true
}

// crossesInterior ignores contacts at shared endpoints.
func crossesInterior(a1, a2, b1, b2 mgl64.Vec2) bool {
	p, ok := geom.SegmentIntersection(a1, a2, b1, b2)
	if !ok {
		return false
	}
	const eps = 0.5
	return !geom.NearlyEqualVec(p, a1, eps) && !geom.NearlyEqualVec(p, a2, eps) &&
		!geom.NearlyEqualVec(p, b1, eps) && !geom.NearlyEqualVec(p, b2, eps)
}
