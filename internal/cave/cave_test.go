package cave

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"levelgen/internal/geom"
	"levelgen/internal/random"
	"levelgen/internal/voronoi"
	"levelgen/internal/world"
)

var testBorders = geom.Rect{Width: 20000, Height: 10000}

func newTestLayout(t *testing.T) (*Layout, []world.CellID) {
	t.Helper()
	rng := rand.New(rand.NewSource(5))
	var sites []mgl64.Vec2
	for x := 500; x < testBorders.Width; x += 1000 {
		for y := 500; y < testBorders.Height; y += 1000 {
			sites = append(sites, mgl64.Vec2{
				float64(x) + rng.Float64()*400 - 200,
				float64(y) + rng.Float64()*400 - 200,
			})
		}
	}
	diagram, err := voronoi.NewBuilder(0).Build(context.Background(), sites, testBorders)
	require.NoError(t, err)
	layout, cells := AssembleCells(world.NewGraph(), diagram, testBorders, 1000)
	require.Len(t, cells, len(sites))
	return layout, cells
}

func sharesEdge(g *world.Graph, a, b world.CellID) bool {
	for _, id := range g.Cell(a).Edges {
		if g.Edge(id).Other(a) == b {
			return true
		}
	}
	return false
}

func TestAssembleCellsBuildsClosedCells(t *testing.T) {
	layout, cells := newTestLayout(t)
	assert.Equal(t, len(cells), layout.Grid.Len())

	borderCells := 0
	for _, id := range cells {
		cell := layout.Graph.Cell(id)
		require.GreaterOrEqual(t, len(cell.Edges), 3, "cell %d", id)
		if layout.Graph.HasEdgeFlag(cell, func(e *world.Edge) bool { return e.OutsideLevel }) {
			borderCells++
		}
		require.GreaterOrEqual(t, len(layout.Graph.Vertices(cell)), 3)
		assert.True(t, layout.Graph.IsPointInside(cell, layout.Graph.Center(cell).Add(mgl64.Vec2{1, 1})))
	}
	// 20 x 10 sites: the outer ring touches the borders.
	assert.Equal(t, 2*20+2*10-4, borderCells)

	for _, e := range layout.Graph.Edges {
		if e.OutsideLevel {
			assert.True(t, e.IsSolid)
			assert.Equal(t, world.NoCell, e.Cell2)
			continue
		}
		assert.NotEqual(t, world.NoCell, e.Cell1)
		assert.NotEqual(t, world.NoCell, e.Cell2)
	}
}

func TestCarveTunnelProducesConnectedPath(t *testing.T) {
	layout, cells := newTestLayout(t)
	nodes := []geom.Point{{X: 1000, Y: 5000}, {X: 10000, Y: 2000}, {X: 19000, Y: 8000}}

	res := layout.CarveTunnel(nodes, len(cells)/2)
	require.False(t, res.Exhausted)
	require.NotEmpty(t, res.Cells)

	first := layout.ClosestCell(nodes[0].Vec(), 2)
	last := layout.ClosestCell(nodes[2].Vec(), 2)
	assert.Equal(t, first.ID, res.Cells[0])
	assert.Equal(t, last.ID, res.Cells[len(res.Cells)-1])

	for i, id := range res.Cells {
		assert.Equal(t, world.CellPath, layout.Graph.Cell(id).Type)
		if i > 0 {
			assert.True(t, sharesEdge(layout.Graph, res.Cells[i-1], id), "step %d is not adjacent", i)
		}
	}
}

func TestCarveTunnelStopsAtBudget(t *testing.T) {
	layout, _ := newTestLayout(t)
	res := layout.CarveTunnel([]geom.Point{{X: 500, Y: 500}, {X: 19500, Y: 9500}}, 3)
	assert.True(t, res.Exhausted)
	assert.Equal(t, 3, res.Steps)
	assert.Len(t, res.Cells, 4)
}

func TestShortEdgePenalty(t *testing.T) {
	assert.Zero(t, shortEdgePenalty(ShortEdgeLength, 0))
	assert.Zero(t, shortEdgePenalty(5000, 3))

	first := shortEdgePenalty(50, 0)
	assert.Equal(t, ShortEdgePenalty, first)
	assert.Equal(t, first, shortEdgePenalty(50, 1))
	assert.Equal(t, first/4, shortEdgePenalty(50, 4))

	// The penalty is added, so a short edge still loses to a long detour
	// across the whole test area on the first visit.
	detour := geom.Distance(mgl64.Vec2{0, 0}, mgl64.Vec2{float64(testBorders.Width), float64(testBorders.Height)})
	assert.Greater(t, 100+first, detour*1.5)
}

func TestEnlargePathClearsCorridor(t *testing.T) {
	layout, _ := newTestLayout(t)
	res := layout.CarveTunnel([]geom.Point{{X: 1000, Y: 5000}, {X: 19000, Y: 5000}}, 100)
	original := append([]world.CellID(nil), res.Cells...)

	const width = 1500.0
	path := layout.EnlargePath(res.Cells, width)
	assert.Greater(t, len(path), len(original))

	for _, id := range original {
		center := layout.Graph.Center(layout.Graph.Cell(id))
		for _, c := range layout.TooCloseCells(center, width) {
			assert.Equal(t, world.CellPath, c.Type, "cell %d within %v of path", c.ID, width)
		}
	}
	assert.Equal(t, path, layout.EnlargePath(path, 0))
}

func TestRoundCellBulgesSolidEdges(t *testing.T) {
	layout, cells := newTestLayout(t)
	for _, id := range cells {
		layout.Graph.Cell(id).Type = world.CellPath
	}
	solid := layout.ClosestCell(mgl64.Vec2{10000, 5000}, 2)
	solid.Type = world.CellSolid
	for _, id := range solid.Edges {
		layout.Graph.Edge(id).IsSolid = true
	}
	before := len(solid.Edges)
	outline := append([]mgl64.Vec2(nil), layout.Graph.Vertices(solid)...)

	layout.RoundCell(solid, NewRounding(300, 0.5, 0.1, 11))
	require.Greater(t, len(solid.Edges), before)

	for _, id := range solid.Edges {
		p := layout.Graph.Edge(id).P1
		assert.True(t, testBorders.ContainsVec(p))
		corner := false
		for _, v := range outline {
			corner = corner || geom.NearlyEqualVec(v, p, 1)
		}
		if !corner {
			assert.False(t, geom.PolygonContains(outline, p), "point %v bulges inwards", p)
		}
	}
}

func TestRoundCellKeepsOpenEdges(t *testing.T) {
	layout, cells := newTestLayout(t)
	cell := layout.Graph.Cell(cells[len(cells)/2])
	before := append([]world.EdgeID(nil), cell.Edges...)
	layout.RoundCell(cell, NewRounding(300, 0.5, 0.1, 1))
	assert.Equal(t, before, cell.Edges, "interior edges are not solid yet")
}

func TestGeneratePolygonsDropsDegenerateCells(t *testing.T) {
	layout, cells := newTestLayout(t)
	degenerate := layout.Graph.AddCell(layout.Graph.AddSite(mgl64.Vec2{10, 10}))
	e := layout.Graph.AddEdge(mgl64.Vec2{0, 0}, mgl64.Vec2{20, 0})
	e.Attach(degenerate.ID, degenerate.Site)
	degenerate.Edges = append(degenerate.Edges, e.ID)

	all := append(append([]world.CellID(nil), cells...), degenerate.ID)
	bodies := layout.GeneratePolygons(all)
	assert.Equal(t, cells, bodies.Cells)
	assert.Len(t, bodies.Owners, len(bodies.Triangles))
	for _, id := range cells {
		verts := layout.Graph.Cell(id).BodyVertices
		require.GreaterOrEqual(t, len(verts), 3)
		assert.Greater(t, geom.SignedArea(verts), 0.0)
	}
	for _, tri := range bodies.Triangles {
		assert.GreaterOrEqual(t, tri.Area(), minTriangleArea)
	}
}

func TestOrientEdgesClearsDeadReferences(t *testing.T) {
	layout, cells := newTestLayout(t)
	dead := cells[0]
	live := func(id world.CellID) bool { return id != dead }
	layout.OrientEdges(cells[1:], live)
	for _, id := range cells[1:] {
		cell := layout.Graph.Cell(id)
		for _, eid := range cell.Edges {
			e := layout.Graph.Edge(eid)
			assert.NotEqual(t, dead, e.Cell1)
			assert.NotEqual(t, dead, e.Cell2)
			if e.Cell1 == id {
				c := layout.Graph.Center(cell)
				assert.GreaterOrEqual(t, geom.Cross(e.P1.Sub(c), e.P2.Sub(c)), 0.0)
			}
		}
	}
}

func TestJaggedLineStaysConnected(t *testing.T) {
	rng := random.New(4)
	bounds := geom.Rect{X: 0, Y: 0, Width: 10000, Height: 10000}
	start, end := mgl64.Vec2{1000, 5000}, mgl64.Vec2{9000, 5000}
	segments := JaggedLine(rng, start, end, 3, 0.75*geom.Distance(start, end), bounds)
	require.Len(t, segments, 8)
	assert.Equal(t, start, segments[0][0])
	assert.Equal(t, end, segments[len(segments)-1][1])
	for i, seg := range segments {
		if i > 0 {
			assert.Equal(t, segments[i-1][1], seg[0])
		}
		assert.True(t, seg[1][0] >= 0 && seg[1][0] <= 10000 && seg[1][1] >= 0 && seg[1][1] <= 10000)
	}
}

func TestRandomChunkRadius(t *testing.T) {
	verts := RandomChunk(random.New(2), 800, 8, 200)
	require.Len(t, verts, 8)
	for _, v := range verts {
		r := v.Len()
		assert.True(t, r >= 600 && r <= 1000, "radius %v", r)
	}
	ellipse := EllipseChunk(random.New(2), mgl64.Vec2{4000, 1000}, 16, 50)
	require.Len(t, ellipse, 16)
	assert.InDelta(t, 2000, math.Abs(ellipse[0][0]), 50)
}

func TestNewWall(t *testing.T) {
	_, err := NewWall([]mgl64.Vec2{{0, 0}, {10, 0}, {10.2, 0.2}})
	assert.ErrorIs(t, err, ErrTooFewVertices)

	_, err = NewWall([]mgl64.Vec2{{0, 0}, {100, 0}, {200, 0}})
	assert.ErrorIs(t, err, ErrNoTriangles)

	w, err := NewWall([]mgl64.Vec2{{0, 0}, {100, 0}, {100, 100}, {0, 100}})
	require.NoError(t, err)
	assert.Len(t, w.Triangles, 4)
	assert.True(t, w.Contains(mgl64.Vec2{50, 50}))
	assert.False(t, w.Destructible())
	assert.False(t, w.Damage(10))

	w.MaxHealth, w.Health = 50, 50
	assert.False(t, w.Damage(20))
	assert.True(t, w.Damage(40))

	w.MirrorX(1000)
	assert.True(t, w.Contains(mgl64.Vec2{950, 50}))
}
