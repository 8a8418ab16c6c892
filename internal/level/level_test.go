package level

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"levelgen/internal/config"
	"levelgen/internal/geom"
	"levelgen/internal/world"
)

func smallRequest(seed string) Request {
	cfg := config.Default()
	p := cfg.Generation
	p.Width, p.Height = 40000, 20000
	p.Tunnels.MinTunnelRadius = 3000
	p.Tunnels.MinSideTunnelRadius = config.IntRange{Min: 1000, Max: 2000}
	p.Tunnels.SideTunnelCount = config.IntRange{Min: 1, Max: 1}
	p.Tunnels.IslandCount = 1
	p.Voronoi.SiteInterval = geom.Pt(2000, 2000)
	p.Voronoi.SiteVariance = geom.Pt(400, 400)
	p.CaveCount = 1
	p.Abyss.IslandCount = 2
	p.Abyss.IslandSizeMin = geom.Pt(3000, 3000)
	p.Abyss.IslandSizeMax = geom.Pt(4000, 4000)
	p.SeaFloor.Depth = -40000
	p.Ruins.MinSize = geom.Pt(3000, 2000)
	p.Ruins.MaxSize = geom.Pt(4000, 3000)
	p.Resources.ItemCount = 30
	p.IceChunks.FloatingCount = 1

	return Request{
		Seed:       seed,
		Difficulty: 50,
		Biome:      &cfg.Biomes[0],
		Params:     p,
		Caves: []config.CaveParams{{
			Identifier:            "small",
			Commonness:            1,
			AbyssCommonness:       1,
			MinWidth:              4000,
			MaxWidth:              6000,
			MinHeight:             4000,
			MaxHeight:             6000,
			MinBranchCount:        1,
			MaxBranchCount:        2,
			DestructibleWallRatio: 0.3,
		}},
		Prefabs: cfg.Prefabs,
	}
}

func quietLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	origOutput, origFlags, origPrefix := log.Writer(), log.Flags(), log.Prefix()
	log.SetOutput(&buf)
	log.SetFlags(0)
	log.SetPrefix("")
	t.Cleanup(func() {
		log.SetOutput(origOutput)
		log.SetFlags(origFlags)
		log.SetPrefix(origPrefix)
	})
	return &buf
}

func generate(t *testing.T, req Request) *Level {
	t.Helper()
	quietLogs(t)
	l, err := Generate(context.Background(), req)
	require.NoError(t, err)
	return l
}

func TestGenerateScenarioTest1(t *testing.T) {
	cfg := config.Default()
	p := config.DefaultGeneration()
	p.CaveCount = 0
	p.Tunnels.SideTunnelCount = config.IntRange{Min: 1, Max: 1}
	p.Tunnels.MinTunnelRadius = 6500

	l := generate(t, Request{Seed: "test-1", Biome: &cfg.Biomes[0], Params: p, Caves: cfg.Caves, Prefabs: cfg.Prefabs})

	require.GreaterOrEqual(t, len(l.MainPath.Nodes), 2)
	want := int(geom.Lerp(float64(l.MinMainPathWidth), float64(p.Width-l.MinMainPathWidth), p.Tunnels.StartPosition.X))
	assert.Equal(t, want, l.MainPath.Nodes[0].X)
	assert.InDelta(t, want, l.StartPosition.X, float64(p.Voronoi.SiteInterval.X))
	assert.NotEmpty(t, l.MainPath.Cells)
	assert.NotEmpty(t, l.PathCells)
	assert.Empty(t, l.Caves)
}

func TestGenerateRecordsEveryStage(t *testing.T) {
	l := generate(t, smallRequest("stages"))
	for _, s := range Stages() {
		_, ok := l.Checksums[s]
		assert.True(t, ok, "missing checksum for %s", s)
	}
	assert.NotEmpty(t, l.Cells)
	assert.NotEmpty(t, l.Bodies.Triangles)
	assert.NotNil(t, l.Resources)
	assert.NotNil(t, l.SeaFloor)
	assert.Greater(t, l.WayPoints.Len(), 0)
}

func TestGenerateIsDeterministic(t *testing.T) {
	a := generate(t, smallRequest("determinism"))
	b := generate(t, smallRequest("determinism"))

	require.NoError(t, a.Checksums.Compare(b.Checksums))
	require.Equal(t, len(a.Tunnels), len(b.Tunnels))
	for i := range a.Tunnels {
		assert.Equal(t, a.Tunnels[i].Nodes, b.Tunnels[i].Nodes, a.Tunnels[i].Name)
		assert.Equal(t, a.Tunnels[i].Cells, b.Tunnels[i].Cells, a.Tunnels[i].Name)
	}
	assert.Equal(t, a.Cells, b.Cells)
	assert.Equal(t, a.WayPoints.Len(), b.WayPoints.Len())
	assert.Equal(t, a.Resources.Placed, b.Resources.Placed)
	assert.Equal(t, len(a.Positions), len(b.Positions))
}

func TestDifferentSeedsDesync(t *testing.T) {
	a := generate(t, smallRequest("seed-a"))
	b := generate(t, smallRequest("seed-b"))

	err := a.Checksums.Compare(b.Checksums)
	var desync *DesyncError
	require.True(t, errors.As(err, &desync))
	assert.NotEmpty(t, desync.Stages)
}

func TestCarvedTunnelsAreConnected(t *testing.T) {
	l := generate(t, smallRequest("connectivity"))

	pairs, adjacent := 0, 0
	for _, tun := range l.Tunnels {
		if tun.Type == world.Cave {
			continue
		}
		for i := 1; i < len(tun.Cells); i++ {
			if tun.Cells[i] == tun.Cells[i-1] {
				continue
			}
			pairs++
			if l.Graph.SharedEdge(l.Graph.Cell(tun.Cells[i-1]), l.Graph.Cell(tun.Cells[i])) != nil {
				adjacent++
			}
		}
	}
	require.Greater(t, pairs, 0)
	assert.GreaterOrEqual(t, float64(adjacent)/float64(pairs), 0.95)
}

func TestSitesAreDistinctAndInsideBorders(t *testing.T) {
	l := generate(t, smallRequest("sites"))

	sites := make([]geom.Point, 0, len(l.allCells))
	for _, id := range l.allCells {
		s := l.Graph.SitePos(l.Graph.Cell(id))
		require.True(t, l.Borders.ContainsVec(s), "site %v outside %v", s, l.Borders)
		for _, other := range sites {
			require.GreaterOrEqual(t, geom.Distance(s, other.Vec()), 1.0)
		}
		sites = append(sites, geom.PointFrom(s))
	}
}

func TestSeaFloorProfile(t *testing.T) {
	l := generate(t, smallRequest("sea floor"))

	pos := l.SeaFloor.Positions
	require.GreaterOrEqual(t, len(pos), 2)
	assert.Equal(t, 0, pos[0].X)
	assert.Equal(t, l.Borders.Width, pos[len(pos)-1].X)
	for i := 1; i < len(pos); i++ {
		assert.Greater(t, pos[i].X, pos[i-1].X)
		assert.LessOrEqual(t, pos[i].X-pos[i-1].X, seaFloorSegmentLength)
	}
	assert.Contains(t, l.ExtraWalls, l.SeaFloor.Wall)
	assert.LessOrEqual(t, l.AbyssArea.Top(), l.Borders.Y)
	assert.GreaterOrEqual(t, l.AbyssArea.Y, l.SeaFloor.BottomPos)
}

func TestSeaFloorBottomPosition(t *testing.T) {
	floor := &SeaFloor{
		Positions: []geom.Point{{X: 0, Y: -100}, {X: 100, Y: -50}, {X: 200, Y: -100}},
		BottomPos: -100,
	}
	assert.InDelta(t, -75, floor.BottomPosition(50, 200)[1], 1e-9)
	assert.InDelta(t, -75, floor.BottomPosition(150, 200)[1], 1e-9)
	assert.InDelta(t, -100, floor.BottomPosition(250, 200)[1], 1e-9)
	assert.InDelta(t, -100, floor.BottomPosition(-10, 200)[1], 1e-9)
}

func TestMirroredLevelReflectsPlainLevel(t *testing.T) {
	req := smallRequest("mirror")
	req.Params.Tunnels.CreateHoleNextToEnd = false
	plain := generate(t, req)
	req.Mirror = true
	mirrored := generate(t, req)

	require.Equal(t, plain.allCells, mirrored.allCells)
	w := float64(plain.Borders.Width)
	cols := plain.Layout.Grid.Cols()
	for _, id := range plain.allCells {
		p := plain.Graph.SitePos(plain.Graph.Cell(id))
		m := mirrored.Graph.SitePos(mirrored.Graph.Cell(id))
		assert.InDelta(t, w-p[0], m[0], 1.0001)
		assert.Equal(t, p[1], m[1])

		px, py := plain.Layout.Grid.BucketOf(p)
		mx, my := mirrored.Layout.Grid.BucketOf(m)
		assert.Equal(t, cols-1-px, mx, "cell %d", id)
		assert.Equal(t, py, my)
	}

	assert.Equal(t, plain.Borders.Width-plain.EndPosition.X, mirrored.StartPosition.X)
	assert.Equal(t, plain.EndPosition.Y, mirrored.StartPosition.Y)
	assert.Equal(t, plain.Borders.Width-plain.StartPosition.X, mirrored.EndPosition.X)
}

func TestGenerateLogsProgress(t *testing.T) {
	buf := quietLogs(t)
	_, err := Generate(context.Background(), smallRequest("progress"))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `level "progress" generation progress: 0%`)
	assert.Contains(t, out, `level "progress" generation progress: 100%`)
}

func TestGenerateRejectsBadRequests(t *testing.T) {
	quietLogs(t)
	ctx := context.Background()

	req := smallRequest("bad")
	req.Biome = nil
	_, err := Generate(ctx, req)
	assert.ErrorIs(t, err, ErrNilBiome)

	req = smallRequest("bad")
	req.Params.Width = 0
	_, err = Generate(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidSize)

	req = smallRequest("bad")
	req.Params.GridCellSize = 0
	_, err = Generate(ctx, req)
	assert.ErrorContains(t, err, "invalid generation params")
}

func TestGenerateHonoursCancellation(t *testing.T) {
	quietLogs(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Generate(ctx, smallRequest("cancelled"))
	assert.ErrorIs(t, err, context.Canceled)
}

type recordingPlacer struct {
	kinds []StructureKind
}

func (p *recordingPlacer) Place(kind StructureKind, pos, size geom.Point) (geom.Rect, bool) {
	p.kinds = append(p.kinds, kind)
	if size == (geom.Point{}) {
		size = geom.Pt(1000, 1000)
	}
	return geom.RectAround(pos, size), true
}

func TestPlacerReceivesStructures(t *testing.T) {
	placer := &recordingPlacer{}
	req := smallRequest("placer")
	req.Placer = placer
	l := generate(t, req)

	assert.Equal(t, []StructureKind{StructureOutpost, StructureOutpost, StructureWreck, StructureBeacon}, placer.kinds)
	require.Len(t, l.Structures, 4)
	assert.Equal(t, l.Structures[0].Area.Center(), l.StartPosition)
	assert.Equal(t, l.Structures[1].Area.Center(), l.EndPosition)
	assert.Len(t, l.PositionsOf(PositionWreck), 1)
	assert.Len(t, l.PositionsOf(PositionBeaconStation), 1)
}

func TestEveryCellHasABody(t *testing.T) {
	for _, seed := range []string{"bodies-1", "bodies-2", "bodies-3", "bodies-4"} {
		l := generate(t, smallRequest(seed))
		require.Equal(t, l.Bodies.Cells, l.Cells, seed)
		for _, id := range l.Cells {
			c := l.Graph.Cell(id)
			assert.GreaterOrEqual(t, len(c.BodyVertices), 3, "%s: cell %d", seed, id)
			assert.NotEqual(t, world.CellRemoved, c.Type, "%s: cell %d", seed, id)
		}
	}
}

func TestGeneratePolygonsDropsDegenerateCells(t *testing.T) {
	l := generate(t, smallRequest("degenerate"))
	before, dropped := len(l.Cells), l.Diagnostics.DroppedCells

	degenerate := l.Graph.AddCell(l.Graph.AddSite(mgl64.Vec2{10, 10}))
	e := l.Graph.AddEdge(mgl64.Vec2{0, 0}, mgl64.Vec2{20, 0})
	e.Attach(degenerate.ID, degenerate.Site)
	degenerate.Edges = append(degenerate.Edges, e.ID)
	l.Layout.Grid.Insert(degenerate.ID, mgl64.Vec2{10, 10})
	l.Cells = append(l.Cells, degenerate.ID)

	l.Params.Cells.RoundingAmount, l.Params.Cells.Irregularity = 0, 0
	require.NoError(t, l.generatePolygons(context.Background()))

	assert.Len(t, l.Cells, before)
	assert.NotContains(t, l.Cells, degenerate.ID)
	assert.Equal(t, world.CellRemoved, degenerate.Type)
	assert.False(t, l.Layout.Grid.Contains(degenerate.ID))
	assert.Equal(t, dropped+1, l.Diagnostics.DroppedCells)
}
