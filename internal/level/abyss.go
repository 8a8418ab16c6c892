package level

import (
	"context"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"levelgen/internal/cave"
	"levelgen/internal/geom"
	"levelgen/internal/voronoi"
	"levelgen/internal/world"
)

const (
	abyssMaxHeight       = 100000
	abyssMinHeight       = 1000
	abyssPreferredHeight = 10000
	abyssStartGap        = 5000
	abyssFloorClearance  = 1000
	islandFloorClearance = 500
	islandPlacementTries = 20
	islandSiteInterval   = 500
	islandSiteVariance   = 200
	abyssPositionCount   = 10
)

// generateAbyssArea reserves the space between the bottom of the level and
// the sea floor.
func (l *Level) generateAbyssArea() {
	bottom := l.SeaFloor.BottomPos
	start := l.Borders.Y - abyssStartGap
	end := max(start-abyssMaxHeight, bottom+abyssFloorClearance)
	switch {
	case start-end < 0:
		start, end = l.Borders.Y, bottom
		if start-end < abyssMinHeight {
			l.Diagnostics.AbyssTooShallow = true
			l.logf("abyss is only %d units high", start-end)
		}
	case start-end < abyssPreferredHeight:
		start = l.Borders.Y
	}
	l.AbyssArea = geom.Rect{X: l.Borders.X, Y: end, Width: l.Borders.Width, Height: max(start-end, 0)}
}

// generateAbyssGeometry scatters islands through the abyss. Some are a
// single solid wall, the rest get a cell diagram of their own with a cave
// carved into it.
func (l *Level) generateAbyssGeometry(ctx context.Context) error {
	p := l.Params.Abyss
	for i := 0; i < p.IslandCount; i++ {
		t := l.rng.Range(0, 1)
		size := geom.Pt(
			int(geom.Lerp(float64(p.IslandSizeMin.X), float64(p.IslandSizeMax.X), t)),
			int(geom.Lerp(float64(p.IslandSizeMin.Y), float64(p.IslandSizeMax.Y), t)))
		if l.AbyssArea.Height < size.Y || l.AbyssArea.Width <= size.X {
			continue
		}

		area, ok := l.placeIsland(size)
		if !ok {
			l.logf("could not fit abyss island %d after %d tries", i, islandPlacementTries)
			break
		}

		island := &AbyssIsland{Area: area}
		if l.rng.Range(0, 1) > p.IslandCaveProbability {
			l.addIslandWall(island)
		} else if err := l.addIslandCave(ctx, island); err != nil {
			return fmt.Errorf("abyss island %d: %w", i, err)
		}
		l.AbyssIslands = append(l.AbyssIslands, island)
	}
	return nil
}

func (l *Level) placeIsland(size geom.Point) (geom.Rect, bool) {
	for try := 0; try < islandPlacementTries; try++ {
		pos := geom.Pt(
			l.rng.IntRange(l.AbyssArea.X, l.AbyssArea.Right()-size.X),
			l.rng.IntRange(l.AbyssArea.Y, l.AbyssArea.Top()-size.Y))
		for _, x := range []int{pos.X, pos.X + size.X} {
			floor := int(l.BottomPosition(float64(x))[1]) + islandFloorClearance
			pos.Y = max(pos.Y, floor)
		}
		area := geom.Rect{X: pos.X, Y: pos.Y, Width: size.X, Height: size.Y}
		if area.Top() > l.AbyssArea.Top() {
			continue
		}
		overlaps := false
		for _, other := range l.AbyssIslands {
			if other.Area.Intersects(area) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			return area, true
		}
	}
	return geom.Rect{}, false
}

func (l *Level) addIslandWall(island *AbyssIsland) {
	size := island.Area.Size()
	variance := 0.1 * float64(min(size.X, size.Y))
	verts := cave.EllipseChunk(l.rng,
		mgl64.Vec2{float64(size.X) - variance*2, float64(size.Y) - variance*2}, 16, variance)
	wall, err := cave.NewWall(verts)
	if err != nil {
		l.Diagnostics.DroppedWalls++
		l.logf("abyss island wall at %v: %v", island.Area, err)
		return
	}
	wall.Translate(island.Area.CenterVec())
	island.Wall = wall
	l.ExtraWalls = append(l.ExtraWalls, wall)
}

func (l *Level) addIslandCave(ctx context.Context, island *AbyssIsland) error {
	area := island.Area
	var sites []mgl64.Vec2
	for x := area.X + islandSiteInterval/2; x < area.Right(); x += islandSiteInterval {
		for y := area.Y + islandSiteInterval/2; y < area.Top(); y += islandSiteInterval {
			sites = append(sites, mgl64.Vec2{
				float64(x + l.rng.IntRange(-islandSiteVariance, islandSiteVariance)),
				float64(y + l.rng.IntRange(-islandSiteVariance, islandSiteVariance)),
			})
		}
	}
	diagram, err := voronoi.NewBuilder(0).Build(ctx, sites, area)
	if err != nil {
		return fmt.Errorf("build voronoi diagram: %w", err)
	}
	layout, cells := cave.AssembleCells(l.Graph, diagram, area, l.Params.GridCellSize)
	island.layout = layout
	for _, id := range cells {
		l.cellLayout[id] = layout
	}

	center := area.CenterVec()
	half := mgl64.Vec2{float64(area.Width) / 2, float64(area.Height) / 2}
	inner := area.Inflate(-1, -1)
	for _, id := range cells {
		c := l.Graph.Cell(id)
		d := l.Graph.SitePos(c).Sub(center)
		xd, yd := d[0]/half[0], d[1]/half[1]
		// Flatten the top and taper the underside.
		if yd < 0 {
			xd += xd * math.Abs(yd)
		}
		onBorder := l.Graph.HasEdgeFlag(c, func(e *world.Edge) bool { return !inner.ContainsVec(e.P1) })
		if math.Sqrt(xd*xd+yd*yd) > 0.95 || onBorder {
			l.removeCell(c)
			continue
		}
		island.Cells = append(island.Cells, id)
	}

	params := l.randomCaveParams(true)
	if params == nil {
		return nil
	}
	size := area.Size()
	caveSize := geom.Pt(int(float64(size.X)*0.7), int(float64(size.Y)*0.7))
	pos := area.Center().Add(geom.Pt(0, int(float64(size.Y)*0.3/2)))
	l.generateCave(params, l.MainPath, pos, caveSize, layout)
	return nil
}

// generateAbyssPositions samples open spots in the abyss, stepping out of
// any island they land in and keeping clear of the sea floor.
func (l *Level) generateAbyssPositions() {
	if l.AbyssArea.Empty() {
		return
	}
	a := l.AbyssArea
	for i := 0; i < abyssPositionCount; i++ {
		pos := geom.Pt(l.rng.IntRange(a.X, a.Right()), l.rng.IntRange(a.Y, a.Top()))
		for _, island := range l.AbyssIslands {
			if !island.Area.Contains(pos) {
				continue
			}
			offset := int(float64(island.Area.Width) * 0.6)
			if l.rng.Int(2) == 0 {
				offset = -offset
			}
			pos.X = geom.ClampInt(island.Area.Center().X+offset, a.X, a.Right()-1)
		}
		floor := int(l.BottomPosition(float64(pos.X))[1]) + islandFloorClearance
		pos.Y = min(max(pos.Y, floor), a.Top())
		l.Positions = append(l.Positions, InterestingPosition{Position: pos, Type: PositionAbyss})
	}
}
