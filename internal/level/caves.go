package level

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/zyedidia/generic/mapset"

	"levelgen/internal/cave"
	"levelgen/internal/config"
	"levelgen/internal/geom"
	"levelgen/internal/random"
	"levelgen/internal/world"
)

const (
	caveTunnelWidth   = 100
	caveLineDetail    = 3
	shortPassageSq    = 500 * 500
	closestTunnelSpan = 3
)

// randomCaveParams picks a cave type weighted by its commonness in the
// level's biome, or nil when no type fits.
func (l *Level) randomCaveParams(abyss bool) *config.CaveParams {
	weights := make([]float64, len(l.caveTypes))
	for i, c := range l.caveTypes {
		weights[i] = c.CommonnessIn(l.Biome.Identifier, abyss)
	}
	i := random.WeightedIndex(l.rng, weights)
	if i < 0 {
		return nil
	}
	return &l.caveTypes[i]
}

// generateCaves places CaveCount caves as close to the tunnels as their
// size allows.
func (l *Level) generateCaves(parent *world.Tunnel) {
	for i := 0; i < l.Params.CaveCount; i++ {
		params := l.randomCaveParams(false)
		if params == nil {
			l.logf("no cave type available for biome %q", l.Biome.Identifier)
			return
		}
		size := geom.Pt(
			l.rng.IntRange(params.MinWidth, params.MaxWidth),
			l.rng.IntRange(params.MinHeight, params.MaxHeight))
		radius := max(size.X, size.Y) / 2
		padding := int(float64(size.X) * 1.2)
		allowed := l.Borders.Inflate(-padding, -padding)
		if allowed.Empty() {
			l.logf("cave %s (%dx%d) does not fit the level", params.Identifier, size.X, size.Y)
			continue
		}

		pos := l.FindPosAwayFromMainPath(float64(parent.MinWidth+radius)*1.5, true, &allowed)
		l.generateCave(params, parent, pos, size, nil)
		l.computeDistanceField()
	}
}

// generateCave lays a jagged tunnel through an area of the given size
// centered on pos, entered from the side facing parent, and branches off it.
// layout is the layout the cave is carved in, nil for the main one.
func (l *Level) generateCave(params *config.CaveParams, parent *world.Tunnel, pos, size geom.Point, layout *cave.Layout) *Cave {
	area := geom.RectAround(pos, size)
	c := &Cave{Params: params, Area: area}

	closest := parent.Nodes[0]
	closestD := math.MaxFloat64
	for _, n := range parent.Nodes {
		if area.Contains(n) {
			continue
		}
		if d := geom.DistanceSquared(n.Vec(), pos.Vec()); d < closestD {
			closest, closestD = n, d
		}
	}
	start, ok := geom.SegmentRectIntersection(closest.Vec(), pos.Vec(), area)
	if !ok {
		start = area.Location().Vec()
	}
	c.StartPos = geom.PointFrom(start)
	c.EndPos = pos.Sub(c.StartPos.Sub(pos))

	name := fmt.Sprintf("cave %d", len(l.Caves))
	dist := geom.Distance(start, c.EndPos.Vec())
	main := world.NewTunnel(name, world.Cave,
		jaggedNodes(cave.JaggedLine(l.rng, start, c.EndPos.Vec(), caveLineDetail, dist*0.75, area)),
		caveTunnelWidth, parent)
	c.Tunnels = append(c.Tunnels, main)

	branches := l.rng.IntRange(params.MinBranchCount, params.MaxBranchCount)
	for i := 0; i < branches; i++ {
		from := c.Tunnels[l.rng.Int(len(c.Tunnels))]
		n := len(from.Nodes)
		a := from.Nodes[l.rng.Int(n/2)]
		b := from.Nodes[l.rng.IntRange(n/2, n)]
		d := geom.Distance(a.Vec(), b.Vec())
		branch := world.NewTunnel(fmt.Sprintf("%s branch %d", name, i), world.Cave,
			jaggedNodes(cave.JaggedLine(l.rng, a.Vec(), b.Vec(), caveLineDetail, d, area)),
			0, from)
		c.Tunnels = append(c.Tunnels, branch)
	}

	for _, t := range c.Tunnels {
		end := t.Nodes[len(t.Nodes)-1]
		typ := PositionCave
		if end.Y < l.AbyssArea.Top() {
			typ = PositionAbyssCave
		}
		l.Positions = append(l.Positions, InterestingPosition{Position: end, Type: typ, Cave: c})
		if layout != nil {
			l.tunnelLayout[t] = layout
		}
	}

	l.Tunnels = append(l.Tunnels, c.Tunnels...)
	l.Caves = append(l.Caves, c)
	return c
}

func jaggedNodes(segments []cave.Segment) []geom.Point {
	nodes := make([]geom.Point, 0, len(segments)+1)
	nodes = append(nodes, geom.PointFrom(segments[0][0]))
	for _, s := range segments {
		nodes = append(nodes, geom.PointFrom(s[1]))
	}
	return nodes
}

// pathToClosestTunnel opens a straight passage from pos to the nearest
// carved cell of a non-cave tunnel.
func (l *Level) pathToClosestTunnel(pos geom.Point) {
	target := pos.Vec()
	var (
		closest  *world.Cell
		closestD = math.MaxFloat64
	)
	for _, t := range l.Tunnels {
		if t.Type == world.Cave || l.layoutFor(t) != l.Layout {
			continue
		}
		for _, id := range t.Cells {
			c := l.Graph.Cell(id)
			if d := geom.DistanceSquared(l.Graph.SitePos(c), target); d < closestD {
				closest, closestD = c, d
			}
		}
	}
	if closest == nil {
		return
	}

	from := l.Graph.Center(closest)
	// Snapshot first: removals below must not change what the ray sees.
	var live []*world.Cell
	seen := mapset.New[world.CellID]()
	steps := max(int(math.Ceil(geom.Distance(from, target)/l.Layout.Grid.CellSize())), 1)
	for i := 0; i <= steps; i++ {
		p := geom.LerpVec(from, target, float64(i)/float64(steps))
		for _, c := range l.Layout.CellsNear(p, closestTunnelSpan) {
			if !seen.Has(c.ID) && c.Type != world.CellRemoved {
				seen.Put(c.ID)
				live = append(live, c)
			}
		}
	}

	for _, c := range live {
		if c.Type != world.CellSolid || l.isWallSource(c.ID) || !l.crossedBy(c, from, target) {
			continue
		}
		l.removeCell(c)
		l.widenNarrowGaps(c)
	}
}

func (l *Level) crossedBy(c *world.Cell, a, b mgl64.Vec2) bool {
	return l.Graph.HasEdgeFlag(c, func(e *world.Edge) bool {
		return geom.SegmentsIntersect(a, b, e.P1, e.P2)
	})
}

// widenNarrowGaps removes the cells pinching a short edge between c and an
// open neighbour, so the new passage does not end in a slit.
func (l *Level) widenNarrowGaps(c *world.Cell) {
	for _, id := range c.Edges {
		e := l.Graph.Edge(id)
		adj := l.Graph.Adjacent(e, c)
		if adj == nil || adj.Type == world.CellSolid || e.LengthSquared() >= shortPassageSq {
			continue
		}
		for _, oid := range adj.Edges {
			other := l.Graph.Edge(oid)
			if other == e {
				continue
			}
			if !geom.NearlyEqualVec(other.P1, e.P1, 0.1) && !geom.NearlyEqualVec(other.P1, e.P2, 0.1) &&
				!geom.NearlyEqualVec(other.P2, e.P1, 0.1) && !geom.NearlyEqualVec(other.P2, e.P2, 0.1) {
				continue
			}
			if pinch := l.Graph.Adjacent(other, adj); pinch != nil && pinch.Type == world.CellSolid && !l.isWallSource(pinch.ID) {
				l.removeCell(pinch)
			}
		}
	}
}

func (l *Level) isWallSource(id world.CellID) bool {
	for _, w := range l.ExtraWalls {
		if w.Source == id {
			return true
		}
	}
	return false
}
