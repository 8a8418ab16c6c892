package waypoint

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/zyedidia/generic/mapset"

	"levelgen/internal/cave"
	"levelgen/internal/geom"
	"levelgen/internal/world"
)

const (
	DefaultSpliceStep = 2400.0
	DefaultLookBack   = 4
)

// Builder lays waypoints through carved tunnels.
type Builder struct {
	Graph  *Graph
	Layout *cave.Layout
	// SpliceStep is the spacing of waypoints laid by Connect.
	SpliceStep float64
	// LookBack is how many earlier cells are checked for shortcuts.
	LookBack int
	// Blocked, if set, reports extra obstacles (walls, islands) on a line.
	Blocked func(a, b mgl64.Vec2) bool
}

func NewBuilder(graph *Graph, layout *cave.Layout, spliceStep float64, lookBack int) *Builder {
	if spliceStep <= 0 {
		spliceStep = DefaultSpliceStep
	}
	if lookBack <= 0 {
		lookBack = DefaultLookBack
	}
	return &Builder{Graph: graph, Layout: layout, SpliceStep: spliceStep, LookBack: lookBack}
}

type cellPair struct{ a, b world.CellID }

func orderedPair(a, b world.CellID) cellPair {
	if b < a {
		a, b = b, a
	}
	return cellPair{a, b}
}

// BuildTunnel creates one waypoint per carved cell of t, links the chain and
// splices its ends to the parent tunnel. Cells visited more than once reuse
// their waypoint.
func (b *Builder) BuildTunnel(t *world.Tunnel) {
	if len(t.Cells) == 0 {
		return
	}
	g := b.Layout.Graph
	byCell := make(map[world.CellID]world.WayPointID, len(t.Cells))
	shortcuts := mapset.New[cellPair]()

	var first, last world.WayPointID = world.NoWayPoint, world.NoWayPoint
	for i, id := range t.Cells {
		cell := g.Cell(id)
		cell.Type = world.CellPath
		wp, ok := byCell[id]
		if !ok {
			wp = b.Graph.Add(g.Center(cell), KindPath, t).ID
			byCell[id] = wp
		}
		if first == world.NoWayPoint {
			first = wp
		}
		last = wp
		if i == 0 {
			continue
		}

		prevCell := g.Cell(t.Cells[i-1])
		prev := byCell[prevCell.ID]
		if prev != wp {
			b.linkCells(t, prevCell, cell, prev, wp)
		}

		for k := 2; k <= b.LookBack && i-k >= 0; k++ {
			earlierID := t.Cells[i-k]
			if earlierID == id || earlierID == prevCell.ID {
				continue
			}
			pair := orderedPair(earlierID, id)
			if shortcuts.Has(pair) {
				continue
			}
			earlier := g.Cell(earlierID)
			shared := g.SharedEdge(earlier, cell)
			if shared == nil || b.Graph.Linked(byCell[earlierID], wp) {
				continue
			}
			shortcuts.Put(pair)
			mid := b.Graph.Add(shared.Center(), KindShortcut, t).ID
			b.Graph.Link(byCell[earlierID], mid)
			b.Graph.Link(mid, wp)
		}
	}

	parent := t.Parent
	if parent == nil || len(parent.WayPoints) == 0 {
		return
	}
	b.splice(first, parent)
	if t.Type != world.Cave || parent.Type == world.Cave {
		b.splice(last, parent)
	}
}

// linkCells joins the waypoints of two consecutive cells. When the straight
// line between the centers crosses solid geometry, the link detours through
// the midpoint of the shared edge.
func (b *Builder) linkCells(t *world.Tunnel, from, to *world.Cell, a, c world.WayPointID) {
	pa, pc := b.Graph.Get(a).Position, b.Graph.Get(c).Position
	if !b.Layout.SolidBetween(pa, pc) {
		b.Graph.Link(a, c)
		return
	}
	shared := b.Layout.Graph.SharedEdge(from, to)
	if shared == nil {
		b.Graph.Link(a, c)
		return
	}
	mid := b.Graph.Add(shared.Center(), KindPassage, t).ID
	b.Graph.Link(a, mid)
	b.Graph.Link(mid, c)
}

func (b *Builder) splice(id world.WayPointID, parent *world.Tunnel) {
	if id == world.NoWayPoint {
		return
	}
	if nearest := b.Graph.Nearest(b.Graph.Get(id).Position, parent.WayPoints); nearest != world.NoWayPoint {
		b.Graph.Link(id, nearest)
	}
}

// Connect runs after the level geometry is final. Every waypoint of t that
// can see its nearest parent waypoint is joined to it by a line of splice
// waypoints SpliceStep apart. Caves hanging off the main path are skipped.
// It returns the number of waypoints added.
func (b *Builder) Connect(t, parent *world.Tunnel) int {
	if parent == nil || len(parent.WayPoints) == 0 {
		return 0
	}
	if t.Type == world.Cave && parent.Type == world.MainPath {
		return 0
	}
	own := append([]world.WayPointID(nil), t.WayPoints...)
	added := 0
	for _, id := range own {
		from := b.Graph.Get(id).Position
		target := b.Graph.Nearest(from, parent.WayPoints)
		if target == world.NoWayPoint {
			continue
		}
		to := b.Graph.Get(target).Position
		if !b.clear(from, to) {
			continue
		}
		dist := geom.Distance(from, to)
		if dist < 1 {
			b.Graph.Link(id, target)
			continue
		}
		dir := to.Sub(from).Mul(1 / dist)
		prev := id
		for x := b.SpliceStep; x < dist-b.SpliceStep; x += b.SpliceStep {
			wp := b.Graph.Add(from.Add(dir.Mul(x)), KindSplice, t)
			b.Graph.Link(prev, wp.ID)
			prev = wp.ID
			added++
		}
		b.Graph.Link(prev, target)
	}
	return added
}

func (b *Builder) clear(from, to mgl64.Vec2) bool {
	if b.Layout.SolidBetween(from, to) {
		return false
	}
	return b.Blocked == nil || !b.Blocked(from, to)
}
