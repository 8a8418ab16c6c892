package world

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"levelgen/internal/geom"
)

type (
	CellID     int
	EdgeID     int
	SiteID     int
	WayPointID int
)

const (
	NoCell     CellID     = -1
	NoSite     SiteID     = -1
	NoWayPoint WayPointID = -1
)

// CellType tracks what a carving pass has done to a cell. Removed is
// terminal: no pass brings a removed cell back.
type CellType int

const (
	CellSolid CellType = iota
	CellPath
	CellEmpty
	CellRemoved
)

func (t CellType) String() string {
	switch t {
	case CellSolid:
		return "solid"
	case CellPath:
		return "path"
	case CellEmpty:
		return "empty"
	case CellRemoved:
		return "removed"
	default:
		return fmt.Sprintf("CellType(%d)", int(t))
	}
}

// Cell is one Voronoi region of the level.
type Cell struct {
	ID          CellID
	Site        SiteID
	Edges       []EdgeID
	Type        CellType
	Translation mgl64.Vec2
	Island      bool
	// BodyVertices is the deduplicated outline produced by polygon
	// generation, in counter clockwise order.
	BodyVertices []mgl64.Vec2
}

// Edge is the boundary between two cells. Border edges only have Cell1.
type Edge struct {
	ID           EdgeID
	P1, P2       mgl64.Vec2
	Cell1, Cell2 CellID
	Site1, Site2 SiteID

	IsSolid        bool
	OutsideLevel   bool
	NextToMainPath bool
	NextToSidePath bool
	NextToCave     bool
}

func (e *Edge) Center() mgl64.Vec2 { return e.P1.Add(e.P2).Mul(0.5) }

func (e *Edge) LengthSquared() float64 { return geom.DistanceSquared(e.P1, e.P2) }

func (e *Edge) Length() float64 { return math.Sqrt(e.LengthSquared()) }

// Other returns the cell on the opposite side of the edge from c.
func (e *Edge) Other(c CellID) CellID {
	switch c {
	case e.Cell1:
		return e.Cell2
	case e.Cell2:
		return e.Cell1
	default:
		return NoCell
	}
}

// Attach records c on the first free side of the edge.
func (e *Edge) Attach(c CellID, site SiteID) {
	if e.Cell1 == NoCell {
		e.Cell1, e.Site1 = c, site
		return
	}
	e.Cell2, e.Site2 = c, site
}

// Graph is the arena holding every site, cell and edge of a level. Handles
// are indices into the slices and stay valid for the lifetime of the graph.
type Graph struct {
	Sites []mgl64.Vec2
	Cells []*Cell
	Edges []*Edge
}

func NewGraph() *Graph { return &Graph{} }

func (g *Graph) AddSite(p mgl64.Vec2) SiteID {
	g.Sites = append(g.Sites, p)
	return SiteID(len(g.Sites) - 1)
}

func (g *Graph) AddCell(site SiteID) *Cell {
	c := &Cell{ID: CellID(len(g.Cells)), Site: site}
	g.Cells = append(g.Cells, c)
	return c
}

func (g *Graph) AddEdge(p1, p2 mgl64.Vec2) *Edge {
	e := &Edge{ID: EdgeID(len(g.Edges)), P1: p1, P2: p2, Cell1: NoCell, Cell2: NoCell, Site1: NoSite, Site2: NoSite}
	g.Edges = append(g.Edges, e)
	return e
}

// CloneEdge copies the flags and cell references of e onto a new segment.
func (g *Graph) CloneEdge(e *Edge, p1, p2 mgl64.Vec2) *Edge {
	clone := *e
	clone.ID = EdgeID(len(g.Edges))
	clone.P1, clone.P2 = p1, p2
	g.Edges = append(g.Edges, &clone)
	return &clone
}

func (g *Graph) Cell(id CellID) *Cell {
	if id < 0 || int(id) >= len(g.Cells) {
		return nil
	}
	return g.Cells[id]
}

func (g *Graph) Edge(id EdgeID) *Edge { return g.Edges[id] }

// SitePos returns the position of the cell's site without translation.
func (g *Graph) SitePos(c *Cell) mgl64.Vec2 { return g.Sites[c.Site] }

// Center is the site position shifted by the cell's translation.
func (g *Graph) Center(c *Cell) mgl64.Vec2 { return g.Sites[c.Site].Add(c.Translation) }

// Adjacent returns the cell across edge e from c, or nil.
func (g *Graph) Adjacent(e *Edge, c *Cell) *Cell {
	return g.Cell(e.Other(c.ID))
}

// EdgeNormal returns the unit normal of e pointing away from c.
func (g *Graph) EdgeNormal(e *Edge, c *Cell) mgl64.Vec2 {
	normal := geom.Normalize(geom.Perpendicular(e.P2.Sub(e.P1)))
	if normal.Dot(e.Center().Sub(g.Center(c))) < 0 {
		normal = normal.Mul(-1)
	}
	return normal
}

// IsPointInside reports whether p lies in c: the segment from the center to p
// must not cross any edge of the cell.
func (g *Graph) IsPointInside(c *Cell, p mgl64.Vec2) bool {
	center := g.Center(c)
	for _, id := range c.Edges {
		e := g.Edges[id]
		if geom.SegmentsIntersect(center, p, e.P1, e.P2) {
			return false
		}
	}
	return true
}

// Vertices returns the distinct edge endpoints of c sorted counter clockwise
// around its center.
func (g *Graph) Vertices(c *Cell) []mgl64.Vec2 {
	center := g.Center(c)
	verts := make([]mgl64.Vec2, 0, len(c.Edges)*2)
	add := func(p mgl64.Vec2) {
		for _, v := range verts {
			if geom.DistanceSquared(v, p) < 1 {
				return
			}
		}
		verts = append(verts, p)
	}
	for _, id := range c.Edges {
		e := g.Edges[id]
		add(e.P1)
		add(e.P2)
	}
	sort.SliceStable(verts, func(i, j int) bool {
		return geom.Angle(verts[i].Sub(center)) < geom.Angle(verts[j].Sub(center))
	})
	return verts
}

// HasEdgeFlag reports whether any edge of c satisfies pred.
func (g *Graph) HasEdgeFlag(c *Cell, pred func(*Edge) bool) bool {
	for _, id := range c.Edges {
		if pred(g.Edges[id]) {
			return true
		}
	}
	return false
}

// ReleaseSites drops the site references held by edges once consumers no
// longer need them.
func (g *Graph) ReleaseSites() {
	for _, e := range g.Edges {
		e.Site1, e.Site2 = NoSite, NoSite
	}
}

// MirrorX reflects sites and edges across the vertical center line of a level
// of the given width. Sites sitting within one unit above a multiple of
// cellSize are nudged first so they keep a bucket of their own after the flip.
func (g *Graph) MirrorX(width, cellSize float64) {
	for i, s := range g.Sites {
		x := s[0]
		if m := math.Mod(x, cellSize); m >= 0 && m < 1 {
			x++
		}
		g.Sites[i] = mgl64.Vec2{width - x, s[1]}
	}
	for _, e := range g.Edges {
		e.P1 = mgl64.Vec2{width - e.P1[0], e.P1[1]}
		e.P2 = mgl64.Vec2{width - e.P2[0], e.P2[1]}
	}
}

// SharedEdge returns an edge separating a and b, or nil if they do not touch.
func (g *Graph) SharedEdge(a, b *Cell) *Edge {
	for _, id := range a.Edges {
		if e := g.Edges[id]; e.Other(a.ID) == b.ID {
			return e
		}
	}
	return nil
}
