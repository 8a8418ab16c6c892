// Package waypoint builds the navigation graph laid through carved tunnels
// and searches it.
package waypoint

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"levelgen/internal/geom"
	"levelgen/internal/world"
)

type Kind int

const (
	// KindPath sits at the center of a carved cell.
	KindPath Kind = iota
	// KindPassage sits on the edge between two consecutive cells whose
	// centers cannot see each other.
	KindPassage
	// KindShortcut joins two non-consecutive cells of the same tunnel.
	KindShortcut
	// KindSplice is laid along a line connecting a tunnel to its parent.
	KindSplice
)

func (k Kind) String() string {
	switch k {
	case KindPath:
		return "path"
	case KindPassage:
		return "passage"
	case KindShortcut:
		return "shortcut"
	case KindSplice:
		return "splice"
	default:
		return "unknown"
	}
}

// WayPoint is a node of the navigation graph. Links are undirected.
type WayPoint struct {
	ID       world.WayPointID
	Handle   uuid.UUID
	Position mgl64.Vec2
	Kind     Kind
	Tunnel   *world.Tunnel
	Links    []world.WayPointID
}

// Graph is the arena holding every waypoint of a level.
type Graph struct {
	namespace uuid.UUID
	Points    []*WayPoint
}

// NewGraph creates an empty graph. Handles are derived from namespace and
// the waypoint index, so identical levels yield identical handles.
func NewGraph(namespace uuid.UUID) *Graph {
	return &Graph{namespace: namespace}
}

func (g *Graph) Len() int { return len(g.Points) }

// Get returns the waypoint with the given id, or nil.
func (g *Graph) Get(id world.WayPointID) *WayPoint {
	if id < 0 || int(id) >= len(g.Points) {
		return nil
	}
	return g.Points[id]
}

// Add creates a waypoint and records it on its tunnel.
func (g *Graph) Add(pos mgl64.Vec2, kind Kind, tunnel *world.Tunnel) *WayPoint {
	id := world.WayPointID(len(g.Points))
	var name [8]byte
	binary.LittleEndian.PutUint64(name[:], uint64(id))
	wp := &WayPoint{
		ID:       id,
		Handle:   uuid.NewSHA1(g.namespace, name[:]),
		Position: pos,
		Kind:     kind,
		Tunnel:   tunnel,
	}
	g.Points = append(g.Points, wp)
	if tunnel != nil {
		tunnel.WayPoints = append(tunnel.WayPoints, id)
	}
	return wp
}

// Link connects a and b in both directions. Self links and duplicates are
// ignored.
func (g *Graph) Link(a, b world.WayPointID) {
	if a == b {
		return
	}
	pa, pb := g.Get(a), g.Get(b)
	if pa == nil || pb == nil || pa.linked(b) {
		return
	}
	pa.Links = append(pa.Links, b)
	pb.Links = append(pb.Links, a)
}

// Linked reports whether a and b share a link.
func (g *Graph) Linked(a, b world.WayPointID) bool {
	pa := g.Get(a)
	return pa != nil && pa.linked(b)
}

func (w *WayPoint) linked(id world.WayPointID) bool {
	for _, l := range w.Links {
		if l == id {
			return true
		}
	}
	return false
}

// Nearest returns the waypoint among candidates closest to pos, or
// world.NoWayPoint when candidates is empty. Ties keep the earlier candidate.
func (g *Graph) Nearest(pos mgl64.Vec2, candidates []world.WayPointID) world.WayPointID {
	best, bestD := world.NoWayPoint, math.MaxFloat64
	for _, id := range candidates {
		if d := geom.DistanceSquared(g.Points[id].Position, pos); d < bestD {
			best, bestD = id, d
		}
	}
	return best
}

// NearestAny searches the whole graph.
func (g *Graph) NearestAny(pos mgl64.Vec2) world.WayPointID {
	best, bestD := world.NoWayPoint, math.MaxFloat64
	for _, wp := range g.Points {
		if d := geom.DistanceSquared(wp.Position, pos); d < bestD {
			best, bestD = wp.ID, d
		}
	}
	return best
}

// MirrorX reflects every waypoint across the vertical center line.
func (g *Graph) MirrorX(width float64) {
	for _, wp := range g.Points {
		wp.Position[0] = width - wp.Position[0]
	}
}

// Components counts the connected components of the graph.
func (g *Graph) Components() int {
	seen := make([]bool, len(g.Points))
	count := 0
	stack := make([]world.WayPointID, 0, 64)
	for i := range g.Points {
		if seen[i] {
			continue
		}
		count++
		seen[i] = true
		stack = append(stack[:0], world.WayPointID(i))
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, l := range g.Points[id].Links {
				if !seen[l] {
					seen[l] = true
					stack = append(stack, l)
				}
			}
		}
	}
	return count
}
