package world

import (
	"fmt"
	"math"

	"levelgen/internal/geom"
)

type TunnelType int

const (
	MainPath TunnelType = iota
	SidePath
	Cave
)

func (t TunnelType) String() string {
	switch t {
	case MainPath:
		return "main path"
	case SidePath:
		return "side path"
	case Cave:
		return "cave"
	default:
		return fmt.Sprintf("TunnelType(%d)", int(t))
	}
}

// Tunnel is a planned route through the level. Nodes are the coarse plan;
// Cells is filled in when the route is carved.
type Tunnel struct {
	Name      string
	Type      TunnelType
	Nodes     []geom.Point
	MinWidth  int
	Parent    *Tunnel
	Cells     []CellID
	WayPoints []WayPointID
}

func NewTunnel(name string, typ TunnelType, nodes []geom.Point, minWidth int, parent *Tunnel) *Tunnel {
	return &Tunnel{Name: name, Type: typ, Nodes: nodes, MinWidth: minWidth, Parent: parent}
}

func (t *Tunnel) String() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Type.String()
}

// Length is the summed distance between consecutive nodes.
func (t *Tunnel) Length() float64 {
	total := 0.0
	for i := 1; i < len(t.Nodes); i++ {
		total += math.Sqrt(nodeDistSq(t.Nodes[i-1], t.Nodes[i]))
	}
	return total
}

// ParentIsCave reports whether the tunnel branches off a cave.
func (t *Tunnel) ParentIsCave() bool {
	return t.Parent != nil && t.Parent.Type == Cave
}

func nodeDistSq(a, b geom.Point) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return dx*dx + dy*dy
}
