// Package resource scatters collectible item clusters along the walls of a
// generated level.
package resource

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"levelgen/internal/world"
)

// exclusiveTags are resource families a path point sticks to once its first
// cluster is placed.
var exclusiveTags = []string{"ore", "plant"}

// ClusterLocation is a solid wall edge that can hold one cluster.
type ClusterLocation struct {
	Cell   world.CellID
	Edge   world.EdgeID
	Center mgl64.Vec2
}

type locationKey struct {
	cell world.CellID
	edge world.EdgeID
}

func (l ClusterLocation) key() locationKey { return locationKey{l.Cell, l.Edge} }

// State is the progress of a path point.
type State int

const (
	NoResources State = iota
	FirstClusterPlaced
	AdditionalClustersPlaced
)

func (s State) String() string {
	switch s {
	case NoResources:
		return "no resources"
	case FirstClusterPlaced:
		return "first cluster placed"
	default:
		return "additional clusters placed"
	}
}

// PathPoint is a sample along a tunnel that owns nearby clusters.
type PathPoint struct {
	ID         string
	Position   mgl64.Vec2
	TunnelType world.TunnelType
	// ShouldContainResources is rolled from the spawn chance and cleared
	// when the first cluster cannot be placed.
	ShouldContainResources bool
	Tags                   []string
	PrefabIDs              []string
	Clusters               []ClusterLocation
}

func (p *PathPoint) State() State {
	switch len(p.Clusters) {
	case 0:
		return NoResources
	case 1:
		return FirstClusterPlaced
	default:
		return AdditionalClustersPlaced
	}
}

// NextClusterProbability is the weight of the point when picking where the
// next additional cluster goes. Zero means the point is full.
func (p *PathPoint) NextClusterProbability() float64 {
	switch len(p.Clusters) {
	case 1:
		return 5
	case 2:
		return 2.5
	case 3:
		return 1
	default:
		return 0
	}
}

func (p *PathPoint) hasTag(tags []string) bool {
	for _, t := range tags {
		for _, own := range p.Tags {
			if own == t {
				return true
			}
		}
	}
	return false
}

func (p *PathPoint) usedPrefab(id string) bool {
	for _, used := range p.PrefabIDs {
		if used == id {
			return true
		}
	}
	return false
}

type ClusterKind int

const (
	ClusterPath ClusterKind = iota
	ClusterFixed
	ClusterAbyss
)

// Item is one placed resource.
type Item struct {
	Handle   uuid.UUID
	Prefab   string
	Position mgl64.Vec2
	// Normal points away from the wall the item is attached to.
	Normal   mgl64.Vec2
	Location ClusterLocation
}

// Cluster groups the items placed on one location.
type Cluster struct {
	Kind      ClusterKind
	Location  ClusterLocation
	Prefab    string
	PathPoint string
	Items     []int
}

// Result is the output of Engine.Run.
type Result struct {
	Items      []Item
	Clusters   []Cluster
	PathPoints []*PathPoint
	// Target is the configured item count for path clusters and Placed the
	// number actually placed there.
	Target int
	Placed int
}

// UnderFilled reports whether fewer path items were placed than requested.
func (r *Result) UnderFilled() bool { return r.Placed < r.Target }

// ClustersOf returns the clusters of the given kind.
func (r *Result) ClustersOf(kind ClusterKind) []Cluster {
	var out []Cluster
	for _, c := range r.Clusters {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// MirrorX reflects items, locations and path points across the vertical
// center line of a level of the given width.
func (r *Result) MirrorX(width float64) {
	flip := func(v mgl64.Vec2) mgl64.Vec2 { return mgl64.Vec2{width - v[0], v[1]} }
	for i := range r.Items {
		it := &r.Items[i]
		it.Position = flip(it.Position)
		it.Normal[0] = -it.Normal[0]
		it.Location.Center = flip(it.Location.Center)
	}
	for i := range r.Clusters {
		r.Clusters[i].Location.Center = flip(r.Clusters[i].Location.Center)
	}
	for _, p := range r.PathPoints {
		p.Position = flip(p.Position)
		for i := range p.Clusters {
			p.Clusters[i].Center = flip(p.Clusters[i].Center)
		}
	}
}
