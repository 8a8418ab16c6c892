package level

import (
	"context"
	"fmt"

	"levelgen/internal/geom"
)

// StructureKind identifies what a Structure slot is reserved for.
type StructureKind int

const (
	StructureOutpost StructureKind = iota
	StructureWreck
	StructureBeacon
)

func (k StructureKind) String() string {
	switch k {
	case StructureOutpost:
		return "outpost"
	case StructureWreck:
		return "wreck"
	case StructureBeacon:
		return "beacon station"
	default:
		return fmt.Sprintf("StructureKind(%d)", int(k))
	}
}

// Structure is an area reserved for an externally built structure.
type Structure struct {
	Kind     StructureKind
	Position geom.Point
	Area     geom.Rect
}

// Placer fits externally built structures into the level. Place receives
// the suggested position and the configured size (zero for outposts) and
// returns the area actually taken, or false to leave the slot empty.
type Placer interface {
	Place(kind StructureKind, pos, size geom.Point) (geom.Rect, bool)
}

// generateStructures connects the tunnels' waypoints, closes the level with
// the sea floor and reserves room for outposts, wrecks and the beacon.
func (l *Level) generateStructures(context.Context) error {
	added := 0
	for _, t := range l.Tunnels {
		if t.Parent == nil {
			continue
		}
		added += l.builderFor(l.layoutFor(t)).Connect(t, t.Parent)
	}
	if added > 0 {
		l.logf("connected tunnels with %d splice waypoints", added)
	}

	l.placeOutposts()
	l.generateSeaFloorWall()

	if l.Mirrored {
		l.StartPosition, l.EndPosition = l.EndPosition, l.StartPosition
		l.StartExitPosition, l.EndExitPosition = l.EndExitPosition, l.StartExitPosition
	}
	for _, s := range l.Structures {
		if s.Kind != StructureOutpost {
			continue
		}
		c := s.Area.Center()
		if s.Position == l.StartExitPosition {
			l.StartExitPosition, l.StartPosition = c, c
		} else {
			l.EndExitPosition, l.EndPosition = c, c
		}
	}

	sp := l.Params.Structures
	minDist := float64(l.MinMainPathWidth * 2)
	for i := 0; i < sp.WreckCount; i++ {
		l.reserve(StructureWreck, PositionWreck, sp.WreckSize, minDist)
	}
	if sp.BeaconStation {
		l.reserve(StructureBeacon, PositionBeaconStation, sp.BeaconSize, float64(l.Borders.Width)/3)
	}
	return nil
}

// placeOutposts asks the placer for an outpost at each end of the level.
// The outpost that ends up at the start sits at the exit that becomes the
// start once a mirrored level swaps its ends.
func (l *Level) placeOutposts() {
	if l.placer == nil {
		return
	}
	for _, pos := range []geom.Point{l.StartExitPosition, l.EndExitPosition} {
		area, ok := l.placer.Place(StructureOutpost, pos, geom.Point{})
		if !ok {
			continue
		}
		l.Structures = append(l.Structures, Structure{Kind: StructureOutpost, Position: pos, Area: area})
	}
}

// reserve claims an interesting spot on the tunnels for a structure and
// records it as a new interesting position of the given type.
func (l *Level) reserve(kind StructureKind, typ PositionType, size geom.Point, minDist float64) {
	free := func(p InterestingPosition) bool {
		for _, s := range l.Structures {
			if s.Area.Contains(p.Position) {
				return false
			}
		}
		return true
	}
	pos, ok := l.TryGetInterestingPosition(l.rng, PositionMainPath|PositionSidePath, l.StartPosition.Vec(), minDist, free)
	if !ok {
		l.Diagnostics.MissingPositions++
		l.logf("no good spot for %s, using %v", kind, pos)
	}

	area := geom.RectAround(pos, size)
	if l.placer != nil {
		if area, ok = l.placer.Place(kind, pos, size); !ok {
			l.logf("placer rejected %s at %v", kind, pos)
			return
		}
	}
	l.Structures = append(l.Structures, Structure{Kind: kind, Position: pos, Area: area})
	l.Positions = append(l.Positions, InterestingPosition{Position: pos, Type: typ})
}
