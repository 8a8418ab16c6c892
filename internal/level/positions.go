package level

import (
	"log"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"levelgen/internal/geom"
	"levelgen/internal/random"
)

// PositionType classifies interesting positions. Values are bit flags so a
// query can ask for several types at once.
type PositionType uint

const (
	PositionMainPath PositionType = 1 << iota
	PositionSidePath
	PositionCave
	PositionRuin
	PositionWreck
	PositionBeaconStation
	PositionAbyss
	PositionAbyssCave
)

var positionNames = []struct {
	flag PositionType
	name string
}{
	{PositionMainPath, "main path"},
	{PositionSidePath, "side path"},
	{PositionCave, "cave"},
	{PositionRuin, "ruin"},
	{PositionWreck, "wreck"},
	{PositionBeaconStation, "beacon station"},
	{PositionAbyss, "abyss"},
	{PositionAbyssCave, "abyss cave"},
}

func (t PositionType) String() string {
	var parts []string
	for _, n := range positionNames {
		if t&n.flag != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Has reports whether every flag of other is set in t.
func (t PositionType) Has(other PositionType) bool { return t&other == other }

// InterestingPosition is a spot external collaborators use to place
// creatures, missions and structures.
type InterestingPosition struct {
	Position geom.Point
	Type     PositionType
	Cave     *Cave
	Ruin     *Ruin
}

// TryGetInterestingPosition picks a position whose type is included in
// positionType, at least minDist away from away and accepted by filter,
// drawing from rng. When nothing qualifies it still returns a best-effort
// position and false. The level itself is not modified.
func (l *Level) TryGetInterestingPosition(rng *random.Stream, positionType PositionType, away mgl64.Vec2, minDist float64, filter func(InterestingPosition) bool) (geom.Point, bool) {
	if len(l.Positions) == 0 {
		log.Printf("level %q: no interesting positions generated", l.Seed)
		return l.Borders.Center(), false
	}

	var suitable []InterestingPosition
	for _, p := range l.Positions {
		if !positionType.Has(p.Type) {
			continue
		}
		if filter != nil && !filter(p) {
			continue
		}
		if (positionType&(PositionMainPath|PositionSidePath) != 0) && l.insideExtraWall(p.Position.Vec()) {
			continue
		}
		suitable = append(suitable, p)
	}
	if len(suitable) == 0 {
		log.Printf("level %q: no interesting position of type %s", l.Seed, positionType)
		return l.Positions[rng.Int(len(l.Positions))].Position, false
	}

	far := suitable
	if minDist > 0 {
		far = far[:0:0]
		minSq := minDist * minDist
		for _, p := range suitable {
			if geom.DistanceSquared(p.Position.Vec(), away) >= minSq {
				far = append(far, p)
			}
		}
	}
	if len(far) == 0 {
		log.Printf("level %q: no interesting position of type %s at least %.0f from %v", l.Seed, positionType, minDist, away)
		best, bestD := suitable[0].Position, -1.0
		for _, p := range suitable {
			if d := geom.DistanceSquared(p.Position.Vec(), away); d > bestD {
				best, bestD = p.Position, d
			}
		}
		return best, false
	}
	return far[rng.Int(len(far))].Position, true
}

// PositionsOf returns the positions whose type is included in positionType.
func (l *Level) PositionsOf(positionType PositionType) []InterestingPosition {
	var out []InterestingPosition
	for _, p := range l.Positions {
		if positionType.Has(p.Type) {
			out = append(out, p)
		}
	}
	return out
}

func (l *Level) insideExtraWall(p mgl64.Vec2) bool {
	for _, w := range l.ExtraWalls {
		if w != l.seaFloorWall && w.Contains(p) {
			return true
		}
	}
	return false
}
