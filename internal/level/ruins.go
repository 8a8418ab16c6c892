package level

import (
	"context"
	"fmt"
	"math"
	"sort"

	"levelgen/internal/geom"
	"levelgen/internal/random"
	"levelgen/internal/world"
)

const (
	ruinRoomSplits    = 2
	ruinSpawnPoints   = 4
	ruinClearingScale = 4
)

// Ruin is an abandoned structure carved out of the rock next to the main
// path. Rooms are ordered from the farthest to the nearest to Entrance.
type Ruin struct {
	Area     geom.Rect
	Rooms    []geom.Rect
	Entrance geom.Point
}

// generateRuins places the ruins as close to the main path as their size
// allows and clears the rock around their rooms. The stream is reseeded
// from the level seed and the ruin index before each ruin.
func (l *Level) generateRuins(ctx context.Context) error {
	p := l.Params.Ruins
	for i := 0; i < p.Count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.rng.Reseed(random.SeedFromString(fmt.Sprintf("%s:ruin:%d", l.Seed, i)))
		size := geom.Pt(l.rng.IntRange(p.MinSize.X, p.MaxSize.X), l.rng.IntRange(p.MinSize.Y, p.MaxSize.Y))
		radius := max(size.X, size.Y) / 2
		limits := geom.Rect{X: size.X / 2, Y: size.Y / 2, Width: l.Borders.Width - size.X, Height: l.Borders.Height - size.Y}
		if limits.Empty() {
			l.logf("ruin %d (%dx%d) does not fit the level", i, size.X, size.Y)
			continue
		}
		pos := l.FindPosAwayFromMainPath(float64(radius+l.MainPath.MinWidth)*1.2, true, &limits)

		ruin := &Ruin{Area: geom.RectAround(pos, size), Entrance: l.closestMainPathSite(pos)}
		ruin.Rooms = splitRooms(l.rng, ruin.Area, ruinRoomSplits)
		entrance := ruin.Entrance.Vec()
		sort.SliceStable(ruin.Rooms, func(a, b int) bool {
			return geom.DistanceSquared(ruin.Rooms[a].CenterVec(), entrance) >
				geom.DistanceSquared(ruin.Rooms[b].CenterVec(), entrance)
		})
		l.Ruins = append(l.Ruins, ruin)

		l.addRuinPositions(ruin)
		l.clearRuinRooms(ruin)
		l.pathToClosestTunnel(pos)
		l.pruneCells()
	}
	return nil
}

func (l *Level) closestMainPathSite(pos geom.Point) geom.Point {
	best, bestD := pos, math.MaxFloat64
	for _, id := range l.MainPath.Cells {
		site := l.Graph.SitePos(l.Graph.Cell(id))
		if d := geom.DistanceSquared(site, pos.Vec()); d < bestD {
			best, bestD = geom.PointFrom(site), d
		}
	}
	return best
}

// splitRooms halves area across its longer side depth times, cutting
// somewhere around the middle.
func splitRooms(rng *random.Stream, area geom.Rect, depth int) []geom.Rect {
	if depth == 0 || area.Width < 2 || area.Height < 2 {
		return []geom.Rect{area}
	}
	t := rng.Range(0.35, 0.65)
	a, b := area, area
	if area.Width >= area.Height {
		a.Width = int(float64(area.Width) * t)
		b.X, b.Width = area.X+a.Width, area.Width-a.Width
	} else {
		a.Height = int(float64(area.Height) * t)
		b.Y, b.Height = area.Y+a.Height, area.Height-a.Height
	}
	return append(splitRooms(rng, a, depth-1), splitRooms(rng, b, depth-1)...)
}

// addRuinPositions marks the path positions that ended up inside a room and
// tops them up with room centers.
func (l *Level) addRuinPositions(ruin *Ruin) {
	found := 0
	for _, p := range l.PositionsOf(PositionMainPath) {
		for _, room := range ruin.Rooms {
			if room.Contains(p.Position) {
				l.Positions = append(l.Positions, InterestingPosition{Position: p.Position, Type: PositionRuin, Ruin: ruin})
				found++
				break
			}
		}
	}
	for i := 0; i < ruinSpawnPoints-found && i < len(ruin.Rooms); i++ {
		l.Positions = append(l.Positions, InterestingPosition{Position: ruin.Rooms[i].Center(), Type: PositionRuin, Ruin: ruin})
	}
}

// clearRuinRooms removes the solid cells reaching into any room.
func (l *Level) clearRuinRooms(ruin *Ruin) {
	for _, room := range ruin.Rooms {
		reach := float64(max(room.Width, room.Height) * ruinClearingScale)
		for _, c := range l.Layout.TooCloseCells(room.CenterVec(), reach) {
			if c.Type != world.CellSolid || l.isWallSource(c.ID) {
				continue
			}
			if l.Graph.HasEdgeFlag(c, func(e *world.Edge) bool {
				if room.ContainsVec(e.P1) || room.ContainsVec(e.P2) {
					return true
				}
				_, ok := geom.SegmentRectIntersection(e.P1, e.P2, room)
				return ok
			}) {
				l.removeCell(c)
			}
		}
	}
}
