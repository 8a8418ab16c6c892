package level

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"levelgen/internal/geom"
	"levelgen/internal/world"
)

type fieldPoint struct {
	pos  geom.Point
	dist float64
}

// computeDistanceField samples, on a regular lattice, the distance to the
// nearest tunnel segment, start or exit.
func (l *Level) computeDistanceField() {
	l.distanceField = l.distanceField[:0]
	w, h := l.Borders.Width, l.Borders.Height
	if l.geometryMirrored {
		for x := w - 1; x >= 0; x -= distanceFieldDensity {
			for y := 0; y < h; y += distanceFieldDensity {
				l.addFieldPoint(geom.Pt(x, y))
			}
		}
		return
	}
	for x := 0; x < w; x += distanceFieldDensity {
		for y := 0; y < h; y += distanceFieldDensity {
			l.addFieldPoint(geom.Pt(x, y))
		}
	}
}

func (l *Level) addFieldPoint(p geom.Point) {
	v := p.Vec()
	best := math.Inf(1)
	for _, t := range l.Tunnels {
		for i := 1; i < len(t.Nodes); i++ {
			best = math.Min(best, geom.SegmentPointDistanceSquared(t.Nodes[i-1].Vec(), t.Nodes[i].Vec(), v))
		}
	}
	top := l.Borders.Top()
	for _, q := range []geom.Point{
		l.StartPosition,
		geom.Pt(l.StartExitPosition.X, top),
		l.EndPosition,
		geom.Pt(l.EndExitPosition.X, top),
	} {
		best = math.Min(best, geom.DistanceSquared(v, q.Vec()))
	}
	l.distanceField = append(l.distanceField, fieldPoint{pos: p, dist: math.Sqrt(best)})
}

// FindPosAwayFromMainPath returns a lattice point at least minDistance from
// every tunnel, inside limits when given and clear of the sea floor. With
// asCloseAsPossible it takes the qualifying point nearest to the tunnels,
// otherwise a random one. If nothing qualifies the point nearest to the
// tunnels overall is returned.
func (l *Level) FindPosAwayFromMainPath(minDistance float64, asCloseAsPossible bool, limits *geom.Rect) geom.Point {
	var valid []fieldPoint
	for _, fp := range l.distanceField {
		if fp.dist < minDistance || (limits != nil && !limits.Contains(fp.pos)) {
			continue
		}
		if float64(fp.pos.Y) < l.BottomPosition(float64(fp.pos.X))[1]+minDistance {
			continue
		}
		valid = append(valid, fp)
	}
	if asCloseAsPossible || len(valid) == 0 {
		if len(valid) == 0 {
			valid = l.distanceField
		}
		closest := valid[0]
		for _, fp := range valid {
			if fp.dist < closest.dist {
				closest = fp
			}
		}
		return closest.pos
	}
	return valid[l.rng.Int(len(valid))].pos
}

// distToTunnel is the distance from pos to the nearest segment of t.
func distToTunnel(pos mgl64.Vec2, t *world.Tunnel) float64 {
	best := math.Inf(1)
	for i := 1; i < len(t.Nodes); i++ {
		best = math.Min(best, geom.SegmentPointDistanceSquared(t.Nodes[i-1].Vec(), t.Nodes[i].Vec(), pos))
	}
	return math.Sqrt(best)
}
