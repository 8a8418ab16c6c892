package level

import (
	"context"
	"fmt"

	"levelgen/internal/geom"
	"levelgen/internal/world"
)

// PlanPath returns the coarse nodes of a tunnel running from start to end.
// Nodes advance along X by the main path node interval. Their height is
// random within bounds, held within variance of the previous node once the
// path is under way, and pushed clear of the tunnels planned so far.
func (l *Level) PlanPath(start, end geom.Point, bounds geom.Rect, parent *world.Tunnel, variance float64) []geom.Point {
	interval := l.Params.Tunnels.MainPathNodeInterval
	nodes := []geom.Point{start}

	for x := start.X + interval.Min; x < end.X-interval.Min; x += l.rng.IntRange(interval.Min, interval.Max) {
		prev := nodes[len(nodes)-1]
		pos := geom.Pt(x, l.rng.IntRange(bounds.Y, bounds.Top()))

		if len(nodes) > 2 || parent != nil {
			limit := float64(bounds.Height) * variance * 0.5
			pos.Y = int(geom.Clamp(float64(pos.Y), float64(prev.Y)-limit, float64(prev.Y)+limit))
		}
		if len(nodes) == 1 {
			// The first node may go anywhere: reflect it around the start so
			// the path crosses the middle of the level.
			pos.Y = start.Y - geom.AbsInt(pos.Y-start.Y)*sign(pos.Y-bounds.Center().Y)
			pos.Y = geom.ClampInt(pos.Y, bounds.Y, bounds.Top())
		}

		pos.Y = l.avoidTunnels(prev, pos, bounds)
		nodes = append(nodes, pos)
	}

	if len(nodes) == 1 {
		nodes = append(nodes, geom.Pt(bounds.Center().X, bounds.Y))
	}
	return append(nodes, end)
}

// avoidTunnels moves pos above or below any planned tunnel segment the step
// prev-pos would cross or run too close to.
func (l *Level) avoidTunnels(prev, pos geom.Point, bounds geom.Rect) int {
	for _, t := range l.Tunnels {
		for i := 1; i < len(t.Nodes); i++ {
			n1, n2 := t.Nodes[i-1], t.Nodes[i]
			if n1.X >= pos.X || n2.X <= prev.X || n1.X == prev.X {
				continue
			}
			if geom.AbsInt(n1.Y-pos.Y) > t.MinWidth && geom.AbsInt(n2.Y-pos.Y) > t.MinWidth &&
				!geom.SegmentsIntersect(n1.Vec(), n2.Vec(), prev.Vec(), pos.Vec()) {
				continue
			}
			if pos.Y < prev.Y {
				pos.Y = min(max(n1.Y, n2.Y)+t.MinWidth*2, bounds.Top())
			} else {
				pos.Y = max(min(n1.Y, n2.Y)-t.MinWidth*2, bounds.Y)
			}
			break
		}
	}
	return pos.Y
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// planTunnels lays out the main path, its exits and holes, the side
// tunnels and the caves.
func (l *Level) planTunnels(context.Context) error {
	tp := l.Params.Tunnels
	main := world.NewTunnel("main path", world.MainPath,
		l.PlanPath(l.StartPosition, l.EndPosition, l.pathBorders, nil, tp.MainPathVariance),
		l.MinMainPathWidth, nil)
	l.MainPath = main
	l.Tunnels = append(l.Tunnels, main)

	exitWidth := minPassageWidth / 2
	if tp.StartPosition.Y < 0.5 {
		l.startPath = world.NewTunnel("start exit", world.SidePath,
			[]geom.Point{l.StartExitPosition, l.StartPosition}, exitWidth, main)
		l.Tunnels = append(l.Tunnels, l.startPath)
	} else {
		l.StartExitPosition = l.StartPosition
	}
	if tp.EndPosition.Y < 0.5 {
		l.endPath = world.NewTunnel("end exit", world.SidePath,
			[]geom.Point{l.EndPosition, l.EndExitPosition}, exitWidth, main)
		l.Tunnels = append(l.Tunnels, l.endPath)
	} else {
		l.EndExitPosition = l.EndPosition
	}

	if tp.CreateHoleNextToEnd {
		// A mirrored level is flipped later, turning its start into the end.
		nodes := []geom.Point{l.EndPosition, l.EndExitPosition, geom.Pt(l.Borders.Width, l.Borders.Height)}
		if l.Mirrored {
			nodes = []geom.Point{l.StartPosition, l.StartExitPosition, geom.Pt(0, l.Borders.Height)}
		}
		l.endHole = world.NewTunnel("end hole", world.SidePath, nodes, exitWidth, main)
		l.Tunnels = append(l.Tunnels, l.endHole)
	}

	if tp.CreateHoleToAbyss {
		lowest := main.Nodes[0]
		for _, n := range main.Nodes {
			if n.Y < lowest.Y {
				lowest = n
			}
		}
		l.Tunnels = append(l.Tunnels, world.NewTunnel("abyss hole", world.SidePath,
			[]geom.Point{lowest, geom.Pt(lowest.X, l.Borders.Y)}, exitWidth, main))
	}

	sideCount := l.rng.IntRange(tp.SideTunnelCount.Min, tp.SideTunnelCount.Max+1)
	for j := 0; j < sideCount; j++ {
		if len(main.Nodes) < 4 {
			break
		}
		var valid []*world.Tunnel
		for _, t := range l.Tunnels {
			if t.Type != world.Cave && !l.isExitTunnel(t) {
				valid = append(valid, t)
			}
		}
		parent := valid[l.rng.Int(len(valid))]
		n := len(parent.Nodes)
		branchStart := parent.Nodes[l.rng.IntRange(0, n/3)]
		branchEnd := parent.Nodes[l.rng.IntRange(n/3*2, n-1)]

		nodes := l.PlanPath(branchStart, branchEnd, l.pathBorders, parent, tp.SideTunnelVariance)
		width := l.rng.IntRange(tp.MinSideTunnelRadius.Min, tp.MinSideTunnelRadius.Max)
		l.Tunnels = append(l.Tunnels, world.NewTunnel(fmt.Sprintf("side path %d", j), world.SidePath, nodes, width, parent))
	}

	l.computeDistanceField()
	l.generateSeaFloorPositions()
	l.generateAbyssArea()
	l.generateCaves(main)
	return nil
}
