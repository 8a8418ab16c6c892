package resource

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"levelgen/internal/geom"
	"levelgen/internal/world"
)

// pathWalker moves a position along a polyline by arbitrary distances.
type pathWalker struct {
	nodes []mgl64.Vec2
	next  int
	pos   mgl64.Vec2
}

func newPathWalker(nodes []geom.Point) *pathWalker {
	w := &pathWalker{nodes: make([]mgl64.Vec2, len(nodes)), next: 1}
	for i, n := range nodes {
		w.nodes[i] = n.Vec()
	}
	if len(w.nodes) > 0 {
		w.pos = w.nodes[0]
	}
	return w
}

// advance moves distance along the path. It reports false once the last
// node has been passed; pos then rests on the last node.
func (w *pathWalker) advance(distance float64) bool {
	for w.next < len(w.nodes) {
		target := w.nodes[w.next]
		toNext := geom.Distance(w.pos, target)
		if toNext > 0 && distance <= toNext {
			w.pos = geom.LerpVec(w.pos, target, distance/toNext)
			return true
		}
		distance -= toNext
		w.pos = target
		w.next++
	}
	return false
}

func (w *pathWalker) last() mgl64.Vec2 { return w.nodes[len(w.nodes)-1] }

// samplePathPoints walks every tunnel placing points a random interval
// apart, stopping within one maximum interval of the tunnel's end.
func (e *Engine) samplePathPoints() []*PathPoint {
	var points []*PathPoint
	next := 0
	for ti, t := range e.opts.Tunnels {
		if len(t.Nodes) == 0 {
			continue
		}
		typ := t.Type
		if t.ParentIsCave() {
			typ = world.Cave
		}
		interval := e.intervalFor(typ)
		chance := e.params.SpawnChance
		if typ == world.Cave {
			chance = e.params.CaveSpawnChance
		}
		maxSq := float64(interval.Max) * float64(interval.Max)

		walker := newPathWalker(t.Nodes)
		for {
			distance := e.rng.Range(float64(interval.Min), float64(interval.Max))
			reachedEnd := !walker.advance(distance)
			contains := true
			if chance < 1 {
				contains = e.rng.Range(0, 1) <= chance
			}
			points = append(points, &PathPoint{
				ID:                     fmt.Sprintf("%d:%d", ti, next),
				Position:               walker.pos,
				TunnelType:             typ,
				ShouldContainResources: contains,
			})
			next++
			if reachedEnd || geom.DistanceSquared(walker.pos, walker.last()) <= maxSq {
				break
			}
		}
	}
	return points
}
