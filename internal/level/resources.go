package level

import (
	"context"

	"levelgen/internal/geom"
	"levelgen/internal/resource"
	"levelgen/internal/world"
)

// generateResources scatters resource clusters along the cave walls and
// checks that the finished level can be traversed from start to end.
func (l *Level) generateResources(ctx context.Context) error {
	var blockers []geom.Rect
	for _, r := range l.Ruins {
		blockers = append(blockers, r.Area)
	}
	for _, s := range l.Structures {
		blockers = append(blockers, s.Area)
	}

	engine := resource.NewEngine(l.Graph, l.rng, l.Params.Resources, resource.Options{
		LevelID:   l.Params.Identifier,
		Cells:     l.Bodies.Cells,
		Tunnels:   l.Tunnels,
		Prefabs:   l.prefabs,
		Blockers:  blockers,
		Walls:     l.ExtraWalls,
		AbyssTop:  float64(l.AbyssArea.Top()),
		Start:     l.StartPosition.Vec(),
		Width:     float64(l.Borders.Width),
		Namespace: l.namespace,
	})
	l.Resources = engine.Run()
	if l.Resources.UnderFilled() {
		l.Diagnostics.ResourceShortfall = l.Resources.Target - l.Resources.Placed
		l.logf("placed %d of %d resources", l.Resources.Placed, l.Resources.Target)
	}
	l.Graph.ReleaseSites()

	l.checkConnectivity(ctx)
	return nil
}

// checkConnectivity flags levels whose main path waypoints do not form one
// route from the start to the end.
func (l *Level) checkConnectivity(ctx context.Context) {
	wps := l.MainPath.WayPoints
	if len(wps) < 2 {
		return
	}
	first, last := wps[0], wps[len(wps)-1]
	if first == last || first == world.NoWayPoint {
		return
	}
	if !l.Navigator().Reachable(ctx, first, last) {
		l.Diagnostics.StartEndDisconnected = true
		l.logf("main path waypoints %d and %d are not connected", first, last)
	}
}
