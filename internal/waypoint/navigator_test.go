package waypoint

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"levelgen/internal/world"
)

// newLadder builds two parallel chains of waypoints joined at both ends:
//
//	0 - 1 - 2 - 3
//	|           |
//	4 --------- 5
func newLadder(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph(uuid.NameSpaceOID)
	for i := 0; i < 4; i++ {
		g.Add(mgl64.Vec2{float64(i) * 100, 0}, KindPath, nil)
	}
	g.Add(mgl64.Vec2{0, 1000}, KindPath, nil)
	g.Add(mgl64.Vec2{300, 1000}, KindPath, nil)
	g.Link(0, 1)
	g.Link(1, 2)
	g.Link(2, 3)
	g.Link(0, 4)
	g.Link(4, 5)
	g.Link(5, 3)
	return g
}

func TestNavigatorPrefersShorterChain(t *testing.T) {
	nav := NewNavigator(newLadder(t))
	route := nav.FindRoute(context.Background(), 0, 3)
	want := []world.WayPointID{0, 1, 2, 3}
	if len(route) != len(want) {
		t.Fatalf("expected route %v, got %v", want, route)
	}
	for i := range want {
		if route[i] != want[i] {
			t.Fatalf("expected route %v, got %v", want, route)
		}
	}
	if got := nav.RouteLength(route); got != 300 {
		t.Fatalf("expected route length 300, got %v", got)
	}
}

func TestNavigatorDetoursAroundMissingLink(t *testing.T) {
	g := newLadder(t)
	g.Points[1].Links = []world.WayPointID{0}
	g.Points[2].Links = []world.WayPointID{3}
	route := NewNavigator(g).FindRoute(context.Background(), 1, 2)
	want := []world.WayPointID{1, 0, 4, 5, 3, 2}
	if len(route) != len(want) {
		t.Fatalf("expected detour %v, got %v", want, route)
	}
	for i := range want {
		if route[i] != want[i] {
			t.Fatalf("expected detour %v, got %v", want, route)
		}
	}
}

func TestNavigatorStartEqualsGoalReturnsSingleNode(t *testing.T) {
	route := NewNavigator(newLadder(t)).FindRoute(context.Background(), 2, 2)
	if len(route) != 1 || route[0] != 2 {
		t.Fatalf("expected single node route, got %v", route)
	}
}

func TestNavigatorRejectsUnknownWaypoints(t *testing.T) {
	nav := NewNavigator(newLadder(t))
	if route := nav.FindRoute(context.Background(), -1, 3); route != nil {
		t.Fatalf("expected nil route for unknown start, got %v", route)
	}
	if route := nav.FindRoute(context.Background(), 0, 42); route != nil {
		t.Fatalf("expected nil route for unknown goal, got %v", route)
	}
}

func TestNavigatorUnreachableGoal(t *testing.T) {
	g := newLadder(t)
	island := g.Add(mgl64.Vec2{5000, 5000}, KindPath, nil)
	nav := NewNavigator(g)
	if nav.Reachable(context.Background(), 0, island.ID) {
		t.Fatalf("expected isolated waypoint to be unreachable")
	}
	if got := g.Components(); got != 2 {
		t.Fatalf("expected 2 components, got %d", got)
	}
}

func TestNavigatorFindRouteCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if route := NewNavigator(newLadder(t)).FindRoute(ctx, 0, 3); route != nil {
		t.Fatalf("expected cancelled search to return nil, got %v", route)
	}
}

func TestNavigatorProfilerRecordsMetrics(t *testing.T) {
	g := newLadder(t)
	island := g.Add(mgl64.Vec2{5000, 5000}, KindPath, nil)
	metrics := &NavigatorMetrics{}
	ctx := ContextWithProfiler(context.Background(), metrics.Profiler())

	nav := NewNavigator(g)
	if route := nav.FindRoute(ctx, 0, 3); len(route) == 0 {
		t.Fatalf("expected route to be found")
	}
	nav.FindRoute(ctx, 0, island.ID)

	snapshot := metrics.Snapshot()
	if snapshot.Searches != 2 {
		t.Fatalf("expected 2 searches, got %#v", snapshot)
	}
	if snapshot.Unreachable != 1 {
		t.Fatalf("expected 1 unreachable search, got %#v", snapshot)
	}
	if snapshot.NodesExpanded == 0 || snapshot.HeuristicEvaluations == 0 {
		t.Fatalf("expected search counters to be recorded, got %#v", snapshot)
	}
	if snapshot.NeighborGenerations == 0 || snapshot.NeighborCount < snapshot.NeighborGenerations {
		t.Fatalf("expected neighbor counters to be recorded, got %#v", snapshot)
	}
}

func TestNavigatorMetricsReset(t *testing.T) {
	metrics := &NavigatorMetrics{}
	profiler := metrics.Profiler()

	profiler.RecordSearch(5)
	profiler.RecordUnreachable()
	profiler.RecordHeuristicEvaluation()
	profiler.RecordNodeExpanded()
	profiler.RecordNeighborGeneration(3)

	snapshot := metrics.Snapshot()
	if snapshot.Searches == 0 || snapshot.SearchTime == 0 || snapshot.NeighborCount != 3 {
		t.Fatalf("expected metrics snapshot to include recorded values, got %#v", snapshot)
	}

	metrics.Reset()
	if cleared := metrics.Snapshot(); cleared != (MetricsSnapshot{}) {
		t.Fatalf("expected metrics to reset, got %#v", cleared)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *NavigatorMetrics
	if metrics.Profiler() != nil {
		t.Fatalf("expected nil profiler from nil metrics")
	}
	metrics.Reset()
	if snapshot := metrics.Snapshot(); snapshot != (MetricsSnapshot{}) {
		t.Fatalf("expected empty snapshot, got %#v", snapshot)
	}
	ctx := context.Background()
	if ContextWithProfiler(ctx, nil) != ctx {
		t.Fatalf("expected context to be returned unchanged")
	}
}
