package waypoint

import (
	"container/heap"
	"context"
	"time"

	"levelgen/internal/geom"
	"levelgen/internal/world"
)

// Navigator performs A* search over a waypoint graph.
type Navigator struct {
	graph *Graph
}

func NewNavigator(graph *Graph) *Navigator {
	return &Navigator{graph: graph}
}

// FindRoute returns the waypoints from start to goal, both included, or nil
// when goal cannot be reached or ctx is cancelled.
func (n *Navigator) FindRoute(ctx context.Context, start, goal world.WayPointID) []world.WayPointID {
	profiler := profilerFromContext(ctx)
	if profiler != nil {
		began := time.Now()
		defer func() { profiler.RecordSearch(time.Since(began)) }()
	}
	if n.graph == nil || n.graph.Get(start) == nil || n.graph.Get(goal) == nil {
		return nil
	}
	if start == goal {
		return []world.WayPointID{start}
	}

	goalPos := n.graph.Get(goal).Position
	open := &routeQueue{}
	heap.Init(open)
	heap.Push(open, &routeNode{id: start, priority: 0})

	cameFrom := map[world.WayPointID]world.WayPointID{}
	gScore := map[world.WayPointID]float64{start: 0}
	closed := make(map[world.WayPointID]struct{})

	for open.Len() > 0 {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		current := heap.Pop(open).(*routeNode)
		if _, done := closed[current.id]; done {
			continue
		}
		closed[current.id] = struct{}{}
		if profiler != nil {
			profiler.RecordNodeExpanded()
		}
		if current.id == goal {
			return reconstructRoute(cameFrom, current.id)
		}

		wp := n.graph.Get(current.id)
		if profiler != nil {
			profiler.RecordNeighborGeneration(len(wp.Links))
		}
		for _, neighbor := range wp.Links {
			if _, done := closed[neighbor]; done {
				continue
			}
			next := n.graph.Get(neighbor)
			tentative := gScore[current.id] + geom.Distance(wp.Position, next.Position)
			if score, ok := gScore[neighbor]; ok && tentative >= score {
				continue
			}
			cameFrom[neighbor] = current.id
			gScore[neighbor] = tentative
			if profiler != nil {
				profiler.RecordHeuristicEvaluation()
			}
			priority := tentative + geom.Distance(next.Position, goalPos)
			heap.Push(open, &routeNode{id: neighbor, priority: priority})
		}
	}
	if profiler != nil {
		profiler.RecordUnreachable()
	}
	return nil
}

// Reachable reports whether a route from start to goal exists.
func (n *Navigator) Reachable(ctx context.Context, start, goal world.WayPointID) bool {
	return n.FindRoute(ctx, start, goal) != nil
}

// RouteLength sums the distances along route.
func (n *Navigator) RouteLength(route []world.WayPointID) float64 {
	total := 0.0
	for i := 1; i < len(route); i++ {
		total += geom.Distance(n.graph.Get(route[i-1]).Position, n.graph.Get(route[i]).Position)
	}
	return total
}

func reconstructRoute(cameFrom map[world.WayPointID]world.WayPointID, current world.WayPointID) []world.WayPointID {
	route := []world.WayPointID{current}
	for {
		prev, ok := cameFrom[current]
		if !ok {
			break
		}
		route = append(route, prev)
		current = prev
	}
	for i, j := 0, len(route)-1; i < j; i, j = i+1, j-1 {
		route[i], route[j] = route[j], route[i]
	}
	return route
}

type routeNode struct {
	id       world.WayPointID
	priority float64
	index    int
}

type routeQueue []*routeNode

func (q routeQueue) Len() int { return len(q) }
func (q routeQueue) Less(i, j int) bool {
	if q[i].priority == q[j].priority {
		return q[i].id < q[j].id
	}
	return q[i].priority < q[j].priority
}
func (q routeQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *routeQueue) Push(x any) {
	item := x.(*routeNode)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *routeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}
