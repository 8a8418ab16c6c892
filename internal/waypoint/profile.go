package waypoint

import (
	"context"
	"sync/atomic"
	"time"
)

// NavigatorProfiler captures instrumentation hooks for route searches.
type NavigatorProfiler interface {
	RecordSearch(duration time.Duration)
	RecordUnreachable()
	RecordHeuristicEvaluation()
	RecordNodeExpanded()
	RecordNeighborGeneration(count int)
}

// NavigatorMetrics accumulates profiling counters for Navigator operations.
type NavigatorMetrics struct {
	searches             atomic.Int64
	searchTime           atomic.Int64
	unreachable          atomic.Int64
	heuristicEvaluations atomic.Int64
	nodesExpanded        atomic.Int64
	neighborGenerations  atomic.Int64
	neighborCount        atomic.Int64
}

// MetricsSnapshot captures a point-in-time copy of navigator metrics.
type MetricsSnapshot struct {
	Searches             int64
	SearchTime           time.Duration
	Unreachable          int64
	HeuristicEvaluations int64
	NodesExpanded        int64
	NeighborGenerations  int64
	NeighborCount        int64
}

// Profiler returns a NavigatorProfiler implementation backed by this metric set.
func (m *NavigatorMetrics) Profiler() NavigatorProfiler {
	if m == nil {
		return nil
	}
	return (*metricsProfiler)(m)
}

// Reset zeroes all counters in the metrics set.
func (m *NavigatorMetrics) Reset() {
	if m == nil {
		return
	}
	m.searches.Store(0)
	m.searchTime.Store(0)
	m.unreachable.Store(0)
	m.heuristicEvaluations.Store(0)
	m.nodesExpanded.Store(0)
	m.neighborGenerations.Store(0)
	m.neighborCount.Store(0)
}

// Snapshot captures the current counter values.
func (m *NavigatorMetrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		Searches:             m.searches.Load(),
		SearchTime:           time.Duration(m.searchTime.Load()),
		Unreachable:          m.unreachable.Load(),
		HeuristicEvaluations: m.heuristicEvaluations.Load(),
		NodesExpanded:        m.nodesExpanded.Load(),
		NeighborGenerations:  m.neighborGenerations.Load(),
		NeighborCount:        m.neighborCount.Load(),
	}
}

type metricsProfiler NavigatorMetrics

func (m *metricsProfiler) RecordSearch(duration time.Duration) {
	metrics := (*NavigatorMetrics)(m)
	metrics.searches.Add(1)
	metrics.searchTime.Add(duration.Nanoseconds())
}

func (m *metricsProfiler) RecordUnreachable() {
	(*NavigatorMetrics)(m).unreachable.Add(1)
}

func (m *metricsProfiler) RecordHeuristicEvaluation() {
	(*NavigatorMetrics)(m).heuristicEvaluations.Add(1)
}

func (m *metricsProfiler) RecordNodeExpanded() {
	(*NavigatorMetrics)(m).nodesExpanded.Add(1)
}

func (m *metricsProfiler) RecordNeighborGeneration(count int) {
	metrics := (*NavigatorMetrics)(m)
	metrics.neighborGenerations.Add(1)
	metrics.neighborCount.Add(int64(count))
}

type profilerContextKey struct{}

// ContextWithProfiler returns a context that reports route searches to
// profiler.
func ContextWithProfiler(ctx context.Context, profiler NavigatorProfiler) context.Context {
	if profiler == nil {
		return ctx
	}
	return context.WithValue(ctx, profilerContextKey{}, profiler)
}

func profilerFromContext(ctx context.Context) NavigatorProfiler {
	if ctx == nil {
		return nil
	}
	if profiler, ok := ctx.Value(profilerContextKey{}).(NavigatorProfiler); ok {
		return profiler
	}
	return nil
}
