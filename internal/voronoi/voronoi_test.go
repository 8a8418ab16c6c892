package voronoi

import (
	"context"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"levelgen/internal/geom"
)

func randomSites(seed int64, n int, bounds geom.Rect) []mgl64.Vec2 {
	rng := rand.New(rand.NewSource(seed))
	sites := make([]mgl64.Vec2, n)
	for i := range sites {
		sites[i] = mgl64.Vec2{
			float64(bounds.X) + rng.Float64()*float64(bounds.Width),
			float64(bounds.Y) + rng.Float64()*float64(bounds.Height),
		}
	}
	return sites
}

func TestBuildEdgesAreBisectors(t *testing.T) {
	bounds := geom.Rect{Width: 10000, Height: 6000}
	diagram, err := NewBuilder(0).Build(context.Background(), randomSites(1, 200, bounds), bounds)
	require.NoError(t, err)
	require.NotEmpty(t, diagram.Edges)

	for _, e := range diagram.Edges {
		mid := e.P1.Add(e.P2).Mul(0.5)
		d1 := geom.Distance(mid, diagram.Sites[e.Site1])
		d2 := geom.Distance(mid, diagram.Sites[e.Site2])
		require.InDelta(t, d1, d2, 1e-6)
		for k, s := range diagram.Sites {
			if k == e.Site1 || k == e.Site2 {
				continue
			}
			require.GreaterOrEqual(t, geom.Distance(mid, s), d1-1e-6, "site %d is closer to edge midpoint", k)
		}
		assert.True(t, e.P1[0] >= 0 && e.P1[0] <= 10000 && e.P1[1] >= 0 && e.P1[1] <= 6000)
	}
}

func TestBuildEmitsEachBoundaryOnce(t *testing.T) {
	bounds := geom.Rect{Width: 2000, Height: 2000}
	sites := []mgl64.Vec2{{500, 500}, {1500, 500}, {500, 1500}, {1500, 1500}}
	diagram, err := NewBuilder(0).Build(context.Background(), sites, bounds)
	require.NoError(t, err)

	type pair struct{ a, b int }
	seen := map[pair]int{}
	for _, e := range diagram.Edges {
		a, b := e.Site1, e.Site2
		if a > b {
			a, b = b, a
		}
		seen[pair{a, b}]++
	}
	// Four sites in a square share four sides; the diagonal pairs meet in a
	// single point and produce no edge.
	assert.Len(t, seen, 4)
	for p, count := range seen {
		assert.Equal(t, 1, count, "pair %v", p)
	}
}

func TestBuildDropsDuplicateAndOutsideSites(t *testing.T) {
	bounds := geom.Rect{Width: 1000, Height: 1000}
	sites := []mgl64.Vec2{{100, 100}, {100.5, 100}, {900, 900}, {-5, 10}}
	diagram, err := NewBuilder(1).Build(context.Background(), sites, bounds)
	require.NoError(t, err)
	assert.Equal(t, []mgl64.Vec2{{100, 100}, {900, 900}}, diagram.Sites)
	require.Len(t, diagram.Edges, 1)
}

func TestBuildRejectsEmptyBounds(t *testing.T) {
	_, err := NewBuilder(0).Build(context.Background(), nil, geom.Rect{Width: 0, Height: 10})
	assert.ErrorIs(t, err, ErrEmptyBounds)
}

func TestBuildIsDeterministic(t *testing.T) {
	bounds := geom.Rect{X: -500, Y: -500, Width: 8000, Height: 4000}
	sites := randomSites(9, 150, bounds)
	a, err := NewBuilder(0).Build(context.Background(), sites, bounds)
	require.NoError(t, err)
	b, err := NewBuilder(0).Build(context.Background(), sites, bounds)
	require.NoError(t, err)
	assert.Equal(t, a.Edges, b.Edges)
}

func TestBuildHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bounds := geom.Rect{Width: 1000, Height: 1000}
	_, err := NewBuilder(0).Build(ctx, randomSites(2, 10, bounds), bounds)
	assert.ErrorIs(t, err, context.Canceled)
}
