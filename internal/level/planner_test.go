package level

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"levelgen/internal/geom"
	"levelgen/internal/world"
)

func plannedLevel(t *testing.T, seed string) *Level {
	t.Helper()
	l, err := newLevel(smallRequest(seed))
	require.NoError(t, err)
	require.NoError(t, l.placeEndpoints(context.Background()))
	return l
}

func TestPlanPathAdvancesWithinBounds(t *testing.T) {
	for _, seed := range []string{"a", "b", "c", "d"} {
		l := plannedLevel(t, seed)
		nodes := l.PlanPath(l.StartPosition, l.EndPosition, l.pathBorders, nil, 0.5)

		require.GreaterOrEqual(t, len(nodes), 3, seed)
		assert.Equal(t, l.StartPosition, nodes[0])
		assert.Equal(t, l.EndPosition, nodes[len(nodes)-1])
		for i := 1; i < len(nodes)-1; i++ {
			assert.Greater(t, nodes[i].X, nodes[i-1].X, "%s node %d", seed, i)
			assert.GreaterOrEqual(t, nodes[i].Y, l.pathBorders.Y, "%s node %d", seed, i)
			assert.LessOrEqual(t, nodes[i].Y, l.pathBorders.Top(), "%s node %d", seed, i)
		}
	}
}

func TestPlanPathShortSpanGetsMidpoint(t *testing.T) {
	l := plannedLevel(t, "short")
	start := geom.Pt(1000, 5000)
	end := geom.Pt(start.X+l.Params.Tunnels.MainPathNodeInterval.Min, 6000)

	nodes := l.PlanPath(start, end, l.pathBorders, nil, 0.5)
	require.Len(t, nodes, 3)
	assert.Equal(t, geom.Pt(l.pathBorders.Center().X, l.pathBorders.Y), nodes[1])
}

func TestPlanPathAvoidsPlannedTunnels(t *testing.T) {
	l := plannedLevel(t, "avoid")
	b := l.pathBorders
	mid := b.Center().Y
	blocker := world.NewTunnel("blocker", world.SidePath,
		[]geom.Point{geom.Pt(b.X, mid), geom.Pt(b.Right(), mid)}, 500, nil)
	l.Tunnels = append(l.Tunnels, blocker)

	prev := geom.Pt(b.X+1000, mid+3000)
	pos := geom.Pt(b.X+6000, mid-3000)
	y := l.avoidTunnels(prev, pos, b)
	assert.Equal(t, min(mid+blocker.MinWidth*2, b.Top()), y)

	prev, pos = pos, geom.Pt(b.X+12000, mid+3000)
	prev.Y = mid - 3000
	y = l.avoidTunnels(prev, pos, b)
	assert.Equal(t, max(mid-blocker.MinWidth*2, b.Y), y)
}

func TestPlanTunnelsBuildsExitsAndHoles(t *testing.T) {
	l := plannedLevel(t, "tunnels")
	l.Params.CaveCount = 0
	require.NoError(t, l.planTunnels(context.Background()))

	names := make(map[string]*world.Tunnel)
	for _, tun := range l.Tunnels {
		names[tun.Name] = tun
	}
	require.Same(t, l.MainPath, l.Tunnels[0])
	for _, name := range []string{"start exit", "end exit", "end hole", "abyss hole"} {
		tun, ok := names[name]
		if assert.True(t, ok, name) {
			assert.Same(t, l.MainPath, tun.Parent, name)
		}
	}
	assert.Equal(t, l.Borders.Y, names["abyss hole"].Nodes[1].Y)
	assert.NotNil(t, l.SeaFloor)
	assert.False(t, l.AbyssArea.Empty())
}

func TestSign(t *testing.T) {
	assert.Equal(t, 1, sign(7))
	assert.Equal(t, -1, sign(-3))
	assert.Equal(t, 0, sign(0))
}
