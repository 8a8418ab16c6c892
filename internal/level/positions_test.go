package level

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"levelgen/internal/cave"
	"levelgen/internal/geom"
	"levelgen/internal/random"
)

func positionLevel(positions ...InterestingPosition) *Level {
	return &Level{
		Seed:      "positions",
		Borders:   geom.Rect{Width: 10000, Height: 5000},
		Positions: positions,
		rng:       random.New(7),
	}
}

func TestPositionTypeFlags(t *testing.T) {
	q := PositionMainPath | PositionSidePath
	assert.True(t, q.Has(PositionMainPath))
	assert.True(t, q.Has(PositionSidePath))
	assert.False(t, q.Has(PositionCave))
	assert.Equal(t, "main path|side path", q.String())
	assert.Equal(t, "none", PositionType(0).String())
}

func TestTryGetInterestingPositionHonoursDistanceAndFilter(t *testing.T) {
	quietLogs(t)
	l := positionLevel(
		InterestingPosition{Position: geom.Pt(100, 100), Type: PositionMainPath},
		InterestingPosition{Position: geom.Pt(9000, 100), Type: PositionMainPath},
		InterestingPosition{Position: geom.Pt(8000, 200), Type: PositionSidePath},
		InterestingPosition{Position: geom.Pt(5000, 4000), Type: PositionCave},
	)

	for i := 0; i < 20; i++ {
		pos, ok := l.TryGetInterestingPosition(l.rng, PositionMainPath|PositionSidePath, mgl64.Vec2{0, 0}, 5000, func(p InterestingPosition) bool {
			return p.Position.X != 8000
		})
		require.True(t, ok)
		assert.Equal(t, geom.Pt(9000, 100), pos)
	}
}

func TestTryGetInterestingPositionFallsBack(t *testing.T) {
	quietLogs(t)

	empty := positionLevel()
	pos, ok := empty.TryGetInterestingPosition(empty.rng, PositionCave, mgl64.Vec2{}, 0, nil)
	assert.False(t, ok)
	assert.Equal(t, empty.Borders.Center(), pos)

	l := positionLevel(
		InterestingPosition{Position: geom.Pt(100, 100), Type: PositionMainPath},
		InterestingPosition{Position: geom.Pt(3000, 100), Type: PositionMainPath},
	)
	pos, ok = l.TryGetInterestingPosition(l.rng, PositionMainPath, mgl64.Vec2{0, 0}, 50000, nil)
	assert.False(t, ok)
	assert.Equal(t, geom.Pt(3000, 100), pos, "farthest candidate")

	pos, ok = l.TryGetInterestingPosition(l.rng, PositionRuin, mgl64.Vec2{0, 0}, 0, nil)
	assert.False(t, ok)
	assert.Contains(t, []geom.Point{geom.Pt(100, 100), geom.Pt(3000, 100)}, pos)
}

func TestTryGetInterestingPositionLeavesLevelUntouched(t *testing.T) {
	quietLogs(t)
	l := positionLevel(
		InterestingPosition{Position: geom.Pt(100, 100), Type: PositionMainPath},
		InterestingPosition{Position: geom.Pt(9000, 100), Type: PositionMainPath},
	)

	caller := random.New(99)
	for i := 0; i < 5; i++ {
		l.TryGetInterestingPosition(caller, PositionMainPath, mgl64.Vec2{}, 0, nil)
		l.TryGetInterestingPosition(caller, PositionCave, mgl64.Vec2{}, 0, nil)
		l.TryGetInterestingPosition(caller, PositionMainPath, mgl64.Vec2{}, 1e6, nil)
	}
	assert.Zero(t, l.Diagnostics)
	assert.Equal(t, random.New(7).Int63(), l.rng.Int63(), "level stream was drawn from")

	a, _ := l.TryGetInterestingPosition(random.New(3), PositionMainPath, mgl64.Vec2{}, 0, nil)
	b, _ := l.TryGetInterestingPosition(random.New(3), PositionMainPath, mgl64.Vec2{}, 0, nil)
	assert.Equal(t, a, b)
}

func TestReserveCountsMissingPositions(t *testing.T) {
	quietLogs(t)
	l := positionLevel(InterestingPosition{Position: geom.Pt(100, 100), Type: PositionCave})

	l.reserve(StructureWreck, PositionWreck, geom.Pt(500, 500), 0)
	assert.Equal(t, 1, l.Diagnostics.MissingPositions)
	require.Len(t, l.Structures, 1)
	assert.Equal(t, StructureWreck, l.Structures[0].Kind)
	assert.Len(t, l.PositionsOf(PositionWreck), 1)
}

func TestTryGetInterestingPositionSkipsWalledPathPositions(t *testing.T) {
	quietLogs(t)
	wall, err := cave.NewWall([]mgl64.Vec2{{0, 0}, {1000, 0}, {1000, 1000}, {0, 1000}})
	require.NoError(t, err)

	l := positionLevel(
		InterestingPosition{Position: geom.Pt(500, 500), Type: PositionMainPath},
		InterestingPosition{Position: geom.Pt(5000, 500), Type: PositionMainPath},
	)
	l.ExtraWalls = append(l.ExtraWalls, wall)

	for i := 0; i < 10; i++ {
		pos, ok := l.TryGetInterestingPosition(l.rng, PositionMainPath, mgl64.Vec2{}, 0, nil)
		require.True(t, ok)
		assert.Equal(t, geom.Pt(5000, 500), pos)
	}
}

func TestPositionsOf(t *testing.T) {
	l := positionLevel(
		InterestingPosition{Position: geom.Pt(1, 1), Type: PositionCave},
		InterestingPosition{Position: geom.Pt(2, 2), Type: PositionAbyssCave},
		InterestingPosition{Position: geom.Pt(3, 3), Type: PositionMainPath},
	)
	assert.Len(t, l.PositionsOf(PositionCave|PositionAbyssCave), 2)
	assert.Len(t, l.PositionsOf(PositionWreck), 0)
}
