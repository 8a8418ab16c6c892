package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamIsDeterministic(t *testing.T) {
	a := NewFromString("test-1")
	b := NewFromString("test-1")
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Check(), b.Check(), "draw %d", i)
	}

	c := NewFromString("test-2")
	assert.NotEqual(t, NewFromString("test-1").Check(), c.Check())
}

func TestReseedRestartsSequence(t *testing.T) {
	s := New(42)
	first := []int{s.Int(1000), s.Int(1000), s.Int(1000)}
	s.Reseed(42)
	second := []int{s.Int(1000), s.Int(1000), s.Int(1000)}
	assert.Equal(t, first, second)
	assert.Equal(t, int64(42), s.Seed())
}

func TestRangesStayInBounds(t *testing.T) {
	s := New(7)
	for i := 0; i < 1000; i++ {
		v := s.IntRange(-3, 4)
		require.GreaterOrEqual(t, v, -3)
		require.Less(t, v, 4)

		f := s.Range(2.5, 3.5)
		require.GreaterOrEqual(t, f, 2.5)
		require.Less(t, f, 3.5)
	}
	assert.Equal(t, 5, s.IntRange(5, 5))
	assert.Equal(t, 0, s.Int(0))
}

func TestWeightedIndexSkipsZeroWeights(t *testing.T) {
	s := New(3)
	weights := []float64{0, 1, 0, 3}
	counts := make([]int, len(weights))
	for i := 0; i < 4000; i++ {
		counts[WeightedIndex(s, weights)]++
	}
	assert.Zero(t, counts[0])
	assert.Zero(t, counts[2])
	assert.Greater(t, counts[3], counts[1])

	assert.Equal(t, -1, WeightedIndex(s, []float64{0, 0}))
	assert.Equal(t, -1, WeightedIndex(s, nil))
}
