// Package random provides the single deterministic random stream that drives
// level generation. Every draw made while building a level must come from the
// same Stream in the same order, otherwise two processes generating the same
// seed drift apart.
package random

import (
	"hash/fnv"
	"math"
	"math/rand"
)

// Stream wraps a seeded math/rand source.
type Stream struct {
	rng  *rand.Rand
	seed int64
}

func New(seed int64) *Stream {
	return &Stream{rng: rand.New(rand.NewSource(seed)), seed: seed}
}

// NewFromString seeds a stream from a textual level seed.
func NewFromString(seed string) *Stream {
	return New(SeedFromString(seed))
}

// SeedFromString hashes a textual seed into a source seed. The hash is stable
// across processes and platforms.
func SeedFromString(seed string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	return int64(h.Sum64() &^ (1 << 63))
}

// Seed returns the seed the stream was last reset with.
func (s *Stream) Seed() int64 { return s.seed }

// Reseed resets the stream to a fresh sequence.
func (s *Stream) Reseed(seed int64) {
	s.seed = seed
	s.rng.Seed(seed)
}

// Int returns a value in [0, n). Non-positive n yields 0.
func (s *Stream) Int(n int) int {
	if n <= 0 {
		return 0
	}
	return s.rng.Intn(n)
}

// IntRange returns a value in [min, max). An empty range yields min.
func (s *Stream) IntRange(min, max int) int {
	if max <= min {
		return min
	}
	return min + s.rng.Intn(max-min)
}

// Range returns a float in [min, max).
func (s *Stream) Range(min, max float64) float64 {
	return min + s.rng.Float64()*(max-min)
}

func (s *Stream) Float() float64 { return s.rng.Float64() }

func (s *Stream) Int63() int64 { return s.rng.Int63() }

// Check draws the value recorded at stage boundaries to detect desyncs.
func (s *Stream) Check() int {
	return s.Int(math.MaxInt32)
}

// Pick returns a uniformly chosen element. It panics on an empty slice.
func Pick[T any](s *Stream, items []T) T {
	return items[s.Int(len(items))]
}

// WeightedIndex picks an index with probability proportional to its weight.
// It returns -1 when no weight is positive.
func WeightedIndex(s *Stream, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	roll := s.Range(0, total)
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		if roll < w {
			return i
		}
		roll -= w
	}
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i
		}
	}
	return -1
}

// Shuffle permutes items in place.
func Shuffle[T any](s *Stream, items []T) {
	s.rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
}
