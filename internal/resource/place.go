package resource

import (
	"math"

	"levelgen/internal/geom"
	"levelgen/internal/random"
)

// MaxFit is the number of items of the given width that fit on an edge when
// neighbours may overlap by up to maxOverlap of their width.
func MaxFit(edgeLength, width, maxOverlap float64) int {
	if width <= 0 || maxOverlap >= 1 {
		return 0
	}
	return int(math.Floor(edgeLength / ((1 - maxOverlap) * width)))
}

// ClampClusterSize limits size to what fits on the edge and to the items
// still allowed.
func ClampClusterSize(size int, edgeLength, width, maxOverlap float64, remaining int) int {
	size = min(size, MaxFit(edgeLength, width, maxOverlap))
	if size > remaining {
		size = remaining
	}
	return size
}

// ItemOffsets returns count interpolation factors along an edge. Neighbours
// overlap by a random share of their width between the overlap the edge
// forces and maxOverlap; the whole run starts at a random offset.
func ItemOffsets(rng *random.Stream, count int, edgeLength, width, maxOverlap float64) []float64 {
	offsets := make([]float64, count)
	if edgeLength <= 0 {
		return offsets
	}
	total := float64(count) * width
	minOverlap := math.Max(-((edgeLength - total) / total), 0)
	lerp := 0.0
	for i := 1; i < count; i++ {
		overlap := rng.Range(minOverlap, maxOverlap)
		lerp += (1 - overlap) * width / edgeLength
		offsets[i] = geom.Clamp(lerp, 0, 1)
	}
	start := rng.Range(0, math.Max(1-lerp, 0))
	for i := range offsets {
		offsets[i] = geom.Clamp(start+offsets[i], 0, 1)
	}
	return offsets
}
