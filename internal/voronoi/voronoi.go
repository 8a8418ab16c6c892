// Package voronoi builds bounded Voronoi diagrams by clipping each site's
// cell against the bisectors of its neighbours. Neighbours are visited ring by
// ring through a bucket grid so the search stops as soon as no further site
// can cut the cell.
package voronoi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/zyedidia/generic/mapset"

	"levelgen/internal/geom"
)

// ErrEmptyBounds is returned when the diagram has no area to cover.
var ErrEmptyBounds = errors.New("voronoi: bounds must have positive size")

// DefaultMinSiteDistance is the spacing below which two sites are merged.
const DefaultMinSiteDistance = 1.0

const (
	noNeighbour      = -1
	degenerateEdgeSq = 1e-6
)

// Edge separates the cells of Site1 and Site2. Site indices refer to
// Diagram.Sites.
type Edge struct {
	P1, P2       mgl64.Vec2
	Site1, Site2 int
}

// Diagram is the result of a build. Sites holds the sites that survived
// deduplication and bounds filtering, in input order.
type Diagram struct {
	Sites []mgl64.Vec2
	Edges []Edge
}

// Builder constructs diagrams. The zero value is not usable; call NewBuilder.
type Builder struct {
	minDistance float64
}

func NewBuilder(minDistance float64) *Builder {
	if minDistance <= 0 {
		minDistance = DefaultMinSiteDistance
	}
	return &Builder{minDistance: minDistance}
}

type polygon struct {
	points []mgl64.Vec2
	// labels[k] is the neighbour across the side points[k] -> points[k+1].
	labels []int
}

// Build computes the diagram for sites clipped to bounds. Edges lying on the
// bounds are not emitted; only edges shared by two sites are.
func (b *Builder) Build(ctx context.Context, sites []mgl64.Vec2, bounds geom.Rect) (*Diagram, error) {
	if bounds.Empty() {
		return nil, ErrEmptyBounds
	}
	kept := b.filterSites(sites, bounds)
	diagram := &Diagram{Sites: kept}
	if len(kept) < 2 {
		return diagram, nil
	}

	idx := newSiteIndex(kept, bounds)
	polys := make([]polygon, len(kept))
	for i := range kept {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("voronoi: %w", err)
			}
		}
		polys[i] = idx.cell(i, bounds)
	}

	neighbours := make([]mapset.Set[int], len(kept))
	for i, poly := range polys {
		set := mapset.New[int]()
		for k, label := range poly.labels {
			if label != noNeighbour && !poly.degenerate(k) {
				set.Put(label)
			}
		}
		neighbours[i] = set
	}

	for i, poly := range polys {
		n := len(poly.points)
		for k, j := range poly.labels {
			if j == noNeighbour || poly.degenerate(k) {
				continue
			}
			// Each boundary is emitted once, from the lower site unless that
			// site lost the side to rounding.
			if j < i && neighbours[j].Has(i) {
				continue
			}
			diagram.Edges = append(diagram.Edges, Edge{
				P1:    poly.points[k],
				P2:    poly.points[(k+1)%n],
				Site1: i,
				Site2: j,
			})
		}
	}
	return diagram, nil
}

func (p polygon) degenerate(k int) bool {
	a, b := p.points[k], p.points[(k+1)%len(p.points)]
	return geom.DistanceSquared(a, b) < degenerateEdgeSq
}

func (b *Builder) filterSites(sites []mgl64.Vec2, bounds geom.Rect) []mgl64.Vec2 {
	minSq := b.minDistance * b.minDistance
	idx := newSiteIndex(nil, bounds)
	kept := make([]mgl64.Vec2, 0, len(sites))
	for _, s := range sites {
		if s[0] < float64(bounds.X) || s[0] > float64(bounds.Right()) ||
			s[1] < float64(bounds.Y) || s[1] > float64(bounds.Top()) {
			continue
		}
		if idx.anyWithin(s, minSq) {
			continue
		}
		idx.add(s)
		kept = append(kept, s)
	}
	return kept
}

type siteIndex struct {
	sites    []mgl64.Vec2
	origin   mgl64.Vec2
	cellSize float64
	cols     int
	rows     int
	buckets  [][]int
}

func newSiteIndex(sites []mgl64.Vec2, bounds geom.Rect) *siteIndex {
	n := len(sites)
	if n < 16 {
		n = 16
	}
	cellSize := math.Sqrt(float64(bounds.Width) * float64(bounds.Height) / float64(n))
	if cellSize < 1 {
		cellSize = 1
	}
	cols := int(math.Ceil(float64(bounds.Width)/cellSize)) + 1
	rows := int(math.Ceil(float64(bounds.Height)/cellSize)) + 1
	idx := &siteIndex{
		origin:   mgl64.Vec2{float64(bounds.X), float64(bounds.Y)},
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		buckets:  make([][]int, cols*rows),
	}
	for _, s := range sites {
		idx.add(s)
	}
	return idx
}

func (idx *siteIndex) bucketOf(p mgl64.Vec2) (int, int) {
	x := int((p[0] - idx.origin[0]) / idx.cellSize)
	y := int((p[1] - idx.origin[1]) / idx.cellSize)
	return geom.ClampInt(x, 0, idx.cols-1), geom.ClampInt(y, 0, idx.rows-1)
}

func (idx *siteIndex) add(p mgl64.Vec2) {
	x, y := idx.bucketOf(p)
	idx.buckets[y*idx.cols+x] = append(idx.buckets[y*idx.cols+x], len(idx.sites))
	idx.sites = append(idx.sites, p)
}

func (idx *siteIndex) anyWithin(p mgl64.Vec2, distSq float64) bool {
	reach := int(math.Ceil(math.Sqrt(distSq)/idx.cellSize)) + 1
	cx, cy := idx.bucketOf(p)
	for y := cy - reach; y <= cy+reach; y++ {
		for x := cx - reach; x <= cx+reach; x++ {
			if x < 0 || y < 0 || x >= idx.cols || y >= idx.rows {
				continue
			}
			for _, other := range idx.buckets[y*idx.cols+x] {
				if geom.DistanceSquared(idx.sites[other], p) < distSq {
					return true
				}
			}
		}
	}
	return false
}

// ring appends the sites in the buckets at Chebyshev distance r from (cx, cy).
func (idx *siteIndex) ring(cx, cy, r int, out []int) []int {
	for y := cy - r; y <= cy+r; y++ {
		if y < 0 || y >= idx.rows {
			continue
		}
		for x := cx - r; x <= cx+r; x++ {
			if x < 0 || x >= idx.cols {
				continue
			}
			if r > 0 && y != cy-r && y != cy+r && x != cx-r && x != cx+r {
				continue
			}
			out = append(out, idx.buckets[y*idx.cols+x]...)
		}
	}
	return out
}

func (idx *siteIndex) cell(i int, bounds geom.Rect) polygon {
	site := idx.sites[i]
	poly := polygon{
		points: []mgl64.Vec2{
			{float64(bounds.X), float64(bounds.Y)},
			{float64(bounds.Right()), float64(bounds.Y)},
			{float64(bounds.Right()), float64(bounds.Top())},
			{float64(bounds.X), float64(bounds.Top())},
		},
		labels: []int{noNeighbour, noNeighbour, noNeighbour, noNeighbour},
	}
	maxRing := idx.cols
	if idx.rows > maxRing {
		maxRing = idx.rows
	}
	cx, cy := idx.bucketOf(site)
	var candidates []int
	for r := 0; r <= maxRing; r++ {
		// Sites in ring r are at least (r-1) buckets away; a site further than
		// twice the farthest vertex cannot cut the cell.
		if r > 1 && float64(r-1)*idx.cellSize > 2*maxVertexDistance(site, poly.points) {
			break
		}
		candidates = idx.ring(cx, cy, r, candidates[:0])
		sort.Slice(candidates, func(a, b int) bool {
			da := geom.DistanceSquared(idx.sites[candidates[a]], site)
			db := geom.DistanceSquared(idx.sites[candidates[b]], site)
			if da != db {
				return da < db
			}
			return candidates[a] < candidates[b]
		})
		for _, j := range candidates {
			if j == i {
				continue
			}
			poly = clip(poly, site, idx.sites[j], j)
			if len(poly.points) == 0 {
				return poly
			}
		}
	}
	return poly
}

func maxVertexDistance(site mgl64.Vec2, points []mgl64.Vec2) float64 {
	best := 0.0
	for _, p := range points {
		if d := geom.DistanceSquared(site, p); d > best {
			best = d
		}
	}
	return math.Sqrt(best)
}

// clip keeps the part of poly closer to site than to other.
func clip(poly polygon, site, other mgl64.Vec2, label int) polygon {
	normal := other.Sub(site)
	mid := site.Add(other).Mul(0.5)
	side := func(p mgl64.Vec2) float64 { return p.Sub(mid).Dot(normal) }

	n := len(poly.points)
	out := polygon{
		points: make([]mgl64.Vec2, 0, n+1),
		labels: make([]int, 0, n+1),
	}
	changed := false
	for k := 0; k < n; k++ {
		a, b := poly.points[k], poly.points[(k+1)%n]
		fa, fb := side(a), side(b)
		lbl := poly.labels[k]
		switch {
		case fa <= 0 && fb <= 0:
			out.points = append(out.points, a)
			out.labels = append(out.labels, lbl)
		case fa <= 0 && fb > 0:
			out.points = append(out.points, a, lerpAt(a, b, fa, fb))
			out.labels = append(out.labels, lbl, label)
			changed = true
		case fa > 0 && fb <= 0:
			out.points = append(out.points, lerpAt(a, b, fa, fb))
			out.labels = append(out.labels, lbl)
			changed = true
		default:
			changed = true
		}
	}
	if !changed {
		return poly
	}
	return out
}

func lerpAt(a, b mgl64.Vec2, fa, fb float64) mgl64.Vec2 {
	t := fa / (fa - fb)
	return geom.LerpVec(a, b, t)
}
