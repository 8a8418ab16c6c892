package cave

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"levelgen/internal/geom"
	"levelgen/internal/random"
	"levelgen/internal/world"
)

var (
	ErrTooFewVertices = errors.New("cave: wall needs at least 3 distinct vertices")
	ErrNoTriangles    = errors.New("cave: wall has no triangle with a usable area")
)

// Segment is a piece of a jagged line.
type Segment [2]mgl64.Vec2

// JaggedLine splits start-end by repeated midpoint displacement. Each pass
// halves every segment and offsets the midpoint perpendicular to it by up to
// offset, which halves after each pass. Midpoints leaving bounds are
// reflected back inside.
func JaggedLine(rng *random.Stream, start, end mgl64.Vec2, iterations int, offset float64, bounds geom.Rect) []Segment {
	segments := []Segment{{start, end}}
	for n := 0; n < iterations; n++ {
		next := make([]Segment, 0, len(segments)*2)
		for _, seg := range segments {
			normal := geom.Perpendicular(geom.Normalize(seg[1].Sub(seg[0])))
			mid := seg[0].Add(seg[1]).Mul(0.5)
			mid = mid.Add(normal.Mul(rng.Range(-offset, offset)))
			mid = reflectInto(mid, bounds)
			next = append(next, Segment{seg[0], mid}, Segment{mid, seg[1]})
		}
		segments = next
		offset *= 0.5
	}
	return segments
}

func reflectInto(p mgl64.Vec2, r geom.Rect) mgl64.Vec2 {
	left, right := float64(r.X), float64(r.Right())
	bottom, top := float64(r.Y), float64(r.Top())
	if p[0] < left {
		p[0] = left + (left - p[0])
	} else if p[0] > right {
		p[0] = right - (p[0] - right)
	}
	if p[1] < bottom {
		p[1] = bottom + (bottom - p[1])
	} else if p[1] > top {
		p[1] = top - (p[1] - top)
	}
	p[0] = geom.Clamp(p[0], left, right)
	p[1] = geom.Clamp(p[1], bottom, top)
	return p
}

// RandomChunk returns vertexCount points around the origin at radius plus a
// random variance.
func RandomChunk(rng *random.Stream, radius float64, vertexCount int, radiusVariance float64) []mgl64.Vec2 {
	verts := make([]mgl64.Vec2, 0, vertexCount)
	step := 2 * math.Pi / float64(vertexCount)
	for i := 0; i < vertexCount; i++ {
		angle := step * float64(i)
		r := radius + rng.Range(-radiusVariance, radiusVariance)
		verts = append(verts, mgl64.Vec2{math.Cos(angle) * r, math.Sin(angle) * r})
	}
	return verts
}

// EllipseChunk is RandomChunk stretched to fit size.
func EllipseChunk(rng *random.Stream, size mgl64.Vec2, vertexCount int, radiusVariance float64) []mgl64.Vec2 {
	verts := make([]mgl64.Vec2, 0, vertexCount)
	step := 2 * math.Pi / float64(vertexCount)
	for i := 0; i < vertexCount; i++ {
		angle := step * float64(i)
		rx := size[0]/2 + rng.Range(-radiusVariance, radiusVariance)
		ry := size[1]/2 + rng.Range(-radiusVariance, radiusVariance)
		verts = append(verts, mgl64.Vec2{math.Cos(angle) * rx, math.Sin(angle) * ry})
	}
	return verts
}

// Wall is a standalone solid body: a destructible cave wall, an abyss island
// without a cave or a floating ice chunk.
type Wall struct {
	Vertices  []mgl64.Vec2
	Triangles []Triangle
	// Source is the cell the wall replaced, or world.NoCell.
	Source     world.CellID
	Health     float64
	MaxHealth  float64
	Static     bool
	MoveAmount mgl64.Vec2
	MoveSpeed  float64
}

// NewWall triangulates vertices, given in world space around their centroid.
func NewWall(vertices []mgl64.Vec2) (*Wall, error) {
	distinct := make([]mgl64.Vec2, 0, len(vertices))
	for _, v := range vertices {
		dup := false
		for _, d := range distinct {
			if geom.DistanceSquared(v, d) < 1 {
				dup = true
				break
			}
		}
		if !dup {
			distinct = append(distinct, v)
		}
	}
	if len(distinct) < 3 {
		return nil, ErrTooFewVertices
	}

	center := mgl64.Vec2{}
	for _, v := range distinct {
		center = center.Add(v)
	}
	center = center.Mul(1 / float64(len(distinct)))

	w := &Wall{Vertices: distinct, Source: world.NoCell, Static: true}
	for i := range distinct {
		tri := Triangle{center, distinct[i], distinct[(i+1)%len(distinct)]}
		if tri.Area() < minTriangleArea {
			continue
		}
		w.Triangles = append(w.Triangles, tri)
	}
	if len(w.Triangles) == 0 {
		return nil, ErrNoTriangles
	}
	return w, nil
}

// Translate moves the wall by offset.
func (w *Wall) Translate(offset mgl64.Vec2) {
	for i := range w.Vertices {
		w.Vertices[i] = w.Vertices[i].Add(offset)
	}
	for i := range w.Triangles {
		for k := range w.Triangles[i] {
			w.Triangles[i][k] = w.Triangles[i][k].Add(offset)
		}
	}
}

func (w *Wall) Contains(p mgl64.Vec2) bool {
	return geom.PolygonContains(w.Vertices, p)
}

// Center returns the mean of the wall's vertices.
func (w *Wall) Center() mgl64.Vec2 {
	c := mgl64.Vec2{}
	for _, v := range w.Vertices {
		c = c.Add(v)
	}
	return c.Mul(1 / float64(len(w.Vertices)))
}

// Damage lowers the wall's health and reports whether it broke.
func (w *Wall) Damage(amount float64) bool {
	if !w.Destructible() {
		return false
	}
	w.Health = math.Max(w.Health-amount, 0)
	return w.Health == 0
}

// Destructible reports whether the wall can be broken.
func (w *Wall) Destructible() bool { return w.MaxHealth > 0 }

// MirrorX reflects the wall across the vertical center line of a level.
func (w *Wall) MirrorX(width float64) {
	flip := func(v mgl64.Vec2) mgl64.Vec2 { return mgl64.Vec2{width - v[0], v[1]} }
	for i := range w.Vertices {
		w.Vertices[i] = flip(w.Vertices[i])
	}
	for i := range w.Triangles {
		for k := range w.Triangles[i] {
			w.Triangles[i][k] = flip(w.Triangles[i][k])
		}
	}
	for i, j := 0, len(w.Vertices)-1; i < j; i, j = i+1, j-1 {
		w.Vertices[i], w.Vertices[j] = w.Vertices[j], w.Vertices[i]
	}
	w.MoveAmount[0] = -w.MoveAmount[0]
}
