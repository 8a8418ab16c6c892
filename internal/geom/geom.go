// Package geom holds the planar primitives shared by the level generator.
// Level space uses integer Points and Rects for coarse layout (tunnel nodes,
// areas) and mgl64.Vec2 for everything continuous. Y grows upwards: the sea
// floor sits at negative Y and Rect.Top is the upper edge.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Point is an integer position in level space.
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y int) Point { return Point{X: x, Y: y} }

// PointFrom truncates a vector towards zero.
func PointFrom(v mgl64.Vec2) Point {
	return Point{X: int(v[0]), Y: int(v[1])}
}

func (p Point) Vec() mgl64.Vec2 {
	return mgl64.Vec2{float64(p.X), float64(p.Y)}
}

func (p Point) Add(o Point) Point { return Point{X: p.X + o.X, Y: p.Y + o.Y} }
func (p Point) Sub(o Point) Point { return Point{X: p.X - o.X, Y: p.Y - o.Y} }

// Rect is an axis aligned integer rectangle anchored at its lower left corner.
type Rect struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

func (r Rect) Right() int      { return r.X + r.Width }
func (r Rect) Top() int        { return r.Y + r.Height }
func (r Rect) Location() Point { return Point{X: r.X, Y: r.Y} }
func (r Rect) Size() Point     { return Point{X: r.Width, Y: r.Height} }
func (r Rect) Empty() bool     { return r.Width <= 0 || r.Height <= 0 }

func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

func (r Rect) CenterVec() mgl64.Vec2 {
	return mgl64.Vec2{float64(r.X) + float64(r.Width)/2, float64(r.Y) + float64(r.Height)/2}
}

// Contains reports whether p lies inside r. The right and top edges are exclusive.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.Right() && p.Y >= r.Y && p.Y < r.Top()
}

func (r Rect) ContainsVec(v mgl64.Vec2) bool {
	return v[0] >= float64(r.X) && v[0] < float64(r.Right()) &&
		v[1] >= float64(r.Y) && v[1] < float64(r.Top())
}

func (r Rect) Intersects(o Rect) bool {
	return o.X < r.Right() && r.X < o.Right() && o.Y < r.Top() && r.Y < o.Top()
}

// Inflate grows r by dx on the left and right and dy on the bottom and top.
// Negative values shrink it.
func (r Rect) Inflate(dx, dy int) Rect {
	return Rect{X: r.X - dx, Y: r.Y - dy, Width: r.Width + 2*dx, Height: r.Height + 2*dy}
}

// RectAround returns a rect of the given size centered on c.
func RectAround(c Point, size Point) Rect {
	return Rect{X: c.X - size.X/2, Y: c.Y - size.Y/2, Width: size.X, Height: size.Y}
}

func Lerp(a, b, t float64) float64 { return a + (b-a)*t }

func LerpVec(a, b mgl64.Vec2, t float64) mgl64.Vec2 {
	return mgl64.Vec2{Lerp(a[0], b[0], t), Lerp(a[1], b[1], t)}
}

// InverseLerp returns where v sits between a and b. Equal bounds yield 0.
func InverseLerp(a, b, v float64) float64 {
	if a == b {
		return 0
	}
	return (v - a) / (b - a)
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func AbsInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func DistanceSquared(a, b mgl64.Vec2) float64 {
	d := a.Sub(b)
	return d.Dot(d)
}

func Distance(a, b mgl64.Vec2) float64 {
	return math.Sqrt(DistanceSquared(a, b))
}

// Normalize returns the unit vector of v, or the zero vector when v is degenerate.
func Normalize(v mgl64.Vec2) mgl64.Vec2 {
	l := v.Len()
	if l < 1e-12 {
		return mgl64.Vec2{}
	}
	return v.Mul(1 / l)
}

// Perpendicular rotates v by 90 degrees counter clockwise.
func Perpendicular(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{-v[1], v[0]}
}

func Cross(a, b mgl64.Vec2) float64 {
	return a[0]*b[1] - a[1]*b[0]
}

func NearlyEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

func NearlyEqualVec(a, b mgl64.Vec2, epsilon float64) bool {
	return NearlyEqual(a[0], b[0], epsilon) && NearlyEqual(a[1], b[1], epsilon)
}

// SegmentIntersection returns the crossing point of segments a1-a2 and b1-b2.
// Parallel and collinear segments never intersect.
func SegmentIntersection(a1, a2, b1, b2 mgl64.Vec2) (mgl64.Vec2, bool) {
	r := a2.Sub(a1)
	s := b2.Sub(b1)
	denom := Cross(r, s)
	if math.Abs(denom) < 1e-12 {
		return mgl64.Vec2{}, false
	}
	qp := b1.Sub(a1)
	t := Cross(qp, s) / denom
	u := Cross(qp, r) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return mgl64.Vec2{}, false
	}
	return a1.Add(r.Mul(t)), true
}

func SegmentsIntersect(a1, a2, b1, b2 mgl64.Vec2) bool {
	_, ok := SegmentIntersection(a1, a2, b1, b2)
	return ok
}

// ClosestPointOnSegment projects p onto the segment a-b.
func ClosestPointOnSegment(a, b, p mgl64.Vec2) mgl64.Vec2 {
	ab := b.Sub(a)
	lenSq := ab.Dot(ab)
	if lenSq == 0 {
		return a
	}
	t := Clamp(p.Sub(a).Dot(ab)/lenSq, 0, 1)
	return a.Add(ab.Mul(t))
}

func SegmentPointDistanceSquared(a, b, p mgl64.Vec2) float64 {
	return DistanceSquared(ClosestPointOnSegment(a, b, p), p)
}

// SegmentRectIntersection returns the intersection of segment a-b with the
// outline of r that lies closest to a.
func SegmentRectIntersection(a, b mgl64.Vec2, r Rect) (mgl64.Vec2, bool) {
	corners := [4]mgl64.Vec2{
		{float64(r.X), float64(r.Y)},
		{float64(r.Right()), float64(r.Y)},
		{float64(r.Right()), float64(r.Top())},
		{float64(r.X), float64(r.Top())},
	}
	var (
		best  mgl64.Vec2
		found bool
		bestD = math.MaxFloat64
	)
	for i := range corners {
		p, ok := SegmentIntersection(a, b, corners[i], corners[(i+1)%4])
		if !ok {
			continue
		}
		if d := DistanceSquared(a, p); d < bestD {
			best, bestD, found = p, d, true
		}
	}
	return best, found
}

// PolygonContains tests p against a closed polygon with the even-odd rule.
func PolygonContains(poly []mgl64.Vec2, p mgl64.Vec2) bool {
	inside := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		pi, pj := poly[i], poly[j]
		if (pi[1] > p[1]) != (pj[1] > p[1]) &&
			p[0] < (pj[0]-pi[0])*(p[1]-pi[1])/(pj[1]-pi[1])+pi[0] {
			inside = !inside
		}
	}
	return inside
}

// SignedArea is positive for counter clockwise polygons.
func SignedArea(poly []mgl64.Vec2) float64 {
	area := 0.0
	for i := range poly {
		j := (i + 1) % len(poly)
		area += Cross(poly[i], poly[j])
	}
	return area / 2
}

// Angle returns the direction of v in radians.
func Angle(v mgl64.Vec2) float64 {
	return math.Atan2(v[1], v[0])
}
