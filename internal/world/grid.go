package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"levelgen/internal/geom"
)

// Grid buckets cells by site position for neighbourhood queries. Each cell
// lives in at most one bucket; a reverse index makes removal O(bucket size).
type Grid struct {
	origin   mgl64.Vec2
	cellSize float64
	cols     int
	rows     int
	buckets  [][]CellID
	where    map[CellID]int
}

// NewGrid covers borders with square buckets of the given size.
func NewGrid(borders geom.Rect, cellSize int) *Grid {
	if cellSize <= 0 {
		cellSize = 1
	}
	cols := int(math.Ceil(float64(borders.Width) / float64(cellSize)))
	rows := int(math.Ceil(float64(borders.Height) / float64(cellSize)))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return &Grid{
		origin:   mgl64.Vec2{float64(borders.X), float64(borders.Y)},
		cellSize: float64(cellSize),
		cols:     cols,
		rows:     rows,
		buckets:  make([][]CellID, cols*rows),
		where:    make(map[CellID]int),
	}
}

func (g *Grid) CellSize() float64 { return g.cellSize }
func (g *Grid) Cols() int         { return g.cols }
func (g *Grid) Rows() int         { return g.rows }

// BucketOf returns the clamped bucket coordinates containing p.
func (g *Grid) BucketOf(p mgl64.Vec2) (int, int) {
	x := int(math.Floor((p[0] - g.origin[0]) / g.cellSize))
	y := int(math.Floor((p[1] - g.origin[1]) / g.cellSize))
	return geom.ClampInt(x, 0, g.cols-1), geom.ClampInt(y, 0, g.rows-1)
}

// Bucket returns the cells stored at (x, y). The slice must not be modified.
func (g *Grid) Bucket(x, y int) []CellID {
	if x < 0 || y < 0 || x >= g.cols || y >= g.rows {
		return nil
	}
	return g.buckets[y*g.cols+x]
}

// Insert places id in the bucket containing site, relocating it if needed.
func (g *Grid) Insert(id CellID, site mgl64.Vec2) {
	g.Remove(id)
	x, y := g.BucketOf(site)
	idx := y*g.cols + x
	g.buckets[idx] = append(g.buckets[idx], id)
	g.where[id] = idx
}

func (g *Grid) Remove(id CellID) bool {
	idx, ok := g.where[id]
	if !ok {
		return false
	}
	bucket := g.buckets[idx]
	for i, c := range bucket {
		if c == id {
			g.buckets[idx] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	delete(g.where, id)
	return true
}

func (g *Grid) Contains(id CellID) bool {
	_, ok := g.where[id]
	return ok
}

func (g *Grid) Len() int { return len(g.where) }

func (g *Grid) Clear() {
	for i := range g.buckets {
		g.buckets[i] = nil
	}
	g.where = make(map[CellID]int)
}

// Near returns the cells in buckets within depth of the bucket containing p,
// column by column.
func (g *Grid) Near(p mgl64.Vec2, depth int) []CellID {
	cx, cy := g.BucketOf(p)
	var out []CellID
	for x := max(cx-depth, 0); x <= min(cx+depth, g.cols-1); x++ {
		for y := max(cy-depth, 0); y <= min(cy+depth, g.rows-1); y++ {
			out = append(out, g.buckets[y*g.cols+x]...)
		}
	}
	return out
}
