package level

import (
	"math"

	perlin "github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl64"

	"levelgen/internal/cave"
	"levelgen/internal/geom"
)

const (
	seaFloorSegmentLength = 5000
	seaFloorNoiseScale    = 20000.0
	seaFloorThickness     = 2000
)

// SeaFloor is the height profile bounding the level from below.
type SeaFloor struct {
	// Positions run from x = 0 to x = width.
	Positions []geom.Point
	// BottomPos is the configured floor depth; TopPos the highest peak.
	BottomPos, TopPos int
	Wall              *cave.Wall
}

// BottomPosition interpolates the floor height at x in a level of the given
// width. Positions outside the profile report the configured depth.
func (s *SeaFloor) BottomPosition(x float64, width int) mgl64.Vec2 {
	if s == nil || len(s.Positions) < 2 || width <= 0 {
		return mgl64.Vec2{x, math.Inf(-1)}
	}
	n := len(s.Positions)
	i := int(math.Floor(x / float64(width) * float64(n-1)))
	if i < 0 || i >= n-1 {
		return mgl64.Vec2{x, float64(s.BottomPos)}
	}
	a, b := s.Positions[i], s.Positions[i+1]
	t := 0.0
	if b.X != a.X {
		t = geom.Clamp((x-float64(a.X))/float64(b.X-a.X), 0, 1)
	}
	return mgl64.Vec2{x, geom.Lerp(float64(a.Y), float64(b.Y), t)}
}

func (s *SeaFloor) mirrorX(width int) {
	for i := range s.Positions {
		s.Positions[i].X = width - s.Positions[i].X
	}
	for i, j := 0, len(s.Positions)-1; i < j; i, j = i+1, j-1 {
		s.Positions[i], s.Positions[j] = s.Positions[j], s.Positions[i]
	}
}

// generateSeaFloorPositions raises a few mountains on the floor and then
// subdivides the profile, lifting every new midpoint by a noise offset.
func (l *Level) generateSeaFloorPositions() {
	p := l.Params.SeaFloor
	w := l.Borders.Width
	floor := &SeaFloor{BottomPos: p.Depth, TopPos: p.Depth}

	floor.Positions = append(floor.Positions, geom.Pt(0, p.Depth))
	mountains := l.rng.IntRange(p.MountainCount.Min, p.MountainCount.Max+1)
	for i := 0; i < mountains; i++ {
		x := w / (mountains + 1) * (i + 1)
		floor.Positions = append(floor.Positions, geom.Pt(x, p.Depth+l.rng.IntRange(p.MountainHeight.Min, p.MountainHeight.Max+1)))
	}
	floor.Positions = append(floor.Positions, geom.Pt(w, p.Depth))

	noise := perlin.NewPerlin(2, 2, 3, l.rng.Int63())
	for {
		var next []geom.Point
		split := false
		for i, pos := range floor.Positions {
			next = append(next, pos)
			if i == len(floor.Positions)-1 {
				break
			}
			nb := floor.Positions[i+1]
			if nb.X-pos.X <= seaFloorSegmentLength {
				continue
			}
			split = true
			mid := geom.Pt((pos.X+nb.X)/2, (pos.Y+nb.Y)/2)
			n := geom.Clamp(noise.Noise1D(float64(mid.X)/seaFloorNoiseScale)*0.5+0.5, 0, 1)
			mid.Y += int(float64(p.Variance) * n)
			next = append(next, mid)
		}
		floor.Positions = next
		if !split {
			break
		}
	}

	for _, pos := range floor.Positions {
		floor.TopPos = max(floor.TopPos, pos.Y)
	}
	l.SeaFloor = floor
}

// generateSeaFloorWall closes the floor profile into a solid body.
func (l *Level) generateSeaFloorWall() {
	floor := l.SeaFloor
	if floor == nil || len(floor.Positions) < 2 {
		return
	}
	verts := make([]mgl64.Vec2, 0, len(floor.Positions)+2)
	for _, p := range floor.Positions {
		verts = append(verts, p.Vec())
	}
	bottom := float64(floor.BottomPos - seaFloorThickness)
	last := floor.Positions[len(floor.Positions)-1]
	first := floor.Positions[0]
	verts = append(verts, mgl64.Vec2{float64(last.X), bottom}, mgl64.Vec2{float64(first.X), bottom})

	wall, err := cave.NewWall(verts)
	if err != nil {
		l.Diagnostics.DroppedWalls++
		l.logf("sea floor wall: %v", err)
		return
	}
	floor.Wall = wall
	l.seaFloorWall = wall
	l.ExtraWalls = append(l.ExtraWalls, wall)
}
