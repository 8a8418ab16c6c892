// Package level drives level generation. It plans the tunnels, builds and
// carves the cell graph, adds caves, abyss islands and ruins, lays the
// waypoint graph and scatters resources, sampling the random stream after
// every stage so two processes can verify they produced the same level.
package level

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"levelgen/internal/cave"
	"levelgen/internal/config"
	"levelgen/internal/geom"
	"levelgen/internal/random"
	"levelgen/internal/resource"
	"levelgen/internal/waypoint"
	"levelgen/internal/world"
)

const (
	// MaxSubmarineWidth caps the width reserved for the main path.
	MaxSubmarineWidth = 16000
	// ExitDistance is how far below the top the start and end sit at most.
	ExitDistance = 6000.0

	minPassageWidth      = 500
	distanceFieldDensity = 1000
)

var (
	ErrNilBiome    = errors.New("level: biome must be set")
	ErrInvalidSize = errors.New("level: size must be positive")
)

// Request holds everything a level is generated from. Seed is the only
// input that needs to be stored to regenerate the level.
type Request struct {
	Seed       string
	Difficulty float64
	Biome      *config.Biome
	Params     config.GenerationParams
	Caves      []config.CaveParams
	Prefabs    []config.ResourcePrefab
	Mirror     bool
	// Placer positions outposts, wrecks and the beacon station. Nil reserves
	// the configured footprints.
	Placer Placer
}

// Cave is a cluster of branching tunnels carved inside Area.
type Cave struct {
	Params           *config.CaveParams
	Area             geom.Rect
	StartPos, EndPos geom.Point
	Tunnels          []*world.Tunnel
}

// AbyssIsland is a landmass below the level. Islands with a cave are built
// from their own cell diagram; the rest are a single solid Wall.
type AbyssIsland struct {
	Area  geom.Rect
	Cells []world.CellID
	Wall  *cave.Wall

	layout *cave.Layout
}

// Diagnostics counts the soft failures of a generation run.
type Diagnostics struct {
	CarveBudgetExhausted int
	DroppedWalls         int
	DroppedCells         int
	MissingPositions     int
	ResourceShortfall    int
	AbyssTooShallow      bool
	StartEndDisconnected bool
}

// Level is a generated level. It is read only once Generate returns, apart
// from the destructible walls and moving ice chunks in ExtraWalls.
type Level struct {
	Seed       string
	Difficulty float64
	Biome      config.Biome
	Mirrored   bool
	Borders    geom.Rect
	Params     config.GenerationParams

	Graph  *world.Graph
	Layout *cave.Layout
	// Cells are the solid cells that received a body.
	Cells     []world.CellID
	PathCells []world.CellID
	Bodies    cave.Bodies

	Tunnels      []*world.Tunnel
	MainPath     *world.Tunnel
	Caves        []*Cave
	AbyssArea    geom.Rect
	AbyssIslands []*AbyssIsland
	Ruins        []*Ruin
	Structures   []Structure

	WayPoints  *waypoint.Graph
	Positions  []InterestingPosition
	ExtraWalls []*cave.Wall
	SeaFloor   *SeaFloor
	Resources  *resource.Result

	StartPosition, EndPosition         geom.Point
	StartExitPosition, EndExitPosition geom.Point
	MinMainPathWidth                   int

	Checksums   Checksums
	Diagnostics Diagnostics

	rng       *random.Stream
	caveTypes []config.CaveParams
	prefabs   []config.ResourcePrefab
	placer    Placer
	namespace uuid.UUID

	pathBorders   geom.Rect
	sites         []mgl64.Vec2
	allCells      []world.CellID
	distanceField []fieldPoint
	// geometryMirrored flips once the mirror pass ran; the distance field
	// is scanned right to left from then on.
	geometryMirrored bool

	startPath, endPath, endHole *world.Tunnel
	tunnelLayout                map[*world.Tunnel]*cave.Layout
	cellLayout                  map[world.CellID]*cave.Layout
	builders                    map[*cave.Layout]*waypoint.Builder
	seaFloorWall                *cave.Wall
}

type stage struct {
	id  Stage
	run func(ctx context.Context) error
}

// Generate builds the level described by req. Configuration problems are
// returned as errors before anything is generated; geometric trouble along
// the way is logged and counted in Level.Diagnostics.
func Generate(ctx context.Context, req Request) (*Level, error) {
	l, err := newLevel(req)
	if err != nil {
		return nil, fmt.Errorf("generate level %q: %w", req.Seed, err)
	}

	stages := []stage{
		{StageStart, func(context.Context) error { return nil }},
		{StagePositions, l.placeEndpoints},
		{StageTunnels, l.planTunnels},
		{StageSites, l.generateSites},
		{StagePaths, l.generatePaths},
		{StageWalls, l.generateWalls},
		{StageRuins, l.generateRuins},
		{StageIceChunks, l.generateIceChunks},
		{StagePolygons, l.generatePolygons},
		{StageStructures, l.generateStructures},
		{StageResources, l.generateResources},
	}

	log.Printf("level %q generation progress: 0%%", l.Seed)
	for i, s := range stages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generate level %q: %w", l.Seed, err)
		}
		if err := s.run(ctx); err != nil {
			return nil, fmt.Errorf("generate level %q: %s: %w", l.Seed, s.id, err)
		}
		l.Checksums[s.id] = l.rng.Check()
		log.Printf("level %q generation progress: %d%%", l.Seed, (i+1)*100/len(stages))
	}
	return l, nil
}

func newLevel(req Request) (*Level, error) {
	if req.Biome == nil {
		return nil, ErrNilBiome
	}
	p := req.Params
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, p.Width, p.Height)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generation params: %w", err)
	}

	l := &Level{
		Seed:         req.Seed,
		Difficulty:   geom.Clamp(req.Difficulty, 0, 100),
		Biome:        *req.Biome,
		Mirrored:     req.Mirror,
		Borders:      geom.Rect{Width: p.Width, Height: p.Height},
		Params:       p,
		Graph:        world.NewGraph(),
		Checksums:    make(Checksums),
		rng:          random.NewFromString(req.Seed),
		caveTypes:    req.Caves,
		prefabs:      req.Prefabs,
		placer:       req.Placer,
		namespace:    uuid.NewSHA1(uuid.NameSpaceOID, []byte("levelgen:"+req.Seed)),
		tunnelLayout: make(map[*world.Tunnel]*cave.Layout),
		cellLayout:   make(map[world.CellID]*cave.Layout),
		builders:     make(map[*cave.Layout]*waypoint.Builder),
	}
	l.WayPoints = waypoint.NewGraph(l.namespace)

	l.MinMainPathWidth = min(p.Tunnels.MinTunnelRadius, MaxSubmarineWidth, p.Width/5)
	l.pathBorders = l.Borders.Inflate(
		-min(l.MinMainPathWidth*2, MaxSubmarineWidth, p.Width/5),
		-min(l.MinMainPathWidth, p.Height/5))
	return l, nil
}

// placeEndpoints positions the start and end of the main path and their
// exits at the top of the level.
func (l *Level) placeEndpoints(context.Context) error {
	t := l.Params.Tunnels
	w := float64(l.MinMainPathWidth)
	top := float64(l.Borders.Top())
	low := top - max(w, ExitDistance*1.5)
	at := func(pos config.Float2) geom.Point {
		return geom.Pt(
			int(geom.Lerp(w, float64(l.Borders.Width)-w, pos.X)),
			int(geom.Lerp(low, float64(l.Borders.Y)+w, pos.Y)))
	}
	l.StartPosition = at(t.StartPosition)
	l.EndPosition = at(t.EndPosition)
	l.StartExitPosition = geom.Pt(l.StartPosition.X, l.Borders.Top())
	l.EndExitPosition = geom.Pt(l.EndPosition.X, l.Borders.Top())
	return nil
}

// BottomPosition returns the sea floor height below x.
func (l *Level) BottomPosition(x float64) mgl64.Vec2 {
	return l.SeaFloor.BottomPosition(x, l.Borders.Width)
}

// Navigator returns a route finder over the level's waypoints.
func (l *Level) Navigator() *waypoint.Navigator {
	return waypoint.NewNavigator(l.WayPoints)
}

// layoutFor returns the layout a tunnel is carved in.
func (l *Level) layoutFor(t *world.Tunnel) *cave.Layout {
	if layout, ok := l.tunnelLayout[t]; ok {
		return layout
	}
	return l.Layout
}

func (l *Level) layoutOfCell(id world.CellID) *cave.Layout {
	if layout, ok := l.cellLayout[id]; ok {
		return layout
	}
	return l.Layout
}

func (l *Level) builderFor(layout *cave.Layout) *waypoint.Builder {
	b, ok := l.builders[layout]
	if !ok {
		wp := l.Params.Waypoints
		b = waypoint.NewBuilder(l.WayPoints, layout, float64(wp.SpliceStep), wp.LookBack)
		b.Blocked = l.wallBetween
		l.builders[layout] = b
	}
	return b
}

// wallBetween reports whether a-b crosses the outline of an extra wall.
func (l *Level) wallBetween(a, b mgl64.Vec2) bool {
	for _, w := range l.ExtraWalls {
		n := len(w.Vertices)
		for i := range w.Vertices {
			if geom.SegmentsIntersect(a, b, w.Vertices[i], w.Vertices[(i+1)%n]) {
				return true
			}
		}
	}
	return false
}

func (l *Level) caveOf(t *world.Tunnel) *Cave {
	for _, c := range l.Caves {
		for _, ct := range c.Tunnels {
			if ct == t {
				return c
			}
		}
	}
	return nil
}

func (l *Level) isExitTunnel(t *world.Tunnel) bool {
	return t == l.startPath || t == l.endPath || t == l.endHole
}

// removeCell takes a cell out of the level for good.
func (l *Level) removeCell(c *world.Cell) {
	c.Type = world.CellRemoved
	l.layoutOfCell(c.ID).Grid.Remove(c.ID)
}

func (l *Level) logf(format string, args ...any) {
	log.Printf("level %q: "+format, append([]any{l.Seed}, args...)...)
}
