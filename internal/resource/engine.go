package resource

import (
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/zyedidia/generic/mapset"

	"levelgen/internal/cave"
	"levelgen/internal/config"
	"levelgen/internal/geom"
	"levelgen/internal/random"
	"levelgen/internal/world"
)

// wallProbe is how far past an edge a wall is looked for.
const wallProbe = 100.0

// Options describes the level the engine works on.
type Options struct {
	// LevelID selects the per-level prefab commonness.
	LevelID  string
	Cells    []world.CellID
	Tunnels  []*world.Tunnel
	Prefabs  []config.ResourcePrefab
	Blockers []geom.Rect
	Walls    []*cave.Wall
	// AbyssTop separates regular locations from abyss ones.
	AbyssTop  float64
	Start     mgl64.Vec2
	Width     float64
	Namespace uuid.UUID
}

type weightedPrefab struct {
	prefab     config.ResourcePrefab
	commonness float64
}

type fixedPrefab struct {
	prefab config.ResourcePrefab
	info   config.FixedQuantity
}

// Engine places resources. It is single use: build one per level.
type Engine struct {
	graph  *world.Graph
	rng    *random.Stream
	params config.ResourceParams
	opts   Options

	prefabs    []weightedPrefab
	fixed      []fixedPrefab
	minC, maxC float64

	available []ClusterLocation
	points    []*PathPoint
	excluded  mapset.Set[string]
	itemCount int
	result    *Result
}

func NewEngine(graph *world.Graph, rng *random.Stream, params config.ResourceParams, opts Options) *Engine {
	e := &Engine{
		graph:    graph,
		rng:      rng,
		params:   params,
		opts:     opts,
		minC:     math.MaxFloat64,
		maxC:     -math.MaxFloat64,
		excluded: mapset.New[string](),
		result:   &Result{Target: params.ItemCount},
	}
	for _, p := range opts.Prefabs {
		_, forLevel := p.Commonness[opts.LevelID]
		_, forAll := p.Commonness[""]
		if forLevel || forAll {
			// A zero weight disables the prefab for the level.
			if c := p.CommonnessFor(opts.LevelID); c > 0 {
				e.prefabs = append(e.prefabs, weightedPrefab{prefab: p, commonness: c})
				e.minC = math.Min(e.minC, c)
				e.maxC = math.Max(e.maxC, c)
			}
			continue
		}
		if info, ok := p.FixedQuantityFor(opts.LevelID); ok {
			e.fixed = append(e.fixed, fixedPrefab{prefab: p, info: info})
		}
	}
	sort.SliceStable(e.prefabs, func(i, j int) bool {
		return e.prefabs[i].commonness < e.prefabs[j].commonness
	})
	return e
}

// Run executes every placement pass and returns the result.
func (e *Engine) Run() *Result {
	e.available = e.ClusterLocations()
	e.placeFixed()
	e.placeAbyss()
	e.points = e.samplePathPoints()
	e.result.PathPoints = e.points

	for _, p := range e.points {
		if e.itemCount >= e.params.ItemCount {
			break
		}
		if p.ShouldContainResources {
			e.firstCluster(p)
		}
	}
	for _, p := range e.points {
		if p.ShouldContainResources && len(p.Clusters) == 0 {
			p.ShouldContainResources = false
		}
	}

	for e.itemCount < e.params.ItemCount {
		var (
			candidates []*PathPoint
			weights    []float64
		)
		for _, p := range e.points {
			if p.ShouldContainResources && p.NextClusterProbability() > 0 && !e.excluded.Has(p.ID) {
				candidates = append(candidates, p)
				weights = append(weights, p.NextClusterProbability())
			}
		}
		if len(candidates) == 0 {
			break
		}
		e.additionalCluster(candidates[random.WeightedIndex(e.rng, weights)])
	}

	e.fill()

	e.result.Placed = e.itemCount
	withResources := 0
	for _, p := range e.points {
		if len(p.Clusters) > 0 {
			withResources++
		}
	}
	log.Printf("resources: placed %d/%d items, %d/%d path points hold clusters", e.itemCount, e.params.ItemCount, withResources, len(e.points))
	return e.result
}

// fill seeds empty path points until the item count is reached or no point
// can take a cluster.
func (e *Engine) fill() {
	for e.itemCount < e.params.ItemCount {
		var candidates []*PathPoint
		for _, p := range e.points {
			if !e.excluded.Has(p.ID) && len(p.Clusters) == 0 {
				candidates = append(candidates, p)
			}
		}
		if len(candidates) == 0 {
			return
		}
		p := random.Pick(e.rng, candidates)
		if !e.firstCluster(p) {
			e.excluded.Put(p.ID)
			continue
		}
		for p.NextClusterProbability() > 0 {
			if !e.additionalCluster(p) {
				break
			}
		}
		p.ShouldContainResources = len(p.Clusters) > 0
	}
}

// ClusterLocations enumerates every solid, in-level wall edge of a solid
// cell that is not covered by a blocker or an extra wall.
func (e *Engine) ClusterLocations() []ClusterLocation {
	var out []ClusterLocation
	for _, id := range e.opts.Cells {
		cell := e.graph.Cell(id)
		if cell == nil || cell.Type != world.CellSolid {
			continue
		}
		for _, eid := range cell.Edges {
			edge := e.graph.Edge(eid)
			if !edge.IsSolid || edge.OutsideLevel {
				continue
			}
			if e.blocked(edge) || e.walled(cell, edge) {
				continue
			}
			out = append(out, ClusterLocation{Cell: id, Edge: eid, Center: edge.Center()})
		}
	}
	return out
}

func (e *Engine) blocked(edge *world.Edge) bool {
	center := edge.Center()
	for _, r := range e.opts.Blockers {
		if r.ContainsVec(edge.P1) || r.ContainsVec(edge.P2) || r.ContainsVec(center) {
			return true
		}
	}
	return false
}

func (e *Engine) walled(cell *world.Cell, edge *world.Edge) bool {
	if len(e.opts.Walls) == 0 {
		return false
	}
	center := edge.Center()
	probe := center.Add(e.graph.EdgeNormal(edge, cell).Mul(wallProbe))
	for _, w := range e.opts.Walls {
		if w.Contains(center) || w.Contains(probe) {
			return true
		}
	}
	return false
}

func (e *Engine) removeAvailable(loc ClusterLocation) {
	for i, l := range e.available {
		if l.key() == loc.key() {
			e.available = append(e.available[:i], e.available[i+1:]...)
			return
		}
	}
}

func (e *Engine) isAvailable(loc ClusterLocation) bool {
	for _, l := range e.available {
		if l.key() == loc.key() {
			return true
		}
	}
	return false
}

// pickAvailable returns a random available location accepted by filter.
func (e *Engine) pickAvailable(filter func(ClusterLocation) bool) (ClusterLocation, bool) {
	var matches []ClusterLocation
	for _, l := range e.available {
		if filter(l) {
			matches = append(matches, l)
		}
	}
	if len(matches) == 0 {
		return ClusterLocation{}, false
	}
	return matches[e.rng.Int(len(matches))], true
}

func (e *Engine) edgeLength(loc ClusterLocation) float64 {
	return e.graph.Edge(loc.Edge).Length()
}

func (e *Engine) maxOnEdge(prefab config.ResourcePrefab, loc ClusterLocation) int {
	return MaxFit(e.edgeLength(loc), prefab.Width, e.params.MaxOverlap)
}

func (e *Engine) placeFixed() {
	for _, f := range e.fixed {
		for i := 0; i < f.info.ClusterQuantity; i++ {
			loc, ok := e.pickAvailable(func(l ClusterLocation) bool {
				if f.info.IslandSpecific && !e.graph.Cell(l.Cell).Island {
					return false
				}
				if !f.info.AllowAtStart && l.Center[1] > e.opts.Start[1] && l.Center[0] < e.opts.Width*0.25 {
					return false
				}
				if l.Center[1] < e.opts.AbyssTop {
					return false
				}
				return f.info.ClusterSize <= e.maxOnEdge(f.prefab, l)
			})
			if !ok {
				log.Printf("resources: no location for fixed %s cluster %d/%d", f.prefab.Identifier, i+1, f.info.ClusterQuantity)
				break
			}
			items := e.PlaceResources(f.prefab, f.info.ClusterSize, loc)
			e.addCluster(ClusterFixed, loc, f.prefab.Identifier, "", items)
			e.removeAvailable(loc)
		}
	}
}

// placeAbyss scatters the least common prefabs below the abyss top.
func (e *Engine) placeAbyss() {
	for j := 0; j < len(e.prefabs) && j < e.params.AbyssPrefabCount; j++ {
		prefab := e.prefabs[j].prefab
		for i := 0; i < e.params.AbyssClusterCount; i++ {
			loc, ok := e.pickAvailable(func(l ClusterLocation) bool {
				return l.Center[1] <= e.opts.AbyssTop && e.maxOnEdge(prefab, l) > 0
			})
			if !ok {
				break
			}
			size := e.rng.IntRange(e.params.ClusterSize.Min, e.params.ClusterSize.Max)
			items := e.PlaceResources(prefab, size, loc)
			e.addCluster(ClusterAbyss, loc, prefab.Identifier, "", items)
			e.removeAvailable(loc)
		}
	}
}

func (e *Engine) addCluster(kind ClusterKind, loc ClusterLocation, prefab, point string, items []int) {
	e.result.Clusters = append(e.result.Clusters, Cluster{
		Kind:      kind,
		Location:  loc,
		Prefab:    prefab,
		PathPoint: point,
		Items:     items,
	})
}

func (e *Engine) intervalFor(t world.TunnelType) config.IntRange {
	if t == world.Cave {
		return e.params.CaveInterval
	}
	return e.params.Interval
}

func nextToTunnel(edge *world.Edge, t world.TunnelType) bool {
	switch t {
	case world.MainPath:
		return edge.NextToMainPath
	case world.SidePath:
		return edge.NextToSidePath
	default:
		return edge.NextToCave
	}
}

// firstCluster places the first cluster of p at the nearest location that
// passes every spacing rule.
func (e *Engine) firstCluster(p *PathPoint) bool {
	interval := e.intervalFor(p.TunnelType)
	maxSq := 3 * float64(interval.Max) * float64(interval.Max)
	sort.SliceStable(e.available, func(i, j int) bool {
		return geom.DistanceSquared(p.Position, e.available[i].Center) < geom.DistanceSquared(p.Position, e.available[j].Center)
	})
	for i, loc := range e.available {
		edge := e.graph.Edge(loc.Edge)
		if !nextToTunnel(edge, p.TunnelType) || loc.Center[1] < e.opts.AbyssTop {
			continue
		}
		distSq := geom.DistanceSquared(p.Position, loc.Center)
		if distSq > maxSq {
			continue
		}
		if distSq > geom.DistanceSquared(p.Position, e.graph.Center(e.graph.Cell(loc.Cell))) {
			continue
		}
		if !e.owns(p, loc, distSq) || !e.spaced(p, loc, interval) {
			continue
		}
		placed := e.createCluster(p, loc)
		e.available = append(e.available[:i], e.available[i+1:]...)
		return placed
	}
	return false
}

// owns reports whether no other path point is closer to loc than p.
func (e *Engine) owns(p *PathPoint, loc ClusterLocation, distSq float64) bool {
	for _, other := range e.points {
		if other != p && geom.DistanceSquared(other.Position, loc.Center) < distSq {
			return false
		}
	}
	return true
}

// spaced checks loc against the clusters of every other path point: it may
// not reuse one, lie within the minimum interval of one, or have its
// connecting line cross theirs.
func (e *Engine) spaced(p *PathPoint, loc ClusterLocation, interval config.IntRange) bool {
	minSq := float64(interval.Min) * float64(interval.Min)
	for _, other := range e.points {
		if other == p {
			continue
		}
		for _, c := range other.Clusters {
			if c.key() == loc.key() {
				return false
			}
			if geom.DistanceSquared(c.Center, loc.Center) < minSq {
				return false
			}
			if geom.SegmentsIntersect(other.Position, c.Center, p.Position, loc.Center) {
				return false
			}
		}
	}
	return true
}

func connected(a, b *world.Edge) bool {
	const eps = 0.01
	return geom.NearlyEqualVec(a.P1, b.P1, eps) || geom.NearlyEqualVec(a.P1, b.P2, eps) ||
		geom.NearlyEqualVec(a.P2, b.P1, eps) || geom.NearlyEqualVec(a.P2, b.P2, eps)
}

// additionalCluster grows p onto an edge touching one of its clusters: first
// within the same cell, then in the neighbouring cells. A point that fails is
// excluded from further rounds.
func (e *Engine) additionalCluster(p *PathPoint) bool {
	interval := e.intervalFor(p.TunnelType)
	var candidates []ClusterLocation
	seen := mapset.New[world.EdgeID]()
	consider := func(cellID world.CellID, edgeID world.EdgeID) {
		if seen.Has(edgeID) {
			return
		}
		loc := ClusterLocation{Cell: cellID, Edge: edgeID, Center: e.graph.Edge(edgeID).Center()}
		if loc.Center[1] < e.opts.AbyssTop || !e.isAvailable(loc) {
			return
		}
		for _, c := range p.Clusters {
			if c.Edge == edgeID {
				return
			}
		}
		if !e.spaced(p, loc, interval) {
			return
		}
		seen.Put(edgeID)
		candidates = append(candidates, loc)
	}

	for _, c := range p.Clusters {
		cell := e.graph.Cell(c.Cell)
		own := e.graph.Edge(c.Edge)
		for _, eid := range cell.Edges {
			if eid != c.Edge && connected(e.graph.Edge(eid), own) {
				consider(cell.ID, eid)
			}
		}
	}
	if len(candidates) == 0 {
		for _, c := range p.Clusters {
			cell := e.graph.Cell(c.Cell)
			own := e.graph.Edge(c.Edge)
			for _, eid := range cell.Edges {
				if eid == c.Edge {
					continue
				}
				adj := e.graph.Adjacent(e.graph.Edge(eid), cell)
				if adj == nil {
					continue
				}
				for _, aid := range adj.Edges {
					if aid != eid && connected(e.graph.Edge(aid), own) {
						consider(adj.ID, aid)
					}
				}
			}
		}
	}

	if len(candidates) == 0 {
		e.excluded.Put(p.ID)
		return false
	}
	loc := random.Pick(e.rng, candidates)
	if !e.createCluster(p, loc) {
		e.excluded.Put(p.ID)
		return false
	}
	e.removeAvailable(loc)
	return true
}

// pickPrefab chooses the prefab for the next cluster of p. Later clusters
// stay within the exclusive families of the first one and never repeat a
// prefab.
func (e *Engine) pickPrefab(p *PathPoint) (weightedPrefab, bool) {
	var (
		options []weightedPrefab
		weights []float64
	)
	for _, wp := range e.prefabs {
		if len(p.Clusters) > 0 {
			if p.usedPrefab(wp.prefab.Identifier) || len(p.Tags) == 0 || !p.hasTag(wp.prefab.Tags) {
				continue
			}
		}
		options = append(options, wp)
		weights = append(weights, wp.commonness)
	}
	idx := random.WeightedIndex(e.rng, weights)
	if idx < 0 {
		return weightedPrefab{}, false
	}
	return options[idx], true
}

func (e *Engine) createCluster(p *PathPoint, loc ClusterLocation) bool {
	first := len(p.Clusters) == 0
	choice, ok := e.pickPrefab(p)
	if !ok {
		return false
	}

	maxSize := int(geom.Lerp(float64(e.params.ClusterSize.Min), float64(e.params.ClusterSize.Max),
		geom.InverseLerp(e.minC, e.maxC, choice.commonness)))
	maxSize = ClampClusterSize(maxSize, e.edgeLength(loc), choice.prefab.Width, e.params.MaxOverlap, e.params.ItemCount-e.itemCount)
	if maxSize < 1 {
		return false
	}
	count := 1
	if maxSize > 1 {
		count = e.rng.IntRange(min(e.params.ClusterSize.Min, maxSize), maxSize+1)
	}
	if count < 1 {
		return false
	}

	if first {
		for _, t := range choice.prefab.Tags {
			for _, x := range exclusiveTags {
				if t == x {
					p.Tags = append(p.Tags, t)
				}
			}
		}
	}
	items := e.PlaceResources(choice.prefab, count, loc)
	e.itemCount += count
	p.Clusters = append(p.Clusters, loc)
	p.PrefabIDs = append(p.PrefabIDs, choice.prefab.Identifier)
	e.addCluster(ClusterPath, loc, choice.prefab.Identifier, p.ID, items)
	return true
}

// PlaceResources lays count items of prefab evenly along the location's edge
// with a random overlap and start offset, pushed off the wall along the
// edge normal. It returns the indices of the new items.
func (e *Engine) PlaceResources(prefab config.ResourcePrefab, count int, loc ClusterLocation) []int {
	if count < 1 {
		return nil
	}
	edge := e.graph.Edge(loc.Edge)
	cell := e.graph.Cell(loc.Cell)
	length := edge.Length()
	offsets := ItemOffsets(e.rng, count, length, prefab.Width, e.params.MaxOverlap)
	normal := e.graph.EdgeNormal(edge, cell)

	indices := make([]int, 0, count)
	for _, t := range offsets {
		pos := geom.LerpVec(edge.P1, edge.P2, t)
		move := prefab.Height/2 + prefab.RandomOffsetFromWall*e.rng.Range(-0.5, 0.5)
		idx := len(e.result.Items)
		e.result.Items = append(e.result.Items, Item{
			Handle:   uuid.NewSHA1(e.opts.Namespace, []byte(fmt.Sprintf("resource:%d", idx))),
			Prefab:   prefab.Identifier,
			Position: pos.Add(normal.Mul(move)),
			Normal:   normal,
			Location: loc,
		})
		indices = append(indices, idx)
	}
	return indices
}
