package cave

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/zyedidia/generic/mapset"

	"levelgen/internal/geom"
	"levelgen/internal/world"
)

const (
	// ShortEdgeLength marks edges too narrow to squeeze through cheaply.
	ShortEdgeLength = 200.0
	// ShortEdgePenalty is added to the score of a short edge the first time
	// its cell is left. It outweighs any distance inside a level.
	ShortEdgePenalty = 1e6
)

// CarveResult describes one carving walk.
type CarveResult struct {
	Cells []world.CellID
	// Exhausted is set when the step budget ran out before the final target.
	Exhausted bool
	Steps     int
}

// CarveTunnel walks from the cell nearest the first node towards the cells
// nearest each following node, turning every visited cell into a path cell.
// The walk greedily takes the neighbour closest to the current target; short
// edges are penalised, less so the more often the current cell was revisited.
// At most budget steps are taken.
func (l *Layout) CarveTunnel(nodes []geom.Point, budget int) CarveResult {
	targets := make([]*world.Cell, 0, len(nodes))
	for _, n := range nodes {
		c := l.closestWidening(n.Vec(), 2, 4)
		if c == nil {
			continue
		}
		if len(targets) > 0 && targets[len(targets)-1] == c {
			continue
		}
		targets = append(targets, c)
	}
	if len(targets) == 0 {
		return CarveResult{}
	}

	visits := make(map[world.CellID]int)
	current := targets[0]
	current.Type = world.CellPath
	visits[current.ID]++
	result := CarveResult{Cells: []world.CellID{current.ID}}

	targetIdx := 1
	for targetIdx < len(targets) {
		if result.Steps >= budget {
			result.Exhausted = true
			return result
		}
		result.Steps++

		target := l.Graph.Center(targets[targetIdx])
		curCenter := l.Graph.Center(current)
		var (
			next      *world.Cell
			bestScore = math.MaxFloat64
		)
		for _, id := range current.Edges {
			e := l.Graph.Edge(id)
			adj := l.Graph.Adjacent(e, current)
			if adj == nil || adj.Type == world.CellRemoved {
				continue
			}
			adjCenter := l.Graph.Center(adj)
			score := geom.Distance(adjCenter, target) + 0.5*geom.Distance(adjCenter, curCenter)
			score += shortEdgePenalty(e.Length(), visits[current.ID])
			if score < bestScore {
				next, bestScore = adj, score
			}
		}
		if next == nil {
			result.Exhausted = true
			return result
		}

		current = next
		current.Type = world.CellPath
		visits[current.ID]++
		result.Cells = append(result.Cells, current.ID)
		for targetIdx < len(targets) && current == targets[targetIdx] {
			targetIdx++
		}
	}
	return result
}

// shortEdgePenalty is the extra score for leaving a cell through an edge of
// the given length. It shrinks as the cell is revisited so a walk stuck
// behind a pinch point eventually squeezes through.
func shortEdgePenalty(length float64, visits int) float64 {
	if length >= ShortEdgeLength {
		return 0
	}
	return ShortEdgePenalty / float64(max(visits, 1))
}

// EnlargePath turns every cell within minWidth of a path cell center into a
// path cell and appends it to the path.
func (l *Layout) EnlargePath(path []world.CellID, minWidth float64) []world.CellID {
	if minWidth <= 0 {
		return path
	}
	for _, c := range l.TooCloseToCells(path, minWidth) {
		if c.Type == world.CellPath || c.Type == world.CellRemoved {
			continue
		}
		c.Type = world.CellPath
		path = append(path, c.ID)
	}
	return path
}

// TooCloseToCells gathers, in discovery order, the cells within minDistance of
// the centers of the given cells.
func (l *Layout) TooCloseToCells(ids []world.CellID, minDistance float64) []*world.Cell {
	if minDistance <= 0 {
		return nil
	}
	visited := mapset.New[world.CellID]()
	found := mapset.New[world.CellID]()
	var out []*world.Cell
	for _, id := range ids {
		if visited.Has(id) {
			continue
		}
		visited.Put(id)
		for _, c := range l.TooCloseCells(l.Graph.Center(l.Graph.Cell(id)), minDistance) {
			if found.Has(c.ID) {
				continue
			}
			found.Put(c.ID)
			out = append(out, c)
		}
	}
	return out
}

// TooCloseCells returns the cells with an edge closer than minDistance to pos.
func (l *Layout) TooCloseCells(pos mgl64.Vec2, minDistance float64) []*world.Cell {
	depth := max(int(math.Ceil(minDistance/l.Grid.CellSize())), 3)
	minSq := minDistance * minDistance
	var out []*world.Cell
	for _, c := range l.CellsNear(pos, depth) {
		for _, id := range c.Edges {
			e := l.Graph.Edge(id)
			if geom.DistanceSquared(e.P1, pos) < minSq ||
				geom.DistanceSquared(e.P2, pos) < minSq ||
				geom.SegmentPointDistanceSquared(e.P1, e.P2, pos) < minSq {
				out = append(out, c)
				break
			}
		}
	}
	return out
}
