package level

import (
	"context"

	"github.com/zyedidia/generic/mapset"

	"levelgen/internal/cave"
	"levelgen/internal/world"
)

// generatePolygons flags the solid edges, rounds the cells and builds the
// triangulated bodies of every solid cell.
func (l *Level) generatePolygons(ctx context.Context) error {
	solid := mapset.New[world.CellID]()
	for _, id := range l.Cells {
		solid.Put(id)
	}
	for _, id := range l.Cells {
		c := l.Graph.Cell(id)
		for _, eid := range c.Edges {
			e := l.Graph.Edge(eid)
			other := e.Other(id)
			e.IsSolid = other == world.NoCell || !solid.Has(other)
		}
	}

	cp := l.Params.Cells
	if (cave.Rounding{Amount: cp.RoundingAmount, Irregularity: cp.Irregularity}).Enabled() {
		r := cave.NewRounding(float64(cp.SubdivisionLength), cp.RoundingAmount, cp.Irregularity, l.rng.Int63())
		for i, id := range l.Cells {
			if i%256 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			l.layoutOfCell(id).RoundCell(l.Graph.Cell(id), r)
		}
	}

	l.Bodies = l.Layout.GeneratePolygons(l.Cells)
	live := mapset.New[world.CellID]()
	for _, id := range l.Bodies.Cells {
		live.Put(id)
	}
	if dropped := len(l.Cells) - len(l.Bodies.Cells); dropped > 0 {
		for _, id := range l.Cells {
			if !live.Has(id) {
				l.removeCell(l.Graph.Cell(id))
			}
		}
		l.Diagnostics.DroppedCells += dropped
		l.logf("dropped %d degenerate cells", dropped)
	}
	l.Cells = l.Bodies.Cells
	l.Layout.OrientEdges(l.Cells, live.Has)
	return nil
}
