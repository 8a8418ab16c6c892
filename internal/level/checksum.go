package level

import (
	"fmt"
	"strings"
)

// Stage names a boundary in the generation pipeline at which the random
// stream is sampled.
type Stage int

const (
	StageStart Stage = iota
	StagePositions
	StageTunnels
	StageSites
	StagePaths
	StageWalls
	StageRuins
	StageIceChunks
	StagePolygons
	StageStructures
	StageResources
)

var stageNames = [...]string{
	StageStart:      "start",
	StagePositions:  "positions",
	StageTunnels:    "tunnels",
	StageSites:      "sites",
	StagePaths:      "paths",
	StageWalls:      "walls",
	StageRuins:      "ruins",
	StageIceChunks:  "ice chunks",
	StagePolygons:   "polygons",
	StageStructures: "structures",
	StageResources:  "resources",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// Stages lists every stage in pipeline order.
func Stages() []Stage {
	out := make([]Stage, len(stageNames))
	for i := range out {
		out[i] = Stage(i)
	}
	return out
}

// Checksums holds one stream sample per stage. Two processes generating the
// same level must record identical values.
type Checksums map[Stage]int

// Compare returns a *DesyncError listing every stage where c and other
// disagree, or nil. A stage recorded by only one side counts as a mismatch.
func (c Checksums) Compare(other Checksums) error {
	var mismatched []Stage
	for _, s := range Stages() {
		a, okA := c[s]
		b, okB := other[s]
		if okA != okB || a != b {
			mismatched = append(mismatched, s)
		}
	}
	if len(mismatched) == 0 {
		return nil
	}
	return &DesyncError{Stages: mismatched, Local: c, Remote: other}
}

// DesyncError reports that two generations of the same level diverged.
type DesyncError struct {
	Stages []Stage
	Local  Checksums
	Remote Checksums
}

func (e *DesyncError) Error() string {
	names := make([]string, len(e.Stages))
	for i, s := range e.Stages {
		names[i] = s.String()
	}
	first := e.Stages[0]
	return fmt.Sprintf("level desync at %s (first mismatch at %s: local %d, remote %d)",
		strings.Join(names, ", "), first, e.Local[first], e.Remote[first])
}
