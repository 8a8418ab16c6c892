package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"levelgen/internal/geom"
)

// IntRange is an inclusive pair of integer bounds.
type IntRange struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

func (r IntRange) Contains(v int) bool { return v >= r.Min && v <= r.Max }

// Lerp maps t in [0, 1] onto the range.
func (r IntRange) Lerp(t float64) float64 {
	return float64(r.Min) + float64(r.Max-r.Min)*t
}

// Float2 is a pair of normalized coordinates.
type Float2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Config bundles the generation parameters with the content catalogues the
// generator draws from.
type Config struct {
	Generation GenerationParams `json:"generation" yaml:"generation"`
	Biomes     []Biome          `json:"biomes" yaml:"biomes"`
	Caves      []CaveParams     `json:"caves" yaml:"caves"`
	Prefabs    []ResourcePrefab `json:"prefabs" yaml:"prefabs"`
}

// GenerationParams captures the tunables of a single level type.
type GenerationParams struct {
	Identifier   string          `json:"identifier" yaml:"identifier"`
	Width        int             `json:"width" yaml:"width"`
	Height       int             `json:"height" yaml:"height"`
	GridCellSize int             `json:"gridCellSize" yaml:"gridCellSize"`
	Tunnels      TunnelParams    `json:"tunnels" yaml:"tunnels"`
	Voronoi      VoronoiParams   `json:"voronoi" yaml:"voronoi"`
	Cells        CellParams      `json:"cells" yaml:"cells"`
	Abyss        AbyssParams     `json:"abyss" yaml:"abyss"`
	SeaFloor     SeaFloorParams  `json:"seaFloor" yaml:"seaFloor"`
	Resources    ResourceParams  `json:"resources" yaml:"resources"`
	Ruins        RuinParams      `json:"ruins" yaml:"ruins"`
	Waypoints    WaypointParams  `json:"waypoints" yaml:"waypoints"`
	CaveCount    int             `json:"caveCount" yaml:"caveCount"`
	IceChunks    IceChunkParams  `json:"iceChunks" yaml:"iceChunks"`
	Structures   StructureParams `json:"structures" yaml:"structures"`
}

type TunnelParams struct {
	MinTunnelRadius       int      `json:"minTunnelRadius" yaml:"minTunnelRadius"`
	MainPathNodeInterval  IntRange `json:"mainPathNodeInterval" yaml:"mainPathNodeInterval"`
	MainPathVariance      float64  `json:"mainPathVariance" yaml:"mainPathVariance"`
	SideTunnelCount       IntRange `json:"sideTunnelCount" yaml:"sideTunnelCount"`
	SideTunnelVariance    float64  `json:"sideTunnelVariance" yaml:"sideTunnelVariance"`
	MinSideTunnelRadius   IntRange `json:"minSideTunnelRadius" yaml:"minSideTunnelRadius"`
	StartPosition         Float2   `json:"startPosition" yaml:"startPosition"`
	EndPosition           Float2   `json:"endPosition" yaml:"endPosition"`
	CreateHoleNextToEnd   bool     `json:"createHoleNextToEnd" yaml:"createHoleNextToEnd"`
	CreateHoleToAbyss     bool     `json:"createHoleToAbyss" yaml:"createHoleToAbyss"`
	IslandCount           int      `json:"islandCount" yaml:"islandCount"`
	BottomHoleProbability float64  `json:"bottomHoleProbability" yaml:"bottomHoleProbability"`
}

type VoronoiParams struct {
	SiteInterval geom.Point `json:"siteInterval" yaml:"siteInterval"`
	SiteVariance geom.Point `json:"siteVariance" yaml:"siteVariance"`
}

type CellParams struct {
	SubdivisionLength int     `json:"subdivisionLength" yaml:"subdivisionLength"`
	RoundingAmount    float64 `json:"roundingAmount" yaml:"roundingAmount"`
	Irregularity      float64 `json:"irregularity" yaml:"irregularity"`
}

type AbyssParams struct {
	IslandCount           int        `json:"islandCount" yaml:"islandCount"`
	IslandSizeMin         geom.Point `json:"islandSizeMin" yaml:"islandSizeMin"`
	IslandSizeMax         geom.Point `json:"islandSizeMax" yaml:"islandSizeMax"`
	IslandCaveProbability float64    `json:"islandCaveProbability" yaml:"islandCaveProbability"`
}

type SeaFloorParams struct {
	Depth          int      `json:"depth" yaml:"depth"`
	Variance       int      `json:"variance" yaml:"variance"`
	MountainCount  IntRange `json:"mountainCount" yaml:"mountainCount"`
	MountainHeight IntRange `json:"mountainHeight" yaml:"mountainHeight"`
}

type ResourceParams struct {
	ItemCount         int      `json:"itemCount" yaml:"itemCount"`
	ClusterSize       IntRange `json:"clusterSize" yaml:"clusterSize"`
	Interval          IntRange `json:"interval" yaml:"interval"`
	CaveInterval      IntRange `json:"caveInterval" yaml:"caveInterval"`
	SpawnChance       float64  `json:"spawnChance" yaml:"spawnChance"`
	CaveSpawnChance   float64  `json:"caveSpawnChance" yaml:"caveSpawnChance"`
	MaxOverlap        float64  `json:"maxOverlap" yaml:"maxOverlap"`
	AbyssPrefabCount  int      `json:"abyssPrefabCount" yaml:"abyssPrefabCount"`
	AbyssClusterCount int      `json:"abyssClusterCount" yaml:"abyssClusterCount"`
}

type RuinParams struct {
	Count   int        `json:"count" yaml:"count"`
	MinSize geom.Point `json:"minSize" yaml:"minSize"`
	MaxSize geom.Point `json:"maxSize" yaml:"maxSize"`
}

type WaypointParams struct {
	SpliceStep int `json:"spliceStep" yaml:"spliceStep"`
	LookBack   int `json:"lookBack" yaml:"lookBack"`
}

type IceChunkParams struct {
	FloatingCount int      `json:"floatingCount" yaml:"floatingCount"`
	Radius        IntRange `json:"radius" yaml:"radius"`
	MoveSpeed     IntRange `json:"moveSpeed" yaml:"moveSpeed"`
}

// StructureParams sizes the footprints reserved for externally placed
// structures.
type StructureParams struct {
	WreckCount    int        `json:"wreckCount" yaml:"wreckCount"`
	WreckSize     geom.Point `json:"wreckSize" yaml:"wreckSize"`
	BeaconStation bool       `json:"beaconStation" yaml:"beaconStation"`
	BeaconSize    geom.Point `json:"beaconSize" yaml:"beaconSize"`
}

// Biome identifies the environment a level is generated for.
type Biome struct {
	Identifier string `json:"identifier" yaml:"identifier"`
	Name       string `json:"name" yaml:"name"`
}

// CaveParams describes one cave type.
type CaveParams struct {
	Identifier            string   `json:"identifier" yaml:"identifier"`
	Commonness            float64  `json:"commonness" yaml:"commonness"`
	AbyssCommonness       float64  `json:"abyssCommonness" yaml:"abyssCommonness"`
	Biomes                []string `json:"biomes" yaml:"biomes"`
	MinWidth              int      `json:"minWidth" yaml:"minWidth"`
	MaxWidth              int      `json:"maxWidth" yaml:"maxWidth"`
	MinHeight             int      `json:"minHeight" yaml:"minHeight"`
	MaxHeight             int      `json:"maxHeight" yaml:"maxHeight"`
	MinBranchCount        int      `json:"minBranchCount" yaml:"minBranchCount"`
	MaxBranchCount        int      `json:"maxBranchCount" yaml:"maxBranchCount"`
	DestructibleWallRatio float64  `json:"destructibleWallRatio" yaml:"destructibleWallRatio"`
}

// CommonnessIn returns the weight of the cave type in a biome. An empty biome
// list allows every biome.
func (p CaveParams) CommonnessIn(biome string, abyss bool) float64 {
	if len(p.Biomes) > 0 {
		allowed := false
		for _, b := range p.Biomes {
			if strings.EqualFold(b, biome) {
				allowed = true
				break
			}
		}
		if !allowed {
			return 0
		}
	}
	if abyss {
		return p.AbyssCommonness
	}
	return p.Commonness
}

// ResourcePrefab describes an item that can be scattered along cave walls.
type ResourcePrefab struct {
	Identifier string `json:"identifier" yaml:"identifier"`
	// Tags marks mutually exclusive resource families such as "ore" or "plant".
	Tags []string `json:"tags" yaml:"tags"`
	// Commonness is keyed by level identifier; the empty key applies to all levels.
	Commonness           map[string]float64       `json:"commonness" yaml:"commonness"`
	FixedQuantity        map[string]FixedQuantity `json:"fixedQuantity" yaml:"fixedQuantity"`
	Width                float64                  `json:"width" yaml:"width"`
	Height               float64                  `json:"height" yaml:"height"`
	RandomOffsetFromWall float64                  `json:"randomOffsetFromWall" yaml:"randomOffsetFromWall"`
}

// FixedQuantity places a prefab a set number of times per level regardless of
// path points.
type FixedQuantity struct {
	ClusterQuantity int  `json:"clusterQuantity" yaml:"clusterQuantity"`
	ClusterSize     int  `json:"clusterSize" yaml:"clusterSize"`
	IslandSpecific  bool `json:"islandSpecific" yaml:"islandSpecific"`
	AllowAtStart    bool `json:"allowAtStart" yaml:"allowAtStart"`
}

// CommonnessFor returns the prefab weight for a level identifier, falling back
// to the default entry.
func (p ResourcePrefab) CommonnessFor(level string) float64 {
	if c, ok := p.Commonness[level]; ok {
		return c
	}
	return p.Commonness[""]
}

// FixedQuantityFor returns the fixed placement rule for a level, if any.
func (p ResourcePrefab) FixedQuantityFor(level string) (FixedQuantity, bool) {
	if q, ok := p.FixedQuantity[level]; ok {
		return q, true
	}
	q, ok := p.FixedQuantity[""]
	return q, ok
}

// Load reads configuration from a JSON or YAML file if provided. An empty path
// returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Generation: DefaultGeneration(),
		Biomes: []Biome{
			{Identifier: "coldcaverns", Name: "Cold Caverns"},
			{Identifier: "europanridge", Name: "Europan Ridge"},
		},
		Caves: []CaveParams{
			{
				Identifier:            "default",
				Commonness:            1,
				AbyssCommonness:       1,
				MinWidth:              8000,
				MaxWidth:              15000,
				MinHeight:             8000,
				MaxHeight:             15000,
				MinBranchCount:        2,
				MaxBranchCount:        4,
				DestructibleWallRatio: 0.2,
			},
			{
				Identifier:            "narrow",
				Commonness:            0.5,
				Biomes:                []string{"coldcaverns"},
				MinWidth:              6000,
				MaxWidth:              9000,
				MinHeight:             10000,
				MaxHeight:             16000,
				MinBranchCount:        1,
				MaxBranchCount:        3,
				DestructibleWallRatio: 0.5,
			},
		},
		Prefabs: []ResourcePrefab{
			{
				Identifier:           "iron_ore",
				Tags:                 []string{"ore"},
				Commonness:           map[string]float64{"": 10},
				Width:                90,
				Height:               70,
				RandomOffsetFromWall: 20,
			},
			{
				Identifier:           "titanium_ore",
				Tags:                 []string{"ore"},
				Commonness:           map[string]float64{"": 4},
				Width:                90,
				Height:               70,
				RandomOffsetFromWall: 20,
			},
			{
				Identifier:           "sulphurite",
				Tags:                 []string{"ore"},
				Commonness:           map[string]float64{"": 2},
				Width:                80,
				Height:               80,
				RandomOffsetFromWall: 10,
			},
			{
				Identifier:           "slime_bacteria",
				Tags:                 []string{"plant"},
				Commonness:           map[string]float64{"": 6},
				Width:                60,
				Height:               40,
				RandomOffsetFromWall: 0,
			},
			{
				Identifier: "physicorium",
				Tags:       []string{"ore"},
				Commonness: map[string]float64{"": 0.5},
				FixedQuantity: map[string]FixedQuantity{
					"": {ClusterQuantity: 1, ClusterSize: 2},
				},
				Width:                100,
				Height:               80,
				RandomOffsetFromWall: 10,
			},
		},
	}
}

// DefaultGeneration returns the stock level generation parameters.
func DefaultGeneration() GenerationParams {
	return GenerationParams{
		Identifier:   "default",
		Width:        100000,
		Height:       50000,
		GridCellSize: 2000,
		Tunnels: TunnelParams{
			MinTunnelRadius:       6500,
			MainPathNodeInterval:  IntRange{Min: 5000, Max: 10000},
			MainPathVariance:      0.5,
			SideTunnelCount:       IntRange{Min: 0, Max: 1},
			SideTunnelVariance:    0.5,
			MinSideTunnelRadius:   IntRange{Min: 2000, Max: 6000},
			StartPosition:         Float2{X: 0, Y: 0},
			EndPosition:           Float2{X: 1, Y: 0},
			CreateHoleNextToEnd:   true,
			CreateHoleToAbyss:     true,
			IslandCount:           0,
			BottomHoleProbability: 0.4,
		},
		Voronoi: VoronoiParams{
			SiteInterval: geom.Pt(3000, 3000),
			SiteVariance: geom.Pt(700, 700),
		},
		Cells: CellParams{
			SubdivisionLength: 5000,
			RoundingAmount:    0.5,
			Irregularity:      0.1,
		},
		Abyss: AbyssParams{
			IslandCount:           5,
			IslandSizeMin:         geom.Pt(4000, 7000),
			IslandSizeMax:         geom.Pt(8000, 10000),
			IslandCaveProbability: 0.5,
		},
		SeaFloor: SeaFloorParams{
			Depth:          -300000,
			Variance:       1000,
			MountainCount:  IntRange{Min: 0, Max: 0},
			MountainHeight: IntRange{Min: 1000, Max: 5000},
		},
		Resources: ResourceParams{
			ItemCount:         100,
			ClusterSize:       IntRange{Min: 2, Max: 8},
			Interval:          IntRange{Min: 19200, Max: 38400},
			CaveInterval:      IntRange{Min: 9600, Max: 19200},
			SpawnChance:       0.3,
			CaveSpawnChance:   1.0,
			MaxOverlap:        0.4,
			AbyssPrefabCount:  5,
			AbyssClusterCount: 10,
		},
		Ruins: RuinParams{
			Count:   1,
			MinSize: geom.Pt(6000, 4000),
			MaxSize: geom.Pt(10000, 6000),
		},
		Waypoints: WaypointParams{
			SpliceStep: 2400,
			LookBack:   4,
		},
		CaveCount: 5,
		IceChunks: IceChunkParams{
			FloatingCount: 0,
			Radius:        IntRange{Min: 500, Max: 1000},
			MoveSpeed:     IntRange{Min: 100, Max: 200},
		},
		Structures: StructureParams{
			WreckCount:    1,
			WreckSize:     geom.Pt(4000, 2000),
			BeaconStation: true,
			BeaconSize:    geom.Pt(3000, 3000),
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Generation.Validate(); err != nil {
		return err
	}
	if len(c.Biomes) == 0 {
		return errors.New("biomes must not be empty")
	}
	for i, b := range c.Biomes {
		if b.Identifier == "" {
			return fmt.Errorf("biomes[%d].identifier must be set", i)
		}
	}
	for i, cave := range c.Caves {
		if cave.Identifier == "" {
			return fmt.Errorf("caves[%d].identifier must be set", i)
		}
		if cave.MinWidth <= 0 || cave.MinHeight <= 0 {
			return fmt.Errorf("caves[%d] size must be positive", i)
		}
		if cave.MaxWidth < cave.MinWidth || cave.MaxHeight < cave.MinHeight {
			return fmt.Errorf("caves[%d] max size must be >= min size", i)
		}
		if cave.MaxBranchCount < cave.MinBranchCount || cave.MinBranchCount < 0 {
			return fmt.Errorf("caves[%d] branch count range is invalid", i)
		}
		if cave.Commonness < 0 || cave.AbyssCommonness < 0 {
			return fmt.Errorf("caves[%d] commonness cannot be negative", i)
		}
	}
	for i, p := range c.Prefabs {
		if p.Identifier == "" {
			return fmt.Errorf("prefabs[%d].identifier must be set", i)
		}
		if p.Width <= 0 || p.Height <= 0 {
			return fmt.Errorf("prefabs[%d] size must be positive", i)
		}
		for level, weight := range p.Commonness {
			if weight < 0 {
				return fmt.Errorf("prefabs[%d].commonness[%q] cannot be negative", i, level)
			}
		}
	}
	return nil
}

func (p *GenerationParams) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return errors.New("level dimensions must be positive")
	}
	if p.GridCellSize <= 0 {
		return errors.New("gridCellSize must be positive")
	}
	t := p.Tunnels
	if t.MinTunnelRadius <= 0 {
		return errors.New("tunnels.minTunnelRadius must be positive")
	}
	if t.MainPathNodeInterval.Min <= 0 || t.MainPathNodeInterval.Max < t.MainPathNodeInterval.Min {
		return errors.New("tunnels.mainPathNodeInterval must be a positive range")
	}
	if t.SideTunnelCount.Min < 0 || t.SideTunnelCount.Max < t.SideTunnelCount.Min {
		return errors.New("tunnels.sideTunnelCount must be a non-negative range")
	}
	if t.MinSideTunnelRadius.Min <= 0 || t.MinSideTunnelRadius.Max < t.MinSideTunnelRadius.Min {
		return errors.New("tunnels.minSideTunnelRadius must be a positive range")
	}
	if !unit(t.StartPosition.X) || !unit(t.StartPosition.Y) || !unit(t.EndPosition.X) || !unit(t.EndPosition.Y) {
		return errors.New("tunnels start and end positions must be within [0,1]")
	}
	if t.IslandCount < 0 {
		return errors.New("tunnels.islandCount cannot be negative")
	}
	if !unit(t.BottomHoleProbability) {
		return errors.New("tunnels.bottomHoleProbability must be within [0,1]")
	}
	if p.Voronoi.SiteInterval.X <= 0 || p.Voronoi.SiteInterval.Y <= 0 {
		return errors.New("voronoi.siteInterval must be positive")
	}
	if p.Voronoi.SiteVariance.X < 0 || p.Voronoi.SiteVariance.Y < 0 {
		return errors.New("voronoi.siteVariance cannot be negative")
	}
	if p.Cells.SubdivisionLength <= 0 {
		return errors.New("cells.subdivisionLength must be positive")
	}
	if p.Cells.RoundingAmount < 0 || p.Cells.Irregularity < 0 {
		return errors.New("cells rounding and irregularity cannot be negative")
	}
	if p.CaveCount < 0 {
		return errors.New("caveCount cannot be negative")
	}
	if p.Abyss.IslandCount < 0 {
		return errors.New("abyss.islandCount cannot be negative")
	}
	if p.Abyss.IslandSizeMax.X < p.Abyss.IslandSizeMin.X || p.Abyss.IslandSizeMax.Y < p.Abyss.IslandSizeMin.Y {
		return errors.New("abyss.islandSizeMax must be >= islandSizeMin")
	}
	if p.SeaFloor.MountainCount.Max < p.SeaFloor.MountainCount.Min || p.SeaFloor.MountainCount.Min < 0 {
		return errors.New("seaFloor.mountainCount must be a non-negative range")
	}
	r := p.Resources
	if r.ItemCount < 0 {
		return errors.New("resources.itemCount cannot be negative")
	}
	if r.ClusterSize.Min < 1 || r.ClusterSize.Max < r.ClusterSize.Min {
		return errors.New("resources.clusterSize must be a positive range")
	}
	if r.Interval.Min <= 0 || r.Interval.Max < r.Interval.Min || r.CaveInterval.Min <= 0 || r.CaveInterval.Max < r.CaveInterval.Min {
		return errors.New("resources intervals must be positive ranges")
	}
	if !unit(r.SpawnChance) || !unit(r.CaveSpawnChance) {
		return errors.New("resources spawn chances must be within [0,1]")
	}
	if r.MaxOverlap < 0 || r.MaxOverlap >= 1 {
		return errors.New("resources.maxOverlap must be within [0,1)")
	}
	if p.Ruins.Count < 0 {
		return errors.New("ruins.count cannot be negative")
	}
	if p.Ruins.MaxSize.X < p.Ruins.MinSize.X || p.Ruins.MaxSize.Y < p.Ruins.MinSize.Y {
		return errors.New("ruins.maxSize must be >= minSize")
	}
	if p.Waypoints.SpliceStep <= 0 {
		return errors.New("waypoints.spliceStep must be positive")
	}
	if p.Waypoints.LookBack < 0 {
		return errors.New("waypoints.lookBack cannot be negative")
	}
	if p.IceChunks.FloatingCount < 0 {
		return errors.New("iceChunks.floatingCount cannot be negative")
	}
	return nil
}

func unit(v float64) bool { return v >= 0 && v <= 1 }
