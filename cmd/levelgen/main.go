package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"levelgen/internal/config"
	"levelgen/internal/ledger"
	"levelgen/internal/level"
)

func main() {
	var (
		cfgPath    string
		seed       string
		biomeID    string
		difficulty float64
		mirror     bool
		ledgerPath string
	)
	flag.StringVar(&cfgPath, "config", "", "path to level generation configuration file")
	flag.StringVar(&seed, "seed", "", "level seed")
	flag.StringVar(&biomeID, "biome", "", "biome identifier (defaults to the first configured biome)")
	flag.Float64Var(&difficulty, "difficulty", 50, "level difficulty in [0, 100]")
	flag.BoolVar(&mirror, "mirror", false, "mirror the level horizontally")
	flag.StringVar(&ledgerPath, "ledger", "", "checksum ledger file used to verify revisited seeds")
	flag.Parse()

	if seed == "" {
		log.Fatalf("a -seed is required")
	}

	wrote, err := writeConfigFromEnv(cfgPath)
	if err != nil {
		log.Fatalf("sync config: %v", err)
	}
	if wrote {
		log.Printf("wrote configuration from environment to %s", cfgPath)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	biome, err := findBiome(cfg, biomeID)
	if err != nil {
		log.Fatalf("select biome: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	started := time.Now()
	lvl, err := level.Generate(ctx, level.Request{
		Seed:       seed,
		Difficulty: difficulty,
		Biome:      biome,
		Params:     cfg.Generation,
		Caves:      cfg.Caves,
		Prefabs:    cfg.Prefabs,
		Mirror:     mirror,
	})
	if err != nil {
		log.Fatalf("generate level: %v", err)
	}
	logSummary(lvl, time.Since(started))

	if ledgerPath == "" {
		return
	}
	if err := verifyLedger(ledgerPath, cfg, biome, difficulty, lvl); err != nil {
		log.Fatalf("verify ledger: %v", err)
	}
}

func findBiome(cfg *config.Config, id string) (*config.Biome, error) {
	if len(cfg.Biomes) == 0 {
		return nil, fmt.Errorf("no biomes configured")
	}
	if id == "" {
		return &cfg.Biomes[0], nil
	}
	for i := range cfg.Biomes {
		if cfg.Biomes[i].Identifier == id {
			return &cfg.Biomes[i], nil
		}
	}
	return nil, fmt.Errorf("unknown biome %q", id)
}

func logSummary(lvl *level.Level, took time.Duration) {
	carved := 0
	for _, t := range lvl.Tunnels {
		carved += len(t.Cells)
	}
	log.Printf("level %q generated in %s: %d tunnels (%d carved cells), %d caves, %d ruins, %d solid cells, %d waypoints in %d components",
		lvl.Seed, took.Round(time.Millisecond), len(lvl.Tunnels), carved, len(lvl.Caves), len(lvl.Ruins),
		len(lvl.Cells), lvl.WayPoints.Len(), lvl.WayPoints.Components())
	if lvl.Resources != nil {
		log.Printf("level %q resources: %d/%d placed in %d clusters", lvl.Seed, lvl.Resources.Placed, lvl.Resources.Target, len(lvl.Resources.Clusters))
	}
	if d := lvl.Diagnostics; d != (level.Diagnostics{}) {
		log.Printf("level %q diagnostics: %+v", lvl.Seed, d)
	}
}

func verifyLedger(path string, cfg *config.Config, biome *config.Biome, difficulty float64, lvl *level.Level) error {
	store, err := ledger.OpenDiskStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	fp, err := ledger.Fingerprint(cfg.Generation, cfg.Caves, cfg.Prefabs, biome.Identifier, difficulty)
	if err != nil {
		return err
	}
	key := ledger.Key{Seed: lvl.Seed, Fingerprint: fp, Mirror: lvl.Mirrored}
	fresh, err := ledger.Verify(store, key, lvl.Checksums)
	if err != nil {
		return err
	}
	if fresh {
		log.Printf("recorded checksums for %s", key)
	} else {
		log.Printf("checksums match ledger for %s", key)
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
			return
		}

		time.AfterFunc(10*time.Second, func() {
			log.Printf("forced exit after timeout")
			os.Exit(1)
		})
	}()

	return ctx, cancel
}
