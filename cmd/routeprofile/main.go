package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"levelgen/internal/config"
	"levelgen/internal/level"
	"levelgen/internal/random"
	"levelgen/internal/waypoint"
	"levelgen/internal/world"
)

type routeJob struct {
	start world.WayPointID
	goal  world.WayPointID
}

func main() {
	var (
		cfgPath       = flag.String("config", "", "path to level generation configuration file")
		levelSeed     = flag.String("level", "routeprofile", "seed of the level to profile")
		totalRequests = flag.Int("requests", 2000, "number of route requests to issue")
		concurrency   = flag.Int("concurrency", runtime.NumCPU(), "number of concurrent workers")
		timeout       = flag.Duration("timeout", 250*time.Millisecond, "per-request timeout")
		seed          = flag.Int64("seed", 1337, "random seed for start/goal selection")
		verbose       = flag.Bool("v", false, "keep the generator's log output")
	)
	flag.Parse()

	if *totalRequests <= 0 {
		fmt.Fprintln(os.Stderr, "requests must be positive")
		os.Exit(1)
	}
	if *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency must be positive")
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if !*verbose {
		log.SetOutput(io.Discard)
	}

	genStart := time.Now()
	lvl, err := level.Generate(context.Background(), level.Request{
		Seed:       *levelSeed,
		Difficulty: 50,
		Biome:      &cfg.Biomes[0],
		Params:     cfg.Generation,
		Caves:      cfg.Caves,
		Prefabs:    cfg.Prefabs,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate level: %v\n", err)
		os.Exit(1)
	}
	genDuration := time.Since(genStart)

	points := lvl.WayPoints.Len()
	if points < 2 {
		fmt.Fprintln(os.Stderr, "not enough waypoints to profile")
		os.Exit(1)
	}

	jobs := make(chan routeJob)
	go func() {
		defer close(jobs)
		rng := random.New(*seed)
		for i := 0; i < *totalRequests; i++ {
			start := world.WayPointID(rng.Int(points))
			goal := world.WayPointID(rng.Int(points))
			for start == goal {
				goal = world.WayPointID(rng.Int(points))
			}
			jobs <- routeJob{start: start, goal: goal}
		}
	}()

	metrics := &waypoint.NavigatorMetrics{}
	ctx := waypoint.ContextWithProfiler(context.Background(), metrics.Profiler())
	navigator := lvl.Navigator()

	var (
		wg                 sync.WaitGroup
		totalRouteLength   atomic.Int64
		totalRouteSteps    atomic.Int64
		totalRouteDuration atomic.Int64
		successes          atomic.Int64
		failures           atomic.Int64
		timeouts           atomic.Int64
	)

	worker := func() {
		defer wg.Done()
		for job := range jobs {
			routeCtx, cancel := context.WithTimeout(ctx, *timeout)
			startTime := time.Now()
			route := navigator.FindRoute(routeCtx, job.start, job.goal)
			totalRouteDuration.Add(int64(time.Since(startTime)))
			timedOut := routeCtx.Err() == context.DeadlineExceeded
			cancel()

			switch {
			case timedOut:
				timeouts.Add(1)
			case route == nil:
				failures.Add(1)
			default:
				successes.Add(1)
				totalRouteSteps.Add(int64(len(route) - 1))
				totalRouteLength.Add(int64(navigator.RouteLength(route)))
			}
		}
	}

	wg.Add(*concurrency)
	for i := 0; i < *concurrency; i++ {
		go worker()
	}

	startWall := time.Now()
	wg.Wait()
	wallDuration := time.Since(startWall)

	requests := int64(*totalRequests)
	snap := metrics.Snapshot()
	succ := successes.Load()
	avgSteps, avgLength := 0.0, 0.0
	if succ > 0 {
		avgSteps = float64(totalRouteSteps.Load()) / float64(succ)
		avgLength = float64(totalRouteLength.Load()) / float64(succ)
	}
	avgNeighbors := 0.0
	if snap.NeighborGenerations > 0 {
		avgNeighbors = float64(snap.NeighborCount) / float64(snap.NeighborGenerations)
	}

	fmt.Println("== Waypoint Route Profile ==")
	fmt.Printf("Level: %q (%dx%d), generated in %s\n", lvl.Seed, lvl.Borders.Width, lvl.Borders.Height, genDuration.Round(time.Millisecond))
	fmt.Printf("Waypoints: %d in %d components\n", points, lvl.WayPoints.Components())
	fmt.Printf("Requests: %d\n", requests)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Successes: %d, Failures: %d, Timeouts: %d\n", succ, failures.Load(), timeouts.Load())
	fmt.Printf("Average route steps: %.2f\n", avgSteps)
	fmt.Printf("Average route length: %.0f\n", avgLength)
	fmt.Printf("Average per-route duration: %s\n", time.Duration(totalRouteDuration.Load()/requests))
	fmt.Printf("Wall clock duration: %s\n", wallDuration)
	fmt.Printf("Average nodes expanded: %.2f\n", float64(snap.NodesExpanded)/float64(requests))
	fmt.Printf("Average heuristic evaluations: %.2f\n", float64(snap.HeuristicEvaluations)/float64(requests))
	fmt.Printf("Average neighbours per expansion: %.2f\n", avgNeighbors)
	fmt.Printf("Unreachable searches: %d\n", snap.Unreachable)
}
