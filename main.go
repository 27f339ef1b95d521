package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/pthm-cable/meadow/config"
	"github.com/pthm-cable/meadow/game"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot (empty = use config)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Uint64("max-ticks", 0, "Stop after N ticks (0 = use config)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// CLI overrides
	if *seed != 0 {
		cfg.Runtime.Seed = *seed
	} else if cfg.Runtime.Seed == 0 {
		cfg.Runtime.Seed = time.Now().UnixNano()
	}
	if *maxTicks > 0 {
		cfg.Runtime.MaxTicks = *maxTicks
	}
	if *outputDir != "" {
		cfg.Telemetry.OutputDir = *outputDir
	}

	sim, err := game.NewSim(cfg)
	if err != nil {
		slog.Error("failed to build simulation", "error", err)
		os.Exit(1)
	}
	defer sim.Close()
	sim.SetLogStats(*logStats)

	slog.Info("starting simulation",
		"seed", cfg.Runtime.Seed,
		"population", sim.Population(),
		"max_ticks", cfg.Runtime.MaxTicks,
	)

	start := time.Now()
	sim.Run(cfg.Runtime.MaxTicks)

	elapsed := time.Since(start)
	slog.Info("simulation finished",
		"ticks", sim.Tick(),
		"elapsed", elapsed.String(),
		"ticks_per_sec", float64(sim.Tick())/elapsed.Seconds(),
	)
}
