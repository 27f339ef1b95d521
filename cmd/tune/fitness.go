package main

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/meadow/config"
	"github.com/pthm-cable/meadow/game"
	"github.com/pthm-cable/meadow/telemetry"
)

// Cost component weights. Latency dominates; compute cost keeps the
// optimizer from maxing both budgets, which would trivially zero the
// queues.
const (
	costWeightLatency   = 0.40
	costWeightBacklog   = 0.25
	costWeightStability = 0.15
	costWeightCompute   = 0.20

	costWarmupWindows = 2 // skip first N windows (population settling)
)

// FitnessEvaluator runs headless simulations and scores scheduler
// responsiveness against compute cost.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   uint64
	seeds      []int64
	baseConfig *config.Config

	mu          sync.Mutex
	lastLatency float64 // mean wait p90 from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks uint64, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		maxTicks:   maxTicks,
		seeds:      seeds,
		baseConfig: baseCfg,
	}
}

// LastLatency returns the mean wait p90 from the most recent evaluation.
func (fe *FitnessEvaluator) LastLatency() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastLatency
}

// Evaluate computes the cost for a parameter vector (lower = better).
// All seeds run in parallel; the cost is their mean.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	costs := make([]float64, len(fe.seeds))
	latencies := make([]float64, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			windows := fe.runSimulation(x, s)
			cost, latency := fe.computeCost(x, windows)
			costs[idx] = cost
			latencies[idx] = latency
		}(i, seed)
	}
	wg.Wait()

	fe.mu.Lock()
	fe.lastLatency = stat.Mean(latencies, nil)
	fe.mu.Unlock()

	return stat.Mean(costs, nil)
}

// runSimulation executes one headless run and collects its window stats.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) []telemetry.WindowStats {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)
	cfg.Runtime.Seed = seed
	cfg.Runtime.LogInterval = 0
	cfg.Telemetry.OutputDir = ""

	sim, err := game.NewSim(cfg)
	if err != nil {
		return nil
	}
	defer sim.Close()

	var windows []telemetry.WindowStats
	sim.SetStatsCallback(func(stats telemetry.WindowStats, _ telemetry.PerfStats) {
		windows = append(windows, stats)
	})

	sim.Run(fe.maxTicks)
	return windows
}

// copyConfig creates a working copy of the base config. Config holds
// only value fields, so a shallow copy is a deep copy.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}

// computeCost scores one run. Returns the scalar cost and the mean
// wait p90 for progress reporting.
func (fe *FitnessEvaluator) computeCost(x []float64, windows []telemetry.WindowStats) (float64, float64) {
	if len(windows) <= costWarmupWindows {
		return math.Inf(1), 0
	}
	valid := windows[costWarmupWindows:]

	clamped := fe.params.Clamp(x)
	timeout := clamped[2]

	waitP90s := make([]float64, 0, len(valid))
	var backlogSum float64
	for _, w := range valid {
		waitP90s = append(waitP90s, w.WaitP90)
		if w.Population > 0 {
			depth := float64(w.ThinkUrgent + w.ThinkNormal + w.ThinkLow +
				w.PathUrgent + w.PathNormal + w.PathLow)
			backlogSum += depth / float64(w.Population)
		}
	}

	// Latency relative to the promotion timeout: above 1.0 requests
	// are being promoted before they are served.
	latency := stat.Mean(waitP90s, nil)
	latencyScore := latency / timeout

	backlogScore := backlogSum / float64(len(valid))

	// Jittery windows mean the budgets oscillate between starved and
	// idle; penalize the spread of wait p90 across windows.
	stabilityScore := 0.0
	if len(waitP90s) >= 2 && latency > 0 {
		stabilityScore = stat.StdDev(waitP90s, nil) / (latency + 1)
	}

	// Compute proxy: budget headroom spent per actor per tick.
	pop := float64(fe.baseConfig.Population.Initial)
	computeScore := (clamped[0] + 3*clamped[1]) / math.Max(pop, 1)

	cost := costWeightLatency*latencyScore +
		costWeightBacklog*backlogScore +
		costWeightStability*stabilityScore +
		costWeightCompute*computeScore
	return cost, latency
}
