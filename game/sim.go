// Package game wires the schedulers, trigger detectors, action
// executor and telemetry into a fixed-order tick loop over an ark ECS
// world.
package game

import (
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/meadow/components"
	"github.com/pthm-cable/meadow/config"
	"github.com/pthm-cable/meadow/systems"
	"github.com/pthm-cable/meadow/telemetry"
)

// Sim owns the world and every per-tick system. The stage order
// within a tick is fixed: triggers fire before the think drain so a
// threshold crossed this tick can be decided this tick, and the path
// drain runs after the executor so requests made while advancing are
// computed at the earliest the same tick and consumed the next.
type Sim struct {
	cfg   *config.Config
	world *ecs.World
	rng   *rand.Rand

	worldMap *systems.GridMap
	index    *systems.ChunkIndex
	think    *systems.ThinkScheduler
	paths    *systems.PathScheduler
	planner  *systems.Planner
	executor *systems.Executor
	triggers *systems.TriggerSystem
	content  *contentState

	actorMapper *ecs.Map4[components.Actor, components.Position, components.Needs, components.NeedTracker]
	needsFilter *ecs.Filter1[components.Needs]
	posMap      *ecs.Map1[components.Position]
	needsMap    *ecs.Map1[components.Needs]

	par *parallelState

	collector     *telemetry.Collector
	perfCollector *telemetry.PerfCollector
	outputManager *telemetry.OutputManager
	logStats      bool
	statsCallback func(telemetry.WindowStats, telemetry.PerfStats)

	tick       uint64
	nextID     uint32
	population int

	// despawnQueue holds actors marked for removal; flushed by the
	// cleanup stage the same tick.
	despawnQueue []ecs.Entity
}

// NewSim builds a simulation from configuration: generates the world
// map, constructs every system and spawns the initial population.
func NewSim(cfg *config.Config) (*Sim, error) {
	world := ecs.NewWorld()
	rng := rand.New(rand.NewSource(cfg.Runtime.Seed))

	worldMap := generateMap(&cfg.World, rng)
	index := systems.NewChunkIndex(cfg.World.ChunkSize)
	think := systems.NewThinkScheduler()

	paths := systems.NewPathScheduler(world, worldMap, cfg.Scheduler.PathTimeoutTicks, cfg.World.ChunkSize)
	paths.SetMaxIterations(cfg.Scheduler.PathMaxIterations)

	content := newContent(cfg, worldMap, rng)
	planner := systems.NewPlanner(content.menu())
	executor := systems.NewExecutor(world, planner, paths, index, cfg.Scheduler.MaxRetries)
	triggers := systems.NewTriggerSystem(world, triggerThresholds(&cfg.Triggers), think, executor, paths, index)

	s := &Sim{
		cfg:      cfg,
		world:    world,
		rng:      rng,
		worldMap: worldMap,
		index:    index,
		think:    think,
		paths:    paths,
		planner:  planner,
		executor: executor,
		triggers: triggers,
		content:  content,

		actorMapper: ecs.NewMap4[components.Actor, components.Position, components.Needs, components.NeedTracker](world),
		needsFilter: ecs.NewFilter1[components.Needs](world),
		posMap:      ecs.NewMap1[components.Position](world),
		needsMap:    ecs.NewMap1[components.Needs](world),

		par: newParallelState(planner),

		collector:     telemetry.NewCollector(cfg.Telemetry.StatsWindow),
		perfCollector: telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
	}

	if cfg.Telemetry.OutputDir != "" {
		om, err := telemetry.NewOutputManager(cfg.Telemetry.OutputDir)
		if err != nil {
			return nil, err
		}
		if err := om.WriteConfig(cfg); err != nil {
			slog.Error("failed to write config snapshot", "error", err)
		}
		s.outputManager = om
	}

	s.spawnInitialPopulation()
	return s, nil
}

// triggerThresholds converts the config section to the trigger
// system's parameter struct.
func triggerThresholds(tc *config.TriggersConfig) systems.TriggerThresholds {
	return systems.TriggerThresholds{
		HungerModerate: float32(tc.HungerModerate),
		HungerCritical: float32(tc.HungerCritical),
		ThirstModerate: float32(tc.ThirstModerate),
		ThirstCritical: float32(tc.ThirstCritical),
		EnergyLow:      float32(tc.EnergyLow),
		ThreatRadius:   tc.ThreatRadius,
		IdleInterval:   tc.IdleInterval,
	}
}

// SetLogStats enables periodic stat logging at window flushes.
func (s *Sim) SetLogStats(on bool) {
	s.logStats = on
}

// SetStatsCallback registers a hook invoked with each flushed window.
func (s *Sim) SetStatsCallback(fn func(telemetry.WindowStats, telemetry.PerfStats)) {
	s.statsCallback = fn
}

// Tick returns the current tick counter.
func (s *Sim) Tick() uint64 {
	return s.tick
}

// ScheduleThink queues a decision request for an actor at the
// reason's default priority. Returns false if one is already queued.
func (s *Sim) ScheduleThink(e ecs.Entity, reason systems.ThinkReason) bool {
	return s.think.Schedule(e, reason, reason.DefaultPriority(), s.tick)
}

// RequestPath queues a path computation on behalf of an actor,
// outside any action. The result arrives as a marker component.
func (s *Sim) RequestPath(e ecs.Entity, start, goal components.Tile, reason systems.PathReason) bool {
	return s.paths.Enqueue(systems.PathRequest{
		Requester:     e,
		Start:         start,
		Goal:          goal,
		Priority:      reason.DefaultPriority(),
		Reason:        reason,
		RequestedTick: s.tick,
		AllowDiagonal: true,
	})
}

// Metrics is a point-in-time snapshot of the scheduler counters and
// queue depths.
type Metrics struct {
	Tick       uint64
	Population int
	Totals     telemetry.Totals
	Depths     telemetry.QueueDepths
}

// Metrics snapshots the cumulative counters and current queue depths.
func (s *Sim) Metrics() Metrics {
	return Metrics{
		Tick:       s.tick,
		Population: s.population,
		Totals:     s.sampleTotals(),
		Depths:     s.sampleDepths(),
	}
}

// Population returns the live actor count.
func (s *Sim) Population() int {
	return s.population
}

// Step runs one simulation tick.
func (s *Sim) Step() {
	s.perfCollector.StartTick()

	s.perfCollector.StartPhase(telemetry.PhaseTriggers)
	s.triggers.Update(s.tick)

	s.perfCollector.StartPhase(telemetry.PhaseThinkDrain)
	drained := s.think.Drain(s.cfg.Scheduler.ThinkBudget)

	s.perfCollector.StartPhase(telemetry.PhaseDecision)
	decisions := s.par.evaluate(s.buildContexts(drained))
	s.applyDecisions(decisions)

	s.perfCollector.StartPhase(telemetry.PhaseExecutor)
	outcomes := s.executor.Advance(s.tick, s.rng)
	s.content.applyOutcomes(outcomes, s.needsMap)
	s.triggers.OnOutcomes(outcomes, s.tick)

	s.perfCollector.StartPhase(telemetry.PhasePathDrain)
	s.paths.DrainAndCompute(s.cfg.Scheduler.PathBudget, s.tick)

	s.perfCollector.StartPhase(telemetry.PhaseNeeds)
	s.driftNeeds()

	s.perfCollector.StartPhase(telemetry.PhaseCleanup)
	s.cullDead()

	s.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	s.flushTelemetry()

	s.perfCollector.EndTick()
	s.tick++
}

// Run steps the simulation until maxTicks, logging progress at the
// configured interval.
func (s *Sim) Run(maxTicks uint64) {
	interval := s.cfg.Runtime.LogInterval
	for s.tick < maxTicks {
		s.Step()
		if interval > 0 && s.tick%interval == 0 {
			slog.Info("tick",
				"tick", s.tick,
				"population", s.population,
				"think_queued", s.think.Len(),
				"path_queued", s.paths.Len())
		}
	}
}

// buildContexts snapshots the drained actors into decision contexts.
// Runs single-threaded; the contexts are then safe to score from
// worker goroutines because they hold values, not component pointers.
func (s *Sim) buildContexts(drained []systems.ThinkRequest) []systems.DecisionContext {
	contexts := s.par.contexts[:0]
	for _, req := range drained {
		if !s.world.Alive(req.Entity) {
			continue
		}
		ctx := systems.DecisionContext{
			Entity: req.Entity,
			Tick:   s.tick,
			Reason: req.Reason,
			Index:  s.index,
			Map:    s.worldMap,
		}
		if s.posMap.HasAll(req.Entity) {
			ctx.Tile = s.posMap.Get(req.Entity).Tile
		}
		if s.needsMap.HasAll(req.Entity) {
			ctx.Needs = *s.needsMap.Get(req.Entity)
		}
		contexts = append(contexts, ctx)
	}
	s.par.contexts = contexts
	return contexts
}

// applyDecisions starts the chosen action for each decided actor.
// Single-threaded: structural ECS changes happen here, not in the
// scoring workers.
func (s *Sim) applyDecisions(decisions []systems.Decision) {
	for _, d := range decisions {
		s.planner.CountVerdict(d)
		if d.Candidate < 0 {
			continue
		}
		kind, ok := s.planner.CandidateKind(d.Candidate)
		if !ok {
			continue
		}
		s.executor.Start(d.Entity, kind, s.tick)
	}
}

// driftNeeds applies the per-tick need rates to every actor.
func (s *Sim) driftNeeds() {
	hunger := float32(s.cfg.Needs.HungerRate)
	thirst := float32(s.cfg.Needs.ThirstRate)
	energy := float32(s.cfg.Needs.EnergyRate)

	query := s.needsFilter.Query()
	for query.Next() {
		needs := query.Get()
		needs.Hunger = clampNeed(needs.Hunger + hunger)
		needs.Thirst = clampNeed(needs.Thirst + thirst)
		needs.Energy = clampNeed(needs.Energy - energy)
	}
}

func clampNeed(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Close stops the workers, flushes a final telemetry window and
// closes the output files.
func (s *Sim) Close() error {
	s.par.stop()
	if s.collector.ShouldFlush(s.tick) {
		s.flushTelemetry()
	}
	return s.outputManager.Close()
}
