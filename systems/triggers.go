package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/meadow/components"
)

// TriggerThresholds configures the need-crossing detectors and the
// idle sweep cadence.
type TriggerThresholds struct {
	HungerModerate float32
	HungerCritical float32
	ThirstModerate float32
	ThirstCritical float32
	EnergyLow      float32

	// ThreatRadius is the predator-proximity distance that triggers
	// an urgent re-think for non-predators. Zero disables the check,
	// as it does for every threshold above.
	ThreatRadius float64

	// IdleInterval is the sweep cadence in ticks. Actors are
	// staggered by id modulo the interval so the whole population
	// never re-triggers on the same tick.
	IdleInterval uint64
}

// TriggerSystem runs the cheap per-tick checks that decide an actor
// needs a new decision. Detectors fire on transitions, not levels,
// and schedule at most once per excursion; the scheduler's dedupe
// makes repeated calls in one tick harmless.
type TriggerSystem struct {
	cfg      TriggerThresholds
	think    *ThinkScheduler
	executor *Executor
	paths    *PathScheduler
	index    *ChunkIndex

	filter *ecs.Filter4[
		components.Actor,
		components.Position,
		components.Needs,
		components.NeedTracker,
	]

	threatScratch []ecs.Entity
}

// NewTriggerSystem creates the detector set.
func NewTriggerSystem(world *ecs.World, cfg TriggerThresholds, think *ThinkScheduler, executor *Executor, paths *PathScheduler, index *ChunkIndex) *TriggerSystem {
	return &TriggerSystem{
		cfg:      cfg,
		think:    think,
		executor: executor,
		paths:    paths,
		index:    index,
		filter: ecs.NewFilter4[
			components.Actor,
			components.Position,
			components.Needs,
			components.NeedTracker,
		](world),
	}
}

// Update runs all detectors for one tick.
func (ts *TriggerSystem) Update(tick uint64) {
	query := ts.filter.Query()
	for query.Next() {
		e := query.Entity()
		actor, pos, needs, tracker := query.Get()

		ts.checkNeeds(e, needs, tracker, tick)
		if ts.cfg.ThreatRadius > 0 {
			ts.checkThreat(e, actor, pos, tracker, tick)
		}
		ts.checkIdle(e, actor, tick)

		tracker.PrevHunger = needs.Hunger
		tracker.PrevThirst = needs.Thirst
		tracker.PrevEnergy = needs.Energy
	}
}

// checkNeeds fires on upward threshold crossings of hunger and
// thirst, and downward crossings of energy. Each latch resets when
// the value recovers, so one excursion schedules one think.
func (ts *TriggerSystem) checkNeeds(e ecs.Entity, needs *components.Needs, tracker *components.NeedTracker, tick uint64) {
	ts.latchRising(e, needs.Hunger, ts.cfg.HungerCritical, &tracker.HungerCritical,
		ReasonHungerCritical, tick)
	ts.latchRising(e, needs.Hunger, ts.cfg.HungerModerate, &tracker.HungerModerate,
		ReasonHungerModerate, tick)
	ts.latchRising(e, needs.Thirst, ts.cfg.ThirstCritical, &tracker.ThirstCritical,
		ReasonThirstCritical, tick)
	ts.latchRising(e, needs.Thirst, ts.cfg.ThirstModerate, &tracker.ThirstModerate,
		ReasonThirstModerate, tick)

	// Energy falls as it worsens, so the latch is inverted.
	if ts.cfg.EnergyLow <= 0 {
		return
	}
	if needs.Energy <= ts.cfg.EnergyLow {
		if !tracker.EnergyLow {
			tracker.EnergyLow = true
			ts.think.Schedule(e, ReasonEnergyLow, ReasonEnergyLow.DefaultPriority(), tick)
		}
	} else {
		tracker.EnergyLow = false
	}
}

// latchRising fires once per upward excursion past threshold. A zero
// threshold disables the detector.
func (ts *TriggerSystem) latchRising(e ecs.Entity, value, threshold float32, latch *bool, reason ThinkReason, tick uint64) {
	if threshold <= 0 {
		return
	}
	if value >= threshold {
		if !*latch {
			*latch = true
			ts.think.Schedule(e, reason, reason.DefaultPriority(), tick)
		}
	} else {
		*latch = false
	}
}

// checkThreat schedules an urgent think when a predator first enters
// the threat radius of a non-predator.
func (ts *TriggerSystem) checkThreat(e ecs.Entity, actor *components.Actor, pos *components.Position, tracker *components.NeedTracker, tick uint64) {
	if actor.Category == components.CategoryPredator {
		return
	}
	predator := components.CategoryPredator
	ts.threatScratch = ts.index.QueryRadiusInto(ts.threatScratch[:0], pos.Tile, ts.cfg.ThreatRadius, &predator)
	if len(ts.threatScratch) > 0 {
		if !tracker.ThreatNearby {
			tracker.ThreatNearby = true
			ts.think.Schedule(e, ReasonThreatened, PriorityUrgent, tick)
		}
	} else {
		tracker.ThreatNearby = false
	}
}

// checkIdle gives a low-priority think to actors with nothing queued,
// no active action and no pending path, on a staggered cadence.
func (ts *TriggerSystem) checkIdle(e ecs.Entity, actor *components.Actor, tick uint64) {
	if ts.cfg.IdleInterval == 0 {
		return
	}
	if tick%ts.cfg.IdleInterval != uint64(actor.ID)%ts.cfg.IdleInterval {
		return
	}
	if ts.think.Contains(e) || ts.executor.Active(e) || ts.paths.HasPending(e) {
		return
	}
	ts.think.Schedule(e, ReasonIdle, PriorityLow, tick)
}

// OnOutcomes schedules normal-priority re-thinks for actors whose
// action just finished, so the next decision reacts to the result.
func (ts *TriggerSystem) OnOutcomes(outcomes []ActionOutcome, tick uint64) {
	for _, out := range outcomes {
		reason := ReasonActionCompleted
		if out.State == components.ActionFailed {
			reason = ReasonActionFailed
		}
		ts.think.Schedule(out.Entity, reason, PriorityNormal, tick)
	}
}
