package systems

import (
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/meadow/components"
)

type triggerFixture struct {
	world    *ecs.World
	think    *ThinkScheduler
	paths    *PathScheduler
	index    *ChunkIndex
	executor *Executor
	triggers *TriggerSystem
	needsMap *ecs.Map1[components.Needs]
}

func newTriggerFixture(t *testing.T, cfg TriggerThresholds) *triggerFixture {
	t.Helper()
	world := ecs.NewWorld()
	think := NewThinkScheduler()
	index := NewChunkIndex(16)
	paths := NewPathScheduler(world, nil, 10, 16)
	executor := NewExecutor(world, NewPlanner(nil), paths, index, 3)
	return &triggerFixture{
		world:    world,
		think:    think,
		paths:    paths,
		index:    index,
		executor: executor,
		triggers: NewTriggerSystem(world, cfg, think, executor, paths, index),
		needsMap: ecs.NewMap1[components.Needs](world),
	}
}

func (f *triggerFixture) spawn(id uint32, cat components.Category, tile components.Tile) ecs.Entity {
	mapper := ecs.NewMap4[
		components.Actor,
		components.Position,
		components.Needs,
		components.NeedTracker,
	](f.world)
	e := mapper.NewEntity(
		&components.Actor{ID: id, Category: cat},
		&components.Position{Tile: tile},
		&components.Needs{},
		&components.NeedTracker{},
	)
	f.index.Insert(e, tile, cat)
	return e
}

// drainReasons empties the think queues and returns the reasons seen,
// in drain order.
func (f *triggerFixture) drainReasons() []ThinkReason {
	var reasons []ThinkReason
	for _, req := range f.think.Drain(100) {
		reasons = append(reasons, req.Reason)
	}
	return reasons
}

func TestTriggerHungerLatch(t *testing.T) {
	f := newTriggerFixture(t, TriggerThresholds{HungerModerate: 50, HungerCritical: 80})
	e := f.spawn(1, components.CategoryHerbivore, components.Tile{})

	f.triggers.Update(0)
	if got := f.drainReasons(); len(got) != 0 {
		t.Fatalf("fired %v with hunger at zero", got)
	}

	f.needsMap.Get(e).Hunger = 55
	f.triggers.Update(1)
	got := f.drainReasons()
	if len(got) != 1 || got[0] != ReasonHungerModerate {
		t.Fatalf("reasons = %v, want one HungerModerate", got)
	}

	// Holding above the threshold must not re-fire.
	f.triggers.Update(2)
	f.triggers.Update(3)
	if got := f.drainReasons(); len(got) != 0 {
		t.Fatalf("latched threshold re-fired: %v", got)
	}

	// Recovering below and crossing again is a new excursion.
	f.needsMap.Get(e).Hunger = 40
	f.triggers.Update(4)
	f.needsMap.Get(e).Hunger = 60
	f.triggers.Update(5)
	got = f.drainReasons()
	if len(got) != 1 || got[0] != ReasonHungerModerate {
		t.Fatalf("reasons after recovery = %v, want one HungerModerate", got)
	}
}

func TestTriggerCriticalIsUrgent(t *testing.T) {
	f := newTriggerFixture(t, TriggerThresholds{ThirstModerate: 50, ThirstCritical: 80})
	e := f.spawn(1, components.CategoryHerbivore, components.Tile{})

	// Jumping straight past both thresholds fires both detectors; the
	// critical one must land in the urgent tier.
	f.needsMap.Get(e).Thirst = 90
	f.triggers.Update(0)

	urgent, normal, low := f.think.QueueSizes()
	if urgent != 1 {
		t.Errorf("urgent queue = %d, want 1 for critical thirst", urgent)
	}
	// Dedupe keeps the first request, so the moderate detector's
	// schedule call is rejected.
	if normal != 0 || low != 0 {
		t.Errorf("normal/low queues = %d/%d, want 0/0", normal, low)
	}
	got := f.drainReasons()
	if len(got) != 1 || got[0] != ReasonThirstCritical {
		t.Fatalf("reasons = %v, want one ThirstCritical", got)
	}
}

func TestTriggerEnergyLowInvertedLatch(t *testing.T) {
	f := newTriggerFixture(t, TriggerThresholds{EnergyLow: 20})
	e := f.spawn(1, components.CategoryHerbivore, components.Tile{})

	f.needsMap.Get(e).Energy = 100
	f.triggers.Update(0)
	if got := f.drainReasons(); len(got) != 0 {
		t.Fatalf("fired %v with full energy", got)
	}

	f.needsMap.Get(e).Energy = 15
	f.triggers.Update(1)
	got := f.drainReasons()
	if len(got) != 1 || got[0] != ReasonEnergyLow {
		t.Fatalf("reasons = %v, want one EnergyLow", got)
	}

	f.triggers.Update(2)
	if got := f.drainReasons(); len(got) != 0 {
		t.Fatalf("low-energy latch re-fired: %v", got)
	}
}

func TestTriggerThreatProximity(t *testing.T) {
	f := newTriggerFixture(t, TriggerThresholds{ThreatRadius: 5})
	f.spawn(1, components.CategoryHerbivore, components.Tile{X: 0, Y: 0})

	f.triggers.Update(0)
	if got := f.drainReasons(); len(got) != 0 {
		t.Fatalf("fired %v with no predator around", got)
	}

	predator := f.spawn(2, components.CategoryPredator, components.Tile{X: 3, Y: 0})
	f.triggers.Update(1)
	urgent, _, _ := f.think.QueueSizes()
	if urgent != 1 {
		t.Fatalf("urgent queue = %d, want 1 threatened prey", urgent)
	}
	got := f.drainReasons()
	if len(got) != 1 || got[0] != ReasonThreatened {
		t.Fatalf("reasons = %v, want one Threatened", got)
	}

	// Predator still there: latched, no re-fire.
	f.triggers.Update(2)
	if got := f.drainReasons(); len(got) != 0 {
		t.Fatalf("threat latch re-fired: %v", got)
	}

	// Predator leaves and returns: new excursion.
	f.index.Update(predator, components.Tile{X: 50, Y: 50})
	f.triggers.Update(3)
	f.index.Update(predator, components.Tile{X: 2, Y: 0})
	f.triggers.Update(4)
	got = f.drainReasons()
	if len(got) != 1 || got[0] != ReasonThreatened {
		t.Fatalf("reasons after predator return = %v, want one Threatened", got)
	}
}

func TestTriggerIdleSweepStaggered(t *testing.T) {
	f := newTriggerFixture(t, TriggerThresholds{IdleInterval: 10})
	a := f.spawn(3, components.CategoryHerbivore, components.Tile{})
	b := f.spawn(7, components.CategoryHerbivore, components.Tile{})

	// Tick 13: only the actor with id%10 == 3 is swept.
	f.triggers.Update(13)
	if !f.think.Contains(a) {
		t.Error("actor with matching phase not swept")
	}
	if f.think.Contains(b) {
		t.Error("actor with non-matching phase swept")
	}
	got := f.drainReasons()
	if len(got) != 1 || got[0] != ReasonIdle {
		t.Fatalf("reasons = %v, want one Idle", got)
	}

	// Tick 17 sweeps the other actor.
	f.triggers.Update(17)
	if !f.think.Contains(b) {
		t.Error("second actor not swept on its phase tick")
	}
}

func TestTriggerIdleSkipsBusyActors(t *testing.T) {
	f := newTriggerFixture(t, TriggerThresholds{IdleInterval: 10})
	a := f.spawn(3, components.CategoryHerbivore, components.Tile{})

	// An active action makes the actor non-idle.
	f.executor.Start(a, 1, 0)
	f.triggers.Update(13)
	if f.think.Contains(a) {
		t.Error("actor with active action swept as idle")
	}
	f.executor.Cancel(a)

	// A queued think also blocks the sweep from double-scheduling.
	f.think.Schedule(a, ReasonHungerModerate, PriorityNormal, 20)
	f.triggers.Update(23)
	got := f.drainReasons()
	if len(got) != 1 || got[0] != ReasonHungerModerate {
		t.Fatalf("reasons = %v, want the queued HungerModerate only", got)
	}
}

func TestTriggerOutcomeRethink(t *testing.T) {
	f := newTriggerFixture(t, TriggerThresholds{})
	a := f.spawn(1, components.CategoryHerbivore, components.Tile{})
	b := f.spawn(2, components.CategoryHerbivore, components.Tile{})

	f.triggers.OnOutcomes([]ActionOutcome{
		{Entity: a, State: components.ActionCompleted},
		{Entity: b, State: components.ActionFailed},
	}, 5)

	reqs := f.think.Drain(10)
	if len(reqs) != 2 {
		t.Fatalf("drained %d requests, want 2", len(reqs))
	}
	for _, req := range reqs {
		want := ReasonActionCompleted
		if req.Entity == b {
			want = ReasonActionFailed
		}
		if req.Reason != want {
			t.Errorf("entity %v reason = %v, want %v", req.Entity, req.Reason, want)
		}
		if req.Priority != PriorityNormal {
			t.Errorf("outcome re-think priority = %v, want Normal", req.Priority)
		}
	}
}
