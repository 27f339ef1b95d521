package systems

import (
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/meadow/components"
)

// spawnActors creates n bare actors for queue tests.
func spawnActors(world *ecs.World, n int) []ecs.Entity {
	mapper := ecs.NewMap1[components.Actor](world)
	entities := make([]ecs.Entity, n)
	for i := range entities {
		entities[i] = mapper.NewEntity(&components.Actor{ID: uint32(i)})
	}
	return entities
}

// TestThinkDrainBudget verifies a drain never exceeds its budget and
// a backlog of B items takes ceil(B/budget) drains to empty.
func TestThinkDrainBudget(t *testing.T) {
	world := ecs.NewWorld()
	entities := spawnActors(world, 23)

	s := NewThinkScheduler()
	for _, e := range entities {
		s.Schedule(e, ReasonIdle, PriorityNormal, 0)
	}

	drains := 0
	total := 0
	for s.Len() > 0 {
		got := s.Drain(5)
		if len(got) > 5 {
			t.Fatalf("drain returned %d items, budget is 5", len(got))
		}
		total += len(got)
		drains++
		if drains > 10 {
			t.Fatal("queue did not empty")
		}
	}

	if total != 23 {
		t.Errorf("drained %d items total, want 23", total)
	}
	if drains != 5 { // ceil(23/5)
		t.Errorf("took %d drains, want 5", drains)
	}
}

// TestThinkLargeBacklogDrainsExactly puts a full population into the
// queue at once and verifies the budget drains it in even slices with
// every actor served exactly once.
func TestThinkLargeBacklogDrainsExactly(t *testing.T) {
	world := ecs.NewWorld()
	entities := spawnActors(world, 500)

	s := NewThinkScheduler()
	for _, e := range entities {
		if !s.Schedule(e, ReasonIdle, PriorityLow, 0) {
			t.Fatal("schedule rejected a first-time actor")
		}
	}

	seen := make(map[ecs.Entity]int, 500)
	for drains := 0; s.Len() > 0; drains++ {
		if drains >= 10 {
			t.Fatalf("500 actors at budget 50 should drain in 10 ticks, queue still has %d", s.Len())
		}
		got := s.Drain(50)
		if len(got) != 50 {
			t.Fatalf("drain %d returned %d items, want exactly 50", drains, len(got))
		}
		for _, req := range got {
			seen[req.Entity]++
		}
	}

	if len(seen) != 500 {
		t.Fatalf("served %d distinct actors, want 500", len(seen))
	}
	for e, n := range seen {
		if n != 1 {
			t.Fatalf("actor %v served %d times, want once", e, n)
		}
	}
	if s.TotalProcessed() != 500 {
		t.Errorf("TotalProcessed = %d, want 500", s.TotalProcessed())
	}
}

// TestThinkPriorityOrder verifies urgent drains fully before normal,
// and normal before low, regardless of insertion order.
func TestThinkPriorityOrder(t *testing.T) {
	world := ecs.NewWorld()
	entities := spawnActors(world, 6)

	s := NewThinkScheduler()
	s.Schedule(entities[0], ReasonIdle, PriorityLow, 0)
	s.Schedule(entities[1], ReasonHungerModerate, PriorityNormal, 0)
	s.Schedule(entities[2], ReasonThreatened, PriorityUrgent, 0)
	s.Schedule(entities[3], ReasonIdle, PriorityLow, 0)
	s.Schedule(entities[4], ReasonThreatened, PriorityUrgent, 0)
	s.Schedule(entities[5], ReasonHungerModerate, PriorityNormal, 0)

	got := s.Drain(6)
	wantPriorities := []Priority{
		PriorityUrgent, PriorityUrgent,
		PriorityNormal, PriorityNormal,
		PriorityLow, PriorityLow,
	}
	if len(got) != len(wantPriorities) {
		t.Fatalf("drained %d items, want %d", len(got), len(wantPriorities))
	}
	for i, req := range got {
		if req.Priority != wantPriorities[i] {
			t.Errorf("item %d has priority %v, want %v", i, req.Priority, wantPriorities[i])
		}
	}
}

// TestThinkUrgentFirstWithBudgetOne verifies an urgent item always
// wins over a queued low item when the budget is tiny.
func TestThinkUrgentFirstWithBudgetOne(t *testing.T) {
	world := ecs.NewWorld()
	entities := spawnActors(world, 2)

	s := NewThinkScheduler()
	s.Schedule(entities[0], ReasonIdle, PriorityLow, 0)
	s.Schedule(entities[1], ReasonFearTriggered, PriorityUrgent, 0)

	got := s.Drain(1)
	if len(got) != 1 {
		t.Fatalf("drained %d items, want 1", len(got))
	}
	if got[0].Entity != entities[1] {
		t.Error("low-priority item drained before urgent item")
	}
}

// TestThinkDedupe verifies scheduling the same actor twice before a
// drain keeps exactly one entry.
func TestThinkDedupe(t *testing.T) {
	world := ecs.NewWorld()
	entities := spawnActors(world, 1)
	e := entities[0]

	s := NewThinkScheduler()
	if !s.Schedule(e, ReasonHungerModerate, PriorityNormal, 0) {
		t.Fatal("first schedule rejected")
	}
	if s.Schedule(e, ReasonThirstModerate, PriorityUrgent, 0) {
		t.Error("duplicate schedule accepted")
	}
	if s.Len() != 1 {
		t.Errorf("queue holds %d entries, want 1", s.Len())
	}
	if s.TotalDuplicate() != 1 {
		t.Errorf("duplicate counter is %d, want 1", s.TotalDuplicate())
	}

	got := s.Drain(10)
	if len(got) != 1 {
		t.Fatalf("drained %d items, want 1", len(got))
	}
	// First request wins; the duplicate was dropped, not merged.
	if got[0].Reason != ReasonHungerModerate {
		t.Errorf("drained reason %v, want %v", got[0].Reason, ReasonHungerModerate)
	}

	// Drained actors can be scheduled again.
	if !s.Schedule(e, ReasonIdle, PriorityLow, 1) {
		t.Error("re-schedule after drain rejected")
	}
}

// TestThinkForget verifies a forgotten actor's request is skipped
// without spending budget, and re-scheduling uses the new priority.
func TestThinkForget(t *testing.T) {
	world := ecs.NewWorld()
	entities := spawnActors(world, 2)

	s := NewThinkScheduler()
	s.Schedule(entities[0], ReasonIdle, PriorityLow, 0)
	s.Schedule(entities[1], ReasonIdle, PriorityLow, 0)

	s.Forget(entities[0])
	if s.Contains(entities[0]) {
		t.Error("forgotten actor still reported queued")
	}

	// Re-schedule at a different tier; the stale low entry must not
	// surface with the old priority.
	s.Schedule(entities[0], ReasonThreatened, PriorityUrgent, 1)

	got := s.Drain(1)
	if len(got) != 1 || got[0].Entity != entities[0] || got[0].Priority != PriorityUrgent {
		t.Fatalf("drain = %+v, want one urgent request for the re-scheduled actor", got)
	}

	got = s.Drain(5)
	if len(got) != 1 || got[0].Entity != entities[1] {
		t.Fatalf("second drain returned %d items, want the one remaining actor", len(got))
	}
}

// TestThinkQueueSizes verifies per-tier counts track live entries.
func TestThinkQueueSizes(t *testing.T) {
	world := ecs.NewWorld()
	entities := spawnActors(world, 4)

	s := NewThinkScheduler()
	s.Schedule(entities[0], ReasonThreatened, PriorityUrgent, 0)
	s.Schedule(entities[1], ReasonHungerModerate, PriorityNormal, 0)
	s.Schedule(entities[2], ReasonIdle, PriorityLow, 0)
	s.Schedule(entities[3], ReasonIdle, PriorityLow, 0)

	u, n, l := s.QueueSizes()
	if u != 1 || n != 1 || l != 2 {
		t.Errorf("QueueSizes = (%d, %d, %d), want (1, 1, 2)", u, n, l)
	}

	s.Forget(entities[3])
	u, n, l = s.QueueSizes()
	if u != 1 || n != 1 || l != 1 {
		t.Errorf("after Forget, QueueSizes = (%d, %d, %d), want (1, 1, 1)", u, n, l)
	}
}

// TestThinkReasonPriorities spot-checks the reason-to-tier mapping.
func TestThinkReasonPriorities(t *testing.T) {
	tests := []struct {
		reason ThinkReason
		want   Priority
	}{
		{ReasonFearTriggered, PriorityUrgent},
		{ReasonHungerCritical, PriorityUrgent},
		{ReasonThirstCritical, PriorityUrgent},
		{ReasonThreatened, PriorityUrgent},
		{ReasonHungerModerate, PriorityNormal},
		{ReasonThirstModerate, PriorityNormal},
		{ReasonActionCompleted, PriorityNormal},
		{ReasonActionFailed, PriorityNormal},
		{ReasonReproductionReady, PriorityNormal},
		{ReasonIdle, PriorityLow},
		{ReasonWanderTargetNeeded, PriorityLow},
	}
	for _, tc := range tests {
		if got := tc.reason.DefaultPriority(); got != tc.want {
			t.Errorf("%v.DefaultPriority() = %v, want %v", tc.reason, got, tc.want)
		}
	}
}
