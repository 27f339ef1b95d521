// Package systems provides the scheduling, pathfinding and spatial
// systems for the simulation.
package systems

import (
	"log/slog"

	"github.com/mlange-42/ark/ecs"
)

// Priority is the tier a queued request drains from. Urgent drains
// fully before Normal, Normal before Low.
type Priority uint8

const (
	PriorityUrgent Priority = iota
	PriorityNormal
	PriorityLow
)

// String returns the display name for a Priority.
func (p Priority) String() string {
	switch p {
	case PriorityUrgent:
		return "urgent"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// ThinkReason records why an actor was scheduled for a decision.
type ThinkReason uint8

const (
	ReasonFearTriggered ThinkReason = iota
	ReasonHungerCritical
	ReasonThirstCritical
	ReasonThreatened
	ReasonHungerModerate
	ReasonThirstModerate
	ReasonEnergyLow
	ReasonActionCompleted
	ReasonActionFailed
	ReasonReproductionReady
	ReasonIdle
	ReasonWanderTargetNeeded
)

// String returns the display name for a ThinkReason.
func (r ThinkReason) String() string {
	switch r {
	case ReasonFearTriggered:
		return "fear_triggered"
	case ReasonHungerCritical:
		return "hunger_critical"
	case ReasonThirstCritical:
		return "thirst_critical"
	case ReasonThreatened:
		return "threatened"
	case ReasonHungerModerate:
		return "hunger_moderate"
	case ReasonThirstModerate:
		return "thirst_moderate"
	case ReasonEnergyLow:
		return "energy_low"
	case ReasonActionCompleted:
		return "action_completed"
	case ReasonActionFailed:
		return "action_failed"
	case ReasonReproductionReady:
		return "reproduction_ready"
	case ReasonIdle:
		return "idle"
	case ReasonWanderTargetNeeded:
		return "wander_target_needed"
	default:
		return "unknown"
	}
}

// DefaultPriority maps a reason to its usual tier. Callers may
// override when scheduling.
func (r ThinkReason) DefaultPriority() Priority {
	switch r {
	case ReasonFearTriggered, ReasonHungerCritical, ReasonThirstCritical, ReasonThreatened:
		return PriorityUrgent
	case ReasonHungerModerate, ReasonThirstModerate, ReasonEnergyLow,
		ReasonActionCompleted, ReasonActionFailed, ReasonReproductionReady:
		return PriorityNormal
	default:
		return PriorityLow
	}
}

// ThinkRequest is a pending decision request for one actor.
type ThinkRequest struct {
	Entity        ecs.Entity
	Reason        ThinkReason
	Priority      Priority
	ScheduledTick uint64

	seq uint64 // matches the dedupe entry; stale after Forget
}

// ThinkScheduler is a three-tier budget-drained queue of decision
// requests. At most one request is outstanding per actor across all
// tiers; duplicates are dropped, not merged.
type ThinkScheduler struct {
	urgent []ThinkRequest
	normal []ThinkRequest
	low    []ThinkRequest

	// queued maps an actor to the sequence number of its live request.
	// A queue entry whose seq no longer matches was forgotten and is
	// skipped on drain without spending budget.
	queued  map[ecs.Entity]uint64
	nextSeq uint64

	drained []ThinkRequest // reused across drains

	totalQueued    uint64
	totalProcessed uint64
	totalDuplicate uint64
}

// NewThinkScheduler creates an empty scheduler.
func NewThinkScheduler() *ThinkScheduler {
	return &ThinkScheduler{
		queued: make(map[ecs.Entity]uint64, 256),
	}
}

// Schedule enqueues a decision request into the tier matching priority.
// Returns false if the actor is already queued (the request is dropped).
func (s *ThinkScheduler) Schedule(e ecs.Entity, reason ThinkReason, priority Priority, tick uint64) bool {
	if _, ok := s.queued[e]; ok {
		s.totalDuplicate++
		slog.Debug("think request dropped, actor already queued",
			"reason", reason.String(), "priority", priority.String())
		return false
	}
	s.nextSeq++
	s.queued[e] = s.nextSeq
	req := ThinkRequest{Entity: e, Reason: reason, Priority: priority, ScheduledTick: tick, seq: s.nextSeq}
	switch priority {
	case PriorityUrgent:
		s.urgent = append(s.urgent, req)
	case PriorityNormal:
		s.normal = append(s.normal, req)
	default:
		s.low = append(s.low, req)
	}
	s.totalQueued++
	return true
}

// Drain pops up to budget requests, urgent tier first, then normal,
// then low. The returned slice is reused by the next Drain call.
func (s *ThinkScheduler) Drain(budget int) []ThinkRequest {
	s.drained = s.drained[:0]
	if budget <= 0 {
		return s.drained
	}
	s.urgent = s.drainTier(s.urgent, budget)
	if remaining := budget - len(s.drained); remaining > 0 {
		s.normal = s.drainTier(s.normal, remaining)
	}
	if remaining := budget - len(s.drained); remaining > 0 {
		s.low = s.drainTier(s.low, remaining)
	}
	s.totalProcessed += uint64(len(s.drained))
	return s.drained
}

// drainTier moves up to want requests from the front of a tier into
// the drained buffer. Requests whose actor was forgotten are skipped
// without spending budget.
func (s *ThinkScheduler) drainTier(tier []ThinkRequest, want int) []ThinkRequest {
	taken := 0
	i := 0
	for ; i < len(tier) && taken < want; i++ {
		req := tier[i]
		if seq, ok := s.queued[req.Entity]; !ok || seq != req.seq {
			continue // forgotten after scheduling
		}
		delete(s.queued, req.Entity)
		s.drained = append(s.drained, req)
		taken++
	}
	n := copy(tier, tier[i:])
	return tier[:n]
}

// Contains reports whether the actor has an outstanding request.
func (s *ThinkScheduler) Contains(e ecs.Entity) bool {
	_, ok := s.queued[e]
	return ok
}

// Forget drops any outstanding request for the actor. The queue entry
// is skipped lazily on the next drain. Used on despawn and cancel.
func (s *ThinkScheduler) Forget(e ecs.Entity) {
	delete(s.queued, e)
}

// QueueSizes returns the number of live requests per tier.
func (s *ThinkScheduler) QueueSizes() (urgent, normal, low int) {
	return s.countLive(s.urgent), s.countLive(s.normal), s.countLive(s.low)
}

func (s *ThinkScheduler) countLive(tier []ThinkRequest) int {
	n := 0
	for _, req := range tier {
		if seq, ok := s.queued[req.Entity]; ok && seq == req.seq {
			n++
		}
	}
	return n
}

// Len returns the total number of live queued requests.
func (s *ThinkScheduler) Len() int {
	return len(s.queued)
}

// TotalQueued returns the number of requests accepted since start.
func (s *ThinkScheduler) TotalQueued() uint64 { return s.totalQueued }

// TotalProcessed returns the number of requests drained since start.
func (s *ThinkScheduler) TotalProcessed() uint64 { return s.totalProcessed }

// TotalDuplicate returns the number of duplicate requests dropped.
func (s *ThinkScheduler) TotalDuplicate() uint64 { return s.totalDuplicate }
