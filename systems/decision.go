package systems

import (
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/meadow/components"
)

// DecisionContext is the read-only view handed to candidate
// callbacks. Rng is nil during scoring, which may run on a worker
// goroutine; it is set for Resolve, which always runs on the main
// goroutine during the apply phase.
type DecisionContext struct {
	Entity ecs.Entity
	Tick   uint64
	Tile   components.Tile
	Needs  components.Needs
	Reason ThinkReason

	// Retry is the action's retry count when Resolve is called to
	// re-target after a failed path; zero on first resolution.
	// Resolvers should widen their search as it grows.
	Retry int

	Index *ChunkIndex
	Map   WorldMap
	Rng   *rand.Rand
}

// Candidate is one entry in the content layer's action menu. The
// planner treats the callbacks as opaque.
type Candidate struct {
	Kind components.ActionKind

	// PathReason tags path requests made on behalf of this action and
	// decides their queue tier.
	PathReason PathReason

	Score    func(ctx *DecisionContext) float64
	Feasible func(ctx *DecisionContext) bool
	Resolve  func(ctx *DecisionContext) (components.Tile, bool)
}

// Decision is the planner's verdict for one drained actor. Candidate
// is an index into the menu, or -1 when nothing was feasible.
type Decision struct {
	Entity    ecs.Entity
	Candidate int
	Score     float64
}

// Planner scores the candidate menu for actors handed to it by the
// think scheduler's drain. It never sees the full population; the
// drained slice is its entire input.
type Planner struct {
	menu []Candidate

	totalEvaluated uint64
	totalNoChoice  uint64
}

// NewPlanner creates a planner over a fixed candidate menu.
func NewPlanner(menu []Candidate) *Planner {
	return &Planner{menu: menu}
}

// Menu returns the candidate menu.
func (p *Planner) Menu() []Candidate {
	return p.menu
}

// Evaluate scores every feasible candidate and returns the verdict.
// Safe to call concurrently for distinct contexts.
func (p *Planner) Evaluate(ctx *DecisionContext) Decision {
	best := -1
	bestScore := 0.0
	for i := range p.menu {
		c := &p.menu[i]
		if c.Feasible != nil && !c.Feasible(ctx) {
			continue
		}
		score := c.Score(ctx)
		if best == -1 || score > bestScore {
			best = i
			bestScore = score
		}
	}
	return Decision{Entity: ctx.Entity, Candidate: best, Score: bestScore}
}

// CountVerdict updates the planner counters for one decision. Called
// from the single-threaded apply phase.
func (p *Planner) CountVerdict(d Decision) {
	p.totalEvaluated++
	if d.Candidate < 0 {
		p.totalNoChoice++
	}
}

// Resolve runs a candidate's target resolution. Returns false when
// the candidate has no resolver or declines to produce a target.
func (p *Planner) Resolve(candidate int, ctx *DecisionContext) (components.Tile, bool) {
	if candidate < 0 || candidate >= len(p.menu) {
		return components.Tile{}, false
	}
	c := &p.menu[candidate]
	if c.Resolve == nil {
		return components.Tile{}, false
	}
	return c.Resolve(ctx)
}

// CandidateKind returns the action kind of a menu entry.
func (p *Planner) CandidateKind(candidate int) (components.ActionKind, bool) {
	if candidate < 0 || candidate >= len(p.menu) {
		return 0, false
	}
	return p.menu[candidate].Kind, true
}

// CandidateByKind returns the menu index for an action kind, or -1.
func (p *Planner) CandidateByKind(kind components.ActionKind) int {
	for i := range p.menu {
		if p.menu[i].Kind == kind {
			return i
		}
	}
	return -1
}

// TotalEvaluated returns how many drained actors were evaluated.
func (p *Planner) TotalEvaluated() uint64 { return p.totalEvaluated }

// TotalNoChoice returns how many evaluations found nothing feasible.
func (p *Planner) TotalNoChoice() uint64 { return p.totalNoChoice }
