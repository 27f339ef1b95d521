package game

import (
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/meadow/components"
	"github.com/pthm-cable/meadow/config"
	"github.com/pthm-cable/meadow/systems"
)

// Demo action kinds. The schedulers never interpret these; only the
// candidate callbacks and the outcome handler below do.
const (
	ActionDrink components.ActionKind = iota + 1
	ActionForage
	ActionFlee
	ActionRest
	ActionWander
)

// fleeDistance is how many tiles an actor tries to put between itself
// and the nearest predator.
const fleeDistance = 10

// contentState holds the demo content the candidate menu closes over:
// scattered food and water sites plus the tuning knobs. Score and
// Feasible callbacks may run on worker goroutines, so everything they
// touch here is immutable after construction.
type contentState struct {
	food  []components.Tile
	water []components.Tile

	worldMap     *systems.GridMap
	wanderRadius int
	threatRadius float64
	recover      float32
}

// newContent scatters resource sites over walkable tiles.
func newContent(cfg *config.Config, worldMap *systems.GridMap, rng *rand.Rand) *contentState {
	c := &contentState{
		worldMap:     worldMap,
		wanderRadius: cfg.Population.WanderRadius,
		threatRadius: cfg.Triggers.ThreatRadius,
		recover:      float32(cfg.Needs.RecoverAmount),
	}
	for i := 0; i < cfg.Population.ResourceCount; i++ {
		if t, ok := randomWalkableTile(worldMap, rng); ok {
			c.food = append(c.food, t)
		}
		if t, ok := randomWalkableTile(worldMap, rng); ok {
			c.water = append(c.water, t)
		}
	}
	return c
}

// menu builds the candidate list the planner scores. Order is
// irrelevant; the planner picks by score alone.
func (c *contentState) menu() []systems.Candidate {
	return []systems.Candidate{
		{
			Kind:       ActionDrink,
			PathReason: systems.PathMovingToWater,
			Score: func(ctx *systems.DecisionContext) float64 {
				return float64(ctx.Needs.Thirst) / 100
			},
			Feasible: func(ctx *systems.DecisionContext) bool {
				return len(c.water) > 0 && ctx.Needs.Thirst > 25
			},
			Resolve: func(ctx *systems.DecisionContext) (components.Tile, bool) {
				return nthNearestSite(c.water, ctx.Tile, ctx.Retry)
			},
		},
		{
			Kind:       ActionForage,
			PathReason: systems.PathMovingToFood,
			Score: func(ctx *systems.DecisionContext) float64 {
				return float64(ctx.Needs.Hunger) / 100
			},
			Feasible: func(ctx *systems.DecisionContext) bool {
				return len(c.food) > 0 && ctx.Needs.Hunger > 25
			},
			Resolve: func(ctx *systems.DecisionContext) (components.Tile, bool) {
				return nthNearestSite(c.food, ctx.Tile, ctx.Retry)
			},
		},
		{
			Kind:       ActionFlee,
			PathReason: systems.PathFleeingThreat,
			Score: func(ctx *systems.DecisionContext) float64 {
				// Outscores everything else whenever a predator is close.
				return 1.5
			},
			Feasible: func(ctx *systems.DecisionContext) bool {
				_, ok := c.nearestPredator(ctx)
				return ok
			},
			Resolve: c.resolveFlee,
		},
		{
			Kind:       ActionRest,
			PathReason: systems.PathWandering,
			Score: func(ctx *systems.DecisionContext) float64 {
				return float64(100-ctx.Needs.Energy) / 100 * 0.8
			},
			Feasible: func(ctx *systems.DecisionContext) bool {
				return ctx.Needs.Energy < 30
			},
			Resolve: func(ctx *systems.DecisionContext) (components.Tile, bool) {
				// Rest in place; a same-tile goal completes in one step.
				return ctx.Tile, true
			},
		},
		{
			Kind:       ActionWander,
			PathReason: systems.PathWandering,
			Score: func(ctx *systems.DecisionContext) float64 {
				// Baseline so an actor with nothing pressing still moves.
				return 0.05
			},
			Resolve: c.resolveWander,
		},
	}
}

// nearestPredator finds the closest predator within the threat radius.
func (c *contentState) nearestPredator(ctx *systems.DecisionContext) (components.Tile, bool) {
	if ctx.Index == nil || c.threatRadius <= 0 {
		return components.Tile{}, false
	}
	predator := components.CategoryPredator
	var best components.Tile
	bestDist := c.threatRadius + 1
	for _, e := range ctx.Index.QueryRadius(ctx.Tile, c.threatRadius, &predator) {
		if e == ctx.Entity {
			continue
		}
		t, ok := ctx.Index.TileOf(e)
		if !ok {
			continue
		}
		if d := ctx.Tile.DistanceTo(t); d < bestDist {
			best = t
			bestDist = d
		}
	}
	return best, bestDist <= c.threatRadius
}

// resolveFlee targets a walkable tile directly away from the nearest
// predator.
func (c *contentState) resolveFlee(ctx *systems.DecisionContext) (components.Tile, bool) {
	threat, ok := c.nearestPredator(ctx)
	if !ok {
		return components.Tile{}, false
	}
	dx := sign(ctx.Tile.X - threat.X)
	dy := sign(ctx.Tile.Y - threat.Y)
	if dx == 0 && dy == 0 {
		dx = 1 // standing on the predator's tile, pick any direction
	}
	goal := components.Tile{
		X: ctx.Tile.X + dx*(fleeDistance+ctx.Retry*fleeDistance/2),
		Y: ctx.Tile.Y + dy*(fleeDistance+ctx.Retry*fleeDistance/2),
	}
	goal = clampToMap(c.worldMap, goal)
	return findWalkableNear(c.worldMap, goal, fleeDistance)
}

// resolveWander picks a random walkable tile near the actor, widening
// the roam on retries.
func (c *contentState) resolveWander(ctx *systems.DecisionContext) (components.Tile, bool) {
	if ctx.Rng == nil {
		return components.Tile{}, false
	}
	radius := c.wanderRadius * (1 + ctx.Retry)
	for i := 0; i < 8; i++ {
		goal := components.Tile{
			X: ctx.Tile.X + ctx.Rng.Intn(2*radius+1) - radius,
			Y: ctx.Tile.Y + ctx.Rng.Intn(2*radius+1) - radius,
		}
		goal = clampToMap(c.worldMap, goal)
		if c.worldMap.IsWalkable(goal) {
			return goal, true
		}
	}
	return components.Tile{}, false
}

// applyOutcomes applies completed-action effects to needs. Failures
// have no effect; the re-think trigger handles them.
func (c *contentState) applyOutcomes(outcomes []systems.ActionOutcome, needsMap *ecs.Map1[components.Needs]) {
	for _, o := range outcomes {
		if o.State != components.ActionCompleted || !needsMap.HasAll(o.Entity) {
			continue
		}
		needs := needsMap.Get(o.Entity)
		switch o.Kind {
		case ActionDrink:
			needs.Thirst = clampNeed(needs.Thirst - c.recover)
		case ActionForage:
			needs.Hunger = clampNeed(needs.Hunger - c.recover)
		case ActionRest:
			needs.Energy = clampNeed(needs.Energy + c.recover)
		}
	}
}

// nthNearestSite returns the n-th closest site to the tile, so retry
// resolution widens to the next best site instead of repeating a goal
// that just failed.
func nthNearestSite(sites []components.Tile, from components.Tile, n int) (components.Tile, bool) {
	if len(sites) == 0 {
		return components.Tile{}, false
	}
	if n >= len(sites) {
		n = len(sites) - 1
	}
	// Selection by repeated scan; site lists are small.
	picked := make(map[int]bool, n)
	for round := 0; ; round++ {
		best := -1
		bestDist := 0.0
		for i, s := range sites {
			if picked[i] {
				continue
			}
			d := from.DistanceTo(s)
			if best == -1 || d < bestDist {
				best = i
				bestDist = d
			}
		}
		if round == n {
			return sites[best], true
		}
		picked[best] = true
	}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func clampToMap(m *systems.GridMap, t components.Tile) components.Tile {
	w, h := m.Bounds()
	if t.X < 0 {
		t.X = 0
	}
	if t.X >= w {
		t.X = w - 1
	}
	if t.Y < 0 {
		t.Y = 0
	}
	if t.Y >= h {
		t.Y = h - 1
	}
	return t
}
