package systems

import (
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/meadow/components"
)

// ActionOutcome reports a terminal action to the trigger layer.
type ActionOutcome struct {
	Entity ecs.Entity
	Kind   components.ActionKind
	State  components.ActionState
	Ticks  uint64
}

// Executor advances every active action by exactly one step per tick.
// An actor waiting for a path is plain data in AwaitingPath state; no
// goroutine blocks on the result. Terminal records are removed the
// same tick and reported as outcomes.
type Executor struct {
	world      *ecs.World
	planner    *Planner
	paths      *PathScheduler
	index      *ChunkIndex
	maxRetries int

	actionFilter *ecs.Filter1[components.ActionRecord]
	readyFilter  *ecs.Filter1[components.PathReady]
	failedFilter *ecs.Filter1[components.PathFailed]

	actionMap *ecs.Map1[components.ActionRecord]
	posMap    *ecs.Map1[components.Position]
	needsMap  *ecs.Map1[components.Needs]
	readyMap  *ecs.Map1[components.PathReady]
	failedMap *ecs.Map1[components.PathFailed]

	// scratch, reused every tick
	active   []ecs.Entity
	orphans  []ecs.Entity
	terminal []ecs.Entity
	outcomes []ActionOutcome

	totalCompleted uint64
	totalFailed    uint64
	totalCancelled uint64
	totalSteps     uint64
	totalOrphans   uint64
}

// NewExecutor creates an executor bound to a world and its schedulers.
func NewExecutor(world *ecs.World, planner *Planner, paths *PathScheduler, index *ChunkIndex, maxRetries int) *Executor {
	return &Executor{
		world:        world,
		planner:      planner,
		paths:        paths,
		index:        index,
		maxRetries:   maxRetries,
		actionFilter: ecs.NewFilter1[components.ActionRecord](world),
		readyFilter:  ecs.NewFilter1[components.PathReady](world),
		failedFilter: ecs.NewFilter1[components.PathFailed](world),
		actionMap:    ecs.NewMap1[components.ActionRecord](world),
		posMap:       ecs.NewMap1[components.Position](world),
		needsMap:     ecs.NewMap1[components.Needs](world),
		readyMap:     ecs.NewMap1[components.PathReady](world),
		failedMap:    ecs.NewMap1[components.PathFailed](world),
	}
}

// Start creates or replaces the actor's action record. An existing
// action is cancelled first so its pending path request and markers
// cannot leak into the new one.
func (ex *Executor) Start(e ecs.Entity, kind components.ActionKind, tick uint64) {
	if ex.actionMap.HasAll(e) {
		ex.Cancel(e)
	} else {
		ex.paths.ClearMarkers(e)
	}
	ex.actionMap.Add(e, &components.ActionRecord{
		Kind:        kind,
		State:       components.ActionNeedsTarget,
		StartedTick: tick,
	})
}

// Cancel discards the actor's action, its pending path request and
// any attached result marker, so a late path result cannot corrupt a
// newer action. Synchronous: visible to every later stage this tick.
func (ex *Executor) Cancel(e ecs.Entity) {
	if !ex.actionMap.HasAll(e) {
		return
	}
	ex.paths.Forget(e)
	ex.paths.ClearMarkers(e)
	ex.actionMap.Remove(e)
	ex.totalCancelled++
}

// Active reports whether the actor has an action in flight.
func (ex *Executor) Active(e ecs.Entity) bool {
	return ex.actionMap.HasAll(e)
}

// Advance runs one step of every active action and returns the
// terminal outcomes. The returned slice is reused on the next call.
func (ex *Executor) Advance(tick uint64, rng *rand.Rand) []ActionOutcome {
	ex.outcomes = ex.outcomes[:0]
	ex.terminal = ex.terminal[:0]

	ex.discardOrphanMarkers()

	// Collect first: the world is locked during query iteration and
	// advancing mutates component structure.
	ex.active = ex.active[:0]
	query := ex.actionFilter.Query()
	for query.Next() {
		ex.active = append(ex.active, query.Entity())
	}

	for _, e := range ex.active {
		ex.step(e, tick, rng)
	}

	// Terminal records are removed the same tick they are observed.
	for _, e := range ex.terminal {
		ex.actionMap.Remove(e)
	}
	return ex.outcomes
}

// step advances a single action by one state transition at most.
func (ex *Executor) step(e ecs.Entity, tick uint64, rng *rand.Rand) {
	if !ex.actionMap.HasAll(e) {
		return
	}
	rec := ex.actionMap.Get(e)
	ex.totalSteps++

	switch rec.State {
	case components.ActionNeedsTarget:
		ex.resolveTarget(e, rec, tick, rng)
	case components.ActionNeedsPath:
		ex.requestPath(e, rec, tick)
	case components.ActionAwaitingPath:
		ex.consumeMarker(e, tick, rng)
	case components.ActionAdvancing:
		ex.advanceWaypoint(e, rec, tick)
	default:
		// Terminal state left over from a consumer that did not
		// remove the record; finish it here.
		ex.finish(e, rec, tick)
	}
}

// resolveTarget asks the content layer for a concrete goal tile.
func (ex *Executor) resolveTarget(e ecs.Entity, rec *components.ActionRecord, tick uint64, rng *rand.Rand) {
	candidate := ex.planner.CandidateByKind(rec.Kind)
	if candidate < 0 {
		slog.Warn("action kind has no menu candidate", "kind", rec.Kind, "state", rec.State.String())
		rec.State = components.ActionFailed
		ex.finish(e, rec, tick)
		return
	}
	ctx := ex.buildContext(e, tick, rng)
	ctx.Retry = int(rec.RetryCount)
	target, ok := ex.planner.Resolve(candidate, ctx)
	if !ok {
		rec.State = components.ActionFailed
		ex.finish(e, rec, tick)
		return
	}
	rec.Target = target
	rec.State = components.ActionNeedsPath
}

// requestPath enqueues a path request and suspends the action.
func (ex *Executor) requestPath(e ecs.Entity, rec *components.ActionRecord, tick uint64) {
	if !ex.posMap.HasAll(e) {
		rec.State = components.ActionFailed
		ex.finish(e, rec, tick)
		return
	}
	pos := ex.posMap.Get(e)
	if pos.Tile == rec.Target {
		rec.State = components.ActionCompleted
		ex.finish(e, rec, tick)
		return
	}
	reason := PathWandering
	if c := ex.planner.CandidateByKind(rec.Kind); c >= 0 {
		reason = ex.planner.Menu()[c].PathReason
	}
	ex.paths.Enqueue(PathRequest{
		Requester:     e,
		Start:         pos.Tile,
		Goal:          rec.Target,
		Priority:      reason.DefaultPriority(),
		Reason:        reason,
		RequestedTick: tick,
		AllowDiagonal: true,
	})
	rec.State = components.ActionAwaitingPath
}

// consumeMarker picks up the path result delivered since the last
// tick. No marker means the request is still queued; the actor is
// simply skipped until its state changes.
func (ex *Executor) consumeMarker(e ecs.Entity, tick uint64, rng *rand.Rand) {
	if ex.readyMap.HasAll(e) {
		ready := *ex.readyMap.Get(e)
		ex.readyMap.Remove(e)
		rec := ex.actionMap.Get(e)
		rec.Path = ready.Waypoints
		rec.Cursor = 0
		rec.State = components.ActionAdvancing
		return
	}
	if ex.failedMap.HasAll(e) {
		failed := *ex.failedMap.Get(e)
		ex.failedMap.Remove(e)
		rec := ex.actionMap.Get(e)
		if int(rec.RetryCount) < ex.maxRetries {
			rec.RetryCount++
			slog.Debug("path failed, retrying with widened search",
				"reason", failed.Reason.String(), "retry", rec.RetryCount)
			ex.retryTarget(e, rec, tick, rng)
			return
		}
		rec.State = components.ActionFailed
		ex.finish(e, rec, tick)
	}
}

// retryTarget re-resolves the goal with a widened strategy and moves
// straight back to NeedsPath, so the retry costs one tick, not two.
func (ex *Executor) retryTarget(e ecs.Entity, rec *components.ActionRecord, tick uint64, rng *rand.Rand) {
	candidate := ex.planner.CandidateByKind(rec.Kind)
	if candidate >= 0 {
		ctx := ex.buildContext(e, tick, rng)
		ctx.Retry = int(rec.RetryCount)
		if target, ok := ex.planner.Resolve(candidate, ctx); ok {
			rec.Target = target
		}
	}
	rec.State = components.ActionNeedsPath
}

// advanceWaypoint consumes exactly one waypoint, moving the actor and
// keeping the spatial index current.
func (ex *Executor) advanceWaypoint(e ecs.Entity, rec *components.ActionRecord, tick uint64) {
	if rec.Cursor >= len(rec.Path) {
		rec.State = components.ActionCompleted
		ex.finish(e, rec, tick)
		return
	}
	next := rec.Path[rec.Cursor]
	rec.Cursor++
	if ex.posMap.HasAll(e) {
		ex.posMap.Get(e).Tile = next
		ex.index.Update(e, next)
	}
	if rec.Cursor >= len(rec.Path) {
		rec.State = components.ActionCompleted
		ex.finish(e, rec, tick)
	}
}

// finish records a terminal outcome and queues the record for removal.
func (ex *Executor) finish(e ecs.Entity, rec *components.ActionRecord, tick uint64) {
	if rec.State == components.ActionCompleted {
		ex.totalCompleted++
	} else {
		ex.totalFailed++
	}
	ex.outcomes = append(ex.outcomes, ActionOutcome{
		Entity: e,
		Kind:   rec.Kind,
		State:  rec.State,
		Ticks:  tick - rec.StartedTick,
	})
	ex.terminal = append(ex.terminal, e)
}

// discardOrphanMarkers removes result markers whose actor has no
// action awaiting a path. A desynchronized marker is logged and
// dropped, never allowed to halt the population.
func (ex *Executor) discardOrphanMarkers() {
	ex.orphans = ex.orphans[:0]

	query := ex.readyFilter.Query()
	for query.Next() {
		e := query.Entity()
		if !ex.actionMap.HasAll(e) || ex.actionMap.Get(e).State != components.ActionAwaitingPath {
			ex.orphans = append(ex.orphans, e)
		}
	}
	for _, e := range ex.orphans {
		slog.Warn("discarding orphan path result", "marker", "path_ready")
		ex.readyMap.Remove(e)
		ex.totalOrphans++
	}

	ex.orphans = ex.orphans[:0]
	failedQuery := ex.failedFilter.Query()
	for failedQuery.Next() {
		e := failedQuery.Entity()
		if !ex.actionMap.HasAll(e) || ex.actionMap.Get(e).State != components.ActionAwaitingPath {
			ex.orphans = append(ex.orphans, e)
		}
	}
	for _, e := range ex.orphans {
		slog.Warn("discarding orphan path result", "marker", "path_failed")
		ex.failedMap.Remove(e)
		ex.totalOrphans++
	}
}

// buildContext assembles the callback context for an actor.
func (ex *Executor) buildContext(e ecs.Entity, tick uint64, rng *rand.Rand) *DecisionContext {
	ctx := &DecisionContext{
		Entity: e,
		Tick:   tick,
		Index:  ex.index,
		Map:    ex.paths.worldMap,
		Rng:    rng,
	}
	if ex.posMap.HasAll(e) {
		ctx.Tile = ex.posMap.Get(e).Tile
	}
	if ex.needsMap.HasAll(e) {
		ctx.Needs = *ex.needsMap.Get(e)
	}
	return ctx
}

// TotalCompleted returns the number of actions that completed.
func (ex *Executor) TotalCompleted() uint64 { return ex.totalCompleted }

// TotalFailed returns the number of actions that failed.
func (ex *Executor) TotalFailed() uint64 { return ex.totalFailed }

// TotalCancelled returns the number of actions cancelled.
func (ex *Executor) TotalCancelled() uint64 { return ex.totalCancelled }

// TotalSteps returns the number of state machine steps taken.
func (ex *Executor) TotalSteps() uint64 { return ex.totalSteps }

// TotalOrphans returns the number of orphan markers discarded.
func (ex *Executor) TotalOrphans() uint64 { return ex.totalOrphans }
