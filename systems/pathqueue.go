package systems

import (
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/meadow/components"
)

// PathReason records why a path was requested.
type PathReason uint8

const (
	PathFleeingThreat PathReason = iota
	PathMovingToFood
	PathMovingToWater
	PathMovingToMate
	PathWandering
)

// String returns the display name for a PathReason.
func (r PathReason) String() string {
	switch r {
	case PathFleeingThreat:
		return "fleeing_threat"
	case PathMovingToFood:
		return "moving_to_food"
	case PathMovingToWater:
		return "moving_to_water"
	case PathMovingToMate:
		return "moving_to_mate"
	case PathWandering:
		return "wandering"
	default:
		return "unknown"
	}
}

// DefaultPriority maps a path reason to its usual tier.
func (r PathReason) DefaultPriority() Priority {
	switch r {
	case PathFleeingThreat:
		return PriorityUrgent
	case PathMovingToFood, PathMovingToWater, PathMovingToMate:
		return PriorityNormal
	default:
		return PriorityLow
	}
}

// PathRequest is a pending path computation for one actor.
type PathRequest struct {
	Requester     ecs.Entity
	Start         components.Tile
	Goal          components.Tile
	Priority      Priority
	Reason        PathReason
	RequestedTick uint64
	AllowDiagonal bool

	seq      uint64 // matches the dedupe entry; stale after Forget
	tierTick uint64 // tick the request entered its current tier
}

type pathKey struct {
	requester ecs.Entity
	start     components.Tile
	goal      components.Tile
}

type chunkPair struct {
	from Chunk
	to   Chunk
}

type negEntry struct {
	expiresTick uint64
}

// negCacheTTL is how long a chunk pair stays known-unreachable.
const negCacheTTL = 300

// negCacheEvictInterval is how often expired entries are swept.
const negCacheEvictInterval = 100

// PathScheduler is the tiered, budget-drained queue of path requests.
// Results are delivered by attaching a PathReady or PathFailed marker
// component to the requesting actor, never through a shared table.
// Its budget is independent of the think budget: one path costs far
// more than one decision, so the two must not share a pool.
type PathScheduler struct {
	urgent []PathRequest
	normal []PathRequest
	low    []PathRequest

	pending      map[pathKey]uint64
	pendingCount map[ecs.Entity]int
	nextSeq      uint64
	timeoutTicks uint64
	chunkSize    int

	worldMap   WorldMap
	pathfinder *Pathfinder

	world     *ecs.World
	readyMap  *ecs.Map1[components.PathReady]
	failedMap *ecs.Map1[components.PathFailed]

	// negCache short-circuits goals in chunk pairs that recently
	// proved unreachable. Swept every negCacheEvictInterval ticks.
	negCache     map[chunkPair]negEntry
	negCacheHits uint64

	totalQueued    uint64
	totalComputed  uint64
	totalFailed    uint64
	totalDuplicate uint64
	totalPromoted  uint64

	// waitSamples records queue-to-delivery latency in ticks for each
	// resolved request, harvested by telemetry between drains.
	waitSamples []float64
}

// NewPathScheduler creates a path scheduler bound to a world. The
// world map may be nil; drains defer until one is set.
func NewPathScheduler(world *ecs.World, worldMap WorldMap, timeoutTicks uint64, chunkSize int) *PathScheduler {
	return &PathScheduler{
		pending:      make(map[pathKey]uint64, 256),
		pendingCount: make(map[ecs.Entity]int, 256),
		timeoutTicks: timeoutTicks,
		chunkSize:    chunkSize,
		worldMap:     worldMap,
		pathfinder:   NewPathfinder(),
		world:        world,
		readyMap:     ecs.NewMap1[components.PathReady](world),
		failedMap:    ecs.NewMap1[components.PathFailed](world),
		negCache:     make(map[chunkPair]negEntry),
	}
}

// SetWorldMap installs or replaces the walkability source.
func (s *PathScheduler) SetWorldMap(m WorldMap) {
	s.worldMap = m
}

// SetSimplify enables line-of-sight waypoint pruning on results.
func (s *PathScheduler) SetSimplify(on bool) {
	s.pathfinder.Simplify = on
}

// SetMaxIterations caps A* expansion per search. Zero derives the cap
// from the map area.
func (s *PathScheduler) SetMaxIterations(n int) {
	s.pathfinder.MaxIterations = n
}

// Enqueue adds a path request. Returns false if an identical request
// (same requester, start and goal) is already pending.
func (s *PathScheduler) Enqueue(req PathRequest) bool {
	key := pathKey{requester: req.Requester, start: req.Start, goal: req.Goal}
	if _, ok := s.pending[key]; ok {
		s.totalDuplicate++
		slog.Debug("path request dropped, identical request pending",
			"reason", req.Reason.String(), "priority", req.Priority.String())
		return false
	}
	s.nextSeq++
	req.seq = s.nextSeq
	req.tierTick = req.RequestedTick
	s.pending[key] = req.seq
	s.pendingCount[req.Requester]++
	switch req.Priority {
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

// HasPending reports whether the actor has any queued path request.
func (s *PathScheduler) HasPending(e ecs.Entity) bool {
	return s.pendingCount[e] > 0
}

// Forget drops all pending requests and dedupe entries for an actor.
// Queue entries are skipped lazily on the next drain. Used on despawn
// and on action cancellation.
func (s *PathScheduler) Forget(e ecs.Entity) {
	if s.pendingCount[e] == 0 {
		return
	}
	for key := range s.pending {
		if key.requester == e {
			delete(s.pending, key)
		}
	}
	delete(s.pendingCount, e)
}

// DrainAndCompute pops up to budget requests in tier order, computes
// each path, and attaches exactly one result marker to the requester.
// Returns the number of requests resolved. A nil world map defers the
// whole drain; requests stay queued.
func (s *PathScheduler) DrainAndCompute(budget int, tick uint64) int {
	if s.worldMap == nil {
		slog.Debug("world map absent, path drain deferred", "queued", s.Len())
		return 0
	}
	if tick%negCacheEvictInterval == 0 {
		s.evictNegCache(tick)
	}
	s.promoteStale(tick)

	computed := 0
	for computed < budget {
		req, ok := s.pop()
		if !ok {
			break
		}
		if !s.world.Alive(req.Requester) {
			continue
		}
		s.resolve(req, tick)
		computed++
	}
	return computed
}

// pop removes the next live request, urgent tier first. Stale entries
// (forgotten or superseded) are discarded without spending budget.
func (s *PathScheduler) pop() (PathRequest, bool) {
	for _, tier := range []*[]PathRequest{&s.urgent, &s.normal, &s.low} {
		for len(*tier) > 0 {
			req := (*tier)[0]
			*tier = (*tier)[1:]
			key := pathKey{requester: req.Requester, start: req.Start, goal: req.Goal}
			seq, ok := s.pending[key]
			if !ok || seq != req.seq {
				continue
			}
			delete(s.pending, key)
			if s.pendingCount[req.Requester] > 1 {
				s.pendingCount[req.Requester]--
			} else {
				delete(s.pendingCount, req.Requester)
			}
			return req, true
		}
	}
	return PathRequest{}, false
}

// resolve computes one path and attaches the result marker.
func (s *PathScheduler) resolve(req PathRequest, tick uint64) {
	s.waitSamples = append(s.waitSamples, float64(tick-req.RequestedTick))
	pair := chunkPair{
		from: ChunkOf(req.Start, s.chunkSize),
		to:   ChunkOf(req.Goal, s.chunkSize),
	}
	if entry, ok := s.negCache[pair]; ok && tick < entry.expiresTick {
		s.negCacheHits++
		s.attachFailed(req.Requester, components.PathFailKnownUnreachable, tick)
		return
	}

	waypoints, cost, reason := s.pathfinder.FindPath(s.worldMap, req.Start, req.Goal, req.AllowDiagonal)
	if waypoints == nil {
		if reason == components.PathFailUnreachable {
			s.negCache[pair] = negEntry{expiresTick: tick + negCacheTTL}
		}
		s.attachFailed(req.Requester, reason, tick)
		return
	}
	s.attachReady(req.Requester, waypoints, cost, tick)
}

// attachReady replaces any stale marker with a fresh PathReady.
func (s *PathScheduler) attachReady(e ecs.Entity, waypoints []components.Tile, cost float64, tick uint64) {
	s.ClearMarkers(e)
	s.readyMap.Add(e, &components.PathReady{Waypoints: waypoints, Cost: cost, ComputedTick: tick})
	s.totalComputed++
}

// attachFailed replaces any stale marker with a fresh PathFailed.
func (s *PathScheduler) attachFailed(e ecs.Entity, reason components.PathFailReason, tick uint64) {
	s.ClearMarkers(e)
	s.failedMap.Add(e, &components.PathFailed{Reason: reason, ComputedTick: tick})
	s.totalFailed++
}

// ClearMarkers removes any attached result markers from an actor.
// Called before attaching a result and on cancellation, so a late
// result can never be mistaken for a newer request's answer.
func (s *PathScheduler) ClearMarkers(e ecs.Entity) {
	if s.readyMap.HasAll(e) {
		s.readyMap.Remove(e)
	}
	if s.failedMap.HasAll(e) {
		s.failedMap.Remove(e)
	}
}

// promoteStale moves requests that waited longer than the timeout up
// one tier. Requests are never dropped for waiting too long.
func (s *PathScheduler) promoteStale(tick uint64) {
	if s.timeoutTicks == 0 {
		return
	}
	s.normal, s.urgent = s.promoteTier(s.normal, s.urgent, PriorityUrgent, tick)
	s.low, s.normal = s.promoteTier(s.low, s.normal, PriorityNormal, tick)
}

func (s *PathScheduler) promoteTier(from, to []PathRequest, priority Priority, tick uint64) (src, dst []PathRequest) {
	kept := from[:0]
	for _, req := range from {
		key := pathKey{requester: req.Requester, start: req.Start, goal: req.Goal}
		seq, ok := s.pending[key]
		if !ok || seq != req.seq {
			continue // stale, drop here instead of at drain
		}
		if tick-req.tierTick > s.timeoutTicks {
			req.Priority = priority
			req.tierTick = tick
			to = append(to, req)
			s.totalPromoted++
			continue
		}
		kept = append(kept, req)
	}
	return kept, to
}

// QueueSizes returns the number of live requests per tier.
func (s *PathScheduler) QueueSizes() (urgent, normal, low int) {
	return s.countLive(s.urgent), s.countLive(s.normal), s.countLive(s.low)
}

func (s *PathScheduler) countLive(tier []PathRequest) int {
	n := 0
	for _, req := range tier {
		key := pathKey{requester: req.Requester, start: req.Start, goal: req.Goal}
		if seq, ok := s.pending[key]; ok && seq == req.seq {
			n++
		}
	}
	return n
}

// Len returns the total number of live queued requests.
func (s *PathScheduler) Len() int {
	return len(s.pending)
}

// TotalQueued returns the number of requests accepted since start.
func (s *PathScheduler) TotalQueued() uint64 { return s.totalQueued }

// TotalComputed returns the number of successful computations.
func (s *PathScheduler) TotalComputed() uint64 { return s.totalComputed }

// TotalFailed returns the number of failed computations.
func (s *PathScheduler) TotalFailed() uint64 { return s.totalFailed }

// TotalDuplicate returns the number of duplicate requests dropped.
func (s *PathScheduler) TotalDuplicate() uint64 { return s.totalDuplicate }

// TotalPromoted returns the number of anti-starvation promotions.
func (s *PathScheduler) TotalPromoted() uint64 { return s.totalPromoted }

// NegCacheHits returns how many requests the known-unreachable cache
// short-circuited.
func (s *PathScheduler) NegCacheHits() uint64 { return s.negCacheHits }

// TakeWaitSamples returns the wait-time samples accumulated since the
// last call and resets the buffer.
func (s *PathScheduler) TakeWaitSamples() []float64 {
	out := s.waitSamples
	s.waitSamples = nil
	return out
}

func (s *PathScheduler) evictNegCache(tick uint64) {
	for pair, entry := range s.negCache {
		if tick >= entry.expiresTick {
			delete(s.negCache, pair)
		}
	}
}
