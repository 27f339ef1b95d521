package systems

import (
	"container/heap"
	"math"

	"github.com/pthm-cable/meadow/components"
)

// Pathfinder computes tile paths over a WorldMap with A*. Search
// state is reused between calls, so a Pathfinder is not safe for
// concurrent use; the path scheduler owns one and drains serially.
type Pathfinder struct {
	// MaxIterations caps the search. Zero means the map area.
	MaxIterations int

	// Simplify prunes collinear waypoints via line-of-sight checks.
	// Off by default: the executor advances one waypoint per tick, so
	// pruning changes per-tick travel distance.
	Simplify bool

	openHeap *tileHeap
	closed   map[components.Tile]struct{}
	cameFrom map[components.Tile]components.Tile
	gScore   map[components.Tile]float64
}

type tileNode struct {
	tile  components.Tile
	f     float64
	index int
}

// tileHeap implements heap.Interface for the A* open set.
type tileHeap []*tileNode

func (h tileHeap) Len() int           { return len(h) }
func (h tileHeap) Less(i, j int) bool { return h[i].f < h[j].f }
func (h tileHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *tileHeap) Push(x any) {
	n := x.(*tileNode)
	n.index = len(*h)
	*h = append(*h, n)
}

func (h *tileHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*h = old[0 : n-1]
	return node
}

// NewPathfinder creates a pathfinder with reusable search state.
func NewPathfinder() *Pathfinder {
	return &Pathfinder{
		openHeap: &tileHeap{},
		closed:   make(map[components.Tile]struct{}, 256),
		cameFrom: make(map[components.Tile]components.Tile, 256),
		gScore:   make(map[components.Tile]float64, 256),
	}
}

// FindPath computes a path from start to goal. On success the
// returned waypoints exclude the start tile and end on the goal. On
// failure the path is nil and the reason explains why.
func (p *Pathfinder) FindPath(m WorldMap, start, goal components.Tile, allowDiagonal bool) ([]components.Tile, float64, components.PathFailReason) {
	if !m.IsWalkable(start) {
		nearest, ok := p.nearestOpen(m, start)
		if !ok {
			return nil, 0, components.PathFailInvalidStart
		}
		start = nearest
	}
	if !m.IsWalkable(goal) {
		nearest, ok := p.nearestOpen(m, goal)
		if !ok {
			return nil, 0, components.PathFailUnreachable
		}
		goal = nearest
	}
	if start == goal {
		return []components.Tile{goal}, 0, 0
	}

	p.reset()

	p.gScore[start] = 0
	heap.Push(p.openHeap, &tileNode{tile: start, f: heuristic(start, goal)})

	width, height := m.Bounds()
	maxIterations := p.MaxIterations
	if maxIterations <= 0 {
		maxIterations = width * height
	}

	iterations := 0
	for p.openHeap.Len() > 0 {
		if iterations >= maxIterations {
			return nil, 0, components.PathFailIterationLimit
		}
		iterations++

		current := heap.Pop(p.openHeap).(*tileNode).tile
		if current == goal {
			path := p.reconstructPath(start, goal)
			if p.Simplify {
				path = p.simplifyPath(m, path)
			}
			return path, p.gScore[goal], 0
		}
		p.closed[current] = struct{}{}

		neighborCount := 4
		if allowDiagonal {
			neighborCount = 8
		}
		for i := 0; i < neighborCount; i++ {
			d := neighborOffsets[i]
			next := components.Tile{X: current.X + d.X, Y: current.Y + d.Y}
			if !m.IsWalkable(next) {
				continue
			}
			// Diagonal moves require both adjacent cardinals open so
			// the path never cuts a blocked corner.
			if i >= 4 {
				if !m.IsWalkable(components.Tile{X: current.X + d.X, Y: current.Y}) ||
					!m.IsWalkable(components.Tile{X: current.X, Y: current.Y + d.Y}) {
					continue
				}
			}
			if _, ok := p.closed[next]; ok {
				continue
			}

			moveCost := 1.0
			if i >= 4 {
				moveCost = math.Sqrt2
			}
			tentativeG := p.gScore[current] + moveCost*float64(m.Cost(next))

			existingG, known := p.gScore[next]
			if known && tentativeG >= existingG {
				continue
			}
			p.cameFrom[next] = current
			p.gScore[next] = tentativeG
			if !known {
				heap.Push(p.openHeap, &tileNode{tile: next, f: tentativeG + heuristic(next, goal)})
			}
		}
	}

	return nil, 0, components.PathFailUnreachable
}

// neighborOffsets lists cardinals first so the 4-connected prefix can
// be used when diagonals are disallowed.
var neighborOffsets = [8]components.Tile{
	{X: -1, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: -1}, {X: 0, Y: 1},
	{X: -1, Y: -1}, {X: 1, Y: -1}, {X: -1, Y: 1}, {X: 1, Y: 1},
}

func (p *Pathfinder) reset() {
	*p.openHeap = (*p.openHeap)[:0]
	clear(p.closed)
	clear(p.cameFrom)
	clear(p.gScore)
}

// heuristic is the Euclidean distance, admissible for unit-cost
// 8-connected movement.
func heuristic(a, b components.Tile) float64 {
	return a.DistanceTo(b)
}

// reconstructPath walks cameFrom from goal back to start and reverses.
// The start tile itself is omitted.
func (p *Pathfinder) reconstructPath(start, goal components.Tile) []components.Tile {
	var rev []components.Tile
	current := goal
	for current != start {
		rev = append(rev, current)
		next, ok := p.cameFrom[current]
		if !ok {
			break
		}
		current = next
	}
	path := make([]components.Tile, len(rev))
	for i := range rev {
		path[i] = rev[len(rev)-1-i]
	}
	return path
}

// simplifyPath removes waypoints that a straight line can skip.
func (p *Pathfinder) simplifyPath(m WorldMap, path []components.Tile) []components.Tile {
	if len(path) <= 2 {
		return path
	}
	simplified := make([]components.Tile, 0, len(path))
	simplified = append(simplified, path[0])
	anchor := path[0]
	for i := 1; i < len(path)-1; i++ {
		if !hasLineOfSight(m, anchor, path[i+1]) {
			simplified = append(simplified, path[i])
			anchor = path[i]
		}
	}
	simplified = append(simplified, path[len(path)-1])
	return simplified
}

// hasLineOfSight samples tiles along the segment at half-tile steps.
func hasLineOfSight(m WorldMap, from, to components.Tile) bool {
	dx := float64(to.X - from.X)
	dy := float64(to.Y - from.Y)
	dist := math.Sqrt(dx*dx + dy*dy)
	if dist < 0.01 {
		return true
	}
	steps := int(dist/0.5) + 1
	for i := 0; i <= steps; i++ {
		t := float64(i) * 0.5 / dist
		if t > 1 {
			t = 1
		}
		check := components.Tile{
			X: int(math.Round(float64(from.X) + dx*t)),
			Y: int(math.Round(float64(from.Y) + dy*t)),
		}
		if !m.IsWalkable(check) {
			return false
		}
	}
	return true
}

// nearestOpen spirals outward looking for a walkable tile near t.
func (p *Pathfinder) nearestOpen(m WorldMap, t components.Tile) (components.Tile, bool) {
	for radius := 1; radius < 10; radius++ {
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if abs(dx) != radius && abs(dy) != radius {
					continue
				}
				candidate := components.Tile{X: t.X + dx, Y: t.Y + dy}
				if m.IsWalkable(candidate) {
					return candidate, true
				}
			}
		}
	}
	return components.Tile{}, false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
