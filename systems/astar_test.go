package systems

import (
	"testing"

	"github.com/pthm-cable/meadow/components"
)

// TestFindPathStraightLine verifies A* on an open grid.
func TestFindPathStraightLine(t *testing.T) {
	m := NewGridMap(20, 20)
	p := NewPathfinder()

	start := components.Tile{X: 1, Y: 1}
	goal := components.Tile{X: 10, Y: 1}
	path, cost, _ := p.FindPath(m, start, goal, true)
	if path == nil {
		t.Fatal("expected path, got nil")
	}
	if path[len(path)-1] != goal {
		t.Errorf("path ends at %v, want %v", path[len(path)-1], goal)
	}
	if len(path) != 9 {
		t.Errorf("path has %d waypoints, want 9 (start excluded)", len(path))
	}
	if cost != 9 {
		t.Errorf("path cost %f, want 9", cost)
	}
}

// TestFindPathAroundWall verifies the path detours around a wall with
// a single gap and every waypoint stays walkable.
func TestFindPathAroundWall(t *testing.T) {
	m := ParseGridMap([]string{
		"..........",
		"....#.....",
		"....#.....",
		"....#.....",
		"....#.....",
		"..........",
	})
	p := NewPathfinder()

	path, _, _ := p.FindPath(m, components.Tile{X: 1, Y: 2}, components.Tile{X: 8, Y: 2}, true)
	if path == nil {
		t.Fatal("expected path around wall, got nil")
	}
	for i, wp := range path {
		if !m.IsWalkable(wp) {
			t.Errorf("waypoint %d at %v is blocked", i, wp)
		}
	}
	// The detour must pass below the wall.
	sawDetour := false
	for _, wp := range path {
		if wp.Y == 5 {
			sawDetour = true
		}
	}
	if !sawDetour {
		t.Error("path did not detour through the open row")
	}
}

// TestFindPathUnreachable verifies a fully walled goal reports
// unreachable rather than looping or panicking.
func TestFindPathUnreachable(t *testing.T) {
	m := ParseGridMap([]string{
		"..........",
		"...###....",
		"...#.#....",
		"...###....",
		"..........",
	})
	p := NewPathfinder()

	path, _, reason := p.FindPath(m, components.Tile{X: 0, Y: 0}, components.Tile{X: 4, Y: 2}, true)
	if path != nil {
		t.Fatalf("expected no path into sealed cell, got %d waypoints", len(path))
	}
	if reason != components.PathFailUnreachable {
		t.Errorf("failure reason %v, want %v", reason, components.PathFailUnreachable)
	}
}

// TestFindPathDiagonalShortcut verifies 8-connected movement takes
// the diagonal and that disallowing diagonals falls back to a
// strictly cardinal, more expensive route.
func TestFindPathDiagonalShortcut(t *testing.T) {
	m := NewGridMap(12, 12)
	p := NewPathfinder()

	start := components.Tile{X: 0, Y: 0}
	goal := components.Tile{X: 5, Y: 5}

	diagPath, diagCost, _ := p.FindPath(m, start, goal, true)
	if diagPath == nil {
		t.Fatal("expected diagonal path, got nil")
	}
	if len(diagPath) != 5 {
		t.Errorf("diagonal path has %d waypoints, want 5", len(diagPath))
	}

	cardPath, cardCost, _ := p.FindPath(m, start, goal, false)
	if cardPath == nil {
		t.Fatal("expected cardinal path, got nil")
	}
	if len(cardPath) != 10 {
		t.Errorf("cardinal path has %d waypoints, want 10", len(cardPath))
	}
	prev := start
	for _, wp := range cardPath {
		if wp.X != prev.X && wp.Y != prev.Y {
			t.Errorf("cardinal-only path stepped diagonally: %v -> %v", prev, wp)
		}
		prev = wp
	}
	if diagCost >= cardCost {
		t.Errorf("diagonal cost %f not cheaper than cardinal cost %f", diagCost, cardCost)
	}
}

// TestFindPathNoCornerCutting verifies diagonal steps never squeeze
// between two blocked orthogonal tiles.
func TestFindPathNoCornerCutting(t *testing.T) {
	m := ParseGridMap([]string{
		"..#.",
		".#..",
		"....",
	})
	p := NewPathfinder()

	path, _, _ := p.FindPath(m, components.Tile{X: 0, Y: 0}, components.Tile{X: 3, Y: 2}, true)
	if path == nil {
		t.Fatal("expected path, got nil")
	}

	prev := components.Tile{X: 0, Y: 0}
	for _, wp := range path {
		dx := wp.X - prev.X
		dy := wp.Y - prev.Y
		if dx != 0 && dy != 0 {
			if !m.IsWalkable(components.Tile{X: prev.X + dx, Y: prev.Y}) ||
				!m.IsWalkable(components.Tile{X: prev.X, Y: prev.Y + dy}) {
				t.Errorf("step %v -> %v cuts a blocked corner", prev, wp)
			}
		}
		prev = wp
	}
}

// TestFindPathRespectsCost verifies the search steps around a muddy
// tile when the diagonal detour is cheaper than wading through.
func TestFindPathRespectsCost(t *testing.T) {
	// Straight through the mud costs 3+1; the diagonal detour over
	// open tiles costs 2*sqrt(2).
	m := ParseGridMap([]string{
		"...",
		".~.",
		"...",
	})
	p := NewPathfinder()

	path, cost, _ := p.FindPath(m, components.Tile{X: 0, Y: 1}, components.Tile{X: 2, Y: 1}, true)
	if path == nil {
		t.Fatal("expected path, got nil")
	}
	for _, wp := range path {
		if m.Cost(wp) > 1 {
			t.Errorf("path crossed mud at %v despite a cheaper detour", wp)
		}
	}
	if cost > 3 {
		t.Errorf("path cost %f, want the 2*sqrt(2) detour", cost)
	}
}

// TestFindPathSameTile verifies the degenerate start == goal case.
func TestFindPathSameTile(t *testing.T) {
	m := NewGridMap(5, 5)
	p := NewPathfinder()

	tile := components.Tile{X: 2, Y: 2}
	path, cost, _ := p.FindPath(m, tile, tile, true)
	if len(path) != 1 || path[0] != tile {
		t.Errorf("path = %v, want just the goal tile", path)
	}
	if cost != 0 {
		t.Errorf("cost = %f, want 0", cost)
	}
}

// TestFindPathBlockedStartSnapsToNearestOpen verifies a blocked start
// is replaced by the nearest open tile instead of failing outright.
func TestFindPathBlockedStartSnapsToNearestOpen(t *testing.T) {
	m := NewGridMap(10, 10)
	blocked := components.Tile{X: 5, Y: 5}
	m.SetWalkable(blocked, false)

	p := NewPathfinder()
	path, _, _ := p.FindPath(m, blocked, components.Tile{X: 0, Y: 0}, true)
	if path == nil {
		t.Fatal("expected path from snapped start, got nil")
	}
}

// TestFindPathIterationCap verifies the cap aborts runaway searches
// with a distinct reason.
func TestFindPathIterationCap(t *testing.T) {
	m := NewGridMap(50, 50)
	p := NewPathfinder()
	p.MaxIterations = 3

	path, _, reason := p.FindPath(m, components.Tile{X: 0, Y: 0}, components.Tile{X: 49, Y: 49}, true)
	if path != nil {
		t.Fatal("expected capped search to fail")
	}
	if reason != components.PathFailIterationLimit {
		t.Errorf("failure reason %v, want %v", reason, components.PathFailIterationLimit)
	}
}

// TestSimplifyPath verifies line-of-sight pruning drops collinear
// interior waypoints when enabled.
func TestSimplifyPath(t *testing.T) {
	m := NewGridMap(20, 20)
	p := NewPathfinder()
	p.Simplify = true

	path, _, _ := p.FindPath(m, components.Tile{X: 0, Y: 0}, components.Tile{X: 10, Y: 0}, true)
	if path == nil {
		t.Fatal("expected path, got nil")
	}
	if len(path) > 2 {
		t.Errorf("simplified straight path has %d waypoints, want at most 2", len(path))
	}
	if path[len(path)-1] != (components.Tile{X: 10, Y: 0}) {
		t.Errorf("simplified path ends at %v, want the goal", path[len(path)-1])
	}
}
