// Package components defines ECS components for the simulation.
package components

import "math"

// Tile is an integer grid coordinate in world space.
type Tile struct {
	X, Y int
}

// DistanceTo returns the Euclidean distance to another tile.
func (t Tile) DistanceTo(o Tile) float64 {
	dx := float64(t.X - o.X)
	dy := float64(t.Y - o.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// ChebyshevTo returns the Chebyshev (8-connected step count) distance.
func (t Tile) ChebyshevTo(o Tile) int {
	dx := t.X - o.X
	if dx < 0 {
		dx = -dx
	}
	dy := t.Y - o.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// Category classifies an actor for filtered proximity queries.
type Category uint8

const (
	CategoryHerbivore Category = iota
	CategoryPredator
	CategoryOmnivore
)

// String returns the display name for a Category.
func (c Category) String() string {
	switch c {
	case CategoryHerbivore:
		return "herbivore"
	case CategoryPredator:
		return "predator"
	case CategoryOmnivore:
		return "omnivore"
	default:
		return "unknown"
	}
}

// Actor is the core identity component. ID is stable for the actor's
// lifetime and independent of the ECS entity generation.
type Actor struct {
	ID       uint32
	Category Category
}

// Position is the actor's current tile. Updated only by the movement
// step of the executor so the spatial index sees confirmed moves.
type Position struct {
	Tile Tile
}

// Needs holds the tracked physiological values on a 0-100 scale.
// Hunger and Thirst rise over time; Energy falls.
type Needs struct {
	Hunger float32
	Thirst float32
	Energy float32
}
