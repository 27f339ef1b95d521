package game

import (
	"math/rand"

	"github.com/pthm-cable/meadow/components"
	"github.com/pthm-cable/meadow/config"
	"github.com/pthm-cable/meadow/systems"
)

// generateMap builds a grid map with randomly scattered obstacles and
// mud patches per the world config.
func generateMap(wc *config.WorldConfig, rng *rand.Rand) *systems.GridMap {
	m := systems.NewGridMap(wc.Width, wc.Height)
	for y := 0; y < wc.Height; y++ {
		for x := 0; x < wc.Width; x++ {
			t := components.Tile{X: x, Y: y}
			r := rng.Float64()
			if r < wc.ObstacleDensity {
				m.SetWalkable(t, false)
			} else if r < wc.ObstacleDensity+wc.MudDensity {
				m.SetCost(t, uint32(wc.MudCost))
			}
		}
	}
	return m
}

// randomWalkableTile samples tiles until it hits a walkable one,
// falling back to a full scan when the map is nearly solid.
func randomWalkableTile(m *systems.GridMap, rng *rand.Rand) (components.Tile, bool) {
	w, h := m.Bounds()
	for i := 0; i < 64; i++ {
		t := components.Tile{X: rng.Intn(w), Y: rng.Intn(h)}
		if m.IsWalkable(t) {
			return t, true
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			t := components.Tile{X: x, Y: y}
			if m.IsWalkable(t) {
				return t, true
			}
		}
	}
	return components.Tile{}, false
}

// findWalkableNear returns the closest walkable tile to t within
// maxRadius, searching in expanding rings.
func findWalkableNear(m systems.WorldMap, t components.Tile, maxRadius int) (components.Tile, bool) {
	if m.IsWalkable(t) {
		return t, true
	}
	for r := 1; r <= maxRadius; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if dx > -r && dx < r && dy > -r && dy < r {
					continue // interior already checked at smaller radius
				}
				c := components.Tile{X: t.X + dx, Y: t.Y + dy}
				if m.IsWalkable(c) {
					return c, true
				}
			}
		}
	}
	return components.Tile{}, false
}
