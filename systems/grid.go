package systems

import "github.com/pthm-cable/meadow/components"

// WorldMap is the walkability and cost query the path scheduler runs
// against. The content layer supplies the real terrain; GridMap below
// is the in-repo implementation.
type WorldMap interface {
	IsWalkable(t components.Tile) bool
	Cost(t components.Tile) uint32
	Bounds() (width, height int)
}

// GridMap is a dense rectangular WorldMap. Tiles outside the bounds
// are not walkable.
type GridMap struct {
	width  int
	height int
	walk   []bool
	cost   []uint32
}

// NewGridMap creates a fully walkable grid with uniform cost 1.
func NewGridMap(width, height int) *GridMap {
	g := &GridMap{
		width:  width,
		height: height,
		walk:   make([]bool, width*height),
		cost:   make([]uint32, width*height),
	}
	for i := range g.walk {
		g.walk[i] = true
		g.cost[i] = 1
	}
	return g
}

// ParseGridMap builds a grid from string rows. '#' is blocked, '~'
// costs 3 (water-adjacent mud), everything else is open at cost 1.
// Handy for tests and demo worlds.
func ParseGridMap(rows []string) *GridMap {
	height := len(rows)
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	g := NewGridMap(width, height)
	for y, row := range rows {
		for x, c := range row {
			switch c {
			case '#':
				g.SetWalkable(components.Tile{X: x, Y: y}, false)
			case '~':
				g.SetCost(components.Tile{X: x, Y: y}, 3)
			}
		}
	}
	return g
}

func (g *GridMap) index(t components.Tile) (int, bool) {
	if t.X < 0 || t.Y < 0 || t.X >= g.width || t.Y >= g.height {
		return 0, false
	}
	return t.Y*g.width + t.X, true
}

// IsWalkable reports whether the tile is inside the map and open.
func (g *GridMap) IsWalkable(t components.Tile) bool {
	i, ok := g.index(t)
	return ok && g.walk[i]
}

// Cost returns the traversal cost of a tile. Out-of-bounds tiles
// report cost 1; callers must check IsWalkable first.
func (g *GridMap) Cost(t components.Tile) uint32 {
	i, ok := g.index(t)
	if !ok {
		return 1
	}
	return g.cost[i]
}

// Bounds returns the grid dimensions.
func (g *GridMap) Bounds() (int, int) {
	return g.width, g.height
}

// SetWalkable marks a tile open or blocked.
func (g *GridMap) SetWalkable(t components.Tile, walkable bool) {
	if i, ok := g.index(t); ok {
		g.walk[i] = walkable
	}
}

// SetCost sets the traversal cost of a tile.
func (g *GridMap) SetCost(t components.Tile, cost uint32) {
	if i, ok := g.index(t); ok {
		g.cost[i] = cost
	}
}
