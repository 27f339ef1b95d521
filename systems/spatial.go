package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/meadow/components"
)

// Chunk identifies one square bucket of tiles.
type Chunk struct {
	X, Y int
}

// ChunkOf returns the chunk containing a tile. Euclidean floor
// division, so negative coordinates bucket correctly: tile -1 with
// chunk size 16 lands in chunk -1, not chunk 0.
func ChunkOf(t components.Tile, size int) Chunk {
	return Chunk{X: floorDiv(t.X, size), Y: floorDiv(t.Y, size)}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

type spatialEntry struct {
	Entity   ecs.Entity
	Tile     components.Tile
	Category components.Category
}

// ChunkIndex maps actors to tile chunks for O(k) proximity queries.
// Exactly one entry exists per live actor; removal is driven by the
// despawn notification, never inferred. Empty chunks are deleted so
// memory tracks the occupied area, not the world size.
type ChunkIndex struct {
	chunkSize int
	chunks    map[Chunk][]spatialEntry
	entries   map[ecs.Entity]spatialEntry
}

// NewChunkIndex creates an index with the given chunk edge length.
func NewChunkIndex(chunkSize int) *ChunkIndex {
	if chunkSize <= 0 {
		chunkSize = 16
	}
	return &ChunkIndex{
		chunkSize: chunkSize,
		chunks:    make(map[Chunk][]spatialEntry, 64),
		entries:   make(map[ecs.Entity]spatialEntry, 256),
	}
}

// Insert adds an actor at a tile. Inserting an actor that is already
// present moves it instead, preserving the one-entry invariant.
func (x *ChunkIndex) Insert(e ecs.Entity, tile components.Tile, category components.Category) {
	if _, ok := x.entries[e]; ok {
		x.Update(e, tile)
		return
	}
	entry := spatialEntry{Entity: e, Tile: tile, Category: category}
	x.entries[e] = entry
	chunk := ChunkOf(tile, x.chunkSize)
	x.chunks[chunk] = append(x.chunks[chunk], entry)
}

// Remove deletes an actor's entry. The containing chunk is pruned
// when it becomes empty.
func (x *ChunkIndex) Remove(e ecs.Entity) {
	entry, ok := x.entries[e]
	if !ok {
		return
	}
	delete(x.entries, e)
	x.removeFromChunk(e, ChunkOf(entry.Tile, x.chunkSize))
}

// Update moves an actor to a new tile. The chunk lists are only
// touched when the actor actually changes chunk.
func (x *ChunkIndex) Update(e ecs.Entity, tile components.Tile) {
	entry, ok := x.entries[e]
	if !ok {
		return
	}
	oldChunk := ChunkOf(entry.Tile, x.chunkSize)
	newChunk := ChunkOf(tile, x.chunkSize)
	entry.Tile = tile
	x.entries[e] = entry

	if oldChunk == newChunk {
		list := x.chunks[oldChunk]
		for i := range list {
			if list[i].Entity == e {
				list[i].Tile = tile
				break
			}
		}
		return
	}
	x.removeFromChunk(e, oldChunk)
	x.chunks[newChunk] = append(x.chunks[newChunk], entry)
}

func (x *ChunkIndex) removeFromChunk(e ecs.Entity, chunk Chunk) {
	list := x.chunks[chunk]
	for i := range list {
		if list[i].Entity == e {
			list[i] = list[len(list)-1]
			list = list[:len(list)-1]
			break
		}
	}
	if len(list) == 0 {
		delete(x.chunks, chunk)
		return
	}
	x.chunks[chunk] = list
}

// QueryRadiusInto appends all actors within radius of center (true
// Euclidean distance, boundary inclusive) to dst and returns it.
// A non-nil category restricts results to that category. Only chunks
// overlapping the bounding square are visited, never the full
// population. Reuse dst across calls to avoid allocations.
func (x *ChunkIndex) QueryRadiusInto(dst []ecs.Entity, center components.Tile, radius float64, category *components.Category) []ecs.Entity {
	if radius < 0 {
		return dst
	}
	r := int(radius)
	minChunk := ChunkOf(components.Tile{X: center.X - r, Y: center.Y - r}, x.chunkSize)
	maxChunk := ChunkOf(components.Tile{X: center.X + r, Y: center.Y + r}, x.chunkSize)

	for cy := minChunk.Y; cy <= maxChunk.Y; cy++ {
		for cx := minChunk.X; cx <= maxChunk.X; cx++ {
			for _, entry := range x.chunks[Chunk{X: cx, Y: cy}] {
				if category != nil && entry.Category != *category {
					continue
				}
				if center.DistanceTo(entry.Tile) <= radius {
					dst = append(dst, entry.Entity)
				}
			}
		}
	}
	return dst
}

// QueryRadius is the allocating variant of QueryRadiusInto.
func (x *ChunkIndex) QueryRadius(center components.Tile, radius float64, category *components.Category) []ecs.Entity {
	return x.QueryRadiusInto(nil, center, radius, category)
}

// TileOf returns the indexed tile for an actor.
func (x *ChunkIndex) TileOf(e ecs.Entity) (components.Tile, bool) {
	entry, ok := x.entries[e]
	return entry.Tile, ok
}

// Len returns the number of indexed actors.
func (x *ChunkIndex) Len() int {
	return len(x.entries)
}

// ChunkCount returns the number of non-empty chunks.
func (x *ChunkIndex) ChunkCount() int {
	return len(x.chunks)
}
