package game

import (
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/meadow/components"
)

// SpawnActor creates an actor at the given tile and registers it with
// the spatial index.
func (s *Sim) SpawnActor(tile components.Tile, category components.Category) ecs.Entity {
	s.nextID++
	needs := components.Needs{
		Hunger: s.rng.Float32() * 30,
		Thirst: s.rng.Float32() * 30,
		Energy: 70 + s.rng.Float32()*30,
	}
	e := s.actorMapper.NewEntity(
		&components.Actor{ID: s.nextID, Category: category},
		&components.Position{Tile: tile},
		&needs,
		&components.NeedTracker{
			PrevHunger: needs.Hunger,
			PrevThirst: needs.Thirst,
			PrevEnergy: needs.Energy,
		},
	)
	s.index.Insert(e, tile, category)
	s.population++

	slog.Debug("actor_spawned",
		"id", s.nextID,
		"category", category.String(),
		"tile_x", tile.X,
		"tile_y", tile.Y)
	return e
}

// Despawn marks an actor for removal. The cleanup stage strips it
// from every queue, dedupe set, marker and the index the same tick.
func (s *Sim) Despawn(e ecs.Entity) {
	s.despawnQueue = append(s.despawnQueue, e)
}

// cullDead flushes the despawn queue.
func (s *Sim) cullDead() {
	if len(s.despawnQueue) == 0 {
		return
	}
	for _, e := range s.despawnQueue {
		s.removeActor(e)
	}
	s.despawnQueue = s.despawnQueue[:0]
}

// removeActor strips one actor from every system, then the world.
// Safe to call twice; a dead entity is skipped.
func (s *Sim) removeActor(e ecs.Entity) {
	if !s.world.Alive(e) {
		return
	}
	s.executor.Cancel(e)
	s.think.Forget(e)
	s.paths.Forget(e)
	s.paths.ClearMarkers(e)
	s.index.Remove(e)
	s.world.RemoveEntity(e)
	s.population--

	slog.Debug("actor_despawned", "population", s.population)
}

// spawnInitialPopulation places the configured number of actors on
// random walkable tiles.
func (s *Sim) spawnInitialPopulation() {
	for i := 0; i < s.cfg.Population.Initial; i++ {
		tile, ok := randomWalkableTile(s.worldMap, s.rng)
		if !ok {
			slog.Warn("no walkable tile found for spawn", "spawned", i)
			return
		}
		category := components.CategoryHerbivore
		if s.rng.Float64() < s.cfg.Population.PredatorSpawnChance {
			category = components.CategoryPredator
		}
		s.SpawnActor(tile, category)
	}
	slog.Info("population_spawned", "count", s.population)
}
