// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Triggers   TriggersConfig   `yaml:"triggers"`
	Needs      NeedsConfig      `yaml:"needs"`
	Population PopulationConfig `yaml:"population"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Runtime    RuntimeConfig    `yaml:"runtime"`
}

// WorldConfig holds world map dimensions and the spatial index layout.
type WorldConfig struct {
	Width  int `yaml:"width"`  // map width in tiles
	Height int `yaml:"height"` // map height in tiles
	// ChunkSize is the spatial index chunk edge in tiles.
	ChunkSize int `yaml:"chunk_size"`
	// ObstacleDensity is the fraction of tiles blocked when the map is
	// generated rather than loaded.
	ObstacleDensity float64 `yaml:"obstacle_density"`
	// MudDensity is the fraction of walkable tiles given elevated
	// movement cost.
	MudDensity float64 `yaml:"mud_density"`
	MudCost    int     `yaml:"mud_cost"`
}

// SchedulerConfig holds the per-tick budgets and retry limits that
// bound scheduler work regardless of population size.
type SchedulerConfig struct {
	ThinkBudget int `yaml:"think_budget"` // decisions evaluated per tick
	PathBudget  int `yaml:"path_budget"`  // paths computed per tick
	// PathTimeoutTicks is the queue age after which a waiting path
	// request is promoted one tier.
	PathTimeoutTicks uint64 `yaml:"path_timeout_ticks"`
	// MaxRetries bounds how many times a failed path is retried before
	// the action fails.
	MaxRetries int `yaml:"max_retries"`
	// PathMaxIterations caps A* expansion; zero derives it from the
	// map area.
	PathMaxIterations int `yaml:"path_max_iterations"`
}

// TriggersConfig holds the need thresholds and sweep cadence for the
// re-think detectors. Zero disables a detector.
type TriggersConfig struct {
	HungerModerate float64 `yaml:"hunger_moderate"`
	HungerCritical float64 `yaml:"hunger_critical"`
	ThirstModerate float64 `yaml:"thirst_moderate"`
	ThirstCritical float64 `yaml:"thirst_critical"`
	EnergyLow      float64 `yaml:"energy_low"`
	ThreatRadius   float64 `yaml:"threat_radius"`
	IdleInterval   uint64  `yaml:"idle_interval"`
}

// NeedsConfig holds per-tick need drift rates.
type NeedsConfig struct {
	HungerRate float64 `yaml:"hunger_rate"` // hunger gained per tick
	ThirstRate float64 `yaml:"thirst_rate"` // thirst gained per tick
	EnergyRate float64 `yaml:"energy_rate"` // energy lost per tick
	// RecoverAmount is how much a completed drink or forage restores.
	RecoverAmount float64 `yaml:"recover_amount"`
}

// PopulationConfig holds population setup parameters.
type PopulationConfig struct {
	Initial             int     `yaml:"initial"`
	PredatorSpawnChance float64 `yaml:"predator_spawn_chance"`
	// WanderRadius bounds how far an idle actor roams from its tile.
	WanderRadius int `yaml:"wander_radius"`
	// ResourceCount is how many food and water sites the demo content
	// scatters over the map.
	ResourceCount int `yaml:"resource_count"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         uint64 `yaml:"stats_window"` // ticks per stats row
	PerfCollectorWindow int    `yaml:"perf_collector_window"`
	OutputDir           string `yaml:"output_dir"`
}

// RuntimeConfig holds run control parameters.
type RuntimeConfig struct {
	Seed        int64  `yaml:"seed"`
	MaxTicks    uint64 `yaml:"max_ticks"`
	LogInterval uint64 `yaml:"log_interval"` // ticks between metric log lines, 0 disables
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate rejects configurations the schedulers cannot run with.
func (c *Config) validate() error {
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("config: world dimensions must be positive, got %dx%d", c.World.Width, c.World.Height)
	}
	if c.Scheduler.ThinkBudget <= 0 {
		return fmt.Errorf("config: think_budget must be positive, got %d", c.Scheduler.ThinkBudget)
	}
	if c.Scheduler.PathBudget <= 0 {
		return fmt.Errorf("config: path_budget must be positive, got %d", c.Scheduler.PathBudget)
	}
	if c.Scheduler.MaxRetries < 0 {
		return fmt.Errorf("config: max_retries must not be negative, got %d", c.Scheduler.MaxRetries)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
