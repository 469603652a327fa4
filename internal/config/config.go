// Package config loads, validates and persists the yaml experiment
// configuration consumed by the CLI. The core packages never parse anything
// themselves; they accept the validated values carried here.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mcalder42/vicsek/internal/flock"
)

const (
	DefaultLength       = 10.0
	DefaultDensity      = 0.5
	DefaultSteps        = 5000
	DefaultRepeats      = 2
	DefaultErrorSamples = 50
	DefaultWorkers      = 1
	DefaultBurnInMax    = 100000
)

// Config is the full experiment configuration.
type Config struct {
	// Box geometry. FixedDensity rescales the box per sweep point,
	// L = sqrt(N/density); otherwise Length is used throughout.
	Length       float64 `yaml:"length"`
	Density      float64 `yaml:"density"`
	FixedDensity bool    `yaml:"fixed_density"`

	// Per-agent profiles for single runs; short arrays expand by
	// repeating the last element (see flock.ExpandProfile).
	Speed   []float64 `yaml:"speed"`
	Noise   []float64 `yaml:"noise"`
	Radius  []float64 `yaml:"radius"`
	Weights []float64 `yaml:"weights"`

	Steps        int   `yaml:"steps"`
	Repeats      int   `yaml:"repeats"`
	ErrorSamples int   `yaml:"error_samples"`
	Seed         int64 `yaml:"seed"`
	Workers      int   `yaml:"workers"`

	// BurnCoeff is the calibrated linear burn-in model,
	// nt_burn = burn_coeff[0]*N + burn_coeff[1].
	BurnCoeff [2]float64 `yaml:"burn_coeff"`

	BurnIn  BurnInConfig  `yaml:"burn_in"`
	Sweep   SweepConfig   `yaml:"sweep"`
	Leaders LeadersConfig `yaml:"leaders"`
	Anneal  AnnealConfig  `yaml:"anneal"`
	Output  OutputConfig  `yaml:"output"`
}

// SweepConfig lists the parameter values iterated over by the sweep; all
// combinations are visited.
type SweepConfig struct {
	N      []int     `yaml:"n"`
	Speed  []float64 `yaml:"speed"`
	Radius []float64 `yaml:"radius"`
	Noise  []float64 `yaml:"noise"`
}

// LeadersConfig configures the weighted leader variant.
type LeadersConfig struct {
	Count        int       `yaml:"count"`
	Weight       float64   `yaml:"weight"`
	Radius       float64   `yaml:"radius"`
	Trajectories []float64 `yaml:"trajectories"`
}

// AnnealConfig is the linear noise schedule for the annealing live view.
type AnnealConfig struct {
	Start         float64 `yaml:"start"`
	Finish        float64 `yaml:"finish"`
	Levels        int     `yaml:"levels"`
	StepsPerLevel int     `yaml:"steps_per_level"`
}

// BurnInConfig controls burn-in detection.
type BurnInConfig struct {
	Threshold float64 `yaml:"threshold"`
	MaxSteps  int     `yaml:"max_steps"`
	Repeats   int     `yaml:"repeats"`
}

// OutputConfig names the output sinks. Empty paths disable a sink.
type OutputConfig struct {
	Results   string `yaml:"results"`  // whitespace table, append mode
	Database  string `yaml:"database"` // sqlite results database
	CSV       string `yaml:"csv"`      // csv results database
	Snapshots bool   `yaml:"snapshots"`
	Dir       string `yaml:"dir"` // directory for snapshots
}

// DefaultConfig returns a runnable configuration: a 10x10 box at density 0.5
// with the classic transition-region parameters.
func DefaultConfig() *Config {
	return &Config{
		Length:       DefaultLength,
		Density:      DefaultDensity,
		Speed:        []float64{0.15},
		Noise:        []float64{0.1},
		Radius:       []float64{1.0},
		Weights:      []float64{1.0},
		Steps:        DefaultSteps,
		Repeats:      DefaultRepeats,
		ErrorSamples: DefaultErrorSamples,
		Workers:      DefaultWorkers,
		BurnCoeff:    [2]float64{0, 1},
		BurnIn: BurnInConfig{
			Threshold: 0.98,
			MaxSteps:  DefaultBurnInMax,
			Repeats:   10,
		},
		Sweep: SweepConfig{
			N:      []int{300},
			Speed:  []float64{0.15},
			Radius: []float64{1.0},
			Noise:  []float64{0.1},
		},
		Anneal: AnnealConfig{
			Start:         7.0,
			Finish:        0.0,
			Levels:        35,
			StepsPerLevel: 50,
		},
		Output: OutputConfig{
			Results: "output.out",
		},
	}
}

// Load reads a yaml file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as yaml.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports the first invalid value. Out-of-range values are errors,
// never clamped.
func (c *Config) Validate() error {
	if c.Length <= 0 && !c.FixedDensity {
		return fmt.Errorf("config: box length must be positive, got %g", c.Length)
	}
	if c.Density <= 0 || c.Density > 1 {
		return fmt.Errorf("config: density must be in (0, 1], got %g", c.Density)
	}
	for _, pair := range []struct {
		name   string
		values []float64
	}{
		{"speed", c.Speed},
		{"noise", c.Noise},
		{"radius", c.Radius},
		{"weights", c.Weights},
	} {
		for _, v := range pair.values {
			if v < 0 {
				return fmt.Errorf("config: %s must be non-negative, got %g", pair.name, v)
			}
		}
	}
	if c.Steps < 1 {
		return fmt.Errorf("config: steps must be positive, got %d", c.Steps)
	}
	if c.Repeats < 2 {
		return fmt.Errorf("config: at least 2 repeats required, got %d", c.Repeats)
	}
	if c.ErrorSamples < 1 {
		return fmt.Errorf("config: at least 1 error sample required, got %d", c.ErrorSamples)
	}
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be positive, got %d", c.Workers)
	}
	if c.BurnIn.Threshold <= 0 || c.BurnIn.Threshold > 1 {
		return fmt.Errorf("config: burn-in threshold must be in (0, 1], got %g", c.BurnIn.Threshold)
	}
	if c.BurnIn.MaxSteps < 1 {
		return fmt.Errorf("config: burn-in step cutoff must be positive, got %d", c.BurnIn.MaxSteps)
	}
	if c.BurnIn.Repeats < 1 {
		return fmt.Errorf("config: at least 1 burn-in repeat required, got %d", c.BurnIn.Repeats)
	}
	if c.Leaders.Count < 0 {
		return fmt.Errorf("config: leader count must be non-negative, got %d", c.Leaders.Count)
	}
	if c.Leaders.Count > 0 {
		if c.Leaders.Weight < 0 {
			return fmt.Errorf("config: leader weight must be non-negative, got %g", c.Leaders.Weight)
		}
		if c.Leaders.Radius < 0 {
			return fmt.Errorf("config: leader radius must be non-negative, got %g", c.Leaders.Radius)
		}
	}
	if c.Anneal.Levels < 1 {
		return fmt.Errorf("config: anneal levels must be positive, got %d", c.Anneal.Levels)
	}
	if c.Anneal.StepsPerLevel < 1 {
		return fmt.Errorf("config: anneal steps per level must be positive, got %d", c.Anneal.StepsPerLevel)
	}
	return nil
}

// FlockLeaders converts the leader section to the core type.
func (c *Config) FlockLeaders() flock.Leaders {
	return flock.Leaders{
		Count:        c.Leaders.Count,
		Weight:       c.Leaders.Weight,
		Radius:       c.Leaders.Radius,
		Trajectories: c.Leaders.Trajectories,
	}
}
