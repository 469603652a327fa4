package config

import "sort"

// presets are named starting points for common experiments. Values mirror
// the published Vicsek phase-transition studies; load one, then override.
var presets = map[string]func() *Config{
	// classic: a single transition-region combination, quick to run.
	"classic": func() *Config {
		return DefaultConfig()
	},

	// transition: sweep the noise through the ordered-disordered
	// transition at fixed density, fine resolution below eta=0.5.
	"transition": func() *Config {
		cfg := DefaultConfig()
		cfg.FixedDensity = true
		cfg.Sweep.N = []int{100, 200, 300}
		cfg.Sweep.Noise = noiseLadder()
		cfg.Repeats = 10
		cfg.Workers = 4
		return cfg
	},

	// leaders: a handful of heavily weighted leaders, one on a circular
	// trajectory, dragging the flock.
	"leaders": func() *Config {
		cfg := DefaultConfig()
		cfg.Leaders = LeadersConfig{
			Count:        3,
			Weight:       9,
			Radius:       1.5,
			Trajectories: []float64{0.02},
		}
		return cfg
	},

	// quick: small box, short run, for smoke tests and demos.
	"quick": func() *Config {
		cfg := DefaultConfig()
		cfg.Length = 7
		cfg.Steps = 200
		cfg.ErrorSamples = 20
		cfg.Sweep.N = []int{24}
		return cfg
	},
}

// noiseLadder reproduces the two-resolution noise grid used for transition
// scans: 10 values on [0.01, 0.5] then 20 on [0.5, 5].
func noiseLadder() []float64 {
	out := make([]float64, 0, 30)
	for i := 0; i < 10; i++ {
		out = append(out, 0.01+(0.5-0.01)*float64(i)/9)
	}
	for i := 0; i < 20; i++ {
		out = append(out, 0.5+(5.0-0.5)*float64(i)/19)
	}
	return out
}

// GetPreset returns a fresh config for a named preset, nil if unknown.
func GetPreset(name string) *Config {
	mk, ok := presets[name]
	if !ok {
		return nil
	}
	return mk()
}

// ListPresets returns the available preset names, sorted.
func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
