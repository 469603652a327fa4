// Package flock implements the two-dimensional Vicsek model: point agents
// moving at fixed speed on a periodic square box, each step aligning with the
// weighted circular mean heading of its neighbours plus a uniform noise kick.
//
// Conventions (kept consistent throughout, see DESIGN.md): the domain is
// [0, L) x [0, L) with modulo wrap; neighbour distances are plain Euclidean,
// not wrapped across the boundary; an agent counts itself as a neighbour;
// the neighbour set of agent i uses agent i's own interaction radius.
package flock

import (
	"context"
	"fmt"
	"math"
	"math/rand"
)

// ModelConfig collects everything needed to construct a Model. Speed, Noise,
// Radius and Weights accept either a single value (broadcast) or a short
// array expanded per ExpandProfile. Nil slices take the defaults below.
type ModelConfig struct {
	Length  float64
	Density float64

	Speed   []float64 // default 1
	Noise   []float64 // default 0
	Radius  []float64 // default 1
	Weights []float64 // default 1

	Leaders Leaders

	Seed int64
}

// Model is the mutable per-run state: positions, headings and the per-agent
// parameter profiles. A Model is owned by a single goroutine for its
// lifetime; independent runs construct independent Models.
type Model struct {
	length  float64
	density float64
	n       int

	speed  Profile
	noise  Profile
	radius Profile
	weight Profile

	leaders Leaders

	xs, ys   []float64
	headings []float64

	step      int
	rng       *rand.Rand
	observers []StepObserver

	// scratch reused across steps
	sinH, cosH, next []float64
}

// NewModel validates the configuration, expands the profiles and draws a
// random initial state. N = floor(density * length^2) is fixed for the
// lifetime of the model; changing the box requires constructing a new one.
func NewModel(cfg ModelConfig) (*Model, error) {
	if cfg.Length <= 0 {
		return nil, fmt.Errorf("%w: box length must be positive, got %g", ErrInvalidParameter, cfg.Length)
	}
	if cfg.Density <= 0 || cfg.Density > 1 {
		return nil, fmt.Errorf("%w: density must be in (0, 1], got %g", ErrInvalidParameter, cfg.Density)
	}
	n := int(cfg.Density * cfg.Length * cfg.Length)
	if n < 1 {
		return nil, fmt.Errorf("%w: box %gx%g at density %g holds no particles",
			ErrInvalidParameter, cfg.Length, cfg.Length, cfg.Density)
	}
	if err := cfg.Leaders.Validate(n); err != nil {
		return nil, err
	}

	m := &Model{
		length:   cfg.Length,
		density:  cfg.Density,
		n:        n,
		leaders:  cfg.Leaders,
		xs:       make([]float64, n),
		ys:       make([]float64, n),
		headings: make([]float64, n),
		sinH:     make([]float64, n),
		cosH:     make([]float64, n),
		next:     make([]float64, n),
	}

	if err := m.SetSpeed(orDefault(cfg.Speed, 1)...); err != nil {
		return nil, err
	}
	if err := m.SetNoise(orDefault(cfg.Noise, 0)...); err != nil {
		return nil, err
	}
	if err := m.SetRadius(orDefault(cfg.Radius, 1)...); err != nil {
		return nil, err
	}
	if err := m.SetWeights(orDefault(cfg.Weights, 1)...); err != nil {
		return nil, err
	}

	m.Reset(cfg.Seed)
	return m, nil
}

// NewModelFromParams constructs a model with uniform profiles taken from a
// parameter combination. The box length is used directly; the stored density
// is N / L^2.
func NewModelFromParams(p Params, leaders Leaders, seed int64) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := leaders.Validate(p.N); err != nil {
		return nil, err
	}
	m := &Model{
		length:   p.Length,
		density:  float64(p.N) / (p.Length * p.Length),
		n:        p.N,
		leaders:  leaders,
		xs:       make([]float64, p.N),
		ys:       make([]float64, p.N),
		headings: make([]float64, p.N),
		sinH:     make([]float64, p.N),
		cosH:     make([]float64, p.N),
		next:     make([]float64, p.N),
	}
	if err := m.SetSpeed(p.Speed); err != nil {
		return nil, err
	}
	if err := m.SetNoise(p.Noise); err != nil {
		return nil, err
	}
	if err := m.SetRadius(p.Radius); err != nil {
		return nil, err
	}
	if err := m.SetWeights(1); err != nil {
		return nil, err
	}
	m.Reset(seed)
	return m, nil
}

func orDefault(values []float64, def float64) []float64 {
	if len(values) == 0 {
		return []float64{def}
	}
	return values
}

// Reset discards the current state and draws a fresh random configuration:
// positions uniform on [0, L)^2, headings uniform on [0, 2pi). The step
// counter returns to zero. Resetting is always explicit; no other operation
// re-randomises the state.
func (m *Model) Reset(seed int64) {
	m.rng = rand.New(rand.NewSource(seed))
	for i := 0; i < m.n; i++ {
		m.xs[i] = m.rng.Float64() * m.length
		m.ys[i] = m.rng.Float64() * m.length
	}
	for i := 0; i < m.n; i++ {
		m.headings[i] = m.rng.Float64() * 2 * math.Pi
	}
	m.step = 0
}

// Profile setters validate and expand at assignment time (dimension errors
// surface here, not at the next step).

// SetSpeed replaces the speed profile.
func (m *Model) SetSpeed(values ...float64) error {
	p, err := m.expand("speed", values)
	if err != nil {
		return err
	}
	m.speed = p
	return nil
}

// SetNoise replaces the noise profile. Per-agent noise kicks are drawn
// uniformly from [-noise/2, +noise/2].
func (m *Model) SetNoise(values ...float64) error {
	p, err := m.expand("noise", values)
	if err != nil {
		return err
	}
	m.noise = p
	return nil
}

// SetRadius replaces the interaction radius profile.
func (m *Model) SetRadius(values ...float64) error {
	p, err := m.expand("radius", values)
	if err != nil {
		return err
	}
	m.radius = p
	return nil
}

// SetWeights replaces the interaction weight profile.
func (m *Model) SetWeights(values ...float64) error {
	p, err := m.expand("weights", values)
	if err != nil {
		return err
	}
	m.weight = p
	return nil
}

func (m *Model) expand(name string, values []float64) (Profile, error) {
	p, err := ExpandProfile(m.n, values)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := checkNonNegative(name, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Step advances every agent by one synchronous update: new headings are
// computed for the whole population from a snapshot of the current headings
// (no agent sees another's already-updated heading), then positions advance
// and wrap.
func (m *Model) Step() {
	for i, h := range m.headings {
		m.sinH[i] = math.Sin(h)
		m.cosH[i] = math.Cos(h)
	}

	for i := 0; i < m.n; i++ {
		kick := (m.rng.Float64() - 0.5) * m.noise[i]
		s, c, interacting := m.interactionSums(i)
		if !interacting {
			// Isolated agent (zero radius, no leaders in range): the
			// heading is retained rather than snapping to atan2(0,0).
			m.next[i] = m.headings[i] + kick
			continue
		}
		m.next[i] = math.Atan2(s, c) + kick
	}

	// Prescribed leader trajectories override the interaction term.
	t := float64(m.step)
	for k := 0; k < m.leaders.trajectoryCount(); k++ {
		m.next[k] = m.leaders.Trajectories[k] * t
	}

	for i := 0; i < m.n; i++ {
		h := m.next[i]
		m.headings[i] = h
		m.xs[i] = wrap(m.xs[i]+m.speed[i]*math.Cos(h), m.length)
		m.ys[i] = wrap(m.ys[i]+m.speed[i]*math.Sin(h), m.length)
	}
	m.step++

	for _, o := range m.observers {
		o.OnStep(m)
	}
}

// Evolve advances the model a number of steps, checking for cancellation
// between steps.
func (m *Model) Evolve(ctx context.Context, steps int) error {
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		m.Step()
	}
	return nil
}

// wrap reduces a coordinate into [0, length).
func wrap(x, length float64) float64 {
	x = math.Mod(x, length)
	if x < 0 {
		x += length
	}
	return x
}

// AddObserver registers an observer fired after every completed step.
func (m *Model) AddObserver(o StepObserver) {
	m.observers = append(m.observers, o)
}

// Read-only accessors. Returned slices are the live state; callers must not
// modify them.

// Positions returns the x and y coordinates of all agents.
func (m *Model) Positions() (xs, ys []float64) { return m.xs, m.ys }

// Headings returns the heading angles of all agents (radians, unreduced).
func (m *Model) Headings() []float64 { return m.headings }

// Speed returns the per-agent speed profile.
func (m *Model) Speed() Profile { return m.speed }

// Noise returns the per-agent noise profile.
func (m *Model) Noise() Profile { return m.noise }

// Radius returns the per-agent interaction radius profile.
func (m *Model) Radius() Profile { return m.radius }

// Weights returns the per-agent interaction weight profile.
func (m *Model) Weights() Profile { return m.weight }

// Velocities computes the velocity components speed * (cos h, sin h).
func (m *Model) Velocities() (vx, vy []float64) {
	vx = make([]float64, m.n)
	vy = make([]float64, m.n)
	for i, h := range m.headings {
		vx[i] = m.speed[i] * math.Cos(h)
		vy[i] = m.speed[i] * math.Sin(h)
	}
	return vx, vy
}

// N returns the particle count.
func (m *Model) N() int { return m.n }

// Length returns the box side length.
func (m *Model) Length() float64 { return m.length }

// Density returns the number density N / L^2.
func (m *Model) Density() float64 { return m.density }

// CurrentStep returns the number of steps taken since the last Reset.
func (m *Model) CurrentStep() int { return m.step }
