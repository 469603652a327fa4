package flock

import (
	"context"
	"errors"
	"math"
	"testing"
)

func mustModel(t *testing.T, p Params, leaders Leaders, seed int64) *Model {
	t.Helper()
	m, err := NewModelFromParams(p, leaders, seed)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestNewModel_ParticleCount(t *testing.T) {
	m, err := NewModel(ModelConfig{Length: 10, Density: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if m.N() != 50 {
		t.Errorf("expected N=50 at density 0.5 in a 10x10 box, got %d", m.N())
	}
}

func TestNewModel_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  ModelConfig
	}{
		{"zero length", ModelConfig{Length: 0, Density: 0.5}},
		{"density above one", ModelConfig{Length: 10, Density: 1.5}},
		{"empty box", ModelConfig{Length: 1, Density: 0.1}},
		{"negative speed", ModelConfig{Length: 10, Density: 0.5, Speed: []float64{-1}}},
		{"too many leaders", ModelConfig{Length: 4, Density: 0.5, Leaders: Leaders{Count: 100, Weight: 1, Radius: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewModel(tt.cfg); !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}

func TestModel_Determinism(t *testing.T) {
	p := Params{Length: 8, N: 32, Speed: 0.2, Radius: 1, Noise: 0.5}
	a := mustModel(t, p, Leaders{}, 42)
	b := mustModel(t, p, Leaders{}, 42)

	for s := 0; s < 20; s++ {
		a.Step()
		b.Step()
	}

	ax, ay := a.Positions()
	bx, by := b.Positions()
	for i := 0; i < a.N(); i++ {
		if ax[i] != bx[i] || ay[i] != by[i] {
			t.Fatalf("agent %d diverged between identically seeded runs", i)
		}
		if a.Headings()[i] != b.Headings()[i] {
			t.Fatalf("agent %d heading diverged between identically seeded runs", i)
		}
	}
}

func TestModel_SeedChangesState(t *testing.T) {
	p := Params{Length: 8, N: 32, Speed: 0.2, Radius: 1, Noise: 0.5}
	a := mustModel(t, p, Leaders{}, 1)
	b := mustModel(t, p, Leaders{}, 2)

	ax, _ := a.Positions()
	bx, _ := b.Positions()
	same := true
	for i := range ax {
		if ax[i] != bx[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical initial positions")
	}
}

// With zero radius and zero noise no interaction ever happens, so every agent
// keeps its initial heading and travels in a straight line modulo the box.
func TestModel_IsolatedAgentsKeepHeading(t *testing.T) {
	p := Params{Length: 5, N: 12, Speed: 0.3, Radius: 0, Noise: 0}
	m := mustModel(t, p, Leaders{}, 7)

	xs, ys := m.Positions()
	x0 := append([]float64(nil), xs...)
	y0 := append([]float64(nil), ys...)
	h0 := append([]float64(nil), m.Headings()...)

	const steps = 17
	for s := 0; s < steps; s++ {
		m.Step()
	}

	for i := 0; i < m.N(); i++ {
		if m.Headings()[i] != h0[i] {
			t.Fatalf("agent %d heading changed without interactions or noise", i)
		}
		wantX := wrap(x0[i]+steps*p.Speed*math.Cos(h0[i]), p.Length)
		wantY := wrap(y0[i]+steps*p.Speed*math.Sin(h0[i]), p.Length)
		if math.Abs(xs[i]-wantX) > 1e-9 {
			t.Errorf("agent %d x: expected %g, got %g", i, wantX, xs[i])
		}
		if math.Abs(ys[i]-wantY) > 1e-9 {
			t.Errorf("agent %d y: expected %g, got %g", i, wantY, ys[i])
		}
	}
}

// A radius covering the whole box with zero noise aligns everyone in one step
// and the configuration stays aligned afterwards.
func TestModel_GlobalRadiusAligns(t *testing.T) {
	p := Params{Length: 6, N: 18, Speed: 0.1, Radius: 9, Noise: 0}
	m := mustModel(t, p, Leaders{}, 3)

	m.Step()
	if v := m.OrderParameter(); v < 1-1e-9 {
		t.Fatalf("expected full alignment after one step, got V=%g", v)
	}

	h := m.Headings()[0]
	for s := 0; s < 5; s++ {
		m.Step()
	}
	if got := m.Headings()[0]; math.Abs(got-h) > 1e-9 {
		t.Errorf("aligned heading drifted without noise: %g -> %g", h, got)
	}
	if v := m.OrderParameter(); v < 1-1e-9 {
		t.Errorf("alignment lost without noise: V=%g", v)
	}
}

func TestModel_PositionsStayInBox(t *testing.T) {
	p := Params{Length: 3, N: 9, Speed: 2.5, Radius: 1, Noise: 4}
	m := mustModel(t, p, Leaders{}, 11)

	for s := 0; s < 50; s++ {
		m.Step()
		xs, ys := m.Positions()
		for i := range xs {
			if xs[i] < 0 || xs[i] >= p.Length || ys[i] < 0 || ys[i] >= p.Length {
				t.Fatalf("step %d agent %d left the box: (%g, %g)", s, i, xs[i], ys[i])
			}
		}
	}
}

func TestModel_OrderParameterBounds(t *testing.T) {
	p := Params{Length: 10, N: 50, Speed: 0.5, Radius: 1, Noise: 2}
	m := mustModel(t, p, Leaders{}, 5)

	for s := 0; s < 30; s++ {
		m.Step()
		v := m.OrderParameter()
		if v < 0 || v > 1+1e-12 {
			t.Fatalf("order parameter out of [0, 1]: %g", v)
		}
	}
}

func TestModel_IsotropicOrderParameterSmall(t *testing.T) {
	// A large freshly drawn population has nearly uniform headings, so the
	// order parameter starts near zero (scale 1/sqrt(N)).
	p := Params{Length: 40, N: 800, Speed: 1, Radius: 0, Noise: 0}
	m := mustModel(t, p, Leaders{}, 4)

	if v := m.OrderParameter(); v > 0.15 {
		t.Errorf("expected near-zero alignment for random headings, got V=%g", v)
	}
}

func TestModel_ZeroSpeedOrderParameter(t *testing.T) {
	p := Params{Length: 5, N: 10, Speed: 0, Radius: 1, Noise: 0}
	m := mustModel(t, p, Leaders{}, 1)
	if v := m.OrderParameter(); v != 0 {
		t.Errorf("expected V=0 for zero total speed, got %g", v)
	}
}

func TestModel_LeaderTrajectoryOverride(t *testing.T) {
	p := Params{Length: 6, N: 12, Speed: 0.1, Radius: 1, Noise: 1}
	omega := 0.25
	leaders := Leaders{Count: 2, Weight: 3, Radius: 1.5, Trajectories: []float64{omega}}
	m := mustModel(t, p, leaders, 9)

	// heading after step k+1 is omega*k
	for k := 0; k < 4; k++ {
		m.Step()
		want := omega * float64(k)
		if got := m.Headings()[0]; math.Abs(got-want) > 1e-12 {
			t.Fatalf("after step %d: expected leader heading %g, got %g", k+1, want, got)
		}
	}

	// The second leader has no prescribed trajectory and follows the flock.
	if m.Headings()[1] == omega*3 {
		t.Error("leader without trajectory unexpectedly follows the prescribed heading")
	}
}

func TestModel_Neighbors(t *testing.T) {
	m, err := NewModel(ModelConfig{Length: 1, Density: 1, Radius: []float64{0.5}})
	if err != nil {
		t.Fatal(err)
	}
	if m.N() != 1 {
		t.Fatalf("expected a single agent, got %d", m.N())
	}

	got := m.Neighbors(0)
	if len(got) != 1 || got[0] != 0 {
		t.Errorf("expected self-neighbourhood [0], got %v", got)
	}

	if err := m.SetRadius(0); err != nil {
		t.Fatal(err)
	}
	if got := m.Neighbors(0); len(got) != 0 {
		t.Errorf("expected no neighbours at zero radius, got %v", got)
	}
}

func TestModel_EvolveHonoursContext(t *testing.T) {
	p := Params{Length: 5, N: 10, Speed: 0.1, Radius: 1, Noise: 1}
	m := mustModel(t, p, Leaders{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Evolve(ctx, 100); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if m.CurrentStep() != 0 {
		t.Errorf("cancelled evolve advanced %d steps", m.CurrentStep())
	}
}

func TestModel_Reset(t *testing.T) {
	p := Params{Length: 5, N: 10, Speed: 0.1, Radius: 1, Noise: 1}
	m := mustModel(t, p, Leaders{}, 21)

	xs, _ := m.Positions()
	x0 := append([]float64(nil), xs...)

	m.Step()
	m.Step()
	m.Reset(21)

	if m.CurrentStep() != 0 {
		t.Errorf("expected step counter 0 after reset, got %d", m.CurrentStep())
	}
	xs, _ = m.Positions()
	for i := range xs {
		if xs[i] != x0[i] {
			t.Fatal("same-seed reset did not reproduce the initial configuration")
		}
	}
}

func TestTrajectoryRecorder(t *testing.T) {
	p := Params{Length: 5, N: 10, Speed: 0.1, Radius: 1, Noise: 1}
	m := mustModel(t, p, Leaders{}, 2)

	rec := &TrajectoryRecorder{}
	m.AddObserver(rec)

	if err := m.Evolve(context.Background(), 6); err != nil {
		t.Fatal(err)
	}
	if len(rec.Values) != 6 {
		t.Fatalf("expected 6 recorded values, got %d", len(rec.Values))
	}
	for i, s := range rec.Steps {
		if s != i+1 {
			t.Errorf("record %d: expected step %d, got %d", i, i+1, s)
		}
	}
	if rec.Last() != rec.Values[5] {
		t.Error("Last does not return the most recent value")
	}
}

func TestNoiseAnnealer_Schedule(t *testing.T) {
	a := &NoiseAnnealer{Start: 7, Finish: 0, Levels: 8, StepsPerLevel: 10}

	if got := a.Current(0); got != 7 {
		t.Errorf("expected start level 7, got %g", got)
	}
	if got := a.Current(9); got != 7 {
		t.Errorf("expected level held for StepsPerLevel steps, got %g", got)
	}
	if got := a.Current(70); got != 0 {
		t.Errorf("expected finish level 0, got %g", got)
	}
	if got := a.Current(10000); got != 0 {
		t.Errorf("expected noise to stay at finish, got %g", got)
	}

	prev := a.Current(0)
	for level := 1; level < 8; level++ {
		cur := a.Current(level * 10)
		if cur >= prev {
			t.Fatalf("schedule not decreasing: level %d has %g after %g", level, cur, prev)
		}
		prev = cur
	}
}
