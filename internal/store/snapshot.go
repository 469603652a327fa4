package store

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mcalder42/vicsek/internal/flock"
)

// Snapshot is the final state of one run: the parameter combination it was
// produced under and the per-agent rows x, y, heading, vx, vy.
type Snapshot struct {
	Params flock.Params

	X, Y       []float64
	Heading    []float64
	VelX, VelY []float64
}

// TakeSnapshot captures the current state of a model under the given
// parameter combination.
func TakeSnapshot(m *flock.Model, p flock.Params) Snapshot {
	n := m.N()
	snap := Snapshot{
		Params:  p,
		X:       make([]float64, n),
		Y:       make([]float64, n),
		Heading: make([]float64, n),
	}
	xs, ys := m.Positions()
	copy(snap.X, xs)
	copy(snap.Y, ys)
	copy(snap.Heading, m.Headings())
	snap.VelX, snap.VelY = m.Velocities()
	return snap
}

// SnapshotName builds the conventional snapshot file name for a parameter
// combination and elapsed time, with dots replaced by dashes so the only dot
// is the extension.
func SnapshotName(p flock.Params, t int) string {
	name := fmt.Sprintf("snapshot_L%g_N%d_v%g_R%g_eta%g_t%d",
		p.Length, p.N, p.Speed, p.Radius, p.Noise, t)
	return strings.ReplaceAll(name, ".", "-") + ".out"
}

// WriteSnapshot writes a snapshot as a whitespace table of five columns: the
// first row holds L, N, v0, R, eta and every following row one agent's
// x, y, heading, vx, vy.
func WriteSnapshot(path string, snap Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	w := bufio.NewWriter(f)

	p := snap.Params
	fmt.Fprintf(w, "%g %g %g %g %g\n", p.Length, float64(p.N), p.Speed, p.Radius, p.Noise)
	for i := range snap.X {
		fmt.Fprintf(w, "%g %g %g %g %g\n",
			snap.X[i], snap.Y[i], snap.Heading[i], snap.VelX[i], snap.VelY[i])
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadSnapshot parses a snapshot file written by WriteSnapshot.
func ReadSnapshot(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, err
	}
	defer f.Close()

	var snap Snapshot
	sc := bufio.NewScanner(f)
	row := 0
	for sc.Scan() {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 5 {
			return Snapshot{}, fmt.Errorf("snapshot row %d: expected 5 columns, got %d", row, len(fields))
		}
		vals := make([]float64, 5)
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return Snapshot{}, fmt.Errorf("snapshot row %d: %w", row, err)
			}
			vals[i] = v
		}
		if row == 0 {
			snap.Params = flock.Params{
				Length: vals[0],
				N:      int(vals[1]),
				Speed:  vals[2],
				Radius: vals[3],
				Noise:  vals[4],
			}
		} else {
			snap.X = append(snap.X, vals[0])
			snap.Y = append(snap.Y, vals[1])
			snap.Heading = append(snap.Heading, vals[2])
			snap.VelX = append(snap.VelX, vals[3])
			snap.VelY = append(snap.VelY, vals[4])
		}
		row++
	}
	if err := sc.Err(); err != nil {
		return Snapshot{}, err
	}
	if row == 0 {
		return Snapshot{}, fmt.Errorf("snapshot %s: empty file", path)
	}
	if len(snap.X) != snap.Params.N {
		return Snapshot{}, fmt.Errorf("snapshot %s: header says N=%d, found %d agent rows",
			path, snap.Params.N, len(snap.X))
	}
	return snap, nil
}
