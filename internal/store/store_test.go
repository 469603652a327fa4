package store

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mcalder42/vicsek/internal/ensemble"
	"github.com/mcalder42/vicsek/internal/flock"
)

func sampleResult(n int, noise float64) ensemble.Result {
	return ensemble.Result{
		Params: flock.Params{Length: 24.494897, N: n, Speed: 0.15, Radius: 1, Noise: noise},
		VMean:  0.8123, EVMean: 0.0121,
		Chi: 3.41, EChi: 1.02,
		Binder: 0.651, EBinder: 0.004,
	}
}

func TestResultsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.out")

	w, err := OpenResults(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []ensemble.Result{sampleResult(300, 0.1), sampleResult(300, 0.5)}
	for _, res := range want {
		if err := w.Append(res); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := ReadResults(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	for i := range want {
		if got[i].Params.N != want[i].Params.N {
			t.Errorf("result %d: N=%d, want %d", i, got[i].Params.N, want[i].Params.N)
		}
		if math.Abs(got[i].VMean-want[i].VMean) > 1e-6 {
			t.Errorf("result %d: V=%g, want %g", i, got[i].VMean, want[i].VMean)
		}
		if math.Abs(got[i].Params.Noise-want[i].Params.Noise) > 1e-6 {
			t.Errorf("result %d: eta=%g, want %g", i, got[i].Params.Noise, want[i].Params.Noise)
		}
	}
}

func TestResultsAppendMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.out")

	for i := 0; i < 2; i++ {
		w, err := OpenResults(path)
		if err != nil {
			t.Fatal(err)
		}
		if err := w.Append(sampleResult(100, 0.1)); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
	}

	got, err := ReadResults(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("reopening should append, expected 2 lines, got %d", len(got))
	}
}

func TestResultsLineFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.out")
	w, err := OpenResults(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Append(sampleResult(300, 0.1)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := strings.TrimRight(string(data), "\n")
	fields := strings.Fields(line)
	if len(fields) != 11 {
		t.Fatalf("expected 11 columns, got %d: %q", len(fields), line)
	}
	if fields[1] != "300" {
		t.Errorf("second column should be the integer particle count, got %q", fields[1])
	}
}

func TestSnapshotName(t *testing.T) {
	p := flock.Params{Length: 10.5, N: 55, Speed: 0.15, Radius: 1, Noise: 0.1}
	name := SnapshotName(p, 5000)

	if !strings.HasSuffix(name, ".out") {
		t.Errorf("expected .out extension: %q", name)
	}
	base := strings.TrimSuffix(name, ".out")
	if strings.Contains(base, ".") {
		t.Errorf("dots in the base name must be replaced: %q", name)
	}
	if !strings.HasPrefix(name, "snapshot_L10-5_N55_") {
		t.Errorf("unexpected name: %q", name)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	p := flock.Params{Length: 6, N: 18, Speed: 0.2, Radius: 1, Noise: 0.3}
	m, err := flock.NewModelFromParams(p, flock.Leaders{}, 42)
	if err != nil {
		t.Fatal(err)
	}
	m.Step()
	m.Step()

	snap := TakeSnapshot(m, p)
	path := filepath.Join(t.TempDir(), SnapshotName(p, m.CurrentStep()))
	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatal(err)
	}

	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Params.N != p.N {
		t.Fatalf("expected N=%d, got %d", p.N, got.Params.N)
	}
	if math.Abs(got.Params.Length-p.Length) > 1e-9 {
		t.Errorf("expected L=%g, got %g", p.Length, got.Params.Length)
	}
	if len(got.X) != p.N {
		t.Fatalf("expected %d agent rows, got %d", p.N, len(got.X))
	}
	for i := range got.X {
		if math.Abs(got.X[i]-snap.X[i]) > 1e-9 || math.Abs(got.Heading[i]-snap.Heading[i]) > 1e-9 {
			t.Fatalf("agent %d not preserved through the round trip", i)
		}
	}
}

func TestReadSnapshot_TruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.out")
	// Header claims two agents, only one row follows.
	content := "5 2 0.1 1 0.3\n1 2 0.5 0.08 0.04\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Error("expected error for truncated snapshot")
	}
}

func TestCSVWriter_HeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	w, err := CreateCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Append(sampleResult(100, 0.1)); err != nil {
		t.Fatal(err)
	}
	if err := w.Append(sampleResult(100, 0.5)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "L,N,v0,R,eta") {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if strings.HasPrefix(lines[1], "L,") {
		t.Error("header repeated in data rows")
	}
}

func TestDB_InsertAndList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	db, err := OpenDB(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := db.InsertResult(sampleResult(100, 0.1)); err != nil {
		t.Fatal(err)
	}
	if err := db.InsertResults([]ensemble.Result{sampleResult(200, 0.5), sampleResult(300, 1.0)}); err != nil {
		t.Fatal(err)
	}

	rows, err := db.ListResults()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].N != 100 || rows[2].N != 300 {
		t.Errorf("rows out of insertion order: %d, %d", rows[0].N, rows[2].N)
	}

	res := rows[1].Result()
	if res.Params.N != 200 || math.Abs(res.VMean-0.8123) > 1e-9 {
		t.Errorf("row conversion lost data: %+v", res)
	}
}
