// Package store persists experiment output: the whitespace results table the
// plotting scripts consume, final-state snapshot files, a sqlite results
// database and a csv export of it.
package store

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mcalder42/vicsek/internal/ensemble"
	"github.com/mcalder42/vicsek/internal/flock"
)

// ResultsWriter appends one whitespace-separated line per parameter
// combination to a plain text table. The column order is
// L N v0 R eta V_mean eV_mean chi echi U eU.
type ResultsWriter struct {
	f *os.File
	w *bufio.Writer
}

// OpenResults opens the results table for appending, creating it if needed.
func OpenResults(path string) (*ResultsWriter, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening results table: %w", err)
	}
	return &ResultsWriter{f: f, w: bufio.NewWriter(f)}, nil
}

// Append writes one result line.
func (rw *ResultsWriter) Append(res ensemble.Result) error {
	p := res.Params
	_, err := fmt.Fprintf(rw.w, "%f %d %f %f %f %f %f %f %f %f %f \n",
		p.Length, p.N, p.Speed, p.Radius, p.Noise,
		res.VMean, res.EVMean, res.Chi, res.EChi, res.Binder, res.EBinder)
	return err
}

// Close flushes and closes the table.
func (rw *ResultsWriter) Close() error {
	if err := rw.w.Flush(); err != nil {
		rw.f.Close()
		return err
	}
	return rw.f.Close()
}

// ReadResults parses a results table written by ResultsWriter. Blank lines
// are skipped.
func ReadResults(path string) ([]ensemble.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []ensemble.Result
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var p flock.Params
		var res ensemble.Result
		n, err := fmt.Sscanf(text, "%f %d %f %f %f %f %f %f %f %f %f",
			&p.Length, &p.N, &p.Speed, &p.Radius, &p.Noise,
			&res.VMean, &res.EVMean, &res.Chi, &res.EChi, &res.Binder, &res.EBinder)
		if err != nil || n != 11 {
			return nil, fmt.Errorf("results line %d: expected 11 columns: %q", line, text)
		}
		res.Params = p
		out = append(out, res)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
