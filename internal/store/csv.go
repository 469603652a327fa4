package store

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/mcalder42/vicsek/internal/ensemble"
)

// CSVRecord mirrors one results line with named columns.
type CSVRecord struct {
	Length  float64 `csv:"L"`
	N       int     `csv:"N"`
	Speed   float64 `csv:"v0"`
	Radius  float64 `csv:"R"`
	Noise   float64 `csv:"eta"`
	VMean   float64 `csv:"V_mean"`
	EVMean  float64 `csv:"eV_mean"`
	Chi     float64 `csv:"chi"`
	EChi    float64 `csv:"echi"`
	Binder  float64 `csv:"U"`
	EBinder float64 `csv:"eU"`
}

func toCSVRecord(res ensemble.Result) CSVRecord {
	p := res.Params
	return CSVRecord{
		Length: p.Length, N: p.N, Speed: p.Speed, Radius: p.Radius, Noise: p.Noise,
		VMean: res.VMean, EVMean: res.EVMean,
		Chi: res.Chi, EChi: res.EChi,
		Binder: res.Binder, EBinder: res.EBinder,
	}
}

// CSVWriter streams results to a csv file, writing the header once on the
// first record.
type CSVWriter struct {
	f             *os.File
	headerWritten bool
}

// CreateCSV creates (truncating) a csv results file.
func CreateCSV(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating csv: %w", err)
	}
	return &CSVWriter{f: f}, nil
}

// Append writes one result record.
func (cw *CSVWriter) Append(res ensemble.Result) error {
	records := []CSVRecord{toCSVRecord(res)}
	if !cw.headerWritten {
		if err := gocsv.Marshal(records, cw.f); err != nil {
			return fmt.Errorf("writing csv: %w", err)
		}
		cw.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, cw.f); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

// Close closes the file.
func (cw *CSVWriter) Close() error {
	return cw.f.Close()
}

// ExportCSV writes a full result set to a csv file in one go.
func ExportCSV(path string, results []ensemble.Result) error {
	records := make([]CSVRecord, len(results))
	for i, res := range results {
		records[i] = toCSVRecord(res)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating csv: %w", err)
	}
	defer f.Close()
	if err := gocsv.Marshal(records, f); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}
