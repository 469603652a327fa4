package store

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mcalder42/vicsek/internal/ensemble"
	"github.com/mcalder42/vicsek/internal/flock"
)

// DB wraps a sqlite connection holding the results history. Unlike the flat
// results table it keeps a timestamp per row, so repeated sweeps of the same
// combination stay distinguishable.
type DB struct {
	conn *sqlx.DB
}

// ResultRow is one persisted result.
type ResultRow struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`

	Length float64 `db:"length"`
	N      int     `db:"n"`
	Speed  float64 `db:"speed"`
	Radius float64 `db:"radius"`
	Noise  float64 `db:"noise"`

	VMean   float64 `db:"v_mean"`
	EVMean  float64 `db:"ev_mean"`
	Chi     float64 `db:"chi"`
	EChi    float64 `db:"echi"`
	Binder  float64 `db:"binder"`
	EBinder float64 `db:"ebinder"`
}

// Result converts the row back to the aggregate type.
func (r ResultRow) Result() ensemble.Result {
	return ensemble.Result{
		Params: flock.Params{
			Length: r.Length, N: r.N, Speed: r.Speed, Radius: r.Radius, Noise: r.Noise,
		},
		VMean: r.VMean, EVMean: r.EVMean,
		Chi: r.Chi, EChi: r.EChi,
		Binder: r.Binder, EBinder: r.EBinder,
	}
}

// OpenDB opens or creates the results database at the given path.
func OpenDB(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at TIMESTAMP NOT NULL,
		length REAL NOT NULL,
		n INTEGER NOT NULL,
		speed REAL NOT NULL,
		radius REAL NOT NULL,
		noise REAL NOT NULL,
		v_mean REAL NOT NULL,
		ev_mean REAL NOT NULL,
		chi REAL NOT NULL,
		echi REAL NOT NULL,
		binder REAL NOT NULL,
		ebinder REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_combo ON results(n, speed, radius, noise);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// InsertResult appends one result, timestamped now.
func (db *DB) InsertResult(res ensemble.Result) error {
	p := res.Params
	_, err := db.conn.Exec(`INSERT INTO results
		(created_at, length, n, speed, radius, noise,
		 v_mean, ev_mean, chi, echi, binder, ebinder)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC(), p.Length, p.N, p.Speed, p.Radius, p.Noise,
		res.VMean, res.EVMean, res.Chi, res.EChi, res.Binder, res.EBinder,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// InsertResults appends a batch of results inside one transaction.
func (db *DB) InsertResults(results []ensemble.Result) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO results
		(created_at, length, n, speed, radius, noise,
		 v_mean, ev_mean, chi, echi, binder, ebinder)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, res := range results {
		p := res.Params
		if _, err := stmt.Exec(now, p.Length, p.N, p.Speed, p.Radius, p.Noise,
			res.VMean, res.EVMean, res.Chi, res.EChi, res.Binder, res.EBinder); err != nil {
			return fmt.Errorf("insert result N=%d eta=%g: %w", p.N, p.Noise, err)
		}
	}
	return tx.Commit()
}

// ListResults returns all persisted rows, oldest first.
func (db *DB) ListResults() ([]ResultRow, error) {
	var rows []ResultRow
	err := db.conn.Select(&rows, `SELECT * FROM results ORDER BY id`)
	return rows, err
}
